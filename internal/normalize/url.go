package normalize

import (
	"net/url"
	"sort"
	"strings"
)

// URL canonicalization rules shared by the fingerprinter and the store key:
//   - lowercase host, strip default ports
//   - drop tracking parameters (utm_*, fbclid, gclid, ref, source)
//   - sort surviving query parameters for a stable serialization
//   - drop fragments
//
// Canonicalize is idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u).

// trackingParams are query keys that never affect listing identity.
var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"ref":    true,
	"source": true,
}

func isTrackingParam(key string) bool {
	if trackingParams[strings.ToLower(key)] {
		return true
	}
	return strings.HasPrefix(strings.ToLower(key), "utm_")
}

// Canonicalize rewrites raw into its canonical form. Relative URLs are
// resolved against base (the platform's base URL); base may be empty for
// already-absolute URLs. Unparseable input is returned unchanged.
func Canonicalize(raw, base string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}

	if !u.IsAbs() && base != "" {
		b, berr := url.Parse(base)
		if berr == nil {
			u = b.ResolveReference(u)
		}
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Strip default ports so :443/:80 variants collapse to one key.
	if (u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) ||
		(u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			if isTrackingParam(k) {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if sb.Len() > 0 {
					sb.WriteByte('&')
				}
				sb.WriteString(url.QueryEscape(k))
				sb.WriteByte('=')
				sb.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = sb.String()
	}

	return u.String()
}
