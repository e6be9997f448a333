package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// Fingerprint is the stable 128-bit identity of a listing across scans,
// rendered as 32 lowercase hex characters. It keys both the in-process
// dedupe cache and the on-disk seen-URL snapshot.
type Fingerprint string

// FingerprintListing derives the fingerprint from the canonical listing URL.
// When the URL is missing (rare: some parse paths emit partial rows before
// the scanner drops them) it falls back to (platform, title, price amount)
// so the caller can still count the sighting.
func FingerprintListing(l models.Listing) Fingerprint {
	if l.URL != "" {
		// Listing URLs are absolutized during field normalization, so no
		// base is needed here.
		return FingerprintURL(l.URL, "")
	}
	key := fmt.Sprintf("%s|%s|%.2f", l.Platform, strings.ToLower(strings.TrimSpace(l.Title)), l.Price.Amount)
	return digest(key)
}

// FingerprintURL fingerprints an already-known listing URL. The URL is
// canonicalized first so tracking-parameter variants collapse to one key.
func FingerprintURL(rawURL, base string) Fingerprint {
	return digest(Canonicalize(rawURL, base))
}

// digest truncates SHA-256 to 128 bits. Collision odds at cache scale
// (10^6 entries) are negligible and the shorter key halves snapshot size.
func digest(s string) Fingerprint {
	sum := sha256.Sum256([]byte(s))
	return Fingerprint(hex.EncodeToString(sum[:16]))
}
