// Package rules holds the static multilingual keyword, species, exclusion
// and indicator tables consumed by the threat scorer and the rotation
// engine. Every table is compiled once at init from embedded data and is
// read-only afterwards, so the hot path needs no locks.
package rules

import (
	"bufio"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"log"
	"strings"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

//go:embed data/wildlife_keywords.tsv
var wildlifeKeywordsTSV string

//go:embed data/ht_keywords.tsv
var htKeywordsTSV string

// Keyword is one corpus entry. Lang is advisory only; matching downstream
// is language-agnostic.
type Keyword struct {
	Lang string
	Term string
}

var (
	wildlifeCorpus []Keyword
	htCorpus       []Keyword

	wildlifeVersion string
	htVersion       string
)

func init() {
	wildlifeCorpus = parseCorpus(wildlifeKeywordsTSV)
	htCorpus = parseCorpus(htKeywordsTSV)
	wildlifeVersion = corpusDigest(wildlifeCorpus)
	htVersion = corpusDigest(htCorpus)

	log.Printf("[Rules] Loaded %d wildlife keywords (v%s), %d HT keywords (v%s)",
		len(wildlifeCorpus), wildlifeVersion[:8], len(htCorpus), htVersion[:8])
}

// Corpus returns the ordered keyword list for a threat domain.
func Corpus(domain models.ThreatDomain) []Keyword {
	if domain == models.DomainHumanTrafficking {
		return htCorpus
	}
	return wildlifeCorpus
}

// CorpusTerms returns just the search terms, in corpus order.
func CorpusTerms(domain models.ThreatDomain) []string {
	corpus := Corpus(domain)
	terms := make([]string, len(corpus))
	for i, kw := range corpus {
		terms[i] = kw.Term
	}
	return terms
}

// CorpusVersion identifies the compiled keyword table. The rotation engine
// resets its cursor when this changes (keyword indices are only meaningful
// within one version).
func CorpusVersion(domain models.ThreatDomain) string {
	if domain == models.DomainHumanTrafficking {
		return htVersion
	}
	return wildlifeVersion
}

func parseCorpus(tsv string) []Keyword {
	var out []Keyword
	seen := make(map[string]bool)

	sc := bufio.NewScanner(strings.NewReader(tsv))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lang, term, found := strings.Cut(line, "\t")
		if !found {
			// Untagged lines are allowed; default to "en".
			term, lang = lang, "en"
		}
		term = strings.TrimSpace(term)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		out = append(out, Keyword{Lang: strings.TrimSpace(lang), Term: term})
	}
	return out
}

func corpusDigest(corpus []Keyword) string {
	h := sha256.New()
	for _, kw := range corpus {
		h.Write([]byte(kw.Term))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
