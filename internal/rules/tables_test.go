package rules

import (
	"strings"
	"testing"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

func TestCorpusLoaded(t *testing.T) {
	wildlife := Corpus(models.DomainWildlife)
	ht := Corpus(models.DomainHumanTrafficking)

	// The wildlife corpus is curated to roughly 1,400-1,500 terms; a
	// large drift either way means the embedded data went stale.
	if len(wildlife) < 1400 || len(wildlife) > 1550 {
		t.Errorf("Wildlife corpus size = %d, want 1400-1550 entries", len(wildlife))
	}
	if len(ht) < 20 {
		t.Errorf("HT corpus suspiciously small: %d entries", len(ht))
	}

	langs := make(map[string]bool)
	for i, kw := range wildlife {
		if kw.Term == "" {
			t.Fatalf("Wildlife entry %d has empty term", i)
		}
		if kw.Lang == "" {
			t.Errorf("Entry %q missing language tag", kw.Term)
		}
		langs[kw.Lang] = true
	}
	if len(langs) != 16 {
		t.Errorf("Wildlife corpus spans %d language tags, want 16", len(langs))
	}
}

func TestCorpusHasNoDuplicates(t *testing.T) {
	for _, domain := range []models.ThreatDomain{models.DomainWildlife, models.DomainHumanTrafficking} {
		seen := make(map[string]bool)
		for _, term := range CorpusTerms(domain) {
			if seen[term] {
				t.Errorf("%s corpus duplicates %q", domain, term)
			}
			seen[term] = true
		}
	}
}

func TestHTCorpusAvoidsSingleTokenTerms(t *testing.T) {
	// The HT search vocabulary is restricted to multi-token phrases:
	// single words ("young", "fresh") are scoring indicators, never
	// search terms, to avoid flooding scans with benign listings. Only
	// space-delimited scripts can be checked this way; CJK and Thai
	// phrases carry no separators.
	isASCII := func(s string) bool {
		for _, r := range s {
			if r > 127 {
				return false
			}
		}
		return true
	}
	for _, term := range CorpusTerms(models.DomainHumanTrafficking) {
		if isASCII(term) && len(strings.Fields(term)) < 2 {
			t.Errorf("HT search term %q is a single token", term)
		}
	}
}

func TestCorpusVersionStable(t *testing.T) {
	a := CorpusVersion(models.DomainWildlife)
	b := CorpusVersion(models.DomainWildlife)
	if a != b {
		t.Fatalf("CorpusVersion not stable: %s != %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("Version digest length = %d, want 16", len(a))
	}
	if a == CorpusVersion(models.DomainHumanTrafficking) {
		t.Errorf("Distinct corpora must have distinct versions")
	}
}

func TestParseCorpusSkipsCommentsAndBlanks(t *testing.T) {
	got := parseCorpus("# header\n\nen\tivory carving\nes\tmarfil tallado\n# tail\n")
	if len(got) != 2 {
		t.Fatalf("Parsed %d entries, want 2", len(got))
	}
	if got[0].Lang != "en" || got[0].Term != "ivory carving" {
		t.Errorf("First entry = %+v", got[0])
	}
}

func TestExclusionThreshold(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"Strong Alone Fires", "beautiful ivory colored dress", true},
		{"Single Weak Does Not Fire", "fun toy for everyone", false},
		{"Two Weak Fire", "replica toy collection", true},
		{"Clean Text", "antique wooden cabinet", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := MatchExclusions(tt.text, false)
			if got := ExclusionThresholdMet(matches); got != tt.want {
				t.Errorf("ExclusionThresholdMet(%q) = %v, want %v (matches %+v)", tt.text, got, tt.want, matches)
			}
		})
	}
}

func TestSpeciesPriorityMultiplier(t *testing.T) {
	matches := MatchSpecies("genuine elephant ivory for sale")
	if len(matches) == 0 {
		t.Fatal("Expected an elephant ivory match")
	}
	m := matches[0]
	if m.Priority != PriorityCritical {
		t.Errorf("Priority = %v, want critical", m.Priority)
	}
	// Base weight 10 x critical multiplier 3.
	if m.Weight != 30 {
		t.Errorf("Weight = %d, want 30", m.Weight)
	}
}

func TestAgeConcernDetection(t *testing.T) {
	matches := MatchHumanTrafficking("very young, new in town")
	if !HasAgeConcern(matches) {
		t.Errorf("Expected an age-concern match")
	}
	if !HasAgeConcern(MatchHumanTrafficking("barely legal")) {
		t.Errorf("Expected age concern for coded age phrase")
	}
	if HasAgeConcern(MatchHumanTrafficking("licensed massage, incall only")) {
		t.Errorf("Coded language alone must not count as age concern")
	}
}
