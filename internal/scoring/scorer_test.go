package scoring

import (
	"reflect"
	"testing"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

func wildlifeListing(platform models.Platform, title, desc string) models.Listing {
	return models.Listing{
		Platform:    platform,
		Title:       title,
		Description: desc,
		URL:         "https://example.com/item/1",
	}
}

func TestScoreCriticalSpeciesStacking(t *testing.T) {
	// Two critical species terms (30 each after the x3 multiplier), raw
	// product form, smuggling origin and no-paperwork authenticity stack
	// well past the clamp on a 1.2x platform.
	l := wildlifeListing(models.PlatformCraigslist,
		"Raw elephant ivory tusk pair",
		"smuggled from africa, no paperwork, discreet, 100% real")

	a := Score(l, models.DomainWildlife)

	if a.Category != models.CategoryWildlife {
		t.Fatalf("Category = %s, want WILDLIFE", a.Category)
	}
	if a.Score != 100 {
		t.Errorf("Expected the clamp to cap the score at 100, got %d", a.Score)
	}
	if a.Level != models.LevelCritical {
		t.Errorf("Level = %s, want CRITICAL", a.Level)
	}
	if len(a.Indicators) == 0 {
		t.Errorf("Expected indicator trail for a heavy match")
	}
}

func TestScoreCriticalSpeciesForcesHighFloor(t *testing.T) {
	// A lone critical species mention with nothing else scores below the
	// HIGH band numerically; the category override must lift it.
	l := wildlifeListing(models.PlatformMercari, "pangolin", "")

	a := Score(l, models.DomainWildlife)

	// pangolin: base 8 x3 = 24; mercari multiplier 0.8 -> 19.
	if a.Score >= 65 {
		t.Fatalf("Numeric score unexpectedly in HIGH band already: %d", a.Score)
	}
	if a.Level != models.LevelHigh {
		t.Errorf("Critical species must force level >= HIGH, got %s", a.Level)
	}
}

func TestScoreExclusionForcesSafe(t *testing.T) {
	// "ivory colored" is a strong exclusion; "toy" and "for kids" add
	// more. No species term matches, so the listing must be SAFE with a
	// zeroed score.
	l := wildlifeListing(models.PlatformEbay,
		"Ivory colored plastic elephant toy",
		"great gift for kids")

	a := Score(l, models.DomainWildlife)

	if a.Category != models.CategorySafe {
		t.Fatalf("Category = %s, want SAFE", a.Category)
	}
	if a.Level != models.LevelSafe || a.Score != 0 {
		t.Errorf("Excluded listing must score SAFE/0, got %s/%d", a.Level, a.Score)
	}
	if a.ExclusionWeight < 2 {
		t.Errorf("ExclusionWeight = %d, want >= 2", a.ExclusionWeight)
	}
	if a.Confidence >= 0.5 {
		t.Errorf("Exclusions must depress confidence below the 0.5 base, got %v", a.Confidence)
	}
}

func TestScoreAgeConcernForcesReview(t *testing.T) {
	l := models.Listing{
		Platform:    models.PlatformCraigslist,
		Title:       "Young girls new in town",
		Description: "available 24/7, cash only",
		URL:         "https://example.com/item/2",
	}

	a := Score(l, models.DomainHumanTrafficking)

	if a.Category != models.CategoryHuman {
		t.Fatalf("Category = %s, want HUMAN_TRAFFICKING", a.Category)
	}
	if a.Level != models.LevelHigh && a.Level != models.LevelCritical {
		t.Errorf("Age-concern indicator must force level >= HIGH, got %s", a.Level)
	}
	if !a.RequiresReview {
		t.Errorf("Age concern must set RequiresReview")
	}
}

func TestScoreLicensedServiceExcluded(t *testing.T) {
	// Licensed-service exclusions apply only on the HT path and should
	// clear an otherwise borderline massage listing.
	l := models.Listing{
		Platform:    models.PlatformCraigslist,
		Title:       "Sports massage clinic, licensed massage therapist",
		Description: "state certified, license # 48210",
		URL:         "https://example.com/item/3",
	}

	a := Score(l, models.DomainHumanTrafficking)

	if a.Category != models.CategorySafe {
		t.Fatalf("Category = %s, want SAFE", a.Category)
	}
	if a.Level != models.LevelSafe {
		t.Errorf("Licensed service should score SAFE, got %s (score %d)", a.Level, a.Score)
	}
}

func TestScorePositiveContextReducesScore(t *testing.T) {
	with := wildlifeListing(models.PlatformEbay,
		"Antique carved ivory tusk netsuke", "cites certificate and documented provenance included")
	without := wildlifeListing(models.PlatformEbay,
		"Antique carved ivory tusk netsuke", "")

	a := Score(with, models.DomainWildlife)
	b := Score(without, models.DomainWildlife)

	if a.Score >= b.Score {
		t.Errorf("CITES paperwork should lower the score: with=%d without=%d", a.Score, b.Score)
	}
}

func TestScoreDeterministic(t *testing.T) {
	l := wildlifeListing(models.PlatformAliExpress,
		"Real rhino horn powder, discreet shipping",
		"no questions asked, direct from asia")

	first := Score(l, models.DomainWildlife)
	for i := 0; i < 5; i++ {
		again := Score(l, models.DomainWildlife)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Score is not deterministic: run %d differs", i)
		}
	}
}

func TestScoreNeutralListingIsSafe(t *testing.T) {
	l := wildlifeListing(models.PlatformEbay, "Vintage oak coffee table", "solid wood, good condition")

	a := Score(l, models.DomainWildlife)

	if a.Level != models.LevelSafe || a.Category != models.CategorySafe {
		t.Errorf("Neutral listing scored %s/%s (score %d), want SAFE/SAFE",
			a.Level, a.Category, a.Score)
	}
}

func TestPlatformMultiplierBounds(t *testing.T) {
	for _, p := range models.AllPlatforms() {
		mult, ok := platformRiskMultiplier[p]
		if !ok {
			t.Errorf("Platform %s missing a risk multiplier", p)
			continue
		}
		if mult < 0.8 || mult > 1.3 {
			t.Errorf("Platform %s multiplier %v outside [0.8, 1.3]", p, mult)
		}
	}
}

func TestLevelBands(t *testing.T) {
	tests := []struct {
		score int
		want  models.ThreatLevel
	}{
		{0, models.LevelSafe},
		{24, models.LevelSafe},
		{25, models.LevelLow},
		{44, models.LevelLow},
		{45, models.LevelMedium},
		{64, models.LevelMedium},
		{65, models.LevelHigh},
		{79, models.LevelHigh},
		{80, models.LevelCritical},
		{100, models.LevelCritical},
	}
	for _, tt := range tests {
		if got := levelForScore(tt.score); got != tt.want {
			t.Errorf("levelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
