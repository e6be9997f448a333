package scoring

import (
	"fmt"
	"strings"

	"github.com/sentryowl/marketwatch-engine/internal/rules"
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// Threat Scorer
//
// Composites every rule-table signal into a single threat assessment for
// a normalized listing. The pipeline is a fixed stage order:
//
//	1. exclusion pre-check        6. context modifiers
//	2. category detection         7. price analysis
//	3. species/product scoring    8. platform risk multiplier
//	4. trafficking patterns       9. aggregation + clamp
//	5. HT indicator scoring      10. level assignment + overrides
//	                             11. confidence
//
// Scoring is a pure function of (listing, domain): no clock, no hidden
// state, deterministic for identical inputs. The scorer never fails —
// any input produces an assessment.
//
// Threat level bands: <25 SAFE, 25-44 LOW, 45-64 MEDIUM, 65-79 HIGH,
// >=80 CRITICAL. Overrides only raise levels, never lower them.

// platformRiskMultiplier reflects each platform's historical base-rate of
// trafficking listings. Bounded to [0.8, 1.3].
var platformRiskMultiplier = map[models.Platform]float64{
	models.PlatformEbay:         1.0,
	models.PlatformCraigslist:   1.2,
	models.PlatformOLX:          1.1,
	models.PlatformMarktplaats:  0.9,
	models.PlatformMercadoLibre: 1.0,
	models.PlatformGumtree:      1.0,
	models.PlatformAvito:        1.2,
	models.PlatformAliExpress:   1.3,
	models.PlatformTaobao:       1.3,
	models.PlatformMercari:      0.8,
}

// Score produces the threat assessment for a normalized listing under the
// given scan domain.
func Score(l models.Listing, domain models.ThreatDomain) models.ThreatAssessment {
	text := strings.ToLower(l.Title + " " + l.Description)

	// ─── Stage 1: exclusion pre-check ────────────────────────────────
	exclusions := rules.MatchExclusions(text, domain == models.DomainHumanTrafficking)
	exclusionWeight := 0
	if rules.ExclusionThresholdMet(exclusions) {
		for _, m := range exclusions {
			exclusionWeight += m.Weight
		}
	}

	// ─── Stage 2: category detection ─────────────────────────────────
	speciesMatches := rules.MatchSpecies(text)
	htMatches := rules.MatchHumanTrafficking(text)

	var category models.ThreatCategory
	switch {
	case len(speciesMatches) > 0 && len(htMatches) > 0:
		category = models.CategoryBoth
	case len(speciesMatches) > 0:
		category = models.CategoryWildlife
	case len(htMatches) > 0:
		category = models.CategoryHuman
	default:
		category = models.CategorySafe
	}

	weight := 0
	var indicators []string
	categories := make(map[string]bool)

	// ─── Stage 3: species/product scoring (wildlife path) ────────────
	criticalSpecies := false
	if len(speciesMatches) > 0 {
		for _, m := range speciesMatches {
			weight += m.Weight
			indicators = append(indicators, m.Tag)
			categories["species"] = true
			if m.Priority == rules.PriorityCritical {
				criticalSpecies = true
			}
		}
		for _, m := range rules.MatchProductTypes(text) {
			weight += m.Weight
			indicators = append(indicators, m.Tag)
			categories["product"] = true
		}
	}

	// ─── Stage 4: trafficking patterns (both paths) ──────────────────
	for _, m := range rules.MatchTraffickingPatterns(text) {
		weight += m.Weight
		indicators = append(indicators, m.Tag)
		categories[m.Category] = true
	}

	// ─── Stage 5: HT indicator scoring ───────────────────────────────
	ageConcern := false
	for _, m := range htMatches {
		weight += m.Weight
		indicators = append(indicators, m.Tag)
		categories[m.Category] = true
	}
	if rules.HasAgeConcern(htMatches) {
		ageConcern = true
	}

	// ─── Stage 6: context modifiers ──────────────────────────────────
	for _, m := range rules.MatchPositiveContext(text) {
		weight -= m.Weight
		indicators = append(indicators, m.Tag)
	}
	for _, m := range rules.MatchNegativeContext(text) {
		weight += m.Weight
		indicators = append(indicators, m.Tag)
		categories["context"] = true
	}

	// ─── Stage 7: price analysis ─────────────────────────────────────
	if l.Price.Parsed && len(speciesMatches) > 0 {
		switch {
		case l.Price.Amount > 0 && l.Price.Amount < 50:
			// Implausibly cheap for a genuine restricted product; common
			// bait pattern on high-risk platforms.
			weight += 4
			indicators = append(indicators, "price:implausibly-low")
		case l.Price.Amount > 1000 && criticalSpecies:
			weight += 5
			indicators = append(indicators, "price:high-value-critical")
		}
	}

	// ─── Stages 8-9: platform multiplier, aggregation, clamp ─────────
	mult, ok := platformRiskMultiplier[l.Platform]
	if !ok {
		mult = 1.0
	}
	raw := int(float64(weight)*mult) - exclusionWeight
	if raw > 100 {
		raw = 100
	}
	if raw < 0 {
		raw = 0
	}

	// ─── Stage 10: level assignment + category overrides ─────────────
	level := levelForScore(raw)
	review := false

	if criticalSpecies {
		level = models.MaxLevel(level, models.LevelHigh)
	}
	if ageConcern {
		level = models.MaxLevel(level, models.LevelHigh)
		review = true
	}
	if category == models.CategoryHuman || category == models.CategoryBoth {
		review = true
	}

	// Exclusion safety: sufficient exclusion weight with no offsetting
	// indicators forces SAFE. A category match is the offset.
	if exclusionWeight >= 2 && category == models.CategorySafe {
		level = models.LevelSafe
		raw = 0
	}

	// ─── Stage 11: confidence ────────────────────────────────────────
	confidence := 0.5 + 0.1*float64(len(categories)) - 0.1*float64(exclusionWeight)
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0.0 {
		confidence = 0.0
	}

	// Low confidence on an actionable level needs a human in the loop.
	if confidence < 0.6 && (level == models.LevelHigh || level == models.LevelCritical) {
		review = true
	}

	return models.ThreatAssessment{
		Score:           raw,
		Level:           level,
		Category:        category,
		RequiresReview:  review,
		Confidence:      confidence,
		Reasoning:       buildReasoning(category, level, raw, exclusionWeight, criticalSpecies, ageConcern, indicators),
		Indicators:      indicators,
		ExclusionWeight: exclusionWeight,
	}
}

func levelForScore(score int) models.ThreatLevel {
	switch {
	case score < 25:
		return models.LevelSafe
	case score < 45:
		return models.LevelLow
	case score < 65:
		return models.LevelMedium
	case score < 80:
		return models.LevelHigh
	default:
		return models.LevelCritical
	}
}

// buildReasoning creates the human-readable enhancement note stored with
// the detection.
func buildReasoning(category models.ThreatCategory, level models.ThreatLevel, score, exclusionWeight int,
	criticalSpecies, ageConcern bool, indicators []string) string {

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s score=%d", category, level, score)
	if criticalSpecies {
		sb.WriteString("; critical species match forces level>=HIGH")
	}
	if ageConcern {
		sb.WriteString("; age-concern indicator forces review")
	}
	if exclusionWeight > 0 {
		fmt.Fprintf(&sb, "; exclusion_weight=%d", exclusionWeight)
	}
	if len(indicators) > 0 {
		max := len(indicators)
		if max > 12 {
			max = 12
		}
		sb.WriteString("; indicators: ")
		sb.WriteString(strings.Join(indicators[:max], ", "))
	}
	return sb.String()
}
