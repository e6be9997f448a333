package rules

import "regexp"

// Exclusion vocabulary — patterns identifying obvious false positives.
// A "strong" match alone clears the exclusion threshold; two normal
// matches are needed otherwise. The cumulative weight is subtracted from
// the raw threat score, and a listing excluded with no offsetting
// indicators scores SAFE and is never persisted.

// ExclusionRule pairs a compiled pattern with its weight and tag.
type ExclusionRule struct {
	Pattern *regexp.Regexp
	Weight  int
	Strong  bool
	Tag     string
}

var exclusionRules = []ExclusionRule{
	// Color/material modifiers: "ivory colored", "ivory white dress" etc.
	{regexp.MustCompile(`ivory[\s-]*(color|colored|colour|coloured|white|cream|tone|toned)`), 2, true, "excl:color-modifier"},
	{regexp.MustCompile(`(color|colour|shade|tone)[\s:]*ivory`), 2, true, "excl:color-modifier"},
	{regexp.MustCompile(`faux\s+(ivory|fur|leather|tortoise)`), 2, true, "excl:faux"},
	{regexp.MustCompile(`(imitation|synthetic|artificial|fake)\s+(ivory|fur|horn|bone|coral|tortoiseshell)`), 2, true, "excl:imitation"},
	{regexp.MustCompile(`resin|celluloid|bakelite|french ivory|ivorine|ivoride`), 1, false, "excl:material"},
	{regexp.MustCompile(`vegetable ivory|tagua`), 2, true, "excl:tagua"},

	// Product-kind modifiers: toys, replicas, costumes, prints.
	{regexp.MustCompile(`\b(toy|toys|plush|stuffed animal|teddy)\b`), 1, false, "excl:toy"},
	{regexp.MustCompile(`\b(replica|reproduction|repro)\b`), 1, false, "excl:replica"},
	{regexp.MustCompile(`\b(costume|cosplay|halloween|fancy dress)\b`), 1, false, "excl:costume"},
	{regexp.MustCompile(`\b(statue|figur(e|ine)?)\s+(resin|plastic|ceramic|porcelain)`), 1, false, "excl:material-figure"},
	{regexp.MustCompile(`(elephant|tiger|lion|rhino|leopard|eagle|wolf|bear|shark|turtle)[\s\w]{0,20}\b(print|poster|painting|canvas|wall art|t-?shirt|mug|sticker)\b`), 2, true, "excl:print"},
	{regexp.MustCompile(`\b(print|poster|painting|photo(graph)?)\b[\s\w]{0,20}(elephant|tiger|lion|rhino|leopard|eagle|wolf|bear|shark|turtle)`), 2, true, "excl:print"},
	{regexp.MustCompile(`\b(book|dvd|documentary|magazine)\b`), 1, false, "excl:media"},
	{regexp.MustCompile(`\bchild safe\b|\bfor kids\b|\bages? \d+\+`), 1, false, "excl:children"},

	// Brand names that collide with species vocabulary.
	{regexp.MustCompile(`ivory soap|ivory coast jersey|ivory ella`), 2, true, "excl:brand"},
	{regexp.MustCompile(`tiger balm|tiger beer|onitsuka tiger|tiger of sweden`), 2, true, "excl:brand"},
	{regexp.MustCompile(`puma |reebok|jaguar (car|xe|xf|xj|f-type)`), 2, true, "excl:brand"},
	{regexp.MustCompile(`piano key|keyboard keys`), 1, false, "excl:piano"},
}

// licensedServiceExclusions reduce HT false positives on legitimate,
// regulated service listings.
var licensedServiceExclusions = []ExclusionRule{
	{regexp.MustCompile(`licensed (massage )?therapist`), 2, true, "excl:licensed"},
	{regexp.MustCompile(`state (licensed|certified)`), 2, true, "excl:licensed"},
	{regexp.MustCompile(`lmt\b|license #?\s*\d+`), 1, false, "excl:license-number"},
	{regexp.MustCompile(`physical therapy|chiropractic|sports massage clinic`), 1, false, "excl:clinical"},
	{regexp.MustCompile(`background check required`), 1, false, "excl:vetting"},
}

// ExclusionMatch is one fired exclusion with its weight.
type ExclusionMatch struct {
	Tag    string
	Weight int
	Strong bool
}

// MatchExclusions runs the exclusion vocabulary against lowercase text.
// domain-specific licensed-service rules are included only for HT scans
// by the caller passing includeLicensed.
func MatchExclusions(text string, includeLicensed bool) []ExclusionMatch {
	var out []ExclusionMatch
	for _, r := range exclusionRules {
		if r.Pattern.MatchString(text) {
			out = append(out, ExclusionMatch{Tag: r.Tag, Weight: r.Weight, Strong: r.Strong})
		}
	}
	if includeLicensed {
		for _, r := range licensedServiceExclusions {
			if r.Pattern.MatchString(text) {
				out = append(out, ExclusionMatch{Tag: r.Tag, Weight: r.Weight, Strong: r.Strong})
			}
		}
	}
	return out
}

// ExclusionThresholdMet reports whether the matches clear the firing
// threshold: one strong match, or two matches of any kind.
func ExclusionThresholdMet(matches []ExclusionMatch) bool {
	if len(matches) >= 2 {
		return true
	}
	for _, m := range matches {
		if m.Strong {
			return true
		}
	}
	return false
}
