package rules

import "strings"

// Indicator tables for the scorer's trafficking-pattern and HT stages.
// Each table is a set of pattern -> (weight, tag) pairs matched as
// lowercase substrings.

// IndicatorTerm is one weighted vocabulary entry.
type IndicatorTerm struct {
	Term   string
	Weight int
	Tag    string
}

// IndicatorMatch is a fired indicator.
type IndicatorMatch struct {
	Tag      string
	Category string
	Weight   int
}

// ─── Trafficking-pattern vocabulary (both domains) ──────────────────

var discretionTerms = []IndicatorTerm{
	{"discreet", 4, "discretion:discreet"},
	{"discrete shipping", 5, "discretion:shipping"},
	{"private buyer only", 5, "discretion:private-buyer"},
	{"serious buyers only", 3, "discretion:serious-buyers"},
	{"no questions asked", 6, "discretion:no-questions"},
	{"pm for details", 3, "discretion:pm-only"},
	{"text only", 2, "discretion:text-only"},
	{"ask for photos", 2, "discretion:hidden-photos"},
}

var urgencyTerms = []IndicatorTerm{
	{"must sell today", 4, "urgency:today"},
	{"quick sale", 3, "urgency:quick"},
	{"leaving country", 4, "urgency:leaving"},
	{"urgent sale", 3, "urgency:urgent"},
	{"first come first served", 2, "urgency:fcfs"},
	{"tonight only", 4, "urgency:tonight"},
}

var authenticityTerms = []IndicatorTerm{
	{"100% real", 5, "authenticity:100-real"},
	{"100% genuine", 5, "authenticity:100-genuine"},
	{"guaranteed authentic", 4, "authenticity:guaranteed"},
	{"real deal", 3, "authenticity:real-deal"},
	{"not a replica", 5, "authenticity:not-replica"},
	{"certificate not available", 4, "authenticity:no-cert"},
	{"no paperwork", 5, "authenticity:no-paperwork"},
	{"estate sale", 2, "authenticity:estate"},
	{"grandfather's collection", 3, "authenticity:inherited"},
	{"pre-ban", 5, "authenticity:pre-ban"},
	{"pre-1947", 4, "authenticity:pre-ban"},
}

var originTerms = []IndicatorTerm{
	{"from africa", 4, "origin:africa"},
	{"african origin", 4, "origin:africa"},
	{"direct from asia", 4, "origin:asia"},
	{"from vietnam", 3, "origin:vietnam"},
	{"from laos", 3, "origin:laos"},
	{"from myanmar", 3, "origin:myanmar"},
	{"from congo", 3, "origin:congo"},
	{"from indonesia", 2, "origin:indonesia"},
	{"smuggled", 8, "origin:smuggled"},
	{"customs cleared", 5, "origin:customs"},
	{"straight from the bush", 5, "origin:bush"},
}

// ─── Human-trafficking indicator categories ─────────────────────────
//
// Four categories: age-concern, control-pattern, financial-exploitation
// and coded-language. Any age-concern match alone forces human review
// and a HIGH threat floor in the scorer.

var ageConcernTerms = []IndicatorTerm{
	{"young", 5, "age:young"},
	{"very young", 8, "age:very-young"},
	{"barely legal", 10, "age:barely-legal"},
	{"just turned 18", 9, "age:just-18"},
	{"looks younger", 9, "age:looks-younger"},
	{"school girl", 9, "age:school"},
	{"teen", 7, "age:teen"},
	{"petite new", 5, "age:petite-new"},
	{"fresh", 4, "age:fresh"},
	{"innocent", 5, "age:innocent"},
}

var controlPatternTerms = []IndicatorTerm{
	{"new in town", 5, "control:new-in-town"},
	{"just arrived", 5, "control:just-arrived"},
	{"available 24/7", 6, "control:24-7"},
	{"24/7", 4, "control:24-7"},
	{"no days off", 6, "control:no-days-off"},
	{"housing provided", 6, "control:housing"},
	{"lives on site", 5, "control:on-site"},
	{"manager handles calls", 7, "control:manager"},
	{"passport held", 10, "control:passport"},
	{"cannot leave", 10, "control:restricted"},
	{"escorted at all times", 8, "control:escorted"},
	{"different girls daily", 7, "control:rotation"},
	{"new girls every week", 8, "control:rotation"},
}

var financialTerms = []IndicatorTerm{
	{"cash only", 4, "financial:cash-only"},
	{"no experience necessary", 4, "financial:no-experience"},
	{"debt paid", 7, "financial:debt"},
	{"work off", 6, "financial:work-off"},
	{"paid daily", 4, "financial:paid-daily"},
	{"travel paid", 5, "financial:travel-paid"},
	{"visa arranged", 6, "financial:visa-arranged"},
	{"no id required", 7, "financial:no-id"},
	{"earn big money fast", 4, "financial:big-money"},
}

var codedLanguageTerms = []IndicatorTerm{
	{"full service", 6, "coded:full-service"},
	{"gfe", 5, "coded:gfe"},
	{"incall", 4, "coded:incall"},
	{"outcall", 3, "coded:outcall"},
	{"roses per hour", 6, "coded:roses"},
	{"donation", 4, "coded:donation"},
	{"companionship", 3, "coded:companionship"},
	{"open minded", 4, "coded:open-minded"},
	{"no rush service", 4, "coded:no-rush"},
	{"menu of services", 5, "coded:menu"},
	{"fresh faces", 6, "coded:fresh-faces"},
	{"new arrivals", 5, "coded:new-arrivals"},
	{"choose your girl", 8, "coded:choose"},
}

// ─── Context modifiers ──────────────────────────────────────────────
//
// Positive context subtracts weight; negative context adds it.

var positiveContextTerms = []IndicatorTerm{
	{"licensed therapist", 6, "context:licensed-therapist"},
	{"cites certificate", 8, "context:cites"},
	{"cites permit", 8, "context:cites"},
	{"article 10 certificate", 7, "context:cites"},
	{"museum deaccession", 5, "context:museum"},
	{"documented provenance", 5, "context:provenance"},
	{"appraisal included", 3, "context:appraisal"},
	{"antique dealer", 2, "context:dealer"},
	{"registered charity", 4, "context:charity"},
}

var negativeContextTerms = []IndicatorTerm{
	{"no paperwork", 5, "context:no-paperwork"},
	{"cash only + housing provided", 8, "context:cash-housing"},
	{"dont ask", 5, "context:dont-ask"},
	{"don't ask", 5, "context:dont-ask"},
	{"off the books", 6, "context:off-books"},
	{"will not ship to usa", 4, "context:ship-evasion"},
	{"mislabeled shipping", 8, "context:mislabel"},
	{"ships as bone", 7, "context:mislabel"},
}

func matchTerms(text string, terms []IndicatorTerm, category string) []IndicatorMatch {
	var out []IndicatorMatch
	for _, t := range terms {
		if strings.Contains(text, t.Term) {
			out = append(out, IndicatorMatch{Tag: t.Tag, Category: category, Weight: t.Weight})
		}
	}
	return out
}

// MatchTraffickingPatterns fires the shared discretion/urgency/
// authenticity/origin vocabulary (stage 4 of the scorer).
func MatchTraffickingPatterns(text string) []IndicatorMatch {
	var out []IndicatorMatch
	out = append(out, matchTerms(text, discretionTerms, "discretion")...)
	out = append(out, matchTerms(text, urgencyTerms, "urgency")...)
	out = append(out, matchTerms(text, authenticityTerms, "authenticity")...)
	out = append(out, matchTerms(text, originTerms, "origin")...)
	return out
}

// MatchHumanTrafficking fires the four HT indicator categories.
func MatchHumanTrafficking(text string) []IndicatorMatch {
	var out []IndicatorMatch
	out = append(out, matchTerms(text, ageConcernTerms, "age")...)
	out = append(out, matchTerms(text, controlPatternTerms, "control")...)
	out = append(out, matchTerms(text, financialTerms, "financial")...)
	out = append(out, matchTerms(text, codedLanguageTerms, "coded")...)
	return out
}

// MatchPositiveContext returns weight to subtract from the raw score.
func MatchPositiveContext(text string) []IndicatorMatch {
	return matchTerms(text, positiveContextTerms, "positive-context")
}

// MatchNegativeContext returns weight to add to the raw score.
func MatchNegativeContext(text string) []IndicatorMatch {
	return matchTerms(text, negativeContextTerms, "negative-context")
}

// HasAgeConcern reports whether any age-concern indicator fired.
func HasAgeConcern(matches []IndicatorMatch) bool {
	for _, m := range matches {
		if m.Category == "age" {
			return true
		}
	}
	return false
}
