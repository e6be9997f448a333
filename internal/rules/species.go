package rules

import "strings"

// Species priority tiers. The scorer multiplies the base weight:
// CRITICAL x3, HIGH x2, MEDIUM x1. A CRITICAL match also forces the
// final threat level to at least HIGH regardless of the numeric score.
type SpeciesPriority int

const (
	PriorityMedium SpeciesPriority = iota
	PriorityHigh
	PriorityCritical
)

// SpeciesTerm is one entry in the species/product table.
type SpeciesTerm struct {
	Term     string
	Priority SpeciesPriority
	Weight   int // base weight before the priority multiplier
	Tag      string
}

// criticalSpecies covers CITES Appendix I flagship products. Terms are
// matched as lowercase substrings of title+description.
var criticalSpecies = []SpeciesTerm{
	{"elephant ivory", PriorityCritical, 10, "species:elephant"},
	{"ivory tusk", PriorityCritical, 10, "species:elephant"},
	{"rhino horn", PriorityCritical, 10, "species:rhino"},
	{"rhinoceros horn", PriorityCritical, 10, "species:rhino"},
	{"tiger bone", PriorityCritical, 10, "species:tiger"},
	{"tiger skin", PriorityCritical, 9, "species:tiger"},
	{"tiger pelt", PriorityCritical, 9, "species:tiger"},
	{"pangolin scale", PriorityCritical, 10, "species:pangolin"},
	{"pangolin", PriorityCritical, 8, "species:pangolin"},
	{"bear bile", PriorityCritical, 9, "species:bear"},
	{"bear gall", PriorityCritical, 9, "species:bear"},
	{"totoaba", PriorityCritical, 9, "species:totoaba"},
	{"hawksbill", PriorityCritical, 8, "species:turtle"},
	{"helmeted hornbill", PriorityCritical, 8, "species:hornbill"},
	{"shahtoosh", PriorityCritical, 8, "species:antelope"},
	{"snow leopard", PriorityCritical, 8, "species:leopard"},

	{"leopard skin", PriorityHigh, 7, "species:leopard"},
	{"lion bone", PriorityHigh, 7, "species:lion"},
	{"cheetah", PriorityHigh, 6, "species:cheetah"},
	{"shark fin", PriorityHigh, 6, "species:shark"},
	{"turtle shell", PriorityHigh, 5, "species:turtle"},
	{"tortoiseshell", PriorityHigh, 5, "species:turtle"},
	{"seahorse", PriorityHigh, 4, "species:seahorse"},
	{"walrus ivory", PriorityHigh, 6, "species:walrus"},
	{"narwhal tusk", PriorityHigh, 6, "species:narwhal"},
	{"saiga horn", PriorityHigh, 6, "species:saiga"},
	{"musk deer", PriorityHigh, 5, "species:musk-deer"},
	{"slow loris", PriorityHigh, 6, "species:loris"},
	{"chimpanzee", PriorityHigh, 6, "species:primate"},
	{"orangutan", PriorityHigh, 6, "species:primate"},

	{"python skin", PriorityMedium, 4, "species:python"},
	{"crocodile skin", PriorityMedium, 4, "species:crocodile"},
	{"coral", PriorityMedium, 2, "species:coral"},
	{"eagle feather", PriorityMedium, 4, "species:eagle"},
	{"falcon", PriorityMedium, 3, "species:falcon"},
	{"parrot egg", PriorityMedium, 4, "species:parrot"},
	{"macaw", PriorityMedium, 3, "species:macaw"},
	{"star tortoise", PriorityMedium, 4, "species:tortoise"},
	{"wolf pelt", PriorityMedium, 3, "species:wolf"},
	{"lynx fur", PriorityMedium, 3, "species:lynx"},
}

// productTypes add weight when a wildlife match co-occurs with a trade
// product form (medicine, jewelry, carving, raw material).
var productTypes = []SpeciesTerm{
	{"carving", PriorityMedium, 3, "product:carving"},
	{"carved", PriorityMedium, 3, "product:carving"},
	{"figurine", PriorityMedium, 3, "product:carving"},
	{"netsuke", PriorityMedium, 3, "product:carving"},
	{"scrimshaw", PriorityMedium, 3, "product:carving"},
	{"bracelet", PriorityMedium, 2, "product:jewelry"},
	{"necklace", PriorityMedium, 2, "product:jewelry"},
	{"pendant", PriorityMedium, 2, "product:jewelry"},
	{"powder", PriorityMedium, 3, "product:medicine"},
	{"medicine", PriorityMedium, 3, "product:medicine"},
	{"tincture", PriorityMedium, 3, "product:medicine"},
	{"wine", PriorityMedium, 2, "product:medicine"},
	{"raw", PriorityMedium, 2, "product:raw"},
	{"uncarved", PriorityMedium, 3, "product:raw"},
	{"whole", PriorityMedium, 1, "product:raw"},
	{"dried", PriorityMedium, 2, "product:raw"},
	{"live", PriorityMedium, 3, "product:live-animal"},
	{"taxidermy", PriorityMedium, 2, "product:taxidermy"},
	{"mounted", PriorityMedium, 1, "product:taxidermy"},
}

// SpeciesMatch is a matched species/product term with its effective weight.
type SpeciesMatch struct {
	Term     string
	Tag      string
	Priority SpeciesPriority
	Weight   int // base weight x priority multiplier
}

// MatchSpecies scans lowercase text for species terms and returns matches
// with the priority multiplier applied.
func MatchSpecies(text string) []SpeciesMatch {
	var out []SpeciesMatch
	for _, st := range criticalSpecies {
		if strings.Contains(text, st.Term) {
			out = append(out, SpeciesMatch{
				Term:     st.Term,
				Tag:      st.Tag,
				Priority: st.Priority,
				Weight:   st.Weight * priorityMultiplier(st.Priority),
			})
		}
	}
	return out
}

// MatchProductTypes scans for product-form terms; no priority multiplier.
func MatchProductTypes(text string) []SpeciesMatch {
	var out []SpeciesMatch
	for _, pt := range productTypes {
		if strings.Contains(text, pt.Term) {
			out = append(out, SpeciesMatch{Term: pt.Term, Tag: pt.Tag, Weight: pt.Weight})
		}
	}
	return out
}

func priorityMultiplier(p SpeciesPriority) int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	default:
		return 1
	}
}
