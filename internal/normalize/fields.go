package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

var interiorWS = regexp.MustCompile(`\s+`)

// CleanText trims and collapses interior whitespace. Invalid UTF-8 is coerced
// to the replacement character so the scorer never sees raw bytes.
func CleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return interiorWS.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Fields normalizes a raw listing in place: whitespace hygiene on the text
// fields, price parsing, and URL canonicalization against the platform base.
func Fields(l models.Listing, baseURL string) models.Listing {
	l.Title = CleanText(l.Title)
	l.Description = CleanText(l.Description)
	l.Location = CleanText(l.Location)
	if !l.Price.Parsed {
		l.Price = ParsePrice(l.Price.Raw)
	}
	if l.URL != "" {
		l.URL = Canonicalize(l.URL, baseURL)
	}
	return l
}
