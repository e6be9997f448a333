package scanners

import (
	"strings"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// parseMercari reads the rendered search grid. Mercari is client-rendered,
// so this only sees useful markup through the headless path; cells are
// anchors whose data-testid starts with ProductThumb or ItemContainer.
func parseMercari(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	cells := findAll(doc, func(n *nodeT) bool {
		tid := attr(n, "data-testid")
		return n.Data == "a" && (strings.HasPrefix(tid, "ProductThumb") || tid == "ItemContainer")
	})
	if len(cells) == 0 {
		// Fallback: any product detail link in the grid.
		cells = findAll(doc, func(n *nodeT) bool {
			return n.Data == "a" && strings.HasPrefix(attr(n, "href"), "/item/")
		})
	}

	for _, cell := range cells {
		l := models.Listing{
			PlatformID: strings.TrimPrefix(attr(cell, "href"), "/item/"),
			URL:        attr(cell, "href"),
			Title:      attr(cell, "aria-label"),
		}
		if l.Title == "" {
			if t := findFirst(cell, func(n *nodeT) bool {
				return attr(n, "data-testid") == "ItemName"
			}); t != nil {
				l.Title = innerText(t)
			}
		}
		if p := findFirst(cell, func(n *nodeT) bool {
			return attr(n, "data-testid") == "ItemPrice"
		}); p != nil {
			l.Price = models.Price{Raw: innerText(p)}
		}
		if img := findFirst(cell, byTag("img")); img != nil {
			l.ImageURL = attr(img, "src")
			if l.Title == "" {
				l.Title = attr(img, "alt")
			}
		}
		out = append(out, l)
	}
	return out
}
