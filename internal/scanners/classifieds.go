package scanners

import (
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// Parse functions for the western classified platforms. Each is pure over
// one response body; fixtures in classifieds_test.go pin the selectors.

// parseCraigslist handles the static search results craigslist serves to
// non-JS clients (li.cl-static-search-result rows).
func parseCraigslist(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	for _, item := range findAll(doc, byClass("li", "cl-static-search-result")) {
		l := models.Listing{
			Title: attr(item, "title"),
			URL:   firstLink(item),
		}
		if l.Title == "" {
			if t := findFirst(item, byClass("div", "title")); t != nil {
				l.Title = innerText(t)
			}
		}
		if p := findFirst(item, byClass("div", "price")); p != nil {
			l.Price = models.Price{Raw: innerText(p)}
		}
		if loc := findFirst(item, byClass("div", "location")); loc != nil {
			l.Location = innerText(loc)
		}
		out = append(out, l)
	}
	return out
}

// parseOLX reads OLX's server-rendered listing cards (data-cy="l-card").
func parseOLX(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	cards := findAll(doc, func(n *nodeT) bool {
		return n.Data == "div" && attr(n, "data-cy") == "l-card"
	})
	for _, card := range cards {
		l := models.Listing{
			PlatformID: attr(card, "id"),
			URL:        firstLink(card),
		}
		if h := findFirst(card, byTag("h6")); h != nil {
			l.Title = innerText(h)
		} else if h4 := findFirst(card, byTag("h4")); h4 != nil {
			l.Title = innerText(h4)
		}
		if p := findFirst(card, func(n *nodeT) bool {
			return n.Data == "p" && attr(n, "data-testid") == "ad-price"
		}); p != nil {
			l.Price = models.Price{Raw: innerText(p)}
		}
		if loc := findFirst(card, func(n *nodeT) bool {
			return n.Data == "p" && attr(n, "data-testid") == "location-date"
		}); loc != nil {
			l.Location = innerText(loc)
		}
		out = append(out, l)
	}
	return out
}

// parseMarktplaats reads hz-Listing cards.
func parseMarktplaats(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	for _, item := range findAll(doc, byClass("li", "hz-Listing")) {
		l := models.Listing{URL: firstLink(item)}
		if t := findFirst(item, byClass("h3", "hz-Listing-title")); t != nil {
			l.Title = innerText(t)
		}
		if d := findFirst(item, byClass("p", "hz-Listing-description")); d != nil {
			l.Description = innerText(d)
		}
		if p := findFirst(item, byClass("span", "hz-Listing-price")); p != nil {
			l.Price = models.Price{Raw: innerText(p)}
		}
		if loc := findFirst(item, byClass("span", "hz-Listing-location")); loc != nil {
			l.Location = innerText(loc)
		}
		out = append(out, l)
	}
	return out
}

// parseMercadoLibre reads ui-search result cards.
func parseMercadoLibre(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	for _, item := range findAll(doc, byClass("li", "ui-search-layout__item")) {
		link := findFirst(item, byClass("a", "ui-search-link"))
		if link == nil {
			link = findFirst(item, byTag("a"))
		}
		if link == nil {
			continue
		}
		l := models.Listing{URL: attr(link, "href")}
		if t := findFirst(item, byClass("h2", "ui-search-item__title")); t != nil {
			l.Title = innerText(t)
		} else if t2 := findFirst(item, byClass("", "poly-component__title")); t2 != nil {
			l.Title = innerText(t2)
		}
		if amount := findFirst(item, byClass("span", "andes-money-amount__fraction")); amount != nil {
			cur := findFirst(item, byClass("span", "andes-money-amount__currency-symbol"))
			raw := innerText(amount)
			if cur != nil {
				raw = innerText(cur) + raw
			}
			l.Price = models.Price{Raw: raw}
		}
		if loc := findFirst(item, byClass("span", "ui-search-item__location")); loc != nil {
			l.Location = innerText(loc)
		}
		out = append(out, l)
	}
	return out
}

// parseGumtree reads article.listing-maxi result cards.
func parseGumtree(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	for _, item := range findAll(doc, func(n *nodeT) bool {
		return n.Data == "article" && (hasClass(n, "listing-maxi") || attr(n, "data-q") == "search-result")
	}) {
		l := models.Listing{URL: firstLink(item)}
		if t := findFirst(item, byClass("", "listing-title")); t != nil {
			l.Title = innerText(t)
		} else if h2 := findFirst(item, byTag("h2")); h2 != nil {
			l.Title = innerText(h2)
		}
		if d := findFirst(item, byClass("", "listing-description")); d != nil {
			l.Description = innerText(d)
		}
		if p := findFirst(item, byClass("", "listing-price")); p != nil {
			l.Price = models.Price{Raw: innerText(p)}
		}
		if loc := findFirst(item, byClass("", "listing-location")); loc != nil {
			l.Location = innerText(loc)
		}
		out = append(out, l)
	}
	return out
}

// parseAvito reads data-marker="item" blocks.
func parseAvito(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	for _, item := range findAll(doc, func(n *nodeT) bool {
		return attr(n, "data-marker") == "item"
	}) {
		l := models.Listing{PlatformID: attr(item, "data-item-id")}
		if link := findFirst(item, func(n *nodeT) bool {
			return n.Data == "a" && attr(n, "itemprop") == "url"
		}); link != nil {
			l.URL = attr(link, "href")
			l.Title = attr(link, "title")
		} else {
			l.URL = firstLink(item)
		}
		if l.Title == "" {
			if h3 := findFirst(item, byTag("h3")); h3 != nil {
				l.Title = innerText(h3)
			}
		}
		if p := findFirst(item, func(n *nodeT) bool {
			return attr(n, "data-marker") == "item-price"
		}); p != nil {
			l.Price = models.Price{Raw: innerText(p)}
		}
		if d := findFirst(item, func(n *nodeT) bool {
			return attr(n, "data-marker") == "item-specific-params"
		}); d != nil {
			l.Description = innerText(d)
		}
		out = append(out, l)
	}
	return out
}
