package scanners

import (
	"strings"
	"testing"
	"time"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

const craigslistFixture = `<html><body><ol>
<li class="cl-static-search-result" title="Carved figurine collection">
  <a href="https://sfbay.craigslist.org/sfc/atq/d/carved-figurine/7712345678.html">
    <div class="title">Carved figurine collection</div>
    <div class="details"><div class="price">$250</div><div class="location">san francisco</div></div>
  </a>
</li>
<li class="cl-static-search-result" title="Antique chess set">
  <a href="https://sfbay.craigslist.org/sfc/atq/d/chess/7712345679.html">
    <div class="title">Antique chess set</div>
    <div class="details"><div class="price">$90</div><div class="location">oakland</div></div>
  </a>
</li>
</ol></body></html>`

func TestParseCraigslist(t *testing.T) {
	cfg := platformConfigs[models.PlatformCraigslist]
	listings := parseCraigslist(craigslistFixture, cfg)

	if len(listings) != 2 {
		t.Fatalf("Expected 2 listings, got %d", len(listings))
	}
	first := listings[0]
	if first.Title != "Carved figurine collection" {
		t.Errorf("Title = %q", first.Title)
	}
	if !strings.Contains(first.URL, "7712345678") {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Price.Raw != "$250" {
		t.Errorf("Price.Raw = %q", first.Price.Raw)
	}
	if first.Location != "san francisco" {
		t.Errorf("Location = %q", first.Location)
	}
}

const ebayFixture = `<html><body><ul class="srp-results">
<li class="s-item">
  <a class="s-item__link" href="https://www.ebay.com/itm/1111?hash=x"></a>
  <div class="s-item__title">Shop on eBay</div>
</li>
<li class="s-item">
  <a class="s-item__link" href="https://www.ebay.com/itm/2222?hash=y"></a>
  <div class="s-item__title">Antique netsuke carving</div>
  <span class="s-item__price">$425.00</span>
  <span class="s-item__location">from Japan</span>
  <div class="s-item__subtitle">Pre-owned</div>
</li>
</ul></body></html>`

func TestParseEbaySkipsPlaceholder(t *testing.T) {
	cfg := platformConfigs[models.PlatformEbay]
	listings := parseEbay(ebayFixture, cfg)

	if len(listings) != 1 {
		t.Fatalf("Expected 1 listing (placeholder skipped), got %d", len(listings))
	}
	l := listings[0]
	if l.Title != "Antique netsuke carving" {
		t.Errorf("Title = %q", l.Title)
	}
	if l.Price.Raw != "$425.00" {
		t.Errorf("Price.Raw = %q", l.Price.Raw)
	}
	if l.Description != "Pre-owned" {
		t.Errorf("Description = %q", l.Description)
	}
}

const olxFixture = `<html><body>
<div data-cy="l-card" id="ad-900100">
  <a href="/d/oferta/rzezba-ID900100.html"></a>
  <h6>Rzezba z kosci</h6>
  <p data-testid="ad-price">1 200 zl</p>
  <p data-testid="location-date">Warszawa - 12 sierpnia</p>
</div>
</body></html>`

func TestParseOLX(t *testing.T) {
	cfg := platformConfigs[models.PlatformOLX]
	listings := parseOLX(olxFixture, cfg)

	if len(listings) != 1 {
		t.Fatalf("Expected 1 listing, got %d", len(listings))
	}
	l := listings[0]
	if l.PlatformID != "ad-900100" {
		t.Errorf("PlatformID = %q", l.PlatformID)
	}
	if l.Title != "Rzezba z kosci" {
		t.Errorf("Title = %q", l.Title)
	}
	if l.Price.Raw != "1 200 zl" {
		t.Errorf("Price.Raw = %q", l.Price.Raw)
	}
}

const aliFixture = `<html><script>window.runParams = {"mods":{"itemList":{"content":[{"productId":100500,"title":{"displayTitle":"Hand carved bone pendant"},"prices":{"salePrice":{"formattedPrice":"US $12.99"}},"productDetailUrl":"//www.aliexpress.com/item/100500.html","image":{"imgUrl":"//ae01.alicdn.com/kf/x.jpg"},"store":{"storeName":"CraftShop"}}]}}};</script></html>`

func TestParseAliExpress(t *testing.T) {
	cfg := platformConfigs[models.PlatformAliExpress]
	listings := parseAliExpress(aliFixture, cfg)

	if len(listings) != 1 {
		t.Fatalf("Expected 1 listing, got %d", len(listings))
	}
	l := listings[0]
	if l.PlatformID != "100500" {
		t.Errorf("PlatformID = %q", l.PlatformID)
	}
	if l.Title != "Hand carved bone pendant" {
		t.Errorf("Title = %q", l.Title)
	}
	if l.URL != "https://www.aliexpress.com/item/100500.html" {
		t.Errorf("URL = %q (protocol-relative must be absolutized)", l.URL)
	}
	if l.Seller["store"] != "CraftShop" {
		t.Errorf("Seller store = %q", l.Seller["store"])
	}
}

const taobaoFixture = "<html><script>g_page_config = {\"mods\":{\"itemlist\":{\"data\":{\"auctions\":[{\"title\":\"<span class=H>象牙</span>雕件\",\"detail_url\":\"//item.taobao.com/item.htm?id=777\",\"view_price\":\"888.00\",\"item_loc\":\"广东\",\"nick\":\"seller77\",\"pic_url\":\"//img.alicdn.com/x.jpg\",\"nid\":\"777\"}]}}}};\n</script></html>"

func TestParseTaobao(t *testing.T) {
	cfg := platformConfigs[models.PlatformTaobao]
	listings := parseTaobao(taobaoFixture, cfg)

	if len(listings) != 1 {
		t.Fatalf("Expected 1 listing, got %d", len(listings))
	}
	l := listings[0]
	if strings.Contains(l.Title, "<span") {
		t.Errorf("Highlight markup must be stripped from titles: %q", l.Title)
	}
	if l.PlatformID != "777" {
		t.Errorf("PlatformID = %q", l.PlatformID)
	}
	if l.Price.Raw != "¥888.00" {
		t.Errorf("Price.Raw = %q", l.Price.Raw)
	}
	if !strings.HasPrefix(l.URL, "https://") {
		t.Errorf("URL = %q (protocol-relative must be absolutized)", l.URL)
	}
}

const mercariFixture = `<html><body><div class="grid">
<a data-testid="ItemContainer" href="/item/m555" aria-label="Vintage fur stole">
  <div data-testid="ItemName">Vintage fur stole</div>
  <div data-testid="ItemPrice">$65</div>
  <img src="https://u.mercari.com/photos/m555_1.jpg" alt="Vintage fur stole"/>
</a>
</div></body></html>`

func TestParseMercari(t *testing.T) {
	cfg := platformConfigs[models.PlatformMercari]
	listings := parseMercari(mercariFixture, cfg)

	if len(listings) != 1 {
		t.Fatalf("Expected 1 listing, got %d", len(listings))
	}
	l := listings[0]
	if l.PlatformID != "m555" {
		t.Errorf("PlatformID = %q", l.PlatformID)
	}
	if l.Title != "Vintage fur stole" {
		t.Errorf("Title = %q", l.Title)
	}
	if l.Price.Raw != "$65" {
		t.Errorf("Price.Raw = %q", l.Price.Raw)
	}
}

func TestParseFunctionsHandleGarbage(t *testing.T) {
	bodies := []string{"", "not html at all", "<html><body><p>empty results</p></body></html>"}
	parsers := map[string]func(string, *PlatformConfig) []models.Listing{
		"craigslist":   parseCraigslist,
		"ebay":         parseEbay,
		"olx":          parseOLX,
		"marktplaats":  parseMarktplaats,
		"mercadolibre": parseMercadoLibre,
		"gumtree":      parseGumtree,
		"avito":        parseAvito,
		"aliexpress":   parseAliExpress,
		"taobao":       parseTaobao,
		"mercari":      parseMercari,
	}
	for name, parse := range parsers {
		for _, body := range bodies {
			if got := parse(body, nil); len(got) != 0 {
				t.Errorf("%s parser invented %d listings from garbage", name, len(got))
			}
		}
	}
}

func TestLooksBlocked(t *testing.T) {
	long := strings.Repeat("x", 5000)
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"Short Body Under Floor", "tiny", true},
		{"Captcha Interstitial", long + " please complete the CAPTCHA to continue", true},
		{"Robot Check", long + " Robot Check", true},
		{"Normal Page", long, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksBlocked(tt.body, 1024); got != tt.want {
				t.Errorf("looksBlocked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmitListingsCapAndDrops(t *testing.T) {
	cfg := platformConfigs[models.PlatformEbay]
	raw := []models.Listing{
		{Title: "one", URL: "https://www.ebay.com/itm/1"},
		{Title: "", URL: "https://www.ebay.com/itm/2"}, // dropped: no title
		{Title: "three", URL: ""},                      // dropped: no URL
		{Title: "four", URL: "https://www.ebay.com/itm/4"},
		{Title: "five", URL: "https://www.ebay.com/itm/5"},
	}

	var emitted []models.Listing
	stats := newStats()
	done := emitListings(raw, cfg, "ivory", 2, stats, func(l models.Listing) {
		emitted = append(emitted, l)
	})

	if !done {
		t.Errorf("Cap of 2 reached, emitListings must report done")
	}
	if stats.Emitted != 2 || len(emitted) != 2 {
		t.Fatalf("Emitted = %d, want 2", stats.Emitted)
	}
	if stats.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", stats.Dropped)
	}
	for _, l := range emitted {
		if l.Platform != models.PlatformEbay || l.SearchTerm != "ivory" {
			t.Errorf("Emission missing platform/search term: %+v", l)
		}
		if l.ObservedAt.IsZero() || time.Since(l.ObservedAt) > time.Minute {
			t.Errorf("ObservedAt not stamped: %v", l.ObservedAt)
		}
	}
}
