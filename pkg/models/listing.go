package models

import "time"

// Platform identifies a supported marketplace. The set is closed: scanners
// exist only for these tags and the store CHECK constraint mirrors them.
type Platform string

const (
	PlatformEbay         Platform = "ebay"
	PlatformCraigslist   Platform = "craigslist"
	PlatformOLX          Platform = "olx"
	PlatformMarktplaats  Platform = "marktplaats"
	PlatformMercadoLibre Platform = "mercadolibre"
	PlatformGumtree      Platform = "gumtree"
	PlatformAvito        Platform = "avito"
	PlatformAliExpress   Platform = "aliexpress"
	PlatformTaobao       Platform = "taobao"
	PlatformMercari      Platform = "mercari"
)

// AllPlatforms returns the closed platform set in stable order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformEbay, PlatformCraigslist, PlatformOLX, PlatformMarktplaats,
		PlatformMercadoLibre, PlatformGumtree, PlatformAvito,
		PlatformAliExpress, PlatformTaobao, PlatformMercari,
	}
}

// IsValidPlatform reports whether tag is a member of the closed set.
func IsValidPlatform(tag Platform) bool {
	for _, p := range AllPlatforms() {
		if p == tag {
			return true
		}
	}
	return false
}

// ThreatDomain selects which rule tables a scan run uses.
type ThreatDomain string

const (
	DomainWildlife         ThreatDomain = "wildlife"
	DomainHumanTrafficking ThreatDomain = "human_trafficking"
)

// Price is a parsed listing price. Raw always holds the text as scraped;
// Currency and Amount are populated only when the normalizer recognized the
// format, so consumers must check Parsed before trusting Amount.
type Price struct {
	Raw      string  `json:"raw"`
	Currency string  `json:"currency,omitempty"` // ISO-4217 when parsed
	Amount   float64 `json:"amount,omitempty"`
	Parsed   bool    `json:"parsed"`
}

// Listing is a single advertisement as observed on a source platform.
// Scanners are the only code that constructs Listings; everything downstream
// consumes the closed record. URL is guaranteed non-empty past the scanner.
type Listing struct {
	Platform    Platform          `json:"platform"`
	PlatformID  string            `json:"platformId,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Price       Price             `json:"price"`
	URL         string            `json:"url"`
	Location    string            `json:"location"`
	Seller      map[string]string `json:"seller,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	ObservedAt  time.Time         `json:"observedAt"`
	SearchTerm  string            `json:"searchTerm"`
}
