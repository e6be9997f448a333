package scanners

import (
	"log"
	"os"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// Registry owns the scanner set for one invocation. Platform selection
// happens here; the orchestrator only ever sees the Scanner capability.
type Registry struct {
	client   *Client
	scanners map[models.Platform]Scanner
}

// NewRegistry builds scanners for the requested platforms. eBay prefers
// its official API when credentials are configured and falls back to HTML
// scraping otherwise. Infinite-scroll platforms get the headless path.
func NewRegistry(platforms []models.Platform, client *Client, browser *Browser) *Registry {
	r := &Registry{
		client:   client,
		scanners: make(map[models.Platform]Scanner),
	}

	for _, p := range platforms {
		cfg, ok := platformConfigs[p]
		if !ok {
			log.Printf("[Registry] Unknown platform %q skipped", p)
			continue
		}

		switch {
		case p == models.PlatformEbay && os.Getenv("PLATFORM_EBAY_APP_ID") != "" && os.Getenv("PLATFORM_EBAY_CERT_ID") != "":
			r.scanners[p] = newEbayAPIScanner(cfg, client,
				os.Getenv("PLATFORM_EBAY_APP_ID"), os.Getenv("PLATFORM_EBAY_CERT_ID"))
			log.Printf("[Registry] ebay: using official search API")
		case cfg.Pagination == InfiniteScroll:
			if browser == nil {
				log.Printf("[Registry] %s requires the headless renderer; skipped (no browser)", p)
				continue
			}
			r.scanners[p] = newHeadlessScanner(cfg, browser)
		default:
			r.scanners[p] = newStaticScanner(cfg, client)
		}
	}
	return r
}

// Scanner returns the scanner for a platform, or nil when disabled.
func (r *Registry) Scanner(p models.Platform) Scanner {
	return r.scanners[p]
}

// Platforms lists the enabled platforms in config order.
func (r *Registry) Platforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.AllPlatforms() {
		if _, ok := r.scanners[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Client exposes the shared HTTP client for back-pressure adjustments.
func (r *Registry) Client() *Client {
	return r.client
}

// BaseURL returns a platform's base URL for back-pressure host lookups.
func BaseURL(p models.Platform) string {
	if cfg, ok := platformConfigs[p]; ok {
		return cfg.BaseURL
	}
	return ""
}
