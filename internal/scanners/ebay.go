package scanners

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sentryowl/marketwatch-engine/internal/normalize"
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// parseEbay extracts listings from eBay's HTML search results. This is
// the fallback path; the API scanner below is preferred when credentials
// are configured.
func parseEbay(body string, cfg *PlatformConfig) []models.Listing {
	doc := parseHTML(body)
	if doc == nil {
		return nil
	}

	var out []models.Listing
	for _, item := range findAll(doc, byClass("li", "s-item")) {
		link := findFirst(item, byClass("a", "s-item__link"))
		title := findFirst(item, byClass("", "s-item__title"))
		if link == nil || title == nil {
			continue
		}
		titleText := innerText(title)
		// eBay pads results with a "Shop on eBay" placeholder row.
		if strings.EqualFold(titleText, "shop on ebay") {
			continue
		}

		l := models.Listing{
			Title: titleText,
			URL:   attr(link, "href"),
		}
		if price := findFirst(item, byClass("span", "s-item__price")); price != nil {
			l.Price = models.Price{Raw: innerText(price)}
		}
		if loc := findFirst(item, byClass("span", "s-item__location")); loc != nil {
			l.Location = innerText(loc)
		}
		if sub := findFirst(item, byClass("div", "s-item__subtitle")); sub != nil {
			l.Description = innerText(sub)
		}
		if img := findFirst(item, byTag("img")); img != nil {
			l.ImageURL = attr(img, "src")
		}
		out = append(out, l)
	}
	return out
}

// ─── Official Browse API path ───────────────────────────────────────

// ebayAPIScanner searches via the eBay Browse API using client-credentials
// OAuth. Scope is read-only item summary search; tokens are cached until
// shortly before expiry.
type ebayAPIScanner struct {
	cfg    *PlatformConfig
	client *Client
	appID  string
	certID string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// Endpoint vars so tests can stand in a local server.
var (
	ebayOAuthURL  = "https://api.ebay.com/identity/v1/oauth2/token"
	ebaySearchURL = "https://api.ebay.com/buy/browse/v1/item_summary/search"
)

func newEbayAPIScanner(cfg *PlatformConfig, client *Client, appID, certID string) *ebayAPIScanner {
	return &ebayAPIScanner{cfg: cfg, client: client, appID: appID, certID: certID}
}

func (s *ebayAPIScanner) Platform() models.Platform {
	return models.PlatformEbay
}

type ebayItemSummary struct {
	ItemID           string `json:"itemId"`
	Title            string `json:"title"`
	ItemWebURL       string `json:"itemWebUrl"`
	ShortDescription string `json:"shortDescription"`
	Price            struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"price"`
	ItemLocation struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"itemLocation"`
	Image struct {
		ImageURL string `json:"imageUrl"`
	} `json:"image"`
}

type ebaySearchResponse struct {
	Total         int               `json:"total"`
	ItemSummaries []ebayItemSummary `json:"itemSummaries"`
}

func (s *ebayAPIScanner) Search(ctx context.Context, keyword string, maxResults int, emit func(models.Listing)) ScanStats {
	stats := newStats()
	if maxResults <= 0 || maxResults > s.cfg.MaxPerTerm {
		maxResults = s.cfg.MaxPerTerm
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		log.Printf("[Scanner:ebay] OAuth failed, keyword %q abandoned: %v", keyword, err)
		stats.countErr(ErrOther)
		stats.Abandoned = true
		return *stats
	}

	offset := 0
	for page := 0; page < s.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			stats.Abandoned = true
			break
		}

		u := fmt.Sprintf("%s?q=%s&limit=50&offset=%d", ebaySearchURL, url.QueryEscape(keyword), offset)
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-EBAY-C-MARKETPLACE-ID", "EBAY_US")

		resp, err := s.client.Do(req)
		if err != nil {
			stats.countErr(ErrTimeout)
			stats.Abandoned = true
			break
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			stats.countErr(ErrBlocked)
			stats.Abandoned = true
			break
		}
		if resp.StatusCode != http.StatusOK {
			stats.countErr(ErrOther)
			stats.Abandoned = true
			break
		}
		stats.Pages++

		var sr ebaySearchResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			stats.countErr(ErrParse)
			break
		}
		if len(sr.ItemSummaries) == 0 {
			break
		}

		var listings []models.Listing
		for _, item := range sr.ItemSummaries {
			listings = append(listings, models.Listing{
				PlatformID:  item.ItemID,
				Title:       item.Title,
				Description: item.ShortDescription,
				URL:         item.ItemWebURL,
				Price:       normalize.ParsePrice(item.Price.Value + " " + item.Price.Currency),
				Location:    strings.TrimSpace(item.ItemLocation.City + " " + item.ItemLocation.Country),
				ImageURL:    item.Image.ImageURL,
			})
		}
		if emitListings(listings, s.cfg, keyword, maxResults, stats, emit) {
			break
		}

		offset += 50
		if offset >= sr.Total {
			break
		}
		if !sleepCtx(ctx, jitter(s.cfg.DelayMin, s.cfg.DelayMax)) {
			stats.Abandoned = true
			break
		}
	}
	return *stats
}

// accessToken returns a cached client-credentials token, refreshing when
// within a minute of expiry.
func (s *ebayAPIScanner) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.tokenExp) > time.Minute {
		return s.token, nil
	}

	form := "grant_type=client_credentials&scope=" + url.QueryEscape("https://api.ebay.com/oauth/api_scope")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ebayOAuthURL, strings.NewReader(form))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(s.appID + ":" + s.certID))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth HTTP %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", err
	}
	s.token = tok.AccessToken
	s.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return s.token, nil
}
