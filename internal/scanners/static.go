package scanners

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/sentryowl/marketwatch-engine/internal/normalize"
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// staticScanner drives any page-parameter platform through the shared
// client: fetch page, parse, emit, delay, next page. The per-keyword
// state machine is pending -> fetching -> parsing -> emitting |
// backing_off -> (fetching | abandoned) -> done.
type staticScanner struct {
	cfg    *PlatformConfig
	client *Client
}

func newStaticScanner(cfg *PlatformConfig, client *Client) *staticScanner {
	return &staticScanner{cfg: cfg, client: client}
}

func (s *staticScanner) Platform() models.Platform {
	return s.cfg.Platform
}

func (s *staticScanner) Search(ctx context.Context, keyword string, maxResults int, emit func(models.Listing)) ScanStats {
	stats := newStats()
	if maxResults <= 0 || maxResults > s.cfg.MaxPerTerm {
		maxResults = s.cfg.MaxPerTerm
	}

	for page := 1; page <= s.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			stats.Abandoned = true
			break
		}

		res := s.client.Get(ctx, s.cfg.searchURL(keyword, page))
		if res.Kind != "" {
			stats.countErr(res.Kind)
			stats.Abandoned = true
			log.Printf("[Scanner:%s] Abandoning %q on page %d: %v", s.cfg.Platform, keyword, page, res.Err)
			break
		}
		stats.Pages++

		if res.Body == "" {
			break // 404/410: end of results
		}
		if looksBlocked(res.Body, s.cfg.BotFloor) {
			stats.countErr(ErrBlocked)
			stats.Abandoned = true
			log.Printf("[Scanner:%s] Block page detected for %q", s.cfg.Platform, keyword)
			break
		}

		listings := s.cfg.parse(res.Body, s.cfg)
		if len(listings) == 0 {
			if stats.Emitted == 0 && page == 1 {
				// Either genuinely empty or the markup changed shape;
				// count a parse error only when the page had content.
				if len(res.Body) > s.cfg.BotFloor*4 {
					stats.countErr(ErrParse)
				}
			}
			break // exhaustion
		}

		done := emitListings(listings, s.cfg, keyword, maxResults, stats, emit)
		if done {
			break
		}

		if page < s.cfg.MaxPages {
			if !sleepCtx(ctx, jitter(s.cfg.DelayMin, s.cfg.DelayMax)) {
				stats.Abandoned = true
				break
			}
		}
	}
	return *stats
}

// emitListings normalizes and emits parsed rows, dropping any without the
// required fields. Returns true when maxResults is reached.
func emitListings(listings []models.Listing, cfg *PlatformConfig, keyword string, maxResults int, stats *ScanStats, emit func(models.Listing)) bool {
	for _, l := range listings {
		if stats.Emitted >= maxResults {
			return true
		}
		l.Platform = cfg.Platform
		l.SearchTerm = keyword
		l.ObservedAt = time.Now().UTC()
		l = normalize.Fields(l, cfg.BaseURL)

		if l.URL == "" || l.Title == "" {
			stats.Dropped++
			continue
		}
		emit(l)
		stats.Emitted++
	}
	return stats.Emitted >= maxResults
}

// looksBlocked applies the shared anti-bot heuristics: interstitial
// titles and suspiciously short bodies.
func looksBlocked(body string, floor int) bool {
	if floor > 0 && len(body) < floor {
		return true
	}
	lower := strings.ToLower(body)
	for _, marker := range []string{
		"are you human",
		"verify you are a human",
		"captcha",
		"access denied",
		"unusual traffic",
		"robot check",
		"pardon our interruption",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
