package scanners

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// Browser wraps one headless Chromium instance shared by every
// infinite-scroll scanner in the run. Launch is expensive, so the
// orchestrator creates it once and closes it at shutdown.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser launches headless Chromium and connects to it. Returns an
// error rather than panicking when no Chromium is available; callers
// treat a nil Browser as "infinite-scroll platforms disabled".
func NewBrowser() (*Browser, error) {
	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect chromium: %w", err)
	}
	return &Browser{launcher: l, browser: b}, nil
}

// Close tears down the browser and its launcher.
func (b *Browser) Close() {
	if b == nil {
		return
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
}

// render loads a URL, performs scrollRounds window scrolls to trigger
// lazy result loading, and returns the final DOM serialization.
func (b *Browser) render(ctx context.Context, pageURL string, scrollRounds int, settle time.Duration) (string, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}

	for i := 0; i < scrollRounds; i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			break // scrolling failure is not fatal; keep what loaded
		}
		if !sleepCtx(ctx, settle) {
			return "", ctx.Err()
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("serialize DOM: %w", err)
	}
	return html, nil
}

// headlessScanner drives an infinite-scroll platform through the shared
// Chromium instance: render once per keyword with MaxPages scroll rounds
// standing in for pagination, then parse the settled DOM.
type headlessScanner struct {
	cfg     *PlatformConfig
	browser *Browser
}

func newHeadlessScanner(cfg *PlatformConfig, browser *Browser) *headlessScanner {
	return &headlessScanner{cfg: cfg, browser: browser}
}

func (s *headlessScanner) Platform() models.Platform {
	return s.cfg.Platform
}

// renderTimeout bounds one keyword's full render, scrolls included.
const renderTimeout = 60 * time.Second

func (s *headlessScanner) Search(ctx context.Context, keyword string, maxResults int, emit func(models.Listing)) ScanStats {
	stats := newStats()
	if maxResults <= 0 || maxResults > s.cfg.MaxPerTerm {
		maxResults = s.cfg.MaxPerTerm
	}

	rctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	body, err := s.browser.render(rctx, s.cfg.searchURL(keyword, 1), s.cfg.MaxPages, jitter(s.cfg.DelayMin, s.cfg.DelayMax))
	if err != nil {
		kind := ErrOther
		if rctx.Err() != nil {
			kind = ErrTimeout
		}
		stats.countErr(kind)
		stats.Abandoned = true
		log.Printf("[Scanner:%s] Render failed for %q: %v", s.cfg.Platform, keyword, err)
		return *stats
	}
	stats.Pages++

	if looksBlocked(body, s.cfg.BotFloor) {
		stats.countErr(ErrBlocked)
		stats.Abandoned = true
		log.Printf("[Scanner:%s] Block page detected for %q", s.cfg.Platform, keyword)
		return *stats
	}

	listings := s.cfg.parse(body, s.cfg)
	if len(listings) == 0 && len(body) > s.cfg.BotFloor*4 {
		stats.countErr(ErrParse)
		return *stats
	}
	emitListings(listings, s.cfg, keyword, maxResults, stats, emit)
	return *stats
}
