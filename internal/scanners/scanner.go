// Package scanners implements the platform scanner layer: one uniform
// capability over ten heterogeneous marketplace sources, each with its own
// parsing, pagination, throttling and anti-bot handling. Scanners never
// fail out of Search — every failure becomes zero emissions plus a
// structured error counter — so one platform's trouble cannot stall
// another's progress.
package scanners

import (
	"context"
	"fmt"
	"time"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// ErrKind buckets scanner failures for the run summary.
type ErrKind string

const (
	ErrTimeout ErrKind = "timeout"
	ErrHTTP4xx ErrKind = "http_4xx"
	ErrHTTP5xx ErrKind = "http_5xx"
	ErrBlocked ErrKind = "blocked"
	ErrParse   ErrKind = "parse_error"
	ErrOther   ErrKind = "other"
)

// ScanStats summarizes one Search call.
type ScanStats struct {
	Emitted   int
	Dropped   int // parsed rows missing required fields
	Pages     int
	Errors    map[ErrKind]int
	Abandoned bool // keyword given up on this platform for this run
}

func newStats() *ScanStats {
	return &ScanStats{Errors: make(map[ErrKind]int)}
}

func (s *ScanStats) countErr(kind ErrKind) {
	s.Errors[kind]++
}

// Scanner is the single capability the orchestrator is polymorphic over.
type Scanner interface {
	Platform() models.Platform

	// Search emits up to maxResults normalized listings for keyword,
	// terminating on exhaustion, the page cap, or a fatal-for-keyword
	// fetch error. Every emitted listing has a non-empty canonical URL.
	Search(ctx context.Context, keyword string, maxResults int, emit func(models.Listing)) ScanStats
}

// PaginationStyle declares how a platform pages its results.
type PaginationStyle int

const (
	PageParam      PaginationStyle = iota // numeric page in the URL
	InfiniteScroll                        // needs a headless renderer
)

// PlatformConfig declares one platform's scraping contract.
type PlatformConfig struct {
	Platform   models.Platform
	BaseURL    string
	SearchURL  string // fmt template: query, then page number
	Pagination PaginationStyle
	MaxPages   int
	MaxPerTerm int // per-keyword result cap
	DelayMin   time.Duration
	DelayMax   time.Duration
	RegionHint string // logging only; scoring is language-agnostic
	BotFloor   int    // responses shorter than this are treated as block pages

	// parse extracts listings from one response body. Pure; tested
	// against fixture bodies.
	parse func(body string, cfg *PlatformConfig) []models.Listing
}

// searchURL renders the page-N search URL for a query.
func (cfg *PlatformConfig) searchURL(keyword string, page int) string {
	return fmt.Sprintf(cfg.SearchURL, urlQueryEscape(keyword), page)
}
