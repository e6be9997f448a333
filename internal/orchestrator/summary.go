package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sentryowl/marketwatch-engine/internal/rotation"
	"github.com/sentryowl/marketwatch-engine/internal/scanners"
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// PlatformCounters accumulates one platform's run totals.
type PlatformCounters struct {
	Scanned       int            `json:"scanned"`
	Deduped       int            `json:"deduped"`
	Scored        int            `json:"scored"`
	Safe          int            `json:"safe"`
	Stored        int            `json:"stored"`
	Duplicates    int            `json:"duplicates"`
	StoreFailures int            `json:"store_failures"`
	Pages         int            `json:"pages"`
	Abandoned     int            `json:"keywords_abandoned"`
	Errors        map[string]int `json:"errors,omitempty"`
}

// Counters is the run's thread-safe tally. Workers update it from many
// goroutines; the summary reads it once after Wait.
type Counters struct {
	mu        sync.Mutex
	platforms map[models.Platform]*PlatformCounters
	backedOff map[models.Platform]bool
}

func newCounters() *Counters {
	return &Counters{
		platforms: make(map[models.Platform]*PlatformCounters),
		backedOff: make(map[models.Platform]bool),
	}
}

func (c *Counters) get(p models.Platform) *PlatformCounters {
	pc, ok := c.platforms[p]
	if !ok {
		pc = &PlatformCounters{Errors: make(map[string]int)}
		c.platforms[p] = pc
	}
	return pc
}

func (c *Counters) recordScan(p models.Platform, s scanners.ScanStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.get(p)
	pc.Pages += s.Pages
	if s.Abandoned {
		pc.Abandoned++
	}
	for kind, n := range s.Errors {
		pc.Errors[string(kind)] += n
	}
}

func (c *Counters) incScanned(p models.Platform) {
	c.bump(p, func(pc *PlatformCounters) { pc.Scanned++ })
}
func (c *Counters) incDeduped(p models.Platform) {
	c.bump(p, func(pc *PlatformCounters) { pc.Deduped++ })
}
func (c *Counters) incScored(p models.Platform) {
	c.bump(p, func(pc *PlatformCounters) { pc.Scored++ })
}
func (c *Counters) incSafe(p models.Platform) { c.bump(p, func(pc *PlatformCounters) { pc.Safe++ }) }
func (c *Counters) incStored(p models.Platform) {
	c.bump(p, func(pc *PlatformCounters) { pc.Stored++ })
}
func (c *Counters) incDuplicate(p models.Platform) {
	c.bump(p, func(pc *PlatformCounters) { pc.Duplicates++ })
}
func (c *Counters) incStoreFailure(p models.Platform) {
	c.bump(p, func(pc *PlatformCounters) { pc.StoreFailures++ })
}

func (c *Counters) bump(p models.Platform, f func(*PlatformCounters)) {
	c.mu.Lock()
	f(c.get(p))
	c.mu.Unlock()
}

// blockedShare returns the fraction of a platform's pages-plus-blocks
// that were block pages, and the total observation count.
func (c *Counters) blockedShare(p models.Platform) (float64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc := c.get(p)
	blocked := pc.Errors[string(scanners.ErrBlocked)]
	total := pc.Pages + blocked
	if total == 0 {
		return 0, 0
	}
	return float64(blocked) / float64(total), total
}

// markBackedOff records the one-shot back-pressure flag. Returns false if
// the platform was already backed off.
func (c *Counters) markBackedOff(p models.Platform) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backedOff[p] {
		return false
	}
	c.backedOff[p] = true
	return true
}

// Summary is the run artifact written next to the cursor state. It is the
// only machine-readable record of what a run accomplished.
type Summary struct {
	Domain          models.ThreatDomain                   `json:"domain"`
	GroupID         int                                   `json:"group_id"`
	StartedAt       time.Time                             `json:"started_at"`
	FinishedAt      time.Time                             `json:"finished_at"`
	DurationSeconds float64                               `json:"duration_seconds"`
	BatchStart      int                                   `json:"batch_start"`
	BatchEnd        int                                   `json:"batch_end"`
	KeywordsInBatch int                                   `json:"keywords_in_batch"`
	FullyProcessed  int                                   `json:"keywords_fully_processed"`
	CompletedCycles int                                   `json:"completed_cycles"`
	Platforms       []models.Platform                     `json:"platforms"`
	Totals          PlatformCounters                      `json:"totals"`
	PerPlatform     map[models.Platform]*PlatformCounters `json:"per_platform"`
	DedupeCacheSize int                                   `json:"dedupe_cache_size"`
	StoreFatal      bool                                  `json:"store_fatal"`
}

func (o *Orchestrator) buildSummary(started time.Time, batch rotation.Batch, fullyProcessed int, platforms []models.Platform) *Summary {
	finished := time.Now().UTC()

	o.counters.mu.Lock()
	per := make(map[models.Platform]*PlatformCounters, len(o.counters.platforms))
	totals := PlatformCounters{Errors: make(map[string]int)}
	for p, pc := range o.counters.platforms {
		cp := *pc
		cp.Errors = make(map[string]int, len(pc.Errors))
		for k, v := range pc.Errors {
			cp.Errors[k] = v
			totals.Errors[k] += v
		}
		per[p] = &cp

		totals.Scanned += pc.Scanned
		totals.Deduped += pc.Deduped
		totals.Scored += pc.Scored
		totals.Safe += pc.Safe
		totals.Stored += pc.Stored
		totals.Duplicates += pc.Duplicates
		totals.StoreFailures += pc.StoreFailures
		totals.Pages += pc.Pages
		totals.Abandoned += pc.Abandoned
	}
	o.counters.mu.Unlock()

	return &Summary{
		Domain:          o.opts.Domain,
		GroupID:         batch.Cursor.GroupID,
		StartedAt:       started,
		FinishedAt:      finished,
		DurationSeconds: finished.Sub(started).Seconds(),
		BatchStart:      batch.StartIndex,
		BatchEnd:        batch.EndIndex,
		KeywordsInBatch: len(batch.Keywords),
		FullyProcessed:  fullyProcessed,
		CompletedCycles: batch.Cursor.CompletedCycles,
		Platforms:       platforms,
		Totals:          totals,
		PerPlatform:     per,
		DedupeCacheSize: o.cache.Len(),
		StoreFatal:      o.Fatal(),
	}
}

// Write persists the summary as <domain>_run_<timestamp>.json in dir.
func (s *Summary) Write(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("%s_run_%s.json", s.Domain, s.StartedAt.Format("20060102T150405Z"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
