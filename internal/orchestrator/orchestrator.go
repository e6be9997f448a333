// Package orchestrator runs one scan invocation end to end: take a
// keyword batch from the rotation engine, fan (platform, keyword) tasks
// across a bounded worker pool, pipe emissions through dedupe and the
// scorer, persist actionable detections, and commit the cursor exactly
// once on the way out.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sentryowl/marketwatch-engine/internal/dedupe"
	"github.com/sentryowl/marketwatch-engine/internal/normalize"
	"github.com/sentryowl/marketwatch-engine/internal/rotation"
	"github.com/sentryowl/marketwatch-engine/internal/scanners"
	"github.com/sentryowl/marketwatch-engine/internal/scoring"
	"github.com/sentryowl/marketwatch-engine/internal/store"
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// ErrStoreFatal aborts the run: the store rejected writes in a way
// retrying cannot fix (bad credentials, schema drift).
var ErrStoreFatal = errors.New("store rejected writes fatally")

// maxWorkers caps the pool regardless of platform count.
const maxWorkers = 16

// graceWindow is how long in-flight tasks get to finish after the
// wall-clock deadline before the run is cut off.
const graceWindow = 15 * time.Second

// blockedBackoffThreshold is the blocked-share above which a platform's
// request rate is halved for the rest of the run.
const blockedBackoffThreshold = 0.30

// Options configures one run.
type Options struct {
	Domain           models.ThreatDomain
	Duration         time.Duration // wall-clock budget; 0 means no deadline
	PriorityPlatform models.Platform
	MaxPerTerm       int    // 0 uses each platform's own cap
	SummaryDir       string // where the run summary JSON lands
}

// ScannerSet is the slice of the scanner registry the orchestrator
// needs. *scanners.Registry satisfies it.
type ScannerSet interface {
	Platforms() []models.Platform
	Scanner(p models.Platform) scanners.Scanner
	Client() *scanners.Client
}

// Orchestrator wires the run's collaborators together.
type Orchestrator struct {
	registry ScannerSet
	engine   *rotation.Engine
	cache    *dedupe.Cache
	adapter  *store.Adapter
	opts     Options

	// OnDetection, when set, receives every persisted detection. The
	// webhook daemon uses it to feed the live stream and alert fan-out.
	OnDetection func(models.Detection)

	mu       sync.Mutex
	counters *Counters
	fatal    bool
}

func New(registry ScannerSet, engine *rotation.Engine, cache *dedupe.Cache, adapter *store.Adapter, opts Options) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		engine:   engine,
		cache:    cache,
		adapter:  adapter,
		opts:     opts,
		counters: newCounters(),
	}
}

// task is one (platform, keyword) unit of work. keywordIdx indexes into
// the batch so cursor commit can compute the fully-processed prefix.
type task struct {
	platform   models.Platform
	keyword    string
	keywordIdx int
}

// Run executes one invocation and always returns a summary, even on
// timeout. The error is non-nil only for fatal conditions (store auth,
// no scanners); scanner-level failures are counters, not errors.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	started := time.Now().UTC()

	batch, err := o.engine.NextBatch(ctx)
	if err != nil {
		return nil, err
	}
	platforms := o.registry.Platforms()
	if len(platforms) == 0 {
		return nil, errors.New("no scanners enabled")
	}

	log.Printf("[Orchestrator] Run start: domain=%s keywords=%d [%d,%d) platforms=%d",
		o.opts.Domain, len(batch.Keywords), batch.StartIndex, batch.EndIndex, len(platforms))

	runCtx := ctx
	var cancel context.CancelFunc
	if o.opts.Duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.opts.Duration+graceWindow)
		defer cancel()
	}

	tasks := o.buildQueue(batch.Keywords, platforms)
	taskCh := make(chan task)

	// Per-keyword completion tracking for the cursor commit.
	remaining := make([]int, len(batch.Keywords))
	for i := range remaining {
		remaining[i] = len(platforms)
	}
	keywordDone := make([]bool, len(batch.Keywords))
	var trackMu sync.Mutex

	workers := len(platforms) * 2
	if workers > maxWorkers {
		workers = maxWorkers
	}

	g, gctx := errgroup.WithContext(runCtx)

	// Deadline watcher: past the soft deadline nothing new is dispatched;
	// the feeder below observes gctx and stops.
	softDeadline := time.Time{}
	if o.opts.Duration > 0 {
		softDeadline = started.Add(o.opts.Duration)
	}

	g.Go(func() error {
		defer close(taskCh)
		for _, t := range tasks {
			if !softDeadline.IsZero() && time.Now().After(softDeadline) {
				log.Printf("[Orchestrator] Wall-clock budget spent; draining in-flight work")
				return nil
			}
			select {
			case taskCh <- t:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for t := range taskCh {
				if err := o.runTask(gctx, t); err != nil {
					return err
				}
				trackMu.Lock()
				remaining[t.keywordIdx]--
				if remaining[t.keywordIdx] == 0 {
					keywordDone[t.keywordIdx] = true
				}
				trackMu.Unlock()
			}
			return nil
		})
	}

	runErr := g.Wait()

	// Cursor advances past the contiguous prefix of finished keywords.
	trackMu.Lock()
	fullyProcessed := 0
	for _, done := range keywordDone {
		if !done {
			break
		}
		fullyProcessed++
	}
	trackMu.Unlock()

	// Commit with a fresh context: the run context may already be dead.
	commitCtx, commitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer commitCancel()
	if err := o.engine.Commit(commitCtx, batch, fullyProcessed); err != nil {
		log.Printf("[Orchestrator] Cursor commit failed: %v", err)
	}

	summary := o.buildSummary(started, batch, fullyProcessed, platforms)
	if path, err := summary.Write(o.opts.SummaryDir); err != nil {
		log.Printf("[Orchestrator] Summary write failed: %v", err)
	} else {
		log.Printf("[Orchestrator] Run summary: %s", path)
	}

	if runErr != nil && errors.Is(runErr, ErrStoreFatal) {
		return summary, ErrStoreFatal
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return summary, runErr
	}
	return summary, nil
}

// buildQueue orders tasks keyword-major so early keywords finish across
// all platforms first (tight cursor prefix), with the priority platform
// leading each keyword's fan-out.
func (o *Orchestrator) buildQueue(keywords []string, platforms []models.Platform) []task {
	ordered := make([]models.Platform, 0, len(platforms))
	if o.opts.PriorityPlatform != "" {
		for _, p := range platforms {
			if p == o.opts.PriorityPlatform {
				ordered = append(ordered, p)
			}
		}
	}
	for _, p := range platforms {
		if p != o.opts.PriorityPlatform {
			ordered = append(ordered, p)
		}
	}

	var tasks []task
	for i, kw := range keywords {
		for _, p := range ordered {
			tasks = append(tasks, task{platform: p, keyword: kw, keywordIdx: i})
		}
	}
	return tasks
}

// runTask searches one keyword on one platform and pushes every emission
// through the pipeline. Only a fatal store failure propagates an error.
func (o *Orchestrator) runTask(ctx context.Context, t task) error {
	sc := o.registry.Scanner(t.platform)
	if sc == nil {
		return nil
	}

	var pipelineErr error
	stats := sc.Search(ctx, t.keyword, o.opts.MaxPerTerm, func(l models.Listing) {
		if pipelineErr != nil {
			return
		}
		pipelineErr = o.process(ctx, l)
	})

	o.counters.recordScan(t.platform, stats)
	o.maybeBackOff(t.platform)

	if pipelineErr != nil {
		return pipelineErr
	}
	return nil
}

// process takes one normalized listing through dedupe, scoring and
// persistence.
func (o *Orchestrator) process(ctx context.Context, l models.Listing) error {
	o.counters.incScanned(l.Platform)

	fp := normalize.FingerprintListing(l)
	if o.cache.Seen(fp) {
		o.counters.incDeduped(l.Platform)
		return nil
	}

	assessment := scoring.Score(l, o.opts.Domain)
	o.counters.incScored(l.Platform)

	if assessment.Level == models.LevelSafe {
		o.counters.incSafe(l.Platform)
		return nil
	}

	d := buildDetection(l, assessment)
	res, err := o.adapter.Insert(ctx, d)
	switch res {
	case store.Inserted:
		o.counters.incStored(l.Platform)
		if o.OnDetection != nil {
			o.OnDetection(d)
		}
	case store.Duplicate:
		o.counters.incDuplicate(l.Platform)
	case store.Fatal:
		log.Printf("[Orchestrator] Fatal store error for %s: %v", d.ListingURL, err)
		o.setFatal()
		return ErrStoreFatal
	default:
		o.counters.incStoreFailure(l.Platform)
	}
	return nil
}

// buildDetection mints a detection record with a fresh evidence ID. A new
// ID is minted per attempt; a failed insert's ID is never reused.
func buildDetection(l models.Listing, a models.ThreatAssessment) models.Detection {
	return models.Detection{
		EvidenceID:       uuid.NewString(),
		ObservedAt:       l.ObservedAt,
		Platform:         l.Platform,
		ListingURL:       l.URL,
		ListingTitle:     l.Title,
		ListingDesc:      l.Description,
		ListingPrice:     l.Price.Raw,
		ListingLocation:  l.Location,
		SearchTerm:       l.SearchTerm,
		ThreatScore:      a.Score,
		ThreatLevel:      a.Level,
		ThreatCategory:   a.Category,
		RequiresReview:   a.RequiresReview,
		ConfidenceScore:  a.Confidence,
		EnhancementNotes: a.Reasoning,
	}
}

// maybeBackOff halves a platform's request rate once more than 30% of its
// pages came back blocked. Applied at most once per platform per run.
func (o *Orchestrator) maybeBackOff(p models.Platform) {
	share, pages := o.counters.blockedShare(p)
	if pages < 5 || share <= blockedBackoffThreshold {
		return
	}
	if !o.counters.markBackedOff(p) {
		return
	}
	if u, err := url.Parse(scanners.BaseURL(p)); err == nil && u.Host != "" {
		o.registry.Client().HalveRate(u.Host)
		log.Printf("[Orchestrator] %s blocked on %.0f%% of pages; halving its request rate", p, share*100)
	}
}

func (o *Orchestrator) setFatal() {
	o.mu.Lock()
	o.fatal = true
	o.mu.Unlock()
}

// Fatal reports whether the run hit a non-retryable store failure.
func (o *Orchestrator) Fatal() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fatal
}
