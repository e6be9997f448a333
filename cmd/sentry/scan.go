package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentryowl/marketwatch-engine/internal/api"
	"github.com/sentryowl/marketwatch-engine/internal/dedupe"
	"github.com/sentryowl/marketwatch-engine/internal/orchestrator"
	"github.com/sentryowl/marketwatch-engine/internal/rotation"
	"github.com/sentryowl/marketwatch-engine/internal/scanners"
	"github.com/sentryowl/marketwatch-engine/internal/store"
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

type scanOptions struct {
	domain           string
	groupID          int
	batchSize        int
	platforms        []string
	duration         time.Duration
	priorityPlatform string
	backfillDays     int
	stateDir         string
	maxPerTerm       int
	requestBudget    int
	headless         bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one keyword batch across the enabled platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.domain, "domain", "wildlife", "threat domain: wildlife or human_trafficking")
	f.IntVar(&opts.groupID, "group-id", 1, "worker group ID (>= 1)")
	f.IntVar(&opts.batchSize, "batch-size", 50, "keywords per invocation (1-200)")
	f.StringSliceVar(&opts.platforms, "platforms", nil, "comma-separated platform tags, or all")
	f.DurationVar(&opts.duration, "duration", 50*time.Minute, "wall-clock budget (0 = unbounded)")
	f.StringVar(&opts.priorityPlatform, "priority-platform", "auto", "platform scanned first for each keyword, or auto")
	f.IntVar(&opts.backfillDays, "backfill-days", 0, "accept observations up to N days old (0 = today only)")
	f.StringVar(&opts.stateDir, "state-dir", defaultStateDir(), "directory for cursor and dedupe state")
	f.IntVar(&opts.maxPerTerm, "max-per-term", 0, "per-keyword result cap (0 = platform default)")
	f.IntVar(&opts.requestBudget, "request-budget", 0, "total outbound request cap (0 = default)")
	f.BoolVar(&opts.headless, "headless", false, "launch headless Chromium for infinite-scroll platforms")

	return cmd
}

func runScan(ctx context.Context, opts *scanOptions) error {
	domain := models.ThreatDomain(opts.domain)
	if domain != models.DomainWildlife && domain != models.DomainHumanTrafficking {
		return &exitError{exitConfig, fmt.Sprintf("unknown domain %q", opts.domain)}
	}

	platforms, err := resolvePlatforms(opts.platforms)
	if err != nil {
		return &exitError{exitConfig, err.Error()}
	}
	priority, err := resolvePriority(opts.priorityPlatform)
	if err != nil {
		return &exitError{exitConfig, err.Error()}
	}

	if err := os.MkdirAll(opts.stateDir, 0o755); err != nil {
		return &exitError{exitConfig, fmt.Sprintf("state dir: %v", err)}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store backend: Postgres when DATABASE_URL is set, otherwise the
	// REST evidence store.
	backend, cursorStore, err := buildBackend(ctx, opts.stateDir)
	if err != nil {
		return err
	}
	adapter := store.NewAdapter(backend, opts.backfillDays)
	defer adapter.Close()

	if err := adapter.Ping(ctx); err != nil {
		return &exitError{exitFatal, fmt.Sprintf("store unreachable: %v", err)}
	}

	engine, err := rotation.NewEngine(cursorStore, domain, opts.groupID, opts.batchSize)
	if err != nil {
		return &exitError{exitConfig, err.Error()}
	}

	cache := dedupe.New(0)
	cachePath := dedupeCachePath(opts.stateDir, domain)
	if err := cache.Load(cachePath); err != nil {
		log.Printf("[Main] Dedupe cache load failed (continuing fresh): %v", err)
	}

	var browser *scanners.Browser
	if opts.headless {
		browser, err = scanners.NewBrowser()
		if err != nil {
			log.Printf("[Main] Headless browser unavailable, scroll platforms disabled: %v", err)
		} else {
			defer browser.Close()
		}
	}

	client := scanners.NewClient(opts.requestBudget)
	registry := scanners.NewRegistry(platforms, client, browser)

	orch := orchestrator.New(registry, engine, cache, adapter, orchestrator.Options{
		Domain:           domain,
		Duration:         opts.duration,
		PriorityPlatform: priority,
		MaxPerTerm:       opts.maxPerTerm,
		SummaryDir:       opts.stateDir,
	})

	// Optional detection sinks: alert webhooks for high-severity hits,
	// and the webhookd live feed when FEED_URL points at one.
	var sinks []func(models.Detection)
	if urls := os.Getenv("ALERT_WEBHOOK_URLS"); urls != "" {
		alerts := api.NewAlertManager(strings.Split(urls, ","), models.LevelHigh)
		sinks = append(sinks, alerts.Notify)
	}
	if feedURL := os.Getenv("FEED_URL"); feedURL != "" {
		feed := api.NewFeedPublisher(feedURL, os.Getenv("API_AUTH_TOKEN"))
		sinks = append(sinks, feed.Publish)
	}
	if len(sinks) > 0 {
		orch.OnDetection = func(d models.Detection) {
			for _, sink := range sinks {
				sink(d)
			}
		}
	}

	summary, runErr := orch.Run(ctx)

	if err := cache.Flush(cachePath); err != nil {
		log.Printf("[Main] Dedupe cache flush failed: %v", err)
	}

	if runErr != nil {
		if orch.Fatal() {
			return &exitError{exitFatal, runErr.Error()}
		}
		return &exitError{exitPartial, runErr.Error()}
	}

	log.Printf("[Main] Run complete: scanned=%d stored=%d duplicates=%d safe=%d keywords=%d/%d",
		summary.Totals.Scanned, summary.Totals.Stored, summary.Totals.Duplicates,
		summary.Totals.Safe, summary.FullyProcessed, summary.KeywordsInBatch)

	if summary.Totals.Abandoned > 0 || summary.Totals.StoreFailures > 0 ||
		summary.FullyProcessed < summary.KeywordsInBatch {
		return &exitError{exitPartial, "run finished with abandoned keywords or failed writes"}
	}
	return nil
}

// buildBackend selects the persistence backend and the cursor store from
// the environment. Postgres serves both roles when configured; the REST
// backend pairs with file-based cursors.
func buildBackend(ctx context.Context, stateDir string) (store.Backend, rotation.CursorStore, error) {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		pg, err := store.ConnectPostgres(ctx, connStr)
		if err != nil {
			return nil, nil, &exitError{exitFatal, fmt.Sprintf("postgres connect: %v", err)}
		}
		if err := pg.InitSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, &exitError{exitFatal, fmt.Sprintf("postgres schema: %v", err)}
		}
		log.Printf("[Main] Using Postgres store (cursor rows included)")
		return pg, pg, nil
	}

	baseURL := os.Getenv("STORE_URL")
	apiKey := os.Getenv("STORE_API_KEY")
	if baseURL == "" || apiKey == "" {
		return nil, nil, &exitError{exitConfig,
			"no store configured: set DATABASE_URL or STORE_URL + STORE_API_KEY"}
	}
	log.Printf("[Main] Using REST store at %s (file cursors)", baseURL)
	return store.NewRESTBackend(baseURL, apiKey), rotation.NewFileStore(stateDir), nil
}

// resolvePlatforms maps the --platforms flag to the closed platform set.
// Empty and the "all" sentinel both mean every platform.
func resolvePlatforms(names []string) ([]models.Platform, error) {
	if len(names) == 0 {
		return models.AllPlatforms(), nil
	}
	var out []models.Platform
	for _, n := range names {
		name := strings.ToLower(strings.TrimSpace(n))
		if name == "all" {
			return models.AllPlatforms(), nil
		}
		p := models.Platform(name)
		if !models.IsValidPlatform(p) {
			return nil, fmt.Errorf("unknown platform %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}

// resolvePriority maps --priority-platform; "auto" and empty both mean
// no explicit priority (queue order decides).
func resolvePriority(name string) (models.Platform, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		return "", nil
	}
	p := models.Platform(name)
	if !models.IsValidPlatform(p) {
		return "", fmt.Errorf("unknown priority platform %q", name)
	}
	return p, nil
}

// dedupeCachePath is the seen-URL snapshot location for a domain.
func dedupeCachePath(stateDir string, domain models.ThreatDomain) string {
	return filepath.Join(stateDir, fmt.Sprintf("%s_url_cache.json", domain))
}
