package main

import (
	"context"
	"testing"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

func TestExitCodeContract(t *testing.T) {
	// Cron drivers key off these: 2 means a healthy-but-partial run,
	// 10 means the invocation itself was misconfigured.
	if exitOK != 0 {
		t.Errorf("exitOK = %d, want 0", exitOK)
	}
	if exitPartial != 2 {
		t.Errorf("exitPartial = %d, want 2", exitPartial)
	}
	if exitConfig != 10 {
		t.Errorf("exitConfig = %d, want 10", exitConfig)
	}
	if exitFatal != 20 {
		t.Errorf("exitFatal = %d, want 20", exitFatal)
	}
}

func TestBadDomainIsConfigError(t *testing.T) {
	err := runScan(context.Background(), &scanOptions{domain: "bogus"})
	ec, ok := err.(*exitError)
	if !ok {
		t.Fatalf("Error type = %T, want *exitError", err)
	}
	if ec.code != exitConfig {
		t.Errorf("Exit code = %d, want %d (config error)", ec.code, exitConfig)
	}
}

func TestResolvePlatformsAcceptsAllSentinel(t *testing.T) {
	got, err := resolvePlatforms([]string{"all"})
	if err != nil {
		t.Fatalf("resolvePlatforms(all): %v", err)
	}
	if len(got) != len(models.AllPlatforms()) {
		t.Errorf("Resolved %d platforms, want the full set of %d", len(got), len(models.AllPlatforms()))
	}

	got, err = resolvePlatforms([]string{"ebay", " Avito "})
	if err != nil {
		t.Fatalf("resolvePlatforms: %v", err)
	}
	if len(got) != 2 || got[0] != models.PlatformEbay || got[1] != models.PlatformAvito {
		t.Errorf("Resolved = %v", got)
	}

	if _, err := resolvePlatforms([]string{"myspace"}); err == nil {
		t.Errorf("Unknown platform must be rejected")
	}
}

func TestResolvePriorityAcceptsAutoSentinel(t *testing.T) {
	for _, name := range []string{"", "auto", "AUTO"} {
		p, err := resolvePriority(name)
		if err != nil {
			t.Errorf("resolvePriority(%q): %v", name, err)
		}
		if p != "" {
			t.Errorf("resolvePriority(%q) = %q, want no priority", name, p)
		}
	}

	p, err := resolvePriority("craigslist")
	if err != nil || p != models.PlatformCraigslist {
		t.Errorf("resolvePriority(craigslist) = %q, %v", p, err)
	}

	if _, err := resolvePriority("myspace"); err == nil {
		t.Errorf("Unknown priority platform must be rejected")
	}
}

func TestDedupeCachePathName(t *testing.T) {
	got := dedupeCachePath("/var/lib/sentry", models.DomainWildlife)
	if got != "/var/lib/sentry/wildlife_url_cache.json" {
		t.Errorf("Cache path = %q, want the <domain>_url_cache.json layout", got)
	}
}
