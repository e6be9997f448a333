package dedupe

import (
	"path/filepath"
	"testing"

	"github.com/sentryowl/marketwatch-engine/internal/normalize"
)

func fp(s string) normalize.Fingerprint {
	return normalize.FingerprintURL("https://example.com/"+s, "")
}

func TestSeenInsertsOnMiss(t *testing.T) {
	c := New(10)

	if c.Seen(fp("a")) {
		t.Fatalf("First sighting must be a miss")
	}
	if !c.Seen(fp("a")) {
		t.Fatalf("Second sighting must be a hit")
	}
	if c.Hits() != 1 {
		t.Errorf("Hits = %d, want 1", c.Hits())
	}
}

func TestFIFOEviction(t *testing.T) {
	c := New(3)

	c.Seen(fp("a"))
	c.Seen(fp("b"))
	c.Seen(fp("c"))
	// Inserting a fourth evicts the oldest ("a").
	c.Seen(fp("d"))

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3 at capacity", c.Len())
	}
	if c.Seen(fp("a")) {
		t.Errorf("Evicted fingerprint should read as unseen")
	}
	// "a" re-entered above, evicting "b"; c and d must survive.
	if !c.Seen(fp("c")) || !c.Seen(fp("d")) {
		t.Errorf("Recently inserted fingerprints must survive eviction")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	c := New(100)
	c.Seen(fp("x"))
	c.Seen(fp("y"))
	if err := c.Flush(path); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	restored := New(100)
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !restored.Seen(fp("x")) || !restored.Seen(fp("y")) {
		t.Errorf("Restored cache must recognize flushed fingerprints")
	}
	if restored.Seen(fp("z")) {
		t.Errorf("Restored cache invented a fingerprint")
	}
}

func TestLoadMissingFileIsFreshState(t *testing.T) {
	c := New(10)
	if err := c.Load(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Errorf("Missing snapshot must not error, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Fresh cache Len = %d, want 0", c.Len())
	}
}
