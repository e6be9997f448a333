// Package dedupe provides the process-local seen-fingerprint cache
// consulted before scoring and before persistence. The cache is advisory:
// the authoritative uniqueness check is the store's constraint on
// listing_url. A hit here just saves a scoring pass and a round trip.
package dedupe

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sentryowl/marketwatch-engine/internal/normalize"
)

const DefaultCapacity = 200000

// Cache is a bounded FIFO set of listing fingerprints.
type Cache struct {
	mu       sync.Mutex
	set      map[normalize.Fingerprint]struct{}
	order    []normalize.Fingerprint // insertion order for eviction
	capacity int
	hits     int64
}

// New creates a cache with the given capacity (<=0 uses the default).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		set:      make(map[normalize.Fingerprint]struct{}, capacity/4),
		capacity: capacity,
	}
}

// Seen reports whether fp is already cached, inserting it if not.
// This is the hot path: one lookup plus at most one insert.
func (c *Cache) Seen(fp normalize.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.set[fp]; ok {
		c.hits++
		return true
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.set, oldest)
	}

	c.set[fp] = struct{}{}
	c.order = append(c.order, fp)
	return false
}

// Len returns the current number of cached fingerprints.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.set)
}

// Hits returns the cumulative hit count.
func (c *Cache) Hits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// snapshot is the on-disk form of the cache.
type snapshot struct {
	Fingerprints []normalize.Fingerprint `json:"fingerprints"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Load restores a snapshot written by Flush. A missing file is fresh state,
// not an error. Corrupt snapshots are discarded with a warning; the store's
// unique constraint covers anything lost.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[Dedupe] Discarding corrupt snapshot %s: %v", path, err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fp := range snap.Fingerprints {
		if len(c.order) >= c.capacity {
			break
		}
		if _, ok := c.set[fp]; ok {
			continue
		}
		c.set[fp] = struct{}{}
		c.order = append(c.order, fp)
	}

	log.Printf("[Dedupe] Restored %d fingerprints from %s", len(c.set), path)
	return nil
}

// Flush writes the cache to disk via temp-file-plus-rename so a crash
// mid-write never leaves a truncated snapshot.
func (c *Cache) Flush(path string) error {
	c.mu.Lock()
	snap := snapshot{
		Fingerprints: append([]normalize.Fingerprint(nil), c.order...),
		UpdatedAt:    time.Now().UTC(),
	}
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}
