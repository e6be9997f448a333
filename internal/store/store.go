// Package store is the persistence adapter: idempotent, at-most-once
// insertion of detections keyed by listing_url. Two backends exist — the
// REST store API (bearer-token HTTPS) and direct Postgres — selected by
// the environment. Per-row idempotency is the whole contract; there are
// no cross-listing transactions.
package store

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// InsertResult classifies an insert attempt.
type InsertResult int

const (
	// Inserted means a new row now exists at the store.
	Inserted InsertResult = iota
	// Duplicate means the unique constraint on listing_url fired. This is
	// the expected dedup outcome, not an error.
	Duplicate
	// Transient means network/5xx trouble worth retrying.
	Transient
	// Fatal means auth failure or schema mismatch; retrying cannot help.
	Fatal
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	case Transient:
		return "transient"
	default:
		return "fatal"
	}
}

// Backend performs a single insert attempt against a concrete store.
type Backend interface {
	InsertDetection(ctx context.Context, d models.Detection) (InsertResult, error)
	Ping(ctx context.Context) error
	Close()
}

const insertRetries = 3

// Adapter wraps a backend with the retry policy and backfill rules.
type Adapter struct {
	backend      Backend
	backfillDays int
}

func NewAdapter(backend Backend, backfillDays int) *Adapter {
	return &Adapter{backend: backend, backfillDays: backfillDays}
}

// Ping verifies the store is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.backend.Ping(ctx)
}

// Close releases backend resources.
func (a *Adapter) Close() {
	a.backend.Close()
}

// Insert writes one detection. Transient failures are retried up to three
// times with exponential jittered backoff; a duplicate is returned as-is
// for the caller's counter. The evidence_id of a failed attempt is never
// reused — callers mint a fresh detection per attempt at the orchestrator
// level, and the adapter itself never mutates it.
func (a *Adapter) Insert(ctx context.Context, d models.Detection) (InsertResult, error) {
	d = a.applyBackfill(d)

	var lastErr error
	for attempt := 0; attempt <= insertRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			backoff += time.Duration(rand.Int63n(int64(backoff) / 2))
			select {
			case <-ctx.Done():
				return Transient, ctx.Err()
			case <-time.After(backoff):
			}
		}

		res, err := a.backend.InsertDetection(ctx, d)
		switch res {
		case Inserted, Duplicate, Fatal:
			return res, err
		case Transient:
			lastErr = err
			log.Printf("[Store] Transient insert error (attempt %d/%d) for %s: %v",
				attempt+1, insertRetries+1, d.ListingURL, err)
		}
	}
	return Transient, fmt.Errorf("insert failed after %d retries: %w", insertRetries, lastErr)
}

// InsertBatch writes rows one by one. Batching at the wire level is an
// optimization the backends may add; semantically each row stands alone,
// and a duplicate in the middle never poisons its neighbors.
func (a *Adapter) InsertBatch(ctx context.Context, ds []models.Detection) (inserted, duplicates int, failures []models.Detection) {
	for _, d := range ds {
		res, _ := a.Insert(ctx, d)
		switch res {
		case Inserted:
			inserted++
		case Duplicate:
			duplicates++
		default:
			failures = append(failures, d)
		}
	}
	return inserted, duplicates, failures
}

// applyBackfill enforces the backfill window: with backfill disabled any
// past-dated observation is reset to now; with a window configured,
// observations older than the window are clamped to its edge, and any
// observation more than a day old is tagged backfill=true.
func (a *Adapter) applyBackfill(d models.Detection) models.Detection {
	now := time.Now().UTC()
	age := now.Sub(d.ObservedAt)

	if a.backfillDays <= 0 {
		if age > 24*time.Hour {
			d.ObservedAt = now
		}
		return d
	}

	limit := time.Duration(a.backfillDays) * 24 * time.Hour
	if age > limit {
		d.ObservedAt = now.Add(-limit)
	}
	if now.Sub(d.ObservedAt) > 24*time.Hour {
		d.Backfill = true
	}
	return d
}
