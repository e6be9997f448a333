// Package rotation assigns each worker invocation a disjoint, covering
// slice of the keyword corpus and keeps the durable per-group cursor that
// makes coverage exhaustive across short-lived runs.
package rotation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sentryowl/marketwatch-engine/internal/rules"
	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// CursorStore abstracts cursor durability. The file store is the default;
// a Postgres row upsert is used when the store collaborator is configured.
type CursorStore interface {
	// Load returns the cursor for (domain, groupID). ok=false means no
	// cursor exists yet (fresh state), which is not an error.
	Load(ctx context.Context, domain models.ThreatDomain, groupID int) (cur models.KeywordCursor, ok bool, err error)

	// Save durably replaces the cursor. Writers never partially update.
	Save(ctx context.Context, domain models.ThreatDomain, cur models.KeywordCursor) error
}

// Batch is one invocation's keyword slice.
type Batch struct {
	Keywords   []string
	StartIndex int
	EndIndex   int // exclusive
	Cursor     models.KeywordCursor
}

// Engine computes batches and owns the single cursor write per invocation.
// Each group writes only its own cursor, so no cross-group locking exists.
type Engine struct {
	store   CursorStore
	domain  models.ThreatDomain
	groupID int
	batch   int
	terms   []string
	version string
}

func NewEngine(store CursorStore, domain models.ThreatDomain, groupID, batchSize int) (*Engine, error) {
	return newEngine(store, domain, groupID, batchSize, rules.CorpusTerms(domain), rules.CorpusVersion(domain))
}

func newEngine(store CursorStore, domain models.ThreatDomain, groupID, batchSize int, terms []string, version string) (*Engine, error) {
	if groupID < 1 {
		return nil, fmt.Errorf("group_id must be >= 1, got %d", groupID)
	}
	if batchSize < 1 || batchSize > 200 {
		return nil, fmt.Errorf("batch_size must be in [1,200], got %d", batchSize)
	}
	return &Engine{store: store, domain: domain, groupID: groupID, batch: batchSize, terms: terms, version: version}, nil
}

// groupOffset staggers the groups' starting windows so first runs cover
// pairwise-disjoint slices: ((g-1) * B) mod N.
func groupOffset(groupID, batchSize, total int) int {
	if total == 0 {
		return 0
	}
	return ((groupID - 1) * batchSize) % total
}

// NextBatch loads (or initializes) the cursor and returns this
// invocation's keyword slice. A corpus version mismatch resets the cursor
// to this group's initial offset; reaching the end of the corpus wraps to
// the offset and increments completed_cycles.
func (e *Engine) NextBatch(ctx context.Context) (Batch, error) {
	terms, version := e.terms, e.version
	n := len(terms)

	cur, ok, err := e.store.Load(ctx, e.domain, e.groupID)
	if err != nil {
		return Batch{}, fmt.Errorf("load cursor: %w", err)
	}

	if !ok {
		cur = models.KeywordCursor{
			CorpusVersion: version,
			LastIndex:     groupOffset(e.groupID, e.batch, n),
			TotalKeywords: n,
			GroupID:       e.groupID,
			BatchSize:     e.batch,
		}
		log.Printf("[Rotation] Fresh cursor for group %d (%s): start=%d of %d",
			e.groupID, e.domain, cur.LastIndex, n)
	}

	if cur.CorpusVersion != version {
		log.Printf("[Rotation] Corpus version changed (%s -> %s), resetting group %d cursor",
			cur.CorpusVersion, version, e.groupID)
		cur.CorpusVersion = version
		cur.LastIndex = groupOffset(e.groupID, e.batch, n)
		cur.CompletedCycles = 0
	}
	cur.TotalKeywords = n
	cur.BatchSize = e.batch

	if cur.LastIndex >= n {
		cur.LastIndex = groupOffset(e.groupID, e.batch, n)
		cur.CompletedCycles++
		log.Printf("[Rotation] Group %d wrapped: cycle %d complete", e.groupID, cur.CompletedCycles)
	}

	start := cur.LastIndex
	end := start + e.batch
	if end > n {
		end = n
	}

	return Batch{
		Keywords:   terms[start:end],
		StartIndex: start,
		EndIndex:   end,
		Cursor:     cur,
	}, nil
}

// Commit persists the cursor exactly once, advancing past the keywords
// that were fully processed. Partially processed keywords are re-scanned
// next invocation. Called even on timeout.
func (e *Engine) Commit(ctx context.Context, b Batch, fullyProcessed int) error {
	if fullyProcessed < 0 {
		fullyProcessed = 0
	}
	if max := b.EndIndex - b.StartIndex; fullyProcessed > max {
		fullyProcessed = max
	}

	cur := b.Cursor
	cur.LastIndex = b.StartIndex + fullyProcessed
	cur.LastRun = time.Now().UTC()

	if err := e.store.Save(ctx, e.domain, cur); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	log.Printf("[Rotation] Cursor committed: group %d index %d/%d (cycle %d)",
		e.groupID, cur.LastIndex, cur.TotalKeywords, cur.CompletedCycles)
	return nil
}

// ─── File-backed cursor store ───────────────────────────────────────

// FileStore keeps one JSON document per (domain, group) in stateDir.
// Writes are temp-file-plus-rename so readers never observe a partial
// document.
type FileStore struct {
	stateDir string
}

func NewFileStore(stateDir string) *FileStore {
	if stateDir == "" {
		stateDir = "."
	}
	return &FileStore{stateDir: stateDir}
}

func (fs *FileStore) path(domain models.ThreatDomain, groupID int) string {
	return filepath.Join(fs.stateDir, fmt.Sprintf("%s_keyword_state_g%d.json", domain, groupID))
}

func (fs *FileStore) Load(_ context.Context, domain models.ThreatDomain, groupID int) (models.KeywordCursor, bool, error) {
	data, err := os.ReadFile(fs.path(domain, groupID))
	if err != nil {
		if os.IsNotExist(err) {
			return models.KeywordCursor{}, false, nil
		}
		return models.KeywordCursor{}, false, err
	}

	var cur models.KeywordCursor
	if err := json.Unmarshal(data, &cur); err != nil {
		// A corrupt cursor is treated as fresh state after logging; the
		// cost is at most one re-scanned cycle window.
		log.Printf("[Rotation] Corrupt cursor file %s: %v (resetting)", fs.path(domain, groupID), err)
		return models.KeywordCursor{}, false, nil
	}
	return cur, true, nil
}

func (fs *FileStore) Save(_ context.Context, domain models.ThreatDomain, cur models.KeywordCursor) error {
	data, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return err
	}

	path := fs.path(domain, cur.GroupID)
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
