package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// schemaSQL is compiled into the binary so schema init works wherever the
// binary lands, including the cron runner image.
//
//go:embed schema.sql
var schemaSQL string

// PostgresBackend writes detections straight into Postgres. It doubles as
// the row-upsert cursor store when configured, removing the filesystem
// dependency for rotation state.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// ConnectPostgres initializes the pgx connection pool.
func ConnectPostgres(ctx context.Context, connStr string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	log.Println("[Store] Connected to PostgreSQL detections store")
	return &PostgresBackend{pool: pool}, nil
}

// InitSchema executes the embedded DDL. Idempotent.
func (b *PostgresBackend) InitSchema(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("schema init failed: %w", err)
	}
	log.Println("[Store] Detections schema initialized")
	return nil
}

func (b *PostgresBackend) InsertDetection(ctx context.Context, d models.Detection) (InsertResult, error) {
	sql := `
		INSERT INTO detections
			(evidence_id, observed_at, platform, listing_url, listing_title,
			 listing_description, listing_price, listing_location, search_term,
			 threat_score, threat_level, threat_category, requires_human_review,
			 confidence_score, enhancement_notes, vision_analyzed, backfill)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (listing_url) DO NOTHING;
	`
	tag, err := b.pool.Exec(ctx, sql,
		d.EvidenceID, d.ObservedAt, string(d.Platform), d.ListingURL, d.ListingTitle,
		d.ListingDesc, d.ListingPrice, d.ListingLocation, d.SearchTerm,
		d.ThreatScore, string(d.ThreatLevel), string(d.ThreatCategory), d.RequiresReview,
		d.ConfidenceScore, d.EnhancementNotes, d.VisionAnalyzed, d.Backfill)
	if err != nil {
		return classifyPgError(err), err
	}
	if tag.RowsAffected() == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// classifyPgError maps a pgx error onto the adapter's result taxonomy.
func classifyPgError(err error) InsertResult {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return Duplicate
		case pgErr.Code == "28P01" || pgErr.Code == "42P01" || pgErr.Code == "42703":
			// auth failure / missing table / missing column
			return Fatal
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	return Transient
}

// ─── Cursor row store (rotation.CursorStore) ────────────────────────

func (b *PostgresBackend) Load(ctx context.Context, domain models.ThreatDomain, groupID int) (models.KeywordCursor, bool, error) {
	var cur models.KeywordCursor
	var lastRun *time.Time

	err := b.pool.QueryRow(ctx, `
		SELECT corpus_version, last_index, total_keywords, completed_cycles, batch_size, last_run
		FROM keyword_cursors WHERE domain = $1 AND group_id = $2`,
		string(domain), groupID,
	).Scan(&cur.CorpusVersion, &cur.LastIndex, &cur.TotalKeywords, &cur.CompletedCycles, &cur.BatchSize, &lastRun)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.KeywordCursor{}, false, nil
		}
		return models.KeywordCursor{}, false, err
	}

	cur.GroupID = groupID
	if lastRun != nil {
		cur.LastRun = *lastRun
	}
	return cur, true, nil
}

func (b *PostgresBackend) Save(ctx context.Context, domain models.ThreatDomain, cur models.KeywordCursor) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO keyword_cursors
			(domain, group_id, corpus_version, last_index, total_keywords, completed_cycles, batch_size, last_run)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (domain, group_id) DO UPDATE SET
			corpus_version = EXCLUDED.corpus_version,
			last_index = EXCLUDED.last_index,
			total_keywords = EXCLUDED.total_keywords,
			completed_cycles = EXCLUDED.completed_cycles,
			batch_size = EXCLUDED.batch_size,
			last_run = EXCLUDED.last_run;`,
		string(domain), cur.GroupID, cur.CorpusVersion, cur.LastIndex,
		cur.TotalKeywords, cur.CompletedCycles, cur.BatchSize, cur.LastRun)
	return err
}
