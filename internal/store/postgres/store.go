// Package postgres provides the Postgres-backed provenance store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
	"github.com/jmbvcxd/socionics-harvester/internal/telemetry"
)

// defaultConfidence is assigned when the site publishes no confidence
// signal for a label.
const defaultConfidence = 0.7

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the store uses; pgxmock
// satisfies it for tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Store maps extraction tuples onto sources, personalities and
// sociotype labels. Sources and labels are append-only; personalities
// are deduplicated on canonical name.
type Store struct {
	pool   pgxPool
	ids    scrape.IDGenerator
	clock  scrape.Clock
	logger *zap.Logger
}

// New connects a Store using the provided config.
func New(ctx context.Context, cfg Config, ids scrape.IDGenerator, clock scrape.Clock, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(pool, ids, clock, logger)
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool pgxPool, ids scrape.IDGenerator, clock scrape.Clock, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, ids: ids, clock: clock, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InitSchema executes the schema DDL. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Persist writes each tuple in its own transaction: one source row,
// one personality insert-or-update, one label row. A failed tuple is
// recorded and the batch continues; duplicate source and label rows on
// re-scrape are deliberate provenance, only the personality is
// deduplicated.
func (s *Store) Persist(ctx context.Context, results []scrape.ExtractionResult, prov scrape.Provenance) (scrape.PersistReport, error) {
	var report scrape.PersistReport
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		created, canonical, err := s.persistTuple(ctx, r, prov)
		if err != nil {
			s.logger.Warn("tuple persist failed",
				zap.String("name", r.Name),
				zap.Error(err))
			telemetry.ObserveTupleFailure()
			report.Failures = append(report.Failures, scrape.TupleFailure{Name: r.Name, Err: err})
			continue
		}
		report.LabelsWritten++
		if created {
			report.PersonalitiesCreated++
			report.NewCanonicalNames = append(report.NewCanonicalNames, canonical)
		} else {
			report.PersonalitiesUpdated++
		}
	}
	telemetry.AddPersistedRows("sources", report.LabelsWritten)
	telemetry.AddPersistedRows("personalities", report.PersonalitiesCreated)
	telemetry.AddPersistedRows("sociotype_labels", report.LabelsWritten)
	return report, nil
}

func (s *Store) persistTuple(ctx context.Context, r scrape.ExtractionResult, prov scrape.Provenance) (created bool, canonical string, err error) {
	canonical = scrape.CanonicalName(r.Name)
	if canonical == "" {
		return false, "", fmt.Errorf("tuple has empty name")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, canonical, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	sourceID, err := s.insertSource(ctx, tx, r, prov)
	if err != nil {
		return false, canonical, err
	}

	personID, created, err := s.upsertPersonality(ctx, tx, r, canonical, sourceID)
	if err != nil {
		return false, canonical, err
	}

	if err = s.insertLabel(ctx, tx, r, prov, personID); err != nil {
		return false, canonical, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, canonical, fmt.Errorf("commit tx: %w", err)
	}
	return created, canonical, nil
}

func (s *Store) insertSource(ctx context.Context, tx pgx.Tx, r scrape.ExtractionResult, prov scrape.Provenance) (string, error) {
	sourceID, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate source id: %w", err)
	}

	metadata := map[string]any{
		"tier":         string(prov.Tier),
		"mode":         string(prov.Mode),
		"scraped_from": prov.Domain,
	}
	if prov.ArchiveURI != "" {
		metadata["archive_uri"] = prov.ArchiveURI
	}
	if prov.RawHash != "" {
		metadata["raw_sha256"] = prov.RawHash
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal source metadata: %w", err)
	}

	url := r.ProfileURL
	if url == "" {
		url = prov.SourceURL
	}

	rawText, err := renderRawText(r, prov.Tier)
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO sources (source_id, url, domain, scrape_date, license_note, raw_text, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sourceID,
		url,
		prov.Domain,
		s.clock.Now(),
		prov.LicenseNote,
		rawText,
		metadataJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert source: %w", err)
	}
	return sourceID, nil
}

// renderRawText keeps the extracted tuple itself in the source row:
// plain text on the static tier, JSON when the tuple came out of a
// rendered DOM.
func renderRawText(r scrape.ExtractionResult, tier scrape.Tier) (string, error) {
	if tier != scrape.TierBrowser {
		return fmt.Sprintf("Name: %s, Type: %s", r.Name, r.TypeCode), nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal raw tuple: %w", err)
	}
	return string(data), nil
}

// upsertPersonality looks up the canonical name under a row lock,
// inserting a new personality on first sighting and otherwise
// appending the source reference when it is not already present.
func (s *Store) upsertPersonality(ctx context.Context, tx pgx.Tx, r scrape.ExtractionResult, canonical, sourceID string) (string, bool, error) {
	var personID string
	err := tx.QueryRow(ctx,
		`SELECT person_id FROM personalities WHERE canonical_name = $1 FOR UPDATE`,
		canonical,
	).Scan(&personID)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		personID, err = s.ids.NewID()
		if err != nil {
			return "", false, fmt.Errorf("generate person id: %w", err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO personalities (person_id, name, canonical_name, description, source_refs, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			personID,
			r.Name,
			canonical,
			fmt.Sprintf("Notable figure with sociotype %s", r.TypeCode),
			[]string{sourceID},
			s.clock.Now(),
		)
		if err != nil {
			return "", false, fmt.Errorf("insert personality: %w", err)
		}
		return personID, true, nil

	case err != nil:
		return "", false, fmt.Errorf("lookup personality: %w", err)

	default:
		_, err = tx.Exec(ctx, `
UPDATE personalities SET source_refs = array_append(source_refs, $1)
WHERE person_id = $2 AND NOT ($1 = ANY(source_refs))`,
			sourceID,
			personID,
		)
		if err != nil {
			return "", false, fmt.Errorf("append source ref: %w", err)
		}
		return personID, false, nil
	}
}

func (s *Store) insertLabel(ctx context.Context, tx pgx.Tx, r scrape.ExtractionResult, prov scrape.Provenance, personID string) error {
	labelID, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate label id: %w", err)
	}
	confidence := defaultConfidence
	if r.Confidence != nil {
		confidence = *r.Confidence
	}
	_, err = tx.Exec(ctx, `
INSERT INTO sociotype_labels (label_id, person_id, label_source, socionics_type, dcnh, confidence, evidence, inserted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		labelID,
		personID,
		prov.LabelSource,
		r.TypeCode,
		nullable(r.DCNH),
		confidence,
		r.Evidence,
		s.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert label: %w", err)
	}
	return nil
}

// HasPersonality reports whether a personality with the canonical name
// already exists.
func (s *Store) HasPersonality(ctx context.Context, canonicalName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM personalities WHERE canonical_name = $1)`,
		canonicalName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("personality lookup: %w", err)
	}
	return exists, nil
}

// PersonalityView is the joined shape returned to callers displaying a
// stored personality with its most recent label.
type PersonalityView struct {
	Name        string
	TypeCode    string
	DCNH        string
	Confidence  float64
	LabelSource string
}

// LookupPersonality returns the most recently labeled personality
// whose canonical name contains the given name, or nil when none
// matches.
func (s *Store) LookupPersonality(ctx context.Context, name string) (*PersonalityView, error) {
	var (
		view PersonalityView
		dcnh *string
	)
	err := s.pool.QueryRow(ctx, `
SELECT p.name, l.socionics_type, l.dcnh, l.confidence, l.label_source
FROM personalities p
JOIN sociotype_labels l ON l.person_id = p.person_id
WHERE p.canonical_name LIKE '%' || $1 || '%' ESCAPE '\'
ORDER BY l.inserted_at DESC
LIMIT 1`,
		escapeLike(scrape.CanonicalName(name)),
	).Scan(&view.Name, &view.TypeCode, &dcnh, &view.Confidence, &view.LabelSource)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup personality view: %w", err)
	}
	if dcnh != nil {
		view.DCNH = *dcnh
	}
	return &view, nil
}

// escapeLike neutralizes LIKE metacharacters so a looked-up name only
// ever matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
