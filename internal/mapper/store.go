package mapper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/pic"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/postgres"
)

// Schema creates the table Store writes to.
const Schema = `CREATE TABLE IF NOT EXISTS pic_results (
    job_id       TEXT NOT NULL,
    feature_id   TEXT NOT NULL,
    fingerprint  TEXT NOT NULL,
    discarded    BOOLEAN NOT NULL,
    matched      INTEGER NOT NULL,
    missing      INTEGER NOT NULL,
    out_of_range INTEGER NOT NULL,
    summary      JSONB NOT NULL,
    mapped_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (job_id, feature_id)
)`

// Store persists feature summaries in PostgreSQL. Pair lists are not stored;
// they travel on the results topic.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "pic-store"),
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema)
}

// Save upserts the summaries of one job.
func (s *Store) Save(ctx context.Context, jobID, fingerprint string, results []Result) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO pic_results
				(job_id, feature_id, fingerprint, discarded, matched, missing, out_of_range, summary, mapped_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (job_id, feature_id) DO UPDATE SET
				fingerprint = EXCLUDED.fingerprint,
				discarded = EXCLUDED.discarded,
				matched = EXCLUDED.matched,
				missing = EXCLUDED.missing,
				out_of_range = EXCLUDED.out_of_range,
				summary = EXCLUDED.summary,
				mapped_at = EXCLUDED.mapped_at`)
		if err != nil {
			return fmt.Errorf("preparing result insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, r := range results {
			summary, err := gojson.Marshal(r.Summary)
			if err != nil {
				return fmt.Errorf("marshaling summary of %s: %w", r.FeatureID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				jobID, r.FeatureID, fingerprint, r.Discarded,
				r.Summary.Matched, r.Summary.Missing, r.Summary.OutOfRange,
				summary, now,
			); err != nil {
				return fmt.Errorf("saving result %s/%s: %w", jobID, r.FeatureID, err)
			}
		}
		s.logger.Debug("results saved", "job_id", jobID, "count", len(results))
		return nil
	})
}

// Summaries returns the stored summaries of a job ordered by feature id.
func (s *Store) Summaries(ctx context.Context, jobID string) ([]pic.Summary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT summary FROM pic_results WHERE job_id = $1 ORDER BY feature_id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing summaries of %s: %w", jobID, err)
	}
	defer rows.Close()

	var summaries []pic.Summary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		var summary pic.Summary
		if err := gojson.Unmarshal(data, &summary); err != nil {
			s.logger.Warn("skipping corrupt summary", "job_id", jobID, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Summary loads one stored summary. It returns sql.ErrNoRows wrapped when
// the feature was never stored.
func (s *Store) Summary(ctx context.Context, jobID, featureID string) (pic.Summary, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT summary FROM pic_results WHERE job_id = $1 AND feature_id = $2`,
		jobID, featureID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return pic.Summary{}, fmt.Errorf("summary %s/%s: %w", jobID, featureID, err)
	}
	if err != nil {
		return pic.Summary{}, fmt.Errorf("querying summary %s/%s: %w", jobID, featureID, err)
	}
	var summary pic.Summary
	if err := gojson.Unmarshal(data, &summary); err != nil {
		return pic.Summary{}, fmt.Errorf("unmarshaling summary %s/%s: %w", jobID, featureID, err)
	}
	return summary, nil
}
