// Package archive persists batch run history in a SQLite database.
//
// Each run appends one row per summary record, keyed by the run ID, so
// repeated analyses of evolving datasets can be compared later without
// hunting for timestamped CSV files. Undefined metrics are stored as NULL.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/punctalab/nndquant/internal/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	generated_at TEXT NOT NULL,
	input_count  INTEGER NOT NULL,
	skip_count   INTEGER NOT NULL,
	output_path  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	run_id           TEXT NOT NULL REFERENCES runs(run_id),
	sample_id        TEXT NOT NULL,
	label            TEXT NOT NULL,
	puncta_count     INTEGER NOT NULL,
	mean_nnd         REAL,
	mean_inverse_nnd REAL,
	status           TEXT NOT NULL,
	PRIMARY KEY (run_id, sample_id)
);
`

// Archive is a SQLite-backed run history.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the run history database at path and
// ensures the schema exists.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ensure schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveRun appends one run and all of its summary records in a single
// transaction.
func (a *Archive) SaveRun(ctx context.Context, result *domain.BatchResult) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs(run_id, generated_at, input_count, skip_count, output_path) VALUES(?, ?, ?, ?, ?)`,
		result.RunID,
		result.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
		len(result.Records),
		len(result.Skipped),
		result.OutputPath,
	)
	if err != nil {
		return fmt.Errorf("archive: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records(run_id, sample_id, label, puncta_count, mean_nnd, mean_inverse_nnd, status) VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("archive: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range result.Records {
		_, err := stmt.ExecContext(ctx,
			result.RunID, r.SampleID, r.Label, r.PunctaCount,
			nullableMetric(r.MeanNND), nullableMetric(r.MeanInverseNND), string(r.Status))
		if err != nil {
			return fmt.Errorf("archive: insert record %s: %w", r.SampleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// RunCount returns the number of archived runs. Used by callers that report
// history size.
func (a *Archive) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("archive: count runs: %w", err)
	}
	return n, nil
}

// nullableMetric maps the NaN sentinel to SQL NULL.
func nullableMetric(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
