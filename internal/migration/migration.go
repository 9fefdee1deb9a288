package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"breachtrend/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the report storage schema. Every statement is idempotent.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createTrendReportsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create trend_reports table"))
	}

	if err := r.createTrendReportRowsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create trend_report_rows table"))
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create indexes"))
	}

	return nil
}

func (r *MigrationRunner) createTrendReportsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trend_reports (
			id UUID PRIMARY KEY,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			dataset_fingerprint VARCHAR(64) NOT NULL,
			records INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			quantiles TEXT NOT NULL,
			reference TEXT NOT NULL,
			iterations_attempted INTEGER NOT NULL,
			iterations_succeeded INTEGER NOT NULL,
			iterations_skipped INTEGER NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0
		)
	`)
	return err
}

func (r *MigrationRunner) createTrendReportRowsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trend_report_rows (
			report_id UUID NOT NULL REFERENCES trend_reports(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			kind VARCHAR(16) NOT NULL CHECK (kind IN ('cause', 'baseline')),
			cause TEXT NOT NULL,
			tau DOUBLE PRECISION NOT NULL,
			slope DOUBLE PRECISION NOT NULL,
			pct_change DOUBLE PRECISION NOT NULL,
			ci_lo_pct DOUBLE PRECISION NOT NULL,
			ci_hi_pct DOUBLE PRECISION NOT NULL,
			std_err DOUBLE PRECISION NOT NULL,
			samples INTEGER NOT NULL,
			PRIMARY KEY (report_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_trend_reports_created_at ON trend_reports(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_trend_reports_fingerprint ON trend_reports(dataset_fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
