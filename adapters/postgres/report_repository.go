package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"breachtrend/domain/core"
	"breachtrend/domain/trend"
	"breachtrend/ports"
)

const (
	rowKindCause    = "cause"
	rowKindBaseline = "baseline"
)

// reportRecord mirrors the trend_reports table
type reportRecord struct {
	ID          string    `db:"id"`
	CreatedAt   time.Time `db:"created_at"`
	Fingerprint string    `db:"dataset_fingerprint"`
	Records     int       `db:"records"`
	Seed        int64     `db:"seed"`
	Quantiles   string    `db:"quantiles"`
	Reference   string    `db:"reference"`
	Attempted   int       `db:"iterations_attempted"`
	Succeeded   int       `db:"iterations_succeeded"`
	Skipped     int       `db:"iterations_skipped"`
	Confidence  float64   `db:"confidence"`
	DurationMs  int64     `db:"duration_ms"`
}

// rowRecord mirrors the trend_report_rows table
type rowRecord struct {
	Kind      string  `db:"kind"`
	Cause     string  `db:"cause"`
	Tau       float64 `db:"tau"`
	Slope     float64 `db:"slope"`
	PctChange float64 `db:"pct_change"`
	CILoPct   float64 `db:"ci_lo_pct"`
	CIHiPct   float64 `db:"ci_hi_pct"`
	StdErr    float64 `db:"std_err"`
	Samples   int     `db:"samples"`
}

// ReportRepositoryImpl implements ReportRepository for PostgreSQL
type ReportRepositoryImpl struct {
	db *sqlx.DB
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &ReportRepositoryImpl{db: db}
}

// Save stores a report and its rows in one transaction
func (r *ReportRepositoryImpl) Save(ctx context.Context, report *trend.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report has no ID")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trend_reports (id, created_at, dataset_fingerprint, records, seed, quantiles, reference,
			iterations_attempted, iterations_succeeded, iterations_skipped, confidence, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, report.ID.String(), report.CreatedAt, report.Fingerprint.String(), report.Records, report.Seed,
		joinQuantiles(report.Quantiles), report.Reference, report.Attempted, report.Succeeded, report.Skipped,
		report.Confidence, report.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to insert trend report: %w", err)
	}

	position := 0
	insert := func(kind string, rows []trend.ReportRow) error {
		for _, row := range rows {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO trend_report_rows (report_id, position, kind, cause, tau, slope, pct_change,
					ci_lo_pct, ci_hi_pct, std_err, samples)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, report.ID.String(), position, kind, row.Cause, float64(row.Tau), row.Slope, row.PctChange,
				row.CILoPct, row.CIHiPct, row.StdErr, row.Samples)
			if err != nil {
				return fmt.Errorf("failed to insert report row %d: %w", position, err)
			}
			position++
		}
		return nil
	}
	if err := insert(rowKindBaseline, report.Baseline); err != nil {
		return err
	}
	if err := insert(rowKindCause, report.Rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trend report: %w", err)
	}
	return nil
}

// GetByID loads a report with all of its rows
func (r *ReportRepositoryImpl) GetByID(ctx context.Context, id core.ReportID) (*trend.Report, error) {
	var rec reportRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, created_at, dataset_fingerprint, records, seed, quantiles, reference,
			iterations_attempted, iterations_succeeded, iterations_skipped, confidence, duration_ms
		FROM trend_reports
		WHERE id = $1
	`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get trend report: %w", err)
	}

	report, err := rec.toReport()
	if err != nil {
		return nil, err
	}

	var rows []rowRecord
	err = r.db.SelectContext(ctx, &rows, `
		SELECT kind, cause, tau, slope, pct_change, ci_lo_pct, ci_hi_pct, std_err, samples
		FROM trend_report_rows
		WHERE report_id = $1
		ORDER BY position
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get trend report rows: %w", err)
	}
	for _, row := range rows {
		rr := trend.ReportRow{
			Cause:     row.Cause,
			Tau:       trend.Quantile(row.Tau),
			Slope:     row.Slope,
			PctChange: row.PctChange,
			CILoPct:   row.CILoPct,
			CIHiPct:   row.CIHiPct,
			StdErr:    row.StdErr,
			Samples:   row.Samples,
		}
		if row.Kind == rowKindBaseline {
			report.Baseline = append(report.Baseline, rr)
		} else {
			report.Rows = append(report.Rows, rr)
		}
	}
	return report, nil
}

// ListRecent returns report headers, newest first. Rows are not loaded.
func (r *ReportRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*trend.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []reportRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT id, created_at, dataset_fingerprint, records, seed, quantiles, reference,
			iterations_attempted, iterations_succeeded, iterations_skipped, confidence, duration_ms
		FROM trend_reports
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trend reports: %w", err)
	}

	reports := make([]*trend.Report, 0, len(recs))
	for _, rec := range recs {
		report, err := rec.toReport()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (rec reportRecord) toReport() (*trend.Report, error) {
	qs, err := trend.ParseQuantiles(rec.Quantiles)
	if err != nil {
		return nil, fmt.Errorf("corrupt quantiles for report %s: %w", rec.ID, err)
	}
	return &trend.Report{
		ID:          core.ReportID(rec.ID),
		CreatedAt:   rec.CreatedAt,
		Fingerprint: core.Hash(rec.Fingerprint),
		Records:     rec.Records,
		Seed:        rec.Seed,
		Quantiles:   qs,
		Reference:   rec.Reference,
		Attempted:   rec.Attempted,
		Succeeded:   rec.Succeeded,
		Skipped:     rec.Skipped,
		Confidence:  rec.Confidence,
		DurationMs:  rec.DurationMs,
		Rows:        []trend.ReportRow{},
		Baseline:    []trend.ReportRow{},
	}, nil
}

func joinQuantiles(qs []trend.Quantile) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = q.String()
	}
	return strings.Join(parts, ",")
}
