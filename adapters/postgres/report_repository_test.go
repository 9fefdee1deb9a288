package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachtrend/domain/core"
	"breachtrend/domain/trend"
)

const testReportID = "0190f5a2-7c1e-7d4e-9a4b-1f2e3d4c5b6a"

var reportColumns = []string{"id", "created_at", "dataset_fingerprint", "records", "seed", "quantiles", "reference",
	"iterations_attempted", "iterations_succeeded", "iterations_skipped", "confidence", "duration_ms"}

func newMockRepo(t *testing.T) (*ReportRepositoryImpl, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &ReportRepositoryImpl{db: sqlx.NewDb(db, "postgres")}, mock
}

func sampleReport() *trend.Report {
	return &trend.Report{
		ID:          core.ReportID(testReportID),
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Fingerprint: core.Hash("abc123"),
		Records:     10000,
		Seed:        42,
		Quantiles:   []trend.Quantile{0.5, 0.95},
		Reference:   "B",
		Attempted:   1000,
		Succeeded:   999,
		Skipped:     1,
		Confidence:  0.95,
		DurationMs:  1234,
		Baseline:    []trend.ReportRow{{Cause: "B", Tau: 0.5, Slope: 0, Samples: 999}},
		Rows: []trend.ReportRow{
			{Cause: "A", Tau: 0.5, Slope: 0.0005, PctChange: 20.04, CILoPct: 18, CIHiPct: 22, StdErr: 1e-5, Samples: 999},
			{Cause: "A", Tau: 0.95, Slope: 0.0004, PctChange: 15.7, CILoPct: 10, CIHiPct: 21, StdErr: 3e-5, Samples: 999},
		},
	}
}

func TestSaveReport(t *testing.T) {
	repo, mock := newMockRepo(t)
	report := sampleReport()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trend_reports")).
		WithArgs(testReportID, sqlmock.AnyArg(), "abc123", 10000, int64(42), "0.5,0.95", "B", 1000, 999, 1, 0.95, int64(1234)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trend_report_rows")).
		WithArgs(testReportID, 0, "baseline", "B", 0.5, 0.0, 0.0, 0.0, 0.0, 0.0, 999).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trend_report_rows")).
		WithArgs(testReportID, 1, "cause", "A", 0.5, 0.0005, 20.04, 18.0, 22.0, 1e-5, 999).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trend_report_rows")).
		WithArgs(testReportID, 2, "cause", "A", 0.95, 0.0004, 15.7, 10.0, 21.0, 3e-5, 999).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), report))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled sqlmock expectations: %v", err)
	}
}

func TestSaveReportRollsBackOnRowFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trend_reports")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trend_report_rows")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled sqlmock expectations: %v", err)
	}
}

func TestGetReportByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM trend_reports")).
		WithArgs(testReportID).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow(testReportID, created, "abc123", 10000, 42, "0.5,0.95", "B", 1000, 999, 1, 0.95, 1234))
	mock.ExpectQuery(regexp.QuoteMeta("FROM trend_report_rows")).
		WithArgs(testReportID).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "cause", "tau", "slope", "pct_change", "ci_lo_pct", "ci_hi_pct", "std_err", "samples"}).
			AddRow("baseline", "B", 0.5, 0.0, 0.0, -1.0, 1.0, 1e-5, 999).
			AddRow("cause", "A", 0.5, 0.0005, 20.04, 18.0, 22.0, 1e-5, 999))

	report, err := repo.GetByID(context.Background(), core.ReportID(testReportID))
	require.NoError(t, err)
	assert.Equal(t, []trend.Quantile{0.5, 0.95}, report.Quantiles)
	assert.Equal(t, created, report.CreatedAt)
	require.Len(t, report.Baseline, 1)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "A", report.Rows[0].Cause)
	assert.Equal(t, 20.04, report.Rows[0].PctChange)
	assert.Nil(t, report.Models)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled sqlmock expectations: %v", err)
	}
}

func TestGetReportNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM trend_reports")).
		WithArgs(testReportID).
		WillReturnRows(sqlmock.NewRows(reportColumns))

	_, err := repo.GetByID(context.Background(), core.ReportID(testReportID))
	assert.True(t, core.IsNotFoundError(err), "got %v", err)
}

func TestListRecentReports(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow(testReportID, created, "abc123", 10000, 42, "0.5,0.95", "B", 1000, 999, 1, 0.95, 1234).
			AddRow("0190f5a2-0000-7d4e-9a4b-1f2e3d4c5b6a", created.Add(-time.Hour), "def456", 500, 7, "0.5", "Hacking", 100, 100, 0, 0.9, 55))

	reports, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Hacking", reports[1].Reference)
	assert.Equal(t, []trend.Quantile{0.5}, reports[1].Quantiles)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled sqlmock expectations: %v", err)
	}
}
