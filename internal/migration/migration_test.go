package migration

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"breachtrend/internal/errors"
)

func TestRunCreatesSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS trend_reports",
		"CREATE TABLE IF NOT EXISTS trend_report_rows",
		"idx_trend_reports_created_at",
		"idx_trend_reports_fingerprint",
	} {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := NewRunner().Run(context.Background(), sqlx.NewDb(db, "postgres")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled sqlmock expectations: %v", err)
	}
}

func TestRunReportsDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trend_reports")).
		WillReturnError(fmt.Errorf("permission denied for schema public"))

	err = NewRunner().Run(context.Background(), sqlx.NewDb(db, "postgres"))
	if err == nil {
		t.Fatal("expected error")
	}
	if code := errors.GetCode(err); code != errors.CodeDatabaseError {
		t.Errorf("code = %s, want %s", code, errors.CodeDatabaseError)
	}
}
