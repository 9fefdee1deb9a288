package container

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachtrend/internal"
	"breachtrend/internal/config"
	"breachtrend/internal/errors"
	"breachtrend/internal/testkit"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewWithoutDatabase(t *testing.T) {
	c, err := New(loadConfig(t), internal.NewNopLogger())
	require.NoError(t, err)

	assert.NotNil(t, c.TrendService)
	assert.NotNil(t, c.Reader)
	assert.False(t, c.Persistent())
	assert.Equal(t, 1000, c.Defaults().Iterations)
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestUseReports(t *testing.T) {
	c, err := New(loadConfig(t), internal.NewNopLogger())
	require.NoError(t, err)

	c.UseReports(testkit.NewInMemoryReportRepository())
	assert.True(t, c.Persistent())
}

func TestInitWithDatabase(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(mockDB, "sqlmock")

	c, err := New(loadConfig(t), internal.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, c.InitWithDatabase(db))
	assert.True(t, c.Persistent())

	mock.ExpectClose()
	require.NoError(t, c.Shutdown(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), config.DatabaseConfig{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
