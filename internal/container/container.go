package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"breachtrend/adapters/excel"
	"breachtrend/adapters/postgres"
	"breachtrend/adapters/rng"
	"breachtrend/adapters/stats/quantreg"
	"breachtrend/app"
	"breachtrend/internal"
	"breachtrend/internal/analysis/estimation"
	"breachtrend/internal/config"
	"breachtrend/internal/errors"
	"breachtrend/internal/migration"
	"breachtrend/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Adapters
	Reader  ports.RecordReader
	Fitter  ports.QuantileFitter
	RNG     ports.RNGPort
	Reports ports.ReportRepository // nil until a database or fallback is attached

	// Services
	TrendService *app.TrendService

	defaults estimation.Options
}

// New creates a container with every adapter that does not need a database
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	defaults, err := cfg.Trend.Options()
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "invalid trend defaults")
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Reader:   excel.NewBreachReader(excel.DefaultReaderConfig(), logger),
		Fitter:   quantreg.NewFitter(defaults.Reference, quantreg.DefaultOptions(), logger),
		RNG:      rng.NewPCGAdapter(),
		defaults: defaults,
	}
	c.rebuildServices()
	return c, nil
}

// Defaults returns the configured estimation options
func (c *Container) Defaults() estimation.Options {
	return c.defaults
}

// Connect opens the configured database and runs migrations
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, errors.ConfigInvalid("database.url is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

// InitWithDatabase switches report persistence to PostgreSQL
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db
	c.Reports = postgres.NewReportRepository(db)
	c.rebuildServices()
	c.Logger.Info("[Container] Report persistence backed by PostgreSQL")
	return nil
}

// UseReports attaches any report repository, e.g. an in-memory store when no database is configured
func (c *Container) UseReports(reports ports.ReportRepository) {
	c.Reports = reports
	c.rebuildServices()
}

// Persistent reports whether reports can be saved
func (c *Container) Persistent() bool {
	return c.Reports != nil
}

func (c *Container) rebuildServices() {
	c.TrendService = app.NewTrendService(c.Fitter, c.RNG, c.Reports, c.Logger)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		c.Logger.Info("[Container] Database connection closed")
	}
	return nil
}
