package app

import (
	"context"
	"time"

	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
	"breachtrend/internal"
	"breachtrend/internal/analysis/estimation"
	"breachtrend/internal/errors"
	"breachtrend/internal/metrics"
	"breachtrend/ports"
)

// TrendService runs the full estimation pipeline: full-data fit, slope
// extraction, bootstrap, interval aggregation and report assembly
type TrendService struct {
	fitter  ports.QuantileFitter
	rngPort ports.RNGPort
	reports ports.ReportRepository // nil disables persistence
	logger  *internal.Logger
}

// TrendRequest defines the inputs for one estimation run
type TrendRequest struct {
	Records *breach.RecordSet
	Options estimation.Options
	Save    bool
}

// FitResult is the full-data fit without bootstrap intervals
type FitResult struct {
	Levels breach.Levels
	Models trend.Models
	Points trend.PointEstimates
}

// NewTrendService creates a trend service; reports may be nil
func NewTrendService(fitter ports.QuantileFitter, rngPort ports.RNGPort, reports ports.ReportRepository, logger *internal.Logger) *TrendService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &TrendService{
		fitter:  fitter,
		rngPort: rngPort,
		reports: reports,
		logger:  logger,
	}
}

// Fit fits every quantile on the full records and extracts per-cause slopes.
// A model fit failure here is fatal since there is nothing to fall back to.
func (s *TrendService) Fit(ctx context.Context, records *breach.RecordSet, opts estimation.Options) (*FitResult, error) {
	if records == nil || records.Len() == 0 {
		return nil, errors.FromDomain(core.ErrEmptyDataset)
	}
	opts, err := opts.Normalize()
	if err != nil {
		return nil, errors.Wrap(errors.InvalidInput(err.Error()), "invalid trend options")
	}
	levels, err := records.Levels(opts.Reference)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidInput(err.Error()), "cannot resolve cause levels")
	}

	models, err := s.fitter.FitLevels(ctx, records, levels, opts.Quantiles)
	if err != nil {
		return nil, errors.Wrap(err, "full-data fit failed")
	}
	points, err := estimation.ExtractAll(models)
	if err != nil {
		return nil, errors.Wrap(err, "slope extraction failed")
	}
	return &FitResult{Levels: levels, Models: models, Points: points}, nil
}

// Run executes a complete estimation and optionally stores the report
func (s *TrendService) Run(ctx context.Context, req TrendRequest) (report *trend.Report, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRun(time.Since(start), err) }()

	opts, err := req.Options.Normalize()
	if err != nil {
		return nil, errors.Wrap(errors.InvalidInput(err.Error()), "invalid trend options")
	}
	fit, err := s.Fit(ctx, req.Records, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Info("[TrendService] Full-data fit done: %d records, %d causes, reference %q",
		req.Records.Len(), len(fit.Levels.Order), fit.Levels.Reference())

	bootstrapper := estimation.NewBootstrapper(s.fitter, s.rngPort, estimation.BootstrapConfig{
		Iterations: opts.Iterations,
		Workers:    opts.Workers,
		Seed:       opts.Seed,
		Reference:  opts.Reference,
	}, s.logger)
	boot, err := bootstrapper.RunLevels(ctx, req.Records, fit.Levels, opts.Quantiles)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap failed")
	}
	if boot.Skipped > 0 {
		s.logger.Warn("[TrendService] %d of %d bootstrap iterations skipped after model fit failures",
			boot.Skipped, boot.Attempted)
	}

	expected := make([]trend.Key, 0, len(opts.Quantiles)*len(fit.Levels.Order))
	for _, tau := range opts.Quantiles {
		for _, c := range fit.Levels.Order {
			expected = append(expected, trend.Key{Cause: c, Tau: tau})
		}
	}
	intervals, err := estimation.Aggregate(boot.Draws, estimation.AggregateOptions{
		Confidence: opts.Confidence,
		MinSamples: opts.MinSamples,
		Expected:   expected,
		Attempted:  boot.Attempted,
		Succeeded:  boot.Succeeded,
	})
	if err != nil {
		return nil, errors.Wrap(err, "interval aggregation failed")
	}

	report, err = estimation.BuildReport(fit.Points, intervals, estimation.ReportMeta{
		Levels:      fit.Levels,
		Quantiles:   opts.Quantiles,
		Seed:        opts.Seed,
		Confidence:  opts.Confidence,
		Records:     req.Records.Len(),
		Fingerprint: req.Records.Fingerprint(),
		Attempted:   boot.Attempted,
		Succeeded:   boot.Succeeded,
		Skipped:     boot.Skipped,
		Models:      fit.Models,
	})
	if err != nil {
		return nil, errors.Wrap(err, "report assembly failed")
	}
	report.ID = core.NewReportID()
	report.CreatedAt = time.Now().UTC()
	report.DurationMs = time.Since(start).Milliseconds()

	if req.Save {
		if s.reports == nil {
			return nil, errors.ConfigInvalid("report persistence is not configured")
		}
		if err := s.reports.Save(ctx, report); err != nil {
			return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to save report"))
		}
	}

	s.logger.Info("[TrendService] Report %s built in %dms (%d/%d iterations used)",
		report.ID, report.DurationMs, report.Succeeded, report.Attempted)
	return report, nil
}

// GetReport loads a stored report
func (s *TrendService) GetReport(ctx context.Context, id core.ReportID) (*trend.Report, error) {
	if s.reports == nil {
		return nil, errors.ConfigInvalid("report persistence is not configured")
	}
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return report, nil
}

// ListReports returns the most recent stored reports
func (s *TrendService) ListReports(ctx context.Context, limit int) ([]*trend.Report, error) {
	if s.reports == nil {
		return nil, errors.ConfigInvalid("report persistence is not configured")
	}
	return s.reports.ListRecent(ctx, limit)
}
