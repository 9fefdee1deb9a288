// Package quantreg fits linear quantile regressions of log breach cost on time,
// cause and their interaction.
package quantreg

import (
	"context"
	"math"
	"time"

	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
	"breachtrend/internal"
	"breachtrend/internal/metrics"
	"breachtrend/ports"
)

// Fitter implements ports.QuantileFitter with an IRLS solver
type Fitter struct {
	rule   breach.ReferenceRule
	opts   Options
	logger *internal.Logger
}

var _ ports.QuantileFitter = (*Fitter)(nil)

// NewFitter creates a fitter that picks the reference cause with rule
func NewFitter(rule breach.ReferenceRule, opts Options, logger *internal.Logger) *Fitter {
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultOptions().MaxIter
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if opts.ResidualFloor <= 0 {
		opts.ResidualFloor = DefaultOptions().ResidualFloor
	}
	if opts.RankTolerance <= 0 {
		opts.RankTolerance = DefaultOptions().RankTolerance
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Fitter{rule: rule, opts: opts, logger: logger}
}

// Rule returns the reference selection rule
func (f *Fitter) Rule() breach.ReferenceRule {
	return f.rule
}

// Fit resolves levels with the fitter's rule and fits every tau
func (f *Fitter) Fit(ctx context.Context, records *breach.RecordSet, taus []trend.Quantile) (trend.Models, error) {
	if records == nil || records.Len() == 0 {
		return nil, core.ErrEmptyDataset
	}
	levels, err := records.Levels(f.rule)
	if err != nil {
		return nil, err
	}
	return f.FitLevels(ctx, records, levels, taus)
}

// FitLevels fits every tau against one shared design matrix
func (f *Fitter) FitLevels(ctx context.Context, records *breach.RecordSet, levels breach.Levels, taus []trend.Quantile) (trend.Models, error) {
	if records == nil || records.Len() == 0 {
		return nil, core.ErrEmptyDataset
	}
	taus, err := trend.NormalizeQuantiles(taus)
	if err != nil {
		return nil, err
	}

	design, err := BuildDesign(records, levels)
	if err != nil {
		return nil, err
	}
	if err := design.CheckRank(f.opts.RankTolerance); err != nil {
		return nil, err
	}

	models := make(trend.Models, len(taus))
	for _, tau := range taus {
		start := time.Now()
		sol, err := solveIRLS(ctx, design.X, design.Y, float64(tau), f.opts)
		if err != nil {
			metrics.ObserveFit(tau.String(), time.Since(start), 0, err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, withTau(err, tau)
		}
		metrics.ObserveFit(tau.String(), time.Since(start), sol.iterations, nil)
		if !sol.converged {
			f.logger.Debug("[QuantReg] tau=%s did not converge after %d iterations (n=%d)", tau, sol.iterations, records.Len())
		}

		coefs := design.Uncenter(sol.beta)
		for term, v := range coefs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.NewModelFitError(float64(tau), "coefficient %s is not finite", term)
			}
		}

		models[tau] = &trend.QuantileModel{
			Tau:          tau,
			Terms:        append([]string(nil), design.Terms...),
			Coefficients: coefs,
			Causes:       append([]string(nil), levels.Order...),
			Reference:    levels.Reference(),
			N:            records.Len(),
			Iterations:   sol.iterations,
			Converged:    sol.converged,
			Objective:    sol.objective,
		}
	}
	return models, nil
}

// withTau stamps the quantile onto design-level fit errors
func withTau(err error, tau trend.Quantile) error {
	if mf, ok := err.(*core.ModelFitError); ok && mf.Tau == 0 {
		return &core.ModelFitError{Tau: float64(tau), Reason: mf.Reason}
	}
	return err
}
