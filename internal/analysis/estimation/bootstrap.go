package estimation

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
	"breachtrend/internal"
	"breachtrend/internal/metrics"
	"breachtrend/ports"
)

const bootstrapStream = "bootstrap"

// BootstrapConfig configures resampled refits
type BootstrapConfig struct {
	Iterations int
	Workers    int
	Seed       int64
	Reference  breach.ReferenceRule
}

// BootstrapResult holds the slope draws of every successful iteration
type BootstrapResult struct {
	Draws     []trend.Draw
	Attempted int
	Succeeded int
	Skipped   int

	// SkipReasons counts skipped iterations by failure message
	SkipReasons map[string]int
}

// Bootstrapper refits the quantile models on resamples drawn with replacement
type Bootstrapper struct {
	fitter ports.QuantileFitter
	rng    ports.RNGPort
	config BootstrapConfig
	logger *internal.Logger
}

// NewBootstrapper creates a bootstrapper
func NewBootstrapper(fitter ports.QuantileFitter, rng ports.RNGPort, config BootstrapConfig, logger *internal.Logger) *Bootstrapper {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Bootstrapper{fitter: fitter, rng: rng, config: config, logger: logger}
}

// Run resolves cause levels on the full records and bootstraps against them
func (b *Bootstrapper) Run(ctx context.Context, records *breach.RecordSet, taus []trend.Quantile) (*BootstrapResult, error) {
	if records == nil || records.Len() == 0 {
		return nil, core.ErrEmptyDataset
	}
	levels, err := records.Levels(b.config.Reference)
	if err != nil {
		return nil, err
	}
	return b.RunLevels(ctx, records, levels, taus)
}

type iterationResult struct {
	draws   []trend.Draw
	skipped bool
	reason  string
}

// RunLevels runs the configured number of iterations. Each iteration owns its
// resample, RNG stream and models; the encoding stays fixed to levels so a
// resample that loses a cause fails to fit and is skipped. Cancellation
// discards everything collected so far.
func (b *Bootstrapper) RunLevels(ctx context.Context, records *breach.RecordSet, levels breach.Levels, taus []trend.Quantile) (*BootstrapResult, error) {
	taus, err := trend.NormalizeQuantiles(taus)
	if err != nil {
		return nil, err
	}
	n := b.config.Iterations
	results := make([]iterationResult, n)
	start := time.Now()
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng, err := b.rng.Stream(gctx, bootstrapStream, i, b.config.Seed)
			if err != nil {
				return err
			}
			sample := records.Resample(rng)

			models, err := b.fitter.FitLevels(gctx, sample, levels, taus)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if core.IsModelFitError(err) {
					results[i] = iterationResult{skipped: true, reason: err.Error()}
					metrics.ObserveBootstrapIteration(true)
					b.logger.Debug("[Bootstrap] iteration %d skipped: %v", i, err)
					return nil
				}
				return err
			}

			points, err := ExtractAll(models)
			if err != nil {
				return err
			}
			draws := make([]trend.Draw, 0, len(taus)*len(levels.Order))
			for _, tau := range taus {
				for _, c := range levels.Order {
					draws = append(draws, trend.Draw{Iteration: i, Cause: c, Tau: tau, Slope: points[c][tau]})
				}
			}
			results[i] = iterationResult{draws: draws}
			metrics.ObserveBootstrapIteration(false)

			if d := done.Add(1); d%100 == 0 {
				b.logger.Debug("[Bootstrap] %d/%d iterations fitted", d, n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &BootstrapResult{Attempted: n, SkipReasons: make(map[string]int)}
	for _, r := range results {
		if r.skipped {
			res.Skipped++
			res.SkipReasons[r.reason]++
			continue
		}
		res.Succeeded++
		res.Draws = append(res.Draws, r.draws...)
	}

	b.logger.Info("[Bootstrap] %d iterations attempted, %d succeeded, %d skipped in %s",
		res.Attempted, res.Succeeded, res.Skipped, time.Since(start).Round(time.Millisecond))
	return res, nil
}
