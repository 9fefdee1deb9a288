// Package estimation turns fitted quantile models into per-cause trends with
// bootstrap percentile intervals.
package estimation

import (
	"fmt"
	"runtime"

	"breachtrend/domain/breach"
	"breachtrend/domain/trend"
)

// Options configures one estimation run
type Options struct {
	Quantiles  []trend.Quantile
	Iterations int
	Seed       int64
	Reference  breach.ReferenceRule
	Workers    int
	MinSamples int
	Confidence float64
}

// DefaultOptions returns median and 95th percentile trends with 1000 bootstrap refits
func DefaultOptions() Options {
	return Options{
		Quantiles:  append([]trend.Quantile(nil), trend.DefaultQuantiles...),
		Iterations: 1000,
		Seed:       42,
		Reference:  breach.DefaultReferenceRule,
		Workers:    runtime.NumCPU(),
		MinSamples: 2,
		Confidence: 0.95,
	}
}

// Normalize fills zero values with defaults and validates the rest
func (o Options) Normalize() (Options, error) {
	def := DefaultOptions()
	if len(o.Quantiles) == 0 {
		o.Quantiles = def.Quantiles
	}
	qs, err := trend.NormalizeQuantiles(o.Quantiles)
	if err != nil {
		return o, err
	}
	o.Quantiles = qs

	if o.Iterations < 0 {
		return o, fmt.Errorf("iterations must be non-negative, got %d", o.Iterations)
	}
	if o.Iterations == 0 {
		o.Iterations = def.Iterations
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.MinSamples <= 0 {
		o.MinSamples = def.MinSamples
	}
	if o.MinSamples < 2 {
		return o, fmt.Errorf("min samples must be at least 2, got %d", o.MinSamples)
	}
	if o.Confidence == 0 {
		o.Confidence = def.Confidence
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		return o, fmt.Errorf("confidence must be in (0, 1), got %v", o.Confidence)
	}
	if o.Reference.Kind == "" {
		o.Reference = def.Reference
	}
	return o, nil
}
