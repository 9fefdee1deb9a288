package estimation

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"breachtrend/domain/core"
	"breachtrend/domain/trend"
)

// AggregateOptions configures interval construction
type AggregateOptions struct {
	Confidence float64
	MinSamples int

	// Expected lists groups that must be present even if no draw mentions them
	Expected []trend.Key

	// Attempted and Succeeded are carried into InsufficientSamples errors
	Attempted int
	Succeeded int
}

// Aggregate groups draws by (cause, tau) and returns percentile intervals.
// The result does not depend on the order of draws.
func Aggregate(draws []trend.Draw, opts AggregateOptions) (trend.Intervals, error) {
	if opts.Confidence == 0 {
		opts.Confidence = 0.95
	}
	if opts.MinSamples < 2 {
		opts.MinSamples = 2
	}
	alpha := 1 - opts.Confidence

	groups := make(map[trend.Key][]float64)
	for _, k := range opts.Expected {
		groups[k] = nil
	}
	for _, d := range draws {
		k := trend.Key{Cause: d.Cause, Tau: d.Tau}
		groups[k] = append(groups[k], d.Slope)
	}

	keys := make([]trend.Key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Tau != keys[j].Tau {
			return keys[i].Tau < keys[j].Tau
		}
		return keys[i].Cause < keys[j].Cause
	})

	out := make(trend.Intervals, len(keys))
	for _, k := range keys {
		values := groups[k]
		if len(values) < opts.MinSamples {
			return nil, &core.InsufficientSamplesError{
				Cause:     k.Cause,
				Tau:       float64(k.Tau),
				Count:     len(values),
				Required:  opts.MinSamples,
				Attempted: opts.Attempted,
				Succeeded: opts.Succeeded,
			}
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		iv := trend.Interval{
			Cause:   k.Cause,
			Tau:     k.Tau,
			Lo:      Percentile(sorted, alpha/2),
			Hi:      Percentile(sorted, 1-alpha/2),
			Level:   opts.Confidence,
			Samples: len(sorted),
		}
		data := stats.LoadRawData(sorted)
		iv.Mean, _ = stats.Mean(data)
		iv.StdErr, _ = stats.StandardDeviationSample(data)
		iv.NormalLo, iv.NormalHi = NormalInterval(iv.Mean, iv.StdErr, opts.Confidence)
		out[k] = iv
	}
	return out, nil
}

// Percentile returns the p-th quantile (p in [0, 1]) of ascending sorted
// values, interpolating linearly between order statistics at h = (n-1)p
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// NormalInterval is mean ± z·se for a two-sided confidence level
func NormalInterval(mean, se, confidence float64) (float64, float64) {
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	return mean - z*se, mean + z*se
}
