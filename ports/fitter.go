package ports

import (
	"context"

	"breachtrend/domain/breach"
	"breachtrend/domain/trend"
)

// QuantileFitter fits quantile regressions of log cost on time, cause and time x cause
type QuantileFitter interface {
	// Fit resolves cause levels from the records with the fitter's reference rule
	Fit(ctx context.Context, records *breach.RecordSet, taus []trend.Quantile) (trend.Models, error)

	// FitLevels fits with a fixed cause encoding; every level must be present in records
	FitLevels(ctx context.Context, records *breach.RecordSet, levels breach.Levels, taus []trend.Quantile) (trend.Models, error)
}
