package estimation

import (
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
)

// SlopeFor returns the per-day time slope of cause in model. The reference
// cause uses the bare time coefficient; every other cause adds its
// time:cause interaction.
func SlopeFor(model *trend.QuantileModel, cause string) (float64, error) {
	if model == nil {
		return 0, &core.InvariantError{Cause: cause, Missing: trend.TermTime}
	}
	base, ok := model.Coef(trend.TermTime)
	if !ok {
		return 0, missingTerm(model, cause, trend.TermTime)
	}
	if cause == model.Reference {
		return base, nil
	}
	term := trend.InteractionTerm(cause)
	inter, ok := model.Coef(term)
	if !ok {
		return 0, missingTerm(model, cause, term)
	}
	return base + inter, nil
}

// ExtractSlopes derives the slope of every cause in the model
func ExtractSlopes(model *trend.QuantileModel) (trend.Slopes, error) {
	if model == nil {
		return nil, &core.InvariantError{Missing: trend.TermTime}
	}
	slopes := make(trend.Slopes, len(model.Causes))
	for _, c := range model.Causes {
		s, err := SlopeFor(model, c)
		if err != nil {
			return nil, err
		}
		slopes[c] = s
	}
	return slopes, nil
}

// ExtractAll applies ExtractSlopes to each quantile's model
func ExtractAll(models trend.Models) (trend.PointEstimates, error) {
	out := make(trend.PointEstimates)
	for tau, m := range models {
		slopes, err := ExtractSlopes(m)
		if err != nil {
			return nil, err
		}
		for c, s := range slopes {
			out.Set(c, tau, s)
		}
	}
	return out, nil
}

func missingTerm(model *trend.QuantileModel, cause, term string) error {
	available := make([]string, 0, len(model.Coefficients))
	for t := range model.Coefficients {
		available = append(available, t)
	}
	return &core.InvariantError{
		Cause:     cause,
		Tau:       float64(model.Tau),
		Missing:   term,
		Available: available,
	}
}
