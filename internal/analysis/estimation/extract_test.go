package estimation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachtrend/domain/core"
	"breachtrend/domain/trend"
)

func twoCauseModel(tau trend.Quantile) *trend.QuantileModel {
	return &trend.QuantileModel{
		Tau:       tau,
		Terms:     []string{"Intercept", "cause=A", "time", "time:cause=A"},
		Causes:    []string{"B", "A"},
		Reference: "B",
		Coefficients: map[string]float64{
			"Intercept":    9.5,
			"cause=A":      -0.4,
			"time":         0.0001,
			"time:cause=A": 0.0004,
		},
	}
}

func TestExtractSlopesComposesInteraction(t *testing.T) {
	slopes, err := ExtractSlopes(twoCauseModel(0.5))
	require.NoError(t, err)

	assert.InDelta(t, 0.0001, slopes["B"], 1e-15, "reference uses the bare time coefficient")
	assert.InDelta(t, 0.0005, slopes["A"], 1e-15, "non-reference adds its interaction")
	assert.Len(t, slopes, 2)
}

func TestExtractSlopesSingleCause(t *testing.T) {
	m := &trend.QuantileModel{
		Tau:          0.95,
		Terms:        []string{"Intercept", "time"},
		Causes:       []string{"Hacking"},
		Reference:    "Hacking",
		Coefficients: map[string]float64{"Intercept": 10, "time": 0.00073},
	}
	slopes, err := ExtractSlopes(m)
	require.NoError(t, err)
	assert.Equal(t, 0.00073, slopes["Hacking"])
	assert.InDelta(t, 100*(math.Exp(365.25*0.00073)-1), trend.AnnualizedPct(slopes["Hacking"]), 1e-9)
}

func TestExtractSlopesMissingTerm(t *testing.T) {
	m := twoCauseModel(0.95)
	delete(m.Coefficients, "time:cause=A")

	_, err := ExtractSlopes(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvariantViolation))

	var inv *core.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "A", inv.Cause)
	assert.Equal(t, 0.95, inv.Tau)
	assert.Equal(t, "time:cause=A", inv.Missing)
	assert.ElementsMatch(t, []string{"Intercept", "cause=A", "time"}, inv.Available)
	assert.Contains(t, err.Error(), "available: Intercept, cause=A, time")
}

func TestSlopeForUnknownCause(t *testing.T) {
	_, err := SlopeFor(twoCauseModel(0.5), "Physical")
	assert.True(t, core.IsInvariantViolation(err))
}

func TestExtractAll(t *testing.T) {
	models := trend.Models{0.5: twoCauseModel(0.5), 0.95: twoCauseModel(0.95)}
	models[0.95].Coefficients["time"] = 0.0002

	points, err := ExtractAll(models)
	require.NoError(t, err)
	assert.InDelta(t, 0.0001, points["B"][0.5], 1e-15)
	assert.InDelta(t, 0.0002, points["B"][0.95], 1e-15)
	assert.InDelta(t, 0.0006, points["A"][0.95], 1e-15)
}
