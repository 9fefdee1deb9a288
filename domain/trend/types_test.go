package trend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantiles(t *testing.T) {
	qs, err := ParseQuantiles(" 0.95, 0.5,0.5 ")
	require.NoError(t, err)
	assert.Equal(t, []Quantile{0.5, 0.95}, qs)

	for _, bad := range []string{"", "0", "1", "-0.2", "abc", "0.5,1.5"} {
		_, err := ParseQuantiles(bad)
		assert.Error(t, err, bad)
	}
	assert.Error(t, Quantile(math.NaN()).Validate())
}

func TestTermNames(t *testing.T) {
	assert.Equal(t, "cause=Insider", CauseTerm("Insider"))
	assert.Equal(t, "time:cause=Insider", InteractionTerm("Insider"))
	assert.Equal(t, "0.95", Quantile(0.95).String())
}

func TestAnnualizedPct(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedPct(0))
	assert.InDelta(t, 20.036, AnnualizedPct(0.0005), 1e-3)
	assert.InDelta(t, -100*(1-math.Exp(-365.25*0.001)), AnnualizedPct(-0.001), 1e-9)
}

func TestReportRowLookup(t *testing.T) {
	r := &Report{
		Rows:     []ReportRow{{Cause: "A", Tau: 0.5, PctChange: 3}},
		Baseline: []ReportRow{{Cause: "B", Tau: 0.5, PctChange: 1}},
	}
	row, ok := r.Row("B", 0.5)
	require.True(t, ok)
	assert.Equal(t, 1.0, row.PctChange)

	_, ok = r.Row("A", 0.95)
	assert.False(t, ok)
}

func TestIntervalContains(t *testing.T) {
	iv := Interval{Lo: -1, Hi: 2}
	assert.True(t, iv.Contains(0))
	assert.True(t, iv.Contains(2))
	assert.False(t, iv.Contains(2.5))
}

func TestPointEstimatesSet(t *testing.T) {
	p := PointEstimates{}
	p.Set("A", 0.5, 0.001)
	p.Set("A", 0.95, 0.002)
	assert.Len(t, p["A"], 2)
}
