package trend

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"breachtrend/domain/core"
)

// DaysPerYear annualizes per-day slopes
const DaysPerYear = 365.25

// Term names in a fitted model
const (
	TermIntercept = "Intercept"
	TermTime      = "time"
)

// CauseTerm is the indicator term name for a non-reference cause
func CauseTerm(cause string) string {
	return "cause=" + cause
}

// InteractionTerm is the time x cause term name for a non-reference cause
func InteractionTerm(cause string) string {
	return "time:cause=" + cause
}

// Quantile is a quantile level tau in (0, 1)
type Quantile float64

// DefaultQuantiles are the median and the 95th percentile
var DefaultQuantiles = []Quantile{0.5, 0.95}

func (q Quantile) String() string {
	return strconv.FormatFloat(float64(q), 'g', -1, 64)
}

// Validate checks that q lies strictly between 0 and 1
func (q Quantile) Validate() error {
	if math.IsNaN(float64(q)) || q <= 0 || q >= 1 {
		return fmt.Errorf("quantile %v must be in (0, 1)", float64(q))
	}
	return nil
}

// ParseQuantiles parses a comma separated list like "0.5,0.95"
func ParseQuantiles(s string) ([]Quantile, error) {
	var out []Quantile
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantile %q: %w", part, err)
		}
		out = append(out, Quantile(v))
	}
	return NormalizeQuantiles(out)
}

// NormalizeQuantiles validates, sorts and de-duplicates quantile levels
func NormalizeQuantiles(qs []Quantile) ([]Quantile, error) {
	if len(qs) == 0 {
		return nil, fmt.Errorf("at least one quantile is required")
	}
	seen := make(map[Quantile]bool, len(qs))
	out := make([]Quantile, 0, len(qs))
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// QuantileModel is a fitted quantile regression of log(cost+1) on time, cause and time x cause
type QuantileModel struct {
	Tau          Quantile           `json:"tau"`
	Terms        []string           `json:"terms"`
	Coefficients map[string]float64 `json:"coefficients"`
	Causes       []string           `json:"causes"`
	Reference    string             `json:"reference"`
	N            int                `json:"n"`
	Iterations   int                `json:"iterations"`
	Converged    bool               `json:"converged"`
	Objective    float64            `json:"objective"`
}

// Coef looks up a term
func (m *QuantileModel) Coef(term string) (float64, bool) {
	v, ok := m.Coefficients[term]
	return v, ok
}

// Models maps each quantile level to its fitted model
type Models map[Quantile]*QuantileModel

// Slopes maps cause to raw per-day slope
type Slopes map[string]float64

// PointEstimates maps cause -> tau -> raw slope
type PointEstimates map[string]map[Quantile]float64

// Set records one point estimate
func (p PointEstimates) Set(cause string, tau Quantile, slope float64) {
	if p[cause] == nil {
		p[cause] = make(map[Quantile]float64)
	}
	p[cause][tau] = slope
}

// Draw is one bootstrap refit's slope for a (cause, tau)
type Draw struct {
	Iteration int      `json:"iteration"`
	Cause     string   `json:"cause"`
	Tau       Quantile `json:"tau"`
	Slope     float64  `json:"slope"`
}

// Key groups draws and intervals
type Key struct {
	Cause string
	Tau   Quantile
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Cause, k.Tau)
}

// Interval is a percentile bootstrap interval on the raw slope scale
type Interval struct {
	Cause   string   `json:"cause"`
	Tau     Quantile `json:"tau"`
	Lo      float64  `json:"lo"`
	Hi      float64  `json:"hi"`
	Level   float64  `json:"level"`
	Samples int      `json:"samples"`
	Mean    float64  `json:"mean"`
	StdErr  float64  `json:"std_err"`

	// Normal approximation mean ± z·StdErr, kept as a diagnostic next to the percentile bounds
	NormalLo float64 `json:"normal_lo"`
	NormalHi float64 `json:"normal_hi"`
}

// Contains reports whether x lies within [Lo, Hi]
func (iv Interval) Contains(x float64) bool {
	return x >= iv.Lo && x <= iv.Hi
}

// Intervals maps (cause, tau) to its interval
type Intervals map[Key]Interval

// AnnualizedPct converts a per-day slope on log cost into an annual percent change
func AnnualizedPct(slope float64) float64 {
	return 100 * math.Expm1(DaysPerYear*slope)
}

// ReportRow is one (cause, tau) line of the final trend table
type ReportRow struct {
	Cause     string   `json:"cause"`
	Tau       Quantile `json:"tau"`
	Slope     float64  `json:"slope"`
	PctChange float64  `json:"annualized_pct_change"`
	CILoPct   float64  `json:"ci_lo_pct"`
	CIHiPct   float64  `json:"ci_hi_pct"`
	StdErr    float64  `json:"std_err"`
	Samples   int      `json:"samples"`
}

// Report is the joined point estimates and bootstrap intervals
type Report struct {
	ID          core.ReportID         `json:"id"`
	CreatedAt   time.Time             `json:"created_at"`
	Fingerprint core.Hash             `json:"dataset_fingerprint"`
	Records     int                   `json:"records"`
	Seed        int64                 `json:"seed"`
	Quantiles   []Quantile            `json:"quantiles"`
	Reference   string                `json:"reference"`
	Attempted   int                   `json:"iterations_attempted"`
	Succeeded   int                   `json:"iterations_succeeded"`
	Skipped     int                   `json:"iterations_skipped"`
	Confidence  float64               `json:"confidence"`
	Rows        []ReportRow           `json:"rows"`
	Baseline    []ReportRow           `json:"baseline"`
	Models      map[string]ModelTable `json:"models,omitempty"`
	DurationMs  int64                 `json:"duration_ms"`
}

// ModelTable is the full-data coefficient table for one quantile
type ModelTable struct {
	Tau          Quantile           `json:"tau"`
	Terms        []string           `json:"terms"`
	Coefficients map[string]float64 `json:"coefficients"`
	Iterations   int                `json:"iterations"`
	Converged    bool               `json:"converged"`
}

// Row finds a row by cause and tau, searching both causes and baseline
func (r *Report) Row(cause string, tau Quantile) (ReportRow, bool) {
	for _, rows := range [][]ReportRow{r.Rows, r.Baseline} {
		for _, row := range rows {
			if row.Cause == cause && row.Tau == tau {
				return row, true
			}
		}
	}
	return ReportRow{}, false
}
