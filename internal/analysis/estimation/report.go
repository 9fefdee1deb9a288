package estimation

import (
	"sort"

	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
)

// ReportMeta carries run context that BuildReport copies onto the report
type ReportMeta struct {
	Levels      breach.Levels
	Quantiles   []trend.Quantile
	Seed        int64
	Confidence  float64
	Records     int
	Fingerprint core.Hash
	Attempted   int
	Succeeded   int
	Skipped     int
	Models      trend.Models
}

// BuildReport joins point estimates with their intervals. Rows are ordered by
// tau, then by cause in level order; the reference cause goes to Baseline.
// ID and timestamps are left for the caller.
func BuildReport(point trend.PointEstimates, intervals trend.Intervals, meta ReportMeta) (*trend.Report, error) {
	taus, err := trend.NormalizeQuantiles(meta.Quantiles)
	if err != nil {
		return nil, err
	}
	reference := meta.Levels.Reference()

	report := &trend.Report{
		Fingerprint: meta.Fingerprint,
		Records:     meta.Records,
		Seed:        meta.Seed,
		Quantiles:   taus,
		Reference:   reference,
		Attempted:   meta.Attempted,
		Succeeded:   meta.Succeeded,
		Skipped:     meta.Skipped,
		Confidence:  meta.Confidence,
		Rows:        []trend.ReportRow{},
		Baseline:    []trend.ReportRow{},
		Models:      ModelTables(meta.Models),
	}

	for _, tau := range taus {
		for _, cause := range meta.Levels.Order {
			slope, ok := point[cause][tau]
			if !ok {
				return nil, &core.InvariantError{Cause: cause, Tau: float64(tau), Missing: "point estimate", Available: pointCauses(point)}
			}
			iv, ok := intervals[trend.Key{Cause: cause, Tau: tau}]
			if !ok {
				return nil, &core.InvariantError{Cause: cause, Tau: float64(tau), Missing: "confidence interval", Available: intervalKeys(intervals)}
			}
			row := trend.ReportRow{
				Cause:     cause,
				Tau:       tau,
				Slope:     slope,
				PctChange: trend.AnnualizedPct(slope),
				CILoPct:   trend.AnnualizedPct(iv.Lo),
				CIHiPct:   trend.AnnualizedPct(iv.Hi),
				StdErr:    iv.StdErr,
				Samples:   iv.Samples,
			}
			if cause == reference {
				report.Baseline = append(report.Baseline, row)
			} else {
				report.Rows = append(report.Rows, row)
			}
		}
	}
	return report, nil
}

// ModelTables converts fitted models into their report form, keyed by tau
func ModelTables(models trend.Models) map[string]trend.ModelTable {
	if len(models) == 0 {
		return nil
	}
	out := make(map[string]trend.ModelTable, len(models))
	for tau, m := range models {
		coefs := make(map[string]float64, len(m.Coefficients))
		for k, v := range m.Coefficients {
			coefs[k] = v
		}
		out[tau.String()] = trend.ModelTable{
			Tau:          tau,
			Terms:        append([]string(nil), m.Terms...),
			Coefficients: coefs,
			Iterations:   m.Iterations,
			Converged:    m.Converged,
		}
	}
	return out
}

func pointCauses(point trend.PointEstimates) []string {
	out := make([]string, 0, len(point))
	for c := range point {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func intervalKeys(intervals trend.Intervals) []string {
	out := make([]string, 0, len(intervals))
	for k := range intervals {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}
