package estimation

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"breachtrend/domain/trend"
)

// WriteText renders the report as aligned plain-text tables
func WriteText(w io.Writer, r *trend.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "Breach cost trends (%d records, seed %d, reference %q)\n", r.Records, r.Seed, r.Reference)
	fmt.Fprintf(w, "Bootstrap: %d attempted, %d succeeded, %d skipped; %.0f%% percentile intervals\n\n",
		r.Attempted, r.Succeeded, r.Skipped, 100*r.Confidence)

	writeRows := func(title string, rows []trend.ReportRow) {
		fmt.Fprintf(tw, "%s\t\t\t\t\t\t\n", title)
		fmt.Fprintln(tw, "cause\ttau\tslope/day\tannual %\tci lo %\tci hi %\tn\t")
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%.6g\t%.2f\t%.2f\t%.2f\t%d\t\n",
				row.Cause, row.Tau, row.Slope, row.PctChange, row.CILoPct, row.CIHiPct, row.Samples)
		}
		fmt.Fprintln(tw, "\t\t\t\t\t\t\t")
	}
	writeRows("Baseline (reference cause)", r.Baseline)
	writeRows("By cause", r.Rows)
	if err := tw.Flush(); err != nil {
		return err
	}
	return WriteCoefficients(w, r.Models)
}

// WriteCoefficients renders the full-data coefficient table of each quantile model
func WriteCoefficients(w io.Writer, models map[string]trend.ModelTable) error {
	if len(models) == 0 {
		return nil
	}
	tables := make([]trend.ModelTable, 0, len(models))
	for _, m := range models {
		tables = append(tables, m)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Tau < tables[j].Tau })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range tables {
		fmt.Fprintf(tw, "Coefficients tau=%s (iterations %d, converged %v)\n", m.Tau, m.Iterations, m.Converged)
		for _, term := range m.Terms {
			fmt.Fprintf(tw, "  %s\t%.8g\n", term, m.Coefficients[term])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// WriteJSON encodes the report as indented JSON
func WriteJSON(w io.Writer, r *trend.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
