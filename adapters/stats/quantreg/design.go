package quantreg

import (
	"gonum.org/v1/gonum/mat"

	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
)

// Design is the encoded regression problem for one record set.
//
// Column layout follows the usual treatment-coded formula
// "y ~ time * cause": Intercept, cause=<c>..., time, time:cause=<c>...
// Internally time is centered on its mean and expressed in years so the
// normal equations stay well conditioned; Uncenter maps coefficients back to
// per-day units on the raw days-since-epoch scale.
type Design struct {
	X      *mat.Dense
	Y      []float64
	Terms  []string
	Levels breach.Levels

	center float64
	scale  float64
	k      int
}

// BuildDesign encodes records under levels. Every level must have at least two
// distinct breach dates, otherwise its intercept and slope are not identified.
func BuildDesign(records *breach.RecordSet, levels breach.Levels) (*Design, error) {
	if len(levels.Order) == 0 {
		return nil, core.NewModelFitError(0, "no cause levels")
	}
	n := records.Len()
	nonRef := levels.NonReference()
	k := len(nonRef)
	p := 2*k + 2

	if n < p {
		return nil, core.NewModelFitError(0, "%d rows cannot identify %d coefficients", n, p)
	}

	index := make(map[string]int, len(levels.Order))
	for i, c := range levels.Order {
		index[c] = i
	}

	firstDay := make([]float64, len(levels.Order))
	rows := make([]int, len(levels.Order))
	varies := make([]bool, len(levels.Order))
	days := make([]float64, n)
	center := 0.0

	for i := 0; i < n; i++ {
		r := records.At(i)
		li, ok := index[r.Cause]
		if !ok {
			return nil, core.NewModelFitError(0, "cause %q is not part of the model encoding", r.Cause)
		}
		d := r.Days()
		days[i] = d
		center += d
		if rows[li] == 0 {
			firstDay[li] = d
		} else if d != firstDay[li] {
			varies[li] = true
		}
		rows[li]++
	}
	center /= float64(n)

	for li, c := range levels.Order {
		if rows[li] == 0 {
			return nil, core.NewModelFitError(0, "cause %q absent from sample", c)
		}
		if !varies[li] {
			return nil, core.NewModelFitError(0, "cause %q has fewer than 2 distinct breach dates", c)
		}
	}

	terms := make([]string, 0, p)
	terms = append(terms, trend.TermIntercept)
	for _, c := range nonRef {
		terms = append(terms, trend.CauseTerm(c))
	}
	terms = append(terms, trend.TermTime)
	for _, c := range nonRef {
		terms = append(terms, trend.InteractionTerm(c))
	}

	scale := trend.DaysPerYear
	X := mat.NewDense(n, p, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		r := records.At(i)
		u := (days[i] - center) / scale
		row := X.RawRowView(i)
		row[0] = 1
		row[k+1] = u
		if li := index[r.Cause]; li > 0 {
			row[li] = 1
			row[k+1+li] = u
		}
		y[i] = r.LogTotalAmount
	}

	return &Design{
		X:      X,
		Y:      y,
		Terms:  terms,
		Levels: levels,
		center: center,
		scale:  scale,
		k:      k,
	}, nil
}

// CheckRank verifies the design matrix has full column rank
func (d *Design) CheckRank(rcond float64) error {
	_, p := d.X.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(d.X, mat.SVDNone); !ok {
		return core.NewModelFitError(0, "singular value decomposition of the design matrix failed")
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return core.NewModelFitError(0, "design matrix is zero")
	}
	rank := 0
	for _, v := range values {
		if v > rcond*values[0] {
			rank++
		}
	}
	if rank < p {
		return core.NewModelFitError(0, "design matrix is rank deficient (rank %d < %d columns)", rank, p)
	}
	return nil
}

// Uncenter converts internal coefficients to per-day coefficients on the raw
// days-since-epoch time scale, keyed by term name
func (d *Design) Uncenter(beta []float64) map[string]float64 {
	k := d.k
	out := make(map[string]float64, len(beta))
	slope := beta[k+1] / d.scale
	out[trend.TermIntercept] = beta[0] - slope*d.center
	out[trend.TermTime] = slope
	for j := 1; j <= k; j++ {
		inter := beta[k+1+j] / d.scale
		out[d.Terms[j]] = beta[j] - inter*d.center
		out[d.Terms[k+1+j]] = inter
	}
	return out
}
