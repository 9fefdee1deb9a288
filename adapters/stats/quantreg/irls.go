package quantreg

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"breachtrend/domain/core"
)

// Options tunes the IRLS solver
type Options struct {
	MaxIter       int     // iteration cap
	Tolerance     float64 // max absolute coefficient change for convergence
	ResidualFloor float64 // |r| below this is clamped when forming weights
	RankTolerance float64 // relative singular value cutoff for the rank check
}

// DefaultOptions mirrors the usual IRLS quantile regression settings
func DefaultOptions() Options {
	return Options{
		MaxIter:       1000,
		Tolerance:     1e-6,
		ResidualFloor: 1e-6,
		RankTolerance: 1e-10,
	}
}

type solution struct {
	beta       []float64
	iterations int
	converged  bool
	objective  float64
}

// pinball is the asymmetric absolute loss for one residual
func pinball(r, tau float64) float64 {
	if r >= 0 {
		return tau * r
	}
	return (tau - 1) * r
}

// solveIRLS minimizes sum(pinball(y - X beta)) by iteratively reweighted least squares.
// Each step solves the weighted normal equations with weights tau/|r| for r >= 0 and
// (1-tau)/|r| for r < 0.
func solveIRLS(ctx context.Context, X *mat.Dense, y []float64, tau float64, opts Options) (*solution, error) {
	n, p := X.Dims()

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	beta := make([]float64, p)
	next := mat.NewVecDense(p, nil)
	ata := make([]float64, p*p)
	atb := make([]float64, p)
	resid := make([]float64, n)
	var chol mat.Cholesky

	sol := &solution{beta: beta}
	for iter := 1; iter <= opts.MaxIter; iter++ {
		if iter == 1 || iter%8 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for i := range ata {
			ata[i] = 0
		}
		for i := range atb {
			atb[i] = 0
		}
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			wi := w[i]
			yi := y[i]
			for a := 0; a < p; a++ {
				xa := row[a]
				if xa == 0 {
					continue
				}
				wa := wi * xa
				atb[a] += wa * yi
				base := a * p
				for c := a; c < p; c++ {
					ata[base+c] += wa * row[c]
				}
			}
		}

		// NewSymDense only reads the upper triangle
		sym := mat.NewSymDense(p, append([]float64(nil), ata...))
		if ok := chol.Factorize(sym); !ok {
			return nil, core.NewModelFitError(tau, "weighted normal equations are not positive definite (iteration %d)", iter)
		}
		if err := chol.SolveVecTo(next, mat.NewVecDense(p, atb)); err != nil {
			if _, cond := err.(mat.Condition); !cond {
				return nil, core.NewModelFitError(tau, "solving weighted normal equations: %v", err)
			}
		}

		diff := 0.0
		for j := 0; j < p; j++ {
			v := next.AtVec(j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.NewModelFitError(tau, "non-finite coefficient at iteration %d", iter)
			}
			if d := math.Abs(v - beta[j]); d > diff {
				diff = d
			}
			beta[j] = v
		}

		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			fitted := 0.0
			for j, xj := range row {
				fitted += xj * beta[j]
			}
			r := y[i] - fitted
			resid[i] = r
			ar := math.Abs(r)
			if ar < opts.ResidualFloor {
				ar = opts.ResidualFloor
			}
			if r >= 0 {
				w[i] = tau / ar
			} else {
				w[i] = (1 - tau) / ar
			}
		}

		sol.iterations = iter
		if iter > 1 && diff < opts.Tolerance {
			sol.converged = true
			break
		}
	}

	for _, r := range resid {
		sol.objective += pinball(r, tau)
	}
	return sol, nil
}
