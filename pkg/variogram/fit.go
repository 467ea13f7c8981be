package variogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Fit is one fitted model together with its goodness of fit.
type Fit struct {
	Model Model

	// WeightedRSS is the pair-count-weighted residual sum of squares
	// between the empirical and theoretical semivariances
	WeightedRSS float64
}

// SelectionPolicy picks the winning fit among the candidate shapes.
type SelectionPolicy func(fits []Fit) Fit

// MinimumRSS selects the fit with the smallest weighted residual sum. When
// another fit is within relTol of the minimum, the Gaussian shape wins the
// tie, matching the domain preference for smooth temperature surfaces.
func MinimumRSS(relTol float64) SelectionPolicy {
	return func(fits []Fit) Fit {
		best := fits[0]
		for _, f := range fits[1:] {
			if f.WeightedRSS < best.WeightedRSS {
				best = f
			}
		}
		if best.Model.Shape != Gaussian {
			for _, f := range fits {
				if f.Model.Shape == Gaussian && f.WeightedRSS <= best.WeightedRSS*(1+relTol) {
					return f
				}
			}
		}
		return best
	}
}

// FitShape fits (nugget, partial sill, range) for one model family to the
// empirical semivariogram, minimizing the pair-count-weighted residual sum
// of squares with Nelder-Mead. Parameters are squared internally so the
// search stays in the feasible region without explicit bounds.
func FitShape(e *Empirical, shape Shape) (Fit, error) {
	bins := e.NonEmpty()
	if len(bins) == 0 {
		return Fit{}, ErrEmptyVariogram
	}

	objective := func(theta []float64) float64 {
		m := modelFromTheta(shape, theta)
		rss := 0.0
		for _, b := range bins {
			r := b.Semivariance - m.Gamma(b.Lag)
			rss += float64(b.Pairs) * r * r
		}
		return rss
	}

	// Seed from the apparent sill and range to keep the solver
	// well-conditioned.
	apparentSill := e.MaxSemivariance()
	nugget0 := bins[0].Semivariance
	if nugget0 > apparentSill/2 {
		nugget0 = apparentSill / 2
	}
	psill0 := apparentSill - nugget0
	if psill0 <= 0 {
		psill0 = apparentSill
	}
	range0 := e.ApparentRange()
	if range0 <= 0 {
		range0 = e.Cutoff / 2
	}

	init := []float64{math.Sqrt(nugget0), math.Sqrt(psill0), math.Sqrt(range0)}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil {
		return Fit{}, fmt.Errorf("variogram: fitting %s model: %w", shape, err)
	}

	m := modelFromTheta(shape, result.X)
	if !m.Valid() {
		return Fit{}, fmt.Errorf("variogram: %s fit produced invalid parameters %+v", shape, m)
	}
	return Fit{Model: m, WeightedRSS: result.F}, nil
}

// FitAll fits every supported shape independently and returns all fits, so
// the caller's selection policy sees the full picture. An individual shape
// failing to converge is skipped; an error is returned only when no shape
// could be fitted.
func FitAll(e *Empirical) ([]Fit, error) {
	fits := make([]Fit, 0, len(Shapes))
	var lastErr error
	for _, shape := range Shapes {
		f, err := FitShape(e, shape)
		if err != nil {
			lastErr = err
			continue
		}
		fits = append(fits, f)
	}
	if len(fits) == 0 {
		return nil, fmt.Errorf("variogram: no shape could be fitted: %w", lastErr)
	}
	return fits, nil
}

// modelFromTheta maps the unconstrained optimizer vector back to model
// parameters. Squaring enforces nugget, psill ≥ 0 and a tiny range floor
// guards against a degenerate γ.
func modelFromTheta(shape Shape, theta []float64) Model {
	rng := theta[2] * theta[2]
	if rng < 1e-9 {
		rng = 1e-9
	}
	return Model{
		Shape:       shape,
		Nugget:      theta[0] * theta[0],
		PartialSill: theta[1] * theta[1],
		Range:       rng,
	}
}
