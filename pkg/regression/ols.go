// Package regression provides the drift regression diagnostic (ordinary
// least squares of the target on the covariate design) and the Moran's I
// spatial autocorrelation test on its residuals.
package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"tempfield/internal/models"
)

// ErrDegenerateRegression reports a singular or underdetermined design
// matrix: collinear covariates, or fewer observations than coefficients.
var ErrDegenerateRegression = errors.New("regression: singular or underdetermined design matrix")

// condMax is the design-matrix condition number beyond which the OLS
// solution is considered numerically meaningless.
const condMax = 1e12

// Result holds the fitted drift regression.
type Result struct {
	// Names lists the covariates in design order, intercept excluded
	Names []string

	// Coefficients holds the intercept first, then one coefficient per
	// covariate in Names order
	Coefficients []float64

	// Fitted and Residuals are per-observation, in the set's order
	Fitted    []float64
	Residuals []float64

	// R2 is the coefficient of determination
	R2 float64

	// Substituted counts covariate values that were missing and
	// defaulted to zero while building the design
	Substituted int
}

// FitDrift regresses the observed values on the fixed covariate design with
// an intercept. Residuals are attached back onto each observation for the
// autocorrelation check; the kriging predictor refits the drift jointly with
// the spatial structure, so this regression is diagnostic only.
func FitDrift(set *models.ObservationSet, covariates []string) (*Result, error) {
	n := set.Len()
	p := len(covariates) + 1
	if n < p {
		return nil, fmt.Errorf("%w: %d observations for %d coefficients", ErrDegenerateRegression, n, p)
	}

	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, set.Values())
	substituted := 0
	for i := range set.Obs {
		x.Set(i, 0, 1)
		row, subs := set.Obs[i].CovariateRow(covariates)
		substituted += subs
		for j, v := range row {
			x.Set(i, j+1, v)
		}
	}

	if cond := mat.Cond(x, 2); cond > condMax {
		return nil, fmt.Errorf("%w: condition number %.3g", ErrDegenerateRegression, cond)
	}

	var qr mat.QR
	qr.Factorize(x)
	beta := mat.NewDense(p, 1, nil)
	if err := qr.SolveTo(beta, false, y); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateRegression, err)
	}

	result := &Result{
		Names:        covariates,
		Coefficients: make([]float64, p),
		Fitted:       make([]float64, n),
		Residuals:    make([]float64, n),
		Substituted:  substituted,
	}
	for j := 0; j < p; j++ {
		result.Coefficients[j] = beta.At(j, 0)
	}

	for i := 0; i < n; i++ {
		fitted := 0.0
		for j := 0; j < p; j++ {
			fitted += x.At(i, j) * result.Coefficients[j]
		}
		result.Fitted[i] = fitted
		result.Residuals[i] = y.AtVec(i) - fitted

		// Attach for downstream diagnostics
		set.Obs[i].Residual = result.Residuals[i]
	}
	ssRes := floats.Dot(result.Residuals, result.Residuals)

	mean := stat.Mean(set.Values(), nil)
	ssTot := 0.0
	for _, v := range set.Values() {
		d := v - mean
		ssTot += d * d
	}
	if ssTot > 0 {
		result.R2 = 1 - ssRes/ssTot
	}

	return result, nil
}
