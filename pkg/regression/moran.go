package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MoranResult holds the global autocorrelation statistic with its null
// moments and two-sided p-value. A significant positive I on the drift
// residuals means the covariates have not absorbed the spatial structure.
type MoranResult struct {
	// I is the observed Moran's I
	I float64

	// Expected and Variance are the null moments under no autocorrelation
	// (normality assumption): E[I] = -1/(n-1)
	Expected float64
	Variance float64

	// Z is the standardized statistic, P the two-sided p-value
	Z float64
	P float64
}

// MoranI computes Moran's I for the residuals with the given spatial weight
// matrix (zero diagonal assumed, typically inverse distance):
//
//	I = (n/S0) · Σᵢⱼ wᵢⱼ(rᵢ−r̄)(rⱼ−r̄) / Σᵢ(rᵢ−r̄)²
func MoranI(residuals []float64, w *mat.SymDense) (MoranResult, error) {
	n := len(residuals)
	if n < 3 {
		return MoranResult{}, fmt.Errorf("moran: need at least 3 residuals, got %d", n)
	}
	if w.SymmetricDim() != n {
		return MoranResult{}, fmt.Errorf("moran: weight matrix is %d×%d for %d residuals", w.SymmetricDim(), w.SymmetricDim(), n)
	}

	mean := stat.Mean(residuals, nil)
	z := make([]float64, n)
	m2 := 0.0
	for i, r := range residuals {
		z[i] = r - mean
		m2 += z[i] * z[i]
	}
	if m2 == 0 {
		return MoranResult{}, fmt.Errorf("moran: residuals have zero variance")
	}

	// Weight-matrix moments. The general (non-symmetric) formulas are used
	// so the routine stays correct for any weighting scheme.
	s0, s1 := 0.0, 0.0
	cross := 0.0
	rowSums := make([]float64, n)
	colSums := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			wij := w.At(i, j)
			wji := w.At(j, i)
			s0 += wij
			s1 += (wij + wji) * (wij + wji)
			cross += wij * z[i] * z[j]
			rowSums[i] += wij
			colSums[j] += wij
		}
	}
	s1 /= 2
	if s0 == 0 {
		return MoranResult{}, fmt.Errorf("moran: weight matrix sums to zero")
	}
	s2 := 0.0
	for i := 0; i < n; i++ {
		s := rowSums[i] + colSums[i]
		s2 += s * s
	}

	nf := float64(n)
	observed := (nf / s0) * cross / m2
	expected := -1 / (nf - 1)

	variance := (nf*nf*s1-nf*s2+3*s0*s0)/((nf*nf-1)*s0*s0) - expected*expected
	if variance <= 0 {
		return MoranResult{}, fmt.Errorf("moran: non-positive null variance %g", variance)
	}

	zScore := (observed - expected) / math.Sqrt(variance)
	p := 2 * distuv.UnitNormal.Survival(math.Abs(zScore))

	return MoranResult{
		I:        observed,
		Expected: expected,
		Variance: variance,
		Z:        zScore,
		P:        p,
	}, nil
}
