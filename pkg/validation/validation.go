// Package validation performs the holdout split and computes held-out
// prediction error for each stratum.
package validation

import (
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"

	"tempfield/internal/models"
)

// SplitIndices draws a seeded, deterministic holdout of roughly the given
// fraction of n site indices. The split is made once per run, before any
// stratum-specific processing, so every stratum validates against the same
// held-out sites.
func SplitIndices(n int, fraction float64, seed int64) (holdout map[int]bool) {
	nHold := int(math.Round(float64(n) * fraction))
	if fraction > 0 && nHold == 0 && n > 1 {
		nHold = 1
	}
	if nHold >= n {
		nHold = n - 1
	}
	if nHold < 0 {
		nHold = 0
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	holdout = make(map[int]bool, nHold)
	for _, idx := range perm[:nHold] {
		holdout[idx] = true
	}
	return holdout
}

// Partition splits an observation set by the holdout index set produced by
// SplitIndices.
func Partition(set *models.ObservationSet, holdoutIdx map[int]bool) (fit, holdout *models.ObservationSet) {
	n := set.Len()
	fit = &models.ObservationSet{CRS: set.CRS, Obs: make([]models.Observation, 0, n-len(holdoutIdx))}
	holdout = &models.ObservationSet{CRS: set.CRS, Obs: make([]models.Observation, 0, len(holdoutIdx))}
	for i, o := range set.Obs {
		if holdoutIdx[i] {
			holdout.Obs = append(holdout.Obs, o)
		} else {
			fit.Obs = append(fit.Obs, o)
		}
	}
	return fit, holdout
}

// Surface queries a prediction surface at a coordinate. The second return
// value is false when the site falls outside the surface's extent, which is
// recorded as a coverage gap rather than an error.
type Surface func(x, y float64) (float64, bool)

// Validate compares predictions against held-out truth. Coverage gaps are
// excluded from the error denominators and counted separately; when every
// holdout site falls in a gap the error metrics come back NaN.
func Validate(holdout *models.ObservationSet, surface Surface) models.ValidationReport {
	var report models.ValidationReport

	sqErrs := make([]float64, 0, holdout.Len())
	absErrs := make([]float64, 0, holdout.Len())
	signed := make([]float64, 0, holdout.Len())
	for i := range holdout.Obs {
		o := &holdout.Obs[i]
		predicted, ok := surface(o.X, o.Y)
		if !ok {
			report.CoverageGaps++
			continue
		}
		diff := predicted - o.Value
		sqErrs = append(sqErrs, diff*diff)
		absErrs = append(absErrs, math.Abs(diff))
		signed = append(signed, diff)
	}

	report.NHoldout = len(sqErrs)
	if report.NHoldout == 0 {
		report.RMSE = math.NaN()
		report.MAE = math.NaN()
		report.Bias = math.NaN()
		return report
	}

	mse, _ := stats.Mean(sqErrs)
	report.RMSE = math.Sqrt(mse)
	report.MAE, _ = stats.Mean(absErrs)
	report.Bias, _ = stats.Mean(signed)
	return report
}
