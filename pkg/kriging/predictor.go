// Package kriging implements universal kriging with external drift: best
// linear unbiased prediction where the mean is a linear function of
// covariates and the residual spatial correlation follows a fitted
// variogram model.
package kriging

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"

	"tempfield/internal/models"
	"tempfield/pkg/spatial"
	"tempfield/pkg/variogram"
)

// ErrSingular reports that the kriging system stayed singular through the
// whole jitter ladder, so no prediction is possible for this stratum.
var ErrSingular = errors.New("kriging: covariance system singular after jitter")

// jitterLadder holds the successive diagonal perturbations, as fractions of
// the model sill, tried when the augmented system is near-singular.
// Clustered observations routinely need the first non-zero rung.
var jitterLadder = []float64{0, 1e-10, 1e-8, 1e-6, 1e-4}

// condLimit is the condition number beyond which a factorization is
// considered unusable.
const condLimit = 1e14

// ProgressCallback reports prediction progress. If the message is non-empty
// it should be displayed; otherwise completed/total drive an indicator.
type ProgressCallback func(completed, total int, message string)

// Predictor solves the universal-kriging system for one stratum. The
// observation-side augmented matrix is factored once at construction and the
// factorization is reused for every target site.
type Predictor struct {
	model      variogram.Model
	metric     spatial.Metric
	covariates []string

	n, p   int // observations, covariates (intercept excluded)
	xs, ys []float64
	values []float64

	lu     *mat.LU
	jitter float64

	// Substituted counts missing observation covariates defaulted to zero
	// while building the design matrix
	Substituted int

	progress ProgressCallback
}

// NewPredictor builds the (n+p+1)×(n+p+1) universal-kriging system
//
//	| C  X | |λ|   |c₀|
//	| Xᵀ 0 | |μ| = |x₀|
//
// from the fitted variogram model and the observation set, and factors it.
// C(i,j) = sill − γ(h(i,j)) with the full sill on the diagonal; X carries an
// intercept column plus the drift covariates.
func NewPredictor(model variogram.Model, set *models.ObservationSet, metric spatial.Metric, covariates []string) (*Predictor, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("kriging: invalid variogram model %+v", model)
	}
	n := set.Len()
	p := len(covariates)
	if n < p+2 {
		return nil, fmt.Errorf("kriging: %d observations cannot support %d drift terms", n, p)
	}

	pr := &Predictor{
		model:      model,
		metric:     metric,
		covariates: covariates,
		n:          n,
		p:          p,
		xs:         make([]float64, n),
		ys:         make([]float64, n),
		values:     set.Values(),
	}
	for i := range set.Obs {
		pr.xs[i] = set.Obs[i].X
		pr.ys[i] = set.Obs[i].Y
	}

	dim := n + p + 1
	sys := mat.NewDense(dim, dim, nil)
	sill := model.Sill()

	for i := 0; i < n; i++ {
		sys.Set(i, i, sill)
		for j := i + 1; j < n; j++ {
			h := metric.Distance(pr.xs[i], pr.ys[i], pr.xs[j], pr.ys[j])
			c := model.Covariance(h)
			sys.Set(i, j, c)
			sys.Set(j, i, c)
		}
	}
	for i := range set.Obs {
		row, subs := set.Obs[i].CovariateRow(covariates)
		pr.Substituted += subs
		sys.Set(i, n, 1)
		sys.Set(n, i, 1)
		for j, v := range row {
			sys.Set(i, n+1+j, v)
			sys.Set(n+1+j, i, v)
		}
	}

	// Factor once; escalate diagonal jitter until the factorization is
	// usable or the ladder runs out.
	for _, frac := range jitterLadder {
		if frac > 0 {
			for i := 0; i < n; i++ {
				sys.Set(i, i, sill+frac*sill)
			}
		}
		var lu mat.LU
		lu.Factorize(sys)
		if cond := lu.Cond(); !math.IsInf(cond, 1) && cond < condLimit {
			pr.lu = &lu
			pr.jitter = frac * sill
			return pr, nil
		}
	}
	return nil, ErrSingular
}

// SetProgressCallback sets a callback invoked during grid prediction.
func (pr *Predictor) SetProgressCallback(cb ProgressCallback) {
	pr.progress = cb
}

// Jitter returns the diagonal perturbation that was needed to factor the
// system, zero in the usual case.
func (pr *Predictor) Jitter() float64 { return pr.jitter }

// PredictAt predicts the field at one site given its covariate row (drift
// order, no intercept). Returns the best linear unbiased prediction and the
// kriging variance, clamped at zero against numerical noise.
func (pr *Predictor) PredictAt(x, y float64, cov []float64) (prediction, variance float64, err error) {
	if len(cov) != pr.p {
		return 0, 0, fmt.Errorf("kriging: got %d covariates, want %d", len(cov), pr.p)
	}

	dim := pr.n + pr.p + 1
	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < pr.n; i++ {
		h := pr.metric.Distance(x, y, pr.xs[i], pr.ys[i])
		rhs.SetVec(i, pr.model.Covariance(h))
	}
	rhs.SetVec(pr.n, 1)
	for j, v := range cov {
		rhs.SetVec(pr.n+1+j, v)
	}

	sol := mat.NewVecDense(dim, nil)
	if err := pr.lu.SolveVecTo(sol, false, rhs); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	prediction = 0
	variance = pr.model.Sill() + pr.model.Nugget
	for i := 0; i < pr.n; i++ {
		prediction += sol.AtVec(i) * pr.values[i]
		variance -= sol.AtVec(i) * rhs.AtVec(i)
	}
	for j := 0; j <= pr.p; j++ {
		variance -= sol.AtVec(pr.n+j) * rhs.AtVec(pr.n+j)
	}
	if variance < 0 {
		variance = 0
	}
	return prediction, variance, nil
}

// PredictGrid predicts every site of the covariate grid, reusing the single
// factorization across all solves. Sites are processed in parallel, bounded
// by workers (≤0 means one per CPU). Returns the result surfaces plus the
// count of missing grid covariates that defaulted to zero.
func (pr *Predictor) PredictGrid(ctx context.Context, grid *models.CovariateGrid, workers int) (*models.KrigingResult, int, error) {
	total := grid.NumSites()
	result := &models.KrigingResult{
		Prediction: make([]float64, total),
		Variance:   make([]float64, total),
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sem := semaphore.NewWeighted(int64(workers))

	pr.report(0, total, fmt.Sprintf("Kriging %d sites with %d workers (jitter %.2g)", total, workers, pr.jitter))

	substituted := make([]int, total)
	errs := make([]error, total)
	for site := 0; site < total; site++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, 0, err
		}
		go func(site int) {
			defer sem.Release(1)
			x, y := grid.Site(site)
			cov, subs := grid.CovariateRow(site, pr.covariates)
			substituted[site] = subs
			pred, v, err := pr.PredictAt(x, y, cov)
			if err != nil {
				errs[site] = err
				return
			}
			result.Prediction[site] = pred
			result.Variance[site] = v
		}(site)
	}
	// Draining the full weight waits for every in-flight site.
	if err := sem.Acquire(ctx, int64(workers)); err != nil {
		return nil, 0, err
	}
	sem.Release(int64(workers))

	totalSubs := 0
	for site := 0; site < total; site++ {
		totalSubs += substituted[site]
		if errs[site] != nil {
			return nil, totalSubs, errs[site]
		}
	}
	pr.report(total, total, "")
	return result, totalSubs, nil
}

func (pr *Predictor) report(completed, total int, message string) {
	if pr.progress != nil {
		pr.progress(completed, total, message)
	}
}
