package variogram

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"tempfield/pkg/spatial"
)

// ErrEmptyVariogram reports that no point pair landed in any lag bin, so
// fitting cannot proceed. The caller must widen the cutoff or the bin width.
var ErrEmptyVariogram = errors.New("variogram: no point pairs within cutoff")

// Bin is one lag class of the empirical semivariogram.
type Bin struct {
	// Lag is the bin center distance
	Lag float64

	// Semivariance is the estimate Σ(Δz)² / (2·Pairs) for the bin
	Semivariance float64

	// Pairs is the number of unordered point pairs accumulated
	Pairs int
}

// Empirical is the binned semivariogram estimate.
type Empirical struct {
	// Bins covers [0, Cutoff) in contiguous classes of width Width,
	// including empty bins so the pair-count distribution can be inspected
	Bins []Bin

	// Cutoff and Width record the binning choice
	Cutoff float64
	Width  float64
}

// NonEmpty returns the bins that carry at least one pair; only these enter
// model fitting.
func (e *Empirical) NonEmpty() []Bin {
	kept := make([]Bin, 0, len(e.Bins))
	for _, b := range e.Bins {
		if b.Pairs > 0 {
			kept = append(kept, b)
		}
	}
	return kept
}

// MaxSemivariance returns the apparent sill, the largest binned estimate.
func (e *Empirical) MaxSemivariance() float64 {
	max := 0.0
	for _, b := range e.Bins {
		if b.Pairs > 0 && b.Semivariance > max {
			max = b.Semivariance
		}
	}
	return max
}

// ApparentRange returns the lag at which the estimate first reaches 95% of
// the apparent sill, used to seed the nonlinear fit. Falls back to half the
// cutoff when the estimate never gets there.
func (e *Empirical) ApparentRange() float64 {
	sill := e.MaxSemivariance()
	for _, b := range e.Bins {
		if b.Pairs > 0 && b.Semivariance >= 0.95*sill {
			return b.Lag
		}
	}
	return e.Cutoff / 2
}

// Estimate bins pairwise squared value differences by lag distance. Every
// unordered pair with separation at or below cutoff contributes to the bin
// its separation falls in; afterwards each bin's semivariance is the mean
// squared difference halved.
func Estimate(xs, ys, values []float64, metric spatial.Metric, cutoff, width float64) (*Empirical, error) {
	if len(xs) != len(values) || len(ys) != len(values) {
		return nil, fmt.Errorf("variogram: coordinate and value lengths differ (%d, %d, %d)", len(xs), len(ys), len(values))
	}
	d := spatial.DistanceMatrix(xs, ys, metric)
	return EstimateFromDistances(d, values, cutoff, width)
}

// EstimateFromDistances is Estimate for a precomputed distance matrix, so a
// dataset-wide matrix can be shared with the autocorrelation diagnostics.
func EstimateFromDistances(d *mat.SymDense, values []float64, cutoff, width float64) (*Empirical, error) {
	if cutoff <= 0 || width <= 0 {
		return nil, fmt.Errorf("variogram: cutoff and width must be positive (got %g, %g)", cutoff, width)
	}

	numBins := int(cutoff / width)
	if float64(numBins)*width < cutoff {
		numBins++
	}

	sums := make([]float64, numBins)
	counts := make([]int, numBins)

	n := len(values)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			h := d.At(i, j)
			if h > cutoff {
				continue
			}
			bin := int(h / width)
			if bin >= numBins {
				bin = numBins - 1
			}
			diff := values[i] - values[j]
			sums[bin] += diff * diff
			counts[bin]++
		}
	}

	e := &Empirical{
		Bins:   make([]Bin, numBins),
		Cutoff: cutoff,
		Width:  width,
	}
	total := 0
	for b := 0; b < numBins; b++ {
		e.Bins[b].Lag = (float64(b) + 0.5) * width
		e.Bins[b].Pairs = counts[b]
		if counts[b] > 0 {
			e.Bins[b].Semivariance = sums[b] / (2 * float64(counts[b]))
			total += counts[b]
		}
	}
	if total == 0 {
		return nil, ErrEmptyVariogram
	}
	return e, nil
}

// PairCountSpread reports the per-bin pair counts obtained for each
// candidate bin width. The choice of width materially changes estimator
// variance, so inspecting how counts distribute across candidates is the
// intended way to settle on one.
func PairCountSpread(d *mat.SymDense, values []float64, cutoff float64, widths []float64) map[float64][]int {
	spread := make(map[float64][]int, len(widths))
	for _, w := range widths {
		e, err := EstimateFromDistances(d, values, cutoff, w)
		if err != nil {
			spread[w] = nil
			continue
		}
		counts := make([]int, len(e.Bins))
		for i, b := range e.Bins {
			counts[i] = b.Pairs
		}
		spread[w] = counts
	}
	return spread
}
