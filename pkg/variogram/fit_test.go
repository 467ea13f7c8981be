package variogram

import (
	"math"
	"testing"
)

// syntheticEmpirical evaluates a known model on a regular lag grid, so the
// fit can be checked against the generating parameters
func syntheticEmpirical(m Model, cutoff, width float64) *Empirical {
	numBins := int(cutoff / width)
	e := &Empirical{
		Bins:   make([]Bin, numBins),
		Cutoff: cutoff,
		Width:  width,
	}
	for b := 0; b < numBins; b++ {
		lag := (float64(b) + 0.5) * width
		e.Bins[b] = Bin{Lag: lag, Semivariance: m.Gamma(lag), Pairs: 100}
	}
	return e
}

// TestFitShapeRecoversParameters verifies each family recovers its own
// generating parameters from a noise-free empirical curve
func TestFitShapeRecoversParameters(t *testing.T) {
	truth := Model{Nugget: 0.5, PartialSill: 3.5, Range: 50}

	for _, shape := range Shapes {
		m := truth
		m.Shape = shape

		e := syntheticEmpirical(m, 120, 2.5)
		fit, err := FitShape(e, shape)
		if err != nil {
			t.Fatalf("%s: FitShape failed: %v", shape, err)
		}

		got := fit.Model
		if relErr(got.Nugget, truth.Nugget) > 0.05 {
			t.Errorf("%s: expected nugget near %f, got %f", shape, truth.Nugget, got.Nugget)
		}
		if relErr(got.PartialSill, truth.PartialSill) > 0.05 {
			t.Errorf("%s: expected partial sill near %f, got %f", shape, truth.PartialSill, got.PartialSill)
		}
		if relErr(got.Range, truth.Range) > 0.05 {
			t.Errorf("%s: expected range near %f, got %f", shape, truth.Range, got.Range)
		}
		if fit.WeightedRSS > 0.1 {
			t.Errorf("%s: expected near-zero weighted RSS, got %g", shape, fit.WeightedRSS)
		}
	}
}

func relErr(got, want float64) float64 {
	return math.Abs(got-want) / math.Abs(want)
}

// TestFitAllReturnsEveryShape verifies all four families fit on a
// well-behaved curve
func TestFitAllReturnsEveryShape(t *testing.T) {
	m := Model{Shape: Spherical, Nugget: 0.2, PartialSill: 2.0, Range: 30}
	e := syntheticEmpirical(m, 80, 2)

	fits, err := FitAll(e)
	if err != nil {
		t.Fatalf("FitAll failed: %v", err)
	}
	if len(fits) != len(Shapes) {
		t.Errorf("Expected %d fits, got %d", len(Shapes), len(fits))
	}

	seen := make(map[Shape]bool)
	for _, f := range fits {
		seen[f.Model.Shape] = true
		if !f.Model.Valid() {
			t.Errorf("%s: fit produced invalid model %+v", f.Model.Shape, f.Model)
		}
	}
	for _, shape := range Shapes {
		if !seen[shape] {
			t.Errorf("Missing fit for %s", shape)
		}
	}
}

// TestMinimumRSSPicksSmallest verifies plain minimum selection when the
// margin is clear
func TestMinimumRSSPicksSmallest(t *testing.T) {
	fits := []Fit{
		{Model: Model{Shape: Exponential}, WeightedRSS: 5.0},
		{Model: Model{Shape: Spherical}, WeightedRSS: 1.0},
		{Model: Model{Shape: Gaussian}, WeightedRSS: 4.0},
	}
	got := MinimumRSS(0.05)(fits)
	if got.Model.Shape != Spherical {
		t.Errorf("Expected spherical winner, got %s", got.Model.Shape)
	}
}

// TestMinimumRSSGaussianTieBreak verifies the Gaussian shape wins when its
// fit quality is within the tolerance band of the minimum
func TestMinimumRSSGaussianTieBreak(t *testing.T) {
	fits := []Fit{
		{Model: Model{Shape: Exponential}, WeightedRSS: 1.00},
		{Model: Model{Shape: Gaussian}, WeightedRSS: 1.03},
	}
	if got := MinimumRSS(0.05)(fits); got.Model.Shape != Gaussian {
		t.Errorf("Expected gaussian tie-break winner, got %s", got.Model.Shape)
	}
	// Outside the band the minimum stands
	if got := MinimumRSS(0.01)(fits); got.Model.Shape != Exponential {
		t.Errorf("Expected exponential winner outside band, got %s", got.Model.Shape)
	}
}

// TestFitShapeEmptyVariogram verifies the sentinel propagates
func TestFitShapeEmptyVariogram(t *testing.T) {
	e := &Empirical{Bins: []Bin{{Lag: 1, Pairs: 0}}, Cutoff: 2, Width: 2}
	if _, err := FitShape(e, Exponential); err != ErrEmptyVariogram {
		t.Errorf("Expected ErrEmptyVariogram, got %v", err)
	}
}
