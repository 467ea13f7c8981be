package spatial

import (
	"math"
	"testing"
)

// TestPlanarDistance verifies the Euclidean metric on a 3-4-5 triangle
func TestPlanarDistance(t *testing.T) {
	m := Planar{}
	if d := m.Distance(0, 0, 3, 4); math.Abs(d-5) > 1e-12 {
		t.Errorf("Expected distance 5, got %f", d)
	}
	if d := m.Distance(1, 1, 1, 1); d != 0 {
		t.Errorf("Expected zero distance for coincident points, got %f", d)
	}
}

// TestGeographicDistance verifies the equirectangular approximation against
// hand-computed degree lengths
func TestGeographicDistance(t *testing.T) {
	m := Geographic{RefLat: 0}

	// One degree of latitude at the equator
	if d := m.Distance(0, 0, 0, 1); math.Abs(d-110.574) > 1e-9 {
		t.Errorf("Expected 110.574 km per degree latitude, got %f", d)
	}
	// One degree of longitude at the equator
	if d := m.Distance(0, 0, 1, 0); math.Abs(d-111.320) > 1e-9 {
		t.Errorf("Expected 111.320 km per degree longitude, got %f", d)
	}

	// At 60 degrees reference latitude longitude shrinks to cos(60) = 0.5
	m60 := Geographic{RefLat: 60}
	if d := m60.Distance(0, 60, 1, 60); math.Abs(d-111.320*0.5) > 1e-9 {
		t.Errorf("Expected %f km, got %f", 111.320*0.5, d)
	}
}

// TestMetricFor verifies the CRS dispatch
func TestMetricFor(t *testing.T) {
	for _, crs := range []string{"EPSG:4326", "WGS84", "CRS84"} {
		if _, ok := MetricFor(crs, 40).(Geographic); !ok {
			t.Errorf("Expected geographic metric for %q", crs)
		}
	}
	if _, ok := MetricFor("EPSG:32633", 40).(Planar); !ok {
		t.Error("Expected planar metric for a projected CRS")
	}
}

// TestDistanceMatrix verifies symmetry, zero diagonal and values
func TestDistanceMatrix(t *testing.T) {
	xs := []float64{0, 3, 0}
	ys := []float64{0, 0, 4}
	d := DistanceMatrix(xs, ys, Planar{})

	if n := d.SymmetricDim(); n != 3 {
		t.Fatalf("Expected 3x3 matrix, got dim %d", n)
	}
	for i := 0; i < 3; i++ {
		if d.At(i, i) != 0 {
			t.Errorf("Expected zero diagonal at %d, got %f", i, d.At(i, i))
		}
	}
	if got := d.At(0, 1); math.Abs(got-3) > 1e-12 {
		t.Errorf("Expected d(0,1) = 3, got %f", got)
	}
	if got := d.At(1, 2); math.Abs(got-5) > 1e-12 {
		t.Errorf("Expected d(1,2) = 5, got %f", got)
	}
	if d.At(2, 1) != d.At(1, 2) {
		t.Error("Expected symmetric matrix")
	}
}

// TestInverseDistanceWeights verifies reciprocal weights, the zero diagonal
// and the coincident-point floor
func TestInverseDistanceWeights(t *testing.T) {
	xs := []float64{0, 2, 0}
	ys := []float64{0, 0, 0}
	d := DistanceMatrix(xs, ys, Planar{})
	w := InverseDistanceWeights(d, 1e-3)

	if got := w.At(0, 1); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Expected weight 0.5, got %f", got)
	}
	// Points 0 and 2 are coincident, so the floor applies
	if got := w.At(0, 2); math.Abs(got-1000) > 1e-9 {
		t.Errorf("Expected floored weight 1000, got %f", got)
	}
	for i := 0; i < 3; i++ {
		if w.At(i, i) != 0 {
			t.Errorf("Expected zero diagonal at %d, got %f", i, w.At(i, i))
		}
	}
}

// TestDistanceToPolyline covers the projection-onto-segment cases
func TestDistanceToPolyline(t *testing.T) {
	// Horizontal segment from (0,0) to (10,0)
	vxs := []float64{0, 10}
	vys := []float64{0, 0}
	m := Planar{}

	tests := []struct {
		x, y, want float64
	}{
		{5, 3, 3},   // interior projection
		{-4, 3, 5},  // clamped to first vertex
		{13, 4, 5},  // clamped to last vertex
		{5, 0, 0},   // on the segment
	}
	for _, tt := range tests {
		if got := DistanceToPolyline(tt.x, tt.y, vxs, vys, m); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Expected distance %f from (%f,%f), got %f", tt.want, tt.x, tt.y, got)
		}
	}

	// Single vertex degenerates to point distance
	if got := DistanceToPolyline(3, 4, []float64{0}, []float64{0}, m); math.Abs(got-5) > 1e-12 {
		t.Errorf("Expected distance 5 to single vertex, got %f", got)
	}
	// Empty polyline is undefined
	if got := DistanceToPolyline(0, 0, nil, nil, m); !math.IsNaN(got) {
		t.Errorf("Expected NaN for empty polyline, got %f", got)
	}
}
