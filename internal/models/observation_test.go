package models

import (
	"testing"
)

// TestCovariateRow verifies design-order extraction and zero substitution
// for missing entries
func TestCovariateRow(t *testing.T) {
	o := Observation{
		Covariates: map[string]float64{
			CovElevation:     120,
			CovCoastDistance: 14.5,
		},
	}

	row, subs := o.CovariateRow(DriftCovariates)
	if len(row) != len(DriftCovariates) {
		t.Fatalf("Expected %d entries, got %d", len(DriftCovariates), len(row))
	}
	if row[0] != 120 || row[1] != 14.5 {
		t.Errorf("Expected [120, 14.5, ...], got %v", row)
	}
	if row[2] != 0 || row[3] != 0 {
		t.Errorf("Expected zero substitution for missing covariates, got %v", row)
	}
	if subs != 2 {
		t.Errorf("Expected 2 substitutions, got %d", subs)
	}
}

// TestGridSiteRoundTrip verifies row-major site indexing against NearestSite
func TestGridSiteRoundTrip(t *testing.T) {
	g := &CovariateGrid{
		Nx: 4, Ny: 3,
		X0: 10, Y0: 50, Dx: 0.5, Dy: 0.25,
	}

	for i := 0; i < g.NumSites(); i++ {
		x, y := g.Site(i)
		if got := g.NearestSite(x, y); got != i {
			t.Errorf("site %d at (%f,%f): NearestSite returned %d", i, x, y, got)
		}
	}
}

// TestGridContains verifies the extent check including boundaries
func TestGridContains(t *testing.T) {
	g := &CovariateGrid{Nx: 3, Ny: 3, X0: 0, Y0: 0, Dx: 1, Dy: 1}

	tests := []struct {
		x, y float64
		want bool
	}{
		{0, 0, true},
		{2, 2, true},
		{1, 1.5, true},
		{-0.1, 1, false},
		{1, 2.1, false},
	}
	for _, tt := range tests {
		if got := g.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%f,%f): expected %v, got %v", tt.x, tt.y, tt.want, got)
		}
	}
}

// TestNearestSiteOutside verifies the out-of-extent sentinel
func TestNearestSiteOutside(t *testing.T) {
	g := &CovariateGrid{Nx: 2, Ny: 2, X0: 0, Y0: 0, Dx: 1, Dy: 1}
	if got := g.NearestSite(5, 5); got != -1 {
		t.Errorf("Expected -1 for a point outside the grid, got %d", got)
	}
}

// TestWithLayersImmutable verifies layer swaps never touch the parent grid
func TestWithLayersImmutable(t *testing.T) {
	base := &CovariateGrid{
		Nx: 2, Ny: 1, Dx: 1, Dy: 1,
		Layers: map[string][]float64{
			CovElevation:        {100, 200},
			CovSolarInclination: {0.5, 0.6},
		},
	}

	derived := base.WithLayers(map[string][]float64{
		CovSolarInclination: {0.8, 0.9},
	})

	// The parent keeps its original layer
	if base.Layers[CovSolarInclination][0] != 0.5 {
		t.Error("Expected parent grid unchanged after WithLayers")
	}
	// The derived grid sees the replacement plus the shared layer
	if derived.Layers[CovSolarInclination][0] != 0.8 {
		t.Error("Expected derived grid to carry the replacement layer")
	}
	if derived.Layers[CovElevation][1] != 200 {
		t.Error("Expected untouched layers shared into the derived grid")
	}
	if derived.Nx != base.Nx || derived.Dx != base.Dx {
		t.Error("Expected geometry carried into the derived grid")
	}
}

// TestStratumName verifies the filename-stable identifier
func TestStratumName(t *testing.T) {
	s := Stratum{Era: "post", Season: "winter", Column: "temp_post_winter"}
	if got := s.Name(); got != "post_winter" {
		t.Errorf("Expected post_winter, got %q", got)
	}
}
