package visualization

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"tempfield/internal/models"
)

func testViewer() *Viewer {
	return NewViewer(&models.CovariateGrid{Nx: 3, Ny: 2})
}

// TestRenderSurface verifies min-max normalization and the north-up flip
func TestRenderSurface(t *testing.T) {
	v := testViewer()
	// South-up storage: southern row 0 1 2, northern row 3 4 5
	values := []float64{0, 1, 2, 3, 4, 5}

	img, err := v.RenderSurface(values)
	if err != nil {
		t.Fatalf("RenderSurface failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 3 || bounds.Dy() != 2 {
		t.Fatalf("Expected 3x2 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray := img.(*image.Gray16)
	// The minimum value (southern row, first column) renders black at the
	// image bottom
	if got := gray.Gray16At(0, 1).Y; got != 0 {
		t.Errorf("Expected level 0 for minimum value, got %d", got)
	}
	// The maximum value (northern row, last column) renders white at the top
	if got := gray.Gray16At(2, 0).Y; got != 65535 {
		t.Errorf("Expected level 65535 for maximum value, got %d", got)
	}
}

// TestRenderSurfaceNaN verifies NaN sites render black
func TestRenderSurfaceNaN(t *testing.T) {
	v := testViewer()
	values := []float64{1, math.NaN(), 2, 3, 4, 5}

	img, err := v.RenderSurface(values)
	if err != nil {
		t.Fatalf("RenderSurface failed: %v", err)
	}
	gray := img.(*image.Gray16)
	// Site (1, southern row) is at image row 1 after the flip
	if got := gray.Gray16At(1, 1); got != (color.Gray16{Y: 0}) {
		t.Errorf("Expected black for NaN site, got %v", got)
	}
}

// TestRenderSurfaceConstant verifies a flat surface renders without a
// division by zero
func TestRenderSurfaceConstant(t *testing.T) {
	v := testViewer()
	values := []float64{7, 7, 7, 7, 7, 7}

	if _, err := v.RenderSurface(values); err != nil {
		t.Fatalf("RenderSurface failed on a constant surface: %v", err)
	}
}

// TestRenderSurfaceSizeMismatch verifies the length guard
func TestRenderSurfaceSizeMismatch(t *testing.T) {
	v := testViewer()
	if _, err := v.RenderSurface([]float64{1, 2}); err == nil {
		t.Error("Expected error for mismatched surface length")
	}
}

// TestSaveResult verifies both PNG files land on disk
func TestSaveResult(t *testing.T) {
	v := testViewer()
	result := &models.KrigingResult{
		Prediction: []float64{1, 2, 3, 4, 5, 6},
		Variance:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
	}
	dir := t.TempDir()

	if err := v.SaveResult(result, dir, "pre_summer"); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	for _, name := range []string{"pre_summer_prediction.png", "pre_summer_variance.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}
