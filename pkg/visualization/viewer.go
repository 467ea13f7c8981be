// Package visualization renders prediction and variance surfaces as
// grayscale images for quick visual inspection. Proper cartographic output
// belongs to the external GIS layer; these renders are a diagnostic aid.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"tempfield/internal/models"
)

// Viewer renders surfaces defined over a covariate grid's sites.
type Viewer struct {
	nx, ny int
}

// NewViewer creates a viewer for a grid's geometry.
func NewViewer(grid *models.CovariateGrid) *Viewer {
	return &Viewer{nx: grid.Nx, ny: grid.Ny}
}

// RenderSurface maps a row-major (south-up) surface onto a 16-bit grayscale
// image with min-max normalization, north up. NaN sites render black.
func (v *Viewer) RenderSurface(values []float64) (image.Image, error) {
	if len(values) != v.nx*v.ny {
		return nil, fmt.Errorf("surface has %d values for a %dx%d grid", len(values), v.nx, v.ny)
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, val := range values {
		if math.IsNaN(val) {
			continue
		}
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}
	span := max - min
	if span <= 0 || math.IsInf(min, 1) {
		span = 1
	}

	img := image.NewGray16(image.Rect(0, 0, v.nx, v.ny))
	for row := 0; row < v.ny; row++ {
		for col := 0; col < v.nx; col++ {
			val := values[row*v.nx+col]
			var level uint16
			if !math.IsNaN(val) {
				level = uint16(math.Max(0, math.Min(65535, (val-min)/span*65535)))
			}
			// Flip vertically so north is up
			img.SetGray16(col, v.ny-1-row, color.Gray16{Y: level})
		}
	}
	return img, nil
}

// SaveSurface renders a surface and writes it as a PNG file.
func (v *Viewer) SaveSurface(values []float64, filename string) error {
	img, err := v.RenderSurface(values)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveResult writes the prediction and variance surfaces of a kriging
// result into the output directory.
func (v *Viewer) SaveResult(result *models.KrigingResult, outputDir, prefix string) error {
	if err := v.SaveSurface(result.Prediction, filepath.Join(outputDir, prefix+"_prediction.png")); err != nil {
		return fmt.Errorf("saving prediction render: %w", err)
	}
	if err := v.SaveSurface(result.Variance, filepath.Join(outputDir, prefix+"_variance.png")); err != nil {
		return fmt.Errorf("saving variance render: %w", err)
	}
	return nil
}
