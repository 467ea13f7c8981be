// Package export writes the pipeline outputs: raster-compatible ASCII grids
// for the prediction, variance and difference surfaces, and the aggregate
// per-site prediction workbook.
package export

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tempfield/internal/models"
)

// noDataValue marks sites without a defined value in ASCII grid output.
const noDataValue = -9999.0

// WriteASCIIGrid writes a surface over the grid's sites as an ESRI ASCII
// raster (rows north to south, as GIS tools expect). NaN values become the
// nodata marker.
func WriteASCIIGrid(grid *models.CovariateGrid, values []float64, path string) error {
	if len(values) != grid.NumSites() {
		return fmt.Errorf("export: surface has %d values for a %dx%d grid", len(values), grid.Nx, grid.Ny)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\n", grid.Nx)
	fmt.Fprintf(w, "nrows %d\n", grid.Ny)
	fmt.Fprintf(w, "xllcorner %g\n", grid.X0)
	fmt.Fprintf(w, "yllcorner %g\n", grid.Y0)
	fmt.Fprintf(w, "cellsize %g\n", grid.Dx)
	fmt.Fprintf(w, "nodata_value %g\n", noDataValue)

	for row := grid.Ny - 1; row >= 0; row-- {
		for col := 0; col < grid.Nx; col++ {
			v := values[row*grid.Nx+col]
			if math.IsNaN(v) {
				v = noDataValue
			}
			if col > 0 {
				w.WriteByte(' ')
			}
			fmt.Fprintf(w, "%.4f", v)
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}

// DifferenceGrid returns a−b per site; a site that is NaN in either surface
// stays NaN. Used for the post-minus-pre era difference per season.
func DifferenceGrid(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("export: difference of surfaces with %d and %d sites", len(a), len(b))
	}
	diff := make([]float64, len(a))
	for i := range a {
		diff[i] = a[i] - b[i]
	}
	return diff, nil
}

// StratumSummary is one row of the workbook's summary sheet.
type StratumSummary struct {
	Name              string
	Status            string
	Shape             string
	Nugget            float64
	PartialSill       float64
	Range             float64
	WeightedRSS       float64
	MoranI            float64
	MoranP            float64
	RMSE              float64
	NHoldout          int
	CoverageGaps      int
	MissingCovariates int
}

// WriteWorkbook writes the aggregate xlsx: a predictions sheet keyed by the
// original site id with one predicted-value column per stratum, and a
// summary sheet with the fitted parameters and diagnostics per stratum.
// Strata that failed carry no prediction column; their status still appears
// in the summary.
func WriteWorkbook(path string, ids []string, xs, ys []float64, order []string, predictions map[string][]float64, summaries []StratumSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: creating output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const predSheet = "predictions"
	f.SetSheetName("Sheet1", predSheet)

	headers := []string{"id", "lon", "lat"}
	for _, name := range order {
		if _, ok := predictions[name]; ok {
			headers = append(headers, name)
		}
	}
	for c, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(predSheet, cell, h); err != nil {
			return fmt.Errorf("export: writing workbook header: %w", err)
		}
	}
	for r, id := range ids {
		row := []interface{}{id, xs[r], ys[r]}
		for _, name := range order {
			if preds, ok := predictions[name]; ok {
				if math.IsNaN(preds[r]) {
					row = append(row, "")
				} else {
					row = append(row, preds[r])
				}
			}
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(predSheet, cell, v); err != nil {
				return fmt.Errorf("export: writing workbook row %d: %w", r+2, err)
			}
		}
	}

	const sumSheet = "summary"
	if _, err := f.NewSheet(sumSheet); err != nil {
		return fmt.Errorf("export: creating summary sheet: %w", err)
	}
	sumHeaders := []string{
		"stratum", "status", "shape", "nugget", "partial_sill", "range_km",
		"weighted_rss", "moran_i", "moran_p", "rmse", "n_holdout",
		"coverage_gaps", "missing_covariates",
	}
	for c, h := range sumHeaders {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(sumSheet, cell, h); err != nil {
			return fmt.Errorf("export: writing summary header: %w", err)
		}
	}
	for r, s := range summaries {
		row := []interface{}{
			s.Name, s.Status, s.Shape, s.Nugget, s.PartialSill, s.Range,
			s.WeightedRSS, s.MoranI, s.MoranP, s.RMSE, s.NHoldout,
			s.CoverageGaps, s.MissingCovariates,
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sumSheet, cell, v); err != nil {
				return fmt.Errorf("export: writing summary row %d: %w", r+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: saving workbook: %w", err)
	}
	return nil
}
