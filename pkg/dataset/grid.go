package dataset

import (
	"fmt"
	"math"

	"tempfield/internal/models"
	"tempfield/pkg/spatial"
)

// GridSpec controls construction of the shared prediction grid.
type GridSpec struct {
	// Resolution is the site spacing in CRS units (degrees for EPSG:4326)
	Resolution float64

	// Margin widens the observation bounding box on every side, in CRS units
	Margin float64
}

// BuildGrid constructs the shared covariate grid over the observation
// bounding box: elevation sampled from the raster and distance-to-coast per
// site. Seasonal solar layers are attached later per stratum. Returns the
// grid plus the count of sites whose elevation was missing (outside the
// raster or nodata) and defaulted to zero.
func BuildGrid(src *Source, spec GridSpec, elev *ElevationGrid, coastXs, coastYs []float64, metric spatial.Metric, crs string) (*models.CovariateGrid, int, error) {
	if src.Len() == 0 {
		return nil, 0, fmt.Errorf("dataset: cannot build grid from empty observation table")
	}
	if spec.Resolution <= 0 {
		return nil, 0, fmt.Errorf("dataset: grid resolution must be positive, got %g", spec.Resolution)
	}

	minX, maxX := src.Xs[0], src.Xs[0]
	minY, maxY := src.Ys[0], src.Ys[0]
	for i := 1; i < src.Len(); i++ {
		if src.Xs[i] < minX {
			minX = src.Xs[i]
		}
		if src.Xs[i] > maxX {
			maxX = src.Xs[i]
		}
		if src.Ys[i] < minY {
			minY = src.Ys[i]
		}
		if src.Ys[i] > maxY {
			maxY = src.Ys[i]
		}
	}
	minX -= spec.Margin
	minY -= spec.Margin
	maxX += spec.Margin
	maxY += spec.Margin

	// Ceil so the last row and column never fall short of the box when the
	// extent is not an exact multiple of the resolution
	nx := int(math.Ceil((maxX-minX)/spec.Resolution-1e-9)) + 1
	ny := int(math.Ceil((maxY-minY)/spec.Resolution-1e-9)) + 1

	grid := &models.CovariateGrid{
		CRS: crs,
		Nx:  nx, Ny: ny,
		X0: minX, Y0: minY,
		Dx: spec.Resolution, Dy: spec.Resolution,
		Layers: make(map[string][]float64, 2),
	}

	elevLayer := make([]float64, grid.NumSites())
	coastLayer := make([]float64, grid.NumSites())
	missing := 0
	for i := 0; i < grid.NumSites(); i++ {
		x, y := grid.Site(i)
		if v, ok := elev.Sample(x, y); ok {
			elevLayer[i] = v
		} else {
			missing++
		}
		coastLayer[i] = spatial.DistanceToPolyline(x, y, coastXs, coastYs, metric)
	}
	grid.Layers[models.CovElevation] = elevLayer
	grid.Layers[models.CovCoastDistance] = coastLayer

	return grid, missing, nil
}

// PointCovariates samples the observation-side covariates for the source
// table: elevation from the raster, distance-to-coast, and the seasonal
// solar proxies. Returns the covariate arrays plus the missing-elevation
// count.
func PointCovariates(src *Source, elev *ElevationGrid, coastXs, coastYs []float64, metric spatial.Metric, season string) (map[string][]float64, int) {
	n := src.Len()
	elevArr := make([]float64, n)
	missing := 0
	for i := 0; i < n; i++ {
		if v, ok := elev.Sample(src.Xs[i], src.Ys[i]); ok {
			elevArr[i] = v
		} else {
			missing++
		}
	}

	incl, path := SolarCovariates(src.Ys, season)
	return map[string][]float64{
		models.CovElevation:        elevArr,
		models.CovCoastDistance:    CoastDistances(src.Xs, src.Ys, coastXs, coastYs, metric),
		models.CovSolarInclination: incl,
		models.CovAtmosphericPath:  path,
	}, missing
}
