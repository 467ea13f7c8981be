package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"tempfield/internal/models"
	"tempfield/pkg/spatial"
)

// Solstice declinations in degrees. A season's solar geometry is evaluated
// at its solstice, the representative extreme for long-term seasonal means.
var seasonDeclination = map[string]float64{
	"summer": 23.44,
	"winter": -23.44,
}

// SeasonDeclination returns the solar declination used for a season label,
// zero (equinox) for unknown labels.
func SeasonDeclination(season string) float64 {
	return seasonDeclination[season]
}

// SolarCovariates computes the two seasonal solar-geometry proxies for a set
// of latitudes: the solar inclination proxy cos(zenith) at local noon, and
// the atmospheric path proxy 1/cos(zenith) (relative air mass), capped where
// the sun sits near or below the horizon.
func SolarCovariates(lats []float64, season string) (inclination, path []float64) {
	decl := SeasonDeclination(season)
	inclination = make([]float64, len(lats))
	path = make([]float64, len(lats))
	for i, lat := range lats {
		zenith := math.Abs(lat-decl) * math.Pi / 180
		cosZ := math.Cos(zenith)
		if cosZ < 0.05 {
			cosZ = 0.05 // polar-night guard; air mass capped at 20
		}
		inclination[i] = cosZ
		path[i] = 1 / cosZ
	}
	return inclination, path
}

// LoadCoastline reads coastline vertices from a CSV of lon,lat rows (header
// optional). The vertices form the polyline used for the distance-to-coast
// covariate.
func LoadCoastline(path string) (xs, ys []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: opening coastline: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: parsing coastline: %w", err)
	}
	for line, row := range rows {
		if len(row) < 2 {
			return nil, nil, fmt.Errorf("dataset: coastline row %d has %d fields, want 2", line+1, len(row))
		}
		x, errX := strconv.ParseFloat(row[0], 64)
		y, errY := strconv.ParseFloat(row[1], 64)
		if errX != nil || errY != nil {
			if line == 0 {
				continue // header row
			}
			return nil, nil, fmt.Errorf("dataset: coastline row %d: bad coordinates %v", line+1, row)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return nil, nil, fmt.Errorf("dataset: coastline %s has no vertices", path)
	}
	return xs, ys, nil
}

// CoastDistances computes the distance from each point to the coastline
// polyline in the metric's units.
func CoastDistances(xs, ys, coastXs, coastYs []float64, m spatial.Metric) []float64 {
	dists := make([]float64, len(xs))
	for i := range xs {
		dists[i] = spatial.DistanceToPolyline(xs[i], ys[i], coastXs, coastYs, m)
	}
	return dists
}

// SolarLayers derives the per-season solar covariate layers for a grid's
// sites, for swapping into a stratum-specific grid via WithLayers.
func SolarLayers(grid *models.CovariateGrid, season string) map[string][]float64 {
	lats := make([]float64, grid.NumSites())
	for i := range lats {
		_, lats[i] = grid.Site(i)
	}
	incl, path := SolarCovariates(lats, season)
	return map[string][]float64{
		models.CovSolarInclination: incl,
		models.CovAtmosphericPath:  path,
	}
}
