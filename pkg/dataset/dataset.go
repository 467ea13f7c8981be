// Package dataset loads the pipeline inputs: tabular point observations,
// the auxiliary elevation raster, and the coastline geometry, and derives
// the covariate layers the drift model consumes. File handling here is thin
// glue at the system boundary; the numerical core only ever sees point sets
// and regular grids.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"tempfield/internal/models"
)

// Source is the raw observation table: one row per site, one value column
// per stratum.
type Source struct {
	IDs    []string
	Xs, Ys []float64

	// Values maps value-column name to per-site measurements
	Values map[string][]float64
}

// Len returns the number of sites in the table.
func (s *Source) Len() int { return len(s.IDs) }

// MeanY returns the mean of the Y coordinates, used as the reference
// latitude for the geographic distance metric.
func (s *Source) MeanY() float64 {
	if len(s.Ys) == 0 {
		return 0
	}
	sum := 0.0
	for _, y := range s.Ys {
		sum += y
	}
	return sum / float64(len(s.Ys))
}

// LoadObservations reads a CSV observation table with a header row of the
// form id,lon,lat,<value columns...>. Every column after the coordinates is
// kept as a candidate stratum value column.
func LoadObservations(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening observations: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parsing observations: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset: observation table %s has no data rows", path)
	}
	header := rows[0]
	if len(header) < 4 {
		return nil, fmt.Errorf("dataset: observation table needs id, lon, lat and at least one value column, got %d columns", len(header))
	}

	src := &Source{Values: make(map[string][]float64)}
	valueCols := header[3:]
	for _, col := range valueCols {
		src.Values[col] = make([]float64, 0, len(rows)-1)
	}

	for line, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("dataset: row %d has %d fields, want %d", line+2, len(row), len(header))
		}
		x, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: bad longitude %q", line+2, row[1])
		}
		y, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: bad latitude %q", line+2, row[2])
		}
		src.IDs = append(src.IDs, row[0])
		src.Xs = append(src.Xs, x)
		src.Ys = append(src.Ys, y)
		for c, col := range valueCols {
			v, err := strconv.ParseFloat(row[3+c], 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d: bad value %q in column %s", line+2, row[3+c], col)
			}
			src.Values[col] = append(src.Values[col], v)
		}
	}
	return src, nil
}

// ObservationSet assembles the observations for one stratum's value column,
// attaching the precomputed covariate arrays. Covariate arrays must be
// indexed in parallel with the source table.
func (s *Source) ObservationSet(crs, column string, covariates map[string][]float64) (*models.ObservationSet, error) {
	values, ok := s.Values[column]
	if !ok {
		return nil, fmt.Errorf("dataset: no value column %q in observation table", column)
	}

	set := &models.ObservationSet{CRS: crs, Obs: make([]models.Observation, s.Len())}
	for i := range set.Obs {
		covs := make(map[string]float64, len(covariates))
		for name, arr := range covariates {
			covs[name] = arr[i]
		}
		set.Obs[i] = models.Observation{
			ID:         s.IDs[i],
			X:          s.Xs[i],
			Y:          s.Ys[i],
			Value:      values[i],
			Covariates: covs,
		}
	}
	return set, nil
}
