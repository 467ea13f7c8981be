package models

// Covariate names used by the external-drift model. Every observation and
// every covariate grid carries the same fixed schema, validated at load time.
const (
	CovElevation        = "elevation"
	CovCoastDistance    = "coast_distance"
	CovSolarInclination = "solar_inclination"
	CovAtmosphericPath  = "atmospheric_path"
)

// DriftCovariates is the fixed design order for the drift regression and the
// universal-kriging design matrix. The intercept is implicit and always first.
var DriftCovariates = []string{
	CovElevation,
	CovCoastDistance,
	CovSolarInclination,
	CovAtmosphericPath,
}

// Observation is a single geo-located scalar measurement with its covariates.
type Observation struct {
	// ID is the original station or test-site identifier
	ID string

	// X and Y are the coordinates in the dataset CRS (lon/lat for EPSG:4326)
	X, Y float64

	// Value is the measured scalar (long-term mean temperature, °C)
	Value float64

	// Covariates maps covariate name to its value at this location
	Covariates map[string]float64

	// Residual is the drift-regression residual, attached after the
	// diagnostic OLS fit. Zero until the regression has run.
	Residual float64
}

// Covariate returns the named covariate and whether it is present.
func (o *Observation) Covariate(name string) (float64, bool) {
	v, ok := o.Covariates[name]
	return v, ok
}

// CovariateRow builds the covariate values for this observation in the given
// order. A missing covariate contributes 0 and is counted, so callers can
// surface data-quality problems instead of silently absorbing them.
func (o *Observation) CovariateRow(names []string) ([]float64, int) {
	row := make([]float64, len(names))
	substituted := 0
	for i, name := range names {
		if v, ok := o.Covariates[name]; ok {
			row[i] = v
		} else {
			substituted++
		}
	}
	return row, substituted
}

// ObservationSet holds the point observations for one run.
type ObservationSet struct {
	// CRS tags the coordinate reference system of all points (e.g. "EPSG:4326")
	CRS string

	// Obs are the observations in load order
	Obs []Observation
}

// Len returns the number of observations.
func (s *ObservationSet) Len() int { return len(s.Obs) }

// Values extracts the observed scalars in order.
func (s *ObservationSet) Values() []float64 {
	vals := make([]float64, len(s.Obs))
	for i := range s.Obs {
		vals[i] = s.Obs[i].Value
	}
	return vals
}

// Residuals extracts the attached drift residuals in order.
func (s *ObservationSet) Residuals() []float64 {
	res := make([]float64, len(s.Obs))
	for i := range s.Obs {
		res[i] = s.Obs[i].Residual
	}
	return res
}

// CovariateGrid is a regular set of prediction sites sharing the observation
// covariate schema. Layers are stored as typed arrays keyed by covariate name
// (fixed schema, validated at construction). A grid is immutable once built;
// per-stratum covariate layers are swapped by deriving a new grid with
// WithLayers, never by in-place column writes.
type CovariateGrid struct {
	// CRS tags the coordinate reference system of the grid
	CRS string

	// Nx and Ny are the number of columns and rows
	Nx, Ny int

	// X0, Y0 are the coordinates of the first (south-west) site and
	// Dx, Dy the site spacing along each axis
	X0, Y0, Dx, Dy float64

	// Layers maps covariate name to a row-major array of length Nx*Ny
	Layers map[string][]float64
}

// NumSites returns the number of prediction sites.
func (g *CovariateGrid) NumSites() int { return g.Nx * g.Ny }

// Site returns the coordinates of site i in row-major order.
func (g *CovariateGrid) Site(i int) (x, y float64) {
	return g.X0 + float64(i%g.Nx)*g.Dx, g.Y0 + float64(i/g.Nx)*g.Dy
}

// Layer returns the named covariate array and whether it is present.
func (g *CovariateGrid) Layer(name string) ([]float64, bool) {
	l, ok := g.Layers[name]
	return l, ok
}

// CovariateRow builds the covariate values for site i in the given order,
// counting zero substitutions for missing layers.
func (g *CovariateGrid) CovariateRow(i int, names []string) ([]float64, int) {
	row := make([]float64, len(names))
	substituted := 0
	for j, name := range names {
		if l, ok := g.Layers[name]; ok {
			row[j] = l[i]
		} else {
			substituted++
		}
	}
	return row, substituted
}

// Contains reports whether the point falls inside the grid extent. Sites on
// the boundary count as covered.
func (g *CovariateGrid) Contains(x, y float64) bool {
	maxX := g.X0 + float64(g.Nx-1)*g.Dx
	maxY := g.Y0 + float64(g.Ny-1)*g.Dy
	return x >= g.X0 && x <= maxX && y >= g.Y0 && y <= maxY
}

// NearestSite returns the row-major index of the grid site closest to the
// point, or -1 when the point is outside the grid extent.
func (g *CovariateGrid) NearestSite(x, y float64) int {
	if !g.Contains(x, y) {
		return -1
	}
	col := int((x-g.X0)/g.Dx + 0.5)
	row := int((y-g.Y0)/g.Dy + 0.5)
	if col < 0 {
		col = 0
	}
	if col >= g.Nx {
		col = g.Nx - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= g.Ny {
		row = g.Ny - 1
	}
	return row*g.Nx + col
}

// WithLayers derives a new grid sharing this grid's geometry with the given
// layers replaced or added. Untouched layers are carried over by reference;
// they are never written to, so sharing is safe across strata.
func (g *CovariateGrid) WithLayers(layers map[string][]float64) *CovariateGrid {
	derived := &CovariateGrid{
		CRS: g.CRS,
		Nx:  g.Nx, Ny: g.Ny,
		X0: g.X0, Y0: g.Y0, Dx: g.Dx, Dy: g.Dy,
		Layers: make(map[string][]float64, len(g.Layers)+len(layers)),
	}
	for name, l := range g.Layers {
		derived.Layers[name] = l
	}
	for name, l := range layers {
		derived.Layers[name] = l
	}
	return derived
}

// KrigingResult holds the prediction and prediction-variance surfaces,
// indexed in parallel with the covariate grid's sites.
type KrigingResult struct {
	// Prediction is the best linear unbiased prediction per site
	Prediction []float64

	// Variance is the kriging variance per site, clamped at zero
	Variance []float64
}

// ValidationReport summarizes held-out performance for one stratum.
type ValidationReport struct {
	// RMSE is the root mean square error over covered holdout sites
	RMSE float64

	// MAE is the mean absolute error over covered holdout sites
	MAE float64

	// Bias is the mean signed error (predicted minus observed)
	Bias float64

	// NHoldout is the number of holdout sites that entered the RMSE
	NHoldout int

	// CoverageGaps counts holdout sites outside the grid extent,
	// excluded from the error metrics
	CoverageGaps int
}

// Stratum identifies one independent era × season pipeline run.
type Stratum struct {
	// Era labels the climatological period (e.g. "pre", "post")
	Era string

	// Season labels the seasonal slice (e.g. "summer", "winter")
	Season string

	// Column is the observation value column for this stratum
	Column string
}

// Name returns a stable identifier used in filenames and logs.
func (s Stratum) Name() string { return s.Era + "_" + s.Season }
