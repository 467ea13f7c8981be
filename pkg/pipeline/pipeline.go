// Package pipeline orchestrates the full interpolation run: input loading,
// the fixed holdout split, and the per-stratum chain of variogram
// estimation, model fitting, drift diagnostics, universal kriging and
// validation. Strata are independent and processed in parallel; a failure
// in one stratum never aborts its siblings.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"sync"

	"tempfield/internal/models"
	"tempfield/pkg/dataset"
	"tempfield/pkg/export"
	"tempfield/pkg/kriging"
	"tempfield/pkg/regression"
	"tempfield/pkg/spatial"
	"tempfield/pkg/validation"
	"tempfield/pkg/variogram"
	"tempfield/pkg/visualization"
)

// coincidentFloorKm floors pair separations when inverting distances for
// the Moran weight matrix, guarding against co-located stations.
const coincidentFloorKm = 1e-3

// Params holds the run configuration.
type Params struct {
	// Input files and CRS tag
	ObservationsFile string
	ElevationFile    string
	CoastlineFile    string
	CRS              string

	// NumCores bounds per-site kriging parallelism
	NumCores int

	// Holdout split
	HoldoutFraction float64
	HoldoutSeed     int64

	// Variogram binning and model selection
	CutoffKm           float64
	BinWidthKm         float64
	SelectionTolerance float64

	// Prediction grid geometry
	Grid dataset.GridSpec

	// Strata to process
	Strata []models.Stratum

	// Output
	OutputDir     string
	WriteImages   bool
	WriteWorkbook bool
	Verbose       bool
}

// StratumResult carries everything one stratum produced, including its
// failure when it had one.
type StratumResult struct {
	Stratum models.Stratum

	// Err is non-nil when the stratum failed; the remaining fields hold
	// whatever was computed before the failure
	Err error

	// Fits holds every fitted variogram shape; Selected is the winner
	Fits     []variogram.Fit
	Selected variogram.Fit

	// Drift is the diagnostic OLS fit, Moran its residual autocorrelation
	Drift *regression.Result
	Moran regression.MoranResult

	// Result holds the prediction and variance surfaces
	Result *models.KrigingResult

	// Report is the holdout validation outcome
	Report models.ValidationReport

	// SitePredictions is the kriged value at every original site, in
	// source-table order
	SitePredictions []float64

	// MissingCovariates counts zero substitutions across the observation
	// design and the prediction grid
	MissingCovariates int
}

// Pipeline runs the whole batch.
type Pipeline struct {
	params *Params

	src      *dataset.Source
	elev     *dataset.ElevationGrid
	coastXs  []float64
	coastYs  []float64
	metric   spatial.Metric
	baseGrid *models.CovariateGrid
	holdout  map[int]bool

	results []StratumResult
}

// New creates a pipeline for the given parameters.
func New(params *Params) *Pipeline {
	if params.NumCores <= 0 {
		params.NumCores = runtime.NumCPU()
	}
	return &Pipeline{params: params}
}

// Results returns the per-stratum outcomes, in Params.Strata order. Valid
// after Run.
func (p *Pipeline) Results() []StratumResult { return p.results }

// Grid returns the shared covariate grid. Valid after Run.
func (p *Pipeline) Grid() *models.CovariateGrid { return p.baseGrid }

// Run executes the complete pipeline.
func (p *Pipeline) Run(ctx context.Context) error {
	// Step 1: Load inputs
	p.logf("Step 1: Loading observations, elevation raster and coastline...")
	if err := p.loadInputs(); err != nil {
		return err
	}

	// Step 2: Build the shared covariate grid
	p.logf("Step 2: Building covariate grid...")
	grid, missing, err := dataset.BuildGrid(p.src, p.params.Grid, p.elev, p.coastXs, p.coastYs, p.metric, p.params.CRS)
	if err != nil {
		return fmt.Errorf("building covariate grid: %w", err)
	}
	p.baseGrid = grid
	p.logf("Grid: %dx%d sites at %g resolution (%d sites without elevation)",
		grid.Nx, grid.Ny, grid.Dx, missing)

	// Step 3: Fix the holdout split for the whole run
	p.logf("Step 3: Splitting observations (%.0f%% holdout, seed %d)...",
		p.params.HoldoutFraction*100, p.params.HoldoutSeed)
	p.holdout = validation.SplitIndices(p.src.Len(), p.params.HoldoutFraction, p.params.HoldoutSeed)
	p.logf("Holding out %d of %d sites", len(p.holdout), p.src.Len())

	// Step 4: Process strata in parallel
	p.logf("Step 4: Processing %d strata...", len(p.params.Strata))
	p.results = make([]StratumResult, len(p.params.Strata))

	var wg sync.WaitGroup
	for i, st := range p.params.Strata {
		wg.Add(1)
		go func(i int, st models.Stratum) {
			defer wg.Done()
			p.results[i] = p.processStratum(ctx, st)
			if p.results[i].Err != nil {
				p.logf("Stratum %s FAILED: %v", st.Name(), p.results[i].Err)
			} else {
				p.logf("Stratum %s done: %s model, RMSE %.3f", st.Name(),
					p.results[i].Selected.Model.Shape, p.results[i].Report.RMSE)
			}
		}(i, st)
	}
	wg.Wait()

	// Step 5: Write outputs
	p.logf("Step 5: Writing outputs to %s...", p.params.OutputDir)
	return p.writeOutputs()
}

func (p *Pipeline) loadInputs() error {
	src, err := dataset.LoadObservations(p.params.ObservationsFile)
	if err != nil {
		return err
	}
	p.src = src
	p.metric = spatial.MetricFor(p.params.CRS, src.MeanY())

	p.elev, err = dataset.LoadASCIIGrid(p.params.ElevationFile)
	if err != nil {
		return err
	}
	p.coastXs, p.coastYs, err = dataset.LoadCoastline(p.params.CoastlineFile)
	if err != nil {
		return err
	}
	p.logf("Loaded %d observation sites, %dx%d elevation raster, %d coastline vertices",
		src.Len(), p.elev.Nx, p.elev.Ny, len(p.coastXs))

	// Station spacing diagnostic; coincident sites will force jitter into
	// the kriging system later
	nn := spatial.NearestNeighborDistances(src.Xs, src.Ys, p.metric)
	minNN, sumNN := math.Inf(1), 0.0
	coincident := 0
	for _, d := range nn {
		if d < minNN {
			minNN = d
		}
		sumNN += d
		if d < coincidentFloorKm {
			coincident++
		}
	}
	if src.Len() > 1 {
		p.logf("Station spacing: min %.2f, mean %.2f (%d coincident)",
			minNN, sumNN/float64(len(nn)), coincident)
	}
	return nil
}

// processStratum runs the full chain for one era × season combination. Any
// failure is contained in the returned result.
func (p *Pipeline) processStratum(ctx context.Context, st models.Stratum) StratumResult {
	res := StratumResult{Stratum: st}

	covs, missingElev := dataset.PointCovariates(p.src, p.elev, p.coastXs, p.coastYs, p.metric, st.Season)
	res.MissingCovariates += missingElev

	set, err := p.src.ObservationSet(p.params.CRS, st.Column, covs)
	if err != nil {
		res.Err = err
		return res
	}
	fitSet, holdSet := validation.Partition(set, p.holdout)

	// Empirical variogram and model fits on the fitting set only
	xs := make([]float64, fitSet.Len())
	ys := make([]float64, fitSet.Len())
	for i := range fitSet.Obs {
		xs[i] = fitSet.Obs[i].X
		ys[i] = fitSet.Obs[i].Y
	}
	dists := spatial.DistanceMatrix(xs, ys, p.metric)

	// Bin-width diagnostic: how pair counts distribute under the configured
	// width and its neighbors
	if p.params.Verbose {
		w := p.params.BinWidthKm
		spread := variogram.PairCountSpread(dists, fitSet.Values(), p.params.CutoffKm, []float64{w / 2, w, 2 * w})
		for _, cand := range []float64{w / 2, w, 2 * w} {
			counts := spread[cand]
			minC, maxC := -1, 0
			for _, c := range counts {
				if c > 0 && (minC < 0 || c < minC) {
					minC = c
				}
				if c > maxC {
					maxC = c
				}
			}
			p.logf("Stratum %s: width %.2f km -> %d bins, pairs per bin %d..%d",
				st.Name(), cand, len(counts), minC, maxC)
		}
	}

	empirical, err := variogram.EstimateFromDistances(dists, fitSet.Values(), p.params.CutoffKm, p.params.BinWidthKm)
	if err != nil {
		res.Err = fmt.Errorf("stratum %s: %w", st.Name(), err)
		return res
	}
	res.Fits, err = variogram.FitAll(empirical)
	if err != nil {
		res.Err = fmt.Errorf("stratum %s: %w", st.Name(), err)
		return res
	}
	res.Selected = variogram.MinimumRSS(p.params.SelectionTolerance)(res.Fits)

	// Diagnostic drift regression and residual autocorrelation. A
	// degenerate design is fatal for the stratum; a Moran failure is not,
	// the test is informational.
	res.Drift, err = regression.FitDrift(fitSet, models.DriftCovariates)
	if err != nil {
		res.Err = fmt.Errorf("stratum %s: %w", st.Name(), err)
		return res
	}
	res.MissingCovariates += res.Drift.Substituted

	weights := spatial.InverseDistanceWeights(dists, coincidentFloorKm)
	if moran, err := regression.MoranI(fitSet.Residuals(), weights); err == nil {
		res.Moran = moran
	} else {
		p.logf("Stratum %s: Moran's I unavailable: %v", st.Name(), err)
		res.Moran = regression.MoranResult{I: math.NaN(), P: math.NaN()}
	}

	// Stratum-specific grid: swap in this season's solar layers without
	// touching the shared grid
	grid := p.baseGrid.WithLayers(dataset.SolarLayers(p.baseGrid, st.Season))

	predictor, err := kriging.NewPredictor(res.Selected.Model, fitSet, p.metric, models.DriftCovariates)
	if err != nil {
		res.Err = fmt.Errorf("stratum %s: %w", st.Name(), err)
		return res
	}
	res.MissingCovariates += predictor.Substituted

	result, gridSubs, err := predictor.PredictGrid(ctx, grid, p.params.NumCores)
	if err != nil {
		res.Err = fmt.Errorf("stratum %s: %w", st.Name(), err)
		return res
	}
	res.Result = result
	res.MissingCovariates += gridSubs

	// Validation against the held-out sites via nearest-grid-site lookup;
	// sites outside the grid extent count as coverage gaps
	surface := func(x, y float64) (float64, bool) {
		idx := grid.NearestSite(x, y)
		if idx < 0 {
			return 0, false
		}
		return result.Prediction[idx], true
	}
	res.Report = validation.Validate(holdSet, surface)

	// Aggregate table: kriged value at every original site
	res.SitePredictions = make([]float64, p.src.Len())
	for i := 0; i < p.src.Len(); i++ {
		row := make([]float64, len(models.DriftCovariates))
		for j, name := range models.DriftCovariates {
			row[j] = covs[name][i]
		}
		pred, _, err := predictor.PredictAt(p.src.Xs[i], p.src.Ys[i], row)
		if err != nil {
			res.SitePredictions[i] = math.NaN()
			continue
		}
		res.SitePredictions[i] = pred
	}

	return res
}

// writeOutputs persists every successful stratum's surfaces, the seasonal
// era-difference grids, and the aggregate workbook.
func (p *Pipeline) writeOutputs() error {
	outDir := p.params.OutputDir
	viewer := visualization.NewViewer(p.baseGrid)

	predictions := make(map[string][]float64, len(p.results))
	order := make([]string, 0, len(p.results))
	summaries := make([]export.StratumSummary, 0, len(p.results))

	byName := make(map[string]*StratumResult, len(p.results))
	for i := range p.results {
		res := &p.results[i]
		name := res.Stratum.Name()
		order = append(order, name)
		byName[name] = res

		summary := export.StratumSummary{
			Name:              name,
			Status:            "ok",
			MissingCovariates: res.MissingCovariates,
		}
		if res.Err != nil {
			summary.Status = res.Err.Error()
			summaries = append(summaries, summary)
			continue
		}

		summary.Shape = res.Selected.Model.Shape.String()
		summary.Nugget = res.Selected.Model.Nugget
		summary.PartialSill = res.Selected.Model.PartialSill
		summary.Range = res.Selected.Model.Range
		summary.WeightedRSS = res.Selected.WeightedRSS
		summary.MoranI = res.Moran.I
		summary.MoranP = res.Moran.P
		summary.RMSE = res.Report.RMSE
		summary.NHoldout = res.Report.NHoldout
		summary.CoverageGaps = res.Report.CoverageGaps
		summaries = append(summaries, summary)

		predictions[name] = res.SitePredictions

		if err := export.WriteASCIIGrid(p.baseGrid, res.Result.Prediction, filepath.Join(outDir, name+"_prediction.asc")); err != nil {
			return err
		}
		if err := export.WriteASCIIGrid(p.baseGrid, res.Result.Variance, filepath.Join(outDir, name+"_variance.asc")); err != nil {
			return err
		}
		if p.params.WriteImages {
			if err := viewer.SaveResult(res.Result, outDir, name); err != nil {
				return err
			}
		}
	}

	// Post-minus-pre era difference per season, when both eras succeeded
	for _, season := range p.seasons() {
		post, okPost := byName["post_"+season]
		pre, okPre := byName["pre_"+season]
		if !okPost || !okPre || post.Err != nil || pre.Err != nil {
			continue
		}
		diff, err := export.DifferenceGrid(post.Result.Prediction, pre.Result.Prediction)
		if err != nil {
			return err
		}
		if err := export.WriteASCIIGrid(p.baseGrid, diff, filepath.Join(outDir, "diff_"+season+".asc")); err != nil {
			return err
		}
		if p.params.WriteImages {
			if err := viewer.SaveSurface(diff, filepath.Join(outDir, "diff_"+season+".png")); err != nil {
				return err
			}
		}
	}

	if p.params.WriteWorkbook {
		path := filepath.Join(outDir, "predictions.xlsx")
		if err := export.WriteWorkbook(path, p.src.IDs, p.src.Xs, p.src.Ys, order, predictions, summaries); err != nil {
			return err
		}
		p.logf("Aggregate workbook written to %s", path)
	}
	return nil
}

// seasons lists the distinct season labels across the configured strata.
func (p *Pipeline) seasons() []string {
	seen := make(map[string]bool)
	var seasons []string
	for _, st := range p.params.Strata {
		if !seen[st.Season] {
			seen[st.Season] = true
			seasons = append(seasons, st.Season)
		}
	}
	return seasons
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.params.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}
