package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tempfield/internal/models"
	"tempfield/pkg/config"
	"tempfield/pkg/dataset"
	"tempfield/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "tempfield.yaml", "Configuration file (YAML)")
	writeConfig := flag.Bool("write-config", false, "Write a default configuration file and exit")
	obsFile := flag.String("observations", "", "Observation table CSV (overrides config)")
	elevFile := flag.String("elevation", "", "ESRI ASCII elevation grid (overrides config)")
	coastFile := flag.String("coastline", "", "Coastline vertex CSV (overrides config)")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (0 = from config)")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line overrides
	if *obsFile != "" {
		cfg.Inputs.Observations = *obsFile
	}
	if *elevFile != "" {
		cfg.Inputs.Elevation = *elevFile
	}
	if *coastFile != "" {
		cfg.Inputs.Coastline = *coastFile
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}

	// Validate inputs
	if cfg.Inputs.Observations == "" || cfg.Inputs.Elevation == "" || cfg.Inputs.Coastline == "" {
		fmt.Fprintln(os.Stderr, "observation, elevation and coastline inputs are all required")
		flag.Usage()
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("TEMPFIELD: STRATIFIED TEMPERATURE SURFACES BY UNIVERSAL KRIGING WITH EXTERNAL DRIFT")
	fmt.Println("================================")

	strata := make([]models.Stratum, len(cfg.Strata))
	for i, s := range cfg.Strata {
		strata[i] = models.Stratum{Era: s.Era, Season: s.Season, Column: s.Column}
	}

	params := &pipeline.Params{
		ObservationsFile:   cfg.Inputs.Observations,
		ElevationFile:      cfg.Inputs.Elevation,
		CoastlineFile:      cfg.Inputs.Coastline,
		CRS:                cfg.Inputs.CRS,
		NumCores:           cfg.Processing.NumCores,
		HoldoutFraction:    cfg.Processing.HoldoutFraction,
		HoldoutSeed:        cfg.Processing.HoldoutSeed,
		CutoffKm:           cfg.Variogram.CutoffKm,
		BinWidthKm:         cfg.Variogram.BinWidthKm,
		SelectionTolerance: cfg.Variogram.SelectionTolerance,
		Grid: dataset.GridSpec{
			Resolution: cfg.Grid.Resolution,
			Margin:     cfg.Grid.Margin,
		},
		Strata:        strata,
		OutputDir:     cfg.Output.Dir,
		WriteImages:   cfg.Output.WriteImages,
		WriteWorkbook: cfg.Output.WriteWorkbook,
		Verbose:       cfg.Output.Verbose,
	}

	p := pipeline.New(params)

	fmt.Println("Starting interpolation with parallel processing...")
	startTime := time.Now()
	if err := p.Run(context.Background()); err != nil {
		log.Fatalf("Interpolation failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nInterpolation completed in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Results saved to: %s\n\n", cfg.Output.Dir)

	fmt.Printf("Per-stratum results:\n")
	fmt.Printf("====================\n")
	failed := 0
	for _, res := range p.Results() {
		if res.Err != nil {
			fmt.Printf("%-14s FAILED: %v\n", res.Stratum.Name(), res.Err)
			failed++
			continue
		}
		m := res.Selected.Model
		fmt.Printf("%-14s %-11s nugget=%.3f psill=%.3f range=%.1fkm\n",
			res.Stratum.Name(), m.Shape, m.Nugget, m.PartialSill, m.Range)
		fmt.Printf("               RMSE=%.3f MAE=%.3f bias=%+.3f (holdout n=%d, gaps=%d)\n",
			res.Report.RMSE, res.Report.MAE, res.Report.Bias,
			res.Report.NHoldout, res.Report.CoverageGaps)
		fmt.Printf("               drift R2=%.3f, residual Moran's I=%.3f (p=%.3f)\n",
			res.Drift.R2, res.Moran.I, res.Moran.P)
		if res.MissingCovariates > 0 {
			fmt.Printf("               %d missing covariate values substituted with zero\n",
				res.MissingCovariates)
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d strata failed; their outputs were skipped\n", failed, len(p.Results()))
		os.Exit(1)
	}
}
