// Package config provides configuration loading and management for tempfield.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// StratumConfig identifies one era × season run and its value column in the
// observation table.
type StratumConfig struct {
	Era    string `yaml:"era"`
	Season string `yaml:"season"`
	Column string `yaml:"column"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input file locations and coordinate system
	Inputs struct {
		// Observations is the CSV observation table (id, lon, lat, value columns)
		Observations string `yaml:"observations"`

		// Elevation is the ESRI ASCII elevation grid
		Elevation string `yaml:"elevation"`

		// Coastline is the CSV of coastline vertices (lon, lat)
		Coastline string `yaml:"coastline"`

		// CRS tags the coordinate system of all point inputs
		CRS string `yaml:"crs"`
	} `yaml:"inputs"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// HoldoutFraction is the share of observations held out for validation
		HoldoutFraction float64 `yaml:"holdoutFraction"`

		// HoldoutSeed seeds the deterministic holdout split
		HoldoutSeed int64 `yaml:"holdoutSeed"`
	} `yaml:"processing"`

	// Variogram estimation and fitting parameters
	Variogram struct {
		// CutoffKm is the maximum pair separation entering the estimator
		CutoffKm float64 `yaml:"cutoffKm"`

		// BinWidthKm is the lag class width
		BinWidthKm float64 `yaml:"binWidthKm"`

		// SelectionTolerance is the relative weighted-RSS band within which
		// the Gaussian shape wins model selection ties
		SelectionTolerance float64 `yaml:"selectionTolerance"`
	} `yaml:"variogram"`

	// Prediction grid geometry
	Grid struct {
		// Resolution is the site spacing in CRS units
		Resolution float64 `yaml:"resolution"`

		// Margin widens the observation bounding box on every side
		Margin float64 `yaml:"margin"`
	} `yaml:"grid"`

	// Strata lists the independent era × season runs
	Strata []StratumConfig `yaml:"strata"`

	// Output parameters
	Output struct {
		// Dir is the directory for result rasters, tables and images
		Dir string `yaml:"dir"`

		// WriteImages renders prediction and variance surfaces as PNG
		WriteImages bool `yaml:"writeImages"`

		// WriteWorkbook writes the aggregate per-site xlsx table
		WriteWorkbook bool `yaml:"writeWorkbook"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Inputs.CRS = "EPSG:4326"

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.HoldoutFraction = 0.05
	cfg.Processing.HoldoutSeed = 42

	cfg.Variogram.CutoffKm = 60
	cfg.Variogram.BinWidthKm = 2.5
	cfg.Variogram.SelectionTolerance = 0.05

	cfg.Grid.Resolution = 0.01
	cfg.Grid.Margin = 0.02

	cfg.Strata = []StratumConfig{
		{Era: "pre", Season: "summer", Column: "temp_pre_summer"},
		{Era: "pre", Season: "winter", Column: "temp_pre_winter"},
		{Era: "post", Season: "summer", Column: "temp_post_summer"},
		{Era: "post", Season: "winter", Column: "temp_post_winter"},
	}

	cfg.Output.Dir = "results"
	cfg.Output.WriteImages = true
	cfg.Output.WriteWorkbook = true
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
