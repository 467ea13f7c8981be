package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the defaults carry the full four-stratum batch
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Inputs.CRS != "EPSG:4326" {
		t.Errorf("Expected default CRS EPSG:4326, got %q", cfg.Inputs.CRS)
	}
	if cfg.Processing.HoldoutFraction != 0.05 {
		t.Errorf("Expected holdout fraction 0.05, got %f", cfg.Processing.HoldoutFraction)
	}
	if cfg.Processing.HoldoutSeed != 42 {
		t.Errorf("Expected holdout seed 42, got %d", cfg.Processing.HoldoutSeed)
	}
	if cfg.Variogram.CutoffKm != 60 || cfg.Variogram.BinWidthKm != 2.5 {
		t.Errorf("Expected 60 km cutoff with 2.5 km bins, got %f/%f",
			cfg.Variogram.CutoffKm, cfg.Variogram.BinWidthKm)
	}
	if len(cfg.Strata) != 4 {
		t.Fatalf("Expected 4 default strata, got %d", len(cfg.Strata))
	}

	seen := make(map[string]bool)
	for _, s := range cfg.Strata {
		seen[s.Era+"_"+s.Season] = true
		if s.Column == "" {
			t.Errorf("Stratum %s/%s missing value column", s.Era, s.Season)
		}
	}
	for _, want := range []string{"pre_summer", "pre_winter", "post_summer", "post_winter"} {
		if !seen[want] {
			t.Errorf("Missing default stratum %s", want)
		}
	}
}

// TestLoadConfigMissingFile verifies defaults come back when no file exists
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.HoldoutSeed != 42 {
		t.Error("Expected default config for a missing file")
	}
}

// TestSaveLoadRoundTrip verifies a saved config loads back identically
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cfg.yaml")

	cfg := DefaultConfig()
	cfg.Inputs.Observations = "obs.csv"
	cfg.Variogram.CutoffKm = 80
	cfg.Output.Dir = "out"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Inputs.Observations != "obs.csv" {
		t.Errorf("Expected observations obs.csv, got %q", loaded.Inputs.Observations)
	}
	if loaded.Variogram.CutoffKm != 80 {
		t.Errorf("Expected cutoff 80, got %f", loaded.Variogram.CutoffKm)
	}
	if loaded.Output.Dir != "out" {
		t.Errorf("Expected output dir out, got %q", loaded.Output.Dir)
	}
	if len(loaded.Strata) != 4 {
		t.Errorf("Expected 4 strata after round trip, got %d", len(loaded.Strata))
	}
}

// TestLoadConfigPartialOverride verifies YAML files only override the keys
// they mention
func TestLoadConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := "variogram:\n  cutoffKm: 45\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Variogram.CutoffKm != 45 {
		t.Errorf("Expected overridden cutoff 45, got %f", cfg.Variogram.CutoffKm)
	}
	if cfg.Variogram.BinWidthKm != 2.5 {
		t.Errorf("Expected default bin width kept, got %f", cfg.Variogram.BinWidthKm)
	}
}

// TestLoadConfigInvalidYAML verifies parse errors surface
func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("::not yaml::\n\t"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

// TestCreateDefaultConfigFile verifies the bootstrap helper writes a
// loadable file
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed on written defaults: %v", err)
	}
	if len(cfg.Strata) != 4 {
		t.Errorf("Expected 4 strata in written defaults, got %d", len(cfg.Strata))
	}
}
