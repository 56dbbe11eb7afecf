package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyConfigFallsBackToDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetICPIterations(); got != 10 {
		t.Errorf("GetICPIterations() = %d, want 10", got)
	}
	if got := cfg.GetGridResolution(); got != 0.05 {
		t.Errorf("GetGridResolution() = %f, want 0.05", got)
	}
	if got := cfg.GetGridPFree(); got != 0.30 {
		t.Errorf("GetGridPFree() = %f, want 0.30", got)
	}
	if got := cfg.GetGridPOccupied(); got != 0.90 {
		t.Errorf("GetGridPOccupied() = %f, want 0.90", got)
	}
	if got := cfg.GetParticleCount(); got != 30 {
		t.Errorf("GetParticleCount() = %d, want 30", got)
	}
	if got := cfg.GetResampleEffectiveFraction(); got != 0.5 {
		t.Errorf("GetResampleEffectiveFraction() = %f, want 0.5", got)
	}
	if got := cfg.GetWheelBase(); got != 0.1 {
		t.Errorf("GetWheelBase() = %f, want 0.1", got)
	}
	if got := cfg.GetUpdatePeriod(); got != 0.2 {
		t.Errorf("GetUpdatePeriod() = %f, want 0.2", got)
	}
	if got := cfg.GetScannerRange(); got != 1.0 {
		t.Errorf("GetScannerRange() = %f, want 1.0", got)
	}
	if got := cfg.GetTickTimeoutMillis(); got != 500 {
		t.Errorf("GetTickTimeoutMillis() = %d, want 500", got)
	}
	if got := cfg.GetICPRefinedWeighting(); got != false {
		t.Errorf("GetICPRefinedWeighting() = %v, want false", got)
	}
	if got := cfg.GetGridPPrior(); got != 0.50 {
		t.Errorf("GetGridPPrior() = %f, want 0.50", got)
	}
	if got := cfg.GetGridHitTolerance(); got != 2.0 {
		t.Errorf("GetGridHitTolerance() = %f, want 2.0", got)
	}
}

func TestLoadTuningConfigPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	if err := os.WriteFile(path, []byte(`{"particle_count": 64, "grid_resolution": 0.1}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	if got := cfg.GetParticleCount(); got != 64 {
		t.Errorf("GetParticleCount() = %d, want 64", got)
	}
	if got := cfg.GetGridResolution(); got != 0.1 {
		t.Errorf("GetGridResolution() = %f, want 0.1", got)
	}
	// untouched fields keep their defaults
	if got := cfg.GetICPIterations(); got != 10 {
		t.Errorf("GetICPIterations() = %d, want 10 (unset)", got)
	}
}

func TestLoadTuningConfigRejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Fatalf("expected error for non-.json extension")
	}
}

func TestValidateRejectsOutOfRangeProbabilities(t *testing.T) {
	bad := 1.5
	cfg := &TuningConfig{GridPFree: &bad}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for grid_p_free > 1")
	}
}

func TestValidateRejectsNonPositiveCounts(t *testing.T) {
	zero := 0
	cfg := &TuningConfig{ParticleCount: &zero}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for particle_count = 0")
	}
}
