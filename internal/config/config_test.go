package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := Empty()

	if cfg.GetGridResolution() != 0.01 {
		t.Errorf("GetGridResolution() = %f, want 0.01", cfg.GetGridResolution())
	}
	if cfg.GetStepInterval() != time.Second {
		t.Errorf("GetStepInterval() = %v, want 1s", cfg.GetStepInterval())
	}
	if cfg.GetMaxTicks() != 300 {
		t.Errorf("GetMaxTicks() = %d, want 300", cfg.GetMaxTicks())
	}
	if cfg.GetMaxCellsPerSimulation() != 1000 {
		t.Errorf("GetMaxCellsPerSimulation() = %d, want 1000", cfg.GetMaxCellsPerSimulation())
	}
	if cfg.GetMaxSimulations() != 100 {
		t.Errorf("GetMaxSimulations() = %d, want 100", cfg.GetMaxSimulations())
	}
	if cfg.GetMaxConcurrentSimulations() != 10 {
		t.Errorf("GetMaxConcurrentSimulations() = %d, want 10", cfg.GetMaxConcurrentSimulations())
	}
	if cfg.GetDecayRate() != 1.0 {
		t.Errorf("GetDecayRate() = %f, want 1.0", cfg.GetDecayRate())
	}
	if cfg.GetIntensityFloor() != 5.0 {
		t.Errorf("GetIntensityFloor() = %f, want 5.0", cfg.GetIntensityFloor())
	}
	if cfg.GetBurnDurationCap() != 60 {
		t.Errorf("GetBurnDurationCap() = %d, want 60", cfg.GetBurnDurationCap())
	}
	if cfg.GetSpreadProbabilityFactor() != 0.8 {
		t.Errorf("GetSpreadProbabilityFactor() = %f, want 0.8", cfg.GetSpreadProbabilityFactor())
	}
}

func TestLoadPartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sim.json")

	testJSON := `{
  "grid_resolution": 0.02,
  "step_interval": "250ms",
  "max_ticks": 120,
  "decay_rate": 2.5
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.GetGridResolution() != 0.02 {
		t.Errorf("GetGridResolution() = %f, want 0.02", cfg.GetGridResolution())
	}
	if cfg.GetStepInterval() != 250*time.Millisecond {
		t.Errorf("GetStepInterval() = %v, want 250ms", cfg.GetStepInterval())
	}
	if cfg.GetMaxTicks() != 120 {
		t.Errorf("GetMaxTicks() = %d, want 120", cfg.GetMaxTicks())
	}
	if cfg.GetDecayRate() != 2.5 {
		t.Errorf("GetDecayRate() = %f, want 2.5", cfg.GetDecayRate())
	}
	// Omitted fields keep their defaults
	if cfg.GetMaxSimulations() != 100 {
		t.Errorf("GetMaxSimulations() = %d, want default 100", cfg.GetMaxSimulations())
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "sim.yaml")
		os.WriteFile(path, []byte("{}"), 0644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for non-json extension")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(tmpDir, "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.json")
		os.WriteFile(path, []byte("{not json"), 0644)
		if _, err := Load(path); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

func TestValidate(t *testing.T) {
	neg := -1.0
	zero := 0
	badDur := "not-a-duration"
	lo, hi := 50.0, 10.0
	factor := 1.5

	tests := []struct {
		name string
		cfg  SimConfig
	}{
		{"negative grid resolution", SimConfig{GridResolution: &neg}},
		{"zero max ticks", SimConfig{MaxTicks: &zero}},
		{"bad step interval", SimConfig{StepInterval: &badDur}},
		{"inverted intensity bounds", SimConfig{IntensityMin: &lo, IntensityMax: &hi}},
		{"spread factor above 1", SimConfig{SpreadProbabilityFactor: &factor}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Empty().Validate(); err != nil {
		t.Errorf("empty config should validate, got %v", err)
	}
}
