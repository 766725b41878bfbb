// Package config loads simulation tuning parameters from JSON.
//
// All fields are pointers so a partial config file only overrides the values
// it names; the Get* accessors supply defaults for everything else. The same
// shape is returned by the /api/config endpoint.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SimConfig is the root configuration for the fire simulation service.
type SimConfig struct {
	// Grid params
	GridResolution  *float64 `json:"grid_resolution,omitempty"`
	SnapshotCellCap *int     `json:"snapshot_cell_cap,omitempty"`

	// Run limits
	MaxTicks                 *int `json:"max_ticks,omitempty"`
	MaxCellsPerSimulation    *int `json:"max_cells_per_sim,omitempty"`
	MaxSimulations           *int `json:"max_simulations,omitempty"`
	MaxConcurrentSimulations *int `json:"max_concurrent_simulations,omitempty"`

	// Loop pacing
	StepInterval *string `json:"step_interval,omitempty"` // duration string like "1s"

	// Engine tuning. These were hardcoded in earlier revisions but are
	// empirical, not physical law, so they live here.
	DecayRate               *float64 `json:"decay_rate,omitempty"`
	IntensityFloor          *float64 `json:"intensity_floor,omitempty"`
	BurnDurationCap         *int     `json:"burn_duration_cap,omitempty"`
	IgnitionBaseIntensity   *float64 `json:"ignition_base_intensity,omitempty"`
	IntensityMin            *float64 `json:"intensity_min,omitempty"`
	IntensityMax            *float64 `json:"intensity_max,omitempty"`
	SpreadProbabilityFactor *float64 `json:"spread_probability_factor,omitempty"`
}

// Empty returns a SimConfig with all fields unset.
func Empty() *SimConfig {
	return &SimConfig{}
}

// Load reads a SimConfig from a JSON file. The file must have a .json
// extension and be under 1MB. Fields omitted from the file keep their
// defaults, so partial configs are safe.
func Load(path string) (*SimConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values are usable.
func (c *SimConfig) Validate() error {
	if c.GridResolution != nil && *c.GridResolution <= 0 {
		return fmt.Errorf("grid_resolution must be positive, got %f", *c.GridResolution)
	}
	if c.StepInterval != nil && *c.StepInterval != "" {
		if _, err := time.ParseDuration(*c.StepInterval); err != nil {
			return fmt.Errorf("invalid step_interval %q: %w", *c.StepInterval, err)
		}
	}
	if c.MaxTicks != nil && *c.MaxTicks <= 0 {
		return fmt.Errorf("max_ticks must be positive, got %d", *c.MaxTicks)
	}
	if c.MaxCellsPerSimulation != nil && *c.MaxCellsPerSimulation <= 0 {
		return fmt.Errorf("max_cells_per_sim must be positive, got %d", *c.MaxCellsPerSimulation)
	}
	if c.MaxSimulations != nil && *c.MaxSimulations <= 0 {
		return fmt.Errorf("max_simulations must be positive, got %d", *c.MaxSimulations)
	}
	if c.MaxConcurrentSimulations != nil && *c.MaxConcurrentSimulations <= 0 {
		return fmt.Errorf("max_concurrent_simulations must be positive, got %d", *c.MaxConcurrentSimulations)
	}
	if c.DecayRate != nil && *c.DecayRate < 0 {
		return fmt.Errorf("decay_rate must be non-negative, got %f", *c.DecayRate)
	}
	if c.IntensityMin != nil && c.IntensityMax != nil && *c.IntensityMin > *c.IntensityMax {
		return fmt.Errorf("intensity_min %f exceeds intensity_max %f", *c.IntensityMin, *c.IntensityMax)
	}
	if c.SpreadProbabilityFactor != nil && (*c.SpreadProbabilityFactor < 0 || *c.SpreadProbabilityFactor > 1) {
		return fmt.Errorf("spread_probability_factor must be between 0 and 1, got %f", *c.SpreadProbabilityFactor)
	}
	return nil
}

// GetGridResolution returns the grid cell size in world units.
func (c *SimConfig) GetGridResolution() float64 {
	if c.GridResolution == nil {
		return 0.01
	}
	return *c.GridResolution
}

// GetSnapshotCellCap returns the maximum number of fire cells included in a
// single snapshot.
func (c *SimConfig) GetSnapshotCellCap() int {
	if c.SnapshotCellCap == nil {
		return 1000
	}
	return *c.SnapshotCellCap
}

// GetMaxTicks returns the tick count at which a run auto-completes.
func (c *SimConfig) GetMaxTicks() int {
	if c.MaxTicks == nil {
		return 300
	}
	return *c.MaxTicks
}

// GetMaxCellsPerSimulation returns the grid-size cap per simulation.
func (c *SimConfig) GetMaxCellsPerSimulation() int {
	if c.MaxCellsPerSimulation == nil {
		return 1000
	}
	return *c.MaxCellsPerSimulation
}

// GetMaxSimulations returns the total simulation cap.
func (c *SimConfig) GetMaxSimulations() int {
	if c.MaxSimulations == nil {
		return 100
	}
	return *c.MaxSimulations
}

// GetMaxConcurrentSimulations returns the concurrently-running cap.
func (c *SimConfig) GetMaxConcurrentSimulations() int {
	if c.MaxConcurrentSimulations == nil {
		return 10
	}
	return *c.MaxConcurrentSimulations
}

// GetStepInterval parses and returns the loop pacing interval.
func (c *SimConfig) GetStepInterval() time.Duration {
	if c.StepInterval == nil || *c.StepInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.StepInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetDecayRate returns the per-tick intensity decay.
func (c *SimConfig) GetDecayRate() float64 {
	if c.DecayRate == nil {
		return 1.0
	}
	return *c.DecayRate
}

// GetIntensityFloor returns the intensity below which a burning cell burns out.
func (c *SimConfig) GetIntensityFloor() float64 {
	if c.IntensityFloor == nil {
		return 5.0
	}
	return *c.IntensityFloor
}

// GetBurnDurationCap returns the maximum ticks a cell may burn.
func (c *SimConfig) GetBurnDurationCap() int {
	if c.BurnDurationCap == nil {
		return 60
	}
	return *c.BurnDurationCap
}

// GetIgnitionBaseIntensity returns the base intensity for freshly ignited cells.
func (c *SimConfig) GetIgnitionBaseIntensity() float64 {
	if c.IgnitionBaseIntensity == nil {
		return 80.0
	}
	return *c.IgnitionBaseIntensity
}

// GetIntensityMin returns the lower clamp for ignition intensity.
func (c *SimConfig) GetIntensityMin() float64 {
	if c.IntensityMin == nil {
		return 20.0
	}
	return *c.IntensityMin
}

// GetIntensityMax returns the upper clamp for ignition intensity.
func (c *SimConfig) GetIntensityMax() float64 {
	if c.IntensityMax == nil {
		return 200.0
	}
	return *c.IntensityMax
}

// GetSpreadProbabilityFactor returns the global scale applied to ignition
// probabilities.
func (c *SimConfig) GetSpreadProbabilityFactor() float64 {
	if c.SpreadProbabilityFactor == nil {
		return 0.8
	}
	return *c.SpreadProbabilityFactor
}
