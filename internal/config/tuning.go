// Package config provides the JSON-loadable tuning knobs for every SLAM
// component: ICP, the occupancy grid mapper, the particle filter, and the
// simulator. Every field is an optional pointer so a partial JSON document
// only overrides the values it names; everything else keeps its documented
// default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig is the root configuration for every tunable named in the
// SLAM core. The schema is flat rather than nested so a single JSON file
// can be diffed and reviewed at a glance.
type TuningConfig struct {
	// ICP registration
	ICPIterations       *int     `json:"icp_iterations,omitempty"`
	ICPOutlierThreshold *float64 `json:"icp_outlier_threshold,omitempty"` // meters; 0 selects uniform weighting
	ICPRefinedWeighting *bool    `json:"icp_refined_weighting,omitempty"` // true selects the step-function weight

	// Occupancy grid
	GridResolution   *float64 `json:"grid_resolution,omitempty"` // meters/cell
	GridWidth        *float64 `json:"grid_width,omitempty"`      // meters
	GridHeight       *float64 `json:"grid_height,omitempty"`     // meters
	GridPFree        *float64 `json:"grid_p_free,omitempty"`
	GridPOccupied    *float64 `json:"grid_p_occupied,omitempty"`
	GridPPrior       *float64 `json:"grid_p_prior,omitempty"`
	GridHitTolerance *float64 `json:"grid_hit_tolerance,omitempty"` // cells

	// Point-map tracker
	PointMapVoxelLeafSize *float64 `json:"point_map_voxel_leaf_size,omitempty"` // meters; 0 disables subsampling

	// Particle filter / grid-SLAM node
	ParticleCount             *int     `json:"particle_count,omitempty"`
	ResampleEffectiveFraction *float64 `json:"resample_effective_fraction,omitempty"` // N_eff/N threshold
	ParticleSeed              *int64   `json:"particle_seed,omitempty"`

	// Simulator
	WheelBase    *float64 `json:"wheel_base,omitempty"`    // meters
	UpdatePeriod *float64 `json:"update_period,omitempty"` // seconds
	ScannerRange *float64 `json:"scanner_range,omitempty"` // meters

	// Bus / ticker
	TickTimeoutMillis *int64 `json:"tick_timeout_millis,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with every field nil; the Get*
// accessors fall back to their documented defaults.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig reads and parses a TuningConfig from a JSON file. Fields
// omitted from the file keep their documented default via the Get*
// accessors; this makes partial configs safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every set field is within a sane range. Unset
// (nil) fields are always valid, since they simply fall back to defaults.
func (c *TuningConfig) Validate() error {
	if c.ICPIterations != nil && *c.ICPIterations <= 0 {
		return fmt.Errorf("icp_iterations must be positive, got %d", *c.ICPIterations)
	}
	if c.GridResolution != nil && *c.GridResolution <= 0 {
		return fmt.Errorf("grid_resolution must be positive, got %f", *c.GridResolution)
	}
	for name, p := range map[string]*float64{
		"grid_p_free": c.GridPFree, "grid_p_occupied": c.GridPOccupied, "grid_p_prior": c.GridPPrior,
	} {
		if p != nil && (*p < 0 || *p > 1) {
			return fmt.Errorf("%s must be in [0,1], got %f", name, *p)
		}
	}
	if c.ParticleCount != nil && *c.ParticleCount <= 0 {
		return fmt.Errorf("particle_count must be positive, got %d", *c.ParticleCount)
	}
	if c.ResampleEffectiveFraction != nil && (*c.ResampleEffectiveFraction <= 0 || *c.ResampleEffectiveFraction > 1) {
		return fmt.Errorf("resample_effective_fraction must be in (0,1], got %f", *c.ResampleEffectiveFraction)
	}
	if c.WheelBase != nil && *c.WheelBase <= 0 {
		return fmt.Errorf("wheel_base must be positive, got %f", *c.WheelBase)
	}
	if c.UpdatePeriod != nil && *c.UpdatePeriod <= 0 {
		return fmt.Errorf("update_period must be positive, got %f", *c.UpdatePeriod)
	}
	if c.ScannerRange != nil && *c.ScannerRange <= 0 {
		return fmt.Errorf("scanner_range must be positive, got %f", *c.ScannerRange)
	}
	return nil
}

// GetICPIterations returns the configured ICP iteration count, defaulting to
// icp.DefaultParameters's 10.
func (c *TuningConfig) GetICPIterations() int {
	if c.ICPIterations == nil {
		return 10
	}
	return *c.ICPIterations
}

// GetICPOutlierThreshold returns the configured step-weight rejection
// threshold in meters, defaulting to 0 (uniform weighting, no rejection).
func (c *TuningConfig) GetICPOutlierThreshold() float64 {
	if c.ICPOutlierThreshold == nil {
		return 0
	}
	return *c.ICPOutlierThreshold
}

// GetICPRefinedWeighting reports whether ICP should reject correspondences
// beyond GetICPOutlierThreshold via icp.StepWeight rather than weighting
// every correspondence uniformly, defaulting to false.
func (c *TuningConfig) GetICPRefinedWeighting() bool {
	if c.ICPRefinedWeighting == nil {
		return false
	}
	return *c.ICPRefinedWeighting
}

// GetGridResolution returns the configured grid resolution, defaulting to
// gridmap.DefaultConfig's 0.05m.
func (c *TuningConfig) GetGridResolution() float64 {
	if c.GridResolution == nil {
		return 0.05
	}
	return *c.GridResolution
}

// GetGridWidth returns the configured grid width in meters, defaulting to 20.
func (c *TuningConfig) GetGridWidth() float64 {
	if c.GridWidth == nil {
		return 20
	}
	return *c.GridWidth
}

// GetGridHeight returns the configured grid height in meters, defaulting to 20.
func (c *TuningConfig) GetGridHeight() float64 {
	if c.GridHeight == nil {
		return 20
	}
	return *c.GridHeight
}

// GetGridPFree returns the inverse sensor model's free-space probability,
// defaulting to 0.30 per spec §4.4.
func (c *TuningConfig) GetGridPFree() float64 {
	if c.GridPFree == nil {
		return 0.30
	}
	return *c.GridPFree
}

// GetGridPOccupied returns the inverse sensor model's occupied probability,
// defaulting to 0.90 per spec §4.4.
func (c *TuningConfig) GetGridPOccupied() float64 {
	if c.GridPOccupied == nil {
		return 0.90
	}
	return *c.GridPOccupied
}

// GetGridPPrior returns the inverse sensor model's unobserved-prior
// probability, defaulting to 0.50 per spec §4.4.
func (c *TuningConfig) GetGridPPrior() float64 {
	if c.GridPPrior == nil {
		return 0.50
	}
	return *c.GridPPrior
}

// GetGridHitTolerance returns the occupied-band half-width (in cells) around
// a hit measurement, defaulting to 2.0 per spec §4.4.
func (c *TuningConfig) GetGridHitTolerance() float64 {
	if c.GridHitTolerance == nil {
		return 2.0
	}
	return *c.GridHitTolerance
}

// GetPointMapVoxelLeafSize returns the point-map subsampling voxel size in
// meters, defaulting to 0.05m.
func (c *TuningConfig) GetPointMapVoxelLeafSize() float64 {
	if c.PointMapVoxelLeafSize == nil {
		return 0.05
	}
	return *c.PointMapVoxelLeafSize
}

// GetParticleCount returns the configured particle population size,
// defaulting to slamnode.DefaultConfig's 30.
func (c *TuningConfig) GetParticleCount() int {
	if c.ParticleCount == nil {
		return 30
	}
	return *c.ParticleCount
}

// GetResampleEffectiveFraction returns the N_eff/N threshold below which the
// particle filter resamples, defaulting to 0.5 per spec §4.5.
func (c *TuningConfig) GetResampleEffectiveFraction() float64 {
	if c.ResampleEffectiveFraction == nil {
		return 0.5
	}
	return *c.ResampleEffectiveFraction
}

// GetParticleSeed returns the configured particle filter RNG seed,
// defaulting to 1.
func (c *TuningConfig) GetParticleSeed() int64 {
	if c.ParticleSeed == nil {
		return 1
	}
	return *c.ParticleSeed
}

// GetWheelBase returns the configured wheel base in meters, defaulting to
// simulator.DefaultParameters's 0.1m.
func (c *TuningConfig) GetWheelBase() float64 {
	if c.WheelBase == nil {
		return 0.1
	}
	return *c.WheelBase
}

// GetUpdatePeriod returns the configured scan emission period in seconds,
// defaulting to 0.2s (5Hz).
func (c *TuningConfig) GetUpdatePeriod() float64 {
	if c.UpdatePeriod == nil {
		return 0.2
	}
	return *c.UpdatePeriod
}

// GetScannerRange returns the configured maximum laser range in meters,
// defaulting to 1.0m.
func (c *TuningConfig) GetScannerRange() float64 {
	if c.ScannerRange == nil {
		return 1.0
	}
	return *c.ScannerRange
}

// GetTickTimeoutMillis returns the bus ticker's signal-wait timeout in
// milliseconds, defaulting to bus.DefaultTickTimeout's 500ms.
func (c *TuningConfig) GetTickTimeoutMillis() int64 {
	if c.TickTimeoutMillis == nil {
		return 500
	}
	return *c.TickTimeoutMillis
}
