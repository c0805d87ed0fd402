// Package config provides configuration loading and access for the solver.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Field mode names accepted by solver.mode.
const (
	ModeVelocity    = "velocity"
	ModeIntegration = "integration"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Grid      GridConfig      `yaml:"grid"`
	Solver    SolverConfig    `yaml:"solver"`
	Density   DensityConfig   `yaml:"density"`
	Influence InfluenceConfig `yaml:"influence"`
	Sampler   SamplerConfig   `yaml:"sampler"`
	Agents    AgentsConfig    `yaml:"agents"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the graphical mode.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig holds the field discretization.
// World bounds are derived: width*cell_size by height*cell_size, anchored
// at (origin_x, origin_y).
type GridConfig struct {
	Width    int     `yaml:"width"`     // Cells along x
	Height   int     `yaml:"height"`    // Cells along y
	CellSize float64 `yaml:"cell_size"` // World units per cell (square cells)
	OriginX  float64 `yaml:"origin_x"`  // World-space minimum corner
	OriginY  float64 `yaml:"origin_y"`
}

// SolverConfig holds the per-tick physics parameters.
type SolverConfig struct {
	DT                  float64              `yaml:"dt"`                   // Fixed step used by the headless driver
	Viscosity           float64              `yaml:"viscosity"`            // Kinematic viscosity; 0 skips diffusion
	Dissipation         float64              `yaml:"dissipation"`          // Advection energy bleed, (0,1]
	MaxVelocity         float64              `yaml:"max_velocity"`         // Magnitude clamp in world units/sec
	PressureCoefficient float64              `yaml:"pressure_coefficient"` // Scales the projected gradient
	DiffusionIterations int                  `yaml:"diffusion_iterations"`
	PressureIterations  int                  `yaml:"pressure_iterations"`
	CFLSafety           float64              `yaml:"cfl_safety"` // Safety factor for the advisory dt clamp
	Mode                string               `yaml:"mode"`       // "velocity" or "integration"
	GlobalPressure      GlobalPressureConfig `yaml:"global_pressure"`
	Vorticity           VorticityConfig      `yaml:"vorticity"`
}

// GlobalPressureConfig holds the long-range pressure propagation parameters.
type GlobalPressureConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Iterations int     `yaml:"iterations"` // Cheap propagation passes per tick
	Strength   float64 `yaml:"strength"`   // Scale applied when added to local pressure
}

// VorticityConfig holds vorticity confinement parameters.
type VorticityConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Strength float64 `yaml:"strength"`
}

// DensityConfig holds the optional scalar transport parameters.
type DensityConfig struct {
	Enabled       bool    `yaml:"enabled"`
	InjectionRate float64 `yaml:"injection_rate"` // Density per second at full-strength sources
	Dissipation   float64 `yaml:"dissipation"`    // Advection bleed for the scalar, (0,1]
}

// InfluenceConfig holds source/sink rasterization parameters.
type InfluenceConfig struct {
	Radius      int     `yaml:"radius"`       // Stamp radius in cells (0 = single cell)
	MaxStrength float64 `yaml:"max_strength"` // Strength normalization ceiling
}

// SamplerConfig holds dead-zone fallback parameters.
type SamplerConfig struct {
	DeadZoneEpsilon float64 `yaml:"dead_zone_epsilon"` // |v| below this triggers the ring search
	SearchRadius    int     `yaml:"search_radius"`     // Max ring radius in cells (0 = max(W,H)/4)
}

// AgentsConfig holds swarm demo parameters.
type AgentsConfig struct {
	Count     int     `yaml:"count"`
	MaxSpeed  float64 `yaml:"max_speed"`
	SteerRate float64 `yaml:"steer_rate"` // Velocity relaxation rate toward the sampled field
	Seed      uint64  `yaml:"seed"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds per stats aggregation window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32         float32 // Solver.DT as float32
	WorldW32     float32 // Grid width in world units
	WorldH32     float32 // Grid height in world units
	CellCount    int     // Grid.Width * Grid.Height
	SearchRadius int     // Effective sampler search radius in cells
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated;
// a config that would misconfigure the solver is rejected here rather than
// surfacing as NaNs mid-run.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

// Validate checks every field the solver depends on and returns a descriptive
// error for the first violation found.
func (c *Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("grid: dimensions must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.Grid.CellSize <= 0 {
		return fmt.Errorf("grid: cell_size must be positive, got %g", c.Grid.CellSize)
	}
	if c.Solver.DT <= 0 {
		return fmt.Errorf("solver: dt must be positive, got %g", c.Solver.DT)
	}
	if c.Solver.Viscosity < 0 {
		return fmt.Errorf("solver: viscosity must not be negative, got %g", c.Solver.Viscosity)
	}
	if c.Solver.Dissipation <= 0 || c.Solver.Dissipation > 1 {
		return fmt.Errorf("solver: dissipation must be in (0,1], got %g", c.Solver.Dissipation)
	}
	if c.Solver.MaxVelocity <= 0 {
		return fmt.Errorf("solver: max_velocity must be positive, got %g", c.Solver.MaxVelocity)
	}
	if c.Solver.PressureCoefficient <= 0 {
		return fmt.Errorf("solver: pressure_coefficient must be positive, got %g", c.Solver.PressureCoefficient)
	}
	if c.Solver.DiffusionIterations < 0 {
		return fmt.Errorf("solver: diffusion_iterations must not be negative, got %d", c.Solver.DiffusionIterations)
	}
	if c.Solver.PressureIterations < 1 {
		return fmt.Errorf("solver: pressure_iterations must be at least 1, got %d", c.Solver.PressureIterations)
	}
	if c.Solver.CFLSafety <= 0 || c.Solver.CFLSafety > 1 {
		return fmt.Errorf("solver: cfl_safety must be in (0,1], got %g", c.Solver.CFLSafety)
	}
	if c.Solver.Mode != ModeVelocity && c.Solver.Mode != ModeIntegration {
		return fmt.Errorf("solver: mode must be %q or %q, got %q", ModeVelocity, ModeIntegration, c.Solver.Mode)
	}
	if c.Solver.GlobalPressure.Enabled && c.Solver.GlobalPressure.Iterations < 1 {
		return fmt.Errorf("solver: global_pressure.iterations must be at least 1, got %d", c.Solver.GlobalPressure.Iterations)
	}
	if c.Solver.Vorticity.Enabled && c.Solver.Vorticity.Strength < 0 {
		return fmt.Errorf("solver: vorticity.strength must not be negative, got %g", c.Solver.Vorticity.Strength)
	}
	if c.Density.Enabled && (c.Density.Dissipation <= 0 || c.Density.Dissipation > 1) {
		return fmt.Errorf("density: dissipation must be in (0,1], got %g", c.Density.Dissipation)
	}
	if c.Influence.Radius < 0 {
		return fmt.Errorf("influence: radius must not be negative, got %d", c.Influence.Radius)
	}
	if c.Influence.MaxStrength <= 0 {
		return fmt.Errorf("influence: max_strength must be positive, got %g", c.Influence.MaxStrength)
	}
	if c.Sampler.DeadZoneEpsilon <= 0 {
		return fmt.Errorf("sampler: dead_zone_epsilon must be positive, got %g", c.Sampler.DeadZoneEpsilon)
	}
	if c.Sampler.SearchRadius < 0 {
		return fmt.Errorf("sampler: search_radius must not be negative, got %d", c.Sampler.SearchRadius)
	}
	if c.Agents.Count < 0 {
		return fmt.Errorf("agents: count must not be negative, got %d", c.Agents.Count)
	}
	if c.Agents.Count > 0 && c.Agents.MaxSpeed <= 0 {
		return fmt.Errorf("agents: max_speed must be positive, got %g", c.Agents.MaxSpeed)
	}
	if c.Telemetry.StatsWindow <= 0 {
		return fmt.Errorf("telemetry: stats_window must be positive, got %g", c.Telemetry.StatsWindow)
	}
	if c.Telemetry.PerfCollectorWindow < 1 {
		return fmt.Errorf("telemetry: perf_collector_window must be at least 1, got %d", c.Telemetry.PerfCollectorWindow)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Solver.DT)
	c.Derived.WorldW32 = float32(float64(c.Grid.Width) * c.Grid.CellSize)
	c.Derived.WorldH32 = float32(float64(c.Grid.Height) * c.Grid.CellSize)
	c.Derived.CellCount = c.Grid.Width * c.Grid.Height

	// Search radius defaults to a quarter of the larger grid dimension
	c.Derived.SearchRadius = c.Sampler.SearchRadius
	if c.Derived.SearchRadius == 0 {
		longest := c.Grid.Width
		if c.Grid.Height > longest {
			longest = c.Grid.Height
		}
		c.Derived.SearchRadius = longest / 4
		if c.Derived.SearchRadius < 1 {
			c.Derived.SearchRadius = 1
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
