package solver

import (
	"fmt"

	"github.com/pthm-cable/flowfield/config"
)

// Mode selects how the steering field is produced.
type Mode uint8

const (
	// ModeVelocity runs the fluid pipeline: advection, diffusion, forces,
	// pressure projection.
	ModeVelocity Mode = iota
	// ModeIntegration propagates traversal cost outward from sinks and
	// steers down the gradient, a cheaper non-fluid alternative.
	ModeIntegration
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeIntegration {
		return config.ModeIntegration
	}
	return config.ModeVelocity
}

// Params is the immutable parameter snapshot a solver is built from.
// Changing parameters means building a new solver (or Resize for the grid
// dimensions); nothing mutates these mid-tick.
type Params struct {
	GridW, GridH int
	CellSize     float32
	OriginX      float32
	OriginY      float32

	DT                  float32 // reference step for fixed-step drivers
	Viscosity           float32
	Dissipation         float32
	MaxVelocity         float32
	PressureCoefficient float32
	DiffusionIterations int
	PressureIterations  int
	CFLSafety           float32
	Mode                Mode

	GlobalPressure           bool
	GlobalPressureIterations int
	GlobalPressureStrength   float32

	Vorticity         bool
	VorticityStrength float32

	DensityEnabled     bool
	DensityInjection   float32
	DensityDissipation float32

	InfluenceRadius      int
	MaxInfluenceStrength float32

	SamplerEpsilon   float32
	SamplerMaxRadius int
}

// FromConfig builds a parameter snapshot from a validated configuration.
func FromConfig(cfg *config.Config) Params {
	mode := ModeVelocity
	if cfg.Solver.Mode == config.ModeIntegration {
		mode = ModeIntegration
	}
	return Params{
		GridW:    cfg.Grid.Width,
		GridH:    cfg.Grid.Height,
		CellSize: float32(cfg.Grid.CellSize),
		OriginX:  float32(cfg.Grid.OriginX),
		OriginY:  float32(cfg.Grid.OriginY),

		DT:                  cfg.Derived.DT32,
		Viscosity:           float32(cfg.Solver.Viscosity),
		Dissipation:         float32(cfg.Solver.Dissipation),
		MaxVelocity:         float32(cfg.Solver.MaxVelocity),
		PressureCoefficient: float32(cfg.Solver.PressureCoefficient),
		DiffusionIterations: cfg.Solver.DiffusionIterations,
		PressureIterations:  cfg.Solver.PressureIterations,
		CFLSafety:           float32(cfg.Solver.CFLSafety),
		Mode:                mode,

		GlobalPressure:           cfg.Solver.GlobalPressure.Enabled,
		GlobalPressureIterations: cfg.Solver.GlobalPressure.Iterations,
		GlobalPressureStrength:   float32(cfg.Solver.GlobalPressure.Strength),

		Vorticity:         cfg.Solver.Vorticity.Enabled,
		VorticityStrength: float32(cfg.Solver.Vorticity.Strength),

		DensityEnabled:     cfg.Density.Enabled,
		DensityInjection:   float32(cfg.Density.InjectionRate),
		DensityDissipation: float32(cfg.Density.Dissipation),

		InfluenceRadius:      cfg.Influence.Radius,
		MaxInfluenceStrength: float32(cfg.Influence.MaxStrength),

		SamplerEpsilon:   float32(cfg.Sampler.DeadZoneEpsilon),
		SamplerMaxRadius: cfg.Derived.SearchRadius,
	}
}

// Validate rejects parameter sets the solver cannot run with. Called by New
// so a bad snapshot fails at construction, not as NaNs mid-tick.
func (p Params) Validate() error {
	if p.GridW <= 0 || p.GridH <= 0 {
		return fmt.Errorf("solver: grid dimensions must be positive, got %dx%d", p.GridW, p.GridH)
	}
	if p.CellSize <= 0 {
		return fmt.Errorf("solver: cell size must be positive, got %g", p.CellSize)
	}
	if p.Viscosity < 0 {
		return fmt.Errorf("solver: viscosity must not be negative, got %g", p.Viscosity)
	}
	if p.Dissipation <= 0 || p.Dissipation > 1 {
		return fmt.Errorf("solver: dissipation must be in (0,1], got %g", p.Dissipation)
	}
	if p.MaxVelocity <= 0 {
		return fmt.Errorf("solver: max velocity must be positive, got %g", p.MaxVelocity)
	}
	if p.PressureCoefficient <= 0 {
		return fmt.Errorf("solver: pressure coefficient must be positive, got %g", p.PressureCoefficient)
	}
	if p.DiffusionIterations < 0 {
		return fmt.Errorf("solver: diffusion iterations must not be negative, got %d", p.DiffusionIterations)
	}
	if p.PressureIterations < 1 {
		return fmt.Errorf("solver: pressure iterations must be at least 1, got %d", p.PressureIterations)
	}
	if p.CFLSafety <= 0 || p.CFLSafety > 1 {
		return fmt.Errorf("solver: cfl safety must be in (0,1], got %g", p.CFLSafety)
	}
	if p.GlobalPressure && p.GlobalPressureIterations < 1 {
		return fmt.Errorf("solver: global pressure iterations must be at least 1, got %d", p.GlobalPressureIterations)
	}
	if p.Vorticity && p.VorticityStrength < 0 {
		return fmt.Errorf("solver: vorticity strength must not be negative, got %g", p.VorticityStrength)
	}
	if p.DensityEnabled && (p.DensityDissipation <= 0 || p.DensityDissipation > 1) {
		return fmt.Errorf("solver: density dissipation must be in (0,1], got %g", p.DensityDissipation)
	}
	if p.InfluenceRadius < 0 {
		return fmt.Errorf("solver: influence radius must not be negative, got %d", p.InfluenceRadius)
	}
	if p.MaxInfluenceStrength <= 0 {
		return fmt.Errorf("solver: max influence strength must be positive, got %g", p.MaxInfluenceStrength)
	}
	if p.SamplerEpsilon <= 0 {
		return fmt.Errorf("solver: sampler epsilon must be positive, got %g", p.SamplerEpsilon)
	}
	if p.SamplerMaxRadius < 1 {
		return fmt.Errorf("solver: sampler search radius must be at least 1, got %d", p.SamplerMaxRadius)
	}
	return nil
}

// CFLLimit returns the advisory time-step bound for the current cell size
// and velocity ceiling.
func (p Params) CFLLimit() float32 {
	return p.CFLSafety * p.CellSize / p.MaxVelocity
}
