// Package main provides CMA-ES search for solver coefficients that minimize
// residual divergence and dead cells under a fixed iteration budget.
package main

import (
	"math"

	"github.com/pthm-cable/flowfield/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the tunable solver coefficient set.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "viscosity", Min: 0, Max: 0.01, Default: 0.0001},
			{Name: "dissipation", Min: 0.85, Max: 0.999, Default: 0.95},
			{Name: "pressure_iterations", Min: 10, Max: 60, Default: 30},
			{Name: "global_strength", Min: 0, Max: 2, Default: 0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// globalPressureIterations is the fixed propagation budget used whenever the
// search turns the global pressure stage on.
const globalPressureIterations = 150

// ApplyToConfig writes clamped parameter values into a config. Order must
// match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Solver.Viscosity = clamped[0]
	cfg.Solver.Dissipation = clamped[1]
	cfg.Solver.PressureIterations = int(math.Round(clamped[2]))

	strength := clamped[3]
	cfg.Solver.GlobalPressure.Strength = strength
	cfg.Solver.GlobalPressure.Enabled = strength > 0.01
	if cfg.Solver.GlobalPressure.Enabled && cfg.Solver.GlobalPressure.Iterations < 1 {
		cfg.Solver.GlobalPressure.Iterations = globalPressureIterations
	}
}
