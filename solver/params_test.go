package solver

import (
	"math"
	"testing"

	"github.com/pthm-cable/flowfield/config"
)

// testParams returns a small valid parameter set for solver tests.
func testParams(w, h int) Params {
	return Params{
		GridW:    w,
		GridH:    h,
		CellSize: 1,

		DT:                  0.016,
		Viscosity:           0.0001,
		Dissipation:         0.95,
		MaxVelocity:         120,
		PressureCoefficient: 1,
		DiffusionIterations: 4,
		PressureIterations:  20,
		CFLSafety:           0.5,
		Mode:                ModeVelocity,

		InfluenceRadius:      1,
		MaxInfluenceStrength: 10,

		SamplerEpsilon:   1e-4,
		SamplerMaxRadius: 8,
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero grid width", func(p *Params) { p.GridW = 0 }},
		{"negative grid height", func(p *Params) { p.GridH = -2 }},
		{"zero cell size", func(p *Params) { p.CellSize = 0 }},
		{"negative viscosity", func(p *Params) { p.Viscosity = -1 }},
		{"zero dissipation", func(p *Params) { p.Dissipation = 0 }},
		{"dissipation above one", func(p *Params) { p.Dissipation = 1.5 }},
		{"zero max velocity", func(p *Params) { p.MaxVelocity = 0 }},
		{"zero pressure coefficient", func(p *Params) { p.PressureCoefficient = 0 }},
		{"negative diffusion iterations", func(p *Params) { p.DiffusionIterations = -1 }},
		{"zero pressure iterations", func(p *Params) { p.PressureIterations = 0 }},
		{"cfl safety above one", func(p *Params) { p.CFLSafety = 2 }},
		{"global pressure without budget", func(p *Params) { p.GlobalPressure = true; p.GlobalPressureIterations = 0 }},
		{"negative vorticity strength", func(p *Params) { p.Vorticity = true; p.VorticityStrength = -1 }},
		{"density dissipation above one", func(p *Params) { p.DensityEnabled = true; p.DensityDissipation = 2 }},
		{"negative influence radius", func(p *Params) { p.InfluenceRadius = -1 }},
		{"zero max influence strength", func(p *Params) { p.MaxInfluenceStrength = 0 }},
		{"zero sampler epsilon", func(p *Params) { p.SamplerEpsilon = 0 }},
		{"zero sampler radius", func(p *Params) { p.SamplerMaxRadius = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(16, 16)
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestParamsValidateAccepts(t *testing.T) {
	p := testParams(16, 16)
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// Optional stages off means their sub-fields are not validated
	p.GlobalPressureIterations = 0
	p.DensityDissipation = 0
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error with disabled stages: %v", err)
	}
}

func TestCFLLimit(t *testing.T) {
	p := testParams(16, 16)
	want := float32(0.5 * 1.0 / 120.0)
	if got := p.CFLLimit(); math.Abs(float64(got-want)) > 1e-9 {
		t.Errorf("expected cfl limit %g, got %g", want, got)
	}
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := FromConfig(cfg)
	if err := p.Validate(); err != nil {
		t.Errorf("default config produced invalid params: %v", err)
	}
	if p.GridW != cfg.Grid.Width || p.GridH != cfg.Grid.Height {
		t.Errorf("expected %dx%d grid, got %dx%d", cfg.Grid.Width, cfg.Grid.Height, p.GridW, p.GridH)
	}
	if p.Mode != ModeVelocity {
		t.Errorf("expected default velocity mode, got %v", p.Mode)
	}
	if p.SamplerMaxRadius != cfg.Derived.SearchRadius {
		t.Errorf("expected sampler radius %d, got %d", cfg.Derived.SearchRadius, p.SamplerMaxRadius)
	}
}

func TestModeString(t *testing.T) {
	if ModeVelocity.String() != "velocity" {
		t.Errorf("expected velocity, got %s", ModeVelocity.String())
	}
	if ModeIntegration.String() != "integration" {
		t.Errorf("expected integration, got %s", ModeIntegration.String())
	}
}
