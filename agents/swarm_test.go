package agents

import (
	"sync"
	"testing"

	"github.com/pthm-cable/flowfield/field"
	"github.com/pthm-cable/flowfield/solver"
)

func testParams(w, h int) solver.Params {
	return solver.Params{
		GridW: w, GridH: h, CellSize: 1,
		Viscosity: 0.0001, Dissipation: 0.95,
		MaxVelocity: 40, PressureCoefficient: 1,
		DiffusionIterations: 4, PressureIterations: 20,
		CFLSafety: 0.5,
		InfluenceRadius: 1, MaxInfluenceStrength: 10,
		SamplerEpsilon: 1e-4, SamplerMaxRadius: 8,
	}
}

func newTestSolver(t *testing.T) *solver.Solver {
	t.Helper()
	sc, err := field.BuildScenario(field.ScenarioRingSink, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	s, err := solver.New(testParams(16, 16), sc.Layout)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	for _, inf := range sc.Influences {
		wx := inf.FX * s.Grid().WorldW()
		wy := inf.FY * s.Grid().WorldH()
		if _, err := s.AddInfluence(wx, wy, inf.Kind, inf.Strength*10); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestSwarmSpawnsOnOpenCells(t *testing.T) {
	s := newTestSolver(t)
	sw, err := NewSwarm(Config{Count: 50, MaxSpeed: 10, SteerRate: 4, Seed: 1}, s.Sampler(), s)
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Close()

	g := s.Grid()
	cells := s.Classes()
	seen := 0
	sw.Each(func(pos Position, _ Velocity) {
		seen++
		x, y := g.WorldToGrid(pos.X, pos.Y)
		if !cells.Open(x, y) {
			t.Errorf("agent spawned on blocked cell (%d,%d)", x, y)
		}
	})
	if seen != 50 {
		t.Fatalf("spawned %d agents, want 50", seen)
	}
}

func TestSwarmConfigValidation(t *testing.T) {
	s := newTestSolver(t)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative count", Config{Count: -1, MaxSpeed: 10, SteerRate: 4}},
		{"zero max speed", Config{Count: 10, MaxSpeed: 0, SteerRate: 4}},
		{"zero steer rate", Config{Count: 10, MaxSpeed: 10, SteerRate: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSwarm(tc.cfg, s.Sampler(), s); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := NewSwarm(Config{}, nil, nil); err == nil {
		t.Error("nil collaborators did not error")
	}
}

func TestSwarmDriftsTowardSink(t *testing.T) {
	s := newTestSolver(t)
	for i := 0; i < 60; i++ {
		if err := s.Update(0.016); err != nil {
			t.Fatal(err)
		}
	}

	sw, err := NewSwarm(Config{Count: 80, MaxSpeed: 20, SteerRate: 8, Seed: 7}, s.Sampler(), s)
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Close()

	sinkX, sinkY := s.Grid().Center()
	before := meanDistance(sw, sinkX, sinkY)

	for i := 0; i < 120; i++ {
		sw.Update(0.016)
	}

	after := meanDistance(sw, sinkX, sinkY)
	if after >= before {
		t.Errorf("mean distance to sink did not shrink: before=%g after=%g", before, after)
	}
}

func TestSwarmNeverEntersObstacles(t *testing.T) {
	s := newTestSolver(t)
	for i := 0; i < 30; i++ {
		if err := s.Update(0.016); err != nil {
			t.Fatal(err)
		}
	}

	sw, err := NewSwarm(Config{Count: 40, MaxSpeed: 50, SteerRate: 10, Seed: 3}, s.Sampler(), s)
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Close()

	g := s.Grid()
	cells := s.Classes()
	for i := 0; i < 200; i++ {
		sw.Update(0.05) // deliberately large step to stress the backstep
		sw.Each(func(pos Position, _ Velocity) {
			x, y := g.WorldToGrid(pos.X, pos.Y)
			if !cells.Open(x, y) {
				t.Fatalf("agent inside blocked cell (%d,%d) at step %d", x, y, i)
			}
		})
	}
}

// TestSwarmSamplesDuringUpdate drives the solver while agent goroutines
// hammer the sampler, the read discipline the published snapshot exists for.
func TestSwarmSamplesDuringUpdate(t *testing.T) {
	s := newTestSolver(t)
	sampler := s.Sampler()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(seed float32) {
			defer wg.Done()
			wx, wy := seed, seed*2
			for {
				select {
				case <-stop:
					return
				default:
					vx, vy := sampler.Sample(wx, wy)
					wx += vx * 0.001
					wy += vy * 0.001
				}
			}
		}(float32(r) + 1)
	}

	for i := 0; i < 100; i++ {
		if err := s.Update(0.016); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()
}

func meanDistance(sw *Swarm, tx, ty float32) float64 {
	var sum float64
	var n int
	sw.Each(func(pos Position, _ Velocity) {
		dx := float64(pos.X - tx)
		dy := float64(pos.Y - ty)
		sum += dx*dx + dy*dy
		n++
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
