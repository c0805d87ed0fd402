package main

import (
	"math/rand"
	"sync"

	"github.com/pthm-cable/flowfield/config"
	"github.com/pthm-cable/flowfield/field"
	"github.com/pthm-cable/flowfield/solver"
	"github.com/pthm-cable/flowfield/telemetry"
)

// deadWeight scales the dead-cell fraction against the divergence norm in
// the objective. A field that projects perfectly but strands agents in dead
// zones is still a bad steering field.
const deadWeight = 10.0

// badRunPenalty is returned when a parameter set cannot even construct a
// solver, keeping the search away from that region.
const badRunPenalty = 1e9

// Evaluator runs headless rooms-scenario simulations and scores parameter
// vectors. Lower is better.
type Evaluator struct {
	params *ParamVector
	ticks  int
	seeds  []int64
	base   *config.Config
}

// NewEvaluator creates an evaluator running ticks steps per seed.
func NewEvaluator(params *ParamVector, ticks int, seeds []int64, base *config.Config) *Evaluator {
	return &Evaluator{
		params: params,
		ticks:  ticks,
		seeds:  seeds,
		base:   base,
	}
}

// Evaluate scores a raw parameter vector as the mean objective over all
// seeds. Seeds run in parallel; each builds its own solver.
func (e *Evaluator) Evaluate(raw []float64) float64 {
	cfg := *e.base // nested structs are all value types, so this is a deep copy
	e.params.ApplyToConfig(&cfg, raw)

	results := make([]float64, len(e.seeds))
	var wg sync.WaitGroup
	for i, seed := range e.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = e.runSeed(&cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var sum float64
	for _, r := range results {
		sum += r
	}
	return sum / float64(len(results))
}

// runSeed simulates the rooms scenario with seed-jittered influence
// positions and returns divergence L2 plus the weighted dead-cell fraction.
func (e *Evaluator) runSeed(cfg *config.Config, seed int64) float64 {
	sc, err := field.BuildScenario(field.ScenarioRooms, cfg.Grid.Width, cfg.Grid.Height)
	if err != nil {
		return badRunPenalty
	}

	s, err := solver.New(solver.FromConfig(cfg), sc.Layout)
	if err != nil {
		return badRunPenalty
	}
	defer s.Close()

	rng := rand.New(rand.NewSource(seed))
	g := s.Grid()
	for _, in := range sc.Influences {
		// Jitter by up to two cells so one lucky placement cannot carry a
		// parameter set across all seeds.
		wx := g.OriginX + in.FX*g.WorldW() + (rng.Float32()-0.5)*4*g.CellSize
		wy := g.OriginY + in.FY*g.WorldH() + (rng.Float32()-0.5)*4*g.CellSize
		strength := in.Strength * float32(cfg.Influence.MaxStrength)
		if _, err := s.AddInfluence(wx, wy, in.Kind, strength); err != nil {
			return badRunPenalty
		}
	}

	dt := cfg.Derived.DT32
	for t := 0; t < e.ticks; t++ {
		if err := s.Update(dt); err != nil {
			return badRunPenalty
		}
	}

	collector := telemetry.NewCollector(1, dt, float32(cfg.Sampler.DeadZoneEpsilon))
	stats := collector.Flush(
		s.Tick(), s.Snapshot(), s.Classes(),
		s.Divergence(), s.Pressure(), s.InfluenceCount(),
	)
	return stats.DivergenceL2 + deadWeight*stats.DeadFraction
}
