// Package agents runs a demo swarm steered by the published flow field.
// Agents only ever read the solver's published snapshot through the sampler,
// so the swarm doubles as an exercise of the concurrent read path.
package agents

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flowfield/field"
)

// Position is an agent's world position.
type Position struct {
	X, Y float32
}

// Velocity is an agent's velocity in world units per second.
type Velocity struct {
	X, Y float32
}

// Terrain answers walkability queries for agent collision. The solver
// satisfies this.
type Terrain interface {
	Grid() field.Grid
	Classes() *field.ClassGrid
}

// Config holds the swarm parameters.
type Config struct {
	Count     int
	MaxSpeed  float32 // speed clamp in world units per second
	SteerRate float32 // velocity relaxation rate toward the sampled field
	Seed      int64
}

// agentSnapshot captures read-only state for the parallel compute phase.
type agentSnapshot struct {
	entity ecs.Entity
	pos    Position
	vel    Velocity
}

// intent captures computed outputs to apply after the parallel phase.
type intent struct {
	pos Position
	vel Velocity
}

// Swarm owns the agent entities and steps them against the sampled field.
// Update must be driven from a single goroutine; internally the compute
// phase fans out over a worker pool.
type Swarm struct {
	cfg     Config
	sampler *field.Sampler
	terrain Terrain

	world  *ecs.World
	mapper *ecs.Map2[Position, Velocity]
	filter *ecs.Filter2[Position, Velocity]
	posMap *ecs.Map1[Position]
	velMap *ecs.Map1[Velocity]

	snapshots []agentSnapshot
	intents   []intent
	pool      *chunkPool
}

// NewSwarm creates a swarm of cfg.Count agents spawned on random open cells.
func NewSwarm(cfg Config, sampler *field.Sampler, terrain Terrain) (*Swarm, error) {
	if cfg.Count < 0 {
		return nil, fmt.Errorf("agents: count must not be negative, got %d", cfg.Count)
	}
	if cfg.Count > 0 && cfg.MaxSpeed <= 0 {
		return nil, fmt.Errorf("agents: max speed must be positive, got %g", cfg.MaxSpeed)
	}
	if cfg.Count > 0 && cfg.SteerRate <= 0 {
		return nil, fmt.Errorf("agents: steer rate must be positive, got %g", cfg.SteerRate)
	}
	if sampler == nil || terrain == nil {
		return nil, fmt.Errorf("agents: sampler and terrain are required")
	}

	world := ecs.NewWorld()
	s := &Swarm{
		cfg:     cfg,
		sampler: sampler,
		terrain: terrain,
		world:   world,
		mapper:  ecs.NewMap2[Position, Velocity](world),
		filter:  ecs.NewFilter2[Position, Velocity](world),
		posMap:  ecs.NewMap1[Position](world),
		velMap:  ecs.NewMap1[Velocity](world),
	}
	s.pool = newChunkPool(s.computeChunk)
	s.snapshots = make([]agentSnapshot, 0, cfg.Count)
	s.intents = make([]intent, 0, cfg.Count)

	s.spawn(rand.New(rand.NewSource(cfg.Seed)))
	return s, nil
}

// spawn places agents on random open cells, jittered within the cell.
func (s *Swarm) spawn(rng *rand.Rand) {
	g := s.terrain.Grid()
	cells := s.terrain.Classes()

	for i := 0; i < s.cfg.Count; i++ {
		var wx, wy float32
		placed := false
		for attempt := 0; attempt < 64; attempt++ {
			x := rng.Intn(g.W)
			y := rng.Intn(g.H)
			if !cells.Open(x, y) {
				continue
			}
			cx, cy := g.CellCenter(x, y)
			wx = cx + (rng.Float32()-0.5)*g.CellSize*0.5
			wy = cy + (rng.Float32()-0.5)*g.CellSize*0.5
			placed = true
			break
		}
		if !placed {
			// Layout is almost all obstacle; fall back to the field center.
			wx, wy = g.Center()
		}
		pos := Position{X: wx, Y: wy}
		vel := Velocity{}
		s.mapper.NewEntity(&pos, &vel)
	}
}

// Count returns the number of agents in the swarm.
func (s *Swarm) Count() int {
	return s.cfg.Count
}

// Update advances every agent one step against the latest published field.
func (s *Swarm) Update(dt float32) {
	// Phase A: snapshot agent state single-threaded.
	s.snapshots = s.snapshots[:0]
	query := s.filter.Query()
	for query.Next() {
		pos, vel := query.Get()
		s.snapshots = append(s.snapshots, agentSnapshot{
			entity: query.Entity(),
			pos:    *pos,
			vel:    *vel,
		})
	}

	n := len(s.snapshots)
	if n == 0 {
		return
	}
	if cap(s.intents) < n {
		s.intents = make([]intent, n)
	}
	s.intents = s.intents[:n]

	// Phase B: compute, parallel over agent chunks.
	s.pool.run(n, dt)

	// Phase C: apply intents single-threaded, preserving determinism.
	for i := range s.snapshots {
		pos := s.posMap.Get(s.snapshots[i].entity)
		vel := s.velMap.Get(s.snapshots[i].entity)
		if pos == nil || vel == nil {
			continue
		}
		*pos = s.intents[i].pos
		*vel = s.intents[i].vel
	}
}

// computeChunk steers agents [start, end) for one step. Reads only the
// snapshot slice and the published field; writes only its own intent rows.
func (s *Swarm) computeChunk(start, end int, dt float32) {
	g := s.terrain.Grid()
	cells := s.terrain.Classes()
	maxSpeed := s.cfg.MaxSpeed
	rate := s.cfg.SteerRate * dt
	if rate > 1 {
		rate = 1
	}

	// Keep agents a half cell clear of the outer edge.
	inset := g.CellSize * 0.5
	minX, minY := g.OriginX+inset, g.OriginY+inset
	maxX := g.OriginX + g.WorldW() - inset
	maxY := g.OriginY + g.WorldH() - inset

	for i := start; i < end; i++ {
		snap := &s.snapshots[i]

		fx, fy := s.sampler.Sample(snap.pos.X, snap.pos.Y)

		vx := snap.vel.X + (fx-snap.vel.X)*rate
		vy := snap.vel.Y + (fy-snap.vel.Y)*rate
		if speedSq := vx*vx + vy*vy; speedSq > maxSpeed*maxSpeed {
			scale := maxSpeed / sqrtf(speedSq)
			vx *= scale
			vy *= scale
		}

		nx := clampf(snap.pos.X+vx*dt, minX, maxX)
		ny := clampf(snap.pos.Y+vy*dt, minY, maxY)

		// Sample-and-backstep: never walk into an obstacle cell. Axis
		// slides are tried first so agents skim walls instead of sticking.
		if blocked(cells, g, nx, ny) {
			switch {
			case !blocked(cells, g, nx, snap.pos.Y):
				ny = snap.pos.Y
				vy = 0
			case !blocked(cells, g, snap.pos.X, ny):
				nx = snap.pos.X
				vx = 0
			default:
				nx, ny = snap.pos.X, snap.pos.Y
				vx, vy = 0, 0
			}
		}

		s.intents[i] = intent{
			pos: Position{X: nx, Y: ny},
			vel: Velocity{X: vx, Y: vy},
		}
	}
}

// Each calls fn for every agent. Single-threaded; intended for rendering.
func (s *Swarm) Each(fn func(pos Position, vel Velocity)) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel := query.Get()
		fn(*pos, *vel)
	}
}

// Close stops the worker pool.
func (s *Swarm) Close() {
	s.pool.stop()
}

func blocked(cells *field.ClassGrid, g field.Grid, wx, wy float32) bool {
	x, y := g.WorldToGrid(wx, wy)
	return !cells.Open(x, y)
}

func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
