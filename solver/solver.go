package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/flowfield/field"
	"github.com/pthm-cable/flowfield/telemetry"
)

// Lifecycle errors. Every operation on a solver that was never constructed
// through New, or that was already closed, fails fast with one of these.
var (
	ErrNotInitialized = errors.New("solver: not initialized")
	ErrClosed         = errors.New("solver: closed")
)

// Solver owns the field buffers and runs the per-tick stage pipeline.
//
// Exactly one goroutine may drive Update, Resize, and Close. Sample and the
// influence methods are safe to call from any goroutine at any time: reads
// go through the published snapshot and influence mutations are buffered
// until the next tick rasterizes them. The zero value is not usable; build
// solvers with New.
type Solver struct {
	params Params
	grid   field.Grid
	cells  *field.ClassGrid

	vel            *field.VectorField
	pressure       *field.ScalarField
	divergence     []float32
	globalPressure *field.ScalarField // nil unless enabled
	density        *field.ScalarField // nil unless enabled
	curl           []float32          // nil unless vorticity enabled
	integ          *integrationState  // nil unless integration mode

	influences *field.InfluenceSet
	sampler    *field.Sampler
	pool       *workerPool
	perf       *telemetry.PerfCollector // nil unless attached

	tick       uint64
	integDirty bool
	ready      bool
	closed     bool
}

// New validates the parameter snapshot, allocates every buffer, applies the
// base layout, and publishes an all-zero snapshot so sampling works before
// the first Update. layout may be nil for an all-fluid region.
func New(p Params, layout *field.Layout) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := field.NewGrid(p.GridW, p.GridH, p.CellSize, p.OriginX, p.OriginY)
	if err != nil {
		return nil, err
	}

	s := &Solver{params: p, grid: g}
	if err := s.alloc(layout); err != nil {
		return nil, err
	}
	s.pool = newWorkerPool()
	s.ready = true

	slog.Debug("solver initialized",
		"grid_w", p.GridW, "grid_h", p.GridH,
		"cell_size", p.CellSize, "mode", p.Mode.String())
	return s, nil
}

// alloc builds all per-grid state for the current s.grid. Shared by New and
// Resize; the influence registry and sampler survive reallocation so caller
// handles stay valid across a Resize.
func (s *Solver) alloc(layout *field.Layout) error {
	g := s.grid
	if layout != nil && (layout.W != g.W || layout.H != g.H) {
		return fmt.Errorf("solver: layout is %dx%d, grid is %dx%d", layout.W, layout.H, g.W, g.H)
	}

	cells := field.NewClassGrid(g)
	if layout != nil {
		if err := cells.SetBase(layout.Class, layout.Strength); err != nil {
			return err
		}
	}
	s.cells = cells

	n := g.Cells()
	s.vel = field.NewVectorField(g.W, g.H)
	s.pressure = field.NewScalarField(g.W, g.H)
	s.divergence = make([]float32, n)
	s.globalPressure = nil
	if s.params.GlobalPressure {
		s.globalPressure = field.NewScalarField(g.W, g.H)
	}
	s.curl = nil
	if s.params.Vorticity {
		s.curl = make([]float32, n)
	}
	s.density = nil
	if s.params.DensityEnabled {
		s.density = field.NewScalarField(g.W, g.H)
	}
	s.integ = nil
	if s.params.Mode == ModeIntegration {
		s.integ = newIntegrationState(n)
	}

	if s.influences == nil {
		s.influences = field.NewInfluenceSet(s.params.InfluenceRadius, s.params.MaxInfluenceStrength)
	}
	s.influences.Rasterize(s.cells)
	s.integDirty = true

	if s.sampler == nil {
		s.sampler = field.NewSampler(s.params.SamplerEpsilon, s.params.SamplerMaxRadius)
	}
	s.publish()
	return nil
}

// Update advances the field one tick. dt must be positive and finite; see
// ClampDT for the advisory stability bound. Update must not overlap itself,
// Resize, or Close.
func (s *Solver) Update(dt float32) error {
	if err := s.guard(); err != nil {
		return err
	}
	if math.IsNaN(float64(dt)) || math.IsInf(float64(dt), 0) || dt <= 0 {
		return fmt.Errorf("solver: dt must be positive and finite, got %g", dt)
	}

	if s.perf != nil {
		s.perf.StartTick()
	}

	if s.influences.Dirty() {
		s.phase(telemetry.PhaseRasterize)
		s.influences.Rasterize(s.cells)
		s.integDirty = true
	}

	if s.params.Mode == ModeIntegration {
		if s.integDirty {
			s.phase(telemetry.PhaseIntegration)
			s.rebuildIntegration()
			s.integDirty = false
		}
	} else {
		s.phase(telemetry.PhaseAdvect)
		s.advect(dt)

		s.phase(telemetry.PhaseDiffuse)
		s.diffuse(dt)

		s.phase(telemetry.PhaseForces)
		s.applyForces(dt)

		s.phase(telemetry.PhasePressure)
		s.computeDivergence()
		s.solvePressure()

		if s.globalPressure != nil {
			s.phase(telemetry.PhaseGlobalPressure)
			s.solveGlobalPressure()
			s.addGlobalPressure()
		}

		s.phase(telemetry.PhaseProject)
		s.project()

		s.phase(telemetry.PhaseBoundary)
		s.enforceBoundaries()

		if s.curl != nil {
			s.phase(telemetry.PhaseVorticity)
			s.applyVorticity(dt)
		}
	}

	s.phase(telemetry.PhasePublish)
	s.publish()

	if s.perf != nil {
		s.perf.EndTick()
	}
	s.tick++
	return nil
}

// publish copies the completed velocity field into a fresh snapshot and
// atomically swaps it in for readers. The copy is what lets Sample run
// concurrently with the next Update.
func (s *Solver) publish() {
	n := s.grid.Cells()
	snap := &field.FieldSnapshot{
		Grid: s.grid,
		VX:   make([]float32, n),
		VY:   make([]float32, n),
	}
	copy(snap.VX, s.vel.X)
	copy(snap.VY, s.vel.Y)
	s.sampler.Publish(snap)
}

// Sample returns the steering vector at a world position from the latest
// completed tick. Safe for concurrent use.
func (s *Solver) Sample(wx, wy float32) (float32, float32, error) {
	if err := s.guard(); err != nil {
		return 0, 0, err
	}
	vx, vy := s.sampler.Sample(wx, wy)
	return vx, vy, nil
}

// Sampler returns the shared sampler for callers that want to hold their
// own reference, such as agent steering loops.
func (s *Solver) Sampler() *field.Sampler {
	return s.sampler
}

// Snapshot returns the latest published field.
func (s *Solver) Snapshot() *field.FieldSnapshot {
	return s.sampler.Snapshot()
}

// AddInfluence registers a point source or sink and returns its handle.
// The influence takes effect at the start of the next Update.
func (s *Solver) AddInfluence(x, y float32, kind field.InfluenceKind, strength float32) (field.Handle, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	return s.influences.Add(x, y, kind, strength), nil
}

// RemoveInfluence deletes an influence by handle.
func (s *Solver) RemoveInfluence(h field.Handle) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.influences.Remove(h)
}

// SetInfluenceActive toggles an influence without losing its registration.
func (s *Solver) SetInfluenceActive(h field.Handle, active bool) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.influences.SetActive(h, active)
}

// MoveInfluence repositions an influence in world space.
func (s *Solver) MoveInfluence(h field.Handle, x, y float32) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.influences.SetPosition(h, x, y)
}

// SetInfluenceStrength updates an influence's raw strength.
func (s *Solver) SetInfluenceStrength(h field.Handle, strength float32) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.influences.SetStrength(h, strength)
}

// InfluenceCount returns the number of registered influences, active or not.
func (s *Solver) InfluenceCount() int {
	if s.influences == nil {
		return 0
	}
	return s.influences.Len()
}

// EachInfluence calls fn with every registered influence in creation order.
func (s *Solver) EachInfluence(fn func(field.Handle, field.Influence)) {
	if s.influences != nil {
		s.influences.Each(fn)
	}
}

// SetCoefficients updates the tunable per-tick coefficients in place, the
// Resize-free path for live parameter panels. Grid geometry changes go
// through Resize. Not safe to call concurrently with Update.
func (s *Solver) SetCoefficients(viscosity, dissipation float32, diffusionIters, pressureIters int) error {
	if err := s.guard(); err != nil {
		return err
	}
	next := s.params
	next.Viscosity = viscosity
	next.Dissipation = dissipation
	next.DiffusionIterations = diffusionIters
	next.PressureIterations = pressureIters
	if err := next.Validate(); err != nil {
		return err
	}
	s.params = next
	return nil
}

// ResetFields zeroes all simulation state while keeping the grid,
// classification, and registered influences. The next Update starts from
// rest. Not safe to call concurrently with Update.
func (s *Solver) ResetFields() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.vel.Clear()
	s.pressure.Clear()
	for i := range s.divergence {
		s.divergence[i] = 0
	}
	if s.globalPressure != nil {
		s.globalPressure.Clear()
	}
	if s.density != nil {
		s.density.Clear()
	}
	if s.curl != nil {
		for i := range s.curl {
			s.curl[i] = 0
		}
	}
	s.integDirty = true
	s.publish()
	return nil
}

// Resize reallocates every buffer at the new grid dimensions over the same
// world rectangle and re-seeds classification from layout (nil for
// all-fluid). Field state starts from zero; registered influences survive
// and are rasterized onto the new grid. The new dimensions must keep cells
// square.
func (s *Solver) Resize(w, h int, layout *field.Layout) error {
	if err := s.guard(); err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("solver: grid dimensions must be positive, got %dx%d", w, h)
	}
	if layout != nil && (layout.W != w || layout.H != h) {
		return fmt.Errorf("solver: layout is %dx%d, resize target is %dx%d", layout.W, layout.H, w, h)
	}

	worldW, worldH := s.grid.WorldW(), s.grid.WorldH()
	csX := worldW / float32(w)
	csY := worldH / float32(h)
	if absf(csX-csY) > 1e-5*csX {
		return fmt.Errorf("solver: %dx%d cells are not square over a %gx%g world", w, h, worldW, worldH)
	}

	g, err := field.NewGrid(w, h, csX, s.grid.OriginX, s.grid.OriginY)
	if err != nil {
		return err
	}
	s.grid = g
	s.params.GridW, s.params.GridH = w, h
	s.params.CellSize = csX
	if err := s.alloc(layout); err != nil {
		return err
	}

	slog.Info("solver resized", "grid_w", w, "grid_h", h, "cell_size", csX)
	return nil
}

// Close stops the worker pool and invalidates the solver. Every later call,
// including a second Close, returns ErrClosed.
func (s *Solver) Close() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.closed = true
	s.pool.stop()
	s.sampler.Publish(nil)
	slog.Debug("solver closed", "ticks", s.tick)
	return nil
}

// ClampDT caps a time step at the advisory CFL bound for the current cell
// size and velocity ceiling. Update accepts larger steps; they just trade
// stability for speed.
func (s *Solver) ClampDT(dt float32) float32 {
	limit := s.params.CFLLimit()
	if dt > limit {
		return limit
	}
	return dt
}

// AttachPerf wires a telemetry collector into the stage pipeline. Pass nil
// to detach. Not safe to call while Update runs.
func (s *Solver) AttachPerf(pc *telemetry.PerfCollector) {
	s.perf = pc
}

func (s *Solver) guard() error {
	if s.closed {
		return ErrClosed
	}
	if !s.ready {
		return ErrNotInitialized
	}
	return nil
}

func (s *Solver) phase(name string) {
	if s.perf != nil {
		s.perf.StartPhase(name)
	}
}

// Tick returns how many Updates have completed.
func (s *Solver) Tick() uint64 {
	return s.tick
}

// Params returns the current parameter snapshot.
func (s *Solver) Params() Params {
	return s.params
}

// Grid returns the grid descriptor.
func (s *Solver) Grid() field.Grid {
	return s.grid
}

// Classes returns the live classification grid. Read-only for callers;
// mutate through the influence methods or Resize.
func (s *Solver) Classes() *field.ClassGrid {
	return s.cells
}

// Pressure returns the front pressure buffer.
func (s *Solver) Pressure() []float32 {
	return s.pressure.Data
}

// Divergence returns the divergence buffer from the last tick.
func (s *Solver) Divergence() []float32 {
	return s.divergence
}

// GlobalPressure returns the propagated long-range field, or nil when the
// stage is disabled.
func (s *Solver) GlobalPressure() []float32 {
	if s.globalPressure == nil {
		return nil
	}
	return s.globalPressure.Data
}

// Density returns the transported scalar, or nil when density is disabled.
func (s *Solver) Density() []float32 {
	if s.density == nil {
		return nil
	}
	return s.density.Data
}

// Integration returns the cost-to-sink field, or nil outside integration
// mode. Unreached cells hold the unreachable sentinel.
func (s *Solver) Integration() []float32 {
	if s.integ == nil {
		return nil
	}
	return s.integ.integ
}
