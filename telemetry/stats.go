package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/flowfield/field"
)

// FieldStats holds aggregated field health for a stats window.
type FieldStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Cell classification at window end
	FluidCells    int `csv:"fluid_cells"`
	ObstacleCells int `csv:"obstacle_cells"`
	SourceCells   int `csv:"source_cells"`
	SinkCells     int `csv:"sink_cells"`
	Influences    int `csv:"influences"`

	// Field norms
	VelocityL2   float64 `csv:"velocity_l2"`
	DivergenceL2 float64 `csv:"divergence_l2"`
	PressureL2   float64 `csv:"pressure_l2"`

	// Speed distribution over open cells
	MeanSpeed float64 `csv:"mean_speed"`
	MaxSpeed  float64 `csv:"max_speed"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Open cells whose velocity decayed below the dead-zone epsilon.
	// These are the cells the sampler fallback chain exists for.
	DeadCells    int     `csv:"dead_cells"`
	DeadFraction float64 `csv:"dead_fraction"`

	// Events during window
	InfluenceMutations int `csv:"influence_mutations"`
	Resizes            int `csv:"resizes"`
}

// Collector accumulates events within time windows and produces FieldStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks uint64
	dt                  float32
	deadEpsilon         float32

	windowStartTick uint64

	// Event counters for the current window
	influenceMutations int
	resizes            int
}

// NewCollector creates a stats collector. windowDurationSec is the window
// length in simulation seconds, dt the seconds per tick, deadEpsilon the
// speed below which an open cell counts as dead.
func NewCollector(windowDurationSec float64, dt, deadEpsilon float32) *Collector {
	ticksPerWindow := uint64(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		deadEpsilon:         deadEpsilon,
	}
}

// RecordInfluenceMutation records one add/remove/move/toggle of an influence.
func (c *Collector) RecordInfluenceMutation() {
	c.influenceMutations++
}

// RecordResize records a grid resize.
func (c *Collector) RecordResize() {
	c.resizes++
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}

// Flush aggregates the field state into a FieldStats record and resets the
// window counters. snap is the latest published snapshot; divergence and
// pressure are the solver's front buffers; influences is the registered
// influence count.
func (c *Collector) Flush(
	currentTick uint64,
	snap *field.FieldSnapshot,
	cells *field.ClassGrid,
	divergence, pressure []float32,
	influences int,
) FieldStats {
	stats := FieldStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),
		Influences:      influences,

		InfluenceMutations: c.influenceMutations,
		Resizes:            c.resizes,
	}

	c.windowStartTick = currentTick
	c.influenceMutations = 0
	c.resizes = 0

	if snap == nil || cells == nil {
		return stats
	}

	stats.FluidCells = cells.CountClass(field.Fluid)
	stats.ObstacleCells = cells.CountClass(field.Obstacle)
	stats.SourceCells = cells.CountClass(field.Source)
	stats.SinkCells = cells.CountClass(field.Sink)

	stats.VelocityL2 = norm2Pair(snap.VX, snap.VY)
	stats.DivergenceL2 = norm2(divergence)
	stats.PressureL2 = norm2(pressure)

	// Speed distribution and dead-cell census over open cells only;
	// obstacle cells are pinned to zero and would skew both.
	speeds := make([]float64, 0, len(snap.VX))
	var sum, maxSpeed float64
	dead := 0
	for i := range snap.VX {
		if cells.Class[i] == field.Obstacle {
			continue
		}
		s := math.Sqrt(float64(snap.VX[i])*float64(snap.VX[i]) + float64(snap.VY[i])*float64(snap.VY[i]))
		speeds = append(speeds, s)
		sum += s
		if s > maxSpeed {
			maxSpeed = s
		}
		if s < float64(c.deadEpsilon) {
			dead++
		}
	}

	if len(speeds) > 0 {
		stats.MeanSpeed = sum / float64(len(speeds))
		stats.MaxSpeed = maxSpeed
		sort.Float64s(speeds)
		stats.SpeedP10 = Percentile(speeds, 0.10)
		stats.SpeedP50 = Percentile(speeds, 0.50)
		stats.SpeedP90 = Percentile(speeds, 0.90)
		stats.DeadCells = dead
		stats.DeadFraction = float64(dead) / float64(len(speeds))
	}

	return stats
}

// norm2 returns the Euclidean norm of a buffer.
func norm2(data []float32) float64 {
	if len(data) == 0 {
		return 0
	}
	return float64(blas32.Nrm2(blas32.Vector{N: len(data), Inc: 1, Data: data}))
}

// norm2Pair returns the Euclidean norm over a two-component field.
func norm2Pair(x, y []float32) float64 {
	nx := norm2(x)
	ny := norm2(y)
	return math.Sqrt(nx*nx + ny*ny)
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// LogValue implements slog.LogValuer for structured logging.
func (s FieldStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("fluid_cells", s.FluidCells),
		slog.Int("obstacle_cells", s.ObstacleCells),
		slog.Int("source_cells", s.SourceCells),
		slog.Int("sink_cells", s.SinkCells),
		slog.Int("influences", s.Influences),
		slog.Float64("velocity_l2", s.VelocityL2),
		slog.Float64("divergence_l2", s.DivergenceL2),
		slog.Float64("pressure_l2", s.PressureL2),
		slog.Float64("mean_speed", s.MeanSpeed),
		slog.Float64("max_speed", s.MaxSpeed),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Int("dead_cells", s.DeadCells),
		slog.Float64("dead_fraction", s.DeadFraction),
		slog.Int("influence_mutations", s.InfluenceMutations),
		slog.Int("resizes", s.Resizes),
	)
}

// LogStats logs the window stats using slog.
func (s FieldStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"fluid_cells", s.FluidCells,
		"obstacle_cells", s.ObstacleCells,
		"source_cells", s.SourceCells,
		"sink_cells", s.SinkCells,
		"influences", s.Influences,
		"velocity_l2", s.VelocityL2,
		"divergence_l2", s.DivergenceL2,
		"pressure_l2", s.PressureL2,
		"mean_speed", s.MeanSpeed,
		"max_speed", s.MaxSpeed,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"dead_cells", s.DeadCells,
		"dead_fraction", s.DeadFraction,
		"influence_mutations", s.InfluenceMutations,
		"resizes", s.Resizes,
	)
}
