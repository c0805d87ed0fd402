package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/flowfield/field"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestNorm2(t *testing.T) {
	if got := norm2([]float32{3, 4}); math.Abs(got-5) > 1e-6 {
		t.Errorf("norm2 = %v, want 5", got)
	}
	if got := norm2(nil); got != 0 {
		t.Errorf("norm2(nil) = %v, want 0", got)
	}
	if got := norm2Pair([]float32{3, 0}, []float32{0, 4}); math.Abs(got-5) > 1e-6 {
		t.Errorf("norm2Pair = %v, want 5", got)
	}
}

func TestCollectorWindowing(t *testing.T) {
	c := NewCollector(1.0, 0.016, 0.001)

	if c.WindowDurationTicks() != 62 {
		t.Errorf("expected 62 ticks per window, got %d", c.WindowDurationTicks())
	}
	if c.ShouldFlush(61) {
		t.Error("window should not flush before duration elapsed")
	}
	if !c.ShouldFlush(62) {
		t.Error("window should flush once duration elapsed")
	}
}

func TestCollectorFlush(t *testing.T) {
	g, err := field.NewGrid(2, 2, 1, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cells := field.NewClassGrid(g)
	layout := []field.CellClass{field.Fluid, field.Fluid, field.Fluid, field.Obstacle}
	if err := cells.SetBase(layout, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := &field.FieldSnapshot{
		Grid: g,
		VX:   []float32{3, 0, 0, 0},
		VY:   []float32{4, 0, 0, 0},
	}
	divergence := []float32{1, 2, 2, 0}
	pressure := []float32{0, 0, 3, 0}

	c := NewCollector(1.0, 0.016, 0.1)
	c.RecordInfluenceMutation()
	c.RecordInfluenceMutation()
	c.RecordResize()

	stats := c.Flush(62, snap, cells, divergence, pressure, 2)

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 62 {
		t.Errorf("expected window [0,62], got [%d,%d]", stats.WindowStartTick, stats.WindowEndTick)
	}
	if stats.FluidCells != 3 || stats.ObstacleCells != 1 {
		t.Errorf("expected 3 fluid / 1 obstacle, got %d / %d", stats.FluidCells, stats.ObstacleCells)
	}
	if stats.Influences != 2 {
		t.Errorf("expected 2 influences, got %d", stats.Influences)
	}
	if math.Abs(stats.VelocityL2-5) > 1e-6 {
		t.Errorf("expected velocity L2 = 5, got %v", stats.VelocityL2)
	}
	if math.Abs(stats.DivergenceL2-3) > 1e-6 {
		t.Errorf("expected divergence L2 = 3, got %v", stats.DivergenceL2)
	}
	if math.Abs(stats.PressureL2-3) > 1e-6 {
		t.Errorf("expected pressure L2 = 3, got %v", stats.PressureL2)
	}
	if math.Abs(stats.MaxSpeed-5) > 1e-6 {
		t.Errorf("expected max speed 5, got %v", stats.MaxSpeed)
	}
	if math.Abs(stats.MeanSpeed-5.0/3.0) > 1e-6 {
		t.Errorf("expected mean speed 5/3, got %v", stats.MeanSpeed)
	}
	// Two open cells sit at zero speed, below the 0.1 epsilon
	if stats.DeadCells != 2 {
		t.Errorf("expected 2 dead cells, got %d", stats.DeadCells)
	}
	if math.Abs(stats.DeadFraction-2.0/3.0) > 1e-6 {
		t.Errorf("expected dead fraction 2/3, got %v", stats.DeadFraction)
	}
	if stats.InfluenceMutations != 2 || stats.Resizes != 1 {
		t.Errorf("expected 2 mutations / 1 resize, got %d / %d", stats.InfluenceMutations, stats.Resizes)
	}

	// Counters reset and the window advances after a flush
	next := c.Flush(124, snap, cells, divergence, pressure, 2)
	if next.WindowStartTick != 62 {
		t.Errorf("expected next window to start at 62, got %d", next.WindowStartTick)
	}
	if next.InfluenceMutations != 0 || next.Resizes != 0 {
		t.Errorf("expected counters reset, got %d / %d", next.InfluenceMutations, next.Resizes)
	}
}

func TestCollectorFlushNilSnapshot(t *testing.T) {
	c := NewCollector(1.0, 0.016, 0.001)

	stats := c.Flush(62, nil, nil, nil, nil, 0)

	if stats.WindowEndTick != 62 {
		t.Errorf("expected window end 62, got %d", stats.WindowEndTick)
	}
	if stats.VelocityL2 != 0 || stats.DeadCells != 0 {
		t.Error("expected zeroed field metrics for nil snapshot")
	}
}
