package field

import (
	"math"
	"sync"
	"testing"
)

func newTestSnapshot(w, h int) *FieldSnapshot {
	g, _ := NewGrid(w, h, 4, 0, 0)
	return &FieldSnapshot{
		Grid: g,
		VX:   make([]float32, w*h),
		VY:   make([]float32, w*h),
	}
}

func TestSamplerBilinear(t *testing.T) {
	snap := newTestSnapshot(8, 8)
	// Uniform field: bilinear must reproduce it exactly anywhere
	for i := range snap.VX {
		snap.VX[i] = 3
		snap.VY[i] = -1
	}

	s := NewSampler(1e-4, 2)
	s.Publish(snap)

	vx, vy := s.Sample(13.7, 22.1)
	if math.Abs(float64(vx-3)) > 1e-5 || math.Abs(float64(vy+1)) > 1e-5 {
		t.Errorf("expected uniform field sample (3,-1), got (%f,%f)", vx, vy)
	}
}

func TestSamplerInterpolatesBetweenCells(t *testing.T) {
	snap := newTestSnapshot(8, 8)
	// Cell (2,4) has vx=2, cell (3,4) has vx=4; halfway between their
	// centers the interpolated value is 3.
	snap.VX[snap.Grid.Index(2, 4)] = 2
	snap.VX[snap.Grid.Index(3, 4)] = 4

	s := NewSampler(1e-4, 2)
	s.Publish(snap)

	cx1, cy := snap.Grid.CellCenter(2, 4)
	cx2, _ := snap.Grid.CellCenter(3, 4)
	vx, _ := s.Sample((cx1+cx2)/2, cy)
	if math.Abs(float64(vx-3)) > 1e-5 {
		t.Errorf("expected interpolated vx=3, got %f", vx)
	}
}

func TestSamplerClampsOutOfBounds(t *testing.T) {
	snap := newTestSnapshot(8, 8)
	for i := range snap.VX {
		snap.VX[i] = 5
	}
	s := NewSampler(1e-4, 2)
	s.Publish(snap)

	// Way outside the field clamps to the nearest edge cell
	vx, vy := s.Sample(-1000, 1000)
	if vx != 5 || vy != 0 {
		t.Errorf("expected clamped sample (5,0), got (%f,%f)", vx, vy)
	}
}

func TestSamplerDeadZoneRingSearch(t *testing.T) {
	snap := newTestSnapshot(16, 16)
	// Single live cell three cells right of the query point
	li := snap.Grid.Index(8, 5)
	snap.VX[li] = 10

	s := NewSampler(1e-4, 8)
	s.Publish(snap)

	wx, wy := snap.Grid.CellCenter(5, 5)
	vx, vy := s.Sample(wx, wy)
	if vx <= 0 {
		t.Fatalf("expected ring search to find +x velocity, got (%f,%f)", vx, vy)
	}
	// Distance falloff: three cells away scales by 1/(1+3)
	want := 10.0 / 4.0
	if math.Abs(float64(vx)-want) > 1e-4 {
		t.Errorf("expected falloff-scaled vx %.3f, got %f", want, vx)
	}
}

func TestSamplerRingPicksNearest(t *testing.T) {
	snap := newTestSnapshot(16, 16)
	snap.VX[snap.Grid.Index(7, 5)] = 1  // two cells away
	snap.VX[snap.Grid.Index(10, 5)] = 9 // five cells away

	s := NewSampler(1e-4, 8)
	s.Publish(snap)

	wx, wy := snap.Grid.CellCenter(5, 5)
	vx, _ := s.Sample(wx, wy)
	// Nearest live cell wins even though the farther one is stronger
	want := 1.0 / 3.0
	if math.Abs(float64(vx)-want) > 1e-4 {
		t.Errorf("expected nearest cell value %.3f, got %f", want, vx)
	}
}

func TestSamplerCenterFallback(t *testing.T) {
	snap := newTestSnapshot(16, 16) // fully dead field
	s := NewSampler(1e-4, 4)
	s.Publish(snap)

	// Query in the top-left: fallback points down-right toward center
	vx, vy := s.Sample(2, 2)
	if vx <= 0 || vy <= 0 {
		t.Errorf("expected vector toward center, got (%f,%f)", vx, vy)
	}
	mag := math.Hypot(float64(vx), float64(vy))
	if math.Abs(mag-1) > 1e-5 {
		t.Errorf("expected unit fallback vector, got magnitude %f", mag)
	}

	// Exactly at the center of a dead field still returns nonzero
	ccx, ccy := snap.Grid.Center()
	vx, vy = s.Sample(ccx, ccy)
	if vx == 0 && vy == 0 {
		t.Error("expected nonzero vector at dead-field center")
	}
}

func TestSamplerBeforeFirstPublish(t *testing.T) {
	s := NewSampler(1e-4, 4)
	vx, vy := s.Sample(10, 10)
	if vx != 0 || vy != 0 {
		t.Errorf("expected zero sample before first publish, got (%f,%f)", vx, vy)
	}
}

func TestSamplerConcurrentPublish(t *testing.T) {
	s := NewSampler(1e-4, 4)
	s.Publish(newTestSnapshot(16, 16))

	stop := make(chan struct{})
	var publisher sync.WaitGroup
	publisher.Add(1)
	go func() {
		defer publisher.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			snap := newTestSnapshot(16, 16)
			for j := range snap.VX {
				snap.VX[j] = float32(i%7) + 1
			}
			s.Publish(snap)
		}
	}()

	// Readers hammer Sample while the publisher swaps snapshots under them.
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func(seed int) {
			defer readers.Done()
			for i := 0; i < 5000; i++ {
				x := float32((seed*31 + i*7) % 64)
				y := float32((seed*17 + i*13) % 64)
				s.Sample(x, y)
			}
		}(r)
	}

	readers.Wait()
	close(stop)
	publisher.Wait()
}
