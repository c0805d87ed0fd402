package field

import "sync/atomic"

// FieldSnapshot is an immutable copy of a completed tick's velocity field.
// The solver publishes a fresh snapshot at the end of every Update so
// readers never observe a buffer mid-mutation.
type FieldSnapshot struct {
	Grid Grid
	VX   []float32
	VY   []float32
}

// Bilinear interpolates the snapshot at continuous cell coordinates.
// Obstacle cells hold zero velocity, so no corner masking is needed here.
func (sn *FieldSnapshot) Bilinear(u, v float32) (float32, float32) {
	u, v = sn.Grid.ClampCellSpace(u, v)

	w := sn.Grid.W
	x0 := int(floorf(u))
	y0 := int(floorf(v))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= w {
		x1 = w - 1
	}
	if y1 >= sn.Grid.H {
		y1 = sn.Grid.H - 1
	}
	fx := u - float32(x0)
	fy := v - float32(y0)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	i00 := y0*w + x0
	i10 := y0*w + x1
	i01 := y1*w + x0
	i11 := y1*w + x1

	vx := w00*sn.VX[i00] + w10*sn.VX[i10] + w01*sn.VX[i01] + w11*sn.VX[i11]
	vy := w00*sn.VY[i00] + w10*sn.VY[i10] + w01*sn.VY[i01] + w11*sn.VY[i11]
	return vx, vy
}

// At returns the cell velocity at clamped coordinates.
func (sn *FieldSnapshot) At(x, y int) (float32, float32) {
	x, y = sn.Grid.ClampCell(x, y)
	i := sn.Grid.Index(x, y)
	return sn.VX[i], sn.VY[i]
}

// Sampler answers steering queries against the latest published snapshot.
// Sample is safe to call from any number of goroutines concurrently with the
// solver's Update; publication is a single atomic pointer store. The sampler
// is valid for the lifetime of the solver that owns it.
//
// A query never returns a zero vector from inside the walkable region while
// any cell still carries velocity: a dead bilinear result falls back to a
// bounded ring search with distance falloff, and an exhausted search falls
// back to a unit vector toward the field center.
type Sampler struct {
	snap      atomic.Pointer[FieldSnapshot]
	epsilon   float32 // magnitudes below this count as dead
	maxRadius int     // ring search bound in cells
}

// NewSampler creates a sampler with the given dead-zone epsilon and maximum
// ring search radius in cells. Both must be positive; the solver validates
// them as part of its parameter set.
func NewSampler(epsilon float32, maxRadius int) *Sampler {
	return &Sampler{epsilon: epsilon, maxRadius: maxRadius}
}

// Publish makes snap the field all subsequent Sample calls read.
func (s *Sampler) Publish(snap *FieldSnapshot) {
	s.snap.Store(snap)
}

// Snapshot returns the latest published field, or nil before the first
// publication.
func (s *Sampler) Snapshot() *FieldSnapshot {
	return s.snap.Load()
}

// Sample returns the steering vector at a world position. Positions outside
// the field bounds are clamped onto the nearest edge. Returns zero only
// before the first publication.
func (s *Sampler) Sample(wx, wy float32) (float32, float32) {
	snap := s.snap.Load()
	if snap == nil {
		return 0, 0
	}

	u, v := snap.Grid.ToCellSpace(wx, wy)
	vx, vy := snap.Bilinear(u, v)
	if magnitude(vx, vy) >= s.epsilon {
		return vx, vy
	}

	if vx, vy, ok := s.searchRings(snap, wx, wy); ok {
		return vx, vy
	}

	return s.towardCenter(snap, wx, wy)
}

// searchRings scans outward from the containing cell in expanding square
// rings for the nearest cell with non-negligible velocity, returning that
// velocity scaled by a distance falloff. Radius 0 re-checks the containing
// cell itself, since bilinear averaging can deaden a live cell value.
func (s *Sampler) searchRings(snap *FieldSnapshot, wx, wy float32) (float32, float32, bool) {
	g := snap.Grid
	cx, cy := g.WorldToGrid(wx, wy)
	cx, cy = g.ClampCell(cx, cy)

	for rad := 0; rad <= s.maxRadius; rad++ {
		bestDistSq := -1
		var bestX, bestY float32

		for dy := -rad; dy <= rad; dy++ {
			for dx := -rad; dx <= rad; dx++ {
				// Ring cells only; the interior was covered by smaller radii
				if dx > -rad && dx < rad && dy > -rad && dy < rad {
					continue
				}
				x, y := cx+dx, cy+dy
				if !g.InBounds(x, y) {
					continue
				}
				i := g.Index(x, y)
				fx, fy := snap.VX[i], snap.VY[i]
				if magnitude(fx, fy) < s.epsilon {
					continue
				}
				distSq := dx*dx + dy*dy
				if bestDistSq < 0 || distSq < bestDistSq {
					bestDistSq = distSq
					bestX, bestY = fx, fy
				}
			}
		}

		if bestDistSq >= 0 {
			falloff := 1 / (1 + sqrtf(float32(bestDistSq)))
			return bestX * falloff, bestY * falloff, true
		}
	}
	return 0, 0, false
}

// towardCenter returns a unit vector from the sample position toward the
// field center, the last-resort answer for a fully dead neighborhood.
func (s *Sampler) towardCenter(snap *FieldSnapshot, wx, wy float32) (float32, float32) {
	ccx, ccy := snap.Grid.Center()
	dx := ccx - wx
	dy := ccy - wy
	dist := magnitude(dx, dy)
	if dist < 1e-5 {
		// Exactly at the center of a dead field; any nonzero direction works.
		return 1, 0
	}
	return dx / dist, dy / dist
}
