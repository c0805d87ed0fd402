package solver

import "github.com/pthm-cable/flowfield/field"

// advect moves the velocity field along itself: every open cell back-traces
// a particle through its own velocity, resamples the previous buffer there,
// and bleeds energy through the dissipation factor. Obstacle cells are
// pinned to zero. When density transport is on, the scalar rides the same
// previous velocity field.
func (s *Solver) advect(dt float32) {
	g := s.grid
	cells := s.cells
	vel := s.vel
	scale := dt * g.InvCellSize
	dissipation := s.params.Dissipation

	s.pool.forEachRow(g.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * g.W
			for x := 0; x < g.W; x++ {
				i := row + x
				if cells.Class[i] == field.Obstacle {
					vel.BackX[i] = 0
					vel.BackY[i] = 0
					continue
				}

				// Back-trace from the cell center in cell space
				u := float32(x) - vel.X[i]*scale
				v := float32(y) - vel.Y[i]*scale
				vx, vy := vel.SampleMasked(cells, u, v)
				vel.BackX[i] = vx * dissipation
				vel.BackY[i] = vy * dissipation
			}
		}
	})

	if s.density != nil {
		s.advectDensity(dt)
	}

	vel.Swap()
	if s.density != nil {
		s.density.Swap()
	}
}

// advectDensity transports the scalar through the pre-swap velocity buffer
// with its own dissipation. Density never goes negative.
func (s *Solver) advectDensity(dt float32) {
	g := s.grid
	cells := s.cells
	vel := s.vel
	den := s.density
	scale := dt * g.InvCellSize
	dissipation := s.params.DensityDissipation

	s.pool.forEachRow(g.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * g.W
			for x := 0; x < g.W; x++ {
				i := row + x
				if cells.Class[i] == field.Obstacle {
					den.Back[i] = 0
					continue
				}

				u := float32(x) - vel.X[i]*scale
				v := float32(y) - vel.Y[i]*scale
				d := den.SampleMasked(cells, u, v) * dissipation
				if d < 0 {
					d = 0
				}
				den.Back[i] = d
			}
		}
	})
}
