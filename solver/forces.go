package solver

import "github.com/pthm-cable/flowfield/field"

// applyForces injects velocity at source and sink cells along their stored
// directions, scaled by normalized strength and the strength ceiling. The
// write is per-cell with no neighbor reads, so it works in place on the
// front buffer. When density transport is on, sources emit and sinks absorb
// the scalar here too.
func (s *Solver) applyForces(dt float32) {
	g := s.grid
	cells := s.cells
	vel := s.vel
	force := s.params.MaxInfluenceStrength * dt
	maxVel := s.params.MaxVelocity

	den := s.density
	inject := s.params.DensityInjection * dt

	s.pool.forEachRow(g.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * g.W
			for x := 0; x < g.W; x++ {
				i := row + x
				class := cells.Class[i]
				if class != field.Source && class != field.Sink {
					continue
				}

				f := cells.Strength[i] * force
				vx := vel.X[i] + cells.DirX[i]*f
				vy := vel.Y[i] + cells.DirY[i]*f
				vel.X[i], vel.Y[i] = clampMagnitude(vx, vy, maxVel)

				if den != nil {
					if class == field.Source {
						den.Data[i] += cells.Strength[i] * inject
					} else {
						d := den.Data[i] - cells.Strength[i]*inject
						if d < 0 {
							d = 0
						}
						den.Data[i] = d
					}
				}
			}
		}
	})
}
