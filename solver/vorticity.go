package solver

import "github.com/pthm-cable/flowfield/field"

// applyVorticity restores rotational energy the coarse grid smears out.
// First pass measures curl per cell, second pushes velocity along the
// normalized gradient of curl magnitude. Wall-adjacent cells are skipped so
// confinement never reintroduces flow into a wall right after boundary
// enforcement.
func (s *Solver) applyVorticity(dt float32) {
	g := s.grid
	cells := s.cells
	vel := s.vel
	curl := s.curl
	halfInv := 0.5 * g.InvCellSize
	strength := s.params.VorticityStrength
	maxVel := s.params.MaxVelocity

	s.pool.forEachRow(g.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * g.W
			for x := 0; x < g.W; x++ {
				i := row + x
				if cells.Class[i] == field.Obstacle || cells.Walls[i] != 0 {
					curl[i] = 0
					continue
				}
				dvdx := (vel.Y[i+1] - vel.Y[i-1]) * halfInv
				dudy := (vel.X[i+g.W] - vel.X[i-g.W]) * halfInv
				curl[i] = dvdx - dudy
			}
		}
	})

	s.pool.forEachRow(g.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * g.W
			for x := 0; x < g.W; x++ {
				i := row + x
				if cells.Class[i] == field.Obstacle || cells.Walls[i] != 0 {
					continue
				}

				gx := (absf(curl[i+1]) - absf(curl[i-1])) * halfInv
				gy := (absf(curl[i+g.W]) - absf(curl[i-g.W])) * halfInv
				mag := sqrtf(gx*gx+gy*gy) + 1e-5
				gx /= mag
				gy /= mag

				vx := vel.X[i] + strength*gy*curl[i]*dt
				vy := vel.Y[i] - strength*gx*curl[i]*dt
				vel.X[i], vel.Y[i] = clampMagnitude(vx, vy, maxVel)
			}
		}
	})
}
