package solver

import "github.com/pthm-cable/flowfield/field"

// diffusionEpsilon short-circuits the diffusion stage. Below this viscosity
// the alpha coefficient explodes toward overflow and the smoothing effect is
// invisible anyway.
const diffusionEpsilon = 1e-6

// diffuse runs the configured number of Jacobi relaxation sweeps for
// implicit viscosity. Wall and obstacle neighbors contribute zero velocity
// but still count in the denominator, which damps the solution near walls.
// All sweeps run inside this one call with the ping-pong pair; the
// orchestrator sees a single stage.
func (s *Solver) diffuse(dt float32) {
	if s.params.Viscosity < diffusionEpsilon || s.params.DiffusionIterations == 0 {
		return
	}

	g := s.grid
	cells := s.cells
	vel := s.vel
	alpha := g.CellSize * g.CellSize / (s.params.Viscosity * dt)
	invDenom := 1 / (4 + alpha)

	for it := 0; it < s.params.DiffusionIterations; it++ {
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

					mask := cells.Walls[i]
					var sumX, sumY float32
					if mask&field.WallLeft == 0 {
						sumX += vel.X[i-1]
						sumY += vel.Y[i-1]
					}
					if mask&field.WallRight == 0 {
						sumX += vel.X[i+1]
						sumY += vel.Y[i+1]
					}
					if mask&field.WallUp == 0 {
						sumX += vel.X[i-g.W]
						sumY += vel.Y[i-g.W]
					}
					if mask&field.WallDown == 0 {
						sumX += vel.X[i+g.W]
						sumY += vel.Y[i+g.W]
					}

					vel.BackX[i] = (sumX + alpha*vel.X[i]) * invDenom
					vel.BackY[i] = (sumY + alpha*vel.Y[i]) * invDenom
				}
			}
		})
		vel.Swap()
	}
}
