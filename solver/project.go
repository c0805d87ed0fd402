package solver

import "github.com/pthm-cable/flowfield/field"

// computeDivergence fills the divergence buffer from central differences of
// the velocity field. A neighbor across a wall face is replaced by the
// reflection of the center's own component on that axis, the discrete
// no-penetration condition. Obstacle cells have zero divergence.
//
// Note the wall handling differs from diffusion on purpose: diffusion damps
// toward zero at walls, projection forbids flow through them.
func (s *Solver) computeDivergence() {
	g := s.grid
	cells := s.cells
	vel := s.vel
	div := s.divergence
	halfInv := 0.5 * g.InvCellSize

	s.pool.forEachRow(g.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * g.W
			for x := 0; x < g.W; x++ {
				i := row + x
				if cells.Class[i] == field.Obstacle {
					div[i] = 0
					continue
				}

				mask := cells.Walls[i]

				vxL := -vel.X[i]
				if mask&field.WallLeft == 0 {
					vxL = vel.X[i-1]
				}
				vxR := -vel.X[i]
				if mask&field.WallRight == 0 {
					vxR = vel.X[i+1]
				}
				vyU := -vel.Y[i]
				if mask&field.WallUp == 0 {
					vyU = vel.Y[i-g.W]
				}
				vyD := -vel.Y[i]
				if mask&field.WallDown == 0 {
					vyD = vel.Y[i+g.W]
				}

				div[i] = halfInv * ((vxR - vxL) + (vyD - vyU))
			}
		}
	})
}

// solvePressure runs the fixed budget of Jacobi iterations on the discrete
// Poisson equation. Each cell averages its open neighbors' pressure minus
// its divergence, divided by the open neighbor count; walled-off cells with
// no open neighbor read zero. The previous tick's pressure is the seed,
// which is the only continuity pressure has across ticks. The iteration
// count is a real-time budget, not a convergence test.
func (s *Solver) solvePressure() {
	g := s.grid
	cells := s.cells
	p := s.pressure
	div := s.divergence

	for it := 0; it < s.params.PressureIterations; it++ {
		s.pool.forEachRow(g.H, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				row := y * g.W
				for x := 0; x < g.W; x++ {
					i := row + x
					if cells.Class[i] == field.Obstacle {
						p.Back[i] = 0
						continue
					}

					mask := cells.Walls[i]
					var sum float32
					var count float32
					if mask&field.WallLeft == 0 {
						sum += p.Data[i-1]
						count++
					}
					if mask&field.WallRight == 0 {
						sum += p.Data[i+1]
						count++
					}
					if mask&field.WallUp == 0 {
						sum += p.Data[i-g.W]
						count++
					}
					if mask&field.WallDown == 0 {
						sum += p.Data[i+g.W]
						count++
					}

					if count == 0 {
						p.Back[i] = 0
						continue
					}
					p.Back[i] = (sum - div[i]) / count
				}
			}
		})
		p.Swap()
	}
}

// project subtracts the pressure gradient from the velocity, leaving the
// field approximately divergence-free. A gradient across a wall face uses
// the center's own pressure in place of the missing neighbor. Velocity
// magnitude is clamped afterward.
func (s *Solver) project() {
	g := s.grid
	cells := s.cells
	vel := s.vel
	p := s.pressure
	scale := s.params.PressureCoefficient * 0.5 * g.InvCellSize
	maxVel := s.params.MaxVelocity

	s.pool.forEachRow(g.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * g.W
			for x := 0; x < g.W; x++ {
				i := row + x
				if cells.Class[i] == field.Obstacle {
					vel.X[i] = 0
					vel.Y[i] = 0
					continue
				}

				mask := cells.Walls[i]
				center := p.Data[i]

				pL := center
				if mask&field.WallLeft == 0 {
					pL = p.Data[i-1]
				}
				pR := center
				if mask&field.WallRight == 0 {
					pR = p.Data[i+1]
				}
				pU := center
				if mask&field.WallUp == 0 {
					pU = p.Data[i-g.W]
				}
				pD := center
				if mask&field.WallDown == 0 {
					pD = p.Data[i+g.W]
				}

				vx := vel.X[i] - scale*(pR-pL)
				vy := vel.Y[i] - scale*(pD-pU)
				vel.X[i], vel.Y[i] = clampMagnitude(vx, vy, maxVel)
			}
		}
	})
}
