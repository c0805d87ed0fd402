package solver

import "github.com/pthm-cable/flowfield/field"

// enforceBoundaries hard-zeros obstacle cells and clamps wall-normal
// components that point into an adjacent wall. The clamp is one-sided:
// flow along a wall or away from it is untouched.
func (s *Solver) enforceBoundaries() {
	g := s.grid
	cells := s.cells
	vel := s.vel

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
				if mask == 0 {
					continue
				}
				if mask&field.WallLeft != 0 && vel.X[i] < 0 {
					vel.X[i] = 0
				}
				if mask&field.WallRight != 0 && vel.X[i] > 0 {
					vel.X[i] = 0
				}
				if mask&field.WallUp != 0 && vel.Y[i] < 0 {
					vel.Y[i] = 0
				}
				if mask&field.WallDown != 0 && vel.Y[i] > 0 {
					vel.Y[i] = 0
				}
			}
		}
	})
}
