package solver

import "github.com/pthm-cable/flowfield/field"

// solveGlobalPressure runs the long-range propagation that lets sources and
// sinks reach beyond the local Jacobi relaxation radius. Source and sink
// cells are pinned to plus and minus their strength every pass; everything
// else averages its open neighbors. The field persists across ticks, so a
// modest per-tick budget keeps extending the influence front instead of
// restarting from scratch.
func (s *Solver) solveGlobalPressure() {
	g := s.grid
	cells := s.cells
	gp := s.globalPressure

	for it := 0; it < s.params.GlobalPressureIterations; it++ {
		s.pool.forEachRow(g.H, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				row := y * g.W
				for x := 0; x < g.W; x++ {
					i := row + x
					switch cells.Class[i] {
					case field.Obstacle:
						gp.Back[i] = 0
						continue
					case field.Source:
						gp.Back[i] = cells.Strength[i]
						continue
					case field.Sink:
						gp.Back[i] = -cells.Strength[i]
						continue
					}

					mask := cells.Walls[i]
					var sum float32
					var count float32
					if mask&field.WallLeft == 0 {
						sum += gp.Data[i-1]
						count++
					}
					if mask&field.WallRight == 0 {
						sum += gp.Data[i+1]
						count++
					}
					if mask&field.WallUp == 0 {
						sum += gp.Data[i-g.W]
						count++
					}
					if mask&field.WallDown == 0 {
						sum += gp.Data[i+g.W]
						count++
					}

					if count == 0 {
						gp.Back[i] = 0
						continue
					}
					gp.Back[i] = sum / count
				}
			}
		})
		gp.Swap()
	}
}

// addGlobalPressure folds the propagated field into the local pressure
// before gradient subtraction. Sources read as high pressure pushing flow
// away, sinks as low pressure drawing it in.
func (s *Solver) addGlobalPressure() {
	strength := s.params.GlobalPressureStrength
	p := s.pressure
	gp := s.globalPressure

	s.pool.forEachRow(s.grid.H, func(y0, y1 int) {
		start := y0 * s.grid.W
		end := y1 * s.grid.W
		for i := start; i < end; i++ {
			p.Data[i] += strength * gp.Data[i]
		}
	})
}
