package solver

import (
	"math"

	"github.com/pthm-cable/flowfield/field"
)

// Integration mode computes steering without running the fluid pipeline.
// A cost field marks how expensive each cell is to cross, sink cells seed
// a Dijkstra-style sweep that fills the integration field with the cheapest
// travel cost to any sink, and a final pass points every open cell downhill.
// The result only depends on the cell layout, so a rebuild happens when the
// layout or an influence changes and the field is served as-is in between.

const (
	unreachableCost = float32(math.MaxFloat32)
	diagonalCost    = 1.41421356
	invSqrt2        = 0.70710678

	// Crossing a source cell costs extra in proportion to its strength,
	// so paths bend around emitters instead of cutting through them.
	sourceCostFactor = 4.0
)

// neighborOffsets lists the 8-connected neighborhood, cardinals first.
var neighborOffsets = [8]struct{ dx, dy int }{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// integrationState holds the scratch buffers for integration mode.
// Allocated once and reused across rebuilds.
type integrationState struct {
	cost    []float32
	integ   []float32
	queue   []int32
	inQueue []bool
}

func newIntegrationState(cells int) *integrationState {
	return &integrationState{
		cost:    make([]float32, cells),
		integ:   make([]float32, cells),
		queue:   make([]int32, 0, cells/4),
		inQueue: make([]bool, cells),
	}
}

// rebuildIntegration recomputes the cost, integration, and flow fields from
// the current cell classification. Flow vectors land in the velocity buffers
// directly so sampling works identically in both modes.
func (s *Solver) rebuildIntegration() {
	st := s.integ
	cells := s.cells
	n := s.grid.Cells()

	seeds := st.queue[:0]
	for i := 0; i < n; i++ {
		st.integ[i] = unreachableCost
		st.inQueue[i] = false
		switch cells.Class[i] {
		case field.Obstacle:
			st.cost[i] = unreachableCost
		case field.Source:
			st.cost[i] = 1 + sourceCostFactor*cells.Strength[i]
		case field.Sink:
			st.cost[i] = 1
			st.integ[i] = 0
			st.inQueue[i] = true
			seeds = append(seeds, int32(i))
		default:
			st.cost[i] = 1
		}
	}
	st.queue = seeds

	s.propagateIntegration()
	s.generateFlow()
}

// propagateIntegration floods travel costs outward from the seeded sinks.
// Cells re-enter the queue when a cheaper route reaches them, so the result
// matches Dijkstra for the strictly positive costs used here.
func (s *Solver) propagateIntegration() {
	st := s.integ
	cells := s.cells
	w, h := s.grid.W, s.grid.H

	q := st.queue
	for head := 0; head < len(q); head++ {
		idx := int(q[head])
		st.inQueue[idx] = false
		x := idx % w
		y := idx / w
		base := st.integ[idx]

		for _, n := range neighborOffsets {
			nx, ny := x+n.dx, y+n.dy
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if cells.Class[ni] == field.Obstacle {
				continue
			}
			// Diagonal steps may not cut a blocked corner.
			if n.dx != 0 && n.dy != 0 {
				if cells.Blocked(x+n.dx, y) || cells.Blocked(x, y+n.dy) {
					continue
				}
			}
			step := st.cost[ni]
			if n.dx != 0 && n.dy != 0 {
				step *= diagonalCost
			}
			next := base + step
			if next < st.integ[ni] {
				st.integ[ni] = next
				if !st.inQueue[ni] {
					st.inQueue[ni] = true
					q = append(q, int32(ni))
				}
			}
		}
	}
	st.queue = q[:0]
}

// generateFlow points every open cell at its cheapest reachable neighbor.
// Sinks and unreachable pockets keep zero flow; the sampler fallback chain
// covers agents standing on them.
func (s *Solver) generateFlow() {
	st := s.integ
	cells := s.cells
	vel := s.vel
	w, h := s.grid.W, s.grid.H
	maxVel := s.params.MaxVelocity

	s.pool.forEachRow(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * w
			for x := 0; x < w; x++ {
				i := row + x
				if cells.Class[i] == field.Obstacle {
					vel.X[i], vel.Y[i] = 0, 0
					continue
				}
				own := st.integ[i]
				if own == unreachableCost || own == 0 {
					vel.X[i], vel.Y[i] = 0, 0
					continue
				}

				bestDx, bestDy := 0, 0
				best := own
				for _, n := range neighborOffsets {
					nx, ny := x+n.dx, y+n.dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					if n.dx != 0 && n.dy != 0 {
						if cells.Blocked(x+n.dx, y) || cells.Blocked(x, y+n.dy) {
							continue
						}
					}
					v := st.integ[ny*w+nx]
					if v < best {
						best = v
						bestDx, bestDy = n.dx, n.dy
					}
				}
				if bestDx == 0 && bestDy == 0 {
					vel.X[i], vel.Y[i] = 0, 0
					continue
				}

				fx, fy := float32(bestDx), float32(bestDy)
				if bestDx != 0 && bestDy != 0 {
					fx *= invSqrt2
					fy *= invSqrt2
				}
				vel.X[i] = fx * maxVel
				vel.Y[i] = fy * maxVel
			}
		}
	})
}
