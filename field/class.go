package field

import "fmt"

// CellClass labels what occupies a grid cell.
type CellClass uint8

const (
	Fluid CellClass = iota // open cell the field flows through
	Obstacle
	Source
	Sink
)

// String returns the class name for logs and errors.
func (c CellClass) String() string {
	switch c {
	case Fluid:
		return "fluid"
	case Obstacle:
		return "obstacle"
	case Source:
		return "source"
	case Sink:
		return "sink"
	}
	return "unknown"
}

// Wall adjacency bits. A set bit means the neighbor across that face is an
// obstacle or the grid edge.
const (
	WallLeft uint8 = 1 << iota
	WallRight
	WallUp
	WallDown
)

// ClassGrid stores per-cell classification for the solver.
//
// Base holds the static layout, which may include painted Source and Sink
// cells. Class is the composed view the solver reads: base overlaid with
// rasterized point influences. Strength is normalized to [0,1] and
// meaningful at Source and Sink cells. DirX/DirY hold the force direction
// for those cells (outward for sources, inward for sinks). Walls is the
// obstacle adjacency mask, rebuilt only when the base layout changes since
// influences never add obstacles.
type ClassGrid struct {
	Grid     Grid
	Base     []CellClass
	Class    []CellClass
	Strength []float32
	DirX     []float32
	DirY     []float32
	Walls    []uint8

	baseStrength []float32
	baseDirX     []float32
	baseDirY     []float32
}

// NewClassGrid creates an all-Fluid classification over the given grid.
func NewClassGrid(g Grid) *ClassGrid {
	n := g.Cells()
	cg := &ClassGrid{
		Grid:         g,
		Base:         make([]CellClass, n),
		Class:        make([]CellClass, n),
		Strength:     make([]float32, n),
		DirX:         make([]float32, n),
		DirY:         make([]float32, n),
		Walls:        make([]uint8, n),
		baseStrength: make([]float32, n),
		baseDirX:     make([]float32, n),
		baseDirY:     make([]float32, n),
	}
	cg.rebuildWalls()
	return cg
}

// SetBase replaces the static layout. strengths applies to Source and Sink
// cells, normalized to [0,1]; nil means full strength for every painted
// cell. Wall masks and the static force directions are rebuilt here, once,
// rather than every tick. The composed view is reset to the new base.
func (cg *ClassGrid) SetBase(layout []CellClass, strengths []float32) error {
	n := cg.Grid.Cells()
	if len(layout) != n {
		return fmt.Errorf("field: layout has %d cells, grid needs %d", len(layout), n)
	}
	if strengths != nil && len(strengths) != n {
		return fmt.Errorf("field: strengths has %d cells, grid needs %d", len(strengths), n)
	}

	copy(cg.Base, layout)
	for i, c := range cg.Base {
		switch c {
		case Source, Sink:
			if strengths == nil {
				cg.baseStrength[i] = 1
			} else {
				cg.baseStrength[i] = clampFloat(strengths[i], 0, 1)
			}
		default:
			cg.baseStrength[i] = 0
		}
	}
	cg.rebuildBaseDirs()
	cg.rebuildWalls()
	cg.ResetComposed()
	return nil
}

// ResetComposed restores the composed view to the base layout, discarding
// rasterized influence state.
func (cg *ClassGrid) ResetComposed() {
	copy(cg.Class, cg.Base)
	copy(cg.Strength, cg.baseStrength)
	copy(cg.DirX, cg.baseDirX)
	copy(cg.DirY, cg.baseDirY)
}

// At returns the composed class at (x, y). Out-of-bounds coordinates read as
// Obstacle, which closes the region border.
func (cg *ClassGrid) At(x, y int) CellClass {
	if !cg.Grid.InBounds(x, y) {
		return Obstacle
	}
	return cg.Class[cg.Grid.Index(x, y)]
}

// Open reports whether (x, y) is inside the grid and not an obstacle.
func (cg *ClassGrid) Open(x, y int) bool {
	return cg.Grid.InBounds(x, y) && cg.Class[cg.Grid.Index(x, y)] != Obstacle
}

// Blocked reports whether (x, y) is an obstacle or outside the grid.
func (cg *ClassGrid) Blocked(x, y int) bool {
	return !cg.Open(x, y)
}

// rebuildBaseDirs derives a force direction for every painted Source and
// Sink cell: the offset from the centroid of same-class cells in the 3x3
// neighborhood. Region-interior cells see a symmetric neighborhood and get
// a zero direction; boundary cells point out of the region; a lone painted
// cell points at nearby open space. Sinks are negated so they pull inward.
func (cg *ClassGrid) rebuildBaseDirs() {
	w, h := cg.Grid.W, cg.Grid.H
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := cg.Grid.Index(x, y)
			c := cg.Base[i]
			if c != Source && c != Sink {
				cg.baseDirX[i] = 0
				cg.baseDirY[i] = 0
				continue
			}

			var sumX, sumY float32
			count := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					if cg.Base[cg.Grid.Index(nx, ny)] != c {
						continue
					}
					sumX += float32(nx)
					sumY += float32(ny)
					count++
				}
			}

			// count includes the cell itself, so it is never zero
			offX := float32(x) - sumX/float32(count)
			offY := float32(y) - sumY/float32(count)
			dist := magnitude(offX, offY)
			if dist < 1e-5 {
				// Symmetric region interiors keep zero. A lone painted
				// cell has no region to point out of, so aim at open
				// space instead; zero would make its force inject
				// nothing.
				offX, offY = 0, 0
				if count == 1 {
					offX, offY = cg.openSpaceDir(x, y)
					if c == Sink {
						offX, offY = -offX, -offY
					}
				}
				cg.baseDirX[i] = offX
				cg.baseDirY[i] = offY
				continue
			}
			offX /= dist
			offY /= dist
			if c == Sink {
				offX = -offX
				offY = -offY
			}
			cg.baseDirX[i] = offX
			cg.baseDirY[i] = offY
		}
	}
}

// openSpaceDir returns a unit direction from (x, y) toward surrounding
// Fluid cells: the offset to the centroid of Fluid neighbors in the 3x3
// neighborhood, or the first open 4-neighbor when that centroid sits on the
// cell itself. Zero when no fluid neighbor exists.
func (cg *ClassGrid) openSpaceDir(x, y int) (float32, float32) {
	w, h := cg.Grid.W, cg.Grid.H
	var sumX, sumY float32
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			if cg.Base[cg.Grid.Index(nx, ny)] != Fluid {
				continue
			}
			sumX += float32(nx)
			sumY += float32(ny)
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}

	offX := sumX/float32(count) - float32(x)
	offY := sumY/float32(count) - float32(y)
	if dist := magnitude(offX, offY); dist >= 1e-5 {
		return offX / dist, offY / dist
	}
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, ny := x+d[0], y+d[1]
		if cg.Grid.InBounds(nx, ny) && cg.Base[cg.Grid.Index(nx, ny)] == Fluid {
			return float32(d[0]), float32(d[1])
		}
	}
	return 0, 0
}

// rebuildWalls recomputes the per-cell obstacle adjacency bits from the base
// layout. Done once per layout change, not per tick.
func (cg *ClassGrid) rebuildWalls() {
	w, h := cg.Grid.W, cg.Grid.H
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mask uint8
			if x == 0 || cg.Base[cg.Grid.Index(x-1, y)] == Obstacle {
				mask |= WallLeft
			}
			if x == w-1 || cg.Base[cg.Grid.Index(x+1, y)] == Obstacle {
				mask |= WallRight
			}
			if y == 0 || cg.Base[cg.Grid.Index(x, y-1)] == Obstacle {
				mask |= WallUp
			}
			if y == h-1 || cg.Base[cg.Grid.Index(x, y+1)] == Obstacle {
				mask |= WallDown
			}
			cg.Walls[cg.Grid.Index(x, y)] = mask
		}
	}
}

// CountClass returns how many cells currently carry the given composed class.
func (cg *ClassGrid) CountClass(c CellClass) int {
	n := 0
	for _, cc := range cg.Class {
		if cc == c {
			n++
		}
	}
	return n
}
