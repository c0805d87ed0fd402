// Package field holds the grid discretization, cell classification, and
// velocity/scalar storage shared by the solver and its samplers.
package field

import "fmt"

// Grid describes a fixed W x H cell lattice over a world-space rectangle.
// Cells are square and laid out row-major, index = y*W + x. Row 0 is the
// top of the world (screen convention).
type Grid struct {
	W, H        int
	CellSize    float32 // world units per cell
	InvCellSize float32
	OriginX     float32 // world-space minimum corner
	OriginY     float32
}

// NewGrid validates dimensions and returns the grid descriptor.
func NewGrid(w, h int, cellSize, originX, originY float32) (Grid, error) {
	if w <= 0 || h <= 0 {
		return Grid{}, fmt.Errorf("field: grid dimensions must be positive, got %dx%d", w, h)
	}
	if cellSize <= 0 {
		return Grid{}, fmt.Errorf("field: cell size must be positive, got %g", cellSize)
	}
	return Grid{
		W:           w,
		H:           h,
		CellSize:    cellSize,
		InvCellSize: 1 / cellSize,
		OriginX:     originX,
		OriginY:     originY,
	}, nil
}

// Cells returns the total cell count.
func (g Grid) Cells() int {
	return g.W * g.H
}

// Index returns the row-major index of cell (x, y).
func (g Grid) Index(x, y int) int {
	return y*g.W + x
}

// InBounds reports whether (x, y) is a valid cell coordinate.
func (g Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.W && y >= 0 && y < g.H
}

// ClampCell clamps a cell coordinate into the valid range.
func (g Grid) ClampCell(x, y int) (int, int) {
	if x < 0 {
		x = 0
	} else if x >= g.W {
		x = g.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.H {
		y = g.H - 1
	}
	return x, y
}

// WorldW returns the world-space width covered by the grid.
func (g Grid) WorldW() float32 {
	return float32(g.W) * g.CellSize
}

// WorldH returns the world-space height covered by the grid.
func (g Grid) WorldH() float32 {
	return float32(g.H) * g.CellSize
}

// Center returns the world-space center of the grid.
func (g Grid) Center() (float32, float32) {
	return g.OriginX + 0.5*g.WorldW(), g.OriginY + 0.5*g.WorldH()
}

// WorldToGrid converts a world position to the containing cell coordinate.
// The result may be out of bounds; callers clamp when needed.
func (g Grid) WorldToGrid(wx, wy float32) (int, int) {
	gx := int(floorf((wx - g.OriginX) * g.InvCellSize))
	gy := int(floorf((wy - g.OriginY) * g.InvCellSize))
	return gx, gy
}

// CellCenter returns the world position of the center of cell (x, y).
func (g Grid) CellCenter(x, y int) (float32, float32) {
	wx := g.OriginX + (float32(x)+0.5)*g.CellSize
	wy := g.OriginY + (float32(y)+0.5)*g.CellSize
	return wx, wy
}

// ToCellSpace converts a world position to continuous cell coordinates in
// which integer values land on cell centers. Used for bilinear sampling.
func (g Grid) ToCellSpace(wx, wy float32) (float32, float32) {
	u := (wx-g.OriginX)*g.InvCellSize - 0.5
	v := (wy-g.OriginY)*g.InvCellSize - 0.5
	return u, v
}

// ClampCellSpace clamps continuous cell coordinates so that the four
// bilinear corners stay inside the grid.
func (g Grid) ClampCellSpace(u, v float32) (float32, float32) {
	u = clampFloat(u, 0, float32(g.W-1))
	v = clampFloat(v, 0, float32(g.H-1))
	return u, v
}
