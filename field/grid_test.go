package field

import "testing"

func TestNewGridValidation(t *testing.T) {
	if _, err := NewGrid(0, 10, 1, 0, 0); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := NewGrid(10, -1, 1, 0, 0); err == nil {
		t.Error("expected error for negative height")
	}
	if _, err := NewGrid(10, 10, 0, 0, 0); err == nil {
		t.Error("expected error for zero cell size")
	}
	g, err := NewGrid(16, 8, 4, 0, 0)
	if err != nil {
		t.Fatalf("valid grid rejected: %v", err)
	}
	if g.Cells() != 128 {
		t.Errorf("expected 128 cells, got %d", g.Cells())
	}
	if g.InvCellSize != 0.25 {
		t.Errorf("expected inverse cell size 0.25, got %f", g.InvCellSize)
	}
}

func TestGridIndexing(t *testing.T) {
	g, _ := NewGrid(10, 6, 2, 0, 0)

	if i := g.Index(3, 2); i != 23 {
		t.Errorf("expected index 23 for (3,2), got %d", i)
	}
	if !g.InBounds(0, 0) || !g.InBounds(9, 5) {
		t.Error("expected corners in bounds")
	}
	if g.InBounds(-1, 0) || g.InBounds(10, 0) || g.InBounds(0, 6) {
		t.Error("expected out-of-range coordinates to be out of bounds")
	}

	x, y := g.ClampCell(-3, 99)
	if x != 0 || y != 5 {
		t.Errorf("expected clamp to (0,5), got (%d,%d)", x, y)
	}
}

func TestGridWorldMapping(t *testing.T) {
	g, _ := NewGrid(8, 8, 4, 100, 200)

	if g.WorldW() != 32 || g.WorldH() != 32 {
		t.Errorf("expected world 32x32, got %.0fx%.0f", g.WorldW(), g.WorldH())
	}

	cx, cy := g.Center()
	if cx != 116 || cy != 216 {
		t.Errorf("expected center (116,216), got (%.0f,%.0f)", cx, cy)
	}

	// Cell (2,3) spans world x [108,112), y [212,216)
	gx, gy := g.WorldToGrid(109, 213)
	if gx != 2 || gy != 3 {
		t.Errorf("expected cell (2,3), got (%d,%d)", gx, gy)
	}

	wx, wy := g.CellCenter(2, 3)
	if wx != 110 || wy != 214 {
		t.Errorf("expected cell center (110,214), got (%.0f,%.0f)", wx, wy)
	}

	// Round trip: every cell center maps back to its own cell
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			ccx, ccy := g.CellCenter(x, y)
			rx, ry := g.WorldToGrid(ccx, ccy)
			if rx != x || ry != y {
				t.Fatalf("cell (%d,%d) center mapped back to (%d,%d)", x, y, rx, ry)
			}
		}
	}
}

func TestGridCellSpace(t *testing.T) {
	g, _ := NewGrid(8, 8, 4, 0, 0)

	// The center of cell (0,0) is world (2,2), which is cell-space (0,0)
	u, v := g.ToCellSpace(2, 2)
	if u != 0 || v != 0 {
		t.Errorf("expected cell space (0,0), got (%f,%f)", u, v)
	}

	// Halfway between centers of cell 0 and cell 1
	u, _ = g.ToCellSpace(4, 2)
	if u != 0.5 {
		t.Errorf("expected u=0.5, got %f", u)
	}

	// Positions outside the field clamp onto the edge cells
	u, v = g.ClampCellSpace(-3, 99)
	if u != 0 || v != 7 {
		t.Errorf("expected clamp to (0,7), got (%f,%f)", u, v)
	}
}
