package field

// VectorField stores one 2D velocity vector per cell as two row-major
// component arrays, double-buffered. Stages read X/Y, write BackX/BackY,
// then call Swap once at the stage boundary.
type VectorField struct {
	W, H  int
	X, Y  []float32
	BackX []float32
	BackY []float32
}

// NewVectorField allocates a zeroed field of the given dimensions.
func NewVectorField(w, h int) *VectorField {
	n := w * h
	return &VectorField{
		W:     w,
		H:     h,
		X:     make([]float32, n),
		Y:     make([]float32, n),
		BackX: make([]float32, n),
		BackY: make([]float32, n),
	}
}

// Swap exchanges the front and back buffers.
func (f *VectorField) Swap() {
	f.X, f.BackX = f.BackX, f.X
	f.Y, f.BackY = f.BackY, f.Y
}

// Clear zeroes both buffers.
func (f *VectorField) Clear() {
	for i := range f.X {
		f.X[i] = 0
		f.Y[i] = 0
		f.BackX[i] = 0
		f.BackY[i] = 0
	}
}

// CopyFront copies the front buffer into the back buffer. Used by stages
// that only touch a subset of cells before swapping.
func (f *VectorField) CopyFront() {
	copy(f.BackX, f.X)
	copy(f.BackY, f.Y)
}

// SampleMasked bilinearly interpolates the front buffer at continuous cell
// coordinates (u, v), where integers land on cell centers. Corners that are
// obstacle cells contribute zero weight and the rest are renormalized; if
// every corner is an obstacle the sample is zero. Coordinates are clamped
// into the grid.
func (f *VectorField) SampleMasked(cells *ClassGrid, u, v float32) (float32, float32) {
	u, v = cells.Grid.ClampCellSpace(u, v)

	x0 := int(floorf(u))
	y0 := int(floorf(v))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= f.W {
		x1 = f.W - 1
	}
	if y1 >= f.H {
		y1 = f.H - 1
	}
	fx := u - float32(x0)
	fy := v - float32(y0)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	i00 := y0*f.W + x0
	i10 := y0*f.W + x1
	i01 := y1*f.W + x0
	i11 := y1*f.W + x1

	if cells.Class[i00] == Obstacle {
		w00 = 0
	}
	if cells.Class[i10] == Obstacle {
		w10 = 0
	}
	if cells.Class[i01] == Obstacle {
		w01 = 0
	}
	if cells.Class[i11] == Obstacle {
		w11 = 0
	}

	total := w00 + w10 + w01 + w11
	if total < 1e-6 {
		return 0, 0
	}
	inv := 1 / total
	vx := (w00*f.X[i00] + w10*f.X[i10] + w01*f.X[i01] + w11*f.X[i11]) * inv
	vy := (w00*f.Y[i00] + w10*f.Y[i10] + w01*f.Y[i01] + w11*f.Y[i11]) * inv
	return vx, vy
}
