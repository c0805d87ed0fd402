package field

// ScalarField stores one value per cell, double-buffered for Jacobi
// iteration. Same discipline as VectorField: read Data, write Back, Swap.
type ScalarField struct {
	W, H int
	Data []float32
	Back []float32
}

// NewScalarField allocates a zeroed scalar field.
func NewScalarField(w, h int) *ScalarField {
	n := w * h
	return &ScalarField{
		W:    w,
		H:    h,
		Data: make([]float32, n),
		Back: make([]float32, n),
	}
}

// Swap exchanges the front and back buffers.
func (f *ScalarField) Swap() {
	f.Data, f.Back = f.Back, f.Data
}

// Clear zeroes both buffers.
func (f *ScalarField) Clear() {
	for i := range f.Data {
		f.Data[i] = 0
		f.Back[i] = 0
	}
}

// Fill sets every front-buffer cell to v.
func (f *ScalarField) Fill(v float32) {
	for i := range f.Data {
		f.Data[i] = v
	}
}

// SampleMasked bilinearly interpolates the front buffer at continuous cell
// coordinates with obstacle corners masked out, mirroring
// VectorField.SampleMasked.
func (f *ScalarField) SampleMasked(cells *ClassGrid, u, v float32) float32 {
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
		return 0
	}
	return (w00*f.Data[i00] + w10*f.Data[i10] + w01*f.Data[i01] + w11*f.Data[i11]) / total
}
