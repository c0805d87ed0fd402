package field

import (
	"fmt"
	"image"
	"io"
	"os"

	_ "image/png"
)

// Layout is a classification decoded from a bitmap, one pixel per cell.
type Layout struct {
	W, H     int
	Class    []CellClass
	Strength []float32 // [0,1], nonzero only at Source and Sink cells
}

// Pixel classification thresholds. A channel must beat both others by
// dominanceMargin to classify; anything murkier reads as Obstacle so that
// badly painted cells block rather than steer.
const (
	alphaOpaque     = 128 // below this the pixel is transparent, so Fluid
	darkCutoff      = 64  // all channels below this is dark, so Fluid
	dominanceMargin = 64
)

// LoadLayout reads and decodes a layout bitmap from disk.
func LoadLayout(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening layout bitmap: %w", err)
	}
	defer f.Close()

	layout, err := DecodeLayout(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return layout, nil
}

// DecodeLayout converts an image into a cell classification. Red pixels are
// obstacles, green are sources, blue are sinks with the dominant channel's
// intensity as strength. Transparent or dark pixels are fluid. Image row 0
// maps to grid row 0 (top of the world).
func DecodeLayout(r io.Reader) (*Layout, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", w, h)
	}

	layout := &Layout{
		W:        w,
		H:        h,
		Class:    make([]CellClass, w*h),
		Strength: make([]float32, w*h),
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r16, g16, b16, a16 := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			class, strength := classifyPixel(uint8(r16>>8), uint8(g16>>8), uint8(b16>>8), uint8(a16>>8))
			i := y*w + x
			layout.Class[i] = class
			layout.Strength[i] = strength
		}
	}
	return layout, nil
}

// classifyPixel maps one RGBA pixel to a cell class and strength.
func classifyPixel(r, g, b, a uint8) (CellClass, float32) {
	if a < alphaOpaque {
		return Fluid, 0
	}
	if r < darkCutoff && g < darkCutoff && b < darkCutoff {
		return Fluid, 0
	}

	ri, gi, bi := int(r), int(g), int(b)
	switch {
	case ri-gi >= dominanceMargin && ri-bi >= dominanceMargin:
		return Obstacle, 0
	case gi-ri >= dominanceMargin && gi-bi >= dominanceMargin:
		return Source, float32(g) / 255
	case bi-ri >= dominanceMargin && bi-gi >= dominanceMargin:
		return Sink, float32(b) / 255
	}
	return Obstacle, 0
}
