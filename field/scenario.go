package field

import "fmt"

// Built-in scenario names accepted by BuildScenario.
const (
	ScenarioOpen     = "open"
	ScenarioRingSink = "ring-sink"
	ScenarioCorridor = "corridor"
	ScenarioRooms    = "rooms"
)

// ScenarioInfluence places a scripted influence in normalized field
// coordinates: (0,0) is the world minimum corner, (1,1) the maximum.
// Strength is normalized to [0,1]; callers scale by their strength ceiling.
type ScenarioInfluence struct {
	Kind     InfluenceKind
	FX, FY   float32
	Strength float32
}

// Scenario bundles a built-in obstacle layout with its scripted influences.
// Sources and sinks are delivered through the influence registry rather than
// baked into the base layout, so demos and tuning runs exercise the same
// rasterization path as live callers.
type Scenario struct {
	Name       string
	Layout     *Layout
	Influences []ScenarioInfluence
}

// scenarioMinDim is the smallest grid a built-in layout fits on. Below this
// the corridor and room walls would collapse into their own door gaps.
const scenarioMinDim = 8

// BuildScenario constructs one of the built-in test layouts at the given
// grid dimensions.
func BuildScenario(name string, w, h int) (*Scenario, error) {
	if w < scenarioMinDim || h < scenarioMinDim {
		return nil, fmt.Errorf("scenario %q needs a grid of at least %dx%d, got %dx%d",
			name, scenarioMinDim, scenarioMinDim, w, h)
	}

	switch name {
	case ScenarioOpen:
		return &Scenario{
			Name:   name,
			Layout: emptyLayout(w, h),
			Influences: []ScenarioInfluence{
				{Kind: InfluenceSink, FX: 0.5, FY: 0.5, Strength: 1},
			},
		}, nil

	case ScenarioRingSink:
		l := emptyLayout(w, h)
		stampBorder(l)
		return &Scenario{
			Name:   name,
			Layout: l,
			Influences: []ScenarioInfluence{
				{Kind: InfluenceSink, FX: 0.5, FY: 0.5, Strength: 1},
			},
		}, nil

	case ScenarioCorridor:
		l := emptyLayout(w, h)
		stampBorder(l)
		// Two staggered walls force an S-shaped route from left to right.
		// Each wall leaves a door at the opposite end from the other.
		gap := maxInt(2, h/5)
		wallA := w / 3
		wallB := 2 * w / 3
		stampVWall(l, wallA, 1, h-1-gap)
		stampVWall(l, wallB, gap, h-1)
		return &Scenario{
			Name:   name,
			Layout: l,
			Influences: []ScenarioInfluence{
				{Kind: InfluenceSource, FX: 0.1, FY: 0.5, Strength: 0.8},
				{Kind: InfluenceSink, FX: 0.9, FY: 0.5, Strength: 1},
			},
		}, nil

	case ScenarioRooms:
		l := emptyLayout(w, h)
		stampBorder(l)
		// Cross walls split the field into four rooms, each wall segment
		// with a centered door.
		door := maxInt(2, minInt(w, h)/8)
		cx, cy := w/2, h/2
		stampVWall(l, cx, 1, (cy-door/2)-1)
		stampVWall(l, cx, cy+door/2+1, h-1)
		stampHWall(l, cy, 1, (cx-door/2)-1)
		stampHWall(l, cy, cx+door/2+1, w-1)
		return &Scenario{
			Name:   name,
			Layout: l,
			Influences: []ScenarioInfluence{
				{Kind: InfluenceSource, FX: 0.22, FY: 0.22, Strength: 0.8},
				{Kind: InfluenceSink, FX: 0.78, FY: 0.78, Strength: 1},
			},
		}, nil
	}

	return nil, fmt.Errorf("unknown scenario %q (have %s, %s, %s, %s)",
		name, ScenarioOpen, ScenarioRingSink, ScenarioCorridor, ScenarioRooms)
}

func emptyLayout(w, h int) *Layout {
	return &Layout{
		W:        w,
		H:        h,
		Class:    make([]CellClass, w*h),
		Strength: make([]float32, w*h),
	}
}

// stampBorder marks the outermost ring of cells as Obstacle.
func stampBorder(l *Layout) {
	for x := 0; x < l.W; x++ {
		l.Class[x] = Obstacle
		l.Class[(l.H-1)*l.W+x] = Obstacle
	}
	for y := 0; y < l.H; y++ {
		l.Class[y*l.W] = Obstacle
		l.Class[y*l.W+l.W-1] = Obstacle
	}
}

// stampVWall marks column x as Obstacle over rows [y0, y1).
func stampVWall(l *Layout, x, y0, y1 int) {
	for y := y0; y < y1; y++ {
		if y >= 0 && y < l.H {
			l.Class[y*l.W+x] = Obstacle
		}
	}
}

// stampHWall marks row y as Obstacle over columns [x0, x1).
func stampHWall(l *Layout, y, x0, x1 int) {
	for x := x0; x < x1; x++ {
		if x >= 0 && x < l.W {
			l.Class[y*l.W+x] = Obstacle
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
