// Package viz draws the solver's fields for debugging. It is only imported
// by the graphical binary; headless runs and tests never touch raylib.
package viz

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flowfield/agents"
	"github.com/pthm-cable/flowfield/field"
	"github.com/pthm-cable/flowfield/solver"
)

// Overlay selects which scalar the heatmap shows.
type Overlay int

const (
	OverlaySpeed Overlay = iota
	OverlayPressure
	OverlayDivergence
	OverlayDensity
	overlayCount
)

// String returns the overlay name for the HUD.
func (o Overlay) String() string {
	switch o {
	case OverlaySpeed:
		return "speed"
	case OverlayPressure:
		return "pressure"
	case OverlayDivergence:
		return "divergence"
	case OverlayDensity:
		return "density"
	}
	return "unknown"
}

const (
	arrowStride = 4 // draw one velocity arrow per this many cells
	panelWidth  = 230
)

// Renderer draws the field state into an open raylib window and owns the
// debug panel. Construct after rl.InitWindow.
type Renderer struct {
	screenW, screenH int32

	overlay    Overlay
	showArrows bool
	showAgents bool
	showPanel  bool

	// Pending slider values, applied to the solver when they settle.
	viscosity     float32
	dissipation   float32
	pressureIters float32

	dragging field.Handle // nonzero while an influence follows the mouse
}

// New creates a renderer for a window of the given size, seeded with the
// solver's current coefficients.
func New(screenW, screenH int32, s *solver.Solver) *Renderer {
	p := s.Params()
	return &Renderer{
		screenW:       screenW,
		screenH:       screenH,
		showArrows:    true,
		showAgents:    true,
		viscosity:     p.Viscosity,
		dissipation:   p.Dissipation,
		pressureIters: float32(p.PressureIterations),
	}
}

// HandleInput processes overlay hotkeys and mouse influence dragging.
// Call once per frame before Draw.
func (r *Renderer) HandleInput(s *solver.Solver) {
	switch {
	case rl.IsKeyPressed(rl.KeyTab):
		r.overlay = (r.overlay + 1) % overlayCount
	case rl.IsKeyPressed(rl.KeyA):
		r.showArrows = !r.showArrows
	case rl.IsKeyPressed(rl.KeyG):
		r.showAgents = !r.showAgents
	case rl.IsKeyPressed(rl.KeyP):
		r.showPanel = !r.showPanel
	}

	mouse := rl.GetMousePosition()
	if r.showPanel && mouse.X >= float32(r.screenW-panelWidth) {
		return // panel owns the mouse
	}
	wx, wy := r.screenToWorld(s.Grid(), mouse.X, mouse.Y)

	switch {
	case rl.IsMouseButtonPressed(rl.MouseLeftButton):
		r.dragging = r.nearestInfluence(s, wx, wy)
	case rl.IsMouseButtonDown(rl.MouseLeftButton) && r.dragging != 0:
		// Ignore the error: the influence may have been removed mid-drag.
		_ = s.MoveInfluence(r.dragging, wx, wy)
	case rl.IsMouseButtonReleased(rl.MouseLeftButton):
		r.dragging = 0
	case rl.IsMouseButtonPressed(rl.MouseRightButton):
		kind := field.InfluenceSink
		if rl.IsKeyDown(rl.KeyLeftShift) {
			kind = field.InfluenceSource
		}
		_, _ = s.AddInfluence(wx, wy, kind, s.Params().MaxInfluenceStrength)
	}
}

// Draw renders the heatmap, overlays, and panel. Call between
// rl.BeginDrawing and rl.EndDrawing. swarm may be nil.
func (r *Renderer) Draw(s *solver.Solver, swarm *agents.Swarm) {
	g := s.Grid()
	snap := s.Snapshot()
	if snap == nil {
		return
	}

	cw := float32(r.screenW) / float32(g.W)
	ch := float32(r.screenH) / float32(g.H)

	r.drawHeatmap(s, snap, cw, ch)
	if r.showArrows {
		r.drawArrows(g, snap, cw, ch)
	}
	r.drawInfluences(s, g, cw, ch)
	if r.showAgents && swarm != nil {
		r.drawAgents(g, swarm, cw, ch)
	}
	r.drawHUD(s)
	if r.showPanel {
		r.drawPanel(s)
	}
}

// drawHeatmap colors every cell by the selected overlay value. Obstacles
// render dark gray regardless of overlay.
func (r *Renderer) drawHeatmap(s *solver.Solver, snap *field.FieldSnapshot, cw, ch float32) {
	g := s.Grid()
	cells := s.Classes()
	values, maxAbs := r.overlayValues(s, snap)

	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			px := int32(float32(x) * cw)
			py := int32(float32(y) * ch)
			w := int32(cw + 1)
			h := int32(ch + 1)

			if cells.Blocked(x, y) {
				rl.DrawRectangle(px, py, w, h, rl.Color{R: 40, G: 40, B: 48, A: 255})
				continue
			}

			v := float32(0)
			if values != nil {
				v = values[g.Index(x, y)]
			}
			rl.DrawRectangle(px, py, w, h, heatColor(v, maxAbs))
		}
	}
}

// overlayValues returns the per-cell scalar for the current overlay and its
// max magnitude for normalization. values may be nil when the overlay's
// stage is disabled.
func (r *Renderer) overlayValues(s *solver.Solver, snap *field.FieldSnapshot) ([]float32, float32) {
	var values []float32
	switch r.overlay {
	case OverlaySpeed:
		n := len(snap.VX)
		values = make([]float32, n)
		for i := 0; i < n; i++ {
			values[i] = float32(math.Hypot(float64(snap.VX[i]), float64(snap.VY[i])))
		}
	case OverlayPressure:
		values = s.Pressure()
	case OverlayDivergence:
		values = s.Divergence()
	case OverlayDensity:
		values = s.Density()
	}

	var maxAbs float32
	for _, v := range values {
		a := v
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}
	return values, maxAbs
}

// heatColor maps a signed value to blue (negative) through black to orange
// (positive), normalized by maxAbs.
func heatColor(v, maxAbs float32) rl.Color {
	if maxAbs < 1e-9 {
		return rl.Color{R: 12, G: 12, B: 16, A: 255}
	}
	t := v / maxAbs
	if t > 1 {
		t = 1
	}
	if t < -1 {
		t = -1
	}
	if t >= 0 {
		return rl.Color{
			R: uint8(12 + t*230),
			G: uint8(12 + t*120),
			B: 16,
			A: 255,
		}
	}
	t = -t
	return rl.Color{
		R: 12,
		G: uint8(12 + t*90),
		B: uint8(16 + t*220),
		A: 255,
	}
}

// drawArrows draws one velocity arrow per arrowStride cells.
func (r *Renderer) drawArrows(g field.Grid, snap *field.FieldSnapshot, cw, ch float32) {
	scale := cw * float32(arrowStride) * 0.45
	for y := arrowStride / 2; y < g.H; y += arrowStride {
		for x := arrowStride / 2; x < g.W; x += arrowStride {
			vx, vy := snap.At(x, y)
			mag := float32(math.Hypot(float64(vx), float64(vy)))
			if mag < 1e-5 {
				continue
			}
			cx := (float32(x) + 0.5) * cw
			cy := (float32(y) + 0.5) * ch
			ex := cx + vx/mag*scale
			ey := cy + vy/mag*scale
			rl.DrawLineEx(
				rl.Vector2{X: cx, Y: cy},
				rl.Vector2{X: ex, Y: ey},
				1.5,
				rl.Color{R: 220, G: 220, B: 230, A: 160},
			)
			rl.DrawCircle(int32(ex), int32(ey), 1.8, rl.Color{R: 220, G: 220, B: 230, A: 200})
		}
	}
}

// drawInfluences marks sources green and sinks blue; inactive influences
// render hollow.
func (r *Renderer) drawInfluences(s *solver.Solver, g field.Grid, cw, ch float32) {
	s.EachInfluence(func(_ field.Handle, in field.Influence) {
		sx, sy := r.worldToScreen(g, in.X, in.Y)
		color := rl.Color{R: 70, G: 200, B: 255, A: 255}
		if in.Kind == field.InfluenceSource {
			color = rl.Color{R: 90, G: 230, B: 90, A: 255}
		}
		radius := cw * 0.8
		if in.Active {
			rl.DrawCircle(int32(sx), int32(sy), radius, color)
		} else {
			rl.DrawCircleLines(int32(sx), int32(sy), radius, color)
		}
	})
}

func (r *Renderer) drawAgents(g field.Grid, swarm *agents.Swarm, cw, ch float32) {
	swarm.Each(func(pos agents.Position, _ agents.Velocity) {
		sx, sy := r.worldToScreen(g, pos.X, pos.Y)
		rl.DrawCircle(int32(sx), int32(sy), 2, rl.Color{R: 255, G: 240, B: 180, A: 220})
	})
}

func (r *Renderer) drawHUD(s *solver.Solver) {
	text := fmt.Sprintf("tick %d | overlay: %s [TAB] | arrows [A] agents [G] panel [P]",
		s.Tick(), r.overlay)
	rl.DrawText(text, 8, 8, 16, rl.RayWhite)
	rl.DrawText("drag influence: LMB | add sink: RMB | add source: Shift+RMB",
		8, 28, 14, rl.Color{R: 200, G: 200, B: 200, A: 255})
}

// drawPanel renders the coefficient sliders and pushes changed values into
// the solver.
func (r *Renderer) drawPanel(s *solver.Solver) {
	px := float32(r.screenW - panelWidth)
	py := float32(10)
	sliderW := float32(panelWidth - 70)

	rl.DrawRectangle(int32(px)-10, 0, panelWidth+10, r.screenH, rl.Color{R: 20, G: 20, B: 24, A: 235})
	rl.DrawText("Solver", int32(px), int32(py), 20, rl.RayWhite)
	py += 32

	rl.DrawText("Viscosity", int32(px), int32(py), 14, rl.Gray)
	py += 18
	newVisc := gui.SliderBar(
		rl.Rectangle{X: px, Y: py, Width: sliderW, Height: 20},
		"0", "0.01",
		r.viscosity, 0, 0.01,
	)
	rl.DrawText(fmt.Sprintf("%.4f", r.viscosity), int32(px+sliderW+6), int32(py+2), 14, rl.RayWhite)
	py += 32

	rl.DrawText("Dissipation", int32(px), int32(py), 14, rl.Gray)
	py += 18
	newDiss := gui.SliderBar(
		rl.Rectangle{X: px, Y: py, Width: sliderW, Height: 20},
		"0.85", "1.0",
		r.dissipation, 0.85, 1.0,
	)
	rl.DrawText(fmt.Sprintf("%.3f", r.dissipation), int32(px+sliderW+6), int32(py+2), 14, rl.RayWhite)
	py += 32

	rl.DrawText("Pressure iterations", int32(px), int32(py), 14, rl.Gray)
	py += 18
	newIters := gui.SliderBar(
		rl.Rectangle{X: px, Y: py, Width: sliderW, Height: 20},
		"5", "60",
		r.pressureIters, 5, 60,
	)
	rl.DrawText(fmt.Sprintf("%d", int(r.pressureIters)), int32(px+sliderW+6), int32(py+2), 14, rl.RayWhite)
	py += 40

	if newVisc != r.viscosity || newDiss != r.dissipation || int(newIters) != int(r.pressureIters) {
		r.viscosity = newVisc
		r.dissipation = newDiss
		r.pressureIters = newIters
		p := s.Params()
		// Slider floors: dissipation of exactly 0 or iterations of 0 would
		// fail validation, so keep the solver's current value as fallback.
		if err := s.SetCoefficients(newVisc, newDiss, p.DiffusionIterations, int(newIters)); err != nil {
			r.viscosity = p.Viscosity
			r.dissipation = p.Dissipation
			r.pressureIters = float32(p.PressureIterations)
		}
	}

	if gui.Button(rl.Rectangle{X: px, Y: py, Width: sliderW, Height: 26}, "Reset fields") {
		_ = s.ResetFields()
	}
}

// nearestInfluence returns the influence within one cell of the world
// position, or zero.
func (r *Renderer) nearestInfluence(s *solver.Solver, wx, wy float32) field.Handle {
	g := s.Grid()
	maxDistSq := g.CellSize * g.CellSize * 4
	var best field.Handle
	bestDistSq := maxDistSq
	s.EachInfluence(func(h field.Handle, in field.Influence) {
		dx := in.X - wx
		dy := in.Y - wy
		if d := dx*dx + dy*dy; d < bestDistSq {
			bestDistSq = d
			best = h
		}
	})
	return best
}

func (r *Renderer) screenToWorld(g field.Grid, sx, sy float32) (float32, float32) {
	wx := g.OriginX + sx/float32(r.screenW)*g.WorldW()
	wy := g.OriginY + sy/float32(r.screenH)*g.WorldH()
	return wx, wy
}

func (r *Renderer) worldToScreen(g field.Grid, wx, wy float32) (float32, float32) {
	sx := (wx - g.OriginX) / g.WorldW() * float32(r.screenW)
	sy := (wy - g.OriginY) / g.WorldH() * float32(r.screenH)
	return sx, sy
}
