package marker

import "manual-markers/pkg/geometry"

// BoxState is the state of the rectangle/ellipse tool.
type BoxState int

const (
	BoxIdle BoxState = iota
	BoxDrawing
	BoxDrawn
)

// BoxTool collects a drag gesture into an axis-aligned rect.
type BoxTool struct {
	state  BoxState
	anchor geometry.Point2D
	box    geometry.Rect
}

// State returns the current tool state.
func (t *BoxTool) State() BoxState { return t.state }

// PointerDown anchors a new rect, discarding any previous candidate.
func (t *BoxTool) PointerDown(p geometry.Point2D) {
	t.state = BoxDrawing
	t.anchor = p
	t.box = geometry.Rect{X: p.X, Y: p.Y}
}

// PointerMove stretches the rect while drawing. Reports whether the
// overlay needs a redraw.
func (t *BoxTool) PointerMove(p geometry.Point2D) bool {
	if t.state != BoxDrawing {
		return false
	}
	t.box = geometry.RectFromCorners(t.anchor, p)
	return true
}

// PointerUp commits the rect.
func (t *BoxTool) PointerUp(p geometry.Point2D) bool {
	if t.state != BoxDrawing {
		return false
	}
	t.box = geometry.RectFromCorners(t.anchor, p)
	t.state = BoxDrawn
	return true
}

// Box returns the rect being drawn or committed.
func (t *BoxTool) Box() (geometry.Rect, bool) {
	return t.box, t.state != BoxIdle
}

// Committed returns the candidate rect. A click without drag has no area
// and is not a candidate.
func (t *BoxTool) Committed() (geometry.Rect, bool) {
	if t.state != BoxDrawn || t.box.Empty() {
		return geometry.Rect{}, false
	}
	return t.box, true
}

// Load puts an existing rect into the Drawn state.
func (t *BoxTool) Load(r geometry.Rect) {
	t.state = BoxDrawn
	t.anchor = r.TopLeft()
	t.box = r
}

// Rescale moves the gesture onto a surface resized by sx, sy.
func (t *BoxTool) Rescale(sx, sy float64) {
	t.anchor = t.anchor.ScaleXY(sx, sy)
	t.box = t.box.ScaleXY(sx, sy)
}

// Reset returns the tool to Idle.
func (t *BoxTool) Reset() {
	*t = BoxTool{}
}
