package marker

import "manual-markers/pkg/geometry"

// DefaultCloseRadius is the pixel distance from the first vertex within
// which a click closes the polygon.
const DefaultCloseRadius = 15.0

// PolygonState is the state of the polygon tool.
type PolygonState int

const (
	PolygonIdle PolygonState = iota
	PolygonCollecting
	PolygonClosed
)

// PolygonTool collects clicks into a closed polygon.
type PolygonTool struct {
	radius    float64
	state     PolygonState
	points    []geometry.Point2D
	cursor    geometry.Point2D
	hasCursor bool
	nearFirst bool
}

// NewPolygonTool creates a tool with the given closing radius; a
// non-positive radius selects DefaultCloseRadius.
func NewPolygonTool(radius float64) *PolygonTool {
	if radius <= 0 {
		radius = DefaultCloseRadius
	}
	return &PolygonTool{radius: radius}
}

func (t *PolygonTool) State() PolygonState { return t.state }

// Points returns a copy of the collected vertices.
func (t *PolygonTool) Points() []geometry.Point2D {
	return append([]geometry.Point2D(nil), t.points...)
}

// NearFirst reports whether the live cursor would close the polygon.
func (t *PolygonTool) NearFirst() bool { return t.nearFirst }

// RubberBand returns the segment from the last vertex to the cursor.
func (t *PolygonTool) RubberBand() (from, to geometry.Point2D, ok bool) {
	if t.state != PolygonCollecting || len(t.points) == 0 || !t.hasCursor {
		return geometry.Point2D{}, geometry.Point2D{}, false
	}
	return t.points[len(t.points)-1], t.cursor, true
}

func (t *PolygonTool) closes(p geometry.Point2D) bool {
	return len(t.points) >= 3 && p.Distance(t.points[0]) < t.radius
}

// PointerDown appends a vertex, closes the polygon, or after a close
// starts a new one at p.
func (t *PolygonTool) PointerDown(p geometry.Point2D) {
	switch t.state {
	case PolygonIdle, PolygonClosed:
		t.points = []geometry.Point2D{p}
		t.state = PolygonCollecting
	case PolygonCollecting:
		if t.closes(p) {
			t.state = PolygonClosed
			t.hasCursor = false
			t.nearFirst = false
			return
		}
		t.points = append(t.points, p)
	}
	t.cursor = p
	t.hasCursor = true
	t.nearFirst = false
}

// PointerMove tracks the cursor for the rubber band and close affordance.
func (t *PolygonTool) PointerMove(p geometry.Point2D) bool {
	if t.state != PolygonCollecting || len(t.points) == 0 {
		return false
	}
	t.cursor = p
	t.hasCursor = true
	t.nearFirst = t.closes(p)
	return true
}

// UndoLastPoint reopens a closed polygon and drops its last vertex.
// Returns false when there was nothing to undo.
func (t *PolygonTool) UndoLastPoint() bool {
	if len(t.points) == 0 {
		return false
	}
	t.state = PolygonCollecting
	t.points = t.points[:len(t.points)-1]
	t.nearFirst = false
	if len(t.points) == 0 {
		t.Reset()
	}
	return true
}

// Closed returns the finished polygon.
func (t *PolygonTool) Closed() ([]geometry.Point2D, bool) {
	if t.state != PolygonClosed || len(t.points) < 3 {
		return nil, false
	}
	return t.Points(), true
}

// Load puts an existing polygon into the Closed state.
func (t *PolygonTool) Load(points []geometry.Point2D) {
	t.points = append([]geometry.Point2D(nil), points...)
	t.state = PolygonClosed
	t.hasCursor = false
	t.nearFirst = false
	if len(t.points) < 3 {
		t.state = PolygonCollecting
	}
}

// Rescale moves the vertices and cursor onto a surface resized by sx, sy.
// The closing radius stays in pixels.
func (t *PolygonTool) Rescale(sx, sy float64) {
	for i, p := range t.points {
		t.points[i] = p.ScaleXY(sx, sy)
	}
	t.cursor = t.cursor.ScaleXY(sx, sy)
	if t.state == PolygonCollecting && t.hasCursor {
		t.nearFirst = t.closes(t.cursor)
	}
}

// Reset clears all vertices.
func (t *PolygonTool) Reset() {
	radius := t.radius
	*t = PolygonTool{radius: radius}
}
