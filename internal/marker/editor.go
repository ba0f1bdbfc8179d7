package marker

import (
	"manual-markers/pkg/geometry"
)

// Editor drives the tool for the selected kind and exposes the saveable
// candidate. Coordinates are overlay pixels.
type Editor struct {
	kind  Kind
	style Style
	box   BoxTool
	poly  *PolygonTool
}

// NewEditor creates an editor for kind with the given closing radius.
func NewEditor(kind Kind, closeRadius float64) *Editor {
	return &Editor{
		kind:  kind,
		style: DefaultStyle(),
		poly:  NewPolygonTool(closeRadius),
	}
}

func (e *Editor) Kind() Kind { return e.kind }

func (e *Editor) Style() Style { return e.style }

func (e *Editor) SetStyle(s Style) { e.style = s }

// Polygon exposes the polygon tool for state inspection.
func (e *Editor) Polygon() *PolygonTool { return e.poly }

// SetKind switches tools and discards any geometry in progress.
func (e *Editor) SetKind(k Kind) {
	if k == e.kind {
		return
	}
	e.kind = k
	e.Reset()
}

// Reset discards all geometry.
func (e *Editor) Reset() {
	e.box.Reset()
	e.poly.Reset()
}

// Rescale keeps the geometry on the same part of the page after the
// surface is resized by sx horizontally and sy vertically, as when the
// page is re-rendered at another zoom.
func (e *Editor) Rescale(sx, sy float64) {
	if sx <= 0 || sy <= 0 {
		return
	}
	e.box.Rescale(sx, sy)
	e.poly.Rescale(sx, sy)
}

// Load seeds the editor with an existing marker for re-editing.
func (e *Editor) Load(s Shape, style Style) {
	e.Reset()
	e.style = style
	switch v := s.(type) {
	case Rect:
		e.kind = KindRect
		e.box.Load(v.Box)
	case Ellipse:
		e.kind = KindEllipse
		e.box.Load(v.Box)
	case Polygon:
		e.kind = KindPolygon
		e.poly.Load(v.Points)
	}
}

// PointerDown forwards a press. Always changes the overlay.
func (e *Editor) PointerDown(p geometry.Point2D) bool {
	if e.kind == KindPolygon {
		e.poly.PointerDown(p)
	} else {
		e.box.PointerDown(p)
	}
	return true
}

// PointerMove forwards a move and reports whether a redraw is needed.
func (e *Editor) PointerMove(p geometry.Point2D) bool {
	if e.kind == KindPolygon {
		return e.poly.PointerMove(p)
	}
	return e.box.PointerMove(p)
}

// PointerUp forwards a release. Polygons ignore it.
func (e *Editor) PointerUp(p geometry.Point2D) bool {
	if e.kind == KindPolygon {
		return false
	}
	return e.box.PointerUp(p)
}

// UndoLastPoint removes the newest polygon vertex.
func (e *Editor) UndoLastPoint() bool {
	if e.kind != KindPolygon {
		return false
	}
	return e.poly.UndoLastPoint()
}

// CanSave reports whether Candidate would succeed.
func (e *Editor) CanSave() bool {
	_, err := e.Candidate()
	return err == nil
}

// Candidate returns the committed shape in overlay pixels.
func (e *Editor) Candidate() (Shape, error) {
	switch e.kind {
	case KindRect, KindEllipse:
		r, ok := e.box.Committed()
		if !ok {
			return nil, ErrIncompleteGeometry
		}
		if e.kind == KindEllipse {
			return Ellipse{Box: r}, nil
		}
		return Rect{Box: r}, nil
	case KindPolygon:
		pts, ok := e.poly.Closed()
		if !ok {
			return nil, ErrIncompleteGeometry
		}
		return Polygon{Points: pts}, nil
	}
	return nil, ErrIncompleteGeometry
}

// Scene describes what the overlay should show for the editor's state.
func (e *Editor) Scene() Scene {
	var sc Scene
	switch e.kind {
	case KindRect, KindEllipse:
		r, ok := e.box.Box()
		if !ok {
			return sc
		}
		var s Shape = Rect{Box: r}
		if e.kind == KindEllipse {
			s = Ellipse{Box: r}
		}
		sc.Items = []Item{{Shape: s, Style: e.style}}
	case KindPolygon:
		pts := e.poly.Points()
		if len(pts) == 0 {
			return sc
		}
		sc.Vertices = pts
		if e.poly.State() == PolygonClosed {
			sc.Items = []Item{{Shape: Polygon{Points: pts}, Style: e.style}}
		} else {
			sc.OpenPath = pts
			sc.OpenStyle = e.style
			if from, to, ok := e.poly.RubberBand(); ok {
				sc.RubberBand = &Segment{From: from, To: to}
			}
			sc.NearFirst = e.poly.NearFirst()
		}
	}
	return sc
}
