// Package marker implements the drawing tools for manual markers and the
// overlay renderer that paints them.
package marker

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"manual-markers/pkg/colorutil"
	"manual-markers/pkg/geometry"
)

// Kind is the persisted shape name.
type Kind string

const (
	KindRect    Kind = "rectangulo"
	KindEllipse Kind = "circulo"
	KindPolygon Kind = "poligono"
)

// ErrIncompleteGeometry is returned when no saveable candidate exists.
var ErrIncompleteGeometry = errors.New("marker geometry is incomplete")

// ParseKind validates a stored shape name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRect, KindEllipse, KindPolygon:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown marker shape %q", s)
}

// Shape is one of Rect, Ellipse or Polygon. The set is closed; consumers
// switch on the concrete type.
type Shape interface {
	Kind() Kind
	Bounds() geometry.Rect
	isShape()
}

// Rect is an axis-aligned rectangle marker.
type Rect struct {
	Box geometry.Rect
}

// Ellipse is the ellipse inscribed in Box.
type Ellipse struct {
	Box geometry.Rect
}

// Polygon is a closed polygon; the last vertex connects back to the first.
type Polygon struct {
	Points []geometry.Point2D
}

func (Rect) Kind() Kind { return KindRect }
func (Ellipse) Kind() Kind { return KindEllipse }
func (Polygon) Kind() Kind { return KindPolygon }

func (s Rect) Bounds() geometry.Rect { return s.Box }
func (s Ellipse) Bounds() geometry.Rect { return s.Box }
func (s Polygon) Bounds() geometry.Rect { return geometry.BoundingBox(s.Points) }

func (Rect) isShape() {}
func (Ellipse) isShape() {}
func (Polygon) isShape() {}

// Area of the shape in its own units. A degenerate polygon reports 0.
func Area(s Shape) float64 {
	switch v := s.(type) {
	case Rect:
		return v.Box.Width * v.Box.Height
	case Ellipse:
		return math.Pi * v.Box.Width * v.Box.Height / 4
	case Polygon:
		return geometry.PolygonArea(v.Points)
	}
	panic(fmt.Sprintf("marker: unhandled shape %T", s))
}

// Contains hit-tests p against the shape.
func Contains(s Shape, p geometry.Point2D) bool {
	switch v := s.(type) {
	case Rect:
		return v.Box.Contains(p)
	case Ellipse:
		return geometry.InEllipse(p, v.Box)
	case Polygon:
		return geometry.PointInPolygon(p, v.Points)
	}
	panic(fmt.Sprintf("marker: unhandled shape %T", s))
}

// Style is the presentation stored with a marker.
type Style struct {
	Fill     color.NRGBA
	SinBorde bool
}

// DefaultStyle is a translucent red fill without border.
func DefaultStyle() Style {
	return Style{Fill: colorutil.MustParseCSS(colorutil.DefaultFill), SinBorde: true}
}
