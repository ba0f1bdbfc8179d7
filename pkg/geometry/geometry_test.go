package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectFromCorners(t *testing.T) {
	tests := []struct {
		name string
		a, b Point2D
		want Rect
	}{
		{"down-right", Point2D{100, 100}, Point2D{300, 250}, Rect{100, 100, 200, 150}},
		{"up-left", Point2D{300, 250}, Point2D{100, 100}, Rect{100, 100, 200, 150}},
		{"up-right", Point2D{100, 250}, Point2D{300, 100}, Rect{100, 100, 200, 150}},
		{"point", Point2D{5, 5}, Point2D{5, 5}, Rect{5, 5, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RectFromCorners(tt.a, tt.b)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Width, 0.0)
			assert.GreaterOrEqual(t, got.Height, 0.0)
		})
	}
}

func TestPolygonArea(t *testing.T) {
	square := []Point2D{{50, 50}, {150, 50}, {150, 150}, {50, 150}}
	assert.InDelta(t, 10000, PolygonArea(square), 1e-9)

	collinear := []Point2D{{0, 0}, {1, 1}, {2, 2}}
	assert.Zero(t, PolygonArea(collinear))

	assert.Zero(t, PolygonArea(square[:2]))
}

func TestPointInPolygon(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.True(t, PointInPolygon(Point2D{5, 5}, square))
	assert.False(t, PointInPolygon(Point2D{15, 5}, square))
}

func TestEllipse(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 20, Height: 10}
	assert.True(t, InEllipse(Point2D{10, 5}, r))
	assert.False(t, InEllipse(Point2D{0, 0}, r))

	pts := EllipsePoints(r, 4)
	assert.Len(t, pts, 4)
	assert.InDelta(t, 20, pts[0].X, 1e-9)
	assert.InDelta(t, 5, pts[0].Y, 1e-9)

	bb := BoundingBox(EllipsePoints(r, 72))
	assert.InDelta(t, r.Width, bb.Width, 1e-9)
}
