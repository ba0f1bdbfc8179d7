package marker

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-markers/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func TestParseKind(t *testing.T) {
	for _, k := range []string{"rectangulo", "circulo", "poligono"} {
		got, err := ParseKind(k)
		require.NoError(t, err)
		assert.Equal(t, Kind(k), got)
	}
	_, err := ParseKind("triangulo")
	assert.Error(t, err)
}

func TestBoxToolDrag(t *testing.T) {
	e := NewEditor(KindRect, DefaultCloseRadius)
	assert.False(t, e.CanSave())

	e.PointerDown(pt(300, 250))
	assert.True(t, e.PointerMove(pt(200, 200)))
	assert.False(t, e.CanSave(), "still drawing")
	e.PointerUp(pt(100, 100))

	s, err := e.Candidate()
	require.NoError(t, err)
	assert.Equal(t, Rect{Box: geometry.Rect{X: 100, Y: 100, Width: 200, Height: 150}}, s)
}

func TestBoxToolNewPressDiscardsCandidate(t *testing.T) {
	e := NewEditor(KindEllipse, DefaultCloseRadius)
	e.PointerDown(pt(0, 0))
	e.PointerUp(pt(50, 40))
	require.True(t, e.CanSave())

	e.PointerDown(pt(10, 10))
	assert.False(t, e.CanSave())
	assert.Equal(t, BoxDrawing, e.box.State())
}

func TestBoxToolClickWithoutDragIsNotSaveable(t *testing.T) {
	e := NewEditor(KindRect, DefaultCloseRadius)
	e.PointerDown(pt(10, 10))
	e.PointerUp(pt(10, 10))
	_, err := e.Candidate()
	assert.ErrorIs(t, err, ErrIncompleteGeometry)
}

func TestPolygonClosingScenario(t *testing.T) {
	e := NewEditor(KindPolygon, DefaultCloseRadius)
	for _, p := range []geometry.Point2D{pt(50, 50), pt(150, 50), pt(150, 150), pt(50, 150)} {
		e.PointerDown(p)
	}
	assert.Equal(t, PolygonCollecting, e.Polygon().State())
	assert.False(t, e.CanSave())

	e.PointerMove(pt(55, 53))
	assert.True(t, e.Polygon().NearFirst())

	e.PointerDown(pt(55, 53))
	assert.Equal(t, PolygonClosed, e.Polygon().State())
	assert.Len(t, e.Polygon().Points(), 4)

	s, err := e.Candidate()
	require.NoError(t, err)
	poly := s.(Polygon)
	assert.Equal(t, pt(50, 50), poly.Points[0])
	assert.Equal(t, geometry.Rect{X: 50, Y: 50, Width: 100, Height: 100}, poly.Bounds())
}

func TestPolygonNeedsThreePointsToClose(t *testing.T) {
	tool := NewPolygonTool(0)
	tool.PointerDown(pt(50, 50))
	tool.PointerDown(pt(150, 50))
	tool.PointerDown(pt(52, 52))

	assert.Equal(t, PolygonCollecting, tool.State())
	assert.Len(t, tool.Points(), 3)

	tool.PointerMove(pt(51, 51))
	assert.True(t, tool.NearFirst())
}

func TestPolygonNearFirstRequiresThreePoints(t *testing.T) {
	tool := NewPolygonTool(0)
	tool.PointerDown(pt(50, 50))
	tool.PointerDown(pt(150, 50))
	tool.PointerMove(pt(51, 51))
	assert.False(t, tool.NearFirst())

	from, to, ok := tool.RubberBand()
	require.True(t, ok)
	assert.Equal(t, pt(150, 50), from)
	assert.Equal(t, pt(51, 51), to)
}

func TestPolygonUndoUnclosesFirst(t *testing.T) {
	tool := NewPolygonTool(15)
	for _, p := range []geometry.Point2D{pt(0, 0), pt(100, 0), pt(100, 100)} {
		tool.PointerDown(p)
	}
	tool.PointerDown(pt(2, 2))
	require.Equal(t, PolygonClosed, tool.State())

	require.True(t, tool.UndoLastPoint())
	assert.Equal(t, PolygonCollecting, tool.State())
	assert.Len(t, tool.Points(), 2)

	_, ok := tool.Closed()
	assert.False(t, ok)

	tool.UndoLastPoint()
	tool.UndoLastPoint()
	assert.Equal(t, PolygonIdle, tool.State())
	assert.Empty(t, tool.Points())
	assert.False(t, tool.UndoLastPoint())
}

func TestPolygonClickAfterCloseRestarts(t *testing.T) {
	tool := NewPolygonTool(15)
	for _, p := range []geometry.Point2D{pt(0, 0), pt(100, 0), pt(100, 100), pt(1, 1)} {
		tool.PointerDown(p)
	}
	require.Equal(t, PolygonClosed, tool.State())

	tool.PointerDown(pt(300, 300))
	assert.Equal(t, PolygonCollecting, tool.State())
	assert.Equal(t, []geometry.Point2D{pt(300, 300)}, tool.Points())
}

func TestDegeneratePolygonIsAccepted(t *testing.T) {
	e := NewEditor(KindPolygon, DefaultCloseRadius)
	for _, p := range []geometry.Point2D{pt(0, 0), pt(50, 50), pt(100, 100), pt(3, 3)} {
		e.PointerDown(p)
	}
	s, err := e.Candidate()
	require.NoError(t, err)
	assert.Zero(t, Area(s))
}

func TestSetKindResets(t *testing.T) {
	e := NewEditor(KindRect, DefaultCloseRadius)
	e.PointerDown(pt(0, 0))
	e.PointerUp(pt(10, 10))
	e.SetKind(KindPolygon)
	assert.False(t, e.CanSave())
	assert.Empty(t, e.Scene().Items)
}

func TestLoadForEditing(t *testing.T) {
	e := NewEditor(KindRect, DefaultCloseRadius)
	poly := Polygon{Points: []geometry.Point2D{pt(0, 0), pt(10, 0), pt(10, 10)}}
	e.Load(poly, DefaultStyle())
	assert.Equal(t, KindPolygon, e.Kind())
	assert.True(t, e.CanSave())
}

func TestContains(t *testing.T) {
	box := geometry.Rect{X: 0, Y: 0, Width: 10, Height: 10}
	assert.True(t, Contains(Rect{Box: box}, pt(1, 1)))
	assert.False(t, Contains(Ellipse{Box: box}, pt(0.5, 0.5)))
	assert.True(t, Contains(Polygon{Points: rectOutline(box)}, pt(5, 5)))
}

func TestDrawIsIdempotent(t *testing.T) {
	e := NewEditor(KindPolygon, DefaultCloseRadius)
	for _, p := range []geometry.Point2D{pt(20, 20), pt(120, 30), pt(100, 120)} {
		e.PointerDown(p)
	}
	e.PointerMove(pt(22, 21))
	style := DefaultStyle()
	style.SinBorde = false
	e.SetStyle(style)
	sc := e.Scene()
	sc.Highlights = []geometry.Rect{{X: 150, Y: 10, Width: 30, Height: 12}}

	dst := image.NewRGBA(image.Rect(0, 0, 200, 160))
	Draw(dst, sc)
	first := append([]uint8(nil), dst.Pix...)
	for i := 0; i < 5; i++ {
		Draw(dst, sc)
	}
	assert.Equal(t, first, dst.Pix)

	fresh := image.NewRGBA(dst.Bounds())
	Draw(fresh, sc)
	assert.Equal(t, first, fresh.Pix)
}

func TestDrawClearsPreviousFrame(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	Draw(dst, Scene{Items: []Item{{Shape: Rect{Box: geometry.Rect{X: 10, Y: 10, Width: 30, Height: 30}}, Style: DefaultStyle()}}})
	assert.NotZero(t, dst.RGBAAt(20, 20).A)

	Draw(dst, Scene{})
	for _, v := range dst.Pix {
		require.Zero(t, v)
	}
}

func TestDrawBorderOnlyWhenRequested(t *testing.T) {
	box := geometry.Rect{X: 20, Y: 20, Width: 40, Height: 40}
	fillOnly := image.NewRGBA(image.Rect(0, 0, 100, 100))
	Draw(fillOnly, Scene{Items: []Item{{Shape: Rect{Box: box}, Style: DefaultStyle()}}})

	bordered := image.NewRGBA(image.Rect(0, 0, 100, 100))
	style := DefaultStyle()
	style.SinBorde = false
	Draw(bordered, Scene{Items: []Item{{Shape: Rect{Box: box}, Style: style}}})

	// just outside the left edge only the stroke reaches
	assert.Zero(t, fillOnly.RGBAAt(19, 40).A)
	assert.NotZero(t, bordered.RGBAAt(19, 40).A)
	// interior identical
	assert.Equal(t, fillOnly.RGBAAt(40, 40), bordered.RGBAAt(40, 40))
}

func TestSceneFirstVertexAffordance(t *testing.T) {
	e := NewEditor(KindPolygon, DefaultCloseRadius)
	for _, p := range []geometry.Point2D{pt(20, 20), pt(120, 20), pt(120, 120)} {
		e.PointerDown(p)
	}
	e.PointerMove(pt(25, 22))
	sc := e.Scene()
	assert.True(t, sc.NearFirst)
	require.NotNil(t, sc.RubberBand)
	assert.Len(t, sc.Vertices, 3)

	dst := image.NewRGBA(image.Rect(0, 0, 160, 160))
	Draw(dst, sc)
	// enlarged first vertex reaches further than the regular radius
	c := dst.RGBAAt(20, 20+int(vertexRadius)+1)
	assert.NotZero(t, c.A)
	assert.Greater(t, c.G, c.B)
}

func TestRescaleFollowsZoom(t *testing.T) {
	e := NewEditor(KindRect, DefaultCloseRadius)
	e.PointerDown(geometry.Point2D{X: 10, Y: 20})
	e.PointerUp(geometry.Point2D{X: 30, Y: 60})
	e.Rescale(2, 2)
	s, err := e.Candidate()
	require.NoError(t, err)
	assert.Equal(t, geometry.Rect{X: 20, Y: 40, Width: 40, Height: 80}, s.Bounds())

	e.SetKind(KindPolygon)
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}} {
		e.PointerDown(p)
		e.PointerUp(p)
	}
	e.Rescale(0.5, 0.5)
	e.PointerMove(geometry.Point2D{X: 2, Y: 2})
	assert.True(t, e.Scene().NearFirst)
	assert.Equal(t, geometry.Point2D{X: 50, Y: 50}, e.Scene().Vertices[2])

	e.Rescale(0, 1)
	assert.Equal(t, geometry.Point2D{X: 50, Y: 50}, e.Scene().Vertices[2])
}
