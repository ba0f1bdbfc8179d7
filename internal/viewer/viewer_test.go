package viewer

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-markers/internal/catalog"
	"manual-markers/internal/coords"
	"manual-markers/internal/marker"
	"manual-markers/internal/pdfdoc"
	"manual-markers/internal/pdfdoc/pdfdoctest"
	"manual-markers/internal/preload"
	"manual-markers/internal/render"
	"manual-markers/internal/textindex"
	"manual-markers/pkg/geometry"
)

type memKV map[string]string

func (m memKV) String(key string) string     { return m[key] }
func (m memKV) SetString(key, value string) { m[key] = value }

type requests struct {
	mu  sync.Mutex
	got []render.Request
}

func (r *requests) Request(req render.Request) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, req)
	return uint64(len(r.got))
}

func (r *requests) last() render.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.got[len(r.got)-1]
}

func TestZoomStoreFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		touch  bool
		want   float64
	}{
		{"unset desktop", "", false, 1.0},
		{"unset touch", "", true, 0.6},
		{"garbage", "grande", false, 1.0},
		{"too large", "12", true, 0.6},
		{"too small", "0.1", false, 1.0},
		{"valid", "2.5", true, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := memKV{}
			if tt.stored != "" {
				kv["manualZoom"] = tt.stored
			}
			z := NewZoomStore(kv, "manualZoom", tt.touch, ViewerLimits)
			assert.Equal(t, tt.want, z.Load())
		})
	}
}

func TestZoomPersistedOnChange(t *testing.T) {
	kv := memKV{}
	c := NewController(ViewerLimits, NewZoomStore(kv, "manualZoom", false, ViewerLimits), nil)
	c.ZoomIn()
	assert.Equal(t, "1.25", kv["manualZoom"])
	c.SetScale(99)
	assert.Equal(t, "5", kv["manualZoom"])
}

func TestControllerClampsPages(t *testing.T) {
	reqs := &requests{}
	c := NewController(ViewerLimits, nil, reqs)
	c.SetTotal(10)
	assert.Equal(t, render.Request{Page: 1, Scale: 1}, reqs.last())

	assert.Equal(t, 10, c.GoTo(42))
	assert.Equal(t, 1, c.GoTo(-3))
	assert.Equal(t, 2, c.Next())
	assert.Equal(t, 1, c.Prev())
	assert.Equal(t, 1, c.Prev())
	assert.Equal(t, render.Request{Page: 1, Scale: 1}, reqs.last())
}

func TestZoomLimits(t *testing.T) {
	c := NewController(EditorLimits, nil, nil)
	for i := 0; i < 20; i++ {
		c.ZoomOut()
	}
	assert.Equal(t, 0.3, c.View().Scale)
	for i := 0; i < 40; i++ {
		c.Wheel(-1)
	}
	assert.Equal(t, 5.0, c.View().Scale)
	c.Wheel(0)
	assert.Equal(t, 5.0, c.View().Scale)
	assert.InDelta(t, 5/WheelFactor, c.Wheel(3), 1e-9)
}

func TestDragPansWithinContent(t *testing.T) {
	c := NewController(ViewerLimits, nil, nil)
	c.SetViewport(geometry.Size{Width: 100, Height: 100})
	c.SetContent(geometry.Size{Width: 300, Height: 200})

	require.True(t, c.DragStart(geometry.Point2D{X: 50, Y: 50}))
	c.DragMove(geometry.Point2D{X: 20, Y: 10})
	assert.Equal(t, geometry.Point2D{X: 30, Y: 40}, c.View().Offset)
	c.DragMove(geometry.Point2D{X: -500, Y: -500})
	assert.Equal(t, geometry.Point2D{X: 200, Y: 100}, c.View().Offset)
	c.DragEnd()
	assert.False(t, c.Dragging())
}

func TestDragAndPinchAreExclusive(t *testing.T) {
	c := NewController(ViewerLimits, nil, nil)
	c.DragStart(geometry.Point2D{})
	c.PinchStart(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 100, Y: 0})
	assert.False(t, c.Dragging())

	c.DragMove(geometry.Point2D{X: -50, Y: -50})
	assert.Equal(t, geometry.Point2D{}, c.View().Offset)
	assert.False(t, c.DragStart(geometry.Point2D{}))

	assert.InDelta(t, 2.0, c.PinchMove(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 200, Y: 0}), 1e-9)
	c.PinchEnd()
	assert.True(t, c.DragStart(geometry.Point2D{}))
}

type opener struct {
	doc   pdfdoc.Document
	err   error
	calls int
}

func (o *opener) Open(context.Context, string) (pdfdoc.Document, error) {
	o.calls++
	return o.doc, o.err
}

func TestSessionOpenRendersFirstPage(t *testing.T) {
	doc := pdfdoctest.WithText("uno", "dos")
	var statuses []Status
	s := NewSession(Options{
		Opener:   &opener{doc: doc},
		OnStatus: func(st Status, _ error) { statuses = append(statuses, st) },
	})
	s.Open(context.Background(), "manual.pdf")
	s.WaitRender()
	<-s.IndexDone()

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st)
	assert.Equal(t, []Status{StatusLoading, StatusReady}, statuses)

	w, h := s.Surface().Size()
	assert.Equal(t, 612, w)
	assert.Equal(t, 792, h)
	page, _ := s.Surface().Page()
	assert.Equal(t, 1, page)
	assert.Equal(t, 2, s.Index().Len())

	s.Close()
	assert.True(t, doc.Closed())
}

func TestSessionLoadFailureBecomesState(t *testing.T) {
	boom := &pdfdoc.LoadError{URL: "x.pdf", Err: errors.New("404")}
	s := NewSession(Options{Opener: &opener{err: boom}})
	s.Open(context.Background(), "x.pdf")

	st, err := s.Status()
	assert.Equal(t, StatusError, st)
	var le *pdfdoc.LoadError
	assert.ErrorAs(t, err, &le)
}

func TestSessionUsesPreloadedManual(t *testing.T) {
	doc := pdfdoctest.WithText("precargado")
	ix := textindex.FromEntries(map[int]textindex.Entry{1: {Text: "precargado"}})
	h := preload.New(nil)
	h.Offer("m.pdf", doc, ix)
	op := &opener{}

	s := NewSession(Options{Opener: op, Handoff: h})
	s.Open(context.Background(), "m.pdf")
	s.WaitRender()

	st, _ := s.Status()
	assert.Equal(t, StatusReady, st)
	assert.Zero(t, op.calls)
	assert.Same(t, ix, s.Index())
	assert.Empty(t, doc.TextReads())
}

func overlayAlpha(s *Session, x, y int) uint8 {
	var a uint8
	s.Surface().DrawOverlay(func(o *image.RGBA) { a = o.RGBAAt(x, y).A })
	return a
}

func TestFindShowsBestPageWithHighlights(t *testing.T) {
	doc := pdfdoctest.WithText("nada", "filtro de aceite", "otra")
	s := NewSession(Options{Opener: &opener{doc: doc}})
	s.Open(context.Background(), "m.pdf")
	s.WaitRender()
	<-s.IndexDone()

	assert.Equal(t, textindex.HasMatches, s.Find("filtro"))
	s.WaitRender()
	page, _ := s.Surface().Page()
	assert.Equal(t, 2, page)
	// run at x=72, baseline 700, 12pt: box starts at y = 792-700-12
	assert.NotZero(t, overlayAlpha(s, 75, 85))

	assert.Equal(t, textindex.NotSearched, s.Find(" "))
	assert.Zero(t, overlayAlpha(s, 75, 85))

	assert.Equal(t, textindex.NoMatches, s.Find("ZZZZNOTPRESENT"))
	assert.False(t, s.NextHit())
}

func TestEditorCaptureAndMarkers(t *testing.T) {
	doc := pdfdoctest.Blank(2)
	saved := []marker.Item{{Shape: marker.Rect{Box: geometry.Rect{X: 300, Y: 300, Width: 50, Height: 50}}, Style: marker.DefaultStyle()}}
	s := NewSession(Options{
		Opener:  &opener{doc: doc},
		Limits:  EditorLimits,
		Markers: func(int, float64, float64, float64) []marker.Item { return saved },
	})
	s.Open(context.Background(), "m.pdf")
	s.WaitRender()
	assert.NotZero(t, overlayAlpha(s, 320, 320))

	_, err := s.Capture()
	assert.ErrorIs(t, err, marker.ErrIncompleteGeometry)

	s.SetEditor(marker.NewEditor(marker.KindRect, marker.DefaultCloseRadius))
	s.Edit(func(e *marker.Editor) bool { return e.PointerDown(geometry.Point2D{X: 61.2, Y: 79.2}) })
	s.Edit(func(e *marker.Editor) bool { return e.PointerMove(geometry.Point2D{X: 183.6, Y: 237.6}) })
	s.Edit(func(e *marker.Editor) bool { return e.PointerUp(geometry.Point2D{X: 183.6, Y: 237.6}) })
	assert.NotZero(t, overlayAlpha(s, 100, 100))

	v, err := s.Capture()
	require.NoError(t, err)
	assert.Equal(t, catalog.FormaRectangulo, v.Forma)
	assert.Equal(t, 1, v.Pagina)
	assert.InDelta(t, 0.1, v.Coordenadas.X, 1e-9)
	assert.InDelta(t, 0.1, v.Coordenadas.Y, 1e-9)
	assert.InDelta(t, 0.2, v.Coordenadas.Width, 1e-9)
	assert.InDelta(t, 0.2, v.Coordenadas.Height, 1e-9)
}

func drawBox(s *Session, from, to geometry.Point2D) {
	s.Edit(func(e *marker.Editor) bool { return e.PointerDown(from) })
	s.Edit(func(e *marker.Editor) bool { return e.PointerMove(to) })
	s.Edit(func(e *marker.Editor) bool { return e.PointerUp(to) })
}

func TestZoomKeepsEditorGeometryOnPage(t *testing.T) {
	s := NewSession(Options{Opener: &opener{doc: pdfdoctest.Blank(1)}, Limits: EditorLimits})
	s.Open(context.Background(), "m.pdf")
	s.WaitRender()
	s.SetEditor(marker.NewEditor(marker.KindRect, marker.DefaultCloseRadius))
	drawBox(s, geometry.Point2D{X: 61.2, Y: 79.2}, geometry.Point2D{X: 183.6, Y: 237.6})

	s.Controller().SetScale(2)
	s.WaitRender()
	w, _ := s.Surface().Size()
	require.Equal(t, 1224, w)
	assert.NotZero(t, overlayAlpha(s, 200, 200))

	v, err := s.Capture()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v.Coordenadas.X, 1e-9)
	assert.InDelta(t, 0.1, v.Coordenadas.Y, 1e-9)
	assert.InDelta(t, 0.2, v.Coordenadas.Width, 1e-9)
	assert.InDelta(t, 0.2, v.Coordenadas.Height, 1e-9)
}

func TestPageChangeDiscardsEditorGeometry(t *testing.T) {
	s := NewSession(Options{Opener: &opener{doc: pdfdoctest.Blank(2)}, Limits: EditorLimits})
	s.Open(context.Background(), "m.pdf")
	s.WaitRender()
	s.SetEditor(marker.NewEditor(marker.KindRect, marker.DefaultCloseRadius))
	drawBox(s, geometry.Point2D{X: 10, Y: 10}, geometry.Point2D{X: 100, Y: 100})

	s.Controller().Next()
	s.WaitRender()
	_, err := s.Capture()
	assert.ErrorIs(t, err, marker.ErrIncompleteGeometry)
}

func TestSessionReopensAfterClose(t *testing.T) {
	first, second := pdfdoctest.Blank(1), pdfdoctest.Blank(3)
	op := &opener{doc: first}
	s := NewSession(Options{Opener: op})
	s.Open(context.Background(), "a.pdf")
	s.WaitRender()
	s.Close()
	assert.True(t, first.Closed())

	op.doc = second
	s.Open(context.Background(), "b.pdf")
	s.WaitRender()

	st, _ := s.Status()
	assert.Equal(t, StatusReady, st)
	page, _ := s.Surface().Page()
	assert.Equal(t, 1, page)
	assert.Equal(t, 3, s.Controller().View().Total)
	assert.NotZero(t, second.Renders())
	s.Close()
}

func TestUnloadKeepsSessionUsable(t *testing.T) {
	doc := pdfdoctest.Blank(1)
	op := &opener{doc: doc}
	s := NewSession(Options{Opener: op})
	s.Open(context.Background(), "a.pdf")
	s.WaitRender()

	s.Unload()
	st, _ := s.Status()
	assert.Equal(t, StatusEmpty, st)
	assert.Empty(t, s.URL())
	assert.True(t, doc.Closed())

	op.doc = pdfdoctest.Blank(2)
	s.Open(context.Background(), "b.pdf")
	s.WaitRender()
	assert.Equal(t, 2, s.Controller().View().Total)
	s.Close()
}

// gatedOpener hands out one document per URL and blocks each open until
// its gate is closed.
type gatedOpener struct {
	docs  map[string]*pdfdoctest.Document
	gates map[string]chan struct{}
}

func (o *gatedOpener) Open(ctx context.Context, url string) (pdfdoc.Document, error) {
	if g, ok := o.gates[url]; ok {
		<-g
	}
	return o.docs[url], nil
}

func TestSlowOpenLosesToLaterOpen(t *testing.T) {
	slow, fast := pdfdoctest.Blank(1), pdfdoctest.Blank(4)
	op := &gatedOpener{
		docs:  map[string]*pdfdoctest.Document{"a.pdf": slow, "b.pdf": fast},
		gates: map[string]chan struct{}{"a.pdf": make(chan struct{})},
	}
	s := NewSession(Options{Opener: op})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Open(context.Background(), "a.pdf")
	}()
	require.Eventually(t, func() bool {
		st, _ := s.Status()
		return st == StatusLoading
	}, time.Second, time.Millisecond)

	s.Open(context.Background(), "b.pdf")
	close(op.gates["a.pdf"])
	<-done
	s.WaitRender()

	assert.Equal(t, "b.pdf", s.URL())
	st, _ := s.Status()
	assert.Equal(t, StatusReady, st)
	assert.True(t, slow.Closed())
	assert.Zero(t, slow.Renders())
	assert.False(t, fast.Closed())
	assert.Equal(t, 4, s.Controller().View().Total)
	s.Close()
	assert.True(t, fast.Closed())
}

func TestEditMarkerSeedsEditor(t *testing.T) {
	s := NewSession(Options{Opener: &opener{doc: pdfdoctest.Blank(2)}, Limits: EditorLimits})
	s.SetEditor(marker.NewEditor(marker.KindRect, marker.DefaultCloseRadius))
	s.Open(context.Background(), "m.pdf")
	s.WaitRender()

	saved := catalog.VinculoManual{
		Pagina:      2,
		Forma:       catalog.FormaCirculo,
		Coordenadas: geometry.Rect{X: 0.25, Y: 0.5, Width: 0.1, Height: 0.05},
		Formato:     coords.FormatNormalized,
		Color:       "rgba(0, 128, 255, 0.4)",
	}
	s.EditMarker(saved)
	s.WaitRender()
	assert.Equal(t, 2, s.Controller().View().Page)

	v, err := s.Capture()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Pagina)
	assert.Equal(t, catalog.FormaCirculo, v.Forma)
	assert.InDelta(t, 0.25, v.Coordenadas.X, 1e-9)
	assert.InDelta(t, 0.5, v.Coordenadas.Y, 1e-9)
	assert.InDelta(t, 0.1, v.Coordenadas.Width, 1e-9)
	assert.InDelta(t, 0.05, v.Coordenadas.Height, 1e-9)
}

func TestMarkerAtPrefersSmallest(t *testing.T) {
	items := []marker.Item{
		{Shape: marker.Rect{Box: geometry.Rect{X: 0, Y: 0, Width: 400, Height: 400}}, Ref: 0},
		{Shape: marker.Ellipse{Box: geometry.Rect{X: 100, Y: 100, Width: 50, Height: 50}}, Ref: 3},
	}
	s := NewSession(Options{
		Opener:  &opener{doc: pdfdoctest.Blank(1)},
		Markers: func(int, float64, float64, float64) []marker.Item { return items },
	})
	s.Open(context.Background(), "m.pdf")
	s.WaitRender()

	it, ok := s.MarkerAt(geometry.Point2D{X: 125, Y: 125})
	require.True(t, ok)
	assert.Equal(t, 3, it.Ref)

	it, ok = s.MarkerAt(geometry.Point2D{X: 10, Y: 10})
	require.True(t, ok)
	assert.Equal(t, 0, it.Ref)

	_, ok = s.MarkerAt(geometry.Point2D{X: 500, Y: 500})
	assert.False(t, ok)
}

func TestEveryChangeListenerIsCalled(t *testing.T) {
	c := NewController(ViewerLimits, nil, nil)
	var a, b []int
	c.OnChange(func(v View) { a = append(a, v.Page) })
	c.OnChange(func(v View) { b = append(b, v.Page) })
	c.SetTotal(3)
	c.Next()
	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, a, b)
}

func TestReloadDoesNotTakeEditorPreload(t *testing.T) {
	viewerDoc, editorDoc := pdfdoctest.Blank(1), pdfdoctest.Blank(1)
	main, forEditor := preload.New(nil), preload.New(nil)
	forEditor.Offer("m.pdf", editorDoc, nil)

	viewerOpener := &opener{doc: viewerDoc}
	v := NewSession(Options{Opener: viewerOpener, Handoff: main})
	v.Open(context.Background(), "m.pdf")
	v.WaitRender()
	assert.Equal(t, 1, viewerOpener.calls)

	editorOpener := &opener{}
	e := NewSession(Options{Opener: editorOpener, Handoff: forEditor, Limits: EditorLimits})
	e.Open(context.Background(), "m.pdf")
	e.WaitRender()
	assert.Zero(t, editorOpener.calls)
	assert.NotZero(t, editorDoc.Renders())

	v.Close()
	e.Close()
	assert.True(t, editorDoc.Closed())
}
