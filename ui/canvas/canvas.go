// Package canvas provides the manual page widget: the rendered page with
// its marker overlay, wheel zoom, drag pan and marker drawing.
package canvas

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"manual-markers/internal/marker"
	"manual-markers/internal/viewer"
	"manual-markers/pkg/geometry"
)

// ManualCanvas shows the surfaces of a viewer session.
type ManualCanvas struct {
	widget.BaseWidget

	session *viewer.Session
	raster  *fynecanvas.Raster
	content *pageContent
	scroll  *zoomScroll
	status  *widget.Label
	root    *fyne.Container

	editing bool

	// OnMarkerTapped is called in view mode when a tap lands on a saved
	// marker.
	OnMarkerTapped func(marker.Item)
}

// zoomScroll wraps a scroll container but takes the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *ManualCanvas
}

func newZoomScroll(content fyne.CanvasObject, mc *ManualCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: mc}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	// wheel up zooms in
	zs.canvas.session.Controller().Wheel(-float64(ev.Scrolled.DY))
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
	zs.canvas.session.Controller().SetViewport(geometry.Size{Width: float64(size.Width), Height: float64(size.Height)})
}

// pageContent wraps the raster to receive pointer events.
type pageContent struct {
	widget.BaseWidget
	canvas   *ManualCanvas
	raster   *fynecanvas.Raster
	panning  bool
	lastDrag geometry.Point2D
}

var (
	_ desktop.Mouseable = (*pageContent)(nil)
	_ desktop.Hoverable = (*pageContent)(nil)
	_ fyne.Draggable    = (*pageContent)(nil)
	_ fyne.Scrollable   = (*pageContent)(nil)
	_ fyne.Tappable     = (*pageContent)(nil)
)

func newPageContent(mc *ManualCanvas, raster *fynecanvas.Raster) *pageContent {
	pc := &pageContent{canvas: mc, raster: raster}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *pageContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(pc.raster)
}

func (pc *pageContent) MinSize() fyne.Size {
	return pc.raster.MinSize()
}

// surfacePoint maps a widget position onto overlay pixels.
func (pc *pageContent) surfacePoint(pos fyne.Position) geometry.Point2D {
	w, h := pc.canvas.session.Surface().Size()
	size := pc.Size()
	sx, sy := 1.0, 1.0
	if size.Width > 0 && size.Height > 0 {
		sx = float64(w) / float64(size.Width)
		sy = float64(h) / float64(size.Height)
	}
	return geometry.Point2D{X: float64(pos.X) * sx, Y: float64(pos.Y) * sy}
}

func (pc *pageContent) MouseDown(ev *desktop.MouseEvent) {
	if !pc.canvas.editing || ev.Button != desktop.MouseButtonPrimary {
		return
	}
	p := pc.surfacePoint(ev.Position)
	pc.canvas.session.Edit(func(e *marker.Editor) bool { return e.PointerDown(p) })
}

func (pc *pageContent) MouseUp(ev *desktop.MouseEvent) {
	if !pc.canvas.editing {
		return
	}
	p := pc.surfacePoint(ev.Position)
	pc.canvas.session.Edit(func(e *marker.Editor) bool { return e.PointerUp(p) })
}

func (pc *pageContent) MouseIn(*desktop.MouseEvent) {}

func (pc *pageContent) MouseMoved(ev *desktop.MouseEvent) {
	if !pc.canvas.editing {
		return
	}
	p := pc.surfacePoint(ev.Position)
	pc.canvas.session.Edit(func(e *marker.Editor) bool { return e.PointerMove(p) })
}

func (pc *pageContent) MouseOut() {}

// Dragged pans in view mode. While editing it feeds the editor, which is
// the only pointer motion touch devices deliver.
func (pc *pageContent) Dragged(ev *fyne.DragEvent) {
	ctrl := pc.canvas.session.Controller()
	if pc.canvas.editing {
		p := pc.surfacePoint(ev.Position)
		pc.lastDrag = p
		pc.canvas.session.Edit(func(e *marker.Editor) bool { return e.PointerMove(p) })
		return
	}
	abs := geometry.Point2D{X: float64(ev.AbsolutePosition.X), Y: float64(ev.AbsolutePosition.Y)}
	if !pc.panning {
		pc.panning = ctrl.DragStart(abs)
		return
	}
	ctrl.DragMove(abs)
}

func (pc *pageContent) DragEnd() {
	if pc.canvas.editing {
		p := pc.lastDrag
		pc.canvas.session.Edit(func(e *marker.Editor) bool { return e.PointerUp(p) })
		return
	}
	pc.panning = false
	pc.canvas.session.Controller().DragEnd()
}

func (pc *pageContent) Tapped(ev *fyne.PointEvent) {
	mc := pc.canvas
	if mc.editing || mc.OnMarkerTapped == nil || !mc.session.Surface().OverlayVisible() {
		return
	}
	if it, ok := mc.session.MarkerAt(pc.surfacePoint(ev.Position)); ok {
		mc.OnMarkerTapped(it)
	}
}

func (pc *pageContent) Scrolled(ev *fyne.ScrollEvent) {
	pc.canvas.session.Controller().Wheel(-float64(ev.Scrolled.DY))
}

// NewManualCanvas creates the widget for session. The caller routes the
// session's OnRedraw and OnStatus to Refresh and ShowStatus.
func NewManualCanvas(session *viewer.Session) *ManualCanvas {
	mc := &ManualCanvas{session: session}

	mc.raster = fynecanvas.NewRaster(mc.draw)
	mc.raster.ScaleMode = fynecanvas.ImageScalePixels
	mc.raster.SetMinSize(fyne.NewSize(400, 300))

	mc.content = newPageContent(mc, mc.raster)
	mc.scroll = newZoomScroll(mc.content, mc)
	mc.scroll.scroll.OnScrolled = func(pos fyne.Position) {
		session.Controller().SetOffset(geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)})
	}
	mc.status = widget.NewLabel("")
	mc.status.Alignment = fyne.TextAlignCenter
	mc.status.Wrapping = fyne.TextWrapWord
	mc.status.Hide()
	mc.root = container.NewStack(mc.scroll, container.NewCenter(mc.status))

	session.Controller().OnChange(mc.syncOffset)

	mc.ExtendBaseWidget(mc)
	return mc
}

func (mc *ManualCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(mc.root)
}

// Container returns the canvas container for embedding in layouts.
func (mc *ManualCanvas) Container() fyne.CanvasObject {
	return mc
}

// SetEditing routes pointer input to the session's editor instead of
// panning.
func (mc *ManualCanvas) SetEditing(on bool) {
	mc.editing = on
}

// PageChanged resizes the raster to the surfaces and repaints.
func (mc *ManualCanvas) PageChanged() {
	w, h := mc.session.Surface().Size()
	if w > 0 && h > 0 {
		mc.raster.SetMinSize(fyne.NewSize(float32(w), float32(h)))
	}
	mc.content.Refresh()
	mc.scroll.scroll.Refresh()
}

// ShowStatus replaces the page with a message while loading or after an
// error, and hides it once the manual is ready.
func (mc *ManualCanvas) ShowStatus(st viewer.Status, err error) {
	switch st {
	case viewer.StatusLoading:
		mc.status.SetText("Cargando manual...")
		mc.status.Show()
	case viewer.StatusError:
		msg := "No se pudo abrir el manual"
		if err != nil {
			msg += ":\n" + err.Error()
		}
		mc.status.SetText(msg)
		mc.status.Show()
	default:
		mc.status.Hide()
	}
}

func (mc *ManualCanvas) syncOffset(v viewer.View) {
	off := fyne.NewPos(float32(v.Offset.X), float32(v.Offset.Y))
	if mc.scroll.scroll.Offset != off {
		mc.scroll.scroll.Offset = off
		mc.scroll.scroll.Refresh()
	}
}

func (mc *ManualCanvas) draw(w, h int) image.Image {
	sw, sh := mc.session.Surface().Size()
	if sw == 0 || sh == 0 {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.White)
		return img
	}
	return mc.session.Surface().Composite(color.White)
}
