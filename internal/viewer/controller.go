// Package viewer drives a manual viewer: page navigation, zoom and pan,
// render scheduling, text search and the marker overlay.
package viewer

import (
	"math"
	"sync"

	"manual-markers/internal/render"
	"manual-markers/pkg/geometry"
)

// Requester receives render requests. *render.Scheduler satisfies it.
type Requester interface {
	Request(req render.Request) uint64
}

const (
	// ZoomStep is the increment of the zoom buttons.
	ZoomStep = 0.25
	// WheelFactor is the zoom ratio of one wheel notch.
	WheelFactor = 1.1
)

type gesture int

const (
	gestureNone gesture = iota
	gestureDrag
	gesturePinch
)

// View is a snapshot of the controller.
type View struct {
	Page   int
	Total  int
	Scale  float64
	Offset geometry.Point2D
}

// Controller owns the page, zoom and scroll position of one viewer.
type Controller struct {
	mu       sync.Mutex
	page     int
	total    int
	scale    float64
	offset   geometry.Point2D
	viewport geometry.Size
	content  geometry.Size
	limits   Limits

	zoom     *ZoomStore
	renders  Requester
	onChange []func(View)

	gesture    gesture
	dragStart  geometry.Point2D
	dragOrigin geometry.Point2D
	pinchDist  float64
	pinchScale float64
}

// NewController starts at page 1 with the stored zoom. zoom and renders
// may be nil.
func NewController(limits Limits, zoom *ZoomStore, renders Requester) *Controller {
	scale := limits.Clamp(DesktopDefaultZoom)
	if zoom != nil {
		scale = zoom.Load()
	}
	return &Controller{page: 1, scale: scale, limits: limits, zoom: zoom, renders: renders}
}

// OnChange adds a callback run after every state change, outside the
// controller's lock.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

func notify(fns []func(View), v View) {
	for _, fn := range fns {
		fn(v)
	}
}

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	return View{Page: c.page, Total: c.total, Scale: c.scale, Offset: c.offset}
}

// update runs fn under the lock and then issues a render when the page or
// scale moved.
func (c *Controller) update(fn func()) View {
	c.mu.Lock()
	page, scale := c.page, c.scale
	fn()
	v := c.viewLocked()
	rerender := v.Page != page || v.Scale != scale
	if v.Scale != scale && c.zoom != nil {
		c.zoom.Save(v.Scale)
	}
	renders, cb := c.renders, c.onChange
	c.mu.Unlock()

	if rerender && renders != nil && v.Total > 0 {
		renders.Request(render.Request{Page: v.Page, Scale: v.Scale})
	}
	notify(cb, v)
	return v
}

// Refresh requests a render of the current page without changing state.
func (c *Controller) Refresh() {
	v := c.View()
	if c.renders != nil && v.Total > 0 {
		c.renders.Request(render.Request{Page: v.Page, Scale: v.Scale})
	}
}

// SetTotal sets the page count of a newly loaded document, moves to page 1
// and requests its render.
func (c *Controller) SetTotal(n int) {
	c.mu.Lock()
	c.total = max(n, 0)
	c.page = 1
	c.offset = geometry.Point2D{}
	v, cb := c.viewLocked(), c.onChange
	c.mu.Unlock()

	c.Refresh()
	notify(cb, v)
}

func (c *Controller) clampPage(n int) int {
	if c.total < 1 {
		return 1
	}
	return min(max(n, 1), c.total)
}

// GoTo moves to page n, clamped to the document, and returns the page shown.
func (c *Controller) GoTo(n int) int {
	return c.update(func() {
		p := c.clampPage(n)
		if p != c.page {
			c.offset = geometry.Point2D{}
		}
		c.page = p
	}).Page
}

func (c *Controller) Next() int { return c.GoTo(c.View().Page + 1) }

func (c *Controller) Prev() int { return c.GoTo(c.View().Page - 1) }

// SetScale zooms to z, clamped to the limits. The scroll offset is scaled
// along so the same content stays in view.
func (c *Controller) SetScale(z float64) float64 {
	return c.update(func() { c.setScaleLocked(z) }).Scale
}

func (c *Controller) setScaleLocked(z float64) {
	z = c.limits.Clamp(z)
	if z == c.scale {
		return
	}
	ratio := z / c.scale
	c.offset = c.clampOffset(geometry.Point2D{X: c.offset.X * ratio, Y: c.offset.Y * ratio})
	c.content = geometry.Size{Width: c.content.Width * ratio, Height: c.content.Height * ratio}
	c.scale = z
}

func (c *Controller) ZoomIn() float64 { return c.SetScale(c.View().Scale + ZoomStep) }

func (c *Controller) ZoomOut() float64 { return c.SetScale(c.View().Scale - ZoomStep) }

// Wheel zooms one notch per event: in for negative dy, out for positive.
// The wheel never scrolls.
func (c *Controller) Wheel(dy float64) float64 {
	return c.update(func() {
		switch {
		case dy < 0:
			c.setScaleLocked(c.scale * WheelFactor)
		case dy > 0:
			c.setScaleLocked(c.scale / WheelFactor)
		}
	}).Scale
}

// SetViewport records the visible area of the scroll container.
func (c *Controller) SetViewport(s geometry.Size) {
	c.update(func() {
		c.viewport = s
		c.offset = c.clampOffset(c.offset)
	})
}

// SetContent records the size of the rendered page.
func (c *Controller) SetContent(s geometry.Size) {
	c.update(func() {
		c.content = s
		c.offset = c.clampOffset(c.offset)
	})
}

// SetOffset moves the scroll position, e.g. from native scrollbars.
func (c *Controller) SetOffset(p geometry.Point2D) {
	c.update(func() { c.offset = c.clampOffset(p) })
}

func (c *Controller) clampOffset(p geometry.Point2D) geometry.Point2D {
	maxX := math.Max(0, c.content.Width-c.viewport.Width)
	maxY := math.Max(0, c.content.Height-c.viewport.Height)
	if c.content.Width == 0 || c.viewport.Width == 0 {
		maxX = math.Inf(1)
	}
	if c.content.Height == 0 || c.viewport.Height == 0 {
		maxY = math.Inf(1)
	}
	return geometry.Point2D{
		X: math.Max(0, math.Min(maxX, p.X)),
		Y: math.Max(0, math.Min(maxY, p.Y)),
	}
}

// DragStart begins a pan at p. It is refused while a pinch is active.
func (c *Controller) DragStart(p geometry.Point2D) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gesture == gesturePinch {
		return false
	}
	c.gesture = gestureDrag
	c.dragStart = p
	c.dragOrigin = c.offset
	return true
}

// DragMove pans so the content under the drag start follows the pointer.
func (c *Controller) DragMove(p geometry.Point2D) {
	c.mu.Lock()
	active := c.gesture == gestureDrag
	c.mu.Unlock()
	if !active {
		return
	}
	c.update(func() {
		d := p.Sub(c.dragStart)
		c.offset = c.clampOffset(c.dragOrigin.Sub(d))
	})
}

func (c *Controller) DragEnd() {
	c.mu.Lock()
	if c.gesture == gestureDrag {
		c.gesture = gestureNone
	}
	c.mu.Unlock()
}

// PinchStart begins a two-finger zoom, abandoning any drag.
func (c *Controller) PinchStart(a, b geometry.Point2D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gesture = gesturePinch
	c.pinchDist = a.Distance(b)
	c.pinchScale = c.scale
}

// PinchMove zooms by the ratio of the finger distance to its start value.
func (c *Controller) PinchMove(a, b geometry.Point2D) float64 {
	c.mu.Lock()
	active := c.gesture == gesturePinch && c.pinchDist > 0
	c.mu.Unlock()
	if !active {
		return c.View().Scale
	}
	return c.update(func() {
		c.setScaleLocked(c.pinchScale * a.Distance(b) / c.pinchDist)
	}).Scale
}

func (c *Controller) PinchEnd() {
	c.mu.Lock()
	if c.gesture == gesturePinch {
		c.gesture = gestureNone
	}
	c.mu.Unlock()
}

// Dragging reports whether a pan is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gesture == gestureDrag
}
