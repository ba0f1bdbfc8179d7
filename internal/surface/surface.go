// Package surface holds the two same-size rasters a viewer draws into: the
// rendered page and the marker overlay.
package surface

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

// Pair is a base page raster plus an overlay of identical size. Only the
// owning viewer draws into it.
type Pair struct {
	mu      sync.RWMutex
	base    *image.RGBA
	overlay *image.RGBA
	scale   float64
	page    int
	hidden  bool
}

// DefaultBackground fills Composite output where the page is transparent.
var DefaultBackground = color.RGBA{R: 40, G: 40, B: 40, A: 255}

// NewPair creates an empty pair.
func NewPair() *Pair {
	return &Pair{
		base:    image.NewRGBA(image.Rectangle{}),
		overlay: image.NewRGBA(image.Rectangle{}),
	}
}

// Resize reallocates both surfaces to w x h, clearing them.
func (p *Pair) Resize(w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resize(w, h)
}

func (p *Pair) resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	r := image.Rect(0, 0, w, h)
	if p.base.Bounds() != r {
		p.base = image.NewRGBA(r)
	}
	if p.overlay.Bounds() != r {
		p.overlay = image.NewRGBA(r)
	}
}

// SetPage resizes both surfaces to the rendered page and copies it into
// the base.
func (p *Pair) SetPage(img *image.RGBA, page int, scale float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := img.Bounds()
	p.resize(b.Dx(), b.Dy())
	draw.Draw(p.base, p.base.Bounds(), img, b.Min, draw.Src)
	p.page = page
	p.scale = scale
}

// Size returns the current surface size in pixels.
func (p *Pair) Size() (w, h int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b := p.base.Bounds()
	return b.Dx(), b.Dy()
}

// Page returns the page number and scale of the current base raster.
func (p *Pair) Page() (page int, scale float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.page, p.scale
}

// DrawOverlay runs fn on the overlay under the write lock.
func (p *Pair) DrawOverlay(fn func(overlay *image.RGBA)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.overlay)
}

// SetOverlayVisible shows or hides the overlay in Composite. Drawing into
// the overlay is unaffected.
func (p *Pair) SetOverlayVisible(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = !on
}

// OverlayVisible reports whether Composite includes the overlay.
func (p *Pair) OverlayVisible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.hidden
}

// Composite returns a new image with the overlay drawn over the base on top
// of background, or DefaultBackground when nil.
func (p *Pair) Composite(background color.Color) *image.RGBA {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if background == nil {
		background = DefaultBackground
	}
	r := p.base.Bounds()
	out := image.NewRGBA(r)
	draw.Draw(out, r, image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(out, r, p.base, r.Min, draw.Over)
	if !p.hidden {
		draw.Draw(out, r, p.overlay, r.Min, draw.Over)
	}
	return out
}
