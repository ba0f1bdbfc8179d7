package surface

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSetPageResizesBoth(t *testing.T) {
	p := NewPair()
	p.SetPage(solid(40, 30, color.RGBA{R: 200, A: 255}), 3, 1.5)

	w, h := p.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
	p.DrawOverlay(func(o *image.RGBA) {
		assert.Equal(t, image.Rect(0, 0, 40, 30), o.Bounds())
	})
	page, scale := p.Page()
	assert.Equal(t, 3, page)
	assert.Equal(t, 1.5, scale)

	p.Resize(10, 5)
	p.DrawOverlay(func(o *image.RGBA) {
		assert.Equal(t, image.Rect(0, 0, 10, 5), o.Bounds())
	})
}

func TestCompositeOverlayOverBase(t *testing.T) {
	p := NewPair()
	p.SetPage(solid(4, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255}), 1, 1)
	p.DrawOverlay(func(o *image.RGBA) {
		// 50% premultiplied red at (1,1)
		o.SetRGBA(1, 1, color.RGBA{R: 128, A: 128})
	})

	out := p.Composite(nil)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(0, 0))
	c := out.RGBAAt(1, 1)
	assert.Equal(t, uint8(255), c.R)
	assert.InDelta(t, 127, int(c.G), 2)
	assert.Equal(t, uint8(255), c.A)
}

func TestHiddenOverlayLeavesPage(t *testing.T) {
	p := NewPair()
	p.SetPage(image.NewRGBA(image.Rect(0, 0, 2, 2)), 1, 1)
	p.DrawOverlay(func(o *image.RGBA) { o.SetRGBA(0, 0, color.RGBA{R: 255, A: 255}) })
	assert.True(t, p.OverlayVisible())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, p.Composite(nil).RGBAAt(0, 0))

	p.SetOverlayVisible(false)
	assert.False(t, p.OverlayVisible())
	out := p.Composite(nil)
	assert.Equal(t, DefaultBackground, out.RGBAAt(0, 0))
	assert.Equal(t, DefaultBackground, out.RGBAAt(1, 1))

	p.DrawOverlay(func(o *image.RGBA) {
		assert.Equal(t, color.RGBA{R: 255, A: 255}, o.RGBAAt(0, 0))
	})
}
