package ocr

import (
	"image"
)

// inkThreshold is the luminance below which a pixel counts as ink.
const inkThreshold = 160

// HasInk reports whether a rendered page has any dark pixels, sampling
// every step-th pixel in both directions. Blank pages are not sent to OCR.
func HasInk(img *image.RGBA, step int) bool {
	if img == nil {
		return false
	}
	if step < 1 {
		step = 1
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := img.RGBAAt(x, y)
			if c.A == 0 {
				continue
			}
			// ITU-R 601 luma
			l := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
			if l < inkThreshold {
				return true
			}
		}
	}
	return false
}
