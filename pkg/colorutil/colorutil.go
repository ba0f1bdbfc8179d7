// Package colorutil parses and formats the CSS color strings stored on
// manual markers and holds the overlay palette.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// DefaultFill is the fill applied to new markers.
const DefaultFill = "rgba(255, 0, 0, 0.3)"

// Overlay colors used by the marker and highlight renderers.
var (
	Black        = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	White        = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Red          = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	Green        = color.NRGBA{R: 0, G: 200, B: 0, A: 255}
	Blue         = color.NRGBA{R: 0, G: 90, B: 255, A: 255}
	RubberBand   = color.NRGBA{R: 0, G: 90, B: 255, A: 200}
	SearchYellow = color.NRGBA{R: 255, G: 230, B: 0, A: 100}
)

// ParseCSS parses "rgba(r, g, b, a)", "rgb(r, g, b)", "#rrggbb" and
// "#rrggbbaa". Alpha in rgba() is a fraction in [0,1].
func ParseCSS(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[5:len(s)-1], 4)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[4:len(s)-1], 3)
	}
	return color.NRGBA{}, fmt.Errorf("unsupported color %q", s)
}

// MustParseCSS is ParseCSS falling back to the default fill.
func MustParseCSS(s string) color.NRGBA {
	c, err := ParseCSS(s)
	if err != nil {
		c, _ = ParseCSS(DefaultFill)
	}
	return c
}

func parseFunc(body string, n int) (color.NRGBA, error) {
	parts := strings.Split(body, ",")
	if len(parts) != n {
		return color.NRGBA{}, fmt.Errorf("expected %d components, got %d", n, len(parts))
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("bad channel %q", parts[i])
		}
		ch[i] = uint8(v)
	}
	a := uint8(255)
	if n == 4 {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || f < 0 || f > 1 {
			return color.NRGBA{}, fmt.Errorf("bad alpha %q", parts[3])
		}
		a = alphaByte(f)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: a}, nil
}

func parseHex(h string) (color.NRGBA, error) {
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad hex color %q: %w", h, err)
	}
	if len(h) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FormatCSS renders c as "rgba(r, g, b, a)" with alpha rounded to 2 decimals.
func FormatCSS(c color.NRGBA) string {
	a := math.Round(float64(c.A)/255*100) / 100
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(a, 'f', -1, 64))
}

// FromColor converts any color.Color (e.g. from a picker) to NRGBA.
func FromColor(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// BorderColor derives the stroke color from a fill: same hue, alpha raised
// to 0.8, or to opaque if the fill already is at least that.
func BorderColor(fill color.NRGBA) color.NRGBA {
	b := fill
	if float64(fill.A)/255 < 0.8 {
		b.A = alphaByte(0.8)
	} else {
		b.A = 255
	}
	return b
}

func alphaByte(f float64) uint8 {
	return uint8(math.Round(f * 255))
}
