package marker

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"manual-markers/pkg/colorutil"
	"manual-markers/pkg/geometry"
)

const (
	strokeWidth      = 2.0
	rubberBandWidth  = 1.5
	vertexRadius     = 7.0
	vertexRadiusNear = 10.0
	ellipseSegments  = 72
	discSegments     = 16
)

// Item is a finished shape with its style. Ref is the caller's key for
// the record the shape came from.
type Item struct {
	Shape Shape
	Style Style
	Ref   int
}

// Segment is a line between two overlay points.
type Segment struct {
	From, To geometry.Point2D
}

// Scene is everything the overlay shows at one moment, in overlay pixels.
type Scene struct {
	Items      []Item
	Highlights []geometry.Rect

	// polygon in progress
	OpenPath   []geometry.Point2D
	OpenStyle  Style
	RubberBand *Segment
	Vertices   []geometry.Point2D
	NearFirst  bool
}

// Draw clears dst and paints sc onto it. The result depends only on sc and
// the size of dst.
func Draw(dst *image.RGBA, sc Scene) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	for _, h := range sc.Highlights {
		fillPaths(dst, [][]geometry.Point2D{rectOutline(h)}, colorutil.SearchYellow)
	}
	for _, it := range sc.Items {
		drawItem(dst, it)
	}
	if len(sc.OpenPath) > 1 {
		strokePath(dst, sc.OpenPath, false, colorutil.BorderColor(sc.OpenStyle.Fill), strokeWidth)
	}
	if sc.RubberBand != nil {
		strokePath(dst, []geometry.Point2D{sc.RubberBand.From, sc.RubberBand.To}, false, colorutil.RubberBand, rubberBandWidth)
	}
	drawVertices(dst, sc.Vertices, sc.NearFirst)
}

// Outline returns the vertex ring used to paint s.
func Outline(s Shape) []geometry.Point2D {
	switch v := s.(type) {
	case Rect:
		return rectOutline(v.Box)
	case Ellipse:
		return geometry.EllipsePoints(v.Box, ellipseSegments)
	case Polygon:
		return v.Points
	}
	panic(fmt.Sprintf("marker: unhandled shape %T", s))
}

func rectOutline(r geometry.Rect) []geometry.Point2D {
	return []geometry.Point2D{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}

func drawItem(dst *image.RGBA, it Item) {
	ring := Outline(it.Shape)
	fillPaths(dst, [][]geometry.Point2D{ring}, it.Style.Fill)
	if !it.Style.SinBorde {
		strokePath(dst, ring, true, colorutil.BorderColor(it.Style.Fill), strokeWidth)
	}
}

func drawVertices(dst *image.RGBA, pts []geometry.Point2D, nearFirst bool) {
	for i, p := range pts {
		r := vertexRadius
		var fill color.Color = colorutil.Blue
		if i == 0 && nearFirst {
			r = vertexRadiusNear
			fill = colorutil.Green
		}
		fillPaths(dst, [][]geometry.Point2D{disc(p, r, discSegments)}, fill)

		label := strconv.Itoa(i + 1)
		w := basicfont.Face7x13.Advance * len(label)
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(colorutil.White),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(int(math.Round(p.X))-w/2, int(math.Round(p.Y))+4),
		}
		d.DrawString(label)
	}
}

// strokePath outlines pts as the union of one quad per segment plus a disc
// at each joint.
func strokePath(dst *image.RGBA, pts []geometry.Point2D, closed bool, c color.Color, width float64) {
	n := len(pts)
	if n < 2 {
		return
	}
	half := width / 2
	var paths [][]geometry.Point2D
	segs := n - 1
	if closed {
		segs = n
	}
	for i := 0; i < segs; i++ {
		a, b := pts[i], pts[(i+1)%n]
		d := b.Sub(a)
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		nx, ny := -d.Y/l*half, d.X/l*half
		paths = append(paths, []geometry.Point2D{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		})
	}
	for _, p := range pts {
		paths = append(paths, disc(p, half, 8))
	}
	fillPaths(dst, paths, c)
}

func disc(c geometry.Point2D, r float64, n int) []geometry.Point2D {
	return geometry.EllipsePoints(geometry.Rect{X: c.X - r, Y: c.Y - r, Width: 2 * r, Height: 2 * r}, n)
}

// fillPaths rasterizes the union of paths. The rasterizer accumulates
// signed coverage, so every path is wound the same way first.
func fillPaths(dst *image.RGBA, paths [][]geometry.Point2D, c color.Color) {
	b := dst.Bounds()
	if b.Empty() {
		return
	}
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	drawn := false
	for _, p := range paths {
		if len(p) < 3 {
			continue
		}
		p = clockwise(p)
		z.MoveTo(float32(p[0].X), float32(p[0].Y))
		for _, q := range p[1:] {
			z.LineTo(float32(q.X), float32(q.Y))
		}
		z.ClosePath()
		drawn = true
	}
	if drawn {
		z.Draw(dst, b, image.NewUniform(c), image.Point{})
	}
}

func clockwise(p []geometry.Point2D) []geometry.Point2D {
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	if sum <= 0 {
		return p
	}
	r := make([]geometry.Point2D, len(p))
	for i := range p {
		r[i] = p[len(p)-1-i]
	}
	return r
}
