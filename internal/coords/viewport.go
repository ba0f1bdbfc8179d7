package coords

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"manual-markers/pkg/geometry"
)

// Viewport maps text-content space (points, origin bottom-left) to canvas
// pixels (origin top-left) at a render scale.
type Viewport struct {
	Scale      float64
	PageHeight float64 // page height in points
}

// Matrix returns the 3x3 homogeneous form of [s 0 0 -s 0 H*s].
func (v Viewport) Matrix() *mat.Dense {
	return affine([6]float64{v.Scale, 0, 0, -v.Scale, 0, v.PageHeight * v.Scale})
}

// affine expands a PDF-style [a b c d e f] matrix into column-vector form.
func affine(m [6]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0], m[2], m[4],
		m[1], m[3], m[5],
		0, 0, 1,
	})
}

// Compose returns viewport x transform in [a b c d e f] order.
func (v Viewport) Compose(transform [6]float64) [6]float64 {
	var out mat.Dense
	out.Mul(v.Matrix(), affine(transform))
	return [6]float64{
		out.At(0, 0), out.At(1, 0),
		out.At(0, 1), out.At(1, 1),
		out.At(0, 2), out.At(1, 2),
	}
}

// RunRect computes the pixel box of a text run whose baseline origin and
// font matrix are given by transform and whose advance width is width
// (content units).
func (v Viewport) RunRect(transform [6]float64, width float64) geometry.Rect {
	tx := v.Compose(transform)
	fontHeight := math.Hypot(tx[2], tx[3])
	return geometry.Rect{
		X:      tx[4],
		Y:      tx[5] - fontHeight,
		Width:  width * v.Scale,
		Height: fontHeight,
	}
}

// ToContent maps a canvas pixel back to content space.
func (v Viewport) ToContent(p geometry.Point2D) (geometry.Point2D, error) {
	var inv mat.Dense
	if err := inv.Inverse(v.Matrix()); err != nil {
		return geometry.Point2D{}, err
	}
	x := inv.At(0, 0)*p.X + inv.At(0, 1)*p.Y + inv.At(0, 2)
	y := inv.At(1, 0)*p.X + inv.At(1, 1)*p.Y + inv.At(1, 2)
	return geometry.Point2D{X: x, Y: y}, nil
}
