// Package coords converts marker geometry between canvas pixels, the
// normalized unit square that is persisted, and text-content space.
package coords

import (
	"manual-markers/pkg/geometry"
)

// Format tags how a stored rect should be interpreted.
type Format string

const (
	// FormatUnknown marks records written before the discriminant existed.
	FormatUnknown    Format = ""
	FormatNormalized Format = "normalizado"
	FormatPixels     Format = "pixeles"
)

// ToNormalized divides each component by the matching surface dimension.
// Non-positive dimensions yield the zero rect.
func ToNormalized(r geometry.Rect, width, height float64) geometry.Rect {
	if width <= 0 || height <= 0 {
		return geometry.Rect{}
	}
	return r.ScaleXY(1/width, 1/height)
}

// ToPixels maps a unit rect onto a surface of the given size.
func ToPixels(r geometry.Rect, width, height float64) geometry.Rect {
	return r.ScaleXY(width, height)
}

// PointsToNormalized normalizes every point against the surface size.
func PointsToNormalized(points []geometry.Point2D, width, height float64) []geometry.Point2D {
	if width <= 0 || height <= 0 {
		return nil
	}
	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = p.ScaleXY(1/width, 1/height)
	}
	return out
}

// PointsToPixels maps unit points onto a surface of the given size.
func PointsToPixels(points []geometry.Point2D, width, height float64) []geometry.Point2D {
	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = p.ScaleXY(width, height)
	}
	return out
}

// RehydrateLegacy scales an absolute-pixel rect to the current zoom. Legacy
// records do not say what zoom they were captured at; 1.0 is assumed, so
// records drawn at other zooms drift.
func RehydrateLegacy(r geometry.Rect, currentScale float64) geometry.Rect {
	return r.ScaleXY(currentScale, currentScale)
}

// IsNormalized is the value-range heuristic for untagged records: all four
// components at most 1. A near-zero legacy rect at the origin is
// misclassified; that case is accepted.
func IsNormalized(r geometry.Rect) bool {
	return r.X <= 1 && r.Y <= 1 && r.Width <= 1 && r.Height <= 1
}

// Detect returns the effective format of a stored rect.
func Detect(r geometry.Rect, f Format) Format {
	switch f {
	case FormatNormalized, FormatPixels:
		return f
	}
	if IsNormalized(r) {
		return FormatNormalized
	}
	return FormatPixels
}

// Resolve turns a stored rect into pixels on the current surface.
func Resolve(r geometry.Rect, f Format, width, height, scale float64) geometry.Rect {
	if Detect(r, f) == FormatNormalized {
		return ToPixels(r, width, height)
	}
	return RehydrateLegacy(r, scale)
}

// ResolvePoints applies the same branch as Resolve to a point list. The
// format is decided by the accompanying bounding box.
func ResolvePoints(points []geometry.Point2D, bbox geometry.Rect, f Format, width, height, scale float64) []geometry.Point2D {
	if Detect(bbox, f) == FormatNormalized {
		return PointsToPixels(points, width, height)
	}
	return PointsToPixels(points, scale, scale)
}
