// Package vinculo converts between editor shapes in canvas pixels and the
// VinculoManual records stored on a part.
package vinculo

import (
	"errors"
	"fmt"

	"manual-markers/internal/catalog"
	"manual-markers/internal/coords"
	"manual-markers/internal/marker"
	"manual-markers/pkg/colorutil"
)

// ErrInvalidMarker is returned for records or shapes that cannot be mapped.
var ErrInvalidMarker = errors.New("invalid marker")

// DefaultDescription is the description given to a new marker.
func DefaultDescription(page int) string {
	return fmt.Sprintf("Marker on page %d", page)
}

// FromGeometry builds a record for shape drawn on a width x height surface
// showing page. Geometry is stored normalized and tagged as such.
func FromGeometry(shape marker.Shape, style marker.Style, page int, width, height float64) (catalog.VinculoManual, error) {
	if shape == nil {
		return catalog.VinculoManual{}, fmt.Errorf("%w: no shape", ErrInvalidMarker)
	}
	if width <= 0 || height <= 0 {
		return catalog.VinculoManual{}, fmt.Errorf("%w: surface %.0fx%.0f", ErrInvalidMarker, width, height)
	}
	if page < 1 {
		return catalog.VinculoManual{}, fmt.Errorf("%w: page %d", ErrInvalidMarker, page)
	}

	v := catalog.VinculoManual{
		Pagina:      page,
		Coordenadas: coords.ToNormalized(shape.Bounds(), width, height),
		Color:       colorutil.FormatCSS(style.Fill),
		Descripcion: DefaultDescription(page),
		SinBorde:    style.SinBorde,
		Formato:     coords.FormatNormalized,
	}
	switch s := shape.(type) {
	case marker.Rect:
		v.Forma = catalog.FormaRectangulo
	case marker.Ellipse:
		v.Forma = catalog.FormaCirculo
	case marker.Polygon:
		if len(s.Points) < 3 {
			return catalog.VinculoManual{}, fmt.Errorf("%w: polygon with %d points", ErrInvalidMarker, len(s.Points))
		}
		v.Forma = catalog.FormaPoligono
		v.Puntos = coords.PointsToNormalized(s.Points, width, height)
	default:
		return catalog.VinculoManual{}, fmt.Errorf("%w: unsupported shape %T", ErrInvalidMarker, shape)
	}
	return v, nil
}

// ToGeometry resolves a stored record into a shape on a width x height
// surface rendered at scale. Untagged records go through the value-range
// heuristic.
func ToGeometry(v catalog.VinculoManual, width, height, scale float64) (marker.Shape, marker.Style, error) {
	if err := v.Validate(); err != nil {
		return nil, marker.Style{}, fmt.Errorf("%w: %v", ErrInvalidMarker, err)
	}
	style := marker.Style{Fill: colorutil.MustParseCSS(v.Color), SinBorde: v.SinBorde}
	box := coords.Resolve(v.Coordenadas, v.Formato, width, height, scale)

	switch v.Forma {
	case catalog.FormaRectangulo:
		return marker.Rect{Box: box}, style, nil
	case catalog.FormaCirculo:
		return marker.Ellipse{Box: box}, style, nil
	case catalog.FormaPoligono:
		pts := coords.ResolvePoints(v.Puntos, v.Coordenadas, v.Formato, width, height, scale)
		return marker.Polygon{Points: pts}, style, nil
	}
	return nil, marker.Style{}, fmt.Errorf("%w: forma %q", ErrInvalidMarker, v.Forma)
}

// OnPage resolves every record of part that sits on page. Each item's Ref is
// the record's index in part.Vinculos. Records that fail to resolve are
// returned separately by index.
func OnPage(part catalog.Repuesto, page int, width, height, scale float64) ([]marker.Item, map[int]error) {
	var items []marker.Item
	var bad map[int]error
	for i, v := range part.Vinculos {
		if v.Pagina != page {
			continue
		}
		s, st, err := ToGeometry(v, width, height, scale)
		if err != nil {
			if bad == nil {
				bad = make(map[int]error)
			}
			bad[i] = err
			continue
		}
		items = append(items, marker.Item{Shape: s, Style: st, Ref: i})
	}
	return items, bad
}
