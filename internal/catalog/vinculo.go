package catalog

import (
	"errors"
	"fmt"

	"manual-markers/internal/coords"
	"manual-markers/pkg/geometry"
)

// Shape names as stored in VinculoManual.Forma.
const (
	FormaRectangulo = "rectangulo"
	FormaCirculo    = "circulo"
	FormaPoligono   = "poligono"
)

// VinculoManual links a part to a region of a manual page.
type VinculoManual struct {
	Pagina      int                `json:"pagina"`
	Forma       string             `json:"forma"`
	Coordenadas geometry.Rect      `json:"coordenadas"`
	Puntos      []geometry.Point2D `json:"puntos,omitempty"`
	Color       string             `json:"color"`
	Descripcion string             `json:"descripcion"`
	SinBorde    bool               `json:"sinBorde"`

	// Formato is empty on records written before it was introduced.
	Formato coords.Format `json:"formato,omitempty"`
}

// Validate checks the structural invariants of a stored marker.
func (v VinculoManual) Validate() error {
	if v.Pagina < 1 {
		return fmt.Errorf("pagina must be >= 1, got %d", v.Pagina)
	}
	switch v.Forma {
	case FormaRectangulo, FormaCirculo:
	case FormaPoligono:
		if len(v.Puntos) < 3 {
			return fmt.Errorf("poligono needs at least 3 puntos, got %d", len(v.Puntos))
		}
	default:
		return fmt.Errorf("unknown forma %q", v.Forma)
	}
	if v.Coordenadas.Width < 0 || v.Coordenadas.Height < 0 {
		return errors.New("coordenadas has negative size")
	}
	return nil
}

// Normalized reports whether the record's geometry is in unit space.
func (v VinculoManual) Normalized() bool {
	return coords.Detect(v.Coordenadas, v.Formato) == coords.FormatNormalized
}
