package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TipoTag separates request contexts from stock contexts.
type TipoTag string

const (
	TipoSolicitud TipoTag = "solicitud"
	TipoStock     TipoTag = "stock"
)

// TagAsignado is a part's quantity under a named context.
type TagAsignado struct {
	Nombre   string    `json:"nombre"`
	Tipo     TipoTag   `json:"tipo"`
	Cantidad int       `json:"cantidad"`
	Fecha    time.Time `json:"fecha"`

	// Legacy is set when the tag was decoded from a bare string.
	Legacy bool `json:"-"`
}

var stockHints = []string{"stock", "inventario", "bodega"}

// InferTipo guesses the context type of a legacy tag from its name.
func InferTipo(nombre string) TipoTag {
	n := strings.ToLower(nombre)
	for _, h := range stockHints {
		if strings.Contains(n, h) {
			return TipoStock
		}
	}
	return TipoSolicitud
}

// UnmarshalJSON accepts the object form and the legacy bare-string form.
func (t *TagAsignado) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TagAsignado{Nombre: s, Tipo: InferTipo(s), Legacy: true}
		return nil
	}
	type plain TagAsignado
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode tag: %w", err)
	}
	if p.Tipo == "" {
		p.Tipo = InferTipo(p.Nombre)
	}
	*t = TagAsignado(p)
	return nil
}

// AssignTag sets the quantity for (nombre, tipo), adding the tag if absent.
func (r *Repuesto) AssignTag(nombre string, tipo TipoTag, cantidad int, at time.Time) error {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return fmt.Errorf("tag name is required")
	}
	if tipo != TipoSolicitud && tipo != TipoStock {
		return fmt.Errorf("unknown tag type %q", tipo)
	}
	if cantidad < 0 {
		return fmt.Errorf("cantidad must be non-negative, got %d", cantidad)
	}
	for i := range r.Tags {
		if r.Tags[i].Nombre == nombre && r.Tags[i].Tipo == tipo {
			r.Tags[i].Cantidad = cantidad
			r.Tags[i].Fecha = at
			r.Tags[i].Legacy = false
			return nil
		}
	}
	r.Tags = append(r.Tags, TagAsignado{Nombre: nombre, Tipo: tipo, Cantidad: cantidad, Fecha: at})
	return nil
}

// RemoveTag drops the (nombre, tipo) tag. Reports whether one was removed.
func (r *Repuesto) RemoveTag(nombre string, tipo TipoTag) bool {
	for i, t := range r.Tags {
		if t.Nombre == nombre && t.Tipo == tipo {
			r.Tags = append(r.Tags[:i], r.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// Tag looks up the tag for (nombre, tipo).
func (r *Repuesto) Tag(nombre string, tipo TipoTag) (TagAsignado, bool) {
	for _, t := range r.Tags {
		if t.Nombre == nombre && t.Tipo == tipo {
			return t, true
		}
	}
	return TagAsignado{}, false
}
