// Package catalog holds the spare-part records the manual markers link to,
// and the document store that persists them.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CodigoPendiente marks an external code that has not been assigned yet.
const CodigoPendiente = "pendiente"

// Repuesto is a catalog part.
type Repuesto struct {
	ID            string          `json:"id"`
	CodigoSAP     string          `json:"codigoSAP"`
	CodigoBaader  string          `json:"codigoBaader"`
	TextoBreve    string          `json:"textoBreve"`
	Descripcion   string          `json:"descripcion"`
	ValorUnitario decimal.Decimal `json:"valorUnitario"`
	Maquina       string          `json:"maquina,omitempty"`
	Tags          []TagAsignado   `json:"tags,omitempty"`
	Vinculos      []VinculoManual `json:"vinculos,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewRepuesto creates a part with a fresh id and both codes pending.
func NewRepuesto(textoBreve string) *Repuesto {
	now := time.Now().UTC()
	return &Repuesto{
		ID:           uuid.NewString(),
		CodigoSAP:    CodigoPendiente,
		CodigoBaader: CodigoPendiente,
		TextoBreve:   textoBreve,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks the record invariants.
func (r *Repuesto) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if r.ValorUnitario.IsNegative() {
		errs = append(errs, fmt.Errorf("valorUnitario must be non-negative, got %s", r.ValorUnitario))
	}
	for i, t := range r.Tags {
		if t.Cantidad < 0 {
			errs = append(errs, fmt.Errorf("tag %d (%s): cantidad must be non-negative", i, t.Nombre))
		}
	}
	for i, v := range r.Vinculos {
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("vinculo %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// SAPPending reports whether the SAP code is unassigned.
func (r *Repuesto) SAPPending() bool {
	return isPending(r.CodigoSAP)
}

// BaaderPending reports whether the Baader code is unassigned.
func (r *Repuesto) BaaderPending() bool {
	return isPending(r.CodigoBaader)
}

func isPending(code string) bool {
	code = strings.TrimSpace(code)
	return code == "" || strings.EqualFold(code, CodigoPendiente)
}

// Label is a short human identifier for lists and dialogs.
func (r *Repuesto) Label() string {
	code := r.CodigoSAP
	if r.SAPPending() {
		code = r.CodigoBaader
	}
	if isPending(code) {
		return r.TextoBreve
	}
	return code + " " + r.TextoBreve
}

// VinculosOnPage returns the markers of this part on a manual page, with
// their index in Vinculos.
func (r *Repuesto) VinculosOnPage(page int) map[int]VinculoManual {
	out := make(map[int]VinculoManual)
	for i, v := range r.Vinculos {
		if v.Pagina == page {
			out[i] = v
		}
	}
	return out
}
