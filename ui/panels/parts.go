// Package panels provides the side panels of the main window.
package panels

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"manual-markers/internal/app"
	"manual-markers/internal/catalog"
)

// PartsPanel lists the machine's parts with a filter, and the markers of
// the selected part.
type PartsPanel struct {
	state     *app.State
	container fyne.CanvasObject

	filter  *widget.Entry
	list    *widget.List
	markers *widget.List
	info    *widget.Label

	mu    sync.Mutex
	shown []*catalog.Repuesto

	// OnNewMarker opens the marker editor for the selected part.
	OnNewMarker func()
	// OnShowMarker navigates the viewer to a marker's page.
	OnShowMarker func(v catalog.VinculoManual)
	// OnEditMarker reopens marker index of the selected part in the editor.
	OnEditMarker func(index int, v catalog.VinculoManual)
	// OnDeleteMarker removes marker index of the selected part.
	OnDeleteMarker func(index int)
}

// NewPartsPanel creates the panel.
func NewPartsPanel(state *app.State) *PartsPanel {
	pp := &PartsPanel{state: state}

	pp.filter = widget.NewEntry()
	pp.filter.SetPlaceHolder("Filtrar por código o texto")
	pp.filter.OnChanged = func(string) { pp.Reload() }

	pp.list = widget.NewList(
		func() int {
			pp.mu.Lock()
			defer pp.mu.Unlock()
			return len(pp.shown)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Part label")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			pp.mu.Lock()
			defer pp.mu.Unlock()
			if id < len(pp.shown) {
				p := pp.shown[id]
				obj.(*widget.Label).SetText(fmt.Sprintf("%s (%d)", p.Label(), len(p.Vinculos)))
			}
		},
	)
	pp.list.OnSelected = func(id widget.ListItemID) {
		pp.mu.Lock()
		var part *catalog.Repuesto
		if id < len(pp.shown) {
			part = pp.shown[id]
		}
		pp.mu.Unlock()
		if part != nil {
			state.Select(part.ID)
		}
	}

	pp.markers = widget.NewList(
		func() int {
			if p := state.Selected(); p != nil {
				return len(p.Vinculos)
			}
			return 0
		},
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil,
				container.NewHBox(widget.NewButton("Editar", nil), widget.NewButton("Eliminar", nil)),
				widget.NewLabel("Marker description"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			p := state.Selected()
			if p == nil || id >= len(p.Vinculos) {
				return
			}
			v := p.Vinculos[id]
			row := obj.(*fyne.Container)
			row.Objects[0].(*widget.Label).SetText(fmt.Sprintf("p.%d %s: %s", v.Pagina, v.Forma, v.Descripcion))
			idx := id
			actions := row.Objects[1].(*fyne.Container)
			actions.Objects[0].(*widget.Button).OnTapped = func() {
				if pp.OnEditMarker != nil {
					pp.OnEditMarker(idx, v)
				}
			}
			actions.Objects[1].(*widget.Button).OnTapped = func() {
				if pp.OnDeleteMarker != nil {
					pp.OnDeleteMarker(idx)
				}
			}
		},
	)
	pp.markers.OnSelected = func(id widget.ListItemID) {
		p := state.Selected()
		if p != nil && id < len(p.Vinculos) && pp.OnShowMarker != nil {
			pp.OnShowMarker(p.Vinculos[id])
		}
		pp.markers.UnselectAll()
	}

	pp.info = widget.NewLabel("Sin repuesto seleccionado")
	newBtn := widget.NewButton("Nuevo marcador", func() {
		if pp.OnNewMarker != nil && state.Selected() != nil {
			pp.OnNewMarker()
		}
	})
	newBtn.Importance = widget.HighImportance

	state.On(app.EventPartsChanged, func(interface{}) { pp.Reload() })
	state.On(app.EventSelectionChanged, func(interface{}) { pp.selectionChanged() })
	state.On(app.EventMarkersChanged, func(interface{}) { pp.selectionChanged() })

	pp.container = container.NewBorder(
		pp.filter,
		container.NewVBox(pp.info, newBtn),
		nil, nil,
		container.NewVSplit(pp.list, pp.markers),
	)
	return pp
}

// Container returns the panel container.
func (pp *PartsPanel) Container() fyne.CanvasObject {
	return pp.container
}

// Reload applies the filter to the state's parts.
func (pp *PartsPanel) Reload() {
	parts := pp.state.Parts()
	q := pp.filter.Text

	var shown []*catalog.Repuesto
	if q == "" {
		shown = parts
	} else {
		for _, m := range catalog.MatchParts(parts, q) {
			shown = append(shown, m.Part)
		}
	}
	pp.mu.Lock()
	pp.shown = shown
	pp.mu.Unlock()
	pp.list.Refresh()
	pp.selectionChanged()
}

// Filter sets the filter text, as when a search term is used to find the
// matching catalog row.
func (pp *PartsPanel) Filter(q string) {
	pp.filter.SetText(q)
}

func (pp *PartsPanel) selectionChanged() {
	p := pp.state.Selected()
	if p == nil {
		pp.info.SetText("Sin repuesto seleccionado")
	} else {
		pp.info.SetText(fmt.Sprintf("%s\nSAP %s · Baader %s · %d marcadores",
			p.TextoBreve, p.CodigoSAP, p.CodigoBaader, len(p.Vinculos)))
	}
	pp.markers.Refresh()
}
