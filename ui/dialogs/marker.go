// Package dialogs provides application dialogs.
package dialogs

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"manual-markers/internal/catalog"
	"manual-markers/internal/marker"
	"manual-markers/internal/project"
	"manual-markers/internal/viewer"
	"manual-markers/pkg/colorutil"
	"manual-markers/ui/canvas"
)

var shapeNames = []string{"Rectángulo", "Círculo", "Polígono"}

var shapeKinds = map[string]marker.Kind{
	"Rectángulo": marker.KindRect,
	"Círculo":    marker.KindEllipse,
	"Polígono":   marker.KindPolygon,
}

// MarkerEditorWindow lets the user draw one marker on a manual page, or
// redraw an existing one, and hands the resulting record to onSave.
type MarkerEditorWindow struct {
	app      fyne.App
	window   fyne.Window
	session  *viewer.Session
	editor   *marker.Editor
	canvas   *canvas.ManualCanvas
	url      string
	page     int
	title    string
	defaults project.MarkerDefaults
	existing *catalog.VinculoManual

	saveBtn *widget.Button
	undoBtn *widget.Button
	pageLbl *widget.Label

	onSave   func(catalog.VinculoManual)
	onCancel func()
}

// NewMarkerEditorWindow creates the editor for the manual at url, opened at
// page. When existing is set the editor starts on its page with its shape
// and style loaded. opts configures the editor's session; its callbacks are
// replaced.
func NewMarkerEditorWindow(a fyne.App, opts viewer.Options, url string, page int, title string,
	defaults project.MarkerDefaults, existing *catalog.VinculoManual, closeRadius float64,
	onSave func(catalog.VinculoManual), onCancel func()) *MarkerEditorWindow {

	if existing != nil {
		defaults = project.MarkerDefaults{Forma: existing.Forma, Color: existing.Color, SinBorde: existing.SinBorde}
		page = existing.Pagina
	}
	kind, err := marker.ParseKind(defaults.Forma)
	if err != nil {
		kind = marker.KindRect
	}
	ed := marker.NewEditor(kind, closeRadius)
	ed.SetStyle(marker.Style{Fill: colorutil.MustParseCSS(defaults.Color), SinBorde: defaults.SinBorde})

	d := &MarkerEditorWindow{
		app:      a,
		editor:   ed,
		url:      url,
		page:     page,
		title:    title,
		defaults: defaults,
		existing: existing,
		onSave:   onSave,
		onCancel: onCancel,
	}
	opts.Limits = viewer.EditorLimits
	opts.Markers = nil
	opts.OnRedraw = d.redrawn
	opts.OnStatus = d.statusChanged
	d.session = viewer.NewSession(opts)
	d.session.SetEditor(ed)
	return d
}

// Show opens the window and loads the manual.
func (d *MarkerEditorWindow) Show() {
	heading := "Nuevo marcador: "
	if d.existing != nil {
		heading = "Editar marcador: "
	}
	d.window = d.app.NewWindow(heading + d.title)
	d.canvas = canvas.NewManualCanvas(d.session)
	d.canvas.SetEditing(true)

	shape := widget.NewSelect(shapeNames, func(name string) {
		k := shapeKinds[name]
		d.session.Edit(func(e *marker.Editor) bool {
			e.SetKind(k)
			return true
		})
	})
	for name, k := range shapeKinds {
		if k == d.editor.Kind() {
			shape.SetSelected(name)
		}
	}

	border := widget.NewCheck("Sin borde", func(on bool) {
		d.session.Edit(func(e *marker.Editor) bool {
			st := e.Style()
			st.SinBorde = on
			e.SetStyle(st)
			return true
		})
	})
	border.SetChecked(d.defaults.SinBorde)

	colorBtn := widget.NewButtonWithIcon("Color", theme.ColorPaletteIcon(), d.pickColor)

	d.undoBtn = widget.NewButtonWithIcon("Deshacer punto", theme.ContentUndoIcon(), func() {
		d.session.Edit(func(e *marker.Editor) bool { return e.UndoLastPoint() })
	})

	ctrl := d.session.Controller()
	d.pageLbl = widget.NewLabel("")
	nav := container.NewHBox(
		widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() { ctrl.Prev() }),
		d.pageLbl,
		widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() { ctrl.Next() }),
		widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { ctrl.ZoomOut() }),
		widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { ctrl.ZoomIn() }),
	)

	d.saveBtn = widget.NewButton("Guardar", d.save)
	d.saveBtn.Importance = widget.HighImportance
	d.saveBtn.Disable()
	cancelBtn := widget.NewButton("Cancelar", d.cancel)

	toolbar := container.NewHBox(shape, colorBtn, border, d.undoBtn, nav)
	buttons := container.NewHBox(layout.NewSpacer(), cancelBtn, d.saveBtn)

	d.window.SetContent(container.NewBorder(toolbar, buttons, nil, nil, d.canvas))
	d.window.SetOnClosed(func() { go d.session.Close() })
	d.window.Resize(fyne.NewSize(1000, 800))
	d.window.Show()

	go func() {
		d.session.Open(context.Background(), d.url)
		switch {
		case d.existing != nil:
			d.session.EditMarker(*d.existing)
		case d.page > 1:
			ctrl.GoTo(d.page)
		}
	}()
}

func (d *MarkerEditorWindow) pickColor() {
	picker := dialog.NewColorPicker("Color del marcador", "", func(c color.Color) {
		fill := colorutil.FromColor(c)
		d.session.Edit(func(e *marker.Editor) bool {
			st := e.Style()
			st.Fill = fill
			e.SetStyle(st)
			return true
		})
	}, d.window)
	picker.Advanced = true
	picker.Show()
}

func (d *MarkerEditorWindow) redrawn() {
	if d.canvas == nil {
		return
	}
	d.canvas.PageChanged()
	v := d.session.Controller().View()
	if d.pageLbl != nil {
		d.pageLbl.SetText(pageLabel(v))
	}
	if d.saveBtn != nil {
		if d.editor.CanSave() {
			d.saveBtn.Enable()
		} else {
			d.saveBtn.Disable()
		}
	}
}

func (d *MarkerEditorWindow) statusChanged(st viewer.Status, err error) {
	if d.canvas != nil {
		d.canvas.ShowStatus(st, err)
	}
}

func (d *MarkerEditorWindow) save() {
	v, err := d.session.Capture()
	if err != nil {
		if errors.Is(err, marker.ErrIncompleteGeometry) {
			return
		}
		dialog.ShowError(err, d.window)
		return
	}
	if d.onSave != nil {
		d.onSave(v)
	}
	d.window.Close()
}

func (d *MarkerEditorWindow) cancel() {
	if d.onCancel != nil {
		d.onCancel()
	}
	d.window.Close()
}

func pageLabel(v viewer.View) string {
	if v.Total == 0 {
		return "-"
	}
	return fmt.Sprintf("%d / %d", v.Page, v.Total)
}
