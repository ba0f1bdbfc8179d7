// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"manual-markers/internal/app"
	"manual-markers/internal/catalog"
	"manual-markers/internal/config"
	"manual-markers/internal/marker"
	"manual-markers/internal/ocr"
	"manual-markers/internal/preload"
	"manual-markers/internal/project"
	"manual-markers/internal/textindex"
	"manual-markers/internal/version"
	"manual-markers/internal/vinculo"
	"manual-markers/internal/viewer"
	"manual-markers/ui/canvas"
	"manual-markers/ui/dialogs"
	"manual-markers/ui/panels"
	"manual-markers/ui/prefs"
)

const (
	prefKeyLastDir     = "lastDirectory"
	prefKeyLastProject = "lastProject"
	editorZoomSuffix   = ".editor"
	watchInterval      = 2 * time.Second
)

// Deps are the services the window works with.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Opener     viewer.Opener
	Recognizer ocr.Recognizer
	Prefs      *prefs.Prefs
}

// MainWindow is the primary application window: the part list, the manual
// viewer and the manual search.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	deps   Deps
	logger *zap.Logger

	handoff *preload.Handoff
	// editorHandoff carries documents to marker editors only, so a reload
	// of the main viewer never takes an editor's preload.
	editorHandoff *preload.Handoff
	session       *viewer.Session
	canvas  *canvas.ManualCanvas
	parts   *panels.PartsPanel
	search  *panels.SearchPanel

	pageEntry *widget.Entry
	pageTotal *widget.Label
	zoomLabel *widget.Label
	statusBar *widget.Label

	watcher *app.ManualWatcher
}

// New creates the main window.
func New(fyneApp fyne.App, state *app.State, deps Deps) *MainWindow {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mw := &MainWindow{
		Window:  fyneApp.NewWindow("Manuales de repuestos"),
		app:     fyneApp,
		state:   state,
		deps:    deps,
		logger:  logger,
		handoff: preload.New(logger.Named("preload")),
	}
	mw.editorHandoff = preload.New(logger.Named("preload.editor"))

	mw.session = viewer.NewSession(mw.sessionOptions(mw.handoff, viewer.ViewerLimits, "", state.MarkersOn))
	mw.session.Controller().OnChange(mw.viewChanged)

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.SetOnClosed(mw.shutdown)
	return mw
}

func (mw *MainWindow) sessionOptions(handoff *preload.Handoff, limits viewer.Limits, zoomSuffix string, markers viewer.MarkerSource) viewer.Options {
	cfg := mw.deps.Config.Viewer
	touch := fyne.CurrentDevice().IsMobile()
	return viewer.Options{
		Opener:       mw.deps.Opener,
		Handoff:      handoff,
		Logger:       mw.logger.Named("viewer"),
		Limits:       limits,
		Zoom:         viewer.NewZoomStore(mw.deps.Prefs, cfg.ZoomKey+zoomSuffix, touch, limits),
		Debounce:     cfg.RenderDebounce(),
		GapThreshold: cfg.GapThreshold,
		Recognizer:   mw.deps.Recognizer,
		OCRScale:     mw.deps.Config.OCR.Scale,
		Markers:      markers,
		OnRedraw:     mw.redrawn,
		OnStatus:     mw.statusChanged,
		OnIndexProgress: func(done, total int) {
			if mw.search != nil {
				mw.search.IndexProgress(done, total)
			}
		},
	}
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewManualCanvas(mw.session)

	mw.parts = panels.NewPartsPanel(mw.state)
	mw.parts.OnNewMarker = func() { mw.openEditor(-1, nil) }
	mw.parts.OnShowMarker = func(v catalog.VinculoManual) {
		mw.session.Controller().GoTo(v.Pagina)
	}
	mw.parts.OnEditMarker = func(index int, v catalog.VinculoManual) { mw.openEditor(index, &v) }
	mw.parts.OnDeleteMarker = mw.onDeleteMarker
	mw.canvas.OnMarkerTapped = mw.onMarkerTapped

	mw.search = panels.NewSearchPanel(mw.session)
	mw.search.OnFindParts = mw.parts.Filter

	mw.statusBar = widget.NewLabel("Listo")

	canvasArea := container.NewBorder(
		mw.createToolbar(),
		nil,
		nil,
		nil,
		mw.canvas.Container(),
	)

	right := container.NewHSplit(canvasArea, mw.search.Container())
	right.SetOffset(0.75)
	split := container.NewHSplit(mw.parts.Container(), right)
	split.SetOffset(0.25)

	mw.SetContent(container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	))
	mw.Resize(fyne.NewSize(1400, 900))
}

// createToolbar creates the page and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	ctrl := mw.session.Controller()

	mw.pageEntry = widget.NewEntry()
	mw.pageEntry.SetPlaceHolder("1")
	mw.pageEntry.OnSubmitted = func(s string) {
		n, err := strconv.Atoi(s)
		if err != nil {
			mw.viewChanged(ctrl.View())
			return
		}
		ctrl.GoTo(n)
	}
	mw.pageTotal = widget.NewLabel("/ -")
	mw.zoomLabel = widget.NewLabel("")

	return container.NewHBox(
		widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() { ctrl.Prev() }),
		container.NewGridWrap(fyne.NewSize(60, mw.pageEntry.MinSize().Height), mw.pageEntry),
		mw.pageTotal,
		widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() { ctrl.Next() }),
		widget.NewSeparator(),
		widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { ctrl.ZoomOut() }),
		mw.zoomLabel,
		widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { ctrl.ZoomIn() }),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	ctrl := mw.session.Controller()

	fileMenu := fyne.NewMenu("Archivo",
		fyne.NewMenuItem("Abrir proyecto...", mw.onOpenProject),
		fyne.NewMenuItem("Elegir manual...", mw.onChooseManual),
		fyne.NewMenuItem("Manual desde URL...", mw.onManualURL),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Recargar manual", mw.reloadManual),
	)
	viewMenu := fyne.NewMenu("Ver",
		fyne.NewMenuItem("Acercar", func() { ctrl.ZoomIn() }),
		fyne.NewMenuItem("Alejar", func() { ctrl.ZoomOut() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Página anterior", func() { ctrl.Prev() }),
		fyne.NewMenuItem("Página siguiente", func() { ctrl.Next() }),
		fyne.NewMenuItemSeparator(),
	)
	showMarkers := fyne.NewMenuItem("Mostrar marcadores", nil)
	showMarkers.Checked = true
	showMarkers.Action = func() {
		showMarkers.Checked = !showMarkers.Checked
		mw.session.Surface().SetOverlayVisible(showMarkers.Checked)
		mw.canvas.PageChanged()
		viewMenu.Refresh()
	}
	viewMenu.Items = append(viewMenu.Items, showMarkers)
	helpMenu := fyne.NewMenu("Ayuda",
		fyne.NewMenuItem("Acerca de", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventProjectLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle("Manuales de repuestos - " + filepath.Base(path))
			mw.deps.Prefs.SetString(prefKeyLastProject, path)
			mw.updateStatus("Proyecto abierto: " + path)
		}
	})
	mw.state.On(app.EventManualChanged, func(data interface{}) {
		if url, ok := data.(string); ok {
			mw.openManual(url)
		}
	})
	mw.state.On(app.EventPartsChanged, func(data interface{}) {
		if n, ok := data.(int); ok {
			mw.updateStatus(fmt.Sprintf("%d repuestos", n))
		}
	})
	redraw := func(interface{}) { mw.session.Redraw() }
	mw.state.On(app.EventSelectionChanged, redraw)
	mw.state.On(app.EventMarkersChanged, redraw)
}

// openManual shows url in the viewer and watches it when it is a local
// file.
func (mw *MainWindow) openManual(url string) {
	if mw.watcher != nil {
		mw.watcher.Stop()
		mw.watcher = nil
	}
	mw.handoff.Clear()
	mw.search.Reset()
	if url == "" {
		mw.session.Unload()
		mw.canvas.ShowStatus(viewer.StatusEmpty, nil)
		mw.updateStatus("El proyecto no tiene manual")
		return
	}
	if w := app.NewManualWatcher(url, watchInterval, func(path string) {
		mw.logger.Info("manual changed on disk", zap.String("path", path))
		mw.reloadManual()
	}); w != nil {
		mw.watcher = w
		w.Start()
	}
	go mw.session.Open(context.Background(), url)
}

func (mw *MainWindow) reloadManual() {
	if url := mw.state.ManualURL(); url != "" {
		mw.search.Reset()
		go mw.session.Open(context.Background(), url)
	}
}

func (mw *MainWindow) viewChanged(v viewer.View) {
	if mw.pageEntry == nil {
		return
	}
	if v.Total == 0 {
		mw.pageEntry.SetText("")
		mw.pageTotal.SetText("/ -")
	} else {
		mw.pageEntry.SetText(strconv.Itoa(v.Page))
		mw.pageTotal.SetText(fmt.Sprintf("/ %d", v.Total))
	}
	mw.zoomLabel.SetText(fmt.Sprintf("%.0f%%", v.Scale*100))
}

func (mw *MainWindow) redrawn() {
	if mw.canvas != nil {
		mw.canvas.PageChanged()
	}
}

func (mw *MainWindow) statusChanged(st viewer.Status, err error) {
	if mw.canvas == nil {
		return
	}
	mw.canvas.ShowStatus(st, err)
	switch st {
	case viewer.StatusLoading:
		mw.updateStatus("Cargando manual...")
	case viewer.StatusReady:
		mw.updateStatus(mw.session.URL())
	case viewer.StatusError:
		mw.updateStatus("Error al abrir el manual")
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	if mw.statusBar != nil {
		mw.statusBar.SetText(text)
	}
}

// openEditor loads the manual for a marker editor in the background,
// passes it along with the finished text index, and opens the editor. With
// existing nil a new marker is drawn on the page being viewed; otherwise
// marker index is redrawn in place.
func (mw *MainWindow) openEditor(index int, existing *catalog.VinculoManual) {
	part := mw.state.Selected()
	url := mw.state.ManualURL()
	if part == nil || url == "" {
		return
	}
	page := mw.session.Controller().View().Page
	mw.updateStatus("Preparando editor...")

	go func() {
		doc, err := mw.deps.Opener.Open(context.Background(), url)
		if err != nil {
			mw.logger.Warn("editor preload failed", zap.String("url", url), zap.Error(err))
		} else {
			var ix *textindex.Index
			if cur := mw.session.Index(); cur != nil && cur.Complete() {
				ix = textindex.FromEntries(cur.Entries())
			}
			mw.editorHandoff.Offer(url, doc, ix)
		}

		defaults := project.MarkerDefaults{}
		if mw.state.Project != nil {
			defaults = mw.state.Project.Defaults
		}
		onSave := mw.onMarkerSaved
		if existing != nil {
			descripcion := existing.Descripcion
			onSave = func(v catalog.VinculoManual) {
				v.Descripcion = descripcion
				mw.onMarkerUpdated(index, v)
			}
		}
		ed := dialogs.NewMarkerEditorWindow(mw.app,
			mw.sessionOptions(mw.editorHandoff, viewer.EditorLimits, editorZoomSuffix, nil),
			url, page, part.Label(), defaults, existing, mw.deps.Config.Viewer.CloseRadius,
			onSave, func() { mw.updateStatus("Marcador descartado") },
		)
		ed.Show()
	}()
}

func (mw *MainWindow) onMarkerSaved(v catalog.VinculoManual) {
	if _, err := mw.state.SaveMarker(context.Background(), v); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus(fmt.Sprintf("Marcador guardado en la página %d", v.Pagina))
	mw.session.Controller().GoTo(v.Pagina)
}

func (mw *MainWindow) onMarkerUpdated(index int, v catalog.VinculoManual) {
	if err := mw.state.UpdateMarker(context.Background(), index, v); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus(fmt.Sprintf("Marcador actualizado en la página %d", v.Pagina))
	mw.session.Controller().GoTo(v.Pagina)
}

// onMarkerTapped shows the description of a saved marker clicked in the
// viewer.
func (mw *MainWindow) onMarkerTapped(it marker.Item) {
	part := mw.state.Selected()
	if part == nil || it.Ref < 0 || it.Ref >= len(part.Vinculos) {
		return
	}
	v := part.Vinculos[it.Ref]
	desc := v.Descripcion
	if desc == "" {
		desc = vinculo.DefaultDescription(v.Pagina)
	}
	mw.updateStatus(fmt.Sprintf("%s: %s", part.Label(), desc))
}

func (mw *MainWindow) onDeleteMarker(index int) {
	dialog.ShowConfirm("Eliminar marcador", "¿Eliminar este marcador?", func(ok bool) {
		if !ok {
			return
		}
		if err := mw.state.DeleteMarker(context.Background(), index); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.deps.Prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.deps.Prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// OpenProject loads path, reporting failures in a dialog.
func (mw *MainWindow) OpenProject(path string) {
	if err := mw.state.OpenProject(context.Background(), path); err != nil {
		mw.logger.Error("open project failed", zap.String("path", path), zap.Error(err))
		dialog.ShowError(err, mw.Window)
	}
}

// RestoreLastProject reopens the project used in the previous run.
func (mw *MainWindow) RestoreLastProject() bool {
	path := mw.deps.Prefs.String(prefKeyLastProject)
	if path == "" {
		return false
	}
	mw.OpenProject(path)
	return true
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.OpenProject(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{project.Extension}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onChooseManual() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.setManual(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onManualURL() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("https://... o s3://bucket/manual.pdf")
	dialog.ShowForm("Manual desde URL", "Abrir", "Cancelar",
		[]*widget.FormItem{widget.NewFormItem("URL", entry)},
		func(ok bool) {
			if ok && entry.Text != "" {
				mw.setManual(entry.Text)
			}
		}, mw.Window)
}

func (mw *MainWindow) setManual(manual string) {
	if err := mw.state.SetManual(manual); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("Acerca de",
		fmt.Sprintf("Manuales de repuestos %s\n\n"+
			"Marcadores sobre manuales PDF para el catálogo de repuestos.",
			version.String()),
		mw.Window)
}

// SavePreferencesIfChanged writes preferences when they changed.
func (mw *MainWindow) SavePreferencesIfChanged() {
	if err := mw.deps.Prefs.SaveIfChanged(); err != nil {
		mw.logger.Warn("saving preferences", zap.Error(err))
	}
}

func (mw *MainWindow) shutdown() {
	if mw.watcher != nil {
		mw.watcher.Stop()
	}
	mw.handoff.Clear()
	mw.editorHandoff.Clear()
	mw.session.Close()
	mw.SavePreferencesIfChanged()
}
