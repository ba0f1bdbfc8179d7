package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"manual-markers/internal/textindex"
	"manual-markers/internal/viewer"
)

// SearchPanel runs text searches over the open manual and lists the pages
// that match.
type SearchPanel struct {
	session   *viewer.Session
	container fyne.CanvasObject

	entry    *widget.Entry
	status   *widget.Label
	progress *widget.ProgressBar
	hits     *widget.List

	// OnFindParts offers the query to the parts filter.
	OnFindParts func(query string)
}

// NewSearchPanel creates the panel for session.
func NewSearchPanel(session *viewer.Session) *SearchPanel {
	sp := &SearchPanel{session: session}

	sp.entry = widget.NewEntry()
	sp.entry.SetPlaceHolder("Buscar en el manual")
	sp.entry.OnSubmitted = sp.find
	sp.entry.OnChanged = func(s string) {
		if s == "" {
			sp.find("")
		}
	}

	sp.status = widget.NewLabel("")
	sp.progress = widget.NewProgressBar()
	sp.progress.Hide()

	sp.hits = widget.NewList(
		func() int { return len(session.Search().Hits()) },
		func() fyne.CanvasObject {
			l := widget.NewLabel("Page excerpt")
			l.Wrapping = fyne.TextWrapWord
			return l
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			hits := session.Search().Hits()
			if id < len(hits) {
				h := hits[id]
				obj.(*widget.Label).SetText(fmt.Sprintf("Pág. %d (%d): %s", h.Page, h.Count, h.Excerpt))
			}
		},
	)
	sp.hits.OnSelected = func(id widget.ListItemID) {
		session.SelectHit(id)
	}

	prev := widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() {
		session.PrevHit()
		sp.syncSelection()
	})
	next := widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() {
		session.NextHit()
		sp.syncSelection()
	})
	parts := widget.NewButton("Buscar repuesto", func() {
		if sp.OnFindParts != nil && sp.entry.Text != "" {
			sp.OnFindParts(sp.entry.Text)
		}
	})

	top := container.NewVBox(
		container.NewBorder(nil, nil, nil, container.NewHBox(prev, next), sp.entry),
		container.NewHBox(sp.status, parts),
		sp.progress,
	)
	sp.container = container.NewBorder(top, nil, nil, nil, sp.hits)
	return sp
}

// Container returns the panel container.
func (sp *SearchPanel) Container() fyne.CanvasObject {
	return sp.container
}

func (sp *SearchPanel) find(q string) {
	switch sp.session.Find(q) {
	case textindex.NotSearched:
		sp.status.SetText("")
	case textindex.NoMatches:
		sp.status.SetText("Sin coincidencias")
	case textindex.HasMatches:
		sp.status.SetText(fmt.Sprintf("%d páginas", len(sp.session.Search().Hits())))
	}
	sp.hits.UnselectAll()
	sp.hits.Refresh()
}

func (sp *SearchPanel) syncSelection() {
	if _, i, ok := sp.session.Search().Current(); ok {
		sp.hits.ScrollTo(i)
	}
}

// IndexProgress shows the text index build.
func (sp *SearchPanel) IndexProgress(done, total int) {
	if total == 0 || done >= total {
		sp.progress.Hide()
		return
	}
	sp.progress.Show()
	sp.progress.SetValue(float64(done) / float64(total))
}

// Reset clears the query and results, e.g. when another manual opens.
func (sp *SearchPanel) Reset() {
	sp.entry.SetText("")
	sp.status.SetText("")
	sp.hits.Refresh()
}
