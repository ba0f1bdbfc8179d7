package pdfdoc

import (
	"fmt"
	"io"
	"math"

	"github.com/ledongthuc/pdf"
)

// newTextReader opens the text layer; the parser panics on some malformed
// files, which is reported as an error.
func newTextReader(r io.ReaderAt, size int64) (tr *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			tr, err = nil, fmt.Errorf("text layer: %v", p)
		}
	}()
	return pdf.NewReader(r, size)
}

// extractRuns reads one page's glyphs and merges them into runs.
func extractRuns(r *pdf.Reader, page int) (runs []TextRun, err error) {
	defer func() {
		if p := recover(); p != nil {
			runs, err = nil, fmt.Errorf("extract page %d: %v", page, p)
		}
	}()
	p := r.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d: %w", page, ErrPageRange)
	}
	return mergeGlyphs(p.Content().Text), nil
}

// mergeGlyphs joins consecutive glyphs on the same baseline with the same
// font size into a single run. A gap wider than a quarter em, a baseline
// change or a move backwards starts a new run.
func mergeGlyphs(glyphs []pdf.Text) []TextRun {
	var runs []TextRun
	var cur *TextRun
	var end float64

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		fs := g.FontSize
		if fs <= 0 {
			fs = 1
		}
		if cur != nil {
			sameLine := math.Abs(g.Y-cur.Transform[5]) < fs*0.2 && math.Abs(fs-cur.Height) < 0.01
			gap := g.X - end
			if sameLine && gap > -fs*0.5 && gap < fs*0.25 {
				cur.Str += g.S
				end = g.X + g.W
				cur.Width = end - cur.Transform[4]
				continue
			}
			runs = append(runs, *cur)
		}
		cur = &TextRun{
			Str:       g.S,
			Transform: [6]float64{fs, 0, 0, fs, g.X, g.Y},
			Width:     g.W,
			Height:    fs,
		}
		end = g.X + g.W
	}
	if cur != nil {
		runs = append(runs, *cur)
	}
	return runs
}
