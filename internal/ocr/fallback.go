package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"manual-markers/internal/coords"
	"manual-markers/internal/metrics"
	"manual-markers/internal/pdfdoc"
	"manual-markers/pkg/geometry"
)

// Recognizer finds words on a rendered page. *Engine satisfies it.
type Recognizer interface {
	Words(img *image.RGBA) ([]Word, error)
}

// FallbackSource serves text runs from the document's own text layer and
// falls back to OCR for pages whose layer is empty or unreadable. It
// satisfies textindex.PageSource.
type FallbackSource struct {
	Doc        pdfdoc.Document
	Recognizer Recognizer
	// Scale is the render scale used for recognition.
	Scale  float64
	Logger *zap.Logger
}

func (f *FallbackSource) NumPages() int { return f.Doc.NumPages() }

// TextRuns returns the page's runs, recognized words converted to runs in
// content space when the text layer yields nothing.
func (f *FallbackSource) TextRuns(ctx context.Context, page int) ([]pdfdoc.TextRun, error) {
	runs, err := f.Doc.TextRuns(ctx, page)
	if err == nil && hasText(runs) {
		return runs, nil
	}
	if f.Recognizer == nil {
		return runs, err
	}
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err != nil {
		logger.Debug("text layer unreadable, trying OCR", zap.Int("page", page), zap.Error(err))
	}

	scale := f.Scale
	if scale <= 0 {
		scale = 2
	}
	size, serr := f.Doc.PageSize(page)
	if serr != nil {
		return nil, serr
	}
	img, rerr := f.Doc.Render(ctx, page, scale)
	if rerr != nil {
		return nil, fmt.Errorf("render page %d for OCR: %w", page, rerr)
	}
	if !HasInk(img, 4) {
		return nil, nil
	}
	words, werr := f.Recognizer.Words(img)
	if werr != nil {
		return nil, fmt.Errorf("OCR page %d: %w", page, werr)
	}
	metrics.OCRPages.Inc()

	out, cerr := WordRuns(words, coords.Viewport{Scale: scale, PageHeight: size.Height})
	if cerr != nil {
		return nil, cerr
	}
	logger.Debug("page recognized", zap.Int("page", page), zap.Int("words", len(out)))
	return out, nil
}

// WordRuns converts pixel word boxes into text runs whose baseline sits on
// the bottom edge of each box, so highlights land back on the box.
func WordRuns(words []Word, vp coords.Viewport) ([]pdfdoc.TextRun, error) {
	if vp.Scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", vp.Scale)
	}
	runs := make([]pdfdoc.TextRun, 0, len(words))
	for _, w := range words {
		origin, err := vp.ToContent(geometry.Point2D{X: float64(w.Box.Min.X), Y: float64(w.Box.Max.Y)})
		if err != nil {
			return nil, err
		}
		h := float64(w.Box.Dy()) / vp.Scale
		runs = append(runs, pdfdoc.TextRun{
			Str:       w.Text,
			Transform: [6]float64{h, 0, 0, h, origin.X, origin.Y},
			Width:     float64(w.Box.Dx()) / vp.Scale,
			Height:    h,
		})
	}
	return runs, nil
}

func hasText(runs []pdfdoc.TextRun) bool {
	for _, r := range runs {
		if strings.TrimSpace(r.Str) != "" {
			return true
		}
	}
	return false
}
