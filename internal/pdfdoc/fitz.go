package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"manual-markers/pkg/geometry"
)

// fitzDocument rasterizes with MuPDF and reads text with a pure-Go parser
// over the same bytes.
type fitzDocument struct {
	mu    sync.Mutex // MuPDF context is not safe for concurrent use
	doc   *fitz.Document
	text  *pdf.Reader
	pages int
}

// FromBytes parses a PDF held in memory.
func FromBytes(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	// raster still works without a text layer
	text, _ := newTextReader(bytes.NewReader(data), int64(len(data)))
	return &fitzDocument{doc: doc, text: text, pages: doc.NumPage()}, nil
}

func (d *fitzDocument) NumPages() int { return d.pages }

func (d *fitzDocument) PageSize(page int) (geometry.Size, error) {
	if err := checkPage(page, d.pages); err != nil {
		return geometry.Size{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.doc.Bound(page - 1)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("page %d bounds: %w", page, err)
	}
	return geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

type renderResult struct {
	img *image.RGBA
	err error
}

// Render runs MuPDF on a goroutine. MuPDF cannot be interrupted, so a
// cancelled render returns at once and its raster is dropped when done.
func (d *fitzDocument) Render(ctx context.Context, page int, scale float64) (*image.RGBA, error) {
	if err := checkPage(page, d.pages); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	if ctx.Err() != nil {
		return nil, ErrRenderCancelled
	}

	done := make(chan renderResult, 1)
	go func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if ctx.Err() != nil {
			done <- renderResult{err: ErrRenderCancelled}
			return
		}
		img, err := d.doc.ImageDPI(page-1, 72*scale)
		done <- renderResult{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ErrRenderCancelled
	case res := <-done:
		if res.err != nil {
			if IsCancelled(res.err) {
				return nil, res.err
			}
			return nil, fmt.Errorf("render page %d: %w", page, res.err)
		}
		return res.img, nil
	}
}

func (d *fitzDocument) TextRuns(ctx context.Context, page int) ([]TextRun, error) {
	if err := checkPage(page, d.pages); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.text == nil {
		return nil, nil
	}
	return extractRuns(d.text, page)
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}
