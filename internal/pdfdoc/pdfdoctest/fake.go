// Package pdfdoctest provides an in-memory pdfdoc.Document for tests.
package pdfdoctest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"manual-markers/internal/pdfdoc"
	"manual-markers/pkg/geometry"
)

// Page is the content of one fake page.
type Page struct {
	Size geometry.Size
	Runs []pdfdoc.TextRun
	// TextErr makes TextRuns fail for this page.
	TextErr error
}

// Document is a fake manual. Render paints the whole raster with a gray
// level equal to the page number so tests can tell pages apart.
type Document struct {
	mu       sync.Mutex
	pages    []Page
	closed   bool
	renders  int
	textRead []int

	// RenderHook, when set, runs before a render returns; it may block.
	RenderHook func(ctx context.Context, page int, scale float64)
}

// New creates a document with the given pages.
func New(pages ...Page) *Document {
	return &Document{pages: pages}
}

// Blank creates n letter-size pages without text.
func Blank(n int) *Document {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Size: geometry.Size{Width: 612, Height: 792}}
	}
	return New(pages...)
}

// WithText creates one page per string, each holding a single run.
func WithText(texts ...string) *Document {
	pages := make([]Page, len(texts))
	for i, s := range texts {
		pages[i] = Page{
			Size: geometry.Size{Width: 612, Height: 792},
			Runs: []pdfdoc.TextRun{Run(s, 72, 700, 12)},
		}
	}
	return New(pages...)
}

// Run builds a text run at (x, y) with font size fs and a width of
// 0.5em per rune.
func Run(s string, x, y, fs float64) pdfdoc.TextRun {
	return pdfdoc.TextRun{
		Str:       s,
		Transform: [6]float64{fs, 0, 0, fs, x, y},
		Width:     float64(len([]rune(s))) * fs * 0.5,
		Height:    fs,
	}
}

func (d *Document) NumPages() int { return len(d.pages) }

func (d *Document) page(n int) (Page, error) {
	if n < 1 || n > len(d.pages) {
		return Page{}, pdfdoc.ErrPageRange
	}
	return d.pages[n-1], nil
}

func (d *Document) PageSize(n int) (geometry.Size, error) {
	p, err := d.page(n)
	return p.Size, err
}

func (d *Document) Render(ctx context.Context, n int, scale float64) (*image.RGBA, error) {
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	if d.RenderHook != nil {
		d.RenderHook(ctx, n, scale)
	}
	if ctx.Err() != nil {
		return nil, pdfdoc.ErrRenderCancelled
	}
	d.mu.Lock()
	d.renders++
	d.mu.Unlock()

	w, h := int(p.Size.Width*scale), int(p.Size.Height*scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: uint8(n), G: uint8(n), B: uint8(n), A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

func (d *Document) TextRuns(ctx context.Context, n int) ([]pdfdoc.TextRun, error) {
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.textRead = append(d.textRead, n)
	d.mu.Unlock()
	if p.TextErr != nil {
		return nil, p.TextErr
	}
	return p.Runs, nil
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("already closed")
	}
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Renders counts completed renders.
func (d *Document) Renders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renders
}

// TextReads lists the pages whose text was requested, in order.
func (d *Document) TextReads() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.textRead...)
}

// PageOf decodes the page number painted by Render.
func PageOf(img *image.RGBA) int {
	if img == nil || len(img.Pix) == 0 {
		return 0
	}
	return int(img.Pix[0])
}
