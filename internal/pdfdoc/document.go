// Package pdfdoc opens PDF manuals, rasterizes their pages and extracts
// positioned text runs.
package pdfdoc

import (
	"context"
	"errors"
	"fmt"
	"image"

	"manual-markers/pkg/geometry"
)

// ErrRenderCancelled is returned by Render when its context ends first.
// It is not a failure and must not be reported as one.
var ErrRenderCancelled = errors.New("render cancelled")

// ErrPageRange is returned for page numbers outside [1, NumPages].
var ErrPageRange = errors.New("page out of range")

// LoadError reports a manual that could not be fetched or parsed.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load manual %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// TextRun is a run of text from a page content stream. Transform is the
// run's text matrix [a b c d e f] in content space (points, origin bottom
// left); e,f is the baseline origin. Width is the advance in points.
type TextRun struct {
	Str       string     `json:"str"`
	Transform [6]float64 `json:"transform"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
}

// Document is an open manual. Pages are 1-indexed.
type Document interface {
	NumPages() int
	// PageSize is the page size in points.
	PageSize(page int) (geometry.Size, error)
	// Render rasterizes page at scale (1.0 = 72 dpi).
	Render(ctx context.Context, page int, scale float64) (*image.RGBA, error)
	TextRuns(ctx context.Context, page int) ([]TextRun, error)
	Close() error
}

// IsCancelled reports whether err is a render cancellation rather than a
// failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrRenderCancelled) || errors.Is(err, context.Canceled)
}

func checkPage(page, total int) error {
	if page < 1 || page > total {
		return fmt.Errorf("page %d of %d: %w", page, total, ErrPageRange)
	}
	return nil
}
