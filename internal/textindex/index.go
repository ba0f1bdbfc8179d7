// Package textindex builds a per-page text map of a manual and searches it.
package textindex

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"manual-markers/internal/metrics"
	"manual-markers/internal/pdfdoc"
)

// DefaultGapThreshold is the start-x difference, in content units, above
// which two consecutive runs are joined with a space.
const DefaultGapThreshold = 5.0

// Entry is the extracted text of one page.
type Entry struct {
	Text  string           `json:"text"`
	Items []pdfdoc.TextRun `json:"items"`
}

// PageSource yields positioned text per page. pdfdoc.Document satisfies it.
type PageSource interface {
	NumPages() int
	TextRuns(ctx context.Context, page int) ([]pdfdoc.TextRun, error)
}

// Index maps page numbers to their text. It is filled page by page and
// safe to search while it is being built.
type Index struct {
	mu       sync.RWMutex
	pages    map[int]Entry
	total    int
	complete bool
}

// New creates an empty index for a document of total pages.
func New(total int) *Index {
	return &Index{pages: make(map[int]Entry, total), total: total}
}

// FromEntries wraps an already built index, as handed over by a preload.
func FromEntries(entries map[int]Entry) *Index {
	ix := &Index{pages: make(map[int]Entry, len(entries)), complete: true}
	for p, e := range entries {
		ix.pages[p] = e
		if p > ix.total {
			ix.total = p
		}
	}
	return ix
}

func (ix *Index) set(page int, e Entry) {
	ix.mu.Lock()
	ix.pages[page] = e
	ix.mu.Unlock()
}

// Page returns the entry for page.
func (ix *Index) Page(page int) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.pages[page]
	return e, ok
}

// Len returns the number of indexed pages.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.pages)
}

// Total returns the page count of the document.
func (ix *Index) Total() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.total
}

// Complete reports whether every page has been visited.
func (ix *Index) Complete() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.complete
}

// Entries returns a copy of the page map.
func (ix *Index) Entries() map[int]Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[int]Entry, len(ix.pages))
	for p, e := range ix.pages {
		out[p] = e
	}
	return out
}

// BuildOptions tunes Build.
type BuildOptions struct {
	GapThreshold float64
	Logger       *zap.Logger
	// Progress is called after each page.
	Progress func(done, total int)
	// Into receives entries as they are extracted; nil allocates a new index.
	Into *Index
}

// Build extracts every page in order. A page that fails is logged and
// stored as an empty entry. ctx is checked between pages; on cancellation
// the partial index is returned with ctx's error.
func Build(ctx context.Context, src PageSource, opts BuildOptions) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gap := opts.GapThreshold
	if gap <= 0 {
		gap = DefaultGapThreshold
	}
	total := src.NumPages()
	ix := opts.Into
	if ix == nil {
		ix = New(total)
	}
	started := time.Now()

	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			logger.Info("text index build abandoned", zap.Int("indexed", page-1), zap.Int("pages", total))
			return ix, err
		}
		runs, err := src.TextRuns(ctx, page)
		if err != nil {
			metrics.PageExtractionFailures.Inc()
			logger.Warn("text extraction failed", zap.Int("page", page), zap.Error(err))
			ix.set(page, Entry{})
		} else {
			ix.set(page, Entry{Text: JoinRuns(runs, gap), Items: runs})
		}
		if opts.Progress != nil {
			opts.Progress(page, total)
		}
	}

	ix.mu.Lock()
	ix.complete = true
	ix.mu.Unlock()
	metrics.IndexBuildDuration.Observe(time.Since(started).Seconds())
	logger.Debug("text index built", zap.Int("pages", total), zap.Duration("elapsed", time.Since(started)))
	return ix, nil
}

// JoinRuns concatenates runs, inserting a space when two consecutive runs
// start more than gap apart horizontally.
func JoinRuns(runs []pdfdoc.TextRun, gap float64) string {
	var b strings.Builder
	for i, r := range runs {
		if i > 0 && math.Abs(r.Transform[4]-runs[i-1].Transform[4]) > gap {
			b.WriteByte(' ')
		}
		b.WriteString(r.Str)
	}
	return b.String()
}
