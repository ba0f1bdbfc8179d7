// Package preload hands an already opened manual, and optionally its text
// index, from the code that loaded it to the viewer that will show it.
package preload

import (
	"sync"

	"go.uber.org/zap"

	"manual-markers/internal/pdfdoc"
	"manual-markers/internal/textindex"
)

// Entry is one offered manual.
type Entry struct {
	URL   string
	Doc   pdfdoc.Document
	Index *textindex.Index
}

// Handoff holds at most one offered manual. The zero value is usable.
type Handoff struct {
	mu     sync.Mutex
	entry  *Entry
	logger *zap.Logger
}

// New creates a handoff that logs through logger.
func New(logger *zap.Logger) *Handoff {
	return &Handoff{logger: logger}
}

func (h *Handoff) log() *zap.Logger {
	if h.logger == nil {
		return zap.NewNop()
	}
	return h.logger
}

// Offer stores doc for url. A previously offered document that was never
// taken is closed.
func (h *Handoff) Offer(url string, doc pdfdoc.Document, index *textindex.Index) {
	h.mu.Lock()
	prev := h.entry
	h.entry = &Entry{URL: url, Doc: doc, Index: index}
	h.mu.Unlock()

	if prev != nil && prev.Doc != doc {
		h.release(prev)
	}
	h.log().Debug("manual preloaded", zap.String("url", url), zap.Bool("indexed", index != nil))
}

// Take returns the entry offered for url and clears the slot. It returns
// false, leaving the slot untouched, when nothing or another url is held.
func (h *Handoff) Take(url string) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entry == nil || h.entry.URL != url {
		return Entry{}, false
	}
	e := *h.entry
	h.entry = nil
	return e, true
}

// Pending reports the url currently offered, if any.
func (h *Handoff) Pending() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entry == nil {
		return "", false
	}
	return h.entry.URL, true
}

// Clear drops and closes any offered document.
func (h *Handoff) Clear() {
	h.mu.Lock()
	prev := h.entry
	h.entry = nil
	h.mu.Unlock()
	if prev != nil {
		h.release(prev)
	}
}

func (h *Handoff) release(e *Entry) {
	if e.Doc == nil {
		return
	}
	if err := e.Doc.Close(); err != nil {
		h.log().Warn("closing unclaimed manual", zap.String("url", e.URL), zap.Error(err))
	}
}
