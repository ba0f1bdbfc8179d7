package textindex

import (
	"strings"
	"sync"

	"manual-markers/internal/metrics"
)

// State tells "no search yet" apart from "searched, nothing found".
type State int

const (
	NotSearched State = iota
	NoMatches
	HasMatches
)

func (s State) String() string {
	switch s {
	case NotSearched:
		return "not searched"
	case NoMatches:
		return "no matches"
	case HasMatches:
		return "matches"
	default:
		return "unknown"
	}
}

// Session holds the current query, its ranked hits and the cursor used by
// next/previous navigation.
type Session struct {
	mu      sync.Mutex
	index   *Index
	query   string
	hits    []Hit
	current int
	state   State
}

// NewSession creates a session over ix, which may be nil until built.
func NewSession(ix *Index) *Session {
	return &Session{index: ix}
}

// SetIndex replaces the index and clears any results.
func (s *Session) SetIndex(ix *Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = ix
	s.clearLocked()
}

// Search runs query. A blank query clears the session without scanning.
func (s *Session) Search(query string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(query) == "" || s.index == nil {
		s.clearLocked()
		return s.state
	}
	s.query = query
	s.hits = s.index.Search(query)
	s.current = 0
	if len(s.hits) == 0 {
		s.state = NoMatches
	} else {
		s.state = HasMatches
	}
	metrics.ObserveSearch(len(s.hits))
	return s.state
}

// Clear drops the query and results.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.query = ""
	s.hits = nil
	s.current = 0
	s.state = NotSearched
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Hits returns a copy of the ranked hits.
func (s *Session) Hits() []Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Hit(nil), s.hits...)
}

// Current returns the selected hit and its position in the list.
func (s *Session) Current() (Hit, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.hits) == 0 {
		return Hit{}, 0, false
	}
	return s.hits[s.current], s.current, true
}

// Next advances to the following hit, wrapping to the first, and returns
// its page.
func (s *Session) Next() (int, bool) {
	return s.step(1)
}

// Prev moves to the preceding hit, wrapping to the last.
func (s *Session) Prev() (int, bool) {
	return s.step(-1)
}

// Select jumps to hit i.
func (s *Session) Select(i int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.hits) {
		return 0, false
	}
	s.current = i
	return s.hits[i].Page, true
}

func (s *Session) step(d int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.hits)
	if n == 0 {
		return 0, false
	}
	s.current = ((s.current+d)%n + n) % n
	return s.hits[s.current].Page, true
}
