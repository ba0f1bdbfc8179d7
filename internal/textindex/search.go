package textindex

import (
	"sort"
	"strings"
	"unicode"

	"manual-markers/internal/coords"
	"manual-markers/pkg/geometry"
)

// excerptRadius is the number of runes kept on each side of a match.
const excerptRadius = 40

// Hit is a page that matches a query.
type Hit struct {
	Page    int
	Count   int
	Excerpt string
}

// Search matches query against every indexed page, directly and with all
// whitespace removed from both sides. Hits are ordered by occurrence count,
// then page number. A blank query returns nil.
func (ix *Index) Search(query string) []Hit {
	q := lowerRunes(strings.TrimSpace(query))
	if len(q) == 0 {
		return nil
	}
	qs, _ := stripSpace(q)
	if len(qs) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]Hit, 0)
	for page, e := range ix.pages {
		if h, ok := matchPage(page, e.Text, q, qs); ok {
			hits = append(hits, h)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Count != hits[j].Count {
			return hits[i].Count > hits[j].Count
		}
		return hits[i].Page < hits[j].Page
	})
	return hits
}

func matchPage(page int, text string, q, qs []rune) (Hit, bool) {
	orig := []rune(text)
	hay := lowerRunes(text)

	if n := countRunes(hay, q); n > 0 {
		at := indexRunes(hay, q, 0)
		return Hit{Page: page, Count: n, Excerpt: excerpt(orig, at, at+len(q))}, true
	}

	stripped, pos := stripSpace(hay)
	n := countRunes(stripped, qs)
	if n == 0 {
		return Hit{}, false
	}
	at := indexRunes(stripped, qs, 0)
	start, end := pos[at], pos[at+len(qs)-1]+1
	return Hit{Page: page, Count: n, Excerpt: excerpt(orig, start, end)}, true
}

func excerpt(text []rune, start, end int) string {
	from := start - excerptRadius
	to := end + excerptRadius
	prefix, suffix := "", ""
	if from <= 0 {
		from = 0
	} else {
		prefix = "..."
	}
	if to >= len(text) {
		to = len(text)
	} else {
		suffix = "..."
	}
	return prefix + strings.TrimSpace(string(text[from:to])) + suffix
}

// lowerRunes lowercases rune by rune so indices match the original text.
func lowerRunes(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}

// stripSpace drops whitespace and returns, for each kept rune, its index
// in the input.
func stripSpace(r []rune) ([]rune, []int) {
	out := make([]rune, 0, len(r))
	pos := make([]int, 0, len(r))
	for i, c := range r {
		if unicode.IsSpace(c) {
			continue
		}
		out = append(out, c)
		pos = append(pos, i)
	}
	return out, pos
}

func indexRunes(hay, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// countRunes counts non-overlapping occurrences.
func countRunes(hay, needle []rune) int {
	n := 0
	for i := indexRunes(hay, needle, 0); i >= 0; i = indexRunes(hay, needle, i+len(needle)) {
		n++
	}
	return n
}

// Highlights returns the pixel boxes of the runs on e that contain query,
// for a page shown through vp.
func Highlights(e Entry, query string, vp coords.Viewport) []geometry.Rect {
	q := lowerRunes(strings.TrimSpace(query))
	if len(q) == 0 {
		return nil
	}
	qs, _ := stripSpace(q)
	var out []geometry.Rect
	for _, run := range e.Items {
		hay := lowerRunes(run.Str)
		stripped, _ := stripSpace(hay)
		if indexRunes(hay, q, 0) < 0 && indexRunes(stripped, qs, 0) < 0 {
			continue
		}
		out = append(out, vp.RunRect(run.Transform, run.Width))
	}
	return out
}
