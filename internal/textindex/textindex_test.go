package textindex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-markers/internal/coords"
	"manual-markers/internal/pdfdoc"
	"manual-markers/internal/pdfdoc/pdfdoctest"
	"manual-markers/pkg/geometry"
)

func buildFrom(t *testing.T, doc PageSource) *Index {
	t.Helper()
	ix, err := Build(context.Background(), doc, BuildOptions{})
	require.NoError(t, err)
	return ix
}

func TestJoinRunsInsertsSpaceOnGap(t *testing.T) {
	runs := []pdfdoc.TextRun{
		pdfdoctest.Run("A", 100, 700, 12),
		pdfdoctest.Run("B", 110, 700, 12),
		pdfdoctest.Run("C", 120, 700, 12),
	}
	assert.Equal(t, "A B C", JoinRuns(runs, 5))

	tight := []pdfdoc.TextRun{
		pdfdoctest.Run("Bom", 100, 700, 12),
		pdfdoctest.Run("ba", 103, 700, 12),
	}
	assert.Equal(t, "Bomba", JoinRuns(tight, 5))
	assert.Equal(t, "", JoinRuns(nil, 5))
}

func TestSearchMatchesAcrossSpacing(t *testing.T) {
	doc := pdfdoctest.New(pdfdoctest.Page{
		Size: geometry.Size{Width: 612, Height: 792},
		Runs: []pdfdoc.TextRun{
			pdfdoctest.Run("A", 100, 700, 12),
			pdfdoctest.Run("B", 110, 700, 12),
			pdfdoctest.Run("C", 120, 700, 12),
		},
	})
	ix := buildFrom(t, doc)

	e, ok := ix.Page(1)
	require.True(t, ok)
	assert.Equal(t, "A B C", e.Text)

	hits := ix.Search("ABC")
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Page)
	assert.Equal(t, 1, hits[0].Count)
	assert.Equal(t, "A B C", hits[0].Excerpt)

	assert.Len(t, ix.Search("a b c"), 1)
}

func TestSearchNoMatchAcrossManyPages(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("Pagina %d bomba de vacio", i+1)
	}
	ix := buildFrom(t, pdfdoctest.WithText(texts...))
	assert.Equal(t, 10, ix.Len())
	assert.True(t, ix.Complete())
	assert.Empty(t, ix.Search("ZZZZNOTPRESENT"))

	s := NewSession(ix)
	assert.Equal(t, NotSearched, s.State())
	assert.Equal(t, NoMatches, s.Search("ZZZZNOTPRESENT"))
	_, ok := s.Next()
	assert.False(t, ok)
}

func TestSearchRanksByCountThenPage(t *testing.T) {
	ix := buildFrom(t, pdfdoctest.WithText(
		"valvula",
		"valvula valvula valvula",
		"nada",
		"Valvula y VALVULA",
		"valvula",
	))
	hits := ix.Search("valvula")
	pages := make([]int, len(hits))
	for i, h := range hits {
		pages[i] = h.Page
	}
	assert.Equal(t, []int{2, 4, 1, 5}, pages)
	assert.Equal(t, 3, hits[0].Count)
}

func TestSearchBlankQuery(t *testing.T) {
	ix := buildFrom(t, pdfdoctest.WithText("algo"))
	assert.Nil(t, ix.Search(""))
	assert.Nil(t, ix.Search("   "))
}

func TestExcerptIsTrimmedAroundMatch(t *testing.T) {
	long := strings.Repeat("x", 60) + " rodamiento " + strings.Repeat("y", 60)
	ix := buildFrom(t, pdfdoctest.WithText(long))
	hits := ix.Search("rodamiento")
	require.Len(t, hits, 1)
	ex := hits[0].Excerpt
	assert.True(t, strings.HasPrefix(ex, "..."))
	assert.True(t, strings.HasSuffix(ex, "..."))
	assert.Contains(t, ex, "rodamiento")
	assert.Less(t, len([]rune(ex)), len([]rune(long)))
}

func TestBuildIsolatesPageFailures(t *testing.T) {
	size := geometry.Size{Width: 612, Height: 792}
	doc := pdfdoctest.New(
		pdfdoctest.Page{Size: size, Runs: []pdfdoc.TextRun{pdfdoctest.Run("uno", 72, 700, 12)}},
		pdfdoctest.Page{Size: size, TextErr: errors.New("broken stream")},
		pdfdoctest.Page{Size: size, Runs: []pdfdoc.TextRun{pdfdoctest.Run("tres", 72, 700, 12)}},
	)
	var progress []int
	ix, err := Build(context.Background(), doc, BuildOptions{
		Progress: func(done, _ int) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, ix.Len())
	e, ok := ix.Page(2)
	require.True(t, ok)
	assert.Empty(t, e.Text)
	assert.Len(t, ix.Search("tres"), 1)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, []int{1, 2, 3}, doc.TextReads())
}

func TestBuildStopsOnCancel(t *testing.T) {
	doc := pdfdoctest.WithText("a", "b", "c", "d")
	ctx, cancel := context.WithCancel(context.Background())
	ix, err := Build(ctx, doc, BuildOptions{
		Progress: func(done, _ int) {
			if done == 2 {
				cancel()
			}
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, ix.Len())
	assert.False(t, ix.Complete())
}

func TestSessionNavigationWraps(t *testing.T) {
	ix := buildFrom(t, pdfdoctest.WithText("eje", "eje eje", "otro", "eje"))
	s := NewSession(ix)

	require.Equal(t, HasMatches, s.Search("eje"))
	h, i, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 2, h.Page)
	assert.Zero(t, i)

	p, _ := s.Next()
	assert.Equal(t, 1, p)
	p, _ = s.Next()
	assert.Equal(t, 4, p)
	p, _ = s.Next()
	assert.Equal(t, 2, p)
	p, _ = s.Prev()
	assert.Equal(t, 4, p)

	p, ok = s.Select(1)
	assert.True(t, ok)
	assert.Equal(t, 1, p)
	_, ok = s.Select(9)
	assert.False(t, ok)
}

func TestSessionEmptyQueryClears(t *testing.T) {
	ix := buildFrom(t, pdfdoctest.WithText("eje"))
	s := NewSession(ix)
	require.Equal(t, HasMatches, s.Search("eje"))

	assert.Equal(t, NotSearched, s.Search("  "))
	assert.Empty(t, s.Hits())
	assert.Empty(t, s.Query())

	s.Search("eje")
	s.SetIndex(FromEntries(map[int]Entry{1: {Text: "nuevo"}}))
	assert.Equal(t, NotSearched, s.State())
}

func TestSessionWithoutIndex(t *testing.T) {
	s := NewSession(nil)
	assert.Equal(t, NotSearched, s.Search("eje"))
}

func TestHighlightsMapRunsToPixels(t *testing.T) {
	e := Entry{Items: []pdfdoc.TextRun{
		{Str: "Filtro", Transform: [6]float64{12, 0, 0, 12, 100, 700}, Width: 50},
		{Str: "otra cosa", Transform: [6]float64{12, 0, 0, 12, 100, 600}, Width: 50},
	}}
	vp := coords.Viewport{Scale: 2, PageHeight: 800}

	boxes := Highlights(e, "filtro", vp)
	require.Len(t, boxes, 1)
	assert.InDelta(t, 200, boxes[0].X, 1e-9)
	assert.InDelta(t, 176, boxes[0].Y, 1e-9)
	assert.InDelta(t, 100, boxes[0].Width, 1e-9)
	assert.InDelta(t, 24, boxes[0].Height, 1e-9)

	assert.Len(t, Highlights(e, "otracosa", vp), 1)
	assert.Empty(t, Highlights(e, "", vp))
}

func TestFromEntries(t *testing.T) {
	ix := FromEntries(map[int]Entry{1: {Text: "uno"}, 3: {Text: "tres"}})
	assert.Equal(t, 3, ix.Total())
	assert.True(t, ix.Complete())
	assert.Len(t, ix.Entries(), 2)
	assert.Len(t, ix.Search("tres"), 1)
}
