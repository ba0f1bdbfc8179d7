package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-markers/internal/coords"
	"manual-markers/internal/pdfdoc/pdfdoctest"
	"manual-markers/pkg/geometry"
)

type fakeRecognizer struct {
	words []Word
	err   error
	calls int
}

func (f *fakeRecognizer) Words(*image.RGBA) ([]Word, error) {
	f.calls++
	return f.words, f.err
}

func TestWordRunsLandOnBox(t *testing.T) {
	vp := coords.Viewport{Scale: 2, PageHeight: 792}
	box := image.Rect(100, 200, 180, 224)
	runs, err := WordRuns([]Word{{Text: "BOMBA", Box: box}}, vp)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := vp.RunRect(runs[0].Transform, runs[0].Width)
	assert.InDelta(t, 100, r.X, 1e-9)
	assert.InDelta(t, 200, r.Y, 1e-9)
	assert.InDelta(t, 80, r.Width, 1e-9)
	assert.InDelta(t, 24, r.Height, 1e-9)

	_, err = WordRuns(nil, coords.Viewport{})
	assert.Error(t, err)
}

func TestFallbackUsesTextLayerFirst(t *testing.T) {
	doc := pdfdoctest.WithText("texto nativo")
	rec := &fakeRecognizer{}
	src := &FallbackSource{Doc: doc, Recognizer: rec, Scale: 1}

	runs, err := src.TextRuns(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "texto nativo", runs[0].Str)
	assert.Zero(t, rec.calls)
	assert.Equal(t, 1, src.NumPages())
}

func TestFallbackRecognizesEmptyPages(t *testing.T) {
	size := geometry.Size{Width: 612, Height: 792}
	doc := pdfdoctest.New(
		pdfdoctest.Page{Size: size},
		pdfdoctest.Page{Size: size, TextErr: errors.New("bad stream")},
	)
	rec := &fakeRecognizer{words: []Word{{Text: "VALVULA", Box: image.Rect(10, 10, 50, 20)}}}
	src := &FallbackSource{Doc: doc, Recognizer: rec, Scale: 1}

	for page := 1; page <= 2; page++ {
		runs, err := src.TextRuns(context.Background(), page)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "VALVULA", runs[0].Str)
	}
	assert.Equal(t, 2, rec.calls)
}

func TestFallbackWithoutRecognizerPassesThrough(t *testing.T) {
	boom := errors.New("bad stream")
	doc := pdfdoctest.New(pdfdoctest.Page{Size: geometry.Size{Width: 10, Height: 10}, TextErr: boom})
	src := &FallbackSource{Doc: doc}
	_, err := src.TextRuns(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestFallbackRecognizerError(t *testing.T) {
	doc := pdfdoctest.New(pdfdoctest.Page{Size: geometry.Size{Width: 10, Height: 10}})
	src := &FallbackSource{Doc: doc, Recognizer: &fakeRecognizer{err: errors.New("tesseract")}, Scale: 1}
	_, err := src.TextRuns(context.Background(), 1)
	assert.Error(t, err)
}

func TestHasInk(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	assert.False(t, HasInk(img, 1))
	img.SetRGBA(8, 8, color.RGBA{A: 255})
	assert.True(t, HasInk(img, 1))
	assert.False(t, HasInk(nil, 1))
}

