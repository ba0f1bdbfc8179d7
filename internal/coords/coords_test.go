package coords

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manual-markers/pkg/geometry"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		w := 1 + rng.Float64()*4000
		h := 1 + rng.Float64()*4000
		x := rng.Float64() * w
		y := rng.Float64() * h
		r := geometry.Rect{X: x, Y: y, Width: rng.Float64() * (w - x), Height: rng.Float64() * (h - y)}

		got := ToPixels(ToNormalized(r, w, h), w, h)
		assert.InDelta(t, r.X, got.X, 1e-9)
		assert.InDelta(t, r.Y, got.Y, 1e-9)
		assert.InDelta(t, r.Width, got.Width, 1e-9)
		assert.InDelta(t, r.Height, got.Height, 1e-9)
	}
}

func TestToNormalizedScenario(t *testing.T) {
	n := ToNormalized(geometry.Rect{X: 100, Y: 100, Width: 200, Height: 150}, 800, 600)
	assert.InDelta(t, 0.125, n.X, 1e-4)
	assert.InDelta(t, 0.1667, n.Y, 1e-4)
	assert.InDelta(t, 0.25, n.Width, 1e-4)
	assert.InDelta(t, 0.25, n.Height, 1e-4)
}

func TestToNormalizedZeroSurface(t *testing.T) {
	assert.Equal(t, geometry.Rect{}, ToNormalized(geometry.Rect{X: 1, Y: 1, Width: 1, Height: 1}, 0, 600))
	assert.Nil(t, PointsToNormalized([]geometry.Point2D{{X: 1, Y: 1}}, 800, 0))
}

func TestPointsRoundTrip(t *testing.T) {
	pts := []geometry.Point2D{{X: 50, Y: 50}, {X: 150, Y: 50}, {X: 150, Y: 150}}
	back := PointsToPixels(PointsToNormalized(pts, 800, 600), 800, 600)
	require.Len(t, back, 3)
	for i := range pts {
		assert.InDelta(t, pts[i].X, back[i].X, 1e-9)
		assert.InDelta(t, pts[i].Y, back[i].Y, 1e-9)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		rect   geometry.Rect
		format Format
		want   geometry.Rect
	}{
		{
			name: "untagged normalized",
			rect: geometry.Rect{X: 0.5, Y: 0.5, Width: 0.25, Height: 0.25},
			want: geometry.Rect{X: 400, Y: 300, Width: 200, Height: 150},
		},
		{
			name: "untagged legacy",
			rect: geometry.Rect{X: 100, Y: 50, Width: 20, Height: 10},
			want: geometry.Rect{X: 150, Y: 75, Width: 30, Height: 15},
		},
		{
			name:   "tagged pixels below one",
			rect:   geometry.Rect{X: 0.5, Y: 0.5, Width: 1, Height: 1},
			format: FormatPixels,
			want:   geometry.Rect{X: 0.75, Y: 0.75, Width: 1.5, Height: 1.5},
		},
		{
			name:   "tagged normalized",
			rect:   geometry.Rect{X: 0, Y: 0, Width: 1, Height: 1},
			format: FormatNormalized,
			want:   geometry.Rect{X: 0, Y: 0, Width: 800, Height: 600},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.rect, tt.format, 800, 600, 1.5)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Width, got.Width, 1e-9)
			assert.InDelta(t, tt.want.Height, got.Height, 1e-9)
		})
	}
}

func TestIsNormalizedAmbiguity(t *testing.T) {
	// a one-pixel legacy rect at the origin reads as normalized
	assert.True(t, IsNormalized(geometry.Rect{X: 0, Y: 1, Width: 1, Height: 1}))
	assert.False(t, IsNormalized(geometry.Rect{X: 0, Y: 0, Width: 2, Height: 0.5}))
}

func TestViewportRunRect(t *testing.T) {
	v := Viewport{Scale: 2, PageHeight: 800}
	r := v.RunRect([6]float64{12, 0, 0, 12, 100, 700}, 50)
	assert.InDelta(t, 200, r.X, 1e-9)
	// baseline at (800-700)*2 = 200, minus 24px font height
	assert.InDelta(t, 176, r.Y, 1e-9)
	assert.InDelta(t, 100, r.Width, 1e-9)
	assert.InDelta(t, 24, r.Height, 1e-9)
}

func TestViewportToContent(t *testing.T) {
	v := Viewport{Scale: 2, PageHeight: 800}
	p, err := v.ToContent(geometry.Point2D{X: 200, Y: 200})
	require.NoError(t, err)
	assert.InDelta(t, 100, p.X, 1e-9)
	assert.InDelta(t, 700, p.Y, 1e-9)
}
