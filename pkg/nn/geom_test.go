package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}

	// Positive-area overlap, however small, counts
	require.True(t, a.Intersects(Rect{X: 0.29, Y: 0.29, Width: 0.2, Height: 0.2}))

	// Sharing only an edge or corner does not
	require.False(t, a.Intersects(Rect{X: 0.3, Y: 0.1, Width: 0.2, Height: 0.2}))
	require.False(t, a.Intersects(Rect{X: 0.3, Y: 0.3, Width: 0.2, Height: 0.2}))

	// Disjoint
	require.False(t, a.Intersects(Rect{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}))

	// Containment
	require.True(t, a.Intersects(Rect{X: 0.15, Y: 0.15, Width: 0.05, Height: 0.05}))
}

func TestRectIOU(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 0.2, Height: 0.2}
	b := Rect{X: 0.1, Y: 0, Width: 0.2, Height: 0.2}
	require.InDelta(t, 1.0/3.0, a.IOU(b), 1e-5)
	require.InDelta(t, 1.0, a.IOU(a), 1e-5)
	require.Equal(t, float32(0), a.IOU(Rect{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}))
}

func TestRectCenterDistance(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 0.2, Height: 0.2}
	b := Rect{X: 0.3, Y: 0.4, Width: 0.2, Height: 0.2}
	require.InDelta(t, 0.5, a.Center().Distance(b.Center()), 1e-5)
}
