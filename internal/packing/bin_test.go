package packing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

func box(x, y, z, w, h, d float64) geometry.Box {
	return geometry.Box{
		Origin: geometry.Point{X: x, Y: y, Z: z},
		Size:   geometry.Cuboid{Width: w, Height: h, Depth: d},
	}
}

func TestBin_PlaceUpdatesAnchors(t *testing.T) {
	t.Parallel()

	b := newBin(geometry.Cuboid{Width: 10, Height: 10, Depth: 10}, 0, DefaultAnchorCap)
	require.Equal(t, []geometry.Point{{}}, b.Anchors())

	b.place(box(0, 0, 0, 4, 5, 6), 3)

	assert.False(t, b.Empty())
	assert.Equal(t, 3.0, b.Weight())
	assert.Equal(t, []geometry.Point{
		{X: 4},
		{Y: 5},
		{Z: 6},
	}, b.Anchors())
}

func TestBin_AnchorsOnTheWallAreDropped(t *testing.T) {
	t.Parallel()

	b := newBin(geometry.Cuboid{Width: 10, Height: 10, Depth: 10}, 0, DefaultAnchorCap)
	b.place(box(0, 0, 0, 10, 10, 4), 0)

	assert.Equal(t, []geometry.Point{{Z: 4}}, b.Anchors())
}

func TestBin_AnchorCap(t *testing.T) {
	t.Parallel()

	b := newBin(geometry.Cuboid{Width: 10, Height: 10, Depth: 10}, 0, 2)
	b.place(box(0, 0, 0, 1, 1, 1), 0)

	assert.Equal(t, []geometry.Point{{X: 1}, {Y: 1}}, b.Anchors())
}

func TestBin_Accepts(t *testing.T) {
	t.Parallel()

	b := newBin(geometry.Cuboid{Width: 10, Height: 10, Depth: 10}, 20, DefaultAnchorCap)
	b.place(box(0, 0, 0, 5, 5, 5), 15)

	tests := []struct {
		name   string
		box    geometry.Box
		weight float64
		want   bool
	}{
		{"touching face", box(5, 0, 0, 5, 5, 5), 5, true},
		{"overlapping", box(4, 0, 0, 5, 5, 5), 0, false},
		{"outside the bin", box(6, 0, 0, 5, 5, 5), 0, false},
		{"over the weight cap", box(5, 0, 0, 5, 5, 5), 5.5, false},
		{"stacked on top", box(0, 5, 0, 5, 5, 5), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, b.Accepts(tt.box, tt.weight))
		})
	}
}

func TestBin_Residual(t *testing.T) {
	t.Parallel()

	b := newBin(geometry.Cuboid{Width: 10, Height: 8, Depth: 6}, 0, DefaultAnchorCap)
	assert.Equal(t, geometry.Cuboid{Width: 10, Height: 8, Depth: 6}, b.Residual(geometry.Point{}))

	b.place(box(6, 0, 0, 4, 3, 6), 0)
	b.place(box(0, 4, 0, 3, 4, 6), 0)

	assert.Equal(t, geometry.Cuboid{Width: 6, Height: 4, Depth: 6}, b.Residual(geometry.Point{}))
	assert.Equal(t, geometry.Cuboid{Width: 4, Height: 5, Depth: 6}, b.Residual(geometry.Point{X: 6, Y: 3}))
}

func TestBin_AccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	b := newBin(geometry.Cuboid{Width: 4, Height: 4, Depth: 4}, 9, DefaultAnchorCap)
	b.place(box(0, 0, 0, 1, 1, 1), 0)

	boxes := b.Boxes()
	boxes[0].Origin.X = 3
	anchors := b.Anchors()
	anchors[0].X = 99

	assert.Equal(t, 0.0, b.Boxes()[0].Origin.X)
	assert.NotEqual(t, 99.0, b.Anchors()[0].X)
	assert.Equal(t, 9.0, b.MaxWeight())
	assert.Equal(t, geometry.Cuboid{Width: 4, Height: 4, Depth: 4}, b.Size())
}
