package packing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

func TestScaler_InactiveWithinRange(t *testing.T) {
	t.Parallel()

	for _, wr := range []float64{0, 32, 100} {
		sc := newScaler(geometry.Cuboid{Width: 30, Height: 20, Depth: 10}, wr)
		assert.False(t, sc.active, "working range %g", wr)
		assert.Equal(t, 1.0, sc.factor())

		c := geometry.Cuboid{Width: 3.5, Height: 2, Depth: 1}
		got, clamped := sc.item(c)
		assert.Equal(t, c, got)
		assert.False(t, clamped)
		assert.Equal(t, geometry.Point{X: 1.5}, sc.point(geometry.Point{X: 1.5}))
	}
}

func TestScaler_RoundsConservatively(t *testing.T) {
	t.Parallel()

	sc := newScaler(geometry.Cuboid{Width: 240, Height: 120, Depth: 100}, 32)
	assert.True(t, sc.active)
	assert.InDelta(t, 32.0/240.0, sc.factor(), 1e-12)

	assert.Equal(t, geometry.Cuboid{Width: 32, Height: 16, Depth: 13},
		sc.container(geometry.Cuboid{Width: 240, Height: 120, Depth: 100}))

	got, clamped := sc.item(geometry.Cuboid{Width: 50, Height: 40, Depth: 30})
	assert.Equal(t, geometry.Cuboid{Width: 7, Height: 6, Depth: 4}, got)
	assert.False(t, clamped)

	assert.Equal(t, geometry.Point{X: 52.5, Y: 240, Z: 7.5}, sc.point(geometry.Point{X: 7, Y: 32, Z: 1}))
}

func TestScaler_ClampsTinyItems(t *testing.T) {
	t.Parallel()

	sc := newScaler(geometry.Cuboid{Width: 3200, Height: 10, Depth: 3200}, 32)

	got, clamped := sc.item(geometry.Cuboid{Width: 50, Height: 5, Depth: 200})
	assert.True(t, clamped)
	assert.Equal(t, geometry.Cuboid{Width: 1, Height: 1, Depth: 2}, got)

	assert.Equal(t, geometry.Cuboid{Width: 32, Height: 1, Depth: 32},
		sc.container(geometry.Cuboid{Width: 3200, Height: 10, Depth: 3200}))
}

func TestPack_WarnsWhenItemIsClamped(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	e, err := New(WithWorkingRange(GridWorkingRange), WithLogger(zap.New(core)))
	require.NoError(t, err)

	container := Container{Width: 3200, Height: 200, Depth: 3200}
	items := []Item{
		{ID: "sliver", Width: 50, Height: 5, Depth: 200},
		{ID: "slab", Width: 400, Height: 200, Depth: 400},
	}
	res, err := e.Pack(context.Background(), items, container)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsPacked)

	entries := logs.FilterMessage("item dimension rounds below one working unit; clamped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sliver", fields["item_id"])
	assert.InDelta(t, 0.01, fields["factor"], 1e-12)
}

func TestPack_NoClampWarningInExactMode(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	e, err := New(WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = e.Pack(context.Background(), []Item{{ID: "sliver", Width: 50, Height: 5, Depth: 200}},
		Container{Width: 3200, Height: 10, Depth: 3200})
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}
