package packing

import (
	"math"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

// GridWorkingRange is the grid edge of a 32-unit bounded policy. Passing it
// to WithWorkingRange reproduces the layouts such a policy would see.
const GridWorkingRange = 32

// scaler maps between caller units and the strategy's working grid.
//
// The container is rounded down and items are rounded up, so a layout that
// is valid on the grid stays valid once converted back: every scaled gap is
// at least as large as the real one. The price is quantisation error of up
// to 1/factor per axis, and items near the clamp floor of one unit look
// proportionally larger than they are. A working range of 0 keeps exact
// geometry, which is what the built-in strategies get by default.
type scaler struct {
	active  bool
	maxDim  float64
	working float64
}

func newScaler(container geometry.Cuboid, workingRange float64) scaler {
	maxDim := container.MaxDim()
	if workingRange <= 0 || maxDim <= workingRange {
		return scaler{}
	}
	return scaler{active: true, maxDim: maxDim, working: workingRange}
}

// factor is the multiplier applied to caller units; 1 when inactive.
func (s scaler) factor() float64 {
	if !s.active {
		return 1
	}
	return s.working / s.maxDim
}

// raw multiplies before dividing so that whole-number inputs such as
// 30 * 32 / 240 come out exact.
func (s scaler) raw(v float64) float64 {
	return v * s.working / s.maxDim
}

func (s scaler) container(c geometry.Cuboid) geometry.Cuboid {
	if !s.active {
		return c
	}
	down := func(v float64) float64 {
		return math.Max(1, math.Floor(s.raw(v)))
	}
	return geometry.Cuboid{Width: down(c.Width), Height: down(c.Height), Depth: down(c.Depth)}
}

// item scales an item's dimensions and reports whether any of them fell
// below one unit and had to be clamped.
func (s scaler) item(c geometry.Cuboid) (geometry.Cuboid, bool) {
	if !s.active {
		return c, false
	}
	clamped := false
	up := func(v float64) float64 {
		r := s.raw(v)
		if r < 1 {
			clamped = true
		}
		return math.Max(1, math.Ceil(r))
	}
	return geometry.Cuboid{Width: up(c.Width), Height: up(c.Height), Depth: up(c.Depth)}, clamped
}

// point converts a grid position back to caller units.
func (s scaler) point(p geometry.Point) geometry.Point {
	if !s.active {
		return p
	}
	back := func(v float64) float64 {
		return v * s.maxDim / s.working
	}
	return geometry.Point{X: back(p.X), Y: back(p.Y), Z: back(p.Z)}
}
