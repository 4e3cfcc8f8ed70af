package geometry

import "math"

// Epsilon absorbs float rounding in containment and overlap checks.
const Epsilon = 1e-9

// Cuboid is an axis-aligned rectangular volume.
type Cuboid struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Depth  float64 `json:"depth" yaml:"depth"`
}

// Volume returns width * height * depth.
func (c Cuboid) Volume() float64 {
	return c.Width * c.Height * c.Depth
}

// Valid reports whether every dimension is finite and strictly positive.
func (c Cuboid) Valid() bool {
	return positive(c.Width) && positive(c.Height) && positive(c.Depth)
}

// MaxDim returns the largest of the three dimensions.
func (c Cuboid) MaxDim() float64 {
	return math.Max(c.Width, math.Max(c.Height, c.Depth))
}

// Permute returns the cuboid with its axes reordered by orientation code.
// Unknown codes return the cuboid unchanged.
func (c Cuboid) Permute(code int) Cuboid {
	if code < 0 || code >= len(permutations) {
		return c
	}
	dims := [3]float64{c.Width, c.Height, c.Depth}
	p := permutations[code]
	return Cuboid{Width: dims[p[0]], Height: dims[p[1]], Depth: dims[p[2]]}
}

// Point is a position inside a container.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Less orders points by z, then y, then x.
func (p Point) Less(o Point) bool {
	if p.Z != o.Z {
		return p.Z < o.Z
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// Box is a cuboid placed at an origin.
type Box struct {
	Origin Point
	Size   Cuboid
}

// Max returns the far corner of the box.
func (b Box) Max() Point {
	return Point{
		X: b.Origin.X + b.Size.Width,
		Y: b.Origin.Y + b.Size.Height,
		Z: b.Origin.Z + b.Size.Depth,
	}
}

// Contains reports whether p lies inside the half-open box [origin, max).
func (b Box) Contains(p Point) bool {
	m := b.Max()
	return within(p.X, b.Origin.X, m.X) &&
		within(p.Y, b.Origin.Y, m.Y) &&
		within(p.Z, b.Origin.Z, m.Z)
}

// Overlaps reports whether a and b share interior volume. Boxes that only
// touch along a face, edge or corner do not overlap.
func Overlaps(a, b Box) bool {
	am, bm := a.Max(), b.Max()
	return intersects(a.Origin.X, am.X, b.Origin.X, bm.X) &&
		intersects(a.Origin.Y, am.Y, b.Origin.Y, bm.Y) &&
		intersects(a.Origin.Z, am.Z, b.Origin.Z, bm.Z)
}

// FitsIn reports whether every corner of b lies within [0, container] on
// each axis.
func FitsIn(b Box, container Cuboid) bool {
	m := b.Max()
	return b.Origin.X >= -Epsilon && b.Origin.Y >= -Epsilon && b.Origin.Z >= -Epsilon &&
		m.X <= container.Width+Epsilon &&
		m.Y <= container.Height+Epsilon &&
		m.Z <= container.Depth+Epsilon
}

func intersects(aMin, aMax, bMin, bMax float64) bool {
	return aMin < bMax-Epsilon && bMin < aMax-Epsilon
}

func within(v, lo, hi float64) bool {
	return v >= lo-Epsilon && v < hi-Epsilon
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
