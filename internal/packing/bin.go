package packing

import (
	"math"
	"sort"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

// DefaultAnchorCap bounds the number of open anchors kept per bin.
const DefaultAnchorCap = 256

// Bin is the state of the bin currently being filled. Strategies read it;
// only the engine mutates it.
type Bin struct {
	size      geometry.Cuboid
	maxWeight float64
	anchorCap int

	weight  float64
	boxes   []geometry.Box
	anchors []geometry.Point
}

func newBin(size geometry.Cuboid, maxWeight float64, anchorCap int) *Bin {
	return &Bin{
		size:      size,
		maxWeight: maxWeight,
		anchorCap: anchorCap,
		anchors:   []geometry.Point{{}},
	}
}

// Size returns the bin dimensions in working units.
func (b *Bin) Size() geometry.Cuboid { return b.size }

// Weight returns the summed weight of everything placed so far.
func (b *Bin) Weight() float64 { return b.weight }

// MaxWeight returns the weight cap, or 0 when uncapped.
func (b *Bin) MaxWeight() float64 { return b.maxWeight }

// Empty reports whether nothing has been placed yet.
func (b *Bin) Empty() bool { return len(b.boxes) == 0 }

// Anchors returns a copy of the candidate origins, ordered by (z, y, x).
func (b *Bin) Anchors() []geometry.Point {
	out := make([]geometry.Point, len(b.anchors))
	copy(out, b.anchors)
	return out
}

// Boxes returns a copy of the boxes placed so far.
func (b *Bin) Boxes() []geometry.Box {
	out := make([]geometry.Box, len(b.boxes))
	copy(out, b.boxes)
	return out
}

// Accepts reports whether box can be added: it must lie inside the bin,
// overlap nothing already placed and keep the bin within its weight cap.
func (b *Bin) Accepts(box geometry.Box, weight float64) bool {
	if b.maxWeight > 0 && b.weight+weight > b.maxWeight+geometry.Epsilon {
		return false
	}
	if !geometry.FitsIn(box, b.size) {
		return false
	}
	for _, placed := range b.boxes {
		if geometry.Overlaps(box, placed) {
			return false
		}
	}
	return true
}

// Residual returns the free extent from anchor along +x, +y and +z, up to
// the bin wall or the first placed box crossing each ray.
func (b *Bin) Residual(anchor geometry.Point) geometry.Cuboid {
	r := geometry.Cuboid{
		Width:  b.size.Width - anchor.X,
		Height: b.size.Height - anchor.Y,
		Depth:  b.size.Depth - anchor.Z,
	}
	for _, box := range b.boxes {
		m := box.Max()
		inY := spans(anchor.Y, box.Origin.Y, m.Y)
		inZ := spans(anchor.Z, box.Origin.Z, m.Z)
		inX := spans(anchor.X, box.Origin.X, m.X)

		if inY && inZ && box.Origin.X >= anchor.X-geometry.Epsilon {
			r.Width = math.Min(r.Width, math.Max(0, box.Origin.X-anchor.X))
		}
		if inX && inZ && box.Origin.Y >= anchor.Y-geometry.Epsilon {
			r.Height = math.Min(r.Height, math.Max(0, box.Origin.Y-anchor.Y))
		}
		if inX && inY && box.Origin.Z >= anchor.Z-geometry.Epsilon {
			r.Depth = math.Min(r.Depth, math.Max(0, box.Origin.Z-anchor.Z))
		}
	}
	return r
}

func (b *Bin) place(box geometry.Box, weight float64) {
	b.boxes = append(b.boxes, box)
	b.weight += weight

	o, m := box.Origin, box.Max()
	corners := [3]geometry.Point{
		{X: m.X, Y: o.Y, Z: o.Z},
		{X: o.X, Y: m.Y, Z: o.Z},
		{X: o.X, Y: o.Y, Z: m.Z},
	}

	next := make([]geometry.Point, 0, len(b.anchors)+len(corners))
	for _, a := range b.anchors {
		if !box.Contains(a) {
			next = append(next, a)
		}
	}
	for _, c := range corners {
		if b.openAnchor(c, next) {
			next = append(next, c)
		}
	}

	sort.Slice(next, func(i, j int) bool { return next[i].Less(next[j]) })
	if len(next) > b.anchorCap {
		next = next[:b.anchorCap]
	}
	b.anchors = next
}

// openAnchor reports whether p is strictly inside the bin, outside every
// placed box and not already listed.
func (b *Bin) openAnchor(p geometry.Point, existing []geometry.Point) bool {
	if p.X >= b.size.Width-geometry.Epsilon ||
		p.Y >= b.size.Height-geometry.Epsilon ||
		p.Z >= b.size.Depth-geometry.Epsilon {
		return false
	}
	for _, box := range b.boxes {
		if box.Contains(p) {
			return false
		}
	}
	for _, e := range existing {
		if samePoint(e, p) {
			return false
		}
	}
	return true
}

func spans(v, lo, hi float64) bool {
	return v >= lo-geometry.Epsilon && v < hi-geometry.Epsilon
}

func samePoint(a, b geometry.Point) bool {
	return math.Abs(a.X-b.X) <= geometry.Epsilon &&
		math.Abs(a.Y-b.Y) <= geometry.Epsilon &&
		math.Abs(a.Z-b.Z) <= geometry.Epsilon
}
