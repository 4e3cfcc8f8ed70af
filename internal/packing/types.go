package packing

import "github.com/eugenenazirov/binpack3d/internal/geometry"

// Item is a single cuboid to be loaded. Items are never mutated by the engine.
type Item struct {
	ID            string  `json:"id" yaml:"id"`
	Width         float64 `json:"width" yaml:"width"`
	Height        float64 `json:"height" yaml:"height"`
	Depth         float64 `json:"depth" yaml:"depth"`
	Weight        float64 `json:"weight" yaml:"weight"`
	AllowRotation bool    `json:"allow_rotation" yaml:"allow_rotation"`
}

// Size returns the item's dimensions as a cuboid.
func (i Item) Size() geometry.Cuboid {
	return geometry.Cuboid{Width: i.Width, Height: i.Height, Depth: i.Depth}
}

// Container is the bin shape reused for every bin opened during a run.
// A zero MaxWeight means the bin has no weight cap.
type Container struct {
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
	Depth     float64 `json:"depth" yaml:"depth"`
	MaxWeight float64 `json:"max_weight,omitempty" yaml:"max_weight,omitempty"`
}

// Size returns the container's dimensions as a cuboid.
func (c Container) Size() geometry.Cuboid {
	return geometry.Cuboid{Width: c.Width, Height: c.Height, Depth: c.Depth}
}

// Placement records where one item ended up.
type Placement struct {
	ItemID     string          `json:"item_id"`
	Position   geometry.Point  `json:"position"`
	Dimensions geometry.Cuboid `json:"dimensions"`
	Rotation   int             `json:"rotation"`
	BinNumber  int             `json:"bin_number"`
	Weight     float64         `json:"weight"`
}

// Box returns the space occupied by the placement.
func (p Placement) Box() geometry.Box {
	return geometry.Box{Origin: p.Position, Size: p.Dimensions}
}

// Result is the outcome of a packing run.
type Result struct {
	Placements        []Placement     `json:"placements"`
	BinsUsed          int             `json:"bins_used"`
	UtilizationPct    float64         `json:"utilization_pct"`
	ItemsPacked       int             `json:"items_packed"`
	ItemsRequested    int             `json:"items_requested"`
	UnpackedItems     []string        `json:"unpacked_items"`
	Algorithm         string          `json:"algorithm"`
	ComputationTimeMs int64           `json:"computation_time_ms"`
	Success           bool            `json:"success"`
	Container         geometry.Cuboid `json:"container"`
	ScaleFactor       float64         `json:"scale_factor"`
}

// Request is the record accepted by Run. MaxWeight, when set, overrides
// Container.MaxWeight.
type Request struct {
	Items     []Item    `json:"items" yaml:"items"`
	Container Container `json:"container" yaml:"container"`
	MaxWeight float64   `json:"max_weight,omitempty" yaml:"max_weight,omitempty"`
	Method    Method    `json:"method" yaml:"method"`
	Lookahead int       `json:"lookahead,omitempty" yaml:"lookahead,omitempty"`
	Order     Order     `json:"order,omitempty" yaml:"order,omitempty"`
}

// EffectiveContainer merges the top-level weight cap into the container.
func (r Request) EffectiveContainer() Container {
	c := r.Container
	if r.MaxWeight != 0 {
		c.MaxWeight = r.MaxWeight
	}
	return c
}
