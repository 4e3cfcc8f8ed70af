package packing

import (
	"math"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

// The x-z plane is the supporting floor; y is vertical.

// leftoverGap is the empty volume left next to the item inside the free
// extent at its anchor.
func leftoverGap(residual, size geometry.Cuboid) float64 {
	return residual.Volume() - size.Volume()
}

// footprintWaste is the floor area left uncovered by the item.
func footprintWaste(residual, size geometry.Cuboid) float64 {
	return residual.Width*residual.Depth - size.Width*size.Depth
}

func shortSideLeftover(residual, size geometry.Cuboid) float64 {
	return math.Min(residual.Width-size.Width, residual.Depth-size.Depth)
}

func longSideLeftover(residual, size geometry.Cuboid) float64 {
	return math.Max(residual.Width-size.Width, residual.Depth-size.Depth)
}
