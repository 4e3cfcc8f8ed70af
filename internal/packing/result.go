package packing

import (
	"math"
	"time"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

type resultInput struct {
	placements []Placement
	requested  int
	unpacked   []string
	container  geometry.Cuboid
	algorithm  string
	scale      float64
	elapsed    time.Duration
}

func buildResult(in resultInput) Result {
	placements := in.placements
	if placements == nil {
		placements = []Placement{}
	}
	unpacked := in.unpacked
	if unpacked == nil {
		unpacked = []string{}
	}

	binsUsed := 0
	for _, p := range placements {
		binsUsed = max(binsUsed, p.BinNumber)
	}

	// A run that got this far is structurally successful, including one
	// where nothing fit; callers tell those apart by ItemsPacked == 0.
	return Result{
		Placements:        placements,
		BinsUsed:          binsUsed,
		UtilizationPct:    utilization(placements, binsUsed, in.container),
		ItemsPacked:       len(placements),
		ItemsRequested:    in.requested,
		UnpackedItems:     unpacked,
		Algorithm:         in.algorithm,
		ComputationTimeMs: in.elapsed.Milliseconds(),
		Success:           true,
		Container:         in.container,
		ScaleFactor:       in.scale,
	}
}

// utilization is the packed share of the volume of all bins used, as a
// percentage in [0, 100] rounded to two decimals.
func utilization(placements []Placement, binsUsed int, container geometry.Cuboid) float64 {
	if binsUsed == 0 {
		return 0
	}
	total := float64(binsUsed) * container.Volume()
	if total <= 0 {
		return 0
	}
	var packed float64
	for _, p := range placements {
		packed += p.Dimensions.Volume()
	}
	pct := math.Min(100, math.Max(0, 100*packed/total))
	return math.Round(pct*100) / 100
}
