package packing

import (
	"math"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

const (
	// DefaultLookahead is the window used by BestLookahead when none is given.
	DefaultLookahead = 5
	// MaxLookahead is the largest accepted lookahead window.
	MaxLookahead = 10
)

// Candidate is a queued item as a strategy sees it: sizes are in working
// units and Orientations only holds the permutations that can fit the
// empty container.
type Candidate struct {
	ID           string
	Weight       float64
	Orientations []geometry.Orientation
}

// Proposal names the window item to place next and where to put it.
type Proposal struct {
	Index       int
	Anchor      geometry.Point
	Orientation geometry.Orientation
}

// Strategy chooses placements for the bin being filled. Implementations
// must be deterministic and must not retain the bin between calls.
type Strategy interface {
	// Name is reported as the result's algorithm.
	Name() string
	// Window is how many queued items Propose may look at.
	Window() int
	// Propose returns a placement the bin accepts, or false when none of
	// the window's items fit.
	Propose(bin *Bin, window []Candidate) (Proposal, bool)
}

// RangeBounded is implemented by strategies that only work on a bounded
// grid, such as a learned policy trained on fixed-size bins. Unless the
// caller sets WithWorkingRange, the engine rescales each container so its
// largest dimension equals WorkingRange.
type RangeBounded interface {
	WorkingRange() float64
}

// NewStrategy returns the built-in strategy for method. The built-ins work
// on real units and do not implement RangeBounded. Lookahead only affects
// BestLookahead.
func NewStrategy(method Method, lookahead int) (Strategy, error) {
	switch method {
	case BestLookahead:
		if err := ValidateLookahead(lookahead); err != nil {
			return nil, err
		}
		return &heuristic{name: "best_lookahead", window: lookahead, score: leftoverGap}, nil
	case BestAreaFit:
		return &heuristic{name: "best_area_fit", window: 1, score: footprintWaste}, nil
	case BestShortSideFit:
		return &heuristic{name: "best_short_side_fit", window: 1, score: shortSideLeftover}, nil
	case BestLongSideFit:
		return &heuristic{name: "best_long_side_fit", window: 1, score: longSideLeftover}, nil
	default:
		return nil, newValidationError(ErrUnknownMethod)
	}
}

// scoreFunc rates placing an item of size into the free extent residual.
// Lower is better.
type scoreFunc func(residual, size geometry.Cuboid) float64

type heuristic struct {
	name   string
	window int
	score  scoreFunc
}

func (h *heuristic) Name() string { return h.name }

func (h *heuristic) Window() int { return h.window }

func (h *heuristic) Propose(bin *Bin, window []Candidate) (Proposal, bool) {
	if len(window) > h.window {
		window = window[:h.window]
	}

	var (
		best      Proposal
		bestScore float64
		found     bool
	)
	for _, anchor := range bin.anchors {
		residual := bin.Residual(anchor)
		for idx, c := range window {
			for _, o := range c.Orientations {
				if o.Size.Width > residual.Width+geometry.Epsilon ||
					o.Size.Height > residual.Height+geometry.Epsilon ||
					o.Size.Depth > residual.Depth+geometry.Epsilon {
					continue
				}
				if !bin.Accepts(geometry.Box{Origin: anchor, Size: o.Size}, c.Weight) {
					continue
				}
				p := Proposal{Index: idx, Anchor: anchor, Orientation: o}
				s := h.score(residual, o.Size)
				if !found || better(s, p, bestScore, best) {
					best, bestScore, found = p, s, true
				}
			}
		}
	}
	return best, found
}

// better orders proposals by score, then anchor (z, y, x), then
// orientation code, then window index.
func better(score float64, p Proposal, bestScore float64, best Proposal) bool {
	if math.Abs(score-bestScore) > geometry.Epsilon {
		return score < bestScore
	}
	if !samePoint(p.Anchor, best.Anchor) {
		return p.Anchor.Less(best.Anchor)
	}
	if p.Orientation.Code != best.Orientation.Code {
		return p.Orientation.Code < best.Orientation.Code
	}
	return p.Index < best.Index
}
