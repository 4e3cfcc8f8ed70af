package packing

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

// Engine packs items into bins with one fixed strategy. It holds only
// configuration, so a single Engine may serve concurrent callers.
type Engine struct {
	method          Method
	lookahead       int
	workingRange    float64
	workingRangeSet bool
	anchorCap       int
	order           Order
	logger          *zap.Logger
	strategy        Strategy
}

// New builds an Engine. Invalid options are reported as a *ValidationError.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		method:    BestLookahead,
		lookahead: DefaultLookahead,
		anchorCap: DefaultAnchorCap,
		order:     OrderInput,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	var errs error
	if err := lookaheadError(e.lookahead); err != nil {
		errs = multierr.Append(errs, err)
	}
	if e.workingRange < 0 || math.IsNaN(e.workingRange) || math.IsInf(e.workingRange, 0) {
		errs = multierr.Append(errs, fmt.Errorf("%w: working range %g", ErrInvalidOption, e.workingRange))
	}
	if e.anchorCap < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%w: anchor cap %d", ErrInvalidOption, e.anchorCap))
	}
	if e.order != OrderInput && e.order != OrderVolumeDesc {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrInvalidOption, e.order))
	}
	if errs != nil {
		return nil, newValidationError(errs)
	}

	if e.strategy == nil {
		s, err := NewStrategy(e.method, e.lookahead)
		if err != nil {
			return nil, err
		}
		e.strategy = s
	}
	if bounded, ok := e.strategy.(RangeBounded); ok && !e.workingRangeSet {
		r := bounded.WorkingRange()
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, newValidationError(fmt.Errorf("%w: %s working range %g", ErrInvalidOption, e.strategy.Name(), r))
		}
		e.workingRange = r
	}
	return e, nil
}

// Algorithm returns the name of the strategy in use.
func (e *Engine) Algorithm() string {
	return e.strategy.Name()
}

// Run builds an Engine from the request's method, lookahead and order and
// packs its items. Extra options are applied after the request's.
func Run(ctx context.Context, req Request, opts ...Option) (Result, error) {
	lookahead := req.Lookahead
	if lookahead == 0 {
		lookahead = DefaultLookahead
	}
	base := []Option{WithMethod(req.Method), WithLookahead(lookahead), WithOrder(req.Order)}
	e, err := New(append(base, opts...)...)
	if err != nil {
		return Result{}, err
	}
	return e.Pack(ctx, req.Items, req.EffectiveContainer())
}

type queued struct {
	item      Item
	candidate Candidate
}

// Pack places items into as many copies of container as needed. Invalid
// input returns a *ValidationError and no result. Items that cannot fit the
// empty container are reported in Result.UnpackedItems. The context is
// checked once before each placement; cancellation aborts the run between
// items and returns an error wrapping ctx.Err().
func (e *Engine) Pack(ctx context.Context, items []Item, container Container) (Result, error) {
	start := time.Now()

	if err := validateInput(items, container); err != nil {
		return Result{}, err
	}

	sc := newScaler(container.Size(), e.workingRange)
	binSize := sc.container(container.Size())
	if sc.active {
		e.logger.Debug("scaling container into working range",
			zap.Float64("factor", sc.factor()),
			zap.Float64("working_range", e.workingRange),
			zap.Any("container", container.Size()),
			zap.Any("scaled", binSize),
		)
	}

	queue := make([]queued, 0, len(items))
	unpacked := make([]string, 0)
	for _, item := range e.ordered(items) {
		c, clamped := newCandidate(item, sc, container.Size(), binSize)
		if clamped {
			e.logger.Warn("item dimension rounds below one working unit; clamped",
				zap.String("item_id", item.ID),
				zap.Float64("factor", sc.factor()),
			)
		}
		if !fitsEmpty(c, container.MaxWeight) {
			e.logger.Debug("item does not fit the empty container",
				zap.String("item_id", item.ID),
				zap.Float64("weight", item.Weight),
			)
			unpacked = append(unpacked, item.ID)
			continue
		}
		queue = append(queue, queued{item: item, candidate: c})
	}

	placements := make([]Placement, 0, len(queue))
	bin := newBin(binSize, container.MaxWeight, e.anchorCap)
	binNumber := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("packing aborted after %d placements: %w", len(placements), err)
		}

		n := min(e.strategy.Window(), len(queue))
		if n < 1 {
			n = 1
		}
		window := make([]Candidate, n)
		for i := range window {
			window[i] = queue[i].candidate
		}

		proposal, ok := e.strategy.Propose(bin, window)
		if !ok {
			if bin.Empty() {
				e.logger.Debug("no placement in an empty bin",
					zap.String("item_id", queue[0].item.ID))
				unpacked = append(unpacked, queue[0].item.ID)
				queue = queue[1:]
				continue
			}
			bin = newBin(binSize, container.MaxWeight, e.anchorCap)
			continue
		}

		orientation, err := checkProposal(bin, window, proposal)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", e.strategy.Name(), err)
		}

		if bin.Empty() {
			binNumber++
		}
		chosen := queue[proposal.Index]
		bin.place(geometry.Box{Origin: proposal.Anchor, Size: orientation.Size}, chosen.item.Weight)
		placements = append(placements, Placement{
			ItemID:     chosen.item.ID,
			Position:   sc.point(proposal.Anchor),
			Dimensions: chosen.item.Size().Permute(orientation.Code),
			Rotation:   orientation.Code,
			BinNumber:  binNumber,
			Weight:     chosen.item.Weight,
		})
		queue = slices.Delete(queue, proposal.Index, proposal.Index+1)
	}

	res := buildResult(resultInput{
		placements: placements,
		requested:  len(items),
		unpacked:   unpacked,
		container:  container.Size(),
		algorithm:  e.strategy.Name(),
		scale:      sc.factor(),
		elapsed:    time.Since(start),
	})

	e.logger.Info("packing completed",
		zap.String("algorithm", res.Algorithm),
		zap.Int("items_packed", res.ItemsPacked),
		zap.Int("items_requested", res.ItemsRequested),
		zap.Int("bins_used", res.BinsUsed),
		zap.Float64("utilization_pct", res.UtilizationPct),
		zap.Int64("computation_time_ms", res.ComputationTimeMs),
	)
	return res, nil
}

func (e *Engine) ordered(items []Item) []Item {
	out := slices.Clone(items)
	if e.order == OrderVolumeDesc {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Size().Volume() > out[j].Size().Volume()
		})
	}
	return out
}

// newCandidate converts an item to working units. Orientations are
// enumerated on the real size and scaled one by one; those whose real size
// cannot fit the real container are dropped, which keeps results valid even
// where a thin container axis was clamped up to one unit.
func newCandidate(item Item, sc scaler, actual, scaledBin geometry.Cuboid) (Candidate, bool) {
	_, clamped := sc.item(item.Size())
	var orientations []geometry.Orientation
	for _, o := range geometry.Orientations(item.Size(), item.AllowRotation) {
		if !geometry.FitsIn(geometry.Box{Size: o.Size}, actual) {
			continue
		}
		scaled, _ := sc.item(o.Size)
		if !geometry.FitsIn(geometry.Box{Size: scaled}, scaledBin) {
			continue
		}
		orientations = append(orientations, geometry.Orientation{Code: o.Code, Size: scaled})
	}
	return Candidate{ID: item.ID, Weight: item.Weight, Orientations: orientations}, clamped
}

func fitsEmpty(c Candidate, maxWeight float64) bool {
	if maxWeight > 0 && c.Weight > maxWeight+geometry.Epsilon {
		return false
	}
	return len(c.Orientations) > 0
}

// checkProposal re-validates a strategy's answer against the bin and
// returns the candidate's own orientation for the proposed code.
func checkProposal(bin *Bin, window []Candidate, p Proposal) (geometry.Orientation, error) {
	if p.Index < 0 || p.Index >= len(window) {
		return geometry.Orientation{}, fmt.Errorf("%w: index %d outside window of %d", ErrInvalidProposal, p.Index, len(window))
	}
	c := window[p.Index]
	for _, o := range c.Orientations {
		if o.Code != p.Orientation.Code {
			continue
		}
		if !bin.Accepts(geometry.Box{Origin: p.Anchor, Size: o.Size}, c.Weight) {
			return geometry.Orientation{}, fmt.Errorf("%w: item %q at %+v", ErrInvalidProposal, c.ID, p.Anchor)
		}
		return o, nil
	}
	return geometry.Orientation{}, fmt.Errorf("%w: item %q has no orientation %d", ErrInvalidProposal, c.ID, p.Orientation.Code)
}
