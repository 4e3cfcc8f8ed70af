package packing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/binpack3d/internal/geometry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// assertValidLayout checks the properties every result must hold whatever
// the strategy: containment, no overlap within a bin, weight caps, counts
// and contiguous bin numbering.
func assertValidLayout(t *testing.T, res Result, items []Item, container Container) {
	t.Helper()

	require.True(t, res.Success)
	assert.Equal(t, len(items), res.ItemsRequested)
	assert.Equal(t, len(res.Placements), res.ItemsPacked)
	assert.Equal(t, res.ItemsRequested, res.ItemsPacked+len(res.UnpackedItems), "every item is placed or reported")
	assert.GreaterOrEqual(t, res.UtilizationPct, 0.0)
	assert.LessOrEqual(t, res.UtilizationPct, 100.0)

	byID := make(map[string]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	seen := make(map[string]bool)
	for _, id := range res.UnpackedItems {
		assert.False(t, seen[id], "item %s reported twice", id)
		seen[id] = true
	}

	weights := make(map[int]float64)
	bins := make(map[int]bool)
	for i, p := range res.Placements {
		item, ok := byID[p.ItemID]
		require.True(t, ok, "unknown item %s", p.ItemID)
		assert.False(t, seen[p.ItemID], "item %s reported twice", p.ItemID)
		seen[p.ItemID] = true

		assert.InDelta(t, item.Size().Volume(), p.Dimensions.Volume(), 1e-6, "dimensions of %s are a permutation", p.ItemID)
		assert.Equal(t, item.Size().Permute(p.Rotation), p.Dimensions)
		if !item.AllowRotation {
			assert.Equal(t, 0, p.Rotation, "item %s must not rotate", p.ItemID)
		}
		assert.True(t, geometry.FitsIn(p.Box(), container.Size()), "%s at %+v leaves the container", p.ItemID, p.Position)
		assert.GreaterOrEqual(t, p.BinNumber, 1)
		assert.LessOrEqual(t, p.BinNumber, res.BinsUsed)

		for _, q := range res.Placements[i+1:] {
			if q.BinNumber == p.BinNumber {
				assert.False(t, geometry.Overlaps(p.Box(), q.Box()), "%s overlaps %s in bin %d", p.ItemID, q.ItemID, p.BinNumber)
			}
		}
		weights[p.BinNumber] += p.Weight
		bins[p.BinNumber] = true
	}
	for b := 1; b <= res.BinsUsed; b++ {
		assert.True(t, bins[b], "bin %d has no placements", b)
	}
	if container.MaxWeight > 0 {
		for b, w := range weights {
			assert.LessOrEqual(t, w, container.MaxWeight+1e-9, "bin %d is overweight", b)
		}
	}
}

func crates(prefix string, n int, w, h, d, weight float64) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{
			ID:            fmt.Sprintf("%s-%d", prefix, i+1),
			Width:         w,
			Height:        h,
			Depth:         d,
			Weight:        weight,
			AllowRotation: true,
		}
	}
	return out
}

func randomItems(seed int64, n int) []Item {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{
			ID:            fmt.Sprintf("r-%d", i),
			Width:         float64(5 + rng.Intn(56)),
			Height:        float64(5 + rng.Intn(56)),
			Depth:         float64(5 + rng.Intn(56)),
			Weight:        float64(1 + rng.Intn(30)),
			AllowRotation: rng.Float64() < 0.7,
		}
	}
	return out
}

func packWith(t *testing.T, items []Item, container Container, opts ...Option) Result {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	e, err := New(opts...)
	require.NoError(t, err)
	res, err := e.Pack(context.Background(), items, container)
	require.NoError(t, err)
	return res
}

func TestPack_EqualCratesShareOneBin(t *testing.T) {
	t.Parallel()

	container := Container{Width: 240, Height: 120, Depth: 100}
	items := crates("crate", 5, 50, 40, 30, 25)

	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()
			res := packWith(t, items, container, WithMethod(m), WithWorkingRange(GridWorkingRange))

			assertValidLayout(t, res, items, container)
			assert.Equal(t, 5, res.ItemsPacked)
			assert.Equal(t, 1, res.BinsUsed)
			assert.Empty(t, res.UnpackedItems)
			assert.Equal(t, m.String(), res.Algorithm)
			assert.InDelta(t, 32.0/240.0, res.ScaleFactor, 1e-12)
			assert.Equal(t, container.Size(), res.Container)
		})
	}
}

func TestPack_TwentyFootContainerMixedCargo(t *testing.T) {
	t.Parallel()

	container := Container{Width: 589, Height: 235, Depth: 239}
	var items []Item
	items = append(items, crates("large", 3, 120, 100, 80, 60)...)
	items = append(items, crates("medium", 2, 100, 80, 60, 35)...)
	items = append(items, crates("small", 3, 60, 50, 40, 12)...)

	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()
			res := packWith(t, items, container, WithMethod(m), WithWorkingRange(GridWorkingRange))

			assertValidLayout(t, res, items, container)
			assert.Equal(t, 8, res.ItemsPacked)
			assert.Equal(t, 1, res.BinsUsed)
			assert.Less(t, res.ScaleFactor, 1.0)
			assert.Greater(t, res.UtilizationPct, 0.0)
		})
	}
}

func TestPack_DefaultKeepsExactGeometry(t *testing.T) {
	t.Parallel()

	container := Container{Width: 240, Height: 120, Depth: 100}
	items := crates("half", 2, 120, 120, 100, 0)
	for i := range items {
		items[i].AllowRotation = false
	}

	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()
			res := packWith(t, items, container, WithMethod(m))

			assertValidLayout(t, res, items, container)
			assert.Equal(t, 2, res.ItemsPacked)
			assert.Equal(t, 1, res.BinsUsed)
			assert.Empty(t, res.UnpackedItems)
			assert.Equal(t, 1.0, res.ScaleFactor)
		})
	}

	// On a 32-unit grid the depth of 100 floors to 13 for the container and
	// ceils to 14 for each half.
	res := packWith(t, items, container, WithWorkingRange(GridWorkingRange))
	assert.Zero(t, res.ItemsPacked)
	assert.Len(t, res.UnpackedItems, 2)
}

func TestPack_OversizedItemsAreReportedUnpacked(t *testing.T) {
	t.Parallel()

	container := Container{Width: 240, Height: 120, Depth: 100}
	items := crates("huge", 20, 300, 300, 300, 1)

	res := packWith(t, items, container)

	assertValidLayout(t, res, items, container)
	assert.True(t, res.Success)
	assert.Zero(t, res.ItemsPacked)
	assert.Zero(t, res.BinsUsed)
	assert.Zero(t, res.UtilizationPct)
	assert.Len(t, res.UnpackedItems, 20)
	assert.Equal(t, "huge-1", res.UnpackedItems[0])
}

func TestPack_WeightCapOpensNewBins(t *testing.T) {
	t.Parallel()

	container := Container{Width: 100, Height: 100, Depth: 100, MaxWeight: 100}
	items := crates("heavy", 4, 20, 20, 20, 40)

	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()
			res := packWith(t, items, container, WithMethod(m))

			assertValidLayout(t, res, items, container)
			assert.Equal(t, 4, res.ItemsPacked)
			assert.Equal(t, 2, res.BinsUsed)
		})
	}
}

func TestPack_ItemHeavierThanCapIsUnpacked(t *testing.T) {
	t.Parallel()

	container := Container{Width: 10, Height: 10, Depth: 10, MaxWeight: 50}
	items := []Item{
		{ID: "light", Width: 2, Height: 2, Depth: 2, Weight: 10},
		{ID: "anvil", Width: 2, Height: 2, Depth: 2, Weight: 51},
	}

	res := packWith(t, items, container)

	assertValidLayout(t, res, items, container)
	assert.Equal(t, []string{"anvil"}, res.UnpackedItems)
	assert.Equal(t, 1, res.ItemsPacked)
}

func TestPack_EmptyInput(t *testing.T) {
	t.Parallel()

	res := packWith(t, nil, Container{Width: 10, Height: 10, Depth: 10})

	assert.True(t, res.Success)
	assert.Zero(t, res.BinsUsed)
	assert.Zero(t, res.ItemsPacked)
	assert.Zero(t, res.ItemsRequested)
	assert.Zero(t, res.UtilizationPct)
	assert.NotNil(t, res.Placements)
	assert.NotNil(t, res.UnpackedItems)
}

func TestPack_RotationRespectsAllowRotation(t *testing.T) {
	t.Parallel()

	container := Container{Width: 50, Height: 10, Depth: 50}
	post := Item{ID: "post", Width: 10, Height: 50, Depth: 10}

	res := packWith(t, []Item{post}, container, WithWorkingRange(0))
	assert.Equal(t, []string{"post"}, res.UnpackedItems)

	post.AllowRotation = true
	res = packWith(t, []Item{post}, container, WithWorkingRange(0))
	require.Len(t, res.Placements, 1)
	p := res.Placements[0]
	assert.NotZero(t, p.Rotation)
	assert.Equal(t, 10.0, p.Dimensions.Height)
	assertValidLayout(t, res, []Item{post}, container)
}

func TestPack_RandomWorkloadsKeepLayoutValid(t *testing.T) {
	t.Parallel()

	container := Container{Width: 120, Height: 100, Depth: 80, MaxWeight: 300}
	items := randomItems(7, 60)

	for _, m := range Methods() {
		for _, wr := range []float64{0, GridWorkingRange} {
			t.Run(fmt.Sprintf("%s/range=%g", m, wr), func(t *testing.T) {
				t.Parallel()
				res := packWith(t, items, container, WithMethod(m), WithWorkingRange(wr))
				assertValidLayout(t, res, items, container)
				assert.Equal(t, len(items), res.ItemsPacked)
			})
		}
	}
}

func TestPack_ExactModeKeepsOriginalUnits(t *testing.T) {
	t.Parallel()

	container := Container{Width: 240, Height: 120, Depth: 100}
	items := crates("crate", 3, 50, 40, 30, 1)

	res := packWith(t, items, container, WithWorkingRange(0))

	assertValidLayout(t, res, items, container)
	assert.Equal(t, 1.0, res.ScaleFactor)
	assert.Equal(t, geometry.Point{}, res.Placements[0].Position)
}

func TestPack_Deterministic(t *testing.T) {
	t.Parallel()

	container := Container{Width: 120, Height: 100, Depth: 80, MaxWeight: 250}
	items := randomItems(42, 40)
	ignoreTiming := cmpopts.IgnoreFields(Result{}, "ComputationTimeMs")

	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			t.Parallel()
			first := packWith(t, items, container, WithMethod(m))
			second := packWith(t, items, container, WithMethod(m))
			if diff := cmp.Diff(first, second, ignoreTiming); diff != "" {
				t.Fatalf("repeated run differs (-first +second):\n%s", diff)
			}
		})
	}
}

func TestPack_VolumeDescendingOrder(t *testing.T) {
	t.Parallel()

	container := Container{Width: 100, Height: 100, Depth: 100}
	items := []Item{
		{ID: "small", Width: 10, Height: 10, Depth: 10},
		{ID: "big", Width: 40, Height: 40, Depth: 40},
		{ID: "mid", Width: 20, Height: 20, Depth: 20},
	}

	res := packWith(t, items, container, WithMethod(BestAreaFit), WithOrder(OrderVolumeDesc), WithWorkingRange(0))

	assertValidLayout(t, res, items, container)
	require.Len(t, res.Placements, 3)
	assert.Equal(t, "big", res.Placements[0].ItemID)
	assert.Equal(t, "mid", res.Placements[1].ItemID)
	assert.Equal(t, "small", res.Placements[2].ItemID)
	assert.Equal(t, "small", items[0].ID, "input slice is left untouched")
}

func TestPack_ValidationErrors(t *testing.T) {
	t.Parallel()

	good := Container{Width: 10, Height: 10, Depth: 10}
	tests := []struct {
		name      string
		items     []Item
		container Container
		want      error
	}{
		{
			name:      "zero container width",
			container: Container{Width: 0, Height: 10, Depth: 10},
			want:      ErrInvalidContainer,
		},
		{
			name:      "negative max weight",
			container: Container{Width: 10, Height: 10, Depth: 10, MaxWeight: -1},
			want:      ErrInvalidContainer,
		},
		{
			name:      "negative item dimension",
			items:     []Item{{ID: "a", Width: -1, Height: 1, Depth: 1}},
			container: good,
			want:      ErrInvalidItem,
		},
		{
			name:      "negative item weight",
			items:     []Item{{ID: "a", Width: 1, Height: 1, Depth: 1, Weight: -2}},
			container: good,
			want:      ErrInvalidItem,
		},
		{
			name:      "duplicate id",
			items:     []Item{{ID: "a", Width: 1, Height: 1, Depth: 1}, {ID: "a", Width: 1, Height: 1, Depth: 1}},
			container: good,
			want:      ErrDuplicateItemID,
		},
		{
			name:      "empty id",
			items:     []Item{{Width: 1, Height: 1, Depth: 1}},
			container: good,
			want:      ErrDuplicateItemID,
		},
	}

	e, err := New()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := e.Pack(context.Background(), tt.items, tt.container)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestPack_ValidationCollectsEveryProblem(t *testing.T) {
	t.Parallel()

	e, err := New()
	require.NoError(t, err)

	_, err = e.Pack(context.Background(), []Item{
		{ID: "a", Width: 0, Height: 1, Depth: 1},
		{ID: "a", Width: 1, Height: 1, Depth: 1, Weight: -1},
	}, Container{Width: 1, Height: -1, Depth: 1})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems(), 4)
	assert.ErrorIs(t, err, ErrInvalidContainer)
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.ErrorIs(t, err, ErrDuplicateItemID)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"unknown method", []Option{WithMethod(Method(99))}, ErrUnknownMethod},
		{"lookahead zero", []Option{WithLookahead(0)}, ErrInvalidLookahead},
		{"lookahead too large", []Option{WithLookahead(MaxLookahead + 1)}, ErrInvalidLookahead},
		{"negative working range", []Option{WithWorkingRange(-1)}, ErrInvalidOption},
		{"anchor cap zero", []Option{WithAnchorCap(0)}, ErrInvalidOption},
		{"unknown order", []Option{WithOrder(Order(9))}, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := New(tt.opts...)
			assert.Nil(t, e)
			assert.True(t, IsValidation(err))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_LookaheadCheckedForEveryMethod(t *testing.T) {
	t.Parallel()

	for _, m := range Methods() {
		for _, k := range []int{-3, 0, MaxLookahead + 1, 50} {
			t.Run(fmt.Sprintf("%s/%d", m, k), func(t *testing.T) {
				t.Parallel()
				e, err := New(WithMethod(m), WithLookahead(k))
				assert.Nil(t, e)
				assert.True(t, IsValidation(err))
				assert.ErrorIs(t, err, ErrInvalidLookahead)
			})
		}

		e, err := New(WithMethod(m), WithLookahead(MaxLookahead))
		require.NoError(t, err)
		assert.Equal(t, m.String(), e.Algorithm())
	}
}

func TestNew_ReportsLookaheadAlongsideOtherProblems(t *testing.T) {
	t.Parallel()

	_, err := New(WithMethod(BestAreaFit), WithLookahead(-3), WithAnchorCap(0))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems(), 2)
	assert.ErrorIs(t, err, ErrInvalidLookahead)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestPack_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := New()
	require.NoError(t, err)
	res, err := e.Pack(ctx, crates("c", 3, 1, 1, 1, 0), Container{Width: 10, Height: 10, Depth: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsValidation(err))
	assert.Equal(t, Result{}, res)
}

// cancelingStrategy cancels the run once it has answered limit proposals.
type cancelingStrategy struct {
	Strategy
	cancel context.CancelFunc
	limit  int
	calls  int
}

func (s *cancelingStrategy) Propose(bin *Bin, window []Candidate) (Proposal, bool) {
	s.calls++
	if s.calls == s.limit {
		s.cancel()
	}
	return s.Strategy.Propose(bin, window)
}

func TestPack_CancellationStopsBetweenItems(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner, err := NewStrategy(BestAreaFit, 1)
	require.NoError(t, err)
	s := &cancelingStrategy{Strategy: inner, cancel: cancel, limit: 3}

	e, err := New(WithStrategy(s))
	require.NoError(t, err)
	_, err = e.Pack(ctx, crates("c", 10, 1, 1, 1, 0), Container{Width: 10, Height: 10, Depth: 10})

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "after 3 placements")
	assert.Equal(t, 3, s.calls)
}

type fixedStrategy struct {
	proposal Proposal
}

func (fixedStrategy) Name() string { return "fixed" }

func (fixedStrategy) Window() int { return 1 }

func (s fixedStrategy) Propose(*Bin, []Candidate) (Proposal, bool) {
	return s.proposal, true
}

// gridStrategy is a built-in heuristic restricted to a bounded grid.
type gridStrategy struct {
	Strategy
	size float64
}

func (s gridStrategy) WorkingRange() float64 { return s.size }

func TestNew_RangeBoundedStrategyScalesByDefault(t *testing.T) {
	t.Parallel()

	inner, err := NewStrategy(BestAreaFit, 1)
	require.NoError(t, err)
	container := Container{Width: 240, Height: 120, Depth: 100}
	items := crates("crate", 5, 50, 40, 30, 0)

	res := packWith(t, items, container, WithStrategy(gridStrategy{Strategy: inner, size: GridWorkingRange}))
	assertValidLayout(t, res, items, container)
	assert.InDelta(t, 32.0/240.0, res.ScaleFactor, 1e-12)

	res = packWith(t, items, container, WithStrategy(gridStrategy{Strategy: inner, size: 48}))
	assert.InDelta(t, 48.0/240.0, res.ScaleFactor, 1e-12)

	res = packWith(t, items, container,
		WithStrategy(gridStrategy{Strategy: inner, size: GridWorkingRange}), WithWorkingRange(0))
	assert.Equal(t, 1.0, res.ScaleFactor, "explicit working range wins")
	assert.Equal(t, 5, res.ItemsPacked)

	_, err = New(WithStrategy(gridStrategy{Strategy: inner, size: -1}))
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestPack_RejectsInvalidProposals(t *testing.T) {
	t.Parallel()

	container := Container{Width: 10, Height: 10, Depth: 10}
	items := []Item{{ID: "a", Width: 5, Height: 5, Depth: 5}}

	tests := []struct {
		name     string
		proposal Proposal
	}{
		{"index outside window", Proposal{Index: 3}},
		{"outside the bin", Proposal{Anchor: geometry.Point{X: 8}}},
		{"unknown orientation", Proposal{Orientation: geometry.Orientation{Code: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := New(WithStrategy(fixedStrategy{proposal: tt.proposal}), WithWorkingRange(0))
			require.NoError(t, err)
			_, err = e.Pack(context.Background(), items, container)
			require.ErrorIs(t, err, ErrInvalidProposal)
			assert.False(t, IsValidation(err))
		})
	}
}

func TestRun_UsesRequestSettings(t *testing.T) {
	t.Parallel()

	req := Request{
		Items:     crates("crate", 4, 20, 20, 20, 30),
		Container: Container{Width: 100, Height: 100, Depth: 100, MaxWeight: 500},
		MaxWeight: 60,
		Method:    BestLongSideFit,
	}

	res, err := Run(context.Background(), req, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, "best_long_side_fit", res.Algorithm)
	assert.Equal(t, 2, res.BinsUsed, "top-level max weight overrides the container's")
	assertValidLayout(t, res, req.Items, req.EffectiveContainer())
}

func TestRun_DefaultsLookahead(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), Request{
		Items:     crates("crate", 2, 1, 1, 1, 0),
		Container: Container{Width: 4, Height: 4, Depth: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, "best_lookahead", res.Algorithm)
	assert.Equal(t, 2, res.ItemsPacked)
}

func TestRun_RejectsBadLookahead(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Request{
		Container: Container{Width: 4, Height: 4, Depth: 4},
		Lookahead: MaxLookahead + 1,
	})
	assert.True(t, errors.Is(err, ErrInvalidLookahead))
}
