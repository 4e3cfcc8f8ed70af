package packing

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

func validateInput(items []Item, container Container) error {
	var errs error

	if !container.Size().Valid() {
		errs = multierr.Append(errs, fmt.Errorf("%w: got %gx%gx%g",
			ErrInvalidContainer, container.Width, container.Height, container.Depth))
	}
	if container.MaxWeight < 0 || math.IsNaN(container.MaxWeight) || math.IsInf(container.MaxWeight, 0) {
		errs = multierr.Append(errs, fmt.Errorf("%w: max weight %g", ErrInvalidContainer, container.MaxWeight))
	}

	seen := make(map[string]int, len(items))
	for i, item := range items {
		if item.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: item at index %d has no id", ErrDuplicateItemID, i))
		} else if first, ok := seen[item.ID]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q at indexes %d and %d", ErrDuplicateItemID, item.ID, first, i))
		} else {
			seen[item.ID] = i
		}

		if !item.Size().Valid() {
			errs = multierr.Append(errs, fmt.Errorf("%w: item %q has dimensions %gx%gx%g",
				ErrInvalidItem, item.ID, item.Width, item.Height, item.Depth))
		}
		if item.Weight < 0 || math.IsNaN(item.Weight) || math.IsInf(item.Weight, 0) {
			errs = multierr.Append(errs, fmt.Errorf("%w: item %q has weight %g", ErrInvalidItem, item.ID, item.Weight))
		}
	}

	if errs != nil {
		return newValidationError(errs)
	}
	return nil
}

// ValidateLookahead returns a *ValidationError when k is outside
// 1..MaxLookahead.
func ValidateLookahead(k int) error {
	if err := lookaheadError(k); err != nil {
		return newValidationError(err)
	}
	return nil
}

func lookaheadError(k int) error {
	if k < 1 || k > MaxLookahead {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidLookahead, k, MaxLookahead)
	}
	return nil
}
