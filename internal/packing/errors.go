package packing

import (
	"errors"

	"go.uber.org/multierr"
)

var (
	// ErrInvalidContainer is returned when a container dimension or weight cap is out of range.
	ErrInvalidContainer = errors.New("container dimensions must be positive and max weight non-negative")
	// ErrInvalidItem is returned when an item has a non-positive dimension or a negative weight.
	ErrInvalidItem = errors.New("item dimensions must be positive and weight non-negative")
	// ErrDuplicateItemID is returned when two items share an ID or an ID is empty.
	ErrDuplicateItemID = errors.New("item ids must be unique and non-empty")
	// ErrUnknownMethod is returned when a method name is not recognised.
	ErrUnknownMethod = errors.New("unknown packing method")
	// ErrInvalidLookahead is returned when lookahead is outside 1..MaxLookahead.
	ErrInvalidLookahead = errors.New("lookahead out of range")
	// ErrInvalidOption is returned for engine options that cannot be honoured.
	ErrInvalidOption = errors.New("invalid packing option")
	// ErrInvalidProposal is returned when a strategy proposes a placement the bin cannot accept.
	ErrInvalidProposal = errors.New("strategy proposed an invalid placement")
)

// ValidationError reports malformed input detected before packing starts.
// It may carry several problems; each one wraps one of the sentinel errors.
type ValidationError struct {
	err error
}

func newValidationError(err error) *ValidationError {
	return &ValidationError{err: err}
}

func (e *ValidationError) Error() string {
	return "invalid packing input: " + e.err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// Problems lists the individual validation failures.
func (e *ValidationError) Problems() []string {
	errs := multierr.Errors(e.err)
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
