package packing

import (
	"go.uber.org/zap"
)

// Option configures an Engine.
type Option func(*Engine)

// WithMethod selects a built-in heuristic. Defaults to BestLookahead.
func WithMethod(m Method) Option {
	return func(e *Engine) {
		e.method = m
	}
}

// WithLookahead sets the BestLookahead window. Values outside
// 1..MaxLookahead are rejected whatever the method.
func WithLookahead(k int) Option {
	return func(e *Engine) {
		e.lookahead = k
	}
}

// WithWorkingRange sets the largest container dimension strategies work on
// without rescaling. Zero disables scaling. It overrides the range of a
// RangeBounded strategy; without it built-in strategies run unscaled.
func WithWorkingRange(r float64) Option {
	return func(e *Engine) {
		e.workingRange = r
		e.workingRangeSet = true
	}
}

// WithAnchorCap bounds the number of open anchors per bin.
func WithAnchorCap(n int) Option {
	return func(e *Engine) {
		e.anchorCap = n
	}
}

// WithOrder sets the order in which items are offered to the strategy.
func WithOrder(o Order) Option {
	return func(e *Engine) {
		e.order = o
	}
}

// WithLogger attaches a logger; the engine is silent by default.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStrategy plugs in a strategy that is not one of the built-in
// methods, such as a learned policy. It takes precedence over WithMethod.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}
