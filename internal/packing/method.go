package packing

import (
	"fmt"
	"strings"
)

// Method selects one of the built-in placement heuristics.
type Method int

const (
	// BestLookahead scores a window of upcoming items and commits the best one.
	BestLookahead Method = iota
	// BestAreaFit minimises the wasted footprint under the current item.
	BestAreaFit
	// BestShortSideFit minimises the shorter leftover side of the footprint.
	BestShortSideFit
	// BestLongSideFit minimises the longer leftover side of the footprint.
	BestLongSideFit
)

var methodNames = map[Method]string{
	BestLookahead:    "best_lookahead",
	BestAreaFit:      "best_area_fit",
	BestShortSideFit: "best_short_side_fit",
	BestLongSideFit:  "best_long_side_fit",
}

var methodAliases = map[string]Method{
	"bl":   BestLookahead,
	"baf":  BestAreaFit,
	"bssf": BestShortSideFit,
	"blsf": BestLongSideFit,
}

// Methods lists the built-in methods in declaration order.
func Methods() []Method {
	return []Method{BestLookahead, BestAreaFit, BestShortSideFit, BestLongSideFit}
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// Valid reports whether m is one of the built-in methods.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// ParseMethod resolves a method name or short alias (bl, baf, bssf, blsf).
// An empty string selects BestLookahead.
func ParseMethod(raw string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return BestLookahead, nil
	}
	if m, ok := methodAliases[name]; ok {
		return m, nil
	}
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, newValidationError(fmt.Errorf("%w: %q", ErrUnknownMethod, raw))
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Order controls the sequence in which items are offered to the strategy.
type Order int

const (
	// OrderInput keeps the caller's order.
	OrderInput Order = iota
	// OrderVolumeDesc offers larger items first; equal volumes keep input order.
	OrderVolumeDesc
)

func (o Order) String() string {
	switch o {
	case OrderInput:
		return "input"
	case OrderVolumeDesc:
		return "volume_desc"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder resolves an order name. An empty string selects OrderInput.
func ParseOrder(raw string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "input":
		return OrderInput, nil
	case "volume_desc":
		return OrderVolumeDesc, nil
	default:
		return 0, newValidationError(fmt.Errorf("%w: unknown order %q", ErrInvalidOption, raw))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Order) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Order) UnmarshalText(text []byte) error {
	parsed, err := ParseOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
