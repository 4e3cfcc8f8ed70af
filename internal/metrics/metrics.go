// Package metrics records packing activity. The Prometheus recorder backs
// the service's /metrics endpoint; Nop discards everything.
package metrics

import (
	"time"

	"github.com/eugenenazirov/binpack3d/internal/packing"
)

// Failure reasons reported by ObserveFailure.
const (
	ReasonValidation = "validation"
	ReasonCanceled   = "canceled"
	ReasonTimeout    = "timeout"
	ReasonInternal   = "internal"
)

// Recorder observes packing runs.
type Recorder interface {
	// ObserveRun records a completed run.
	ObserveRun(res packing.Result, elapsed time.Duration)
	// ObserveFailure records a run that returned an error.
	ObserveFailure(algorithm, reason string)
	// ObserveCacheHit records a result served from the cache.
	ObserveCacheHit()
}

// Nop discards all observations.
type Nop struct{}

var _ Recorder = Nop{}

// NewNop returns a Recorder that does nothing.
func NewNop() Nop { return Nop{} }

func (Nop) ObserveRun(packing.Result, time.Duration) {}

func (Nop) ObserveFailure(string, string) {}

func (Nop) ObserveCacheHit() {}
