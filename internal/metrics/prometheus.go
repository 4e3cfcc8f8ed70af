package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eugenenazirov/binpack3d/internal/packing"
)

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	runs          *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	itemsPacked   *prometheus.CounterVec
	itemsUnpacked *prometheus.CounterVec
	binsUsed      *prometheus.HistogramVec
	utilization   *prometheus.HistogramVec
	cacheHits     prometheus.Counter
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil) under namespace ("binpack" when
// empty). It panics if a collector is already registered.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "binpack"
	}

	p := &Prometheus{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "runs_total",
			Help:      "Completed packing runs by algorithm.",
		}, []string{"algorithm"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "failures_total",
			Help:      "Packing runs that returned an error, by algorithm and reason.",
		}, []string{"algorithm", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of packing runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}, []string{"algorithm"}),
		itemsPacked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "items_packed_total",
			Help:      "Items placed into a bin.",
		}, []string{"algorithm"}),
		itemsUnpacked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "items_unpacked_total",
			Help:      "Items that could not be placed.",
		}, []string{"algorithm"}),
		binsUsed: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "bins_used",
			Help:      "Bins opened per run.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"algorithm"}),
		utilization: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "utilization_percent",
			Help:      "Volume utilisation of the bins used per run.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"algorithm"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pack",
			Name:      "cache_hits_total",
			Help:      "Requests answered from the result cache.",
		}),
	}

	reg.MustRegister(
		p.runs,
		p.failures,
		p.duration,
		p.itemsPacked,
		p.itemsUnpacked,
		p.binsUsed,
		p.utilization,
		p.cacheHits,
	)
	return p
}

// ObserveRun records a completed run.
func (p *Prometheus) ObserveRun(res packing.Result, elapsed time.Duration) {
	alg := res.Algorithm
	p.runs.WithLabelValues(alg).Inc()
	p.duration.WithLabelValues(alg).Observe(elapsed.Seconds())
	p.itemsPacked.WithLabelValues(alg).Add(float64(res.ItemsPacked))
	p.itemsUnpacked.WithLabelValues(alg).Add(float64(len(res.UnpackedItems)))
	p.binsUsed.WithLabelValues(alg).Observe(float64(res.BinsUsed))
	p.utilization.WithLabelValues(alg).Observe(res.UtilizationPct)
}

// ObserveFailure records a run that returned an error.
func (p *Prometheus) ObserveFailure(algorithm, reason string) {
	p.failures.WithLabelValues(algorithm, reason).Inc()
}

// ObserveCacheHit records a result served from the cache.
func (p *Prometheus) ObserveCacheHit() {
	p.cacheHits.Inc()
}
