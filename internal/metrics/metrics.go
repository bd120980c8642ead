// Package metrics records fetch activity in a private Prometheus registry.
//
// The balance checker is a batch job with no HTTP listener, so the registry
// is exported once at the end of a run with WriteTextfile, in the format read
// by node_exporter's textfile collector.
//
// Metrics:
//   - satori_fetch_attempts_total{result} (Counter): HTTP attempts by result
//     ("ok" or a fetch error type such as "timeout", "server", "network")
//   - satori_fetch_outcomes_total{kind} (Counter): final outcomes by kind
//   - satori_fetch_attempt_duration_seconds (Histogram): duration of each attempt
//   - satori_fetches_in_flight (Gauge): lookups currently holding a permit
//
// All methods are safe on a nil *Recorder and do nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the fetch metrics of one run.
type Recorder struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	inFlight        prometheus.Gauge
}

// New creates a Recorder backed by a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "satori_fetch_attempts_total",
			Help: "Total number of balance page requests by result",
		}, []string{"result"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "satori_fetch_outcomes_total",
			Help: "Total number of address outcomes by kind",
		}, []string{"kind"}),
		attemptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "satori_fetch_attempt_duration_seconds",
			Help:    "Duration of balance page requests",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "satori_fetches_in_flight",
			Help: "Number of address lookups currently holding a concurrency permit",
		}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAttempt records one HTTP attempt.
func (r *Recorder) ObserveAttempt(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(result).Inc()
	r.attemptDuration.Observe(elapsed.Seconds())
}

// ObserveOutcome records the final outcome kind of one address.
func (r *Recorder) ObserveOutcome(kind string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(kind).Inc()
}

// FetchStarted marks a lookup as holding a permit.
func (r *Recorder) FetchStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// FetchFinished releases the mark set by FetchStarted.
func (r *Recorder) FetchFinished() {
	if r == nil {
		return
	}
	r.inFlight.Dec()
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
