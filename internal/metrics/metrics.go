// Package metrics exposes Prometheus collectors for conversation turns.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BTreeMap/DealerPipe/internal/flow"
	"github.com/BTreeMap/DealerPipe/internal/models"
)

const namespace = "dealerpipe"

// Compile-time check that Recorder implements flow.Observer.
var _ flow.Observer = (*Recorder)(nil)

// Recorder owns a private registry so several instances can coexist in
// tests. It satisfies flow.Observer.
type Recorder struct {
	registry *prometheus.Registry

	decisions   *prometheus.CounterVec
	fastPaths   *prometheus.CounterVec
	bookings    *prometheus.CounterVec
	valuations  *prometheus.CounterVec
	recoveries  *prometheus.CounterVec
	inbound     *prometheus.CounterVec
	outbound    *prometheus.CounterVec
	duplicates  prometheus.Counter
	turnSeconds prometheus.Histogram
}

// NewRecorder creates a Recorder with the Go and process collectors
// registered alongside the conversation metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Classifier decisions by source and resulting step.",
		}, []string{"source", "step", "degraded"}),
		fastPaths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fast_path_total",
			Help:      "Turns answered without the classifier.",
		}, []string{"kind"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_drive_bookings_total",
			Help:      "Test-drive booking writes by result.",
		}, []string{"result"}),
		valuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valuation_requests_total",
			Help:      "Valuation request status changes.",
		}, []string{"status"}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovered_panics_total",
			Help:      "Panics recovered at a turn boundary.",
		}, []string{"where"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound messages by transport.",
		}, []string{"provider"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Outbound messages by kind and result.",
		}, []string{"kind", "result"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_inbound_total",
			Help:      "Redelivered inbound messages that were skipped.",
		}),
		turnSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time to answer one inbound message.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.decisions, r.fastPaths, r.bookings, r.valuations, r.recoveries,
		r.inbound, r.outbound, r.duplicates, r.turnSeconds,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Decision(source models.DecisionSource, step models.Step, degraded bool) {
	d := "false"
	if degraded {
		d = "true"
	}
	r.decisions.WithLabelValues(string(source), string(step), d).Inc()
}

func (r *Recorder) FastPath(kind string) { r.fastPaths.WithLabelValues(kind).Inc() }

func (r *Recorder) Booking(err error) {
	r.bookings.WithLabelValues(result(err)).Inc()
}

func (r *Recorder) Valuation(status string) { r.valuations.WithLabelValues(status).Inc() }

func (r *Recorder) Recovered(where string) { r.recoveries.WithLabelValues(where).Inc() }

// Inbound counts a message received from provider.
func (r *Recorder) Inbound(provider string) { r.inbound.WithLabelValues(provider).Inc() }

// Duplicate counts a redelivered message that was not processed again.
func (r *Recorder) Duplicate() { r.duplicates.Inc() }

// Outbound counts one sent message of the given kind.
func (r *Recorder) Outbound(kind string, err error) {
	r.outbound.WithLabelValues(kind, result(err)).Inc()
}

// Turn records how long a turn took.
func (r *Recorder) Turn(d time.Duration) { r.turnSeconds.Observe(d.Seconds()) }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
