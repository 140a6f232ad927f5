package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the reservation engine collectors. It satisfies reservations.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	Created           prometheus.Counter
	Rejected          *prometheus.CounterVec
	Cancelled         prometheus.Counter
	AdmissionDuration prometheus.Histogram
}

// New registers the collectors on a fresh registry, together with Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservations_created_total",
			Help: "Total number of reservations admitted",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reservations_rejected_total",
			Help: "Total number of reservation requests rejected, by reason",
		}, []string{"reason"}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservations_cancelled_total",
			Help: "Total number of reservations cancelled",
		}),
		AdmissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reservation_admission_duration_seconds",
			Help:    "Time spent deciding a reservation request",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		}),
	}
	reg.MustRegister(
		m.Created,
		m.Rejected,
		m.Cancelled,
		m.AdmissionDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ReservationCreated(d time.Duration) {
	m.Created.Inc()
	m.AdmissionDuration.Observe(d.Seconds())
}

func (m *Metrics) ReservationRejected(reason string, d time.Duration) {
	m.Rejected.WithLabelValues(reason).Inc()
	m.AdmissionDuration.Observe(d.Seconds())
}

func (m *Metrics) ReservationCancelled() {
	m.Cancelled.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
