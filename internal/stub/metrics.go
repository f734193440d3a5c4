package stub

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics lives on its own registry so several servers can run in one process.
type Metrics struct {
	registry *prometheus.Registry

	registrations        prometheus.Counter
	logins               prometheus.Counter
	reservations         prometheus.Counter
	reservationErrors    prometheus.Counter
	availabilityRequests prometheus.Counter
	availabilityLatency  prometheus.Histogram
	reservationLatency   prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "user_registrations_total",
			Help: "Total number of registered users.",
		}),
		logins: factory.NewCounter(prometheus.CounterOpts{
			Name: "user_logins_total",
			Help: "Total number of successful logins.",
		}),
		reservations: factory.NewCounter(prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Total number of seat reservations.",
		}),
		reservationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "reservation_errors_total",
			Help: "Total number of failed seat reservations.",
		}),
		availabilityRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "availability_requests_total",
			Help: "Total number of availability checks.",
		}),
		availabilityLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "availability_response_latency_seconds",
			Help:    "Response latency for availability checks.",
			Buckets: prometheus.DefBuckets,
		}),
		reservationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reservation_response_latency_seconds",
			Help:    "Response latency for reservations.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
