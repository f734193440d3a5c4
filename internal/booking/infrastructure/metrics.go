package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_client_requests_total",
		Help: "Calls to collaborator services by operation and outcome",
	}, []string{
		"operation", // login|register|routes|schedules|availability|reserve|profile
		"outcome",   // ok|validation|auth_expired|malformed|transport
	})

	clientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_client_request_duration_seconds",
		Help:    "Latency of calls to collaborator services",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

func observeCall(operation, outcome string, started time.Time) {
	clientRequestsTotal.WithLabelValues(operation, outcome).Inc()
	if !started.IsZero() {
		clientRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	}
}
