package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics records calls made against the upstream commerce API.
type CommerceMetrics struct {
	duration *prometheus.HistogramVec
	calls    *prometheus.CounterVec
}

// NewCommerceMetrics registers the commerce client metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commerce_request_duration_seconds",
		Help:    "Duration of commerce API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_requests_total",
		Help: "Commerce API requests by outcome.",
	}, []string{"endpoint", "method", "outcome"})
	reg.MustRegister(duration, calls)
	return &CommerceMetrics{duration: duration, calls: calls}
}

// Observe records one finished request.
func (c *CommerceMetrics) Observe(endpoint, method, outcome string, elapsed time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	method = normalizeLabel(method)
	c.duration.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
	c.calls.WithLabelValues(endpoint, method, normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
