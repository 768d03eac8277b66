package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JanitorMetrics records runs of the session state maintenance jobs.
type JanitorMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	purged   prometheus.Counter
	evicted  prometheus.Counter
}

func NewJanitorMetrics(reg prometheus.Registerer) *JanitorMetrics {
	if reg == nil {
		return &JanitorMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "janitor_job_duration_seconds",
		Help:    "Duration of janitor jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "janitor_job_success_total",
		Help: "Successful janitor job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "janitor_job_failure_total",
		Help: "Failed janitor job executions.",
	}, []string{"job"})
	purged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_state_purged_total",
		Help: "Expired session state entries removed.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_resolvers_evicted_total",
		Help: "Idle checkout resolvers dropped from memory.",
	})
	reg.MustRegister(duration, success, failure, purged, evicted)
	return &JanitorMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		purged:   purged,
		evicted:  evicted,
	}
}

func (j *JanitorMetrics) ObserveDuration(job string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (j *JanitorMetrics) IncSuccess(job string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (j *JanitorMetrics) IncFailure(job string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func (j *JanitorMetrics) AddPurged(n int64) {
	if j == nil || j.purged == nil || n <= 0 {
		return
	}
	j.purged.Add(float64(n))
}

func (j *JanitorMetrics) AddEvicted(n int64) {
	if j == nil || j.evicted == nil || n <= 0 {
		return
	}
	j.evicted.Add(float64(n))
}
