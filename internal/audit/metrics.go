package audit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auditor",
		Name:      "check_duration_seconds",
		Help:      "Time spent running a single check against a URL.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"check", "status"})
	metricCheckFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auditor",
		Name:      "check_failures_total",
		Help:      "Checks that ended with a failure marker, by category.",
	}, []string{"check", "category"})
	metricCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auditor",
		Name:      "cache_hits_total",
		Help:      "Check results served from the result cache.",
	}, []string{"check"})
)

func recordCheck(kind CheckKind, res Result, elapsed time.Duration) {
	metricCheckDuration.WithLabelValues(string(kind), string(res.Status)).Observe(elapsed.Seconds())
	if res.Failure != nil {
		metricCheckFailures.WithLabelValues(string(kind), string(res.Failure.Category)).Inc()
	}
}

func recordCacheHit(kind CheckKind) {
	metricCacheHits.WithLabelValues(string(kind)).Inc()
}
