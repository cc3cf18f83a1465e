package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for repository operations.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	RepositoryOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "chatter", Name: "repository_operations_total", Help: "Number of repository operations by collection, operation and outcome."},
		[]string{"collection", "operation", "outcome"},
	)
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "chatter", Name: "repository_operation_duration_seconds", Help: "Latency of repository operations.", Buckets: prometheus.DefBuckets},
		[]string{"collection", "operation"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RepositoryOperations)
	reg.MustRegister(RepositoryDuration)
}

// ObserveRepository records one finished repository call.
func ObserveRepository(collection, operation, outcome string, started time.Time) {
	RepositoryOperations.WithLabelValues(collection, operation, outcome).Inc()
	RepositoryDuration.WithLabelValues(collection, operation).Observe(time.Since(started).Seconds())
}
