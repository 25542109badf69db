package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memorylane",
			Name:      "operations_total",
			Help:      "Messages handled, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memorylane",
			Name:      "request_duration_seconds",
			Help:      "Message handling latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

// outcome is "success" or the failure kind.
func outcome(success bool, kind string) string {
	if success {
		return "success"
	}
	if kind == "" {
		return "failure"
	}
	return kind
}
