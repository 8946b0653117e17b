package resilience

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resilience_retry_attempts_total",
		Help: "Total attempts made by retrying operations",
	}, []string{"operation"})

	retryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resilience_retry_operations_total",
		Help: "Retrying operations by final outcome",
	}, []string{"operation", "outcome"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resilience_retry_backoff_seconds",
		Help:    "Backoff delays applied between retry attempts",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	breakerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_requests_total",
		Help: "Requests passed through circuit breakers by outcome",
	}, []string{"name", "outcome"})
)

func recordRetryAttempt(operation string) {
	retryAttemptsTotal.WithLabelValues(operation).Inc()
}

func recordRetryOperation(operation, outcome string) {
	retryOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func recordRetryBackoff(operation string, delay time.Duration) {
	retryBackoffSeconds.WithLabelValues(operation).Observe(delay.Seconds())
}

func recordBreakerState(name string, state float64) {
	breakerState.WithLabelValues(name).Set(state)
}

func recordBreakerRequest(name, outcome string) {
	breakerRequestsTotal.WithLabelValues(name, outcome).Inc()
}
