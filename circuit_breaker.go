package sheetorm

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Trip thresholds for the read path. Every query costs one HTTP round trip
// against a single shared endpoint, so the breaker opens on a short burst of
// mostly-failing requests rather than waiting for a long consecutive run.
const (
	breakerMinRequests     = 3
	breakerMinFailureRatio = 0.6
)

// NewCircuitBreakerConfig returns a factory that builds a circuit breaker
// for a query endpoint, suitable for Config.NewCircuitBreaker. The breaker
// sheds read-path load once the service fails repeatedly instead of letting
// every operation wait out its own transport failure.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[[]byte] {
	return func(endpoint string) *gobreaker.CircuitBreaker[[]byte] {
		settings := gobreaker.Settings{
			Name:        endpoint,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= breakerMinRequests && failureRatio >= breakerMinFailureRatio
			},
		}
		return gobreaker.NewCircuitBreaker[[]byte](settings)
	}
}
