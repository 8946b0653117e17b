package resilience

import "context"

// FallbackFunc produces a degraded result when the breaker rejects a call.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback returns the original error unchanged.
func NoopFallback() FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		return nil, err
	}
}
