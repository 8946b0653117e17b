package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/marcheroute/marcheroute/pkg/config"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a breaker rejects a call and no fallback
// is configured.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings tunes a circuit breaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// BuildSettings converts configured breaker values for an upstream into
// breaker settings.
func BuildSettings(name string, cfg config.CircuitBreakerSettings) Settings {
	return Settings{
		Name:             name,
		Interval:         time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		FailureThreshold: uint32(cfg.FailureThreshold),
		SuccessThreshold: uint32(cfg.SuccessThreshold),
	}
}

// CircuitBreaker wraps gobreaker with a fallback hook and metrics.
// A nil CircuitBreaker is valid and executes calls directly.
type CircuitBreaker struct {
	name     string
	breaker  *gobreaker.CircuitBreaker
	fallback FallbackFunc
}

// NewCircuitBreaker creates a breaker. fallback may be nil.
func NewCircuitBreaker(settings Settings, fallback FallbackFunc) *CircuitBreaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.SuccessThreshold == 0 {
		settings.SuccessThreshold = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.SuccessThreshold,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			recordBreakerState(name, stateValue(to))
		},
	})

	recordBreakerState(settings.Name, stateValue(gobreaker.StateClosed))

	return &CircuitBreaker{
		name:     settings.Name,
		breaker:  breaker,
		fallback: fallback,
	}
}

// Execute runs fn through the breaker. When the breaker is open the
// fallback is invoked if one is configured, otherwise ErrCircuitOpen is
// returned.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if cb == nil || cb.breaker == nil {
		return fn(ctx)
	}

	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})

	if err == nil {
		recordBreakerRequest(cb.name, "success")
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		recordBreakerRequest(cb.name, "rejected")
		if cb.fallback != nil {
			return cb.fallback(ctx, err)
		}
		return nil, ErrCircuitOpen
	}

	recordBreakerRequest(cb.name, "failure")
	return result, err
}

// Allow reports whether the breaker would currently pass a call through.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil || cb.breaker == nil {
		return true
	}
	return cb.breaker.State() != gobreaker.StateOpen
}

// State returns the current breaker state name.
func (cb *CircuitBreaker) State() string {
	if cb == nil || cb.breaker == nil {
		return "disabled"
	}
	return cb.breaker.State().String()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
