package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/lexiqai/alfred/internal/config"
	"github.com/lexiqai/alfred/internal/observability"
)

// Guard protects calls to one remote service with a circuit breaker and
// retries on transient network errors. Breaker state is exported as a metric.
type Guard struct {
	breaker *CircuitBreaker
	retry   *RetryConfig
}

// NewGuard creates a guard for the named service
func NewGuard(name string, maxFailures int, resetTimeout time.Duration, retry *RetryConfig) *Guard {
	cb := NewCircuitBreaker(name, maxFailures, resetTimeout)
	cb.OnStateChange = func(service string, state CircuitState) {
		observability.UpdateCircuitBreakerState(service, int(state))
	}
	observability.UpdateCircuitBreakerState(name, int(StateClosed))
	return &Guard{breaker: cb, retry: retry}
}

// NewGuardFromConfig creates a guard using the configured breaker and retry settings
func NewGuardFromConfig(name string, cfg *config.Config) *Guard {
	return NewGuard(name, cfg.CircuitBreakerMaxFailures, config.Seconds(cfg.CircuitBreakerResetTimeout), &RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    config.Millis(cfg.RetryInitialBackoff),
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	})
}

// Breaker exposes the underlying circuit breaker
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// Do runs fn under the breaker, retrying retryable failures.
// A call cancelled by ctx is not counted against the service.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return Retry(ctx, func(ctx context.Context) error {
		if !g.breaker.allowRequest() {
			return ErrCircuitOpen
		}

		err := fn(ctx)
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			g.breaker.abandon()
			return err
		}

		g.breaker.RecordResult(err == nil)
		if err != nil {
			observability.IncrementCircuitBreakerFailures(g.breaker.Name())
		}
		return err
	}, g.retry, IsRetryableNetworkError)
}

// Healthy reports an error while the breaker is open
func (g *Guard) Healthy(ctx context.Context) error {
	if g.breaker.GetState() == StateOpen {
		return ErrCircuitOpen
	}
	return nil
}
