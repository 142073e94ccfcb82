package llm

import (
	"context"
	stderrors "errors"

	"kandrai/internal/config"
	"kandrai/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker wraps upstream completions with the circuit breaker pattern.
// A nil *Breaker is valid and simply runs the call.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[*Completion]
}

// NewBreaker creates the process-wide breaker, or nil when disabled
func NewBreaker(name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *Breaker {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		// A caller hanging up says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &Breaker{
		cb: gobreaker.NewCircuitBreaker[*Completion](settings),
	}
}

// Execute runs fn under breaker protection. Rejections surface as CIRCUIT_OPEN.
func (b *Breaker) Execute(fn func() (*Completion, error)) (*Completion, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	completion, err := b.cb.Execute(fn)
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.NewAIError(errors.ErrCodeCircuitOpen,
			"AI provider temporarily unavailable after repeated failures", err).
			WithContext("breaker", b.cb.Name())
	}
	return completion, err
}

// GetStats returns circuit breaker statistics
func (b *Breaker) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	counts := b.cb.Counts()
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"enabled": true,
		"healthy": b.IsHealthy(),
		"counts": map[string]uint32{
			"requests":              counts.Requests,
			"total_successes":       counts.TotalSuccesses,
			"total_failures":        counts.TotalFailures,
			"consecutive_successes": counts.ConsecutiveSuccesses,
			"consecutive_failures":  counts.ConsecutiveFailures,
		},
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *Breaker) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
