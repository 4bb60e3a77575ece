package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Verdict tells the executor how to treat an error
type Verdict struct {
	// Retry asks for another attempt
	Retry bool
	// Trip counts the error against the circuit breaker
	Trip bool
}

type Classifier func(err error) Verdict

// Executor runs operations with retry and one circuit breaker per
// operation name.
type Executor struct {
	policy   Policy
	classify Classifier

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

// NewExecutor creates an executor. A nil classifier treats every error as
// final and counts it against the breaker.
func NewExecutor(policy Policy, classify Classifier) *Executor {
	if classify == nil {
		classify = func(error) Verdict { return Verdict{Trip: true} }
	}
	return &Executor{
		policy:   policy.WithDefaults(),
		classify: classify,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (e *Executor) Policy() Policy {
	return e.policy
}

// Do runs fn until it succeeds, returns a non retryable error, the attempts
// are exhausted or ctx is done.
func (e *Executor) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil operation %q", operation)
	}
	if operation == "" {
		operation = "unnamed"
	}

	if e.policy.Breaker.Disabled {
		return e.retry(ctx, operation, fn)
	}

	_, err := e.breaker(operation).Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, operation, fn)
	})
	return err
}

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= e.policy.MaxAttempts || !e.classify(err).Retry {
			return err
		}

		wait := e.policy.backoff(attempt)
		slog.Warn("retrying operation",
			"operation", operation,
			"attempt", attempt,
			"maxAttempts", e.policy.MaxAttempts,
			"backoff", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (e *Executor) breaker(operation string) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}

	bp := e.policy.Breaker
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: bp.HalfOpenMaxCalls,
		Timeout:     bp.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bp.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bp.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !e.classify(err).Trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}

// IsOpen reports whether err was returned by an open or saturated breaker
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
