package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// Outcome tells the executor how to treat one failed attempt. Context
// cancellation and deadlines are handled by the executor itself and never
// reach the classifier.
type Outcome struct {
	Retry          bool
	CountAsFailure bool
}

// Classifier maps a transport error to its Outcome. The zero-value
// fallback treats every error as permanent and breaker-visible.
type Classifier func(err error) Outcome

// Executor runs outbound calls under one capability's Policy: bounded
// retries with exponential delay, a per-operation circuit breaker, and the
// service error taxonomy applied on the way out. Exhausted retryable
// failures and open-circuit rejections surface as domain.ErrTemporary so
// callers map them to 503 without transport knowledge.
type Executor struct {
	policy Policy

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(policy Policy) *Executor {
	return &Executor{
		policy:   policy.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	call func(context.Context) error,
	classify Classifier,
) error {
	if call == nil {
		return fmt.Errorf("resilience: nil call for %q", operation)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = func(error) Outcome { return Outcome{CountAsFailure: true} }
	}

	var err error
	if e.policy.Breaker.Disabled {
		err = e.attempt(ctx, op, call, classify)
	} else {
		_, err = e.breakerFor(op, classify).Execute(func() (struct{}, error) {
			return struct{}{}, e.attempt(ctx, op, call, classify)
		})
	}
	return e.finalize(op, err, classify)
}

// attempt runs the call until it succeeds, the classifier declares the
// error permanent, attempts run out, or the context ends.
func (e *Executor) attempt(
	ctx context.Context,
	operation string,
	call func(context.Context) error,
	classify Classifier,
) error {
	retry := e.policy.Retry
	delay := retry.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = call(ctx)
		if err == nil {
			return nil
		}
		if isContextError(err) || attempt >= retry.MaxAttempts || !classify(err).Retry {
			return err
		}

		slog.Warn("call_retry",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", retry.MaxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * retry.Multiplier)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}
}

// finalize applies the error taxonomy: retryable failures that survived
// every attempt, and calls rejected by an open breaker, become
// domain.ErrTemporary. Context errors and permanent failures pass through.
func (e *Executor) finalize(operation string, err error, classify Classifier) error {
	switch {
	case err == nil:
		return nil
	case isContextError(err):
		return err
	case domain.IsKind(err, domain.ErrTemporary):
		return err
	case IsCircuitOpen(err):
		return domain.WrapError(domain.ErrTemporary, operation, err)
	case classify(err).Retry:
		return domain.WrapError(domain.ErrTemporary, operation, err)
	default:
		return err
	}
}

func (e *Executor) breakerFor(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	policy := e.policy.Breaker
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: policy.HalfOpenProbes,
		Timeout:     policy.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil || isContextError(err) {
				return true
			}
			return !classify(err).CountAsFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
