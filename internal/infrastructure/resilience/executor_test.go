package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

func fastPolicy() Policy {
	return Policy{
		Retry: RetryPolicy{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   2,
		},
		Breaker: BreakerPolicy{Disabled: true},
	}
}

func retryAll(error) Outcome     { return Outcome{Retry: true, CountAsFailure: true} }
func permanentAll(error) Outcome { return Outcome{Retry: false, CountAsFailure: true} }

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(fastPolicy())

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("flaky")
		}
		return nil
	}, retryAll)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteExhaustedRetriesBecomeTemporary(t *testing.T) {
	exec := NewExecutor(fastPolicy())

	errDown := errors.New("connection refused")
	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errDown
	}, retryAll)
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("exhausted retryable failure must be temporary, got %v", err)
	}
	if !errors.Is(err, errDown) {
		t.Fatalf("original error lost from chain: %v", err)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastPolicy())

	errPermanent := errors.New("permanent")
	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, permanentAll)
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent failure must not be marked temporary")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	policy := fastPolicy()
	policy.Retry.MaxAttempts = 5
	exec := NewExecutor(policy)

	ctx, cancel := context.WithCancel(context.Background())
	errFlaky := errors.New("flaky")
	attempts := 0
	err := exec.Execute(ctx, "op", func(context.Context) error {
		attempts++
		cancel()
		return errFlaky
	}, retryAll)
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected last call error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("cancelled context must stop retries, got %d attempts", attempts)
	}
}

func TestExecuteDeadlineIsNeverTemporary(t *testing.T) {
	exec := NewExecutor(fastPolicy())

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return context.DeadlineExceeded
	}, retryAll)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("deadline must pass through untouched so timeout mapping works")
	}
	if attempts != 1 {
		t.Fatalf("deadline errors must not be retried, got %d attempts", attempts)
	}
}

func TestExecuteOpenCircuitRejectsAsTemporary(t *testing.T) {
	exec := NewExecutor(Policy{
		Retry: RetryPolicy{
			MaxAttempts:  1,
			InitialDelay: 1 * time.Millisecond,
			MaxDelay:     1 * time.Millisecond,
			Multiplier:   2,
		},
		Breaker: BreakerPolicy{
			MinRequests:    2,
			FailureRatio:   0.5,
			OpenFor:        50 * time.Millisecond,
			HalfOpenProbes: 1,
		},
	})

	errDown := errors.New("down")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errDown
		}, permanentAll)
		if !errors.Is(err, errDown) {
			t.Fatalf("expected call error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("open circuit must not invoke the call")
		return nil
	}, permanentAll)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state in chain, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("open circuit rejection must surface as temporary, got %v", err)
	}
}

func TestExecuteContextFailuresDoNotTripBreaker(t *testing.T) {
	exec := NewExecutor(Policy{
		Retry: RetryPolicy{
			MaxAttempts:  1,
			InitialDelay: 1 * time.Millisecond,
			MaxDelay:     1 * time.Millisecond,
			Multiplier:   2,
		},
		Breaker: BreakerPolicy{
			MinRequests:    2,
			FailureRatio:   0.5,
			OpenFor:        time.Minute,
			HalfOpenProbes: 1,
		},
	})

	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "op", func(context.Context) error {
			return context.DeadlineExceeded
		}, retryAll)
	}

	called := false
	_ = exec.Execute(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	}, retryAll)
	if !called {
		t.Fatalf("caller deadlines must not count against the remote service")
	}
}
