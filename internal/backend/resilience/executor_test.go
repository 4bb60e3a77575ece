package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
		Breaker:        BreakerPolicy{Disabled: true},
	}
}

func retryFlaky(err error) Verdict {
	return Verdict{Retry: errors.Is(err, errFlaky), Trip: true}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(fastPolicy(), retryFlaky)

	calls := 0
	err := exec.Do(context.Background(), "recognize", func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsAfterMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastPolicy(), retryFlaky)

	calls := 0
	err := exec.Do(context.Background(), "recognize", func(context.Context) error {
		calls++
		return errFlaky
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorIsNotRetried(t *testing.T) {
	exec := NewExecutor(fastPolicy(), retryFlaky)
	permanent := errors.New("bad request")

	calls := 0
	err := exec.Do(context.Background(), "classify", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_CanceledContextStopsRetries(t *testing.T) {
	policy := fastPolicy()
	policy.InitialBackoff = time.Hour
	policy.MaxBackoff = time.Hour
	exec := NewExecutor(policy, retryFlaky)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := exec.Do(ctx, "recognize", func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected last attempt error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_OpensBreaker(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts: 1,
		Breaker: BreakerPolicy{
			MinRequests:      2,
			FailureRatio:     0.5,
			OpenTimeout:      time.Minute,
			HalfOpenMaxCalls: 1,
		},
	}, nil)

	for i := 0; i < 2; i++ {
		err := exec.Do(context.Background(), "classify", func(context.Context) error { return errFlaky })
		if !errors.Is(err, errFlaky) {
			t.Fatalf("call %d: expected flaky error, got %v", i, err)
		}
	}

	err := exec.Do(context.Background(), "classify", func(context.Context) error {
		t.Fatal("operation must not run while the breaker is open")
		return nil
	})
	if !IsOpen(err) {
		t.Fatalf("expected open breaker, got %v", err)
	}

	// breakers are per operation
	if err := exec.Do(context.Background(), "recognize", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected other operation to pass, got %v", err)
	}
}

func TestDo_NonTrippingErrorsKeepBreakerClosed(t *testing.T) {
	exec := NewExecutor(Policy{
		MaxAttempts: 1,
		Breaker:     BreakerPolicy{MinRequests: 1, FailureRatio: 0.1},
	}, func(error) Verdict { return Verdict{} })

	for i := 0; i < 5; i++ {
		err := exec.Do(context.Background(), "classify", func(context.Context) error { return errFlaky })
		if IsOpen(err) {
			t.Fatalf("call %d: breaker opened on non tripping error", i)
		}
	}
}

func TestPolicy_WithDefaults(t *testing.T) {
	p := Policy{InitialBackoff: time.Second, MaxBackoff: time.Millisecond, Multiplier: 0.5}.WithDefaults()
	def := DefaultPolicy()

	if def.MaxAttempts != 1 {
		t.Errorf("expected a single attempt by default, got %d", def.MaxAttempts)
	}

	if p.MaxAttempts != def.MaxAttempts {
		t.Errorf("expected default attempts, got %d", p.MaxAttempts)
	}
	if p.MaxBackoff != time.Second {
		t.Errorf("expected max backoff raised to initial, got %v", p.MaxBackoff)
	}
	if p.Multiplier != def.Multiplier {
		t.Errorf("expected default multiplier, got %v", p.Multiplier)
	}
	if p.Breaker != def.Breaker {
		t.Errorf("expected default breaker, got %+v", p.Breaker)
	}
}

func TestPolicy_Backoff(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Errorf("retry %d: expected %v, got %v", i+1, w, got)
		}
	}
}
