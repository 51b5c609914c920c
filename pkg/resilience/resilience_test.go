package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/helios-ops/helios/pkg/errors"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(time.Millisecond)

	err := cfg.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient failure %d", attempts)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)

	err := cfg.Do(context.Background(), func() error {
		attempts++
		return fmt.Errorf("always fails")
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnUnrecoverable(t *testing.T) {
	attempts := 0
	cfg := DefaultRetryConfig().WithMaxAttempts(5).WithInitialDelay(time.Millisecond)

	err := cfg.Do(context.Background(), func() error {
		attempts++
		return errors.New(errors.CodeInvalidInput, "bad request", nil).WithRecoverable(false)
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for unrecoverable error, got %d", attempts)
	}
}

func TestRetryRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(50 * time.Millisecond)
	err := cfg.Do(ctx, func() error {
		return fmt.Errorf("fail once")
	})

	he := errors.AsHeliosError(err)
	if he == nil || he.Code != errors.CodeTimeout {
		t.Errorf("expected TIMEOUT error on canceled context, got %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), TimeoutConfig{Duration: 10 * time.Millisecond},
		func(ctx context.Context) error {
			select {
			case <-time.After(time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

	he := errors.AsHeliosError(err)
	if he == nil || he.Code != errors.CodeTimeout {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestWithTimeoutResult(t *testing.T) {
	value, err := WithTimeoutResult(context.Background(), TimeoutConfig{Duration: time.Second},
		func(ctx context.Context) (interface{}, error) {
			return 42, nil
		})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if value != 42 {
		t.Errorf("expected 42, got %v", value)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
		Name:             "llm",
	})

	fail := func() error { return fmt.Errorf("provider down") }

	for i := 0; i < 2; i++ {
		if err := cb.Call(context.Background(), fail); err == nil {
			t.Fatal("expected failure")
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	err := cb.Call(context.Background(), func() error { return nil })
	he := errors.AsHeliosError(err)
	if he == nil || he.Code != errors.CodeRateLimit {
		t.Errorf("expected RATE_LIMITED while open, got %v", err)
	}
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Millisecond,
		Name:             "llm",
	})

	_ = cb.Call(context.Background(), func() error { return fmt.Errorf("down") })
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	time.Sleep(5 * time.Millisecond)

	if err := cb.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after recovery, got %s", cb.State())
	}
}
