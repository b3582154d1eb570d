package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgard/habitbot/internal/resilience"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	transient := errors.New("connection reset")

	testCases := []struct {
		name      string
		failures  int
		err       error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{name: "first try", failures: 0, attempts: 3, wantCalls: 1},
		{name: "recovers", failures: 2, err: transient, attempts: 3, wantCalls: 3},
		{name: "exhausted", failures: 5, err: transient, attempts: 2, wantCalls: 2, wantErr: resilience.ErrExhaustedRetries},
		{name: "permanent stops", failures: 5, err: resilience.Permanent(transient), attempts: 3, wantCalls: 1, wantErr: transient},
		{name: "zero attempts runs once", failures: 5, err: transient, attempts: 0, wantCalls: 1, wantErr: resilience.ErrExhaustedRetries},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			err := resilience.WithRetry(context.Background(), func(context.Context) error {
				calls++
				if calls <= tc.failures {
					return tc.err
				}
				return nil
			}, fastRetry(tc.attempts))

			if calls != tc.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tc.wantCalls)
			}
			if tc.wantErr == nil && err != nil {
				t.Errorf("WithRetry() unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("WithRetry() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := resilience.WithRetry(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	}, fastRetry(5))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("WithRetry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:        "test",
		MaxFailures: 2,
		OpenFor:     time.Hour,
	}, nil)

	fail := func(context.Context) error { return errors.New("unavailable") }
	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), fail); err == nil {
			t.Fatal("Execute() expected error")
		}
	}
	if cb.State() != resilience.StateOpen {
		t.Fatalf("State() = %v, want OPEN", cb.State())
	}

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("operation ran while circuit was open")
	}
}

func TestCircuitBreakerTimeout(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.BreakerConfig{Timeout: 10 * time.Millisecond}, nil)
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, resilience.ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}
