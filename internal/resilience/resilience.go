// Package resilience wraps outbound calls with retries and a circuit breaker.
// Reminder delivery retries transient Telegram failures; reminder text
// generation sits behind a breaker so an unhealthy model endpoint is skipped
// quickly in favour of the static text.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen indicates the circuit breaker is rejecting calls.
	ErrCircuitOpen = gobreaker.ErrOpenState
	// ErrTimeout indicates an operation ran past its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrExhaustedRetries indicates every attempt failed.
	ErrExhaustedRetries = errors.New("retry attempts exhausted")
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryConfig holds configuration for retry operations.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	RandomFactor    float64
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		RandomFactor:    0.1,
	}
}

// WithRetry runs operation until it succeeds, returns a permanent error, the
// context ends or MaxAttempts is reached. The wait after attempt n is
// InitialInterval*Multiplier^(n-1) with jitter, capped at MaxInterval.
func WithRetry(ctx context.Context, operation func(context.Context) error, cfg RetryConfig) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	var lastErr error
	interval := cfg.InitialInterval
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		}
		if IsPermanent(err) || errors.Is(err, ErrCircuitOpen) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := interval
		if cfg.RandomFactor > 0 {
			wait = time.Duration(float64(wait) * (1.0 + cfg.RandomFactor*(2*rnd.Float64()-1)))
		}
		if cfg.MaxInterval > 0 && wait > cfg.MaxInterval {
			wait = cfg.MaxInterval
		}

		slog.Debug("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"next_interval", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		case <-timer.C:
		}
		interval = time.Duration(float64(interval) * cfg.Multiplier)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, cfg.MaxAttempts, lastErr)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF-OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

func mapState(state gobreaker.State) CircuitState {
	switch state {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name        string
	MaxFailures int           // consecutive failures that open the circuit
	Timeout     time.Duration // per-call deadline when ctx has none
	OpenFor     time.Duration // how long the circuit stays open
}

// CircuitBreaker guards an operation with gobreaker.
type CircuitBreaker struct {
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a circuit breaker, filling zero fields with
// defaults.
func NewCircuitBreaker(cfg BreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxFailures := uint32(cfg.MaxFailures)
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed", "name", name, "from", mapState(from), "to", mapState(to))
		},
	}

	return &CircuitBreaker{
		timeout: cfg.Timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() CircuitState {
	return mapState(b.cb.State())
}

// Execute runs operation through the breaker. It fails fast with
// ErrCircuitOpen while the circuit is open.
func (b *CircuitBreaker) Execute(ctx context.Context, operation func(context.Context) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		if err := operation(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return nil, err
		}
		return nil, nil
	})
	return err
}
