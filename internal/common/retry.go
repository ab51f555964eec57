package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit indicates that a remote endpoint throttled the request.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions configures backoff for remote preference saves and sheet writes.
// Zero fields take the defaults applied by WithRetry.
type RetryOptions struct {
	Name         string
	Logger       *slog.Logger
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2
	}
	if o.Name == "" {
		o.Name = "operation"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// RetryableError marks whether a failed attempt is worth repeating.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent stops WithRetry on err.
func Permanent(err error) error {
	return &RetryableError{Err: err}
}

// Transient lets WithRetry try again after err.
func Transient(err error) error {
	return &RetryableError{Err: err, Retryable: true}
}

// IsRetryable reports whether err is explicitly marked transient, or is a
// throttle or timeout. Unmarked errors are not retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded)
}

// WithRetry runs operation with exponential backoff. Errors marked
// Permanent return at once; anything else is retried until MaxAttempts.
// A rate limit jumps straight to MaxDelay.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	opts = opts.withDefaults()
	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		var re *RetryableError
		if errors.As(err, &re) && !re.Retryable {
			return err
		}
		if attempt == opts.MaxAttempts {
			return fmt.Errorf("%s: %w after %d attempts: %v", opts.Name, ErrMaxRetries, attempt, err)
		}
		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		opts.Logger.Warn("Retrying after failure",
			"operation", opts.Name,
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}
}
