package persist

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryableError marks a transport failure worth retrying (rate limit
// or server-side error).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable status %d: %s", e.StatusCode, e.Message)
}

// IsRetryable checks whether an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// RetryPolicy is a named, bounded polling policy: a fixed number of
// attempts at a fixed interval, no backoff.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// ErrAttemptsExhausted is returned when every attempt ran without the
// awaited condition becoming true.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Run calls fn up to MaxAttempts times, sleeping Interval between
// attempts. fn reports done=true to stop early with its error (nil on
// success). Non-retryable errors abort immediately.
func (p RetryPolicy) Run(ctx context.Context, fn func(ctx context.Context) (bool, error)) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.Interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		done, err := fn(ctx)
		if done {
			return err
		}
		if err != nil && !IsRetryable(err) {
			return err
		}
		lastErr = err
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr)
	}
	return ErrAttemptsExhausted
}
