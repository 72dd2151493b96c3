package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// RetryOptions configures Retry behavior.
type RetryOptions struct {
	// MaxRetries is the total number of attempts (not re-attempts).
	// Zero or negative means a single attempt.
	MaxRetries int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the doubling backoff.
	MaxDelay time.Duration
	// ShouldRetry decides whether a failure is transient. Nil means
	// DefaultShouldRetry.
	ShouldRetry func(error) bool
}

func (o *RetryOptions) normalize() {
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = DefaultShouldRetry
	}
}

// permanentError marks a failure as non-transient regardless of type.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Retry never re-attempts it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DefaultShouldRetry treats permission, DNS-not-found, validation and
// authentication failures as non-transient and retries everything else.
func DefaultShouldRetry(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, os.ErrPermission) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return false
	}
	if types.IsCategory(err, types.CategoryValidation) || types.IsCategory(err, types.CategoryAuth) {
		return false
	}
	return true
}

// Retry runs op until it succeeds, the attempt budget is exhausted, the
// failure is classified non-transient, or ctx is cancelled. It returns
// the number of attempts made alongside the final error.
func Retry(ctx context.Context, op func(ctx context.Context) error, opts RetryOptions) (int, error) {
	opts.normalize()

	delay := opts.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return attempt, nil
		}

		if !opts.ShouldRetry(lastErr) {
			return attempt, lastErr
		}
		if attempt == opts.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return opts.MaxRetries, fmt.Errorf("operation failed after %d attempts: %w", opts.MaxRetries, lastErr)
}
