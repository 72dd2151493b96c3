package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	attempts, err := Retry(context.Background(), op, RetryOptions{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	op := func(ctx context.Context) error {
		return errors.New("still broken")
	}

	attempts, err := Retry(context.Background(), op, RetryOptions{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryNonTransientFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"permission", fmt.Errorf("open profile: %w", os.ErrPermission)},
		{"dns not found", &net.DNSError{Err: "no such host", IsNotFound: true}},
		{"validation", types.Categorize(types.CategoryValidation, errors.New("bad proxy"))},
		{"authentication", types.Categorize(types.CategoryAuth, errors.New("logged out"))},
		{"permanent marker", Permanent(errors.New("gone"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			op := func(ctx context.Context) error {
				calls++
				return tt.err
			}

			attempts, err := Retry(context.Background(), op, RetryOptions{
				MaxRetries:   5,
				InitialDelay: time.Millisecond,
			})

			require.Error(t, err)
			assert.Equal(t, 1, attempts, "non-transient error must not be retried")
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op := func(ctx context.Context) error {
		cancel()
		return errors.New("transient")
	}

	_, err := Retry(ctx, op, RetryOptions{
		MaxRetries:   5,
		InitialDelay: 50 * time.Millisecond,
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryDelayDoublingCapped(t *testing.T) {
	var stamps []time.Time
	op := func(ctx context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("transient")
	}

	_, err := Retry(context.Background(), op, RetryOptions{
		MaxRetries:   4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
	})
	require.Error(t, err)
	require.Len(t, stamps, 4)

	// Third and fourth gaps both sit at the 20ms cap.
	gap := stamps[3].Sub(stamps[2])
	assert.GreaterOrEqual(t, gap, 20*time.Millisecond)
	assert.Less(t, gap, 100*time.Millisecond)
}
