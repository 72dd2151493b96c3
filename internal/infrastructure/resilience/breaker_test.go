package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      BreakerSettings
		outcomes      []bool // true = success, false = failure
		expectedState BreakerState
	}{
		{
			name:          "stays closed on successes",
			settings:      BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute},
			outcomes:      []bool{true, true, true},
			expectedState: BreakerClosed,
		},
		{
			name:          "opens after consecutive failures",
			settings:      BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute},
			outcomes:      []bool{false, false, false},
			expectedState: BreakerOpen,
		},
		{
			name:          "success resets the failure streak",
			settings:      BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute},
			outcomes:      []bool{false, false, true, false, false},
			expectedState: BreakerClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBreaker("probe", tt.settings)
			for _, success := range tt.outcomes {
				_ = b.Do(func() error {
					if success {
						return nil
					}
					return errors.New("probe failed")
				})
			}
			assert.Equal(t, tt.expectedState, b.State())
		})
	}
}

func TestBreakerOpenRefusesRequests(t *testing.T) {
	b := NewBreaker("probe", BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_ = b.Do(func() error { return errors.New("probe failed") })
	}
	require.Equal(t, BreakerOpen, b.State())

	err := b.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker("probe", BreakerSettings{
		FailureThreshold:  2,
		OpenTimeout:       20 * time.Millisecond,
		HalfOpenSuccesses: 2,
	})

	for i := 0; i < 2; i++ {
		_ = b.Do(func() error { return errors.New("probe failed") })
	}
	require.Equal(t, BreakerOpen, b.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, BreakerHalfOpen, b.State())

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Do(func() error { return nil }))
	}
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("probe", BreakerSettings{
		FailureThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
	})

	_ = b.Do(func() error { return errors.New("probe failed") })
	require.Equal(t, BreakerOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	_ = b.Do(func() error { return errors.New("probe failed") })
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string
	b := NewBreaker("probe", BreakerSettings{
		FailureThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
		OnStateChange: func(name string, from, to BreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	for i := 0; i < 2; i++ {
		_ = b.Do(func() error { return errors.New("probe failed") })
	}
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	assert.Contains(t, transitions, "closed->open")
	assert.Contains(t, transitions, "open->half-open")
}
