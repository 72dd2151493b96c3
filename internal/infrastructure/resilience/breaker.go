package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker refuses requests.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerState represents the circuit breaker state
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// String returns the string representation of the state
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerSettings configures breaker behavior.
type BreakerSettings struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker from closed.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing
	// again in half-open.
	OpenTimeout time.Duration
	// HalfOpenSuccesses is the consecutive-success count in half-open
	// that closes the breaker.
	HalfOpenSuccesses uint32
	// OnStateChange is invoked on every transition.
	OnStateChange func(name string, from, to BreakerState)
}

// Breaker implements a consecutive-failure circuit breaker.
type Breaker struct {
	name     string
	settings BreakerSettings

	mu        sync.Mutex
	state     BreakerState
	failures  uint32
	successes uint32
	openedAt  time.Time
}

// NewBreaker creates a circuit breaker with the given settings.
func NewBreaker(name string, settings BreakerSettings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout == 0 {
		settings.OpenTimeout = time.Minute
	}
	if settings.HalfOpenSuccesses == 0 {
		settings.HalfOpenSuccesses = 1
	}
	return &Breaker{name: name, settings: settings, state: BreakerClosed}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, accounting for open-timeout expiry.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Do runs op if the breaker accepts it and records the outcome.
func (b *Breaker) Do(op func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := op()
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentState(time.Now()) == BreakerOpen {
		return ErrBreakerOpen
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	if success {
		b.failures = 0
		if state == BreakerHalfOpen {
			b.successes++
			if b.successes >= b.settings.HalfOpenSuccesses {
				b.setState(BreakerClosed, now)
			}
		}
		return
	}

	b.successes = 0
	switch state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.setState(BreakerOpen, now)
		}
	case BreakerHalfOpen:
		b.setState(BreakerOpen, now)
	}
}

// currentState must be called with the lock held.
func (b *Breaker) currentState(now time.Time) BreakerState {
	if b.state == BreakerOpen && now.Sub(b.openedAt) >= b.settings.OpenTimeout {
		b.setState(BreakerHalfOpen, now)
	}
	return b.state
}

// setState must be called with the lock held.
func (b *Breaker) setState(state BreakerState, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.failures = 0
	b.successes = 0
	if state == BreakerOpen {
		b.openedAt = now
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
