package worker

import (
	"errors"
	"sync"
	"time"
)

// BreakerState represents the state of a channel's circuit breaker
type BreakerState int

const (
	// BreakerClosed lets every tick through
	BreakerClosed BreakerState = iota
	// BreakerOpen skips ticks until the cooldown elapses
	BreakerOpen
	// BreakerHalfOpen lets one trial tick through
	BreakerHalfOpen
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when a tick is skipped because the channel keeps failing
var ErrBreakerOpen = errors.New("channel circuit breaker is open")

// Breaker stops a worker from rebuilding a channel whose builds keep failing, for example
// because its schedule references a deleted collection. After the cooldown one trial tick
// runs; success closes the breaker, failure opens it again.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// NewBreaker creates a closed breaker
func NewBreaker(threshold int, cooldown time.Duration, now func() time.Time) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
	}
}

// Call runs fn unless the breaker is open and records the outcome
func (b *Breaker) Call(fn func() error) error {
	if !b.allow() {
		return ErrBreakerOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == BreakerHalfOpen || b.failures >= b.threshold {
			b.state = BreakerOpen
		}
		return err
	}
	b.failures = 0
	b.state = BreakerClosed
	return nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()
	return b.state != BreakerOpen
}

// advanceLocked moves an open breaker to half-open once the cooldown has elapsed
func (b *Breaker) advanceLocked() {
	if b.state == BreakerOpen && b.now().Sub(b.lastFailure) >= b.cooldown {
		b.state = BreakerHalfOpen
	}
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()
	return b.state
}

// Failures returns the number of consecutive failures
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
