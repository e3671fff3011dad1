package compiler

import (
	"math"
	"time"
)

// Backoff defaults for respawning the persistent compiler.
const (
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
	DefaultBackoffFactor  = 2.0
)

// CalculateBackoff returns the delay before attempt (1-based).
func CalculateBackoff(attempt int, initial, max time.Duration, multiplier float64) time.Duration {
	if attempt <= 1 {
		return initial
	}

	delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if delay > float64(max) {
		return max
	}
	return time.Duration(delay)
}

// backoff gates respawn attempts after consecutive failures.
type backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64

	failures    int
	lastFailure time.Time
}

func newBackoff() *backoff {
	return &backoff{
		initial:    DefaultInitialBackoff,
		max:        DefaultMaxBackoff,
		multiplier: DefaultBackoffFactor,
	}
}

// ready reports whether an attempt may be made at now, and if not, how long
// remains.
func (b *backoff) ready(now time.Time) (bool, time.Duration) {
	if b.failures == 0 {
		return true, 0
	}
	wait := CalculateBackoff(b.failures, b.initial, b.max, b.multiplier)
	next := b.lastFailure.Add(wait)
	if now.Before(next) {
		return false, next.Sub(now)
	}
	return true, 0
}

func (b *backoff) fail(now time.Time) {
	b.failures++
	b.lastFailure = now
}

func (b *backoff) reset() {
	b.failures = 0
	b.lastFailure = time.Time{}
}
