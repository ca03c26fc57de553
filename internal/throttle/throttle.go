// Package throttle bounds how often text recognition runs.
package throttle

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between recognition attempts.
const DefaultInterval = 750 * time.Millisecond

// ShouldRun reports whether at least interval has elapsed since last.
func ShouldRun(now, last time.Time, interval time.Duration) bool {
	return now.Sub(last) >= interval
}

// Gate admits at most one recognition per interval and never two at once.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	lastRun  time.Time
	inFlight bool
}

// NewGate creates a gate. A non-positive interval falls back to DefaultInterval.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Gate{interval: interval}
}

// TryAcquire admits an attempt at now. On success lastRun advances to now and
// the gate stays closed until Release is called.
func (g *Gate) TryAcquire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight || !ShouldRun(now, g.lastRun, g.interval) {
		return false
	}
	if now.After(g.lastRun) {
		g.lastRun = now
	}
	g.inFlight = true
	return true
}

// Release marks the admitted attempt as finished. It does not touch lastRun.
func (g *Gate) Release() {
	g.mu.Lock()
	g.inFlight = false
	g.mu.Unlock()
}

// InFlight reports whether an admitted attempt has not been released yet.
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// LastRun returns the time of the last admitted attempt.
func (g *Gate) LastRun() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRun
}

// Interval returns the configured spacing.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
