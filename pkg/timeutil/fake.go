package timeutil

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock. Sleep advances the clock
// instead of blocking.
type FakeClock struct {
	lock  sync.Mutex
	now   Timeval
	slept []time.Duration
}

// NewFakeClock creates a FakeClock at start.
func NewFakeClock(start Timeval) *FakeClock {
	return &FakeClock{now: start.Normalize()}
}

// Now implements Clock.
func (c *FakeClock) Now() Timeval {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now = fromMicros(c.now.Micros() + d.Microseconds())
	c.lock.Unlock()
}

// Sleep implements Clock.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lock.Lock()
	c.slept = append(c.slept, d)
	c.now = fromMicros(c.now.Micros() + d.Microseconds())
	c.lock.Unlock()
	return nil
}

// Slept returns all durations passed to Sleep.
func (c *FakeClock) Slept() []time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]time.Duration(nil), c.slept...)
}
