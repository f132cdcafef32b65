package timeutil

import (
	"context"
	"time"
)

// Clock provides the time source and the suspension primitive of the loop.
type Clock interface {
	Now() Timeval
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is a monotonic Clock backed by the runtime clock.
// Timestamps are anchored to the wall time when the clock was created
// and advance with the monotonic reading afterwards.
type SystemClock struct {
	base time.Time
}

// NewSystemClock creates a SystemClock anchored at now.
func NewSystemClock() *SystemClock {
	return &SystemClock{base: time.Now()}
}

// Now implements Clock.
func (c *SystemClock) Now() Timeval {
	return FromTime(c.base.Add(time.Since(c.base)))
}

// Start returns the anchor time.
func (c *SystemClock) Start() Timeval {
	return FromTime(c.base)
}

// Sleep implements Clock.
func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
