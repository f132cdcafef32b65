package timeutil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimingOverrun indicates an iteration took longer than its period.
	ErrTimingOverrun = errors.New("timing overrun")
	// ErrClockAnomaly indicates the clock went backwards.
	ErrClockAnomaly = errors.New("clock anomaly")
)

// OverrunError carries the measured iteration time.
type OverrunError struct {
	Elapsed time.Duration
	Period  time.Duration
}

// Error implements error.
func (e *OverrunError) Error() string {
	return fmt.Sprintf("timing overrun: %v elapsed, period %v", e.Elapsed, e.Period)
}

// Unwrap makes errors.Is(err, ErrTimingOverrun) work.
func (e *OverrunError) Unwrap() error {
	return ErrTimingOverrun
}

// SleepUntilDeadline suspends until period has passed since loopStart.
// It does not sleep when the period is already used up and reports an
// *OverrunError instead. Cancellation of ctx interrupts the sleep.
func SleepUntilDeadline(ctx context.Context, clock Clock, period time.Duration, loopStart Timeval) error {
	elapsed, sign := Elapsed(loopStart, clock.Now())
	if sign == Negative {
		return ErrClockAnomaly
	}
	d := elapsed.Duration()
	if d >= period {
		return &OverrunError{Elapsed: d, Period: period}
	}
	return clock.Sleep(ctx, period-d)
}
