// Package timeutil provides the time arithmetic used by the control loop.
package timeutil

import (
	"fmt"
	"time"
)

const usecPerSec = 1000000

// Timeval is a seconds/microseconds timestamp.
// A normalized Timeval always has 0 <= Usec < 1000000, negative values
// carry their sign in Sec.
type Timeval struct {
	Sec  int64
	Usec int64
}

// Sign reports the sign of a time difference.
type Sign int

// Signs of Elapsed results.
const (
	Negative Sign = -1
	Zero     Sign = 0
	Positive Sign = 1
)

// String implements fmt.Stringer.
func (s Sign) String() string {
	switch s {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	}
	return "zero"
}

// FromTime converts time.Time to Timeval.
func FromTime(t time.Time) Timeval {
	return Timeval{Sec: t.Unix(), Usec: int64(t.Nanosecond() / 1000)}
}

// FromDuration converts a duration into a normalized Timeval.
func FromDuration(d time.Duration) Timeval {
	return fromMicros(d.Microseconds())
}

// Micros returns the signed number of microseconds.
func (t Timeval) Micros() int64 {
	return t.Sec*usecPerSec + t.Usec
}

// Duration converts to time.Duration.
func (t Timeval) Duration() time.Duration {
	return time.Duration(t.Micros()) * time.Microsecond
}

// Abs returns the magnitude as a normalized Timeval.
func (t Timeval) Abs() Timeval {
	us := t.Micros()
	if us < 0 {
		us = -us
	}
	return fromMicros(us)
}

// Normalize moves excess or negative microseconds into seconds.
func (t Timeval) Normalize() Timeval {
	return fromMicros(t.Micros())
}

// String implements fmt.Stringer.
func (t Timeval) String() string {
	return fmt.Sprintf("%d.%06d", t.Sec, t.Usec)
}

func fromMicros(us int64) Timeval {
	sec, usec := us/usecPerSec, us%usecPerSec
	if usec < 0 {
		sec--
		usec += usecPerSec
	}
	return Timeval{Sec: sec, Usec: usec}
}

// Elapsed computes end - start. Both inputs are normalized first so a
// borrow across the microsecond boundary is never lost.
func Elapsed(start, end Timeval) (Timeval, Sign) {
	diff := end.Normalize().Micros() - start.Normalize().Micros()
	sign := Zero
	if diff < 0 {
		sign = Negative
	} else if diff > 0 {
		sign = Positive
	}
	return fromMicros(diff), sign
}

// InRange checks diff against [minUs, maxUs].
// It returns 0 inside the window, 1 above it and -1 below it.
func InRange(diff Timeval, minUs, maxUs int64) int {
	us := diff.Micros()
	if us > maxUs {
		return 1
	}
	if us < minUs {
		return -1
	}
	return 0
}
