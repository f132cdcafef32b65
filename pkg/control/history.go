// Package control implements the discrete control laws of the flight loop.
package control

import (
	"errors"
	"fmt"

	"github.com/robotalks/quadcop/pkg/timeutil"
)

// ErrInvalidCapacity indicates an ErrorHistory capacity which is odd or too small.
var ErrInvalidCapacity = errors.New("invalid capacity")

// TimestampedError is one error sample of a controller.
type TimestampedError struct {
	Error     float64
	Timestamp timeutil.Timeval
}

// DerivativeMode selects how ErrorHistory estimates the derivative.
type DerivativeMode int

// Derivative modes.
const (
	// DerivativeSampleDifference uses newest and oldest samples.
	DerivativeSampleDifference DerivativeMode = 0
	// DerivativeWindowAverage subtracts the sum of the older half from
	// the sum of the recent half. Less noisy, lags more.
	DerivativeWindowAverage DerivativeMode = 1
)

// ErrorHistory is a fixed capacity ring of error samples, newest first.
// Slots never written read as zero error.
type ErrorHistory struct {
	buf  []TimestampedError
	head int // index in buf of the newest sample
	size int
}

// NewErrorHistory creates an ErrorHistory. capacity must be even and >= 2.
func NewErrorHistory(capacity int) (*ErrorHistory, error) {
	if capacity < 2 || capacity%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &ErrorHistory{buf: make([]TimestampedError, capacity)}, nil
}

// Cap returns the capacity.
func (h *ErrorHistory) Cap() int {
	return len(h.buf)
}

// Len returns the number of pushed samples, at most Cap.
func (h *ErrorHistory) Len() int {
	return h.size
}

// Push inserts sample as the newest entry, evicting the oldest one when full.
func (h *ErrorHistory) Push(sample TimestampedError) {
	h.head--
	if h.head < 0 {
		h.head = len(h.buf) - 1
	}
	h.buf[h.head] = sample
	if h.size < len(h.buf) {
		h.size++
	}
}

// At returns the sample at index i, 0 being the newest.
// Indices in [Len, Cap) return a zero sample; other indices panic.
func (h *ErrorHistory) At(i int) TimestampedError {
	if i < 0 || i >= len(h.buf) {
		panic(fmt.Sprintf("error history index %d out of range [0, %d)", i, len(h.buf)))
	}
	if i >= h.size {
		return TimestampedError{}
	}
	return h.buf[(h.head+i)%len(h.buf)]
}

// Newest returns the sample at index 0.
func (h *ErrorHistory) Newest() TimestampedError {
	return h.At(0)
}

// Oldest returns the sample at index Cap-1.
func (h *ErrorHistory) Oldest() TimestampedError {
	return h.At(len(h.buf) - 1)
}

// Reset clears all samples.
func (h *ErrorHistory) Reset() {
	for i := range h.buf {
		h.buf[i] = TimestampedError{}
	}
	h.head, h.size = 0, 0
}

// Derivative estimates the error derivative using the given mode.
func (h *ErrorHistory) Derivative(mode DerivativeMode, sampleTime float64) float64 {
	n := len(h.buf)
	if mode == DerivativeWindowAverage {
		var recent, older float64
		for i := 0; i < n/2; i++ {
			recent += h.At(i).Error
			older += h.At(n/2 + i).Error
		}
		return (recent - older) / sampleTime
	}
	return (h.Newest().Error - h.Oldest().Error) / (sampleTime * float64(n-1))
}
