package control

import (
	"errors"
	"fmt"
)

// ErrInvalidGains indicates a gains configuration which can't be used.
var ErrInvalidGains = errors.New("invalid gains")

// Gains is the immutable configuration of one controller.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
	Td float64
	// SampleTime is the control period in seconds.
	SampleTime float64
}

// Validate checks the gains can be used by a controller.
func (g Gains) Validate() error {
	if g.SampleTime <= 0 {
		return fmt.Errorf("%w: sample time must be positive, got %v", ErrInvalidGains, g.SampleTime)
	}
	return nil
}
