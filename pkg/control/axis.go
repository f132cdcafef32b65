package control

import (
	"fmt"
	"strings"

	"github.com/robotalks/quadcop/pkg/channels"
)

// AxisTest selects which stick the angle setpoint drives.
type AxisTest int

// Axis test modes.
const (
	AxisNone AxisTest = iota
	AxisRoll
	AxisPitch
)

// String implements fmt.Stringer.
func (a AxisTest) String() string {
	switch a {
	case AxisRoll:
		return "roll"
	case AxisPitch:
		return "pitch"
	}
	return "none"
}

// ParseAxisTest parses the flag form of AxisTest.
func ParseAxisTest(s string) (AxisTest, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return AxisNone, nil
	case "roll":
		return AxisRoll, nil
	case "pitch":
		return AxisPitch, nil
	}
	return AxisNone, fmt.Errorf("unknown axis %q", s)
}

// Channel returns the channel driven by the axis.
func (a AxisTest) Channel() (channels.Channel, bool) {
	switch a {
	case AxisRoll:
		return channels.Roll, true
	case AxisPitch:
		return channels.Pitch, true
	}
	return 0, false
}

// Apply writes the angle setpoint into the selected channel. A negative
// setpoint is mirrored around the stick neutral.
func (a AxisTest) Apply(setpoint float64, v *channels.Vector) {
	ch, ok := a.Channel()
	if !ok {
		return
	}
	v.Set(ch, SetpointToPWM(setpoint))
}

// SetpointToPWM maps a signed angle setpoint to a stick value.
func SetpointToPWM(setpoint float64) int {
	value := int(setpoint)
	if value < 0 {
		value = 2*channels.RollNeutral + value
	}
	return value
}
