// Package channels holds the actuator channel values sent to the servo encoder.
package channels

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

// Channel indexes a lane of the Vector.
type Channel int

// Channels in transmission order.
const (
	Roll Channel = iota
	Pitch
	Yaw
	Throttle
	FlightMode
	Failsafe

	Count int = iota
)

var channelNames = [Count]string{"roll", "pitch", "yaw", "throttle", "flight-mode", "failsafe"}

// String implements fmt.Stringer.
func (c Channel) String() string {
	if c < 0 || int(c) >= Count {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Command values (PWM microseconds).
const (
	MinCommand  = 1000
	MaxCommand  = 2000
	MinThrottle = 950

	RollNeutral       = 1500
	PitchNeutral      = 1500
	YawNeutral        = 1500
	ThrottleNeutral   = 1000
	FlightModeNeutral = 1500

	ThrottleArm    = 950
	ThrottleDisarm = 950
	YawArm         = 1000 // yaw left
	YawDisarm      = 2000 // yaw right

	FlightMode1 = 1000
	FlightMode2 = 1500
	FlightMode3 = 2000

	// The failsafe lane is a flag, not a PWM value.
	ActivateFailsafe   = 50
	DeactivateFailsafe = 100
)

// WireSize is the length of WireBytes.
const WireSize = Count * 2

// ErrShortFrame indicates a wire frame shorter than WireSize.
var ErrShortFrame = errors.New("short channel frame")

// Vector is the set of channel values, always within transmission-safe ranges.
type Vector struct {
	values [Count]int
}

// New creates a Vector with the startup values.
func New() *Vector {
	return &Vector{values: [Count]int{
		RollNeutral, PitchNeutral, YawNeutral, ThrottleArm, FlightMode3, DeactivateFailsafe,
	}}
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Set writes a value after clamping. PWM lanes are clamped to
// [MinCommand, MaxCommand] except throttle whose floor is MinThrottle.
// The failsafe lane stores ActivateFailsafe for values below
// DeactivateFailsafe and DeactivateFailsafe otherwise.
func (v *Vector) Set(ch Channel, value int) {
	switch ch {
	case Throttle:
		v.values[ch] = clamp(value, MinThrottle, MaxCommand)
	case Failsafe:
		v.SetFailsafe(value < DeactivateFailsafe)
	case Roll, Pitch, Yaw, FlightMode:
		v.values[ch] = clamp(value, MinCommand, MaxCommand)
	default:
		panic(fmt.Sprintf("invalid channel %d", int(ch)))
	}
}

// Get reads a channel.
func (v *Vector) Get(ch Channel) int {
	return v.values[ch]
}

// Values returns a copy of all channels.
func (v *Vector) Values() [Count]int {
	return v.values
}

// SetFailsafe sets or clears the failsafe flag lane.
func (v *Vector) SetFailsafe(active bool) {
	if active {
		v.values[Failsafe] = ActivateFailsafe
	} else {
		v.values[Failsafe] = DeactivateFailsafe
	}
}

// FailsafeActive reports the failsafe lane.
func (v *Vector) FailsafeActive() bool {
	return v.values[Failsafe] == ActivateFailsafe
}

// ResetToNeutral centers the sticks, sets neutral throttle and flight mode 2.
// The failsafe lane is left alone.
func (v *Vector) ResetToNeutral() {
	v.values[Roll] = RollNeutral
	v.values[Pitch] = PitchNeutral
	v.values[Yaw] = YawNeutral
	v.values[Throttle] = ThrottleNeutral
	v.values[FlightMode] = FlightModeNeutral
}

// Arm applies the arming stick preset.
func (v *Vector) Arm() {
	v.values[Roll] = RollNeutral
	v.values[Pitch] = PitchNeutral
	v.values[Yaw] = YawArm
	v.values[Throttle] = ThrottleArm
}

// Disarm applies the disarming stick preset.
func (v *Vector) Disarm() {
	v.values[Roll] = RollNeutral
	v.values[Pitch] = PitchNeutral
	v.values[Yaw] = YawDisarm
	v.values[Throttle] = ThrottleDisarm
}

// ForceFailsafe centers the sticks, cuts throttle to neutral and raises
// the failsafe flag. Flight mode is kept.
func (v *Vector) ForceFailsafe() {
	v.values[Roll] = RollNeutral
	v.values[Pitch] = PitchNeutral
	v.values[Yaw] = YawNeutral
	v.values[Throttle] = ThrottleNeutral
	v.SetFailsafe(true)
}

// AppendWire appends the little-endian 16-bit encoding of all channels.
func (v *Vector) AppendWire(b []byte) []byte {
	for _, val := range v.values {
		b = binary.LittleEndian.AppendUint16(b, uint16(val))
	}
	return b
}

// WireBytes encodes the channels for the actuator transport.
func (v *Vector) WireBytes() []byte {
	return v.AppendWire(make([]byte, 0, WireSize))
}

// DecodeWire parses a frame produced by WireBytes.
func DecodeWire(b []byte) ([Count]int, error) {
	var values [Count]int
	if len(b) < WireSize {
		return values, ErrShortFrame
	}
	for i := range values {
		values[i] = int(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return values, nil
}

// String implements fmt.Stringer.
func (v *Vector) String() string {
	return fmt.Sprintf("%v", v.values)
}

// SetThrottle writes the throttle lane, used for the start throttle.
func (v *Vector) SetThrottle(value int) {
	v.Set(Throttle, value)
}
