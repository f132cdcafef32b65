package joystick

import (
	"errors"
	"io"
)

// ErrUnsupported is returned where joystick devices are not available.
var ErrUnsupported = errors.New("joystick unsupported on this platform")

// EventKind tells buttons from axes.
type EventKind uint8

// Event kinds.
const (
	EventButton EventKind = iota + 1
	EventAxis
)

// Event is a single change reported by the device.
type Event struct {
	Kind  EventKind
	Index int
	// Value is 0 or 1 for buttons, -32767..32767 for axes.
	Value int
	// Init marks the synthetic events describing the initial state.
	Init bool
}

// Pressed reports a button press.
func (e Event) Pressed() bool {
	return e.Kind == EventButton && e.Value != 0
}

// Device is an opened joystick.
type Device interface {
	io.Closer
	Name() string
	ReadEvent() (Event, error)
}
