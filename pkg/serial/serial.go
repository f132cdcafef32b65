// Package serial provides a raw, non-blocking serial port for the actuator link.
package serial

import (
	"errors"
)

// Common errors
var (
	ErrClosed      = errors.New("serial: port closed")
	ErrBusy        = errors.New("serial: output buffer full")
	ErrUnsupported = errors.New("serial: unsupported platform")
)

// DefaultBaudRate is used when Config.BaudRate is 0.
const DefaultBaudRate = 115200

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., /dev/ttyAMA0, /dev/ttyUSB0)
	Device   string
	BaudRate int
}
