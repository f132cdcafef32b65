package flight

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable indicates the attitude source produced no sample.
	ErrSourceUnavailable = errors.New("attitude source unavailable")
	// ErrTransportFailure indicates the actuator transport failed a send.
	ErrTransportFailure = errors.New("transport failure")
	// ErrInvalidCommand indicates an unrecognized command token.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrCommandRejected indicates a command not allowed in the current status.
	ErrCommandRejected = errors.New("command rejected")
	// ErrConfig indicates an invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// CommandError reports a command token which was not applied.
type CommandError struct {
	Token  byte
	Status Status
	Err    error
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q in %s: %v", e.Token, e.Status, e.Err)
}

// Unwrap returns ErrInvalidCommand or ErrCommandRejected.
func (e *CommandError) Unwrap() error {
	return e.Err
}
