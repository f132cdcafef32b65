package flight

import (
	"github.com/robotalks/quadcop/pkg/channels"
)

// Command tokens.
const (
	TokenStart          byte = 'S'
	TokenStop           byte = 'P'
	TokenFailsafeSet    byte = 'F'
	TokenFailsafeClear  byte = 'f'
	TokenToggleNegative byte = 'n'
	TokenNeutral        byte = 'b'
	TokenArm            byte = 'A'
	TokenDisarm         byte = 'D'
)

// angleSetpoints maps digits to stick values. The step is not uniform
// from '7' on.
var angleSetpoints = [10]int{1500, 1525, 1550, 1575, 1600, 1625, 1650, 1700, 1725, 1750}

// AngleSetpoint returns the stick value selected by a digit token.
func AngleSetpoint(digit byte) (int, bool) {
	if digit < '0' || digit > '9' {
		return 0, false
	}
	return angleSetpoints[digit-'0'], true
}

// Effect describes the outcome of an applied command.
type Effect struct {
	Token byte
	From  Status
	To    Status
}

// Transitioned reports whether the command changed the status.
func (e Effect) Transitioned() bool {
	return e.From != e.To
}

// Interpreter maps command tokens to mutations of the loop state and the
// channel vector. Except for the sign toggle, applying a command twice
// leaves the same state as applying it once.
type Interpreter struct {
	InitialThrottle int

	state    *LoopState
	channels *channels.Vector
}

// NewInterpreter creates an Interpreter mutating state and chs.
func NewInterpreter(state *LoopState, chs *channels.Vector, initialThrottle int) *Interpreter {
	return &Interpreter{InitialThrottle: initialThrottle, state: state, channels: chs}
}

// Apply applies one token. Unknown tokens return ErrInvalidCommand and
// tokens not allowed in the current status return ErrCommandRejected,
// both wrapped in a *CommandError, without changing anything.
func (i *Interpreter) Apply(token byte) (Effect, error) {
	st := i.state
	eff := Effect{Token: token, From: st.Status, To: st.Status}
	failsafe := st.Status == StatusFailsafe
	rejected := func() (Effect, error) {
		return eff, &CommandError{Token: token, Status: st.Status, Err: ErrCommandRejected}
	}

	switch token {
	case TokenStart:
		if failsafe || !st.Armed {
			return rejected()
		}
		i.channels.SetThrottle(i.InitialThrottle)
		st.Status = StatusStarted
	case TokenStop:
		if failsafe {
			return rejected()
		}
		i.channels.SetThrottle(channels.ThrottleNeutral)
		st.Status = StatusStopped
	case TokenArm:
		if failsafe || st.Status == StatusStarted {
			return rejected()
		}
		i.channels.Arm()
		st.Armed = true
		st.Status = StatusArmed
	case TokenDisarm:
		if failsafe || st.Status == StatusStarted {
			return rejected()
		}
		i.channels.Disarm()
		st.Armed = false
		st.Status = StatusStopped
	case TokenNeutral:
		if failsafe {
			return rejected()
		}
		i.channels.ResetToNeutral()
		st.Setpoints.Angle = channels.RollNeutral
		st.Status = StatusStopped
	case TokenFailsafeSet:
		i.EnterFailsafe()
	case TokenFailsafeClear:
		i.channels.SetFailsafe(false)
		if failsafe {
			st.Status = StatusStopped
		}
	case TokenToggleNegative:
		st.Negative = !st.Negative
	default:
		value, ok := AngleSetpoint(token)
		if !ok {
			return eff, &CommandError{Token: token, Status: st.Status, Err: ErrInvalidCommand}
		}
		if st.Negative {
			value = -value
		}
		st.Setpoints.Angle = float64(value)
	}
	eff.To = st.Status
	return eff, nil
}

// EnterFailsafe forces the failsafe outputs and status.
func (i *Interpreter) EnterFailsafe() {
	i.channels.ForceFailsafe()
	i.state.Armed = false
	i.state.Status = StatusFailsafe
}
