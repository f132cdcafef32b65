package flight

// Status is the state of the control loop.
type Status int

// Loop states.
const (
	StatusStopped Status = iota
	StatusArmed
	StatusStarted
	StatusFailsafe
)

var statusNames = [...]string{"stopped", "armed", "started", "failsafe"}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Setpoints are the targets of the controllers.
type Setpoints struct {
	// Angle is the digit-selected stick value, negative when mirrored.
	Angle float64
	// Yaw is the heading held while started, in degrees.
	Yaw float64
	// Altitude is the desired altitude above the zero reference, in meters.
	Altitude float64
}

// LoopState is the mutable state owned by the loop goroutine.
type LoopState struct {
	Status    Status
	Armed     bool
	Setpoints Setpoints
	// Negative mirrors subsequent digit setpoints.
	Negative bool
}
