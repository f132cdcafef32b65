package control

import (
	"errors"
	"fmt"
	"math"

	"github.com/robotalks/quadcop/pkg/timeutil"
)

// Altitude defaults.
const (
	DefaultAltitudeHistorySize = 2
	DefaultAltitudeSampleTime  = 0.05 // seconds
	DefaultTakeoffAltitude     = 1.0  // meters above zero reference
	DefaultLandingAltitude     = 0.20 // meters above zero reference
	DefaultRampFraction        = 0.05
)

// ErrInvalidRamp indicates takeoff/landing ramp settings which can't be used.
var ErrInvalidRamp = errors.New("invalid ramp")

// Phase is the stage of the altitude ramp/hold logic.
type Phase int

// Altitude phases.
const (
	PhaseIdle Phase = iota
	PhaseTakingOff
	PhaseLanding
	PhaseHolding
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseTakingOff:
		return "taking-off"
	case PhaseLanding:
		return "landing"
	case PhaseHolding:
		return "holding"
	}
	return "idle"
}

// RampStatus is the result of one Takeoff or Land step.
type RampStatus int

// Ramp results.
const (
	RampInProgress RampStatus = iota
	RampComplete
)

// AltitudeConfig configures an AltitudeController.
type AltitudeConfig struct {
	Gains          Gains
	HistorySize    int
	DerivativeMode DerivativeMode
	// IntegralLimit bounds the absolute value of the integral term, 0 means unbounded.
	IntegralLimit   float64
	TakeoffAltitude float64
	LandingAltitude float64
	// RampFraction is both the ramp step and the completion tolerance,
	// as a fraction of the distance covered by the ramp.
	RampFraction float64
}

// DefaultAltitudeConfig returns the stock altitude configuration.
func DefaultAltitudeConfig() AltitudeConfig {
	return AltitudeConfig{
		Gains:           Gains{Kp: 80, Ki: 10, Kd: 40, SampleTime: DefaultAltitudeSampleTime},
		HistorySize:     DefaultAltitudeHistorySize,
		DerivativeMode:  DerivativeSampleDifference,
		IntegralLimit:   100,
		TakeoffAltitude: DefaultTakeoffAltitude,
		LandingAltitude: DefaultLandingAltitude,
		RampFraction:    DefaultRampFraction,
	}
}

// AltitudeController is a PD law with an optional integral term and
// takeoff/landing setpoint ramps. Altitudes are relative to the zero
// reference set by CalibrateZero.
type AltitudeController struct {
	conf    AltitudeConfig
	history *ErrorHistory

	zeroReference float64
	phase         Phase
	integral      float64

	rampTarget float64
	rampDelta  float64
}

// NewAltitudeController creates an AltitudeController.
func NewAltitudeController(conf AltitudeConfig) (*AltitudeController, error) {
	if err := conf.Gains.Validate(); err != nil {
		return nil, err
	}
	history, err := NewErrorHistory(conf.HistorySize)
	if err != nil {
		return nil, err
	}
	if conf.RampFraction <= 0 || conf.RampFraction > 1 {
		return nil, fmt.Errorf("%w: ramp fraction must be within (0, 1], got %v", ErrInvalidRamp, conf.RampFraction)
	}
	return &AltitudeController{conf: conf, history: history}, nil
}

// Phase returns the current phase.
func (c *AltitudeController) Phase() Phase {
	return c.phase
}

// History exposes the error history.
func (c *AltitudeController) History() *ErrorHistory {
	return c.history
}

// CalibrateZero sets the zero reference. It must be called once before the
// first takeoff; calling it in flight rebiases the controller.
func (c *AltitudeController) CalibrateZero(altMeasured float64) {
	c.zeroReference = altMeasured
}

// Zero returns the zero reference.
func (c *AltitudeController) Zero() float64 {
	return c.zeroReference
}

// Relative converts a measured altitude into one relative to the zero reference.
func (c *AltitudeController) Relative(altMeasured float64) float64 {
	return altMeasured - c.zeroReference
}

// ComputeInput evaluates the PD law. The derivative is estimated from the
// history before the new error is recorded.
func (c *AltitudeController) ComputeInput(altDesired, altMeasured float64, ts timeutil.Timeval) float64 {
	e := altDesired - c.Relative(altMeasured)
	g := c.conf.Gains
	u := g.Kp*e + g.Kd*c.history.Derivative(c.conf.DerivativeMode, g.SampleTime)
	c.history.Push(TimestampedError{Error: e, Timestamp: ts})
	return u
}

// ComputeIntegralTerm accumulates the integral contribution over one sample
// interval and returns it. It only accumulates while holding altitude.
func (c *AltitudeController) ComputeIntegralTerm(altDesired, altMeasured float64) float64 {
	if c.phase != PhaseHolding {
		return 0
	}
	g := c.conf.Gains
	c.integral += g.Ki * (altDesired - c.Relative(altMeasured)) * g.SampleTime
	if limit := c.conf.IntegralLimit; limit > 0 {
		c.integral = math.Max(-limit, math.Min(limit, c.integral))
	}
	return c.integral
}

// Takeoff ramps altDesired toward the takeoff altitude. When the target is
// reached the controller starts holding and RampComplete is returned.
func (c *AltitudeController) Takeoff(altDesired *float64) RampStatus {
	switch c.phase {
	case PhaseHolding:
		return RampComplete
	case PhaseTakingOff:
	default:
		c.beginRamp(PhaseTakingOff, *altDesired, c.conf.TakeoffAltitude)
	}
	return c.ramp(altDesired, PhaseHolding)
}

// Land ramps altDesired down toward the landing altitude. When reached the
// controller becomes idle and RampComplete is returned.
func (c *AltitudeController) Land(altDesired *float64) RampStatus {
	switch c.phase {
	case PhaseIdle:
		return RampComplete
	case PhaseLanding:
	default:
		c.beginRamp(PhaseLanding, *altDesired, c.conf.LandingAltitude)
	}
	return c.ramp(altDesired, PhaseIdle)
}

// Reset drops history and integrator and returns to idle.
func (c *AltitudeController) Reset() {
	c.history.Reset()
	c.setPhase(PhaseIdle)
	c.integral = 0
}

func (c *AltitudeController) setPhase(p Phase) {
	if c.phase == PhaseHolding && p != PhaseHolding {
		c.integral = 0
	}
	c.phase = p
}

func (c *AltitudeController) beginRamp(p Phase, from, target float64) {
	c.setPhase(p)
	c.rampTarget = target
	c.rampDelta = math.Abs(target - from)
}

func (c *AltitudeController) ramp(altDesired *float64, done Phase) RampStatus {
	tolerance := c.conf.RampFraction * c.rampDelta
	remaining := c.rampTarget - *altDesired
	if math.Abs(remaining) <= tolerance {
		c.setPhase(done)
		return RampComplete
	}
	step := math.Copysign(math.Min(tolerance, math.Abs(remaining)), remaining)
	*altDesired += step
	if math.Abs(c.rampTarget-*altDesired) <= tolerance {
		c.setPhase(done)
		return RampComplete
	}
	return RampInProgress
}
