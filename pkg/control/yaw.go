package control

import (
	"math"

	"github.com/robotalks/quadcop/pkg/timeutil"
)

// Yaw defaults.
const (
	DefaultYawHistorySize = 4
	DefaultYawSampleTime  = 0.05 // seconds
)

// YawConfig configures a YawController.
type YawConfig struct {
	Gains         Gains
	HistorySize   int
	UseDerivative bool
	// WrapDegrees folds the error into (-180, 180].
	WrapDegrees bool
}

// DefaultYawConfig returns the stock yaw configuration.
func DefaultYawConfig() YawConfig {
	return YawConfig{
		Gains:       Gains{Kp: 2, Td: 0.1, SampleTime: DefaultYawSampleTime},
		HistorySize: DefaultYawHistorySize,
		WrapDegrees: true,
	}
}

// YawController is a proportional law with an optional derivative term.
type YawController struct {
	conf    YawConfig
	history *ErrorHistory
}

// NewYawController creates a YawController.
func NewYawController(conf YawConfig) (*YawController, error) {
	if err := conf.Gains.Validate(); err != nil {
		return nil, err
	}
	history, err := NewErrorHistory(conf.HistorySize)
	if err != nil {
		return nil, err
	}
	return &YawController{conf: conf, history: history}, nil
}

// History exposes the error history.
func (c *YawController) History() *ErrorHistory {
	return c.history
}

// ComputeError evaluates u = Kp*e (+ Kp*Td*de/dt).
// The derivative only sees samples from previous iterations.
func (c *YawController) ComputeError(yawDesired, yawMeasured float64, ts timeutil.Timeval) float64 {
	e := yawDesired - yawMeasured
	if c.conf.WrapDegrees {
		e = wrapDegrees(e)
	}
	g := c.conf.Gains
	u := g.Kp * e
	if c.conf.UseDerivative {
		u += g.Kp * g.Td * c.history.Derivative(DerivativeSampleDifference, g.SampleTime)
	}
	c.history.Push(TimestampedError{Error: e, Timestamp: ts})
	return u
}

// Reset drops the history.
func (c *YawController) Reset() {
	c.history.Reset()
}

func wrapDegrees(d float64) float64 {
	d = math.Remainder(d, 360)
	if d == -180 {
		d = 180
	}
	return d
}
