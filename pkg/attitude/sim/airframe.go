// Package sim provides a simulated airframe standing in for both the
// attitude source and the actuator link, for flying without hardware.
package sim

import (
	"sync"
	"time"

	"github.com/robotalks/quadcop/pkg/attitude"
	"github.com/robotalks/quadcop/pkg/channels"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

// Defaults
const (
	DefaultReadDelay     = 15 * time.Millisecond
	DefaultMaxTilt       = 30.0 // degrees at full stick
	DefaultYawRate       = 90.0 // degrees/s at full stick
	DefaultClimbRate     = 2.0  // m/s at full stick
	DefaultHoverThrottle = 1500
)

// Config defines the simulation parameters.
type Config struct {
	// ReadDelay simulates the latency of the attitude link.
	ReadDelay time.Duration
	// DropEvery makes every n-th read fail, 0 disables dropouts.
	DropEvery     int
	MaxTilt       float64
	YawRate       float64
	ClimbRate     float64
	HoverThrottle int
}

// DefaultConfig returns the stock simulation parameters.
func DefaultConfig() Config {
	return Config{
		ReadDelay:     DefaultReadDelay,
		MaxTilt:       DefaultMaxTilt,
		YawRate:       DefaultYawRate,
		ClimbRate:     DefaultClimbRate,
		HoverThrottle: DefaultHoverThrottle,
	}
}

// Airframe integrates the channel commands it receives into an attitude
// estimate. It implements the attitude source and the actuator transport.
type Airframe struct {
	Config Config
	Clock  timeutil.Clock
	// Sleep is used to simulate the read delay.
	Sleep func(time.Duration)

	lock     sync.Mutex
	sticks   [channels.Count]int
	yaw      attitude.Angle
	altitude float64
	last     timeutil.Timeval
	started  bool
	reads    int
	frames   int
}

// New creates an Airframe resting on the ground.
func New(conf Config, clock timeutil.Clock) *Airframe {
	return &Airframe{
		Config: conf,
		Clock:  clock,
		Sleep:  time.Sleep,
		sticks: channels.New().Values(),
	}
}

// TryRead implements the attitude source. The read takes Config.ReadDelay
// and fails when that exceeds timeout.
func (a *Airframe) TryRead(timeout time.Duration) (attitude.Sample, error) {
	delay := a.Config.ReadDelay
	if delay > timeout {
		a.Sleep(timeout)
		return attitude.Sample{}, attitude.ErrNoSample
	}
	if delay > 0 {
		a.Sleep(delay)
	}

	a.lock.Lock()
	defer a.lock.Unlock()
	a.reads++
	if n := a.Config.DropEvery; n > 0 && a.reads%n == 0 {
		return attitude.Sample{}, attitude.ErrNoSample
	}
	now := a.Clock.Now()
	a.integrate(now)
	return attitude.Sample{
		Roll:        a.stickFraction(channels.Roll, channels.RollNeutral) * a.Config.MaxTilt,
		Pitch:       a.stickFraction(channels.Pitch, channels.PitchNeutral) * a.Config.MaxTilt,
		Yaw:         a.yaw.Degrees(),
		Altitude:    a.altitude,
		HasAltitude: true,
		Timestamp:   now,
	}, nil
}

// Send implements the actuator transport.
func (a *Airframe) Send(frame []byte) error {
	values, err := channels.DecodeWire(frame)
	if err != nil {
		return err
	}
	a.lock.Lock()
	a.integrate(a.Clock.Now())
	a.sticks = values
	a.frames++
	a.lock.Unlock()
	return nil
}

// Frames returns the number of channel frames received.
func (a *Airframe) Frames() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.frames
}

// Sticks returns the last received channel values.
func (a *Airframe) Sticks() [channels.Count]int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.sticks
}

func (a *Airframe) stickFraction(ch channels.Channel, neutral int) float64 {
	return float64(a.sticks[ch]-neutral) / float64(channels.MaxCommand-neutral)
}

func (a *Airframe) integrate(now timeutil.Timeval) {
	if !a.started {
		a.last, a.started = now, true
		return
	}
	elapsed, sign := timeutil.Elapsed(a.last, now)
	a.last = now
	if sign != timeutil.Positive {
		return
	}
	dt := elapsed.Duration().Seconds()
	a.yaw = a.yaw.AddDegrees(a.stickFraction(channels.Yaw, channels.YawNeutral) * a.Config.YawRate * dt)

	climb := a.stickFraction(channels.Throttle, a.Config.HoverThrottle) * a.Config.ClimbRate
	if a.sticks[channels.Failsafe] == channels.ActivateFailsafe {
		climb = -a.Config.ClimbRate / 2
	}
	if a.altitude += climb * dt; a.altitude < 0 {
		a.altitude = 0
	}
}
