package flight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/actuator"
	"github.com/robotalks/quadcop/pkg/attitude"
	"github.com/robotalks/quadcop/pkg/channels"
	"github.com/robotalks/quadcop/pkg/control"
	"github.com/robotalks/quadcop/pkg/framework"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

//go:generate mockgen -destination mock_flight_test.go -package flight -write_package_comment=false . AttitudeSource,Transport,CommandSource

// AttitudeSource provides attitude samples. TryRead must return within
// roughly timeout.
type AttitudeSource interface {
	TryRead(timeout time.Duration) (attitude.Sample, error)
}

// Transport sends channel frames to the actuators. It may implement
// io.Closer to be closed on shutdown.
type Transport interface {
	Send(frame []byte) error
}

// CommandSource provides command tokens without blocking.
type CommandSource interface {
	TryReadToken() (byte, bool)
}

// RecordSink receives a copy of every log record. Consume must not block.
type RecordSink interface {
	Consume(Record)
}

// Deps are the collaborators of a Scheduler.
type Deps struct {
	Clock     timeutil.Clock
	Source    AttitudeSource
	Transport Transport
	// Commands is optional.
	Commands CommandSource
	// Log receives one text record per iteration. It is flushed and
	// closed on shutdown if it implements Flush() error and io.Closer.
	Log   io.Writer
	Sinks []RecordSink
}

type flusher interface {
	Flush() error
}

// Scheduler runs one control iteration per Step and owns all flight state.
type Scheduler struct {
	conf Config
	axis control.AxisTest
	deps Deps

	state    LoopState
	channels *channels.Vector
	interp   *Interpreter
	yaw      *control.YawController
	alt      *control.AltitudeController

	failures int
	sample   attitude.Sample
	fresh    bool
	runStart timeutil.Timeval
	running  bool
	stopped  bool
	buf      []byte
}

// NewScheduler validates conf and creates a Scheduler.
func NewScheduler(conf *Config, deps Deps) (*Scheduler, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("%w: attitude source is required", ErrConfig)
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrConfig)
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.NewSystemClock()
	}
	axis, _ := conf.AxisTest()
	yaw, _ := control.NewYawController(conf.Yaw)
	alt, _ := control.NewAltitudeController(conf.Altitude)
	s := &Scheduler{
		conf:     *conf,
		axis:     axis,
		deps:     deps,
		channels: channels.New(),
		yaw:      yaw,
		alt:      alt,
	}
	s.state.Setpoints.Angle = channels.RollNeutral
	s.interp = NewInterpreter(&s.state, s.channels, conf.InitialThrottle)
	return s, nil
}

// State returns a copy of the loop state.
func (s *Scheduler) State() LoopState {
	return s.state
}

// Channels returns the current channel values.
func (s *Scheduler) Channels() [channels.Count]int {
	return s.channels.Values()
}

// Failures returns the number of consecutive iterations without a sample.
func (s *Scheduler) Failures() int {
	return s.failures
}

// AddToLoop implements framework.LoopAdder.
func (s *Scheduler) AddToLoop(l *framework.Loop) {
	l.Stepper = s
	l.Period = s.conf.Period
	l.Clock = s.deps.Clock
}

// NewLoop creates a Loop driving the Scheduler.
func (s *Scheduler) NewLoop() *framework.Loop {
	return (&framework.Loop{}).Add(s)
}

// Step implements framework.Stepper. Only a disconnected transport
// returns an error, everything else is recovered within the iteration.
func (s *Scheduler) Step(ctx context.Context, it framework.Iteration) error {
	if !s.running {
		s.runStart, s.running = it.Start, true
	}

	s.readAttitude(it)

	if s.fresh && s.state.Status == StatusStarted {
		s.runControllers()
	}

	s.applyCommands(it)

	if err := s.deps.Transport.Send(s.channels.WireBytes()); err != nil {
		if errors.Is(err, actuator.ErrDisconnected) {
			return fmt.Errorf("%w: %w", ErrTransportFailure, err)
		}
		glog.Warningf("iteration %d: %v: %v", it.Index, ErrTransportFailure, err)
	}

	s.emit(it)
	return nil
}

func (s *Scheduler) readAttitude(it framework.Iteration) {
	sample, err := s.deps.Source.TryRead(s.conf.PollTimeout)
	if err != nil {
		s.fresh = false
		s.failures++
		glog.V(1).Infof("iteration %d: %v: %v (%d consecutive)", it.Index, ErrSourceUnavailable, err, s.failures)
		if s.failures > s.conf.FailsafeThreshold && s.state.Status != StatusFailsafe {
			glog.Errorf("no attitude for %d iterations, entering failsafe", s.failures)
			s.transition(StatusFailsafe, s.interp.EnterFailsafe)
		}
		return
	}
	s.failures, s.sample, s.fresh = 0, sample, true
}

func (s *Scheduler) runControllers() {
	ts := s.sample.Timestamp
	s.axis.Apply(s.state.Setpoints.Angle, s.channels)
	if s.conf.YawHold {
		u := s.yaw.ComputeError(s.state.Setpoints.Yaw, s.sample.Yaw, ts)
		s.channels.Set(channels.Yaw, channels.YawNeutral+int(math.Round(u)))
	}
	if s.conf.AltitudeHold && s.sample.HasAltitude {
		// the controller works relative to the zero captured on start
		measured := s.sample.Altitude
		desired := &s.state.Setpoints.Altitude
		if phase := s.alt.Phase(); phase == control.PhaseIdle || phase == control.PhaseTakingOff {
			if s.alt.Takeoff(desired) == control.RampComplete {
				glog.Infof("takeoff complete at %.2fm", *desired)
			}
		}
		u := s.alt.ComputeInput(*desired, measured, ts) + s.alt.ComputeIntegralTerm(*desired, measured)
		s.channels.SetThrottle(s.interp.InitialThrottle + int(math.Round(u)))
	}
}

func (s *Scheduler) applyCommands(it framework.Iteration) {
	if s.deps.Commands == nil {
		return
	}
	for n := 0; n < s.conf.MaxCommandsPerIteration; n++ {
		token, ok := s.deps.Commands.TryReadToken()
		if !ok {
			return
		}
		s.applyCommand(it, token)
	}
}

func (s *Scheduler) applyCommand(it framework.Iteration, token byte) {
	from := s.state.Status
	eff, err := s.interp.Apply(token)
	if err != nil {
		glog.Warningf("iteration %d: %v", it.Index, err)
		return
	}
	if eff.Transitioned() {
		s.onTransition(from, eff.To)
	}
	glog.V(1).Infof("iteration %d: command %q applied, %s -> %s", it.Index, token, eff.From, eff.To)
}

// transition runs fn which changes the status and then the transition hooks.
func (s *Scheduler) transition(to Status, fn func()) {
	from := s.state.Status
	fn()
	if from != to {
		s.onTransition(from, to)
	}
}

func (s *Scheduler) onTransition(from, to Status) {
	glog.Infof("status %s -> %s", from, to)
	if to == StatusStarted {
		s.beginFlight()
	} else if from == StatusStarted {
		s.endFlight()
	}
}

// beginFlight captures the current heading and altitude as references.
func (s *Scheduler) beginFlight() {
	s.yaw.Reset()
	s.alt.Reset()
	s.state.Setpoints.Yaw = s.sample.Yaw
	s.state.Setpoints.Altitude = 0
	if s.sample.HasAltitude {
		s.alt.CalibrateZero(s.sample.Altitude)
	}
}

func (s *Scheduler) endFlight() {
	s.yaw.Reset()
	s.alt.Reset()
}

func (s *Scheduler) emit(it framework.Iteration) {
	loop, _ := timeutil.Elapsed(s.runStart, it.Start)
	rec := Record{
		Iteration: it.Index,
		Status:    s.state.Status,
		Fresh:     s.fresh,
		Sample:    s.sample,
		Channels:  s.channels.Values(),
		Loop:      loop,
	}
	if s.deps.Log != nil {
		s.buf = rec.AppendText(s.buf[:0])
		if _, err := s.deps.Log.Write(s.buf); err != nil {
			glog.Warningf("iteration %d: write log error: %v", it.Index, err)
		}
	}
	for _, sink := range s.deps.Sinks {
		sink.Consume(rec)
	}
}

// Shutdown implements framework.Shutdowner. Channels are set neutral and
// sent once more before the log is flushed and the transport is closed.
func (s *Scheduler) Shutdown() error {
	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.state.Status == StatusStarted {
		s.endFlight()
	}
	s.channels.ResetToNeutral()
	if s.state.Status != StatusFailsafe {
		s.state.Status = StatusStopped
	}

	var errs framework.AggregatedError
	if err := s.deps.Transport.Send(s.channels.WireBytes()); err != nil {
		errs.Add(fmt.Errorf("%w: final frame: %w", ErrTransportFailure, err))
	}
	if f, ok := s.deps.Log.(flusher); ok {
		errs.Add(f.Flush())
	}
	if c, ok := s.deps.Log.(io.Closer); ok {
		errs.Add(c.Close())
	}
	if c, ok := s.deps.Transport.(io.Closer); ok {
		errs.Add(c.Close())
	}
	glog.Infof("control loop stopped, channels %v", s.channels)
	return errs.Aggregate()
}
