package flight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/robotalks/quadcop/pkg/actuator"
	"github.com/robotalks/quadcop/pkg/attitude"
	"github.com/robotalks/quadcop/pkg/attitude/sim"
	"github.com/robotalks/quadcop/pkg/channels"
	"github.com/robotalks/quadcop/pkg/framework"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

type tokenQueue struct {
	framework.Mailbox[byte]
}

func (q *tokenQueue) TryReadToken() (byte, bool) {
	return q.Pop()
}

func (q *tokenQueue) post(tokens string) {
	for _, token := range []byte(tokens) {
		q.Post(token)
	}
}

type testLog struct {
	bytes.Buffer
	events *[]string
}

func (l *testLog) Flush() error {
	*l.events = append(*l.events, "flush")
	return nil
}

func (l *testLog) Close() error {
	*l.events = append(*l.events, "close log")
	return nil
}

type closingTransport struct {
	*MockTransport
	events *[]string
}

func (t *closingTransport) Close() error {
	*t.events = append(*t.events, "close transport")
	return nil
}

type sinkFunc func(Record)

func (f sinkFunc) Consume(rec Record) {
	f(rec)
}

type schedulerHarness struct {
	sched     *Scheduler
	clock     *timeutil.FakeClock
	source    *MockAttitudeSource
	transport *MockTransport
	commands  *tokenQueue
	log       *testLog
	frames    [][channels.Count]int
	events    []string
	index     uint64
}

func newHarness(t *testing.T, configure func(*Config)) *schedulerHarness {
	ctrl := gomock.NewController(t)
	h := &schedulerHarness{
		clock:     timeutil.NewFakeClock(timeutil.Timeval{Sec: 1000}),
		source:    NewMockAttitudeSource(ctrl),
		transport: NewMockTransport(ctrl),
		commands:  &tokenQueue{},
	}
	h.log = &testLog{events: &h.events}
	conf := NewConfig()
	conf.FailsafeThreshold = 3
	if configure != nil {
		configure(conf)
	}
	h.transport.EXPECT().Send(gomock.Any()).DoAndReturn(func(frame []byte) error {
		values, err := channels.DecodeWire(frame)
		require.NoError(t, err)
		h.frames = append(h.frames, values)
		h.events = append(h.events, "send")
		return nil
	}).AnyTimes()
	sched, err := NewScheduler(conf, Deps{
		Clock:     h.clock,
		Source:    h.source,
		Transport: &closingTransport{MockTransport: h.transport, events: &h.events},
		Commands:  h.commands,
		Log:       h.log,
	})
	require.NoError(t, err)
	h.sched = sched
	return h
}

func (h *schedulerHarness) step(t *testing.T) {
	it := framework.Iteration{Index: h.index, Start: h.clock.Now()}
	require.NoError(t, h.sched.Step(context.Background(), it))
	h.index++
	h.clock.Advance(DefaultPeriod)
}

func (h *schedulerHarness) lastFrame() [channels.Count]int {
	return h.frames[len(h.frames)-1]
}

func TestSchedulerFailsafeOnSourceLoss(t *testing.T) {
	h := newHarness(t, nil)
	h.source.EXPECT().TryRead(DefaultPollTimeout).Return(attitude.Sample{}, attitude.ErrNoSample).AnyTimes()

	h.commands.post("A")
	for n := 0; n < 3; n++ {
		h.step(t)
		require.Equal(t, StatusArmed, h.sched.State().Status)
	}
	require.Equal(t, 3, h.sched.Failures())

	h.step(t)
	require.Equal(t, StatusFailsafe, h.sched.State().Status)
	require.Equal(t, channels.ActivateFailsafe, h.lastFrame()[channels.Failsafe])

	h.commands.post("f")
	h.step(t)
	require.Equal(t, StatusStopped, h.sched.State().Status)
	require.Equal(t, channels.DeactivateFailsafe, h.lastFrame()[channels.Failsafe])
	require.Len(t, h.frames, 5)
}

func TestSchedulerFailureCounterResets(t *testing.T) {
	h := newHarness(t, nil)
	gomock.InOrder(
		h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{}, attitude.ErrNoSample).Times(3),
		h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{Yaw: 1}, nil),
		h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{}, attitude.ErrNoSample).Times(3),
	)
	for n := 0; n < 7; n++ {
		h.step(t)
	}
	require.Equal(t, 3, h.sched.Failures())
	require.Equal(t, StatusStopped, h.sched.State().Status)
}

func TestSchedulerControllers(t *testing.T) {
	h := newHarness(t, func(conf *Config) {
		conf.YawHold = true
	})
	ts := timeutil.Timeval{Sec: 1000}
	gomock.InOrder(
		h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{Yaw: 10, Timestamp: ts}, nil),
		h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{Yaw: 20, Timestamp: ts}, nil),
		h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{}, attitude.ErrNoSample),
	)

	h.commands.post("AS5")
	h.step(t)
	state := h.sched.State()
	require.Equal(t, StatusStarted, state.Status)
	require.Equal(t, 10.0, state.Setpoints.Yaw)
	require.Equal(t, 1625.0, state.Setpoints.Angle)
	// controllers run from the next iteration
	require.Equal(t, [channels.Count]int{1500, 1500, 1000, 1450, 2000, 100}, h.lastFrame())

	h.commands.post("n5")
	h.step(t)
	require.Equal(t, -1625.0, h.sched.State().Setpoints.Angle)
	// yaw error -10 with Kp 2, roll follows the setpoint of the previous iteration
	require.Equal(t, [channels.Count]int{1625, 1500, 1480, 1450, 2000, 100}, h.lastFrame())

	// no sample, channels carried forward
	h.step(t)
	require.Equal(t, [channels.Count]int{1625, 1500, 1480, 1450, 2000, 100}, h.lastFrame())
}

func TestSchedulerAltitudeHoldRelativeToGround(t *testing.T) {
	for _, ground := range []float64{0, 100, -35.5} {
		t.Run(fmt.Sprintf("ground %v", ground), func(t *testing.T) {
			h := newHarness(t, func(conf *Config) {
				conf.AltitudeHold = true
			})
			h.source.EXPECT().TryRead(gomock.Any()).
				Return(attitude.Sample{Altitude: ground, HasAltitude: true, Timestamp: timeutil.Timeval{Sec: 1000}}, nil).
				AnyTimes()

			h.commands.post("AS")
			h.step(t)
			require.Equal(t, StatusStarted, h.sched.State().Status)
			require.Equal(t, ground, h.sched.alt.Zero())

			h.step(t)
			require.InDelta(t, 0.05, h.sched.State().Setpoints.Altitude, 1e-9)
			// first ramp step 0.05m with Kp 80 on the ground
			require.Equal(t, 1454, h.lastFrame()[channels.Throttle])
		})
	}
}

func TestSchedulerMaxCommandsPerIteration(t *testing.T) {
	h := newHarness(t, func(conf *Config) {
		conf.MaxCommandsPerIteration = 2
	})
	h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{}, nil).AnyTimes()
	h.commands.post("AS1")
	h.step(t)
	require.Equal(t, StatusStarted, h.sched.State().Status)
	require.Equal(t, 1500.0, h.sched.State().Setpoints.Angle)
	h.step(t)
	require.Equal(t, 1525.0, h.sched.State().Setpoints.Angle)
}

func TestSchedulerTransportErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockAttitudeSource(ctrl)
	transport := NewMockTransport(ctrl)
	source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{}, nil).AnyTimes()
	sched, err := NewScheduler(NewConfig(), Deps{
		Clock:     timeutil.NewFakeClock(timeutil.Timeval{}),
		Source:    source,
		Transport: transport,
	})
	require.NoError(t, err)

	transport.EXPECT().Send(gomock.Any()).Return(errors.New("busy"))
	require.NoError(t, sched.Step(context.Background(), framework.Iteration{}))

	transport.EXPECT().Send(gomock.Any()).Return(fmt.Errorf("%w: device gone", actuator.ErrDisconnected))
	err = sched.Step(context.Background(), framework.Iteration{Index: 1})
	require.True(t, errors.Is(err, ErrTransportFailure))
	require.True(t, errors.Is(err, actuator.ErrDisconnected))
}

func TestSchedulerShutdown(t *testing.T) {
	h := newHarness(t, nil)
	h.source.EXPECT().TryRead(gomock.Any()).Return(attitude.Sample{}, nil).AnyTimes()
	h.commands.post("AS")
	h.step(t)
	require.Equal(t, StatusStarted, h.sched.State().Status)
	h.events = nil

	require.NoError(t, h.sched.Shutdown())
	require.Equal(t, []string{"send", "flush", "close log", "close transport"}, h.events)
	require.Equal(t, [channels.Count]int{1500, 1500, 1500, 1000, 1500, 100}, h.lastFrame())
	require.Equal(t, StatusStopped, h.sched.State().Status)

	// only once
	require.NoError(t, h.sched.Shutdown())
	require.Len(t, h.events, 4)
}

func TestSchedulerLogRecords(t *testing.T) {
	h := newHarness(t, nil)
	sample := attitude.Sample{Roll: 1.5, Pitch: -2, Yaw: 90, Timestamp: timeutil.Timeval{Sec: 1000, Usec: 15000}}
	h.source.EXPECT().TryRead(gomock.Any()).Return(sample, nil).Times(2)
	h.step(t)
	h.step(t)
	lines := strings.Split(strings.TrimSuffix(h.log.String(), "\n"), "\n")
	require.Equal(t, []string{
		"1000 15000 1.500000 -2.000000 90.000000 1500 1500 1500 950 0 0",
		"1000 15000 1.500000 -2.000000 90.000000 1500 1500 1500 950 0 50000",
	}, lines)
}

func TestSchedulerConfigErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	testCases := []struct {
		name      string
		configure func(*Config)
		deps      Deps
	}{
		{"no source", nil, Deps{Transport: NewMockTransport(ctrl)}},
		{"no transport", nil, Deps{Source: NewMockAttitudeSource(ctrl)}},
		{"bad throttle", func(c *Config) { c.InitialThrottle = 500 }, Deps{}},
		{"bad period", func(c *Config) { c.Period = 0 }, Deps{}},
		{"poll longer than period", func(c *Config) { c.PollTimeout = time.Second }, Deps{}},
		{"bad threshold", func(c *Config) { c.FailsafeThreshold = 0 }, Deps{}},
		{"bad axis", func(c *Config) { c.Axis = "throttle" }, Deps{}},
		{"odd history", func(c *Config) { c.Yaw.HistorySize = 3 }, Deps{}},
		{"zero sample time", func(c *Config) { c.Altitude.Gains.SampleTime = 0 }, Deps{}},
		{"bad ramp fraction", func(c *Config) { c.Altitude.RampFraction = 2 }, Deps{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := NewConfig()
			if tc.configure != nil {
				tc.configure(conf)
			}
			_, err := NewScheduler(conf, tc.deps)
			require.True(t, errors.Is(err, ErrConfig), "%v", err)
		})
	}
}

func TestSchedulerLoopWithSimulator(t *testing.T) {
	clock := timeutil.NewFakeClock(timeutil.Timeval{Sec: 1})
	airframe := sim.New(sim.DefaultConfig(), clock)
	airframe.Sleep = clock.Advance
	commands := &tokenQueue{}
	commands.post("AS")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var records []Record
	conf := NewConfig()
	conf.AltitudeHold = true
	sched, err := NewScheduler(conf, Deps{
		Clock:     clock,
		Source:    airframe,
		Transport: airframe,
		Commands:  commands,
		Sinks: []RecordSink{sinkFunc(func(rec Record) {
			records = append(records, rec)
			if len(records) == 40 {
				cancel()
			}
		})},
	})
	require.NoError(t, err)

	require.NoError(t, sched.NewLoop().Run(ctx))
	require.Len(t, records, 40)
	require.Equal(t, StatusStarted, records[len(records)-1].Status)
	for n, rec := range records {
		require.Equal(t, uint64(n), rec.Iteration)
		require.True(t, rec.Fresh)
		require.Equal(t, int64(n)*50000, rec.Loop.Micros())
	}
	require.Greater(t, records[len(records)-1].Sample.Altitude, 0.0)
	// final frame is neutral
	require.Equal(t, [channels.Count]int{1500, 1500, 1500, 1000, 1500, 100}, airframe.Sticks())
	require.Equal(t, 41, airframe.Frames())
}
