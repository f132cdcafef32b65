package framework

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/timeutil"
)

// DefaultPeriod is the loop period used when none is configured.
const DefaultPeriod = 50 * time.Millisecond

// ErrNoStepper is returned when a Loop runs without a Stepper.
var ErrNoStepper = errors.New("loop has no stepper")

// Loop drives a Stepper at a fixed period on the calling goroutine.
// Background Runnables (pollers, readers, publishers) are started alongside
// and stopped when the loop returns.
type Loop struct {
	Period  time.Duration
	Clock   timeutil.Clock
	Stepper Stepper

	runners   []Runnable
	observers []TimingObserver
}

// NewLoop creates a Loop.
func NewLoop(stepper Stepper) *Loop {
	return &Loop{Period: DefaultPeriod, Stepper: stepper}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// AddObserver registers observers of iteration timing.
func (l *Loop) AddObserver(observers ...TimingObserver) *Loop {
	l.observers = append(l.observers, observers...)
	return l
}

// Run implements Runnable. It returns nil when ctx is canceled, otherwise
// the error which stopped the loop. The Stepper's Shutdown is always invoked.
func (l *Loop) Run(ctx context.Context) (err error) {
	if l.Stepper == nil {
		return ErrNoStepper
	}
	clock := l.Clock
	if clock == nil {
		clock = timeutil.NewSystemClock()
	}
	period := l.Period
	if period <= 0 {
		period = DefaultPeriod
	}

	runCtx, cancel := context.WithCancel(ctx)
	runner := NewRunnerWith(runCtx).Go(l.runners...)
	defer func() {
		cancel()
		var errs AggregatedError
		errs.Add(err)
		if s, ok := l.Stepper.(Shutdowner); ok {
			errs.Add(s.Shutdown())
		}
		errs.Add(runner.Wait())
		err = errs.Aggregate()
	}()

	for index := uint64(0); ; index++ {
		if ctx.Err() != nil {
			return nil
		}
		it := Iteration{Index: index, Start: clock.Now()}
		if err := l.Stepper.Step(ctx, it); err != nil {
			glog.Errorf("iteration %d: %v", index, err)
			return err
		}
		waitErr := timeutil.SleepUntilDeadline(ctx, clock, period, it.Start)
		switch {
		case waitErr == nil:
		case errors.Is(waitErr, context.Canceled), errors.Is(waitErr, context.DeadlineExceeded):
			return nil
		default:
			glog.Warningf("iteration %d: %v", index, waitErr)
		}
		if len(l.observers) > 0 {
			end := clock.Now()
			for _, o := range l.observers {
				o.ObserveTiming(it, end, waitErr)
			}
		}
	}
}
