package framework

import (
	"context"

	"github.com/robotalks/quadcop/pkg/timeutil"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Iteration identifies one pass of the Loop.
type Iteration struct {
	// Index counts iterations from 0.
	Index uint64
	// Start is the time the iteration began.
	Start timeutil.Timeval
}

// Stepper is the per-iteration logic driven by the Loop.
// A non-nil error stops the loop.
type Stepper interface {
	Step(ctx context.Context, it Iteration) error
}

// StepFunc is the func form of Stepper.
type StepFunc func(context.Context, Iteration) error

// Step implements Stepper.
func (f StepFunc) Step(ctx context.Context, it Iteration) error {
	return f(ctx, it)
}

// Shutdowner is implemented by a Stepper which needs cleanup after the
// last iteration. It is called on the loop goroutine.
type Shutdowner interface {
	Shutdown() error
}

// TimingObserver receives the outcome of each deadline wait.
// err is nil, or a timeutil.ErrTimingOverrun/ErrClockAnomaly error.
type TimingObserver interface {
	ObserveTiming(it Iteration, end timeutil.Timeval, err error)
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
