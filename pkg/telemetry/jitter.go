package telemetry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat"

	"github.com/robotalks/quadcop/pkg/framework"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

// DefaultJitterWindow is the number of iterations the statistics cover.
const DefaultJitterWindow = 200

// JitterSummary describes the iteration periods in the window.
type JitterSummary struct {
	Count    int           `json:"count"`
	Overruns uint64        `json:"overruns"`
	Mean     time.Duration `json:"mean"`
	StdDev   time.Duration `json:"stddev"`
	Median   time.Duration `json:"median"`
	P99      time.Duration `json:"p99"`
	Max      time.Duration `json:"max"`
}

// Jitter collects the measured period of each iteration. It implements
// framework.TimingObserver.
type Jitter struct {
	// ReportEvery logs a summary at glog V(2) every n iterations, 0 disables.
	ReportEvery uint64

	lock     sync.Mutex
	win      []float64
	n, i     int
	overruns uint64
	last     timeutil.Timeval
	hasLast  bool
}

// NewJitter creates Jitter with a window of n iterations.
func NewJitter(n int) *Jitter {
	if n < 2 {
		n = DefaultJitterWindow
	}
	return &Jitter{win: make([]float64, n)}
}

// ObserveTiming implements framework.TimingObserver. The period is
// measured between the starts of consecutive iterations.
func (j *Jitter) ObserveTiming(it framework.Iteration, end timeutil.Timeval, err error) {
	j.lock.Lock()
	if errors.Is(err, timeutil.ErrTimingOverrun) {
		j.overruns++
	}
	if j.hasLast {
		if d, sign := timeutil.Elapsed(j.last, it.Start); sign != timeutil.Negative {
			j.win[j.i] = float64(d.Micros())
			j.i = (j.i + 1) % len(j.win)
			if j.n < len(j.win) {
				j.n++
			}
		}
	}
	j.last, j.hasLast = it.Start, true
	j.lock.Unlock()

	if j.ReportEvery > 0 && it.Index > 0 && it.Index%j.ReportEvery == 0 && glog.V(2) {
		s := j.Summary()
		glog.Infof("loop timing: mean %v stddev %v median %v p99 %v max %v overruns %d",
			s.Mean, s.StdDev, s.Median, s.P99, s.Max, s.Overruns)
	}
}

// Summary computes the statistics of the current window.
func (j *Jitter) Summary() JitterSummary {
	j.lock.Lock()
	samples := append([]float64(nil), j.win[:j.n]...)
	s := JitterSummary{Count: j.n, Overruns: j.overruns}
	j.lock.Unlock()
	if len(samples) == 0 {
		return s
	}
	sort.Float64s(samples)
	mean, std := stat.MeanStdDev(samples, nil)
	if len(samples) == 1 {
		std = 0
	}
	us := func(v float64) time.Duration { return time.Duration(v * float64(time.Microsecond)) }
	s.Mean = us(mean)
	s.StdDev = us(std)
	s.Median = us(stat.Quantile(0.5, stat.Empirical, samples, nil))
	s.P99 = us(stat.Quantile(0.99, stat.Empirical, samples, nil))
	s.Max = us(samples[len(samples)-1])
	return s
}
