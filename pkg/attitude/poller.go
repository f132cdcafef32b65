package attitude

import "time"

// Poller hands samples from a producer goroutine to the loop. Only the
// newest sample is kept. TryRead never waits longer than its timeout.
type Poller struct {
	ch chan Sample
}

// NewPoller creates a Poller.
func NewPoller() *Poller {
	return &Poller{ch: make(chan Sample, 1)}
}

// Publish offers a sample, replacing any unread one.
func (p *Poller) Publish(s Sample) {
	for {
		select {
		case p.ch <- s:
			return
		default:
		}
		select {
		case <-p.ch:
		default:
		}
	}
}

// TryRead returns the pending sample or waits up to timeout for one.
func (p *Poller) TryRead(timeout time.Duration) (Sample, error) {
	select {
	case s := <-p.ch:
		return s, nil
	default:
	}
	if timeout <= 0 {
		return Sample{}, ErrNoSample
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s := <-p.ch:
		return s, nil
	case <-timer.C:
		return Sample{}, ErrNoSample
	}
}
