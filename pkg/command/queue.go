// Package command delivers operator command tokens to the control loop.
package command

import (
	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/framework"
)

// DefaultQueueLimit bounds tokens waiting for the loop.
const DefaultQueueLimit = 64

// Queue hands tokens from reader goroutines to the loop. It implements
// flight.CommandSource.
type Queue struct {
	tokens framework.Mailbox[byte]
}

// NewQueue creates a Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.tokens.Limit = DefaultQueueLimit
	return q
}

// TryReadToken implements flight.CommandSource.
func (q *Queue) TryReadToken() (byte, bool) {
	return q.tokens.Pop()
}

// Post enqueues tokens, skipping whitespace. It returns the number of
// tokens enqueued.
func (q *Queue) Post(tokens []byte) int {
	var n int
	for _, token := range tokens {
		switch token {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if !q.tokens.Post(token) {
			glog.Warningf("command queue full, drop %q", token)
			continue
		}
		n++
	}
	return n
}
