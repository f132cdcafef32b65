package command

import (
	"context"
	"io"
)

// Reader forwards tokens read from a stream, typically stdin.
type Reader struct {
	R     io.Reader
	Queue *Queue
}

// Name implements framework.Named.
func (r *Reader) Name() string {
	return "command-reader"
}

// Run implements framework.Runnable. A blocked Read can not be
// interrupted, so on cancellation Run returns and leaves the read pending.
func (r *Reader) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.pump()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (r *Reader) pump() error {
	buf := make([]byte, 64)
	for {
		n, err := r.R.Read(buf)
		if n > 0 {
			r.Queue.Post(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
