// Package actuator sends channel frames to the receiver-side encoder
// (the S.BUS daemon or a serial bridge).
package actuator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/serial"
)

var (
	// ErrDisconnected indicates the link is gone and will not recover.
	ErrDisconnected = errors.New("actuator disconnected")
	// ErrShortWrite indicates a frame was only partially written.
	ErrShortWrite = errors.New("short write")
)

// DefaultWriteTimeout bounds a single frame write on stream links.
const DefaultWriteTimeout = 20 * time.Millisecond

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Framing selects how frames are delimited on the wire.
type Framing int

// Framings.
const (
	// FramingRaw writes frames as they are, for fixed-size readers.
	FramingRaw Framing = iota
	// FramingLengthPrefixed prefixes each frame with its 4-byte
	// little-endian length.
	FramingLengthPrefixed
)

// Link writes one frame per Send to an io.Writer.
type Link struct {
	W       io.Writer
	Framing Framing
	// IsDisconnect classifies write errors which are not recoverable.
	IsDisconnect func(error) bool
	// WriteTimeout bounds each write when W supports write deadlines,
	// 0 disables the deadline.
	WriteTimeout time.Duration

	buf    []byte
	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewLink creates a Link.
func NewLink(w io.Writer, framing Framing) *Link {
	return &Link{W: w, Framing: framing, IsDisconnect: IsDisconnect, WriteTimeout: DefaultWriteTimeout}
}

// Send writes one frame. Unrecoverable errors wrap ErrDisconnected. A
// write exceeding WriteTimeout fails with os.ErrDeadlineExceeded, which is
// transient.
func (l *Link) Send(frame []byte) error {
	if d, ok := l.W.(writeDeadliner); ok && l.WriteTimeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(l.WriteTimeout)); err != nil {
			l.failed.Add(1)
			if l.IsDisconnect != nil && l.IsDisconnect(err) {
				return fmt.Errorf("%w: %w", ErrDisconnected, err)
			}
			return err
		}
	}
	l.buf = l.buf[:0]
	if l.Framing == FramingLengthPrefixed {
		l.buf = binary.LittleEndian.AppendUint32(l.buf, uint32(len(frame)))
	}
	l.buf = append(l.buf, frame...)
	n, err := l.W.Write(l.buf)
	if err == nil && n < len(l.buf) {
		err = fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(l.buf))
	}
	if err != nil {
		l.failed.Add(1)
		if l.IsDisconnect != nil && l.IsDisconnect(err) {
			return fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
		if n > 0 && l.Framing == FramingLengthPrefixed {
			// the peer can't find the next frame boundary
			return fmt.Errorf("%w: partial frame: %w", ErrDisconnected, err)
		}
		return err
	}
	l.sent.Add(1)
	return nil
}

// Stats returns the number of frames sent and failed.
func (l *Link) Stats() (sent, failed uint64) {
	return l.sent.Load(), l.failed.Load()
}

// Close implements io.Closer.
func (l *Link) Close() error {
	sent, failed := l.Stats()
	glog.Infof("actuator link closed: %d frames sent, %d failed", sent, failed)
	if c, ok := l.W.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// IsDisconnect reports errors meaning the peer is gone.
func IsDisconnect(err error) bool {
	return serial.IsDisconnect(err) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

// Open opens a link from a URL:
//
//	serial:///dev/ttyAMA0?baud=115200   raw frames on a serial port
//	tcp://host:port                      length-prefixed frames
//	unix:///run/sbusd.sock               length-prefixed frames
func Open(linkURL string) (*Link, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid actuator URL %q: %w", linkURL, err)
	}
	switch u.Scheme {
	case "serial":
		conf := serial.Config{Device: u.Path}
		if str := u.Query().Get("baud"); str != "" {
			if conf.BaudRate, err = strconv.Atoi(str); err != nil {
				return nil, fmt.Errorf("invalid baud %q: %w", str, err)
			}
		}
		port, err := serial.Open(conf)
		if err != nil {
			return nil, err
		}
		return NewLink(port, FramingRaw), nil
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return NewLink(conn, FramingLengthPrefixed), nil
	case "unix":
		conn, err := net.Dial("unix", u.Path)
		if err != nil {
			return nil, err
		}
		return NewLink(conn, FramingLengthPrefixed), nil
	}
	return nil, fmt.Errorf("unsupported actuator scheme %q", u.Scheme)
}
