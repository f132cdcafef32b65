package actuator

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/quadcop/pkg/channels"
)

type failingWriter struct {
	err error
	n   int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return w.n, w.err
}

func TestLinkFraming(t *testing.T) {
	frame := channels.New().WireBytes()
	testCases := []struct {
		name    string
		framing Framing
		expect  []byte
	}{
		{"raw", FramingRaw, frame},
		{"length prefixed", FramingLengthPrefixed, append([]byte{byte(channels.WireSize), 0, 0, 0}, frame...)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLink(&buf, tc.framing)
			require.NoError(t, l.Send(frame))
			require.Equal(t, tc.expect, buf.Bytes())
			sent, failed := l.Stats()
			require.Equal(t, uint64(1), sent)
			require.Zero(t, failed)
		})
	}
}

func TestLinkErrors(t *testing.T) {
	errTransient := errors.New("transient")
	testCases := []struct {
		name         string
		w            io.Writer
		disconnected bool
		target       error
	}{
		{"transient", &failingWriter{err: errTransient}, false, errTransient},
		{"short write", &failingWriter{n: 3}, false, ErrShortWrite},
		{"closed pipe", &failingWriter{err: io.ErrClosedPipe}, true, io.ErrClosedPipe},
		{"closed conn", &failingWriter{err: net.ErrClosed}, true, net.ErrClosed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLink(tc.w, FramingRaw)
			err := l.Send([]byte{1, 2, 3, 4})
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.target))
			require.Equal(t, tc.disconnected, errors.Is(err, ErrDisconnected))
			_, failed := l.Stats()
			require.Equal(t, uint64(1), failed)
		})
	}
}

func TestLinkOverPipe(t *testing.T) {
	client, server := net.Pipe()
	l := NewLink(client, FramingLengthPrefixed)
	frame := channels.New().WireBytes()
	go func() {
		l.Send(frame)
		l.Close()
	}()
	hdr := make([]byte, 4)
	_, err := io.ReadFull(server, hdr)
	require.NoError(t, err)
	got := make([]byte, channels.WireSize)
	_, err = io.ReadFull(server, got)
	require.NoError(t, err)
	values, err := channels.DecodeWire(got)
	require.NoError(t, err)
	require.Equal(t, channels.New().Values(), values)
	server.Close()
}

func TestLinkPartialFrame(t *testing.T) {
	w := &failingWriter{err: os.ErrDeadlineExceeded, n: 3}
	err := NewLink(w, FramingLengthPrefixed).Send([]byte{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrDisconnected)
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)

	err = NewLink(w, FramingRaw).Send([]byte{1, 2, 3, 4})
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	require.False(t, errors.Is(err, ErrDisconnected))
}

func TestLinkWriteTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	l := NewLink(client, FramingLengthPrefixed)
	l.WriteTimeout = 30 * time.Millisecond
	frame := channels.New().WireBytes()

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Send(frame)
	}()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, os.ErrDeadlineExceeded)
		require.False(t, errors.Is(err, ErrDisconnected))
	case <-time.After(time.Second):
		t.Fatal("send blocked on a stalled peer")
	}
	_, failed := l.Stats()
	require.Equal(t, uint64(1), failed)

	// the link recovers once the peer reads again
	go func() {
		buf := make([]byte, 4+channels.WireSize)
		io.ReadFull(server, buf)
	}()
	require.NoError(t, l.Send(frame))
	require.NoError(t, l.Close())
	require.ErrorIs(t, l.Send(frame), ErrDisconnected)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("http://localhost")
	require.Error(t, err)
}
