//go:build linux

package serial

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOpenValidation(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	_, err = Open(Config{Device: "/dev/null", BaudRate: 12345})
	require.Error(t, err)
	_, err = Open(Config{Device: "/nonexistent/tty"})
	require.Error(t, err)
}

func TestIsDisconnect(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		gone bool
	}{
		{"closed", ErrClosed, true},
		{"io", fmt.Errorf("serial: write: %w", unix.EIO), true},
		{"no device", fmt.Errorf("serial: write: %w", unix.ENODEV), true},
		{"busy", ErrBusy, false},
		{"interrupted", fmt.Errorf("serial: write: %w", unix.EINTR), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.gone, IsDisconnect(tc.err))
		})
	}
}
