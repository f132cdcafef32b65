//go:build !linux

package serial

import "errors"

// Port is unavailable on this platform.
type Port struct{}

// Open always fails with ErrUnsupported.
func Open(cfg Config) (*Port, error) {
	return nil, ErrUnsupported
}

// Device returns an empty path.
func (p *Port) Device() string {
	return ""
}

// Write always fails with ErrUnsupported.
func (p *Port) Write(buf []byte) (int, error) {
	return 0, ErrUnsupported
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return nil
}

// IsDisconnect reports errors meaning the device is gone.
func IsDisconnect(err error) bool {
	return errors.Is(err, ErrClosed)
}
