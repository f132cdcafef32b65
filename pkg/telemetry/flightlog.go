// Package telemetry records and publishes what the control loop does.
package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// FlightLogName returns the file name of a flight log. The initial
// throttle is part of the name so runs can be told apart.
func FlightLogName(name string, initialThrottle int) string {
	return fmt.Sprintf("%s_%d_.txt", name, initialThrottle)
}

// FlightLog is a buffered per-run log file of iteration records.
type FlightLog struct {
	file *os.File
	w    *bufio.Writer
}

// CreateFlightLog creates the log file in dir.
func CreateFlightLog(dir, name string, initialThrottle int) (*FlightLog, error) {
	fn := filepath.Join(dir, FlightLogName(name, initialThrottle))
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create flight log error: %w", err)
	}
	return &FlightLog{file: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file path.
func (l *FlightLog) Path() string {
	return l.file.Name()
}

// Write implements io.Writer.
func (l *FlightLog) Write(p []byte) (int, error) {
	return l.w.Write(p)
}

// Flush writes buffered records to the file.
func (l *FlightLog) Flush() error {
	return l.w.Flush()
}

// Close flushes and closes the file.
func (l *FlightLog) Close() error {
	err := l.w.Flush()
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}
