// Package serial is the transport adapter between the controller and the
// pixel firmware: raw byte read/write over a serial link.
package serial

import (
	"io"
	"time"
)

// Port represents a serial port. The abstraction allows for different
// implementations:
// - Native serial (using github.com/tarm/serial)
// - Loopback/mock ports for testing
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0").
	Device string

	// Baud rate. The pixel firmware runs at 1_000_000; USB CDC devices
	// ignore this.
	Baud int

	// ReadTimeout bounds a single Read. Zero blocks indefinitely.
	ReadTimeout time.Duration

	// ResetWait is how long to wait after opening for the board to come
	// back from its open-triggered reset.
	ResetWait time.Duration
}

// DefaultConfig returns the configuration matching the pixel firmware.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        1_000_000,
		ReadTimeout: 100 * time.Millisecond,
		ResetWait:   2 * time.Second,
	}
}
