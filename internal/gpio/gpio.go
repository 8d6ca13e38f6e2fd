// Package gpio reads the optional index (home) switch with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// ErrUnsupported is returned where the GPIO character device does not exist.
var ErrUnsupported = errors.New("gpio: character device requires Linux")

// Reader reads the index switch.
type Reader interface {
	// Read returns true while the switch is active, after polarity correction.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults for a BeagleBone Black: P8_7 is gpiochip2 line 2.
const (
	DefaultChip = "gpiochip2"
	DefaultLine = 2
)

// NopReader is used when no index switch is wired. It never reports active.
type NopReader struct{}

// Read always returns false.
func (NopReader) Read() (bool, error) { return false, nil }

// Close does nothing.
func (NopReader) Close() error { return nil }
