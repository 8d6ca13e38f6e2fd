package eqep

import (
	"bytes"
	"fmt"
	"os/exec"
)

// DefaultConfigPinPath is the pin multiplexer utility shipped with BeagleBone images.
const DefaultConfigPinPath = "config-pin"

// PinModeQEP is the config-pin mode that routes a pin to the eQEP module.
const PinModeQEP = "qep"

// PinConfigurator switches a header pin into encoder-input mode.
type PinConfigurator interface {
	ConfigurePin(pin string) error
}

// ConfigPin runs the config-pin utility once per pin.
type ConfigPin struct {
	// Path is the executable; DefaultConfigPinPath when empty.
	Path string
}

// ConfigurePin runs "<Path> <pin> qep". A non-zero exit is reported with the
// command's combined output.
func (c ConfigPin) ConfigurePin(pin string) error {
	path := c.Path
	if path == "" {
		path = DefaultConfigPinPath
	}
	cmd := exec.Command(path, pin, PinModeQEP)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s %s %s: %w: %s", ErrPinConfiguration, path, pin, PinModeQEP, err, bytes.TrimSpace(out))
	}
	return nil
}

// FakePinConfigurator records configured pins for test assertions.
type FakePinConfigurator struct {
	// Pins contains every pin passed to ConfigurePin, in order.
	Pins []string

	// Err, if set, is returned by every ConfigurePin call.
	Err error
}

// ConfigurePin records the pin and returns Err.
func (f *FakePinConfigurator) ConfigurePin(pin string) error {
	f.Pins = append(f.Pins, pin)
	return f.Err
}
