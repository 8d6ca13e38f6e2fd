package eqep

import "errors"

// Domain errors for the eqep package. Attribute I/O failures are reported
// with the sysfs package's errors and propagate unchanged.
var (
	// ErrInvalidChannel is returned when a channel selector is not one of
	// EQEP0, EQEP1, EQEP2 or EQEP2b.
	ErrInvalidChannel = errors.New("eqep: invalid channel")

	// ErrInvalidArgument is returned before any I/O when a caller supplies an
	// out-of-range value.
	ErrInvalidArgument = errors.New("eqep: invalid argument")

	// ErrZeroPeriod is returned when the driver reports a period of zero, so
	// no frequency can be derived.
	ErrZeroPeriod = errors.New("eqep: period is zero")

	// ErrPinConfiguration is returned by a PinConfigurator when the pin could
	// not be switched to encoder mode. Open treats it as a warning.
	ErrPinConfiguration = errors.New("eqep: pin configuration failed")

	// ErrKernelTooOld is returned by CheckKernel when the running kernel
	// predates the eQEP sysfs driver.
	ErrKernelTooOld = errors.New("eqep: kernel too old")

	// ErrUnsupportedPlatform is returned by CheckKernel off Linux.
	ErrUnsupportedPlatform = errors.New("eqep: not supported on this platform (requires Linux)")
)
