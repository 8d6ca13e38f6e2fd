//go:build !linux

package eqep

// CheckKernel always fails off Linux.
func CheckKernel() error {
	return ErrUnsupportedPlatform
}
