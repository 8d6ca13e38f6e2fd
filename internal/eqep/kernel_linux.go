//go:build linux

package eqep

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CheckKernel reports whether the running kernel can drive the eQEP
// attributes. Call it once at startup.
func CheckKernel() error {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fmt.Errorf("eqep: uname: %w", err)
	}
	return checkRelease(unix.ByteSliceToString(uts.Release[:]))
}
