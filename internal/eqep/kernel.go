package eqep

import (
	"fmt"
	"strconv"
	"strings"
)

// Oldest kernel whose eQEP driver exposes the sysfs attributes used here.
const (
	MinKernelMajor = 4
	MinKernelMinor = 4
)

// ParseKernelRelease extracts major and minor from a release string such as
// "4.14.108-ti-r113".
func ParseKernelRelease(release string) (major, minor int, err error) {
	version, _, _ := strings.Cut(release, "-")
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("eqep: malformed kernel release %q", release)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("eqep: malformed kernel release %q: %w", release, err)
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("eqep: malformed kernel release %q: %w", release, err)
	}
	return major, minor, nil
}

// checkRelease compares release against the minimum supported kernel.
func checkRelease(release string) error {
	major, minor, err := ParseKernelRelease(release)
	if err != nil {
		return err
	}
	if major < MinKernelMajor || (major == MinKernelMajor && minor < MinKernelMinor) {
		return fmt.Errorf("%w: need %d.%d or later, running %s", ErrKernelTooOld, MinKernelMajor, MinKernelMinor, release)
	}
	return nil
}
