//go:build !linux

package gpio

import "fmt"

// RealReader is a placeholder off Linux; NewRealReader never returns one.
type RealReader struct{}

// NewRealReader fails with ErrUnsupported.
func NewRealReader(chipName string, offset int, activeLow bool) (*RealReader, error) {
	return nil, fmt.Errorf("%w: %s line %d", ErrUnsupported, chipName, offset)
}

func (*RealReader) Read() (bool, error) { return false, ErrUnsupported }

func (*RealReader) Close() error { return nil }
