package gpio

import (
	"errors"
	"sync"
)

// ErrNoSamples is returned by a FakeReader with nothing scripted.
var ErrNoSamples = errors.New("gpio: fake reader has no samples")

// FakeReader replays scripted switch values. Once the script runs out the
// last value is held, like a switch left where it was. It may be shared
// between the poll loop and a test goroutine.
type FakeReader struct {
	mu sync.Mutex

	// Samples are returned one per Read.
	Samples []bool

	// ReadError, if set, is returned by every Read.
	ReadError error

	// Closed is set by Close.
	Closed bool

	next  int
	reads int
}

// NewFakeReader creates a FakeReader that replays samples.
func NewFakeReader(samples []bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted value.
func (f *FakeReader) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, ErrNoSamples
	}

	v := f.Samples[f.next]
	if f.next < len(f.Samples)-1 {
		f.next++
	}
	return v, nil
}

// Hold replaces the script with a single value held from now on.
func (f *FakeReader) Hold(active bool) {
	f.mu.Lock()
	f.Samples = []bool{active}
	f.next = 0
	f.mu.Unlock()
}

// Fail makes every later Read return err. A nil err restores the script.
func (f *FakeReader) Fail(err error) {
	f.mu.Lock()
	f.ReadError = err
	f.mu.Unlock()
}

// Reads returns how many times Read was called, including failed reads.
func (f *FakeReader) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
