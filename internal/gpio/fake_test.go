package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderReplaysThenHolds(t *testing.T) {
	f := NewFakeReader([]bool{false, true, false})

	for i, want := range []bool{false, true, false, false, false} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: got %v, want %v", i, got, want)
		}
	}
	if f.Reads() != 5 {
		t.Errorf("Reads: got %d, want 5", f.Reads())
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	_, err := NewFakeReader(nil).Read()
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("got %v, want ErrNoSamples", err)
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]bool{true})
	f.ReadError = errors.New("line busy")

	if _, err := f.Read(); err == nil || err.Error() != "line busy" {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Reads() != 1 {
		t.Errorf("failed reads should be counted, got %d", f.Reads())
	}
}

func TestFakeReaderHold(t *testing.T) {
	f := NewFakeReader([]bool{false, false, false})
	f.Read()

	f.Hold(true)
	for i := 0; i < 3; i++ {
		if v, _ := f.Read(); !v {
			t.Fatalf("read %d after Hold: got false", i)
		}
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]bool{true})
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestNopReader(t *testing.T) {
	var r Reader = NopReader{}
	v, err := r.Read()
	if err != nil || v {
		t.Errorf("expected (false, nil), got (%v, %v)", v, err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestFakeReaderFailAndRecover(t *testing.T) {
	f := NewFakeReader([]bool{true})
	fault := errors.New("line busy")

	f.Fail(fault)
	if _, err := f.Read(); !errors.Is(err, fault) {
		t.Errorf("expected fault, got %v", err)
	}
	f.Fail(nil)
	if v, err := f.Read(); err != nil || !v {
		t.Errorf("expected (true, nil) after recovery, got (%v, %v)", v, err)
	}
	if f.Reads() != 2 {
		t.Errorf("reads: got %d, want 2", f.Reads())
	}
}
