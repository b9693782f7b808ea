package transport

import (
	"errors"
	"io"
	"testing"
	"time"

	"go.bug.st/serial"
)

// fakeInner stands in for a go.bug.st serial.Port so the adapter's error
// mapping can be tested without hardware.
type fakeInner struct {
	serial.Port

	readN    int
	readErr  error
	closed   int
	timeouts []time.Duration
}

func (f *fakeInner) Read(p []byte) (int, error)  { return f.readN, f.readErr }
func (f *fakeInner) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeInner) Close() error                { f.closed++; return nil }
func (f *fakeInner) SetReadTimeout(d time.Duration) error {
	f.timeouts = append(f.timeouts, d)
	return nil
}

func TestSerialPortTimeoutMapping(t *testing.T) {
	inner := &fakeInner{readN: 0, readErr: nil}
	p := &serialPort{inner: inner}

	if err := p.SetReadTimeout(time.Second); err != nil {
		t.Fatalf("SetReadTimeout() error: %v", err)
	}

	// A deadline expiry comes back from the library as (0, nil) and must
	// surface as ErrTimeout.
	buf := make([]byte, 16)
	if _, err := p.Read(buf); !errors.Is(err, ErrTimeout) {
		t.Errorf("Read() error = %v, want ErrTimeout", err)
	}

	// Without a deadline a zero-byte read is passed through untouched.
	p2 := &serialPort{inner: inner}
	if n, err := p2.Read(buf); n != 0 || err != nil {
		t.Errorf("Read() = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSerialPortCloseIdempotent(t *testing.T) {
	inner := &fakeInner{}
	p := &serialPort{inner: inner}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if inner.closed != 1 {
		t.Errorf("inner closed %d times, want 1", inner.closed)
	}

	if _, err := p.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after close error = %v, want ErrClosed", err)
	}
	if _, err := p.Write([]byte{0x00}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() after close error = %v, want ErrClosed", err)
	}
}

// blockingInner blocks every Read until Close releases it, like a real
// port with no pending data.
type blockingInner struct {
	serial.Port

	release chan struct{}
}

func (b *blockingInner) Read(p []byte) (int, error) {
	<-b.release
	return 0, io.ErrClosedPipe
}

func (b *blockingInner) Write(p []byte) (int, error) { return len(p), nil }

func (b *blockingInner) Close() error {
	close(b.release)
	return nil
}

func TestSerialPortCloseDuringRead(t *testing.T) {
	inner := &blockingInner{release: make(chan struct{})}
	p := &serialPort{inner: inner}

	done := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 16))
		done <- err
	}()

	// Let the reader park inside the inner Read before closing.
	time.Sleep(10 * time.Millisecond)
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("Read() during close returned nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("Read() did not return after Close()")
	}

	if _, err := p.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after close error = %v, want ErrClosed", err)
	}
	if _, err := p.Write([]byte{0x00}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() after close error = %v, want ErrClosed", err)
	}
}

func TestOpenBadPath(t *testing.T) {
	if _, err := Open("/dev/nonexistent-gsl-port"); !errors.Is(err, ErrConnection) {
		t.Errorf("Open() error = %v, want ErrConnection", err)
	}
}
