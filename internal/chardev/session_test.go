package chardev

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// testDevice builds a standalone device for session tests.
func testDevice(t *testing.T, capacity int) *Device {
	t.Helper()
	return newDevice(0, "chardev0", capacity)
}

// openSession opens a session, failing the test on error.
func openSession(t *testing.T, d *Device) *Session {
	t.Helper()
	s, err := d.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

// faultingReader fails after delivering a prefix, modelling an inaccessible
// caller buffer mid-copy.
type faultingReader struct {
	prefix []byte
	err    error
}

func (r *faultingReader) Read(p []byte) (int, error) {
	if len(r.prefix) == 0 {
		return 0, r.err
	}
	n := copy(p, r.prefix)
	r.prefix = r.prefix[n:]
	return n, nil
}

// faultingWriter fails on the first write.
type faultingWriter struct {
	err error
}

func (w *faultingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func TestSession_ReadBoundsClamp(t *testing.T) {
	const capacity = 16

	tests := []struct {
		name   string
		cursor int64
		count  int
		want   int
	}{
		{"full buffer from start", 0, 16, 16},
		{"over-long request clipped", 0, 100, 16},
		{"mid-buffer clipped", 12, 8, 4},
		{"exact tail", 15, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openSession(t, testDevice(t, capacity))
			if _, err := s.Seek(tt.cursor, io.SeekStart); err != nil {
				t.Fatalf("Seek() error = %v", err)
			}

			n, err := s.Read(make([]byte, tt.count))
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if n != tt.want {
				t.Errorf("Read() n = %d, want %d", n, tt.want)
			}
			if got := s.Cursor(); got != int(tt.cursor)+tt.want {
				t.Errorf("Cursor() = %d, want %d", got, int(tt.cursor)+tt.want)
			}
		})
	}

	t.Run("cursor at capacity returns EOF", func(t *testing.T) {
		s := openSession(t, testDevice(t, capacity))
		if _, err := s.Seek(0, io.SeekEnd); err != nil {
			t.Fatalf("Seek() error = %v", err)
		}
		n, err := s.Read(make([]byte, 4))
		if n != 0 || !errors.Is(err, io.EOF) {
			t.Errorf("Read() = (%d, %v), want (0, io.EOF)", n, err)
		}
	})
}

func TestSession_WriteReadRoundTrip(t *testing.T) {
	s := openSession(t, testDevice(t, 128))

	payload := []byte{1, 2, 3, 4}
	n, err := s.Write(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("Write() = (%d, %v), want (%d, nil)", n, err, len(payload))
	}

	if _, err := s.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	got := make([]byte, 4)
	n, err = s.Read(got)
	if err != nil || n != 4 {
		t.Fatalf("Read() = (%d, %v), want (4, nil)", n, err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Read() = %v, want %v", got, payload)
	}
}

func TestSession_CursorMonotonicity(t *testing.T) {
	// Four 4-byte writes fill a 16-byte device; the fifth must fail.
	s := openSession(t, testDevice(t, 16))

	wantCursors := []int{4, 8, 12, 16}
	for i, want := range wantCursors {
		n, err := s.Write([]byte{0xA, 0xB, 0xC, 0xD})
		if err != nil || n != 4 {
			t.Fatalf("Write() #%d = (%d, %v), want (4, nil)", i+1, n, err)
		}
		if got := s.Cursor(); got != want {
			t.Errorf("Cursor() after write #%d = %d, want %d", i+1, got, want)
		}
	}

	n, err := s.Write([]byte{0xA, 0xB, 0xC, 0xD})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Write() #5 error = %v, want ErrTooLarge", err)
	}
	if n != 0 {
		t.Errorf("Write() #5 n = %d, want 0", n)
	}
	if got := s.Cursor(); got != 16 {
		t.Errorf("Cursor() after failed write = %d, want 16", got)
	}
}

func TestSession_WriteClipped(t *testing.T) {
	s := openSession(t, testDevice(t, 16))
	if _, err := s.Seek(12, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	// 8 bytes requested, 4 fit: clipped write succeeds short.
	n, err := s.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Write() n = %d, want 4", n)
	}
}

func TestSession_WriteZeroLength(t *testing.T) {
	s := openSession(t, testDevice(t, 16))

	// A zero-effective-length write is an error, never a zero-byte success.
	if _, err := s.Write(nil); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Write(nil) error = %v, want ErrTooLarge", err)
	}
}

func TestSession_Seek(t *testing.T) {
	const capacity = 128

	tests := []struct {
		name    string
		offset  int64
		whence  int
		want    int64
		wantErr error
	}{
		{"start", 0, io.SeekStart, 0, nil},
		{"end yields capacity", 0, io.SeekEnd, 128, nil},
		{"absolute", 64, io.SeekStart, 64, nil},
		{"relative", 10, io.SeekCurrent, 10, nil},
		{"backwards from end", -28, io.SeekEnd, 100, nil},
		{"past capacity", 200, io.SeekStart, 0, ErrInvalidArgument},
		{"negative target", -1, io.SeekStart, 0, ErrInvalidArgument},
		{"negative relative past zero", -1, io.SeekCurrent, 0, ErrInvalidArgument},
		{"unknown whence", 0, 42, 0, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openSession(t, testDevice(t, capacity))
			got, err := s.Seek(tt.offset, tt.whence)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Seek() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Seek() = %d, want %d", got, tt.want)
			}
			if err != nil && s.Cursor() != 0 {
				t.Errorf("Cursor() after failed seek = %d, want 0", s.Cursor())
			}
		})
	}

	t.Run("seek round trip", func(t *testing.T) {
		s := openSession(t, testDevice(t, capacity))
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			t.Fatalf("Seek(start) error = %v", err)
		}
		pos, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			t.Fatalf("Seek(end) error = %v", err)
		}
		if pos != capacity {
			t.Errorf("Seek(0, SeekEnd) = %d, want %d", pos, capacity)
		}
	})
}

func TestSession_WriteFrom(t *testing.T) {
	t.Run("copies from reader", func(t *testing.T) {
		s := openSession(t, testDevice(t, 16))
		n, err := s.WriteFrom(strings.NewReader("hello world"), 5)
		if err != nil || n != 5 {
			t.Fatalf("WriteFrom() = (%d, %v), want (5, nil)", n, err)
		}

		s.Seek(0, io.SeekStart)
		got := make([]byte, 5)
		s.Read(got)
		if string(got) != "hello" {
			t.Errorf("buffer = %q, want %q", got, "hello")
		}
	})

	t.Run("fault mid-copy leaves cursor and keeps prefix", func(t *testing.T) {
		s := openSession(t, testDevice(t, 16))
		src := &faultingReader{prefix: []byte{9, 9}, err: errors.New("bad page")}

		n, err := s.WriteFrom(src, 8)
		if !errors.Is(err, ErrFault) {
			t.Fatalf("WriteFrom() error = %v, want ErrFault", err)
		}
		if n != 2 {
			t.Errorf("WriteFrom() n = %d, want 2", n)
		}
		if got := s.Cursor(); got != 0 {
			t.Errorf("Cursor() after fault = %d, want 0", got)
		}

		// Bytes copied before the fault are not rolled back.
		got := make([]byte, 2)
		s.Read(got)
		if !bytes.Equal(got, []byte{9, 9}) {
			t.Errorf("buffer prefix = %v, want [9 9]", got)
		}
	})

	t.Run("negative count", func(t *testing.T) {
		s := openSession(t, testDevice(t, 16))
		if _, err := s.WriteFrom(strings.NewReader("x"), -1); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("WriteFrom() error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestSession_ReadTo(t *testing.T) {
	t.Run("copies to writer", func(t *testing.T) {
		s := openSession(t, testDevice(t, 16))
		s.Write([]byte("abcd"))
		s.Seek(0, io.SeekStart)

		var sink bytes.Buffer
		n, err := s.ReadTo(&sink, 4)
		if err != nil || n != 4 {
			t.Fatalf("ReadTo() = (%d, %v), want (4, nil)", n, err)
		}
		if sink.String() != "abcd" {
			t.Errorf("sink = %q, want %q", sink.String(), "abcd")
		}
		if got := s.Cursor(); got != 4 {
			t.Errorf("Cursor() = %d, want 4", got)
		}
	})

	t.Run("destination fault", func(t *testing.T) {
		s := openSession(t, testDevice(t, 16))
		n, err := s.ReadTo(&faultingWriter{err: errors.New("gone")}, 4)
		if !errors.Is(err, ErrFault) {
			t.Fatalf("ReadTo() error = %v, want ErrFault", err)
		}
		if n != 0 {
			t.Errorf("ReadTo() n = %d, want 0", n)
		}
		if got := s.Cursor(); got != 0 {
			t.Errorf("Cursor() after fault = %d, want 0", got)
		}
	})
}

func TestDevice_Exclusivity(t *testing.T) {
	d := testDevice(t, 16)

	first := openSession(t, d)

	if _, err := d.Open(); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Open() error = %v, want ErrBusy", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := d.Open()
	if err != nil {
		t.Fatalf("Open() after Close() error = %v", err)
	}

	// A fresh session starts at cursor 0; no state leaks from the first.
	if got := second.Cursor(); got != 0 {
		t.Errorf("Cursor() of fresh session = %d, want 0", got)
	}
	if second.ID() == first.ID() {
		t.Errorf("session IDs collide: %q", second.ID())
	}
}

func TestSession_ClosedHandle(t *testing.T) {
	d := testDevice(t, 16)
	s := openSession(t, d)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := s.Read(make([]byte, 4)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Read() on closed session error = %v, want ErrNotOpen", err)
	}
	if _, err := s.Write([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Write() on closed session error = %v, want ErrNotOpen", err)
	}
	if _, err := s.Seek(0, io.SeekStart); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Seek() on closed session error = %v, want ErrNotOpen", err)
	}
	if err := s.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("double Close() error = %v, want ErrNotOpen", err)
	}

	// A stale handle must not affect the next session.
	fresh := openSession(t, d)
	if _, err := fresh.Write([]byte("ok")); err != nil {
		t.Errorf("Write() on fresh session error = %v", err)
	}
}

func TestSession_LockReleasedOnFault(t *testing.T) {
	d := testDevice(t, 16)
	s := openSession(t, d)

	src := &faultingReader{prefix: []byte{1}, err: errors.New("bad page")}
	if _, err := s.WriteFrom(src, 8); !errors.Is(err, ErrFault) {
		t.Fatalf("WriteFrom() error = %v, want ErrFault", err)
	}

	// The failing call must have released the device lock: an operation
	// from another goroutine completes rather than deadlocking.
	done := make(chan error, 1)
	go func() {
		_, err := s.Seek(0, io.SeekStart)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Seek() after fault error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("device lock still held after failed write")
	}
}

func TestSession_ConcurrentWriters(t *testing.T) {
	d := testDevice(t, 128)
	s := openSession(t, d)

	// Writers race on one session; the device lock serializes them, so the
	// cursor must land exactly on the sum of all written bytes.
	const writers = 8
	const perWriter = 4

	done := make(chan struct{})
	for i := 0; i < writers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < perWriter; j++ {
				if _, err := s.Write([]byte{1, 2, 3, 4}); err != nil {
					t.Errorf("Write() error = %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < writers; i++ {
		<-done
	}

	if got := s.Cursor(); got != writers*perWriter*4 {
		t.Errorf("Cursor() = %d, want %d", got, writers*perWriter*4)
	}
}
