package chardev

import (
	"fmt"
	"io"
)

// Session is the handle returned by a successful Device.Open.
//
// The session owns the cursor: each open starts at offset 0 and no cursor
// state survives a close. All session operations run under the device's
// mutex for their entire body, including error paths, so concurrent callers
// on the same device are serialized by the lock's own ordering.
//
// A session is single-owner state. Sharing one session between goroutines
// is safe (the device lock serializes them) but the interleaving of their
// cursor movements is then up to the callers.
type Session struct {
	id     string
	dev    *Device
	cursor int
	closed bool
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Device returns the device this session is open on.
func (s *Session) Device() *Device {
	return s.dev
}

// Cursor returns the current byte offset within the device buffer.
func (s *Session) Cursor() int {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.cursor
}

// usable verifies the session may perform an operation. Caller holds d.mu.
func (s *Session) usable() error {
	if s.closed || s.dev.released {
		return ErrNotOpen
	}
	return nil
}

// Read copies up to len(p) bytes from the buffer at the current cursor into
// p and advances the cursor by the number of bytes copied.
//
// The read is clipped to the buffer bounds: at most capacity−cursor bytes
// are returned. A short read is a success, not an error. At the end of the
// buffer Read returns 0, io.EOF.
func (s *Session) Read(p []byte) (int, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if err := s.usable(); err != nil {
		return 0, err
	}

	n := s.dev.capacity - s.cursor
	if n == 0 {
		return 0, io.EOF
	}
	if n > len(p) {
		n = len(p)
	}

	copy(p[:n], s.dev.buf[s.cursor:s.cursor+n])
	s.cursor += n
	return n, nil
}

// ReadTo copies up to count bytes from the buffer at the current cursor
// into w.
//
// If the destination fails mid-copy the error wraps ErrFault, the cursor is
// not advanced, and bytes already delivered to w are not recalled. On
// success the cursor advances by the number of bytes written. Returns
// 0, io.EOF at the end of the buffer.
func (s *Session) ReadTo(w io.Writer, count int) (int, error) {
	if count < 0 {
		return 0, ErrInvalidArgument
	}

	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if err := s.usable(); err != nil {
		return 0, err
	}

	n := s.dev.capacity - s.cursor
	if n == 0 {
		return 0, io.EOF
	}
	if n > count {
		n = count
	}

	written, err := w.Write(s.dev.buf[s.cursor : s.cursor+n])
	if err == nil && written < n {
		err = io.ErrShortWrite
	}
	if err != nil {
		return written, fmt.Errorf("%w: %w", ErrFault, err)
	}

	s.cursor += written
	return written, nil
}

// Write copies up to len(p) bytes from p into the buffer at the current
// cursor and advances the cursor by the number of bytes copied.
//
// The write is clipped to the buffer bounds. If the effective length at the
// current cursor would be zero, including a zero-length p, Write fails
// with ErrTooLarge rather than succeeding with zero bytes. This asymmetry
// with Read is intentional.
func (s *Session) Write(p []byte) (int, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if err := s.usable(); err != nil {
		return 0, err
	}

	n := s.dev.capacity - s.cursor
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0, ErrTooLarge
	}

	copy(s.dev.buf[s.cursor:s.cursor+n], p[:n])
	s.cursor += n
	return n, nil
}

// WriteFrom copies exactly min(count, capacity−cursor) bytes from r into
// the buffer at the current cursor.
//
// If the source fails before the effective length is read, the error wraps
// ErrFault and the cursor is not advanced; bytes already copied into the
// buffer before the fault are not rolled back. The copy is not atomic
// against a mid-copy fault.
//
// Fails with ErrTooLarge if the effective length would be zero.
func (s *Session) WriteFrom(r io.Reader, count int) (int, error) {
	if count < 0 {
		return 0, ErrInvalidArgument
	}

	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if err := s.usable(); err != nil {
		return 0, err
	}

	n := s.dev.capacity - s.cursor
	if n > count {
		n = count
	}
	if n == 0 {
		return 0, ErrTooLarge
	}

	read, err := io.ReadFull(r, s.dev.buf[s.cursor:s.cursor+n])
	if err != nil {
		return read, fmt.Errorf("%w: %w", ErrFault, err)
	}

	s.cursor += read
	return read, nil
}

// Seek sets the cursor to a position derived from offset and whence, which
// is one of io.SeekStart, io.SeekCurrent, or io.SeekEnd (relative to the
// buffer capacity). It returns the new cursor position.
//
// Fails with ErrInvalidArgument if whence is unrecognised or the computed
// target falls outside [0, capacity]. The cursor is unchanged on failure.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if err := s.usable(); err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(s.cursor) + offset
	case io.SeekEnd:
		target = int64(s.dev.capacity) + offset
	default:
		return 0, ErrInvalidArgument
	}

	if target < 0 || target > int64(s.dev.capacity) {
		return 0, ErrInvalidArgument
	}

	s.cursor = int(target)
	return target, nil
}

// Close releases the session and returns the device to the Closed state,
// allowing a subsequent Open to succeed. The buffer is left allocated;
// only Registry.Teardown releases it.
//
// A second Close, like any other operation on a closed session, fails with
// ErrNotOpen.
func (s *Session) Close() error {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if s.closed {
		return ErrNotOpen
	}

	s.closed = true
	s.cursor = 0
	s.dev.open = false
	return nil
}
