package chardev

import (
	"sync"

	"github.com/google/uuid"
)

// Device is one addressable bounded-buffer endpoint.
//
// A device owns its buffer and the mutex that serializes all access to it.
// At most one session may be open at a time; the cursor lives on the
// session, never on the device.
//
// Devices are created by NewRegistry and remain valid until Teardown
// releases their buffers.
type Device struct {
	index int
	name  string

	mu       sync.Mutex
	buf      []byte // nil once released at teardown
	capacity int
	open     bool
	released bool
}

func newDevice(index int, name string, capacity int) *Device {
	return &Device{
		index:    index,
		name:     name,
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
}

// Index returns the device's logical index within the registry.
func (d *Device) Index() int {
	return d.index
}

// Name returns the device's stable name (e.g. "chardev0").
func (d *Device) Name() string {
	return d.name
}

// Capacity returns the fixed buffer capacity in bytes.
func (d *Device) Capacity() int {
	return d.capacity
}

// IsOpen reports whether the device currently has an open session.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Open transitions the device from Closed to Open and returns the session
// handle for subsequent reads, writes, and seeks.
//
// The open check and the open set happen within the same critical section,
// so two racing opens can never both succeed.
//
// Returns ErrBusy if a session is already open, or ErrNotFound if the
// registry has been torn down and the buffer released.
func (d *Device) Open() (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil, ErrNotFound
	}
	if d.open {
		return nil, ErrBusy
	}

	d.open = true
	return &Session{
		id:  "ses-" + uuid.NewString()[:8],
		dev: d,
	}, nil
}

// release hands the buffer back exactly once. Called by Registry.Teardown
// with d.mu held. Returns true if this call performed the release.
func (d *Device) release() bool {
	if d.released {
		return false
	}
	d.released = true
	d.open = false
	d.buf = nil
	return true
}
