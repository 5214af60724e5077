// Package chardev implements the character-device core: a fixed table of
// bounded-buffer endpoints, each with exclusive open semantics and a
// position-addressed read/write/seek interface.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────┐
//	│                         chardev core                           │
//	│                                                                │
//	│  ┌──────────────┐      ┌──────────────┐      ┌──────────────┐  │
//	│  │   Registry   │      │    Device    │      │   Session    │  │
//	│  │(registry.go) │─────▶│ (device.go)  │─────▶│ (session.go) │  │
//	│  │              │      │              │      │              │  │
//	│  │ • Fixed table│      │ • Buffer     │      │ • Cursor     │  │
//	│  │ • Resolve    │      │ • Open flag  │      │ • Read/Write │  │
//	│  │ • Teardown   │      │ • Mutex      │      │ • Seek       │  │
//	│  └──────────────┘      └──────────────┘      └──────────────┘  │
//	└────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Registry: the fixed, dense table mapping logical indices to devices.
//     Built once at startup, torn down once at shutdown.
//   - Device: one addressable endpoint owning a fixed-capacity buffer, an
//     open flag, and the serialization lock.
//   - Session: the handle returned by a successful Open. The session owns
//     the cursor, so a stale cursor can never leak between opens.
//
// # Usage
//
//	registry, err := chardev.NewRegistry(chardev.Config{
//	    Count:      4,
//	    Capacity:   128,
//	    NamePrefix: "chardev",
//	})
//	if err != nil {
//	    return err
//	}
//	defer registry.Teardown()
//
//	dev, err := registry.Lookup("chardev0")
//	if err != nil {
//	    return err
//	}
//
//	sess, err := dev.Open()
//	if err != nil {
//	    return err // chardev.ErrBusy if already open
//	}
//	defer sess.Close()
//
//	n, err := sess.Write([]byte("hello"))
//	sess.Seek(0, io.SeekStart)
//	n, err = sess.Read(buf)
//
// # Semantics
//
// Reads and writes are clipped to the buffer bounds at the current cursor.
// A short read (including zero bytes, reported as io.EOF) is a success; a
// write whose effective length would be zero fails with ErrTooLarge. This
// asymmetry is deliberate and mirrors the classic character-device contract.
//
// Buffers are allocated once when the registry is constructed and released
// exactly once at Teardown, regardless of open state. Open and Close never
// allocate or free.
//
// # Thread Safety
//
// Every operation on a device (Open, Close, Read, Write, Seek) runs for
// its entire body under that device's mutex, including error paths. Devices
// are fully independent: operations on one device never block another.
//
// The core returns every error synchronously to the caller and performs no
// logging and no retries of its own. The Registry accepts an optional
// Logger for lifecycle events only.
package chardev
