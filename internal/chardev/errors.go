package chardev

import "errors"

// Domain errors for the chardev package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, chardev.ErrBusy) {
//	    // another session already holds the device
//	}
var (
	// ErrNotFound is returned when a device index or name does not resolve,
	// or when the registry has been torn down.
	ErrNotFound = errors.New("chardev: device not found")

	// ErrBusy is returned by Open when the device already has an open session.
	ErrBusy = errors.New("chardev: device busy")

	// ErrNotOpen is returned when an operation is attempted on a closed
	// session, or after the registry released the device's buffer.
	ErrNotOpen = errors.New("chardev: device not open")

	// ErrTooLarge is returned by a write whose effective length at the
	// current cursor would be zero.
	ErrTooLarge = errors.New("chardev: write exceeds device capacity")

	// ErrInvalidArgument is returned for an unrecognised seek whence, a seek
	// target outside the buffer, or a negative count.
	ErrInvalidArgument = errors.New("chardev: invalid argument")

	// ErrFault is returned when the caller-side copy of bytes into or out of
	// the buffer fails mid-transfer. Bytes copied before the fault are not
	// rolled back.
	ErrFault = errors.New("chardev: caller buffer fault")
)
