package chardev

import (
	"fmt"
	"sync"
)

// Registry construction limits. The table is deliberately small: the core
// models a handful of named endpoints, not a dynamic device pool.
const (
	minDeviceCount = 1
	maxDeviceCount = 8
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config describes the device table built by NewRegistry.
type Config struct {
	// Count is the number of device slots (1..8).
	Count int

	// Capacity is the buffer size in bytes for every device.
	Capacity int

	// NamePrefix forms device names: prefix + index (e.g. "chardev0").
	NamePrefix string
}

// Registry is the fixed table mapping logical indices to devices.
//
// The table is dense and immutable after construction: devices are never
// added or removed during the registry's lifetime. Teardown releases every
// device buffer exactly once and empties the table; afterwards no resolve
// succeeds.
//
// All public methods are thread-safe.
type Registry struct {
	mu       sync.RWMutex
	devices  []*Device
	byName   map[string]*Device
	released int // buffers handed back by Teardown
	logger   Logger
}

// NewRegistry builds the device table from cfg, allocating every buffer
// eagerly. Buffers live until Teardown; Open and Close never allocate.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Count < minDeviceCount || cfg.Count > maxDeviceCount {
		return nil, fmt.Errorf("%w: device count %d outside [%d, %d]",
			ErrInvalidArgument, cfg.Count, minDeviceCount, maxDeviceCount)
	}
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidArgument, cfg.Capacity)
	}
	prefix := cfg.NamePrefix
	if prefix == "" {
		prefix = "chardev"
	}

	r := &Registry{
		devices: make([]*Device, cfg.Count),
		byName:  make(map[string]*Device, cfg.Count),
		logger:  noopLogger{},
	}
	for i := range r.devices {
		d := newDevice(i, fmt.Sprintf("%s%d", prefix, i), cfg.Capacity)
		r.devices[i] = d
		r.byName[d.name] = d
	}
	return r, nil
}

// SetLogger sets the logger for registry lifecycle events. Operation errors
// are never logged here; they are returned to the caller.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve returns the device at the given logical index.
// Returns ErrNotFound if the index is outside the configured range or the
// registry has been torn down. No side effects.
func (r *Registry) Resolve(index int) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.devices) {
		return nil, ErrNotFound
	}
	return r.devices[index], nil
}

// Lookup returns the device matching the caller-supplied name, the identity
// token carried by an open request. Returns ErrNotFound if no device has
// that name or the registry has been torn down.
func (r *Registry) Lookup(name string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// Count returns the number of device slots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Names returns the device names in index order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.devices))
	for i, d := range r.devices {
		names[i] = d.name
	}
	return names
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	Devices      int
	Capacity     int
	OpenSessions int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Devices: len(r.devices)}
	for _, d := range r.devices {
		stats.Capacity = d.capacity
		if d.IsOpen() {
			stats.OpenSessions++
		}
	}
	return stats
}

// Teardown releases every device buffer exactly once, force-closing any
// open session, and empties the table. After Teardown, Resolve and Lookup
// fail with ErrNotFound and operations on surviving session handles fail
// with ErrNotOpen.
//
// Teardown is idempotent: a second call is a no-op, and a device whose
// buffer was already released is never released twice.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	freed := 0
	for _, d := range r.devices {
		d.mu.Lock()
		if d.release() {
			freed++
		}
		d.mu.Unlock()
	}
	r.released += freed

	if len(r.devices) > 0 {
		r.logger.Info("device registry torn down",
			"devices", len(r.devices), "buffers_released", freed)
	}
	r.devices = nil
	r.byName = nil
}
