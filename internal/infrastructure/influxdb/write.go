package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteOpMetric records one device operation.
//
// The write is non-blocking; data is batched and sent asynchronously.
// A failed operation is recorded with bytes=0 and ok=false so error rates
// are queryable alongside throughput.
//
// Example:
//
//	client.WriteOpMetric("chardev0", "write", 4, true)
//	client.WriteOpMetric("chardev0", "write", 0, false)
func (c *Client) WriteOpMetric(deviceName string, op string, bytes int, ok bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_ops",
		map[string]string{
			"device": deviceName,
			"op":     op,
		},
		map[string]interface{}{
			"bytes": bytes,
			"ok":    ok,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCursorMetric records the cursor position after an operation,
// useful for spotting sessions parked at the end of the buffer.
func (c *Client) WriteCursorMetric(deviceName string, cursor int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_cursor",
		map[string]string{
			"device": deviceName,
		},
		map[string]interface{}{
			"position": cursor,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRegistryStats records a registry snapshot (device count, open
// sessions). Called periodically by the host, not by the core.
func (c *Client) WriteRegistryStats(devices, openSessions int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"registry",
		nil,
		map[string]interface{}{
			"devices":       devices,
			"open_sessions": openSessions,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
