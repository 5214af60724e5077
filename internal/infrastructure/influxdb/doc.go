// Package influxdb provides an optional metrics sink recording device
// operation throughput to InfluxDB v2.
//
// The sink is disabled by default and enabled via the influxdb section of
// config.yaml. Writes are batched and non-blocking; a device operation
// never waits on the metrics pipeline. The chardev core knows nothing of
// this package; the host records metrics after each console operation.
package influxdb
