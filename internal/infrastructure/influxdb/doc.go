// Package influxdb records inventory activity as time series in InfluxDB v2.
//
// Two measurements are written:
//   - device_events: one point per take, return, registration or removal
//   - inventory_stats: registry totals after each mutation
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // recording turned off
//	}
//	defer client.Close()
//
//	client.WriteDeviceEvent("taken", "in_use", "00", "03", time.Now())
//
// Writes are non-blocking and batched per batch_size / flush_interval.
// Asynchronous write errors are delivered through SetOnError.
package influxdb
