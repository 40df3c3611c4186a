package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	// MeasurementDeviceEvents records one point per device lifecycle event.
	MeasurementDeviceEvents = "device_events"

	// MeasurementInventory records registry totals after each mutation.
	MeasurementInventory = "inventory_stats"
)

// WriteDeviceEvent records a device lifecycle event.
//
// action and status are tags (low cardinality); device and user ids are
// fields so they do not blow up series cardinality.
//
//	client.WriteDeviceEvent("taken", "in_use", "00", "03", time.Now())
func (c *Client) WriteDeviceEvent(action, status, deviceID, userID string, at time.Time) {
	fields := map[string]any{
		"device_id": deviceID,
		"count":     1,
	}
	if userID != "" {
		fields["user_id"] = userID
	}

	c.WritePointWithTime(MeasurementDeviceEvents,
		map[string]string{
			"action": action,
			"status": status,
		},
		fields,
		at,
	)
}

// WriteInventoryStats records registry totals: device and user counts plus
// one field per assignment status.
func (c *Client) WriteInventoryStats(devices, users int, byStatus map[string]int, at time.Time) {
	fields := map[string]any{
		"devices": devices,
		"users":   users,
	}
	for status, n := range byStatus {
		fields["status_"+status] = n
	}

	c.WritePointWithTime(MeasurementInventory, nil, fields, at)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point. Points written after Close are
// dropped and counted in Stats.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		c.dropped.Add(1)
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
	c.queued.Add(1)
}
