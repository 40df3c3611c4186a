package notify

import (
	"context"
	"time"

	"github.com/nerrad567/inventory-core/internal/inventory"
)

// PointWriter is the subset of influxdb.Client used by InfluxRecorder.
type PointWriter interface {
	WriteDeviceEvent(action, status, deviceID, userID string, at time.Time)
	WriteInventoryStats(devices, users int, byStatus map[string]int, at time.Time)
}

// InfluxRecorder writes device events and registry totals to InfluxDB.
type InfluxRecorder struct {
	w     PointWriter
	stats func() inventory.Stats
}

// NewInfluxRecorder creates a recorder. stats is called after every event
// to sample registry totals; it may be nil to skip totals.
func NewInfluxRecorder(w PointWriter, stats func() inventory.Stats) *InfluxRecorder {
	return &InfluxRecorder{w: w, stats: stats}
}

// Notify implements inventory.Notifier.
func (r *InfluxRecorder) Notify(_ context.Context, ev inventory.Event) {
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if ev.Device != nil {
		r.w.WriteDeviceEvent(Action(ev.Type), string(ev.Device.AssignedTo), ev.DeviceID, ev.UserID, at)
	}

	if r.stats == nil {
		return
	}
	s := r.stats()
	byStatus := make(map[string]int, len(s.ByStatus))
	for status, n := range s.ByStatus {
		byStatus[string(status)] = n
	}
	r.w.WriteInventoryStats(s.TotalDevices, s.TotalUsers, byStatus, at)
}
