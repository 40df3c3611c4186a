package inventory

import (
	"context"
	"time"
)

// EventType names a registry mutation.
type EventType string

// Event types emitted by the Registry.
const (
	EventDeviceRegistered    EventType = "device.registered"
	EventDeviceUpdated       EventType = "device.updated"
	EventDeviceRemoved       EventType = "device.removed"
	EventDeviceTaken         EventType = "device.taken"
	EventDeviceReturned      EventType = "device.returned"
	EventDeviceImageAttached EventType = "device.image_attached"
	EventUserRegistered      EventType = "user.registered"
	EventUserUpdated         EventType = "user.updated"
)

// EntityType returns "device" or "user" for the event's primary entity.
func (t EventType) EntityType() string {
	switch t {
	case EventUserRegistered, EventUserUpdated:
		return "user"
	default:
		return "device"
	}
}

// Event describes a completed registry mutation.
// Device and User carry snapshots taken inside the critical section.
type Event struct {
	Type      EventType `json:"type"`
	DeviceID  string    `json:"deviceId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Device    *Device   `json:"device,omitempty"`
	User      *User     `json:"user,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EntityID returns the identifier of the event's primary entity.
func (e Event) EntityID() string {
	if e.Type.EntityType() == "user" {
		return e.UserID
	}
	return e.DeviceID
}

// Notifier receives registry events.
//
// Notify is called synchronously on the mutating goroutine, after the
// registry lock has been released. Events reach notifiers in the order the
// mutations were applied, across all goroutines: a mutation's events are
// held back until every earlier mutation's events have been delivered.
// Implementations may read the registry but must not mutate it from
// within Notify, must not block for long, and must handle their own errors.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) {
	f(ctx, ev)
}
