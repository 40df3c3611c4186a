package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "inventory"

// Topics builds the inventory MQTT topic hierarchy under a prefix:
//
//	{prefix}/system/status              retained online/offline (LWT)
//	{prefix}/device/{id}/state          retained current device record
//	{prefix}/device/{id}/{action}       device events (registered, taken, ...)
//	{prefix}/user/{id}/{action}         user events
type Topics struct {
	Prefix string
}

// NewTopics returns a builder for prefix, trimming slashes and falling back
// to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// SystemStatus returns the topic for service online/offline status.
//
// Example: inventory/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// DeviceState returns the retained state topic for a device.
//
// Example: inventory/device/00/state
func (t Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", t.prefix(), deviceID)
}

// Event returns the topic for a registry event.
//
// Example: inventory/device/00/taken
func (t Topics) Event(entityType, entityID, action string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.prefix(), entityType, entityID, action)
}

// AllEvents returns a wildcard matching every topic under the prefix.
//
// Example: inventory/#
func (t Topics) AllEvents() string {
	return t.prefix() + "/#"
}
