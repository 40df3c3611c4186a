package api

import (
	"fmt"
	"strings"

	"github.com/nerrad567/inventory-core/internal/inventory"
)

// WSChannelAll subscribes to every event.
const WSChannelAll = "*"

// Entity channel prefixes. "device:00" follows a single device and
// "user:03" follows everything a single user is involved in, including
// takes and returns of any device.
const (
	wsDevicePrefix = "device:"
	wsUserPrefix   = "user:"
)

var knownEventTypes = map[string]struct{}{
	string(inventory.EventDeviceRegistered):    {},
	string(inventory.EventDeviceUpdated):       {},
	string(inventory.EventDeviceRemoved):       {},
	string(inventory.EventDeviceTaken):         {},
	string(inventory.EventDeviceReturned):      {},
	string(inventory.EventDeviceImageAttached): {},
	string(inventory.EventUserRegistered):      {},
	string(inventory.EventUserUpdated):         {},
}

// validateChannel checks that ch is a channel the hub can ever deliver on.
func validateChannel(ch string) error {
	switch {
	case ch == WSChannelAll, ch == "device.*", ch == "user.*":
		return nil
	case strings.HasPrefix(ch, wsDevicePrefix):
		if ch == wsDevicePrefix {
			return fmt.Errorf("channel %q: missing device id", ch)
		}
		return nil
	case strings.HasPrefix(ch, wsUserPrefix):
		if ch == wsUserPrefix {
			return fmt.Errorf("channel %q: missing user id", ch)
		}
		return nil
	}
	if _, ok := knownEventTypes[ch]; ok {
		return nil
	}
	return fmt.Errorf("unknown channel %q", ch)
}

// eventChannels lists every channel an event is delivered on.
func eventChannels(ev inventory.Event) []string {
	channels := []string{
		WSChannelAll,
		string(ev.Type),
		ev.Type.EntityType() + ".*",
	}
	if ev.DeviceID != "" {
		channels = append(channels, wsDevicePrefix+ev.DeviceID)
	}
	if ev.UserID != "" {
		channels = append(channels, wsUserPrefix+ev.UserID)
	}
	return channels
}

// channelSet is a client's subscription list.
type channelSet map[string]struct{}

func (s channelSet) matchesAny(channels []string) bool {
	for _, ch := range channels {
		if _, ok := s[ch]; ok {
			return true
		}
	}
	return false
}

func (s channelSet) names() []string {
	out := make([]string, 0, len(s))
	for ch := range s {
		out = append(out, ch)
	}
	return out
}
