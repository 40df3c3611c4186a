package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nerrad567/inventory-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/inventory-core/internal/inventory"
)

// Publisher is the subset of mqtt.Client used by MQTTPublisher.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTPublisher forwards registry events to MQTT.
//
// Every event is published (not retained) on
// {prefix}/{entity}/{id}/{action}. Device events additionally refresh the
// retained {prefix}/device/{id}/state topic; removal clears it.
type MQTTPublisher struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger
}

// NewMQTTPublisher creates a publisher.
func NewMQTTPublisher(pub Publisher, topics mqtt.Topics, qos byte) *MQTTPublisher {
	return &MQTTPublisher{pub: pub, topics: topics, qos: qos, logger: noopLogger{}}
}

// SetLogger sets the logger used for publish failures.
func (p *MQTTPublisher) SetLogger(logger Logger) {
	p.logger = logger
}

// Notify implements inventory.Notifier.
func (p *MQTTPublisher) Notify(_ context.Context, ev inventory.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("mqtt event encode failed", "type", ev.Type, "error", err)
		return
	}

	topic := p.topics.Event(ev.Type.EntityType(), ev.EntityID(), Action(ev.Type))
	if err := p.pub.Publish(topic, payload, p.qos, false); err != nil {
		p.logger.Warn("mqtt event publish failed", "topic", topic, "error", err)
	}

	if ev.Device == nil {
		return
	}

	var state []byte
	if ev.Type != inventory.EventDeviceRemoved {
		state, err = json.Marshal(ev.Device)
		if err != nil {
			p.logger.Warn("mqtt state encode failed", "device_id", ev.DeviceID, "error", err)
			return
		}
	}
	stateTopic := p.topics.DeviceState(ev.DeviceID)
	if err := p.pub.Publish(stateTopic, state, p.qos, true); err != nil {
		p.logger.Warn("mqtt state publish failed", "topic", stateTopic, "error", err)
	}
}

// Action returns the verb part of an event type ("device.taken" → "taken").
func Action(t inventory.EventType) string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
