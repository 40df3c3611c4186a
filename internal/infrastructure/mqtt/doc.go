// Package mqtt publishes inventory events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - The inventory topic hierarchy (see Topics)
//
// MQTT is optional. When mqtt.enabled is false the service runs without a
// broker and no Client is created.
//
// # Security Considerations
//
//   - Enable TLS for anything beyond local development (cfg.Broker.TLS=true)
//   - Set credentials through INVENTORY_MQTT_USERNAME / INVENTORY_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().Event("device", "00", "taken")
//	client.Publish(topic, payload, client.QoS(), false)
package mqtt
