// Package notify adapts inventory registry events to external sinks.
//
// Each adapter implements inventory.Notifier and is registered with
// Registry.AddNotifier at startup:
//
//	reg.AddNotifier(notify.NewMQTTPublisher(mqttClient, mqttClient.Topics(), mqttClient.QoS()))
//	reg.AddNotifier(notify.NewInfluxRecorder(influxClient, reg.GetStats))
//
// Adapters never fail the registry operation; sink errors are logged.
package notify
