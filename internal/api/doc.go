// Package api implements the HTTP REST API and WebSocket server for the
// inventory service.
//
// This package provides:
//   - REST endpoints for devices, users, take/return and device images
//   - A WebSocket hub that relays registry events to subscribed clients
//   - Audit trail queries and runtime metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit, rate limit)
//
// # Architecture
//
// Handlers are thin: they decode the request, call the inventory.Registry
// and map its sentinel errors onto HTTP status codes. Side effects such as
// auditing, MQTT publication and WebSocket broadcast are driven by registry
// events, not by the handlers.
//
// # WebSocket protocol
//
// Clients send {"type":"subscribe","payload":{"channels":[...]}} with any
// mix of event types ("device.taken"), entity wildcards ("device.*"),
// single entities ("device:00", "user:03") or "*". A "stats" request
// answers with the current registry totals.
//
// # Graceful Degradation
//
// MQTT, InfluxDB and the audit database are optional. Without them the
// registry endpoints work unchanged; only /audit and the related metrics
// report the missing component.
//
// # Lifecycle
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
