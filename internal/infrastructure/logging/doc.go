// Package logging provides structured logging for the inventory service.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 3000)
//	registry.SetLogger(logger.With("component", "registry"))
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
