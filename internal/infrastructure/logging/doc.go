// Package logging provides structured logging for Skynet Core.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version fields. Configuration comes from the logging section of
// config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("coordinator").Info("started")
//
// Never log MQTT passwords, InfluxDB tokens or JWT secrets.
package logging
