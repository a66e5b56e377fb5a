// Package logging provides structured logging for the relay.
//
// It wraps log/slog with JSON or text output, level filtering, and default
// service and version fields on every entry.
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
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("relay starting", "endpoint", cfg.Device.Endpoint)
//	opener.SetLogger(logger.Component("notecard"))
//
// Never log credentials. Errors are logged under the "error" key.
package logging
