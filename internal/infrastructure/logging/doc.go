// Package logging wraps log/slog for both greenhouse binaries.
//
// Records are JSON in production and text in development, filtered by
// level, and always tagged with the emitting service and version:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
//	log := logging.New(cfg.Logging, "greenhoused", version)
//	log.Info("starting service", "port", 8080)
//
// Never log broker credentials or API tokens.
package logging
