// Package logger provides zerolog-backed structured logging for relay.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("httpclient")
//	log.Debug("dispatch", logger.Fields(logger.FieldMethod, "get", logger.FieldURL, u))
package logger
