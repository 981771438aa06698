// Package logger provides structured logging for anyhttp components
// using zerolog.
//
// Adapters, the cookie jar and the clients take a *Logger through their
// options and fall back to a component-scoped child of the global logger.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("cookiejar")
//	log.Warn("set-cookie dropped", logger.Fields(logger.FieldCookie, raw))
package logger
