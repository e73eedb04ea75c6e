// Package logger provides structured logging for riskintel using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying dispatch fields (provider, request id,
// request type, attempt).
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("orchestrator")
//	log.Info("provider switched", logger.Fields("from", "openai", "to", "offline"))
package logger
