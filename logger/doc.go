// Package logger provides structured logging for reqkit using zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers and trace-aware context enrichment.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("stack")
//	log.Debug("chain rebuilt", logger.Fields("layers", 4))
package logger
