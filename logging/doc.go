// Package logging provides a minimal logging interface and adapters for the
// coordination engine.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) with slog-style key/value arguments. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a *slog.Logger
//   - CoordLogger with session/agent/component context and helpers for LLM
//     calls, tool calls and selections
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "text"})
//	coord := coordinator.New(reg, func(o *coordinator.Options) {
//		o.Logger = logger.WithComponent("coordinator")
//	})
package logging
