package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger defines the minimal logging interface every component depends on.
// Args are slog-style alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// CoordLogger wraps slog.Logger adding contextual cloning helpers and
// coordination specific logging helpers. With* methods return copies.
type CoordLogger struct {
	logger    *slog.Logger
	level     LogLevel
	attrs     map[string]any
	component string
	sessionID string
	agentID   int64
}

// LoggerConfig configures construction of a CoordLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration on stderr.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr}
}

// NewLogger builds a CoordLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *CoordLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &CoordLogger{logger: slog.New(handler), level: cfg.Level, attrs: map[string]any{}, component: cfg.Component}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *CoordLogger) clone() *CoordLogger {
	nl := *l
	nl.attrs = make(map[string]any, len(l.attrs))
	for k, v := range l.attrs {
		nl.attrs[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *CoordLogger) WithContext(key string, value any) *CoordLogger {
	nl := l.clone()
	nl.attrs[key] = value
	return nl
}

// WithComponent sets the logical component (selector, executor, coordinator, ...).
func (l *CoordLogger) WithComponent(c string) *CoordLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithSession attaches a coordination session id.
func (l *CoordLogger) WithSession(sid string) *CoordLogger {
	nl := l.clone()
	nl.sessionID = sid
	return nl
}

// WithAgent attaches an agent id.
func (l *CoordLogger) WithAgent(id int64) *CoordLogger {
	nl := l.clone()
	nl.agentID = id
	return nl
}

func (l *CoordLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.attrs)+3)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.sessionID != "" {
		attrs = append(attrs, slog.String("session_id", l.sessionID))
	}
	if l.agentID != 0 {
		attrs = append(attrs, slog.Int64("agent_id", l.agentID))
	}
	for k, v := range l.attrs {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *CoordLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(l.buildAttrs()...)
	r.Add(args...)
	_ = l.logger.Handler().Handle(context.Background(), r)
}

// Debug logs at debug level.
func (l *CoordLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *CoordLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *CoordLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *CoordLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogToolCall records the outcome of a tool invocation on l. Extra args are
// appended to the entry.
func LogToolCall(l Logger, tool, server string, dur time.Duration, err error, extra ...any) {
	args := append([]any{"tool_name", tool, "server", server, "duration_ms", dur.Milliseconds(), "success", err == nil}, extra...)
	if err != nil {
		OrNoOp(l).Error("Tool execution failed", append(args, "error", err.Error())...)
		return
	}
	OrNoOp(l).Info("Tool execution completed", args...)
}

// LogLLMCall records model call latency and outcome on l.
func LogLLMCall(l Logger, model string, dur time.Duration, err error, extra ...any) {
	args := append([]any{"model", model, "duration_ms", dur.Milliseconds(), "success", err == nil}, extra...)
	if err != nil {
		OrNoOp(l).Error("LLM call failed", append(args, "error", err.Error())...)
		return
	}
	OrNoOp(l).Info("LLM call completed", args...)
}

// LogSelection records the outcome of an agent selection. Fallbacks log at
// warn level.
func LogSelection(l Logger, mode string, agents []int64, fallback bool, reason string) {
	args := []any{"mode", mode, "agents", agents, "fallback", fallback}
	if reason != "" {
		args = append(args, "reason", reason)
	}
	if fallback {
		OrNoOp(l).Warn("Agent selection fell back", args...)
		return
	}
	OrNoOp(l).Info("Agent selection completed", args...)
}

// StartTimer returns a closure that logs the elapsed duration of op at debug
// level when invoked.
func StartTimer(l Logger, op string, args ...any) func() {
	start := time.Now()
	return func() {
		OrNoOp(l).Debug("Operation completed", append([]any{"operation", op, "duration_ms", time.Since(start).Milliseconds()}, args...)...)
	}
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*CoordLogger)(nil)
	_ Logger = NoOpLogger{}
)
