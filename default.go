// FILE: lixenwraith/logpipe/default.go
package logpipe

import (
	"context"
	"time"

	"github.com/lixenwraith/logpipe/event"
)

// Global instance for package-level functions
var defaultLogger = NewLogger()

// Default package-level functions that delegate to the default logger.
// They call log directly so the captured call site is the caller's.

// Default returns the package-level logger
func Default() *Logger {
	return defaultLogger
}

// Init applies cfg to the default logger and starts it
func Init(cfg *Config) error {
	if err := defaultLogger.ApplyConfig(cfg); err != nil {
		return err
	}
	return defaultLogger.Start()
}

// InitWithDefaults initializes the default logger with built-in defaults and optional overrides
func InitWithDefaults(overrides ...string) error {
	cfg := DefaultConfig()
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err == nil {
			err = applyConfigField(cfg, key, value)
		}
		if err != nil {
			return err
		}
	}
	return Init(cfg)
}

// Shutdown gracefully closes the default logger, attempting to deliver pending events
func Shutdown(timeout ...time.Duration) error {
	return defaultLogger.Shutdown(timeout...)
}

// Flush delivers pending events of the default logger and flushes its appenders
func Flush(timeout time.Duration) error {
	return defaultLogger.Flush(timeout)
}

// Trace logs a message at trace level
func Trace(args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelTrace, defaultLogger.getConfig().TraceDepth, args...)
}

// Debug logs a message at debug level
func Debug(args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelDebug, defaultLogger.getConfig().TraceDepth, args...)
}

// Info logs a message at info level
func Info(args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelInfo, defaultLogger.getConfig().TraceDepth, args...)
}

// Warn logs a message at warning level
func Warn(args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelWarn, defaultLogger.getConfig().TraceDepth, args...)
}

// Error logs a message at error level
func Error(args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelError, defaultLogger.getConfig().TraceDepth, args...)
}

// InfoContext logs at info level with the context snapshot carried by ctx
func InfoContext(ctx context.Context, args ...any) {
	defaultLogger.log(ctx, 0, 0, event.LevelInfo, defaultLogger.getConfig().TraceDepth, args...)
}

// DebugTrace logs a debug message with function call trace
func DebugTrace(depth int, args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelDebug, int64(depth), args...)
}

// InfoTrace logs an info message with function call trace
func InfoTrace(depth int, args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelInfo, int64(depth), args...)
}

// WarnTrace logs a warning message with function call trace
func WarnTrace(depth int, args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelWarn, int64(depth), args...)
}

// ErrorTrace logs an error message with function call trace
func ErrorTrace(depth int, args ...any) {
	defaultLogger.log(context.Background(), 0, 0, event.LevelError, int64(depth), args...)
}

// Write outputs raw, unformatted data through the default logger
func Write(args ...any) {
	defaultLogger.log(context.Background(), 0, FlagRaw, event.LevelInfo, 0, args...)
}

// ApplyConfigString applies "key=value" overrides to the default logger
func ApplyConfigString(overrides ...string) error {
	return defaultLogger.ApplyConfigString(overrides...)
}

// LoadConfig loads path into the default logger
func LoadConfig(path string, overrides ...string) error {
	return defaultLogger.LoadConfig(path, overrides...)
}
