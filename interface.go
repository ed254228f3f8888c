// FILE: lixenwraith/logpipe/interface.go
package logpipe

import (
	"context"
	"time"

	"github.com/lixenwraith/logpipe/event"
)

// Logger instance methods for logging at different levels.
// Enqueue failures never surface here; they are counted and reported on the
// status channel. Use Submit to receive the error.
// Zero flags render with the configured timestamp and level settings.

// Trace logs a message at trace level.
func (l *Logger) Trace(args ...any) {
	l.log(context.Background(), 0, 0, event.LevelTrace, l.getConfig().TraceDepth, args...)
}

// Debug logs a message at debug level.
func (l *Logger) Debug(args ...any) {
	l.log(context.Background(), 0, 0, event.LevelDebug, l.getConfig().TraceDepth, args...)
}

// Info logs a message at info level.
func (l *Logger) Info(args ...any) {
	l.log(context.Background(), 0, 0, event.LevelInfo, l.getConfig().TraceDepth, args...)
}

// Warn logs a message at warning level.
func (l *Logger) Warn(args ...any) {
	l.log(context.Background(), 0, 0, event.LevelWarn, l.getConfig().TraceDepth, args...)
}

// Error logs a message at error level.
func (l *Logger) Error(args ...any) {
	l.log(context.Background(), 0, 0, event.LevelError, l.getConfig().TraceDepth, args...)
}

// Fatal logs a message at fatal level and flushes the pipeline before
// returning. It does not exit the process; that decision stays with the caller.
func (l *Logger) Fatal(args ...any) {
	cfg := l.getConfig()
	if l.log(context.Background(), 0, 0, event.LevelFatal, cfg.TraceDepth, args...) != nil {
		return
	}
	_ = l.Flush(time.Duration(cfg.ShutdownTimeoutMs) * time.Millisecond)
}

// DebugContext logs at debug level with the context snapshot carried by ctx.
func (l *Logger) DebugContext(ctx context.Context, args ...any) {
	l.log(ctx, 0, 0, event.LevelDebug, l.getConfig().TraceDepth, args...)
}

// InfoContext logs at info level with the context snapshot carried by ctx.
func (l *Logger) InfoContext(ctx context.Context, args ...any) {
	l.log(ctx, 0, 0, event.LevelInfo, l.getConfig().TraceDepth, args...)
}

// WarnContext logs at warning level with the context snapshot carried by ctx.
func (l *Logger) WarnContext(ctx context.Context, args ...any) {
	l.log(ctx, 0, 0, event.LevelWarn, l.getConfig().TraceDepth, args...)
}

// ErrorContext logs at error level with the context snapshot carried by ctx.
func (l *Logger) ErrorContext(ctx context.Context, args ...any) {
	l.log(ctx, 0, 0, event.LevelError, l.getConfig().TraceDepth, args...)
}

// DebugTrace logs a debug message with function call trace.
func (l *Logger) DebugTrace(depth int, args ...any) {
	l.log(context.Background(), 0, 0, event.LevelDebug, int64(depth), args...)
}

// InfoTrace logs an info message with function call trace.
func (l *Logger) InfoTrace(depth int, args ...any) {
	l.log(context.Background(), 0, 0, event.LevelInfo, int64(depth), args...)
}

// WarnTrace logs a warning message with function call trace.
func (l *Logger) WarnTrace(depth int, args ...any) {
	l.log(context.Background(), 0, 0, event.LevelWarn, int64(depth), args...)
}

// ErrorTrace logs an error message with function call trace.
func (l *Logger) ErrorTrace(depth int, args ...any) {
	l.log(context.Background(), 0, 0, event.LevelError, int64(depth), args...)
}

// Log logs at an arbitrary level.
func (l *Logger) Log(level int64, args ...any) {
	l.log(context.Background(), 0, 0, event.Level(level), l.getConfig().TraceDepth, args...)
}

// LogStructured logs a message with structured fields.
func (l *Logger) LogStructured(level int64, message string, fields map[string]any) {
	if !l.state.IsInitialized.Load() {
		return
	}
	cfg := l.getConfig()
	if level < cfg.Level {
		return
	}
	ev := l.capture(context.Background(), cfg, -1, 0, event.Level(level), cfg.TraceDepth, nil)
	ev.Message = message
	ev.Fields = fields
	_ = l.submit(context.Background(), ev)
}

// Write outputs raw, unformatted data regardless of configured format.
// This method bypasses all formatting (timestamps, levels, JSON structure)
// and writes args as space-separated strings without a trailing newline.
func (l *Logger) Write(args ...any) {
	l.log(context.Background(), 0, FlagRaw, event.LevelInfo, 0, args...)
}

// Submit logs at level and returns the enqueue error: ErrQueueTimeout when
// the block policy timed out, ErrWouldDeadlock when the dispatcher itself
// logged into a full blocking queue, ctx.Err() when ctx ended first.
func (l *Logger) Submit(ctx context.Context, level int64, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.log(ctx, 0, 0, event.Level(level), l.getConfig().TraceDepth, args...)
}

// LogEvent submits a pre-built event. The event must not be modified afterwards.
func (l *Logger) LogEvent(ev *event.Event) error {
	if ev == nil {
		return fmtErrorf("event cannot be nil")
	}
	if !l.state.IsInitialized.Load() {
		return ErrNotInitialized
	}
	if int64(ev.Level) < l.getConfig().Level {
		return nil
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	ev.CaptureError()
	return l.submit(context.Background(), ev)
}
