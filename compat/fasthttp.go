// FILE: lixenwraith/logpipe/compat/fasthttp.go
package compat

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/logpipe"
)

var _ fasthttp.Logger = (*FastHTTPAdapter)(nil)

// FastHTTPAdapter feeds fasthttp server logs into a logpipe.Logger
type FastHTTPAdapter struct {
	logger        *logpipe.Logger
	defaultLevel  int64
	levelDetector func(string) (int64, bool)
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *logpipe.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		defaultLevel:  logpipe.LevelInfo,
		levelDetector: DetectLogLevel,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level used when detection finds nothing
func WithDefaultLevel(level int64) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content.
// A detector returning ok=false leaves the default level.
func WithLevelDetector(detector func(string) (int64, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(msg); ok {
			level = detected
		}
	}

	a.logger.LogStructured(level, msg, map[string]any{"source": "fasthttp"})
}

// DetectLogLevel guesses a level from keywords in msg
func DetectLogLevel(msg string) (int64, bool) {
	msgLower := strings.ToLower(msg)

	switch {
	case containsAny(msgLower, "error", "failed", "fatal", "panic"):
		return logpipe.LevelError, true
	case containsAny(msgLower, "warn", "deprecated"):
		return logpipe.LevelWarn, true
	case containsAny(msgLower, "debug", "trace"):
		return logpipe.LevelDebug, true
	default:
		return 0, false
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
