// FILE: lixenwraith/logpipe/compat/gnet.go
package compat

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/logpipe"
)

var _ logging.Logger = (*GnetAdapter)(nil)

// Matches "key=%v" or "key: %v" verbs in a format string
var keyValuePattern = regexp.MustCompile(`(\w+)\s*[:=]\s*%[vsdqxXeEfFgGpbcU]`)

// GnetAdapter feeds gnet engine logs into a logpipe.Logger
type GnetAdapter struct {
	logger        *logpipe.Logger
	extractFields bool
	fatalHandler  func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(logger *logpipe.Logger, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		logger: logger,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// WithFieldExtraction turns "key=%v" verbs of the format string into structured fields
func WithFieldExtraction() GnetOption {
	return func(a *GnetAdapter) {
		a.extractFields = true
	}
}

// Debugf logs at debug level with printf-style formatting
func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.emit(logpipe.LevelDebug, format, args)
}

// Infof logs at info level with printf-style formatting
func (a *GnetAdapter) Infof(format string, args ...any) {
	a.emit(logpipe.LevelInfo, format, args)
}

// Warnf logs at warn level with printf-style formatting
func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.emit(logpipe.LevelWarn, format, args)
}

// Errorf logs at error level with printf-style formatting
func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.emit(logpipe.LevelError, format, args)
}

// Fatalf logs at error level and triggers fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg, fields := a.render(format, args)
	fields["fatal"] = true
	a.logger.LogStructured(logpipe.LevelError, msg, fields)

	// Ensure log is flushed before exit
	_ = a.logger.Flush(100 * time.Millisecond)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}

func (a *GnetAdapter) emit(level int64, format string, args []any) {
	msg, fields := a.render(format, args)
	a.logger.LogStructured(level, msg, fields)
}

func (a *GnetAdapter) render(format string, args []any) (string, map[string]any) {
	if a.extractFields {
		if msg, fields, ok := parseFormat(format, args); ok {
			fields["source"] = "gnet"
			return msg, fields
		}
	}
	return fmt.Sprintf(format, args...), map[string]any{"source": "gnet"}
}

// parseFormat splits a printf-style format into a message and the fields
// named by its "key=%v" verbs. ok is false when the format has no such verbs
// or they do not line up with args.
func parseFormat(format string, args []any) (msg string, fields map[string]any, ok bool) {
	matches := keyValuePattern.FindAllStringSubmatchIndex(format, -1)
	if len(matches) == 0 || len(matches) > len(args) {
		return "", nil, false
	}

	fields = make(map[string]any, len(matches)+1)
	var parts []string
	lastEnd := 0
	argIndex := 0

	for _, match := range matches {
		// Text between verbs forms the message
		if prefix := strings.TrimSpace(format[lastEnd:match[0]]); prefix != "" {
			if strings.Contains(prefix, "%") {
				return "", nil, false
			}
			parts = append(parts, prefix)
		}
		fields[format[match[2]:match[3]]] = args[argIndex]
		argIndex++
		lastEnd = match[1]
	}

	if lastEnd < len(format) {
		remaining := strings.TrimSpace(fmt.Sprintf(format[lastEnd:], args[argIndex:]...))
		if remaining != "" {
			parts = append(parts, remaining)
		}
	} else if argIndex < len(args) {
		return "", nil, false
	}

	return strings.Join(parts, " "), fields, true
}
