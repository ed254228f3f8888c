// FILE: lixenwraith/logpipe/event/level.go
package event

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is the ordered severity of an event
type Level int64

// Log level constants
const (
	LevelTrace Level = -8
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
	LevelFatal Level = 12
)

// Record flags for controlling output structure
const (
	FlagRaw           int64 = 0b0001
	FlagShowTimestamp int64 = 0b0010
	FlagShowLevel     int64 = 0b0100
	FlagDefault             = FlagShowTimestamp | FlagShowLevel
)

// String returns the upper-case name of the level
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int64(l))
	}
}

// ParseLevel converts a level name or its numeric value to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return Level(n), nil
	}
	return 0, fmt.Errorf("invalid level string: '%s' (use trace, debug, info, warn, error, fatal)", s)
}
