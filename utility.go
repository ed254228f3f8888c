// FILE: lixenwraith/logpipe/utility.go
package logpipe

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/multierr"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
)

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "logpipe: ") {
		format = "logpipe: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors merges errs, skipping nils; errors.Is sees every member
func combineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}

// parseKeyValue splits a "key=value" string.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", fmtErrorf("invalid format in override string '%s', expected key=value", arg)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", fmtErrorf("key cannot be empty in override string '%s'", arg)
	}
	return key, value, nil
}

// Level converts a level name or number to its numeric value
func Level(levelStr string) (int64, error) {
	lvl, err := event.ParseLevel(levelStr)
	if err != nil {
		return 0, fmtErrorf("invalid level string: '%s' (use trace, debug, info, warn, error, fatal)", levelStr)
	}
	return int64(lvl), nil
}

// unwrapAppender strips filter wrappers down to the appender that owns resources
func unwrapAppender(a appender.Appender) appender.Appender {
	for {
		u, ok := a.(interface{ Unwrap() appender.Appender })
		if !ok {
			return a
		}
		a = u.Unwrap()
	}
}

// sameAppender reports whether a and b are the same appender instance
func sameAppender(a, b appender.Appender) bool {
	a, b = unwrapAppender(a), unwrapAppender(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// containsAppender reports whether refs holds a
func containsAppender(refs []AppenderRef, a appender.Appender) bool {
	for _, ref := range refs {
		if sameAppender(ref.Appender, a) {
			return true
		}
	}
	return false
}
