// FILE: lixenwraith/logpipe/formatter/formatter.go
// Package formatter renders events as txt, json or raw lines.
package formatter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/sanitizer"
)

// Formatter renders events into caller-owned buffers. Configure it with the
// fluent setters before sharing; Render itself keeps no state and is safe
// for concurrent use.
type Formatter struct {
	sanitizer       *sanitizer.Sanitizer
	format          string
	timestampFormat string
	showTimestamp   bool
	showLevel       bool
	showGoroutine   bool
}

// New creates a txt formatter with the provided sanitizer
func New(s ...*sanitizer.Sanitizer) *Formatter {
	var san *sanitizer.Sanitizer
	if len(s) > 0 && s[0] != nil {
		san = s[0]
	} else {
		san = sanitizer.New()
	}
	return &Formatter{
		sanitizer:       san,
		format:          sanitizer.FormatTxt,
		timestampFormat: time.RFC3339Nano,
		showTimestamp:   true,
		showLevel:       true,
	}
}

// Type sets the output format ("txt", "json", or "raw")
func (f *Formatter) Type(format string) *Formatter {
	f.format = format
	return f
}

// TimestampFormat sets the timestamp layout
func (f *Formatter) TimestampFormat(format string) *Formatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// ShowLevel sets whether to include the level
func (f *Formatter) ShowLevel(show bool) *Formatter {
	f.showLevel = show
	return f
}

// ShowTimestamp sets whether to include the timestamp
func (f *Formatter) ShowTimestamp(show bool) *Formatter {
	f.showTimestamp = show
	return f
}

// ShowGoroutine sets whether to include the producing goroutine id
func (f *Formatter) ShowGoroutine(show bool) *Formatter {
	f.showGoroutine = show
	return f
}

// Format returns the configured output format
func (f *Formatter) Format() string {
	return f.format
}

// effectiveFlags merges the event flags with the configured defaults.
// Zero flags mean "use the configuration".
func (f *Formatter) effectiveFlags(flags int64) int64 {
	if flags == 0 {
		if f.showTimestamp {
			flags |= event.FlagShowTimestamp
		}
		if f.showLevel {
			flags |= event.FlagShowLevel
		}
	}
	return flags
}

// Render appends the rendering of ev to dst
func (f *Formatter) Render(dst []byte, ev *event.Event) []byte {
	return f.RenderAs(dst, f.format, ev)
}

// RenderAs renders with an explicit format, ignoring the configured one
func (f *Formatter) RenderAs(dst []byte, format string, ev *event.Event) []byte {
	flags := f.effectiveFlags(ev.Flags)

	// FlagRaw bypasses formatting and sanitization
	if flags&event.FlagRaw != 0 {
		return appendUnformatted(dst, ev)
	}

	enc := sanitizer.NewEncoder(format, f.sanitizer)
	switch format {
	case sanitizer.FormatRaw:
		needsSpace := false
		if ev.Message != "" {
			dst = enc.AppendString(dst, ev.Message)
			needsSpace = true
		}
		for _, arg := range ev.Args {
			dst = f.appendValue(dst, arg, enc, needsSpace)
			needsSpace = true
		}
		return dst

	case sanitizer.FormatJSON:
		return f.renderJSON(dst, flags, ev, enc)

	default:
		return f.renderTxt(dst, flags, ev, enc)
	}
}

// AppendValue appends a single value encoded in the configured format
func (f *Formatter) AppendValue(dst []byte, v any) []byte {
	return f.appendValue(dst, v, sanitizer.NewEncoder(f.format, f.sanitizer), false)
}

func appendUnformatted(dst []byte, ev *event.Event) []byte {
	needsSpace := false
	if ev.Message != "" {
		dst = append(dst, ev.Message...)
		needsSpace = true
	}
	for _, arg := range ev.Args {
		if needsSpace {
			dst = append(dst, ' ')
		}
		needsSpace = true
		switch v := arg.(type) {
		case string:
			dst = append(dst, v...)
		case []byte:
			dst = append(dst, v...)
		case fmt.Stringer:
			dst = append(dst, v.String()...)
		case error:
			dst = append(dst, v.Error()...)
		default:
			dst = fmt.Append(dst, v)
		}
	}
	return dst
}

// appendValue provides unified type conversion
func (f *Formatter) appendValue(dst []byte, v any, enc sanitizer.Encoder, needsSpace bool) []byte {
	if needsSpace && len(dst) > 0 {
		dst = append(dst, ' ')
	}

	switch val := v.(type) {
	case string:
		return enc.AppendString(dst, val)
	case []byte:
		return enc.AppendString(dst, string(val))
	case rune:
		var runeStr [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeStr[:], val)
		return enc.AppendString(dst, string(runeStr[:n]))
	case int:
		return strconv.AppendInt(dst, int64(val), 10)
	case int64:
		return strconv.AppendInt(dst, val, 10)
	case uint:
		return strconv.AppendUint(dst, uint64(val), 10)
	case uint64:
		return strconv.AppendUint(dst, val, 10)
	case float32:
		return strconv.AppendFloat(dst, float64(val), 'f', -1, 32)
	case float64:
		return strconv.AppendFloat(dst, val, 'f', -1, 64)
	case bool:
		return enc.AppendBool(dst, val)
	case nil:
		return enc.AppendNil(dst)
	case time.Time:
		return enc.AppendString(dst, val.Format(f.timestampFormat))
	case time.Duration:
		return enc.AppendString(dst, val.String())
	case error:
		return enc.AppendString(dst, val.Error())
	case fmt.Stringer:
		return enc.AppendString(dst, val.String())
	default:
		return enc.AppendComplex(dst, val)
	}
}

// hasErrorArg reports whether an error is already rendered through Args
func hasErrorArg(ev *event.Event) bool {
	for _, a := range ev.Args {
		if _, ok := a.(error); ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *Formatter) renderJSON(dst []byte, flags int64, ev *event.Event, enc sanitizer.Encoder) []byte {
	dst = append(dst, '{')
	needsComma := false
	field := func(name string) {
		if needsComma {
			dst = append(dst, ',')
		}
		dst = append(dst, '"')
		dst = append(dst, name...)
		dst = append(dst, '"', ':')
		needsComma = true
	}

	if flags&event.FlagShowTimestamp != 0 {
		field("time")
		dst = append(dst, '"')
		dst = ev.Time.AppendFormat(dst, f.timestampFormat)
		dst = append(dst, '"')
	}
	if flags&event.FlagShowLevel != 0 {
		field("level")
		dst = append(dst, '"')
		dst = append(dst, ev.Level.String()...)
		dst = append(dst, '"')
	}
	if ev.Logger != "" {
		field("logger")
		dst = enc.AppendString(dst, ev.Logger)
	}
	if f.showGoroutine && ev.GoroutineID != 0 {
		field("goroutine")
		dst = strconv.AppendUint(dst, ev.GoroutineID, 10)
	}
	if ev.Location != nil {
		field("location")
		dst = enc.AppendString(dst, ev.Location.String())
	}
	if ev.Trace != "" {
		field("trace")
		dst = enc.AppendString(dst, ev.Trace)
	}
	if ev.Message != "" {
		field("message")
		dst = enc.AppendString(dst, ev.Message)
	}

	// Structured fields render as an object, positional args as an array
	if ev.Fields != nil {
		field("fields")
		marshaled, err := json.Marshal(ev.Fields)
		if err != nil {
			dst = append(dst, `{"_marshal_error":`...)
			dst = enc.AppendString(dst, err.Error())
			dst = append(dst, '}')
		} else {
			dst = append(dst, marshaled...)
		}
		if len(ev.Args) > 0 {
			field("args")
			dst = f.appendJSONArray(dst, ev.Args, enc)
		}
	} else if len(ev.Args) > 0 {
		field("fields")
		dst = f.appendJSONArray(dst, ev.Args, enc)
	}

	if ev.Err != nil && !hasErrorArg(ev) {
		field("error")
		dst = enc.AppendString(dst, ev.Err.Error())
	}

	if ev.Context.Len() > 0 {
		field("context")
		dst = append(dst, '{')
		for i, key := range ev.Context.Keys() {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = enc.AppendKey(dst, key)
			dst = append(dst, ':')
			v, _ := ev.Context.Value(key)
			dst = f.appendValue(dst, v, enc, false)
		}
		dst = append(dst, '}')
	}
	if stack := ev.Context.Stack(); len(stack) > 0 {
		field("stack")
		dst = f.appendJSONArray(dst, stringsToAny(stack), enc)
	}

	return append(dst, '}', '\n')
}

func (f *Formatter) appendJSONArray(dst []byte, values []any, enc sanitizer.Encoder) []byte {
	dst = append(dst, '[')
	for i, v := range values {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = f.appendValue(dst, v, enc, false)
	}
	return append(dst, ']')
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (f *Formatter) renderTxt(dst []byte, flags int64, ev *event.Event, enc sanitizer.Encoder) []byte {
	start := len(dst)
	sep := func() {
		if len(dst) > start {
			dst = append(dst, ' ')
		}
	}

	if flags&event.FlagShowTimestamp != 0 {
		dst = ev.Time.AppendFormat(dst, f.timestampFormat)
	}
	if flags&event.FlagShowLevel != 0 {
		sep()
		dst = append(dst, ev.Level.String()...)
	}
	if ev.Logger != "" {
		sep()
		dst = append(dst, '[')
		dst = f.sanitizer.Append(dst, ev.Logger)
		dst = append(dst, ']')
	}
	if f.showGoroutine && ev.GoroutineID != 0 {
		sep()
		dst = append(dst, "g="...)
		dst = strconv.AppendUint(dst, ev.GoroutineID, 10)
	}
	if ev.Location != nil {
		sep()
		dst = f.sanitizer.Append(dst, ev.Location.String())
	}
	if ev.Trace != "" {
		sep()
		// Unquoted, but sanitized against control sequence injection
		dst = f.sanitizer.Append(dst, ev.Trace)
	}
	if ev.Message != "" {
		sep()
		dst = enc.AppendString(dst, ev.Message)
	}
	for _, arg := range ev.Args {
		sep()
		dst = f.appendValue(dst, arg, enc, false)
	}
	for _, key := range sortedKeys(ev.Fields) {
		sep()
		dst = enc.AppendKey(dst, key)
		dst = append(dst, '=')
		dst = f.appendValue(dst, ev.Fields[key], enc, false)
	}
	if ev.Err != nil && !hasErrorArg(ev) {
		sep()
		dst = append(dst, "error="...)
		dst = enc.AppendString(dst, ev.Err.Error())
	}
	for _, key := range ev.Context.Keys() {
		sep()
		dst = enc.AppendKey(dst, key)
		dst = append(dst, '=')
		v, _ := ev.Context.Value(key)
		dst = f.appendValue(dst, v, enc, false)
	}
	if stack := ev.Context.Stack(); len(stack) > 0 {
		sep()
		dst = append(dst, "stack="...)
		dst = enc.AppendString(dst, strings.Join(stack, "/"))
	}

	return append(dst, '\n')
}
