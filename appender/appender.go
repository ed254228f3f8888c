// FILE: lixenwraith/logpipe/appender/appender.go
// Package appender defines the sink and filter contracts the dispatcher
// delivers events through, and the bundled console, rolling file, HTTP and
// in-memory appenders.
package appender

import (
	"errors"
	"time"

	"github.com/lixenwraith/logpipe/event"
)

// ErrNotStarted is returned by Append before Start succeeded
var ErrNotStarted = errors.New("appender: not started")

// Appender is a destination for events.
// Append is called from the dispatcher goroutine and, under the direct
// overflow policy, synchronously from a logging call made on that goroutine.
// Bundled appenders are safe for concurrent use.
type Appender interface {
	Name() string
	Start() error
	Append(ev *event.Event) error
	Stop(timeout time.Duration) error
}

// Flusher is implemented by appenders that buffer output.
// The dispatcher calls Flush at the end of each drained batch and on flush ticks.
type Flusher interface {
	Flush() error
}

// Layout renders an event into dst and returns the extended slice.
// *formatter.Formatter implements Layout.
type Layout interface {
	Render(dst []byte, ev *event.Event) []byte
}

// LayoutFunc adapts a function to Layout
type LayoutFunc func(dst []byte, ev *event.Event) []byte

// Render implements Layout
func (f LayoutFunc) Render(dst []byte, ev *event.Event) []byte { return f(dst, ev) }

// FlushAll flushes every appender implementing Flusher and returns the errors
// keyed by appender name
func FlushAll(apps []Appender) map[string]error {
	var errs map[string]error
	for _, a := range apps {
		f, ok := a.(Flusher)
		if !ok {
			continue
		}
		if err := f.Flush(); err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[a.Name()] = err
		}
	}
	return errs
}
