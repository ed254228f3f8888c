// FILE: lixenwraith/logpipe/event/event.go
// Package event defines the immutable snapshot of a single logging call that
// travels from producer goroutines through the queue to the appenders.
package event

import (
	"errors"
	"time"
)

// Event is one captured logging call.
// Once handed to a queue an Event is never modified by the producer again;
// the dispatcher only sets EndOfBatch on its own copy.
type Event struct {
	Time        time.Time
	Level       Level
	Logger      string
	Message     string
	Args        []any
	Fields      map[string]any
	GoroutineID uint64
	Context     Context
	Err         error
	Location    *Location
	Trace       string
	Flags       int64
	EndOfBatch  bool
}

// New captures an event at the current time
func New(level Level, logger string, args ...any) *Event {
	ev := &Event{
		Time:   time.Now(),
		Level:  level,
		Logger: logger,
		Args:   args,
		Flags:  FlagDefault,
	}
	ev.Err = firstError(args)
	return ev
}

// Reset clears the event so a preallocated slot can be reused without
// retaining references to the previous payload
func (e *Event) Reset() {
	*e = Event{}
}

// Clone returns a shallow copy; payload slices and maps are shared because
// they are never written after capture
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// Unwrap returns the error chain attached to the event, outermost first
func (e *Event) Unwrap() []error {
	var chain []error
	for err := e.Err; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err)
	}
	return chain
}

// firstError returns the first error argument, if any
func firstError(args []any) error {
	for _, a := range args {
		if err, ok := a.(error); ok {
			return err
		}
	}
	return nil
}

// CaptureError fills Err from Args when it was not set explicitly
func (e *Event) CaptureError() {
	if e.Err == nil {
		e.Err = firstError(e.Args)
	}
}
