// FILE: lixenwraith/logpipe/appender/list.go
package appender

import (
	"fmt"
	"sync"
	"time"

	"github.com/lixenwraith/logpipe/event"
)

// ListAppender keeps delivered events in memory
type ListAppender struct {
	name string
	// Hook, when set, runs before the event is recorded; a non-nil error
	// rejects the event
	Hook func(ev *event.Event) error

	mu      sync.Mutex
	events  []event.Event
	started bool
	stopped bool
	starts  int
	flushes int
	notify  chan struct{}
}

// NewListAppender creates an empty list appender
func NewListAppender(name string) *ListAppender {
	return &ListAppender{name: name, notify: make(chan struct{})}
}

// Name implements Appender
func (a *ListAppender) Name() string { return a.name }

// Start implements Appender
func (a *ListAppender) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = true
	a.stopped = false
	a.starts++
	return nil
}

// Append implements Appender
func (a *ListAppender) Append(ev *event.Event) error {
	if a.Hook != nil {
		if err := a.Hook(ev); err != nil {
			return err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return ErrNotStarted
	}
	a.events = append(a.events, *ev)
	close(a.notify)
	a.notify = make(chan struct{})
	return nil
}

// Flush implements Flusher
func (a *ListAppender) Flush() error {
	a.mu.Lock()
	a.flushes++
	a.mu.Unlock()
	return nil
}

// Stop implements Appender
func (a *ListAppender) Stop(_ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = false
	a.stopped = true
	return nil
}

// Events returns a copy of the recorded events
func (a *ListAppender) Events() []event.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]event.Event, len(a.events))
	copy(out, a.events)
	return out
}

// Messages renders each recorded event as its message followed by its args
func (a *ListAppender) Messages() []string {
	events := a.Events()
	out := make([]string, len(events))
	for i := range events {
		out[i] = plainText(&events[i])
	}
	return out
}

func plainText(ev *event.Event) string {
	s := ev.Message
	for _, arg := range ev.Args {
		if s != "" {
			s += " "
		}
		s += fmt.Sprint(arg)
	}
	return s
}

// Len returns the number of recorded events
func (a *ListAppender) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// Reset discards the recorded events
func (a *ListAppender) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
}

// Stopped reports whether Stop was called since the last Start
func (a *ListAppender) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Starts returns how many times Start was called
func (a *ListAppender) Starts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts
}

// Flushes returns how many times Flush was called
func (a *ListAppender) Flushes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushes
}

// WaitFor blocks until at least n events were recorded or timeout elapsed
func (a *ListAppender) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		a.mu.Lock()
		if len(a.events) >= n {
			a.mu.Unlock()
			return true
		}
		ch := a.notify
		a.mu.Unlock()
		select {
		case <-ch:
		case <-deadline.C:
			return false
		}
	}
}
