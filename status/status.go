// FILE: lixenwraith/logpipe/status/status.go
// Package status is the pipeline's internal side channel. Dropped events,
// appender failures, and rotation failures are reported here instead of being
// fed back into the log stream they describe.
package status

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Severity of a status entry
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

// String returns the severity name
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Entry is one status report
type Entry struct {
	Time     time.Time
	Severity Severity
	Source   string
	Message  string
	Err      error
	Fields   map[string]any
}

// String renders the entry on one line
func (e Entry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Severity.String())
	sb.WriteString(" - ")
	if e.Source != "" {
		sb.WriteString(e.Source)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, e.Fields[k])
		}
	}
	return sb.String()
}

// Listener receives status entries.
// OnStatus runs on the reporting goroutine and must not block.
type Listener interface {
	OnStatus(e Entry)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Entry)

// OnStatus implements Listener
func (f ListenerFunc) OnStatus(e Entry) { f(e) }

// Channel fans status entries out to listeners and keeps a bounded history
type Channel struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int

	histMu  sync.Mutex
	history []Entry
	next    int
	full    bool

	echo   atomic.Bool
	out    io.Writer
	counts [3]atomic.Uint64
}

// NewChannel creates a channel keeping the last history entries
func NewChannel(history int) *Channel {
	if history <= 0 {
		history = 64
	}
	return &Channel{
		listeners: make(map[int]Listener),
		history:   make([]Entry, history),
		out:       os.Stderr,
	}
}

// SetEcho enables writing every entry to stderr with the "logpipe: " prefix
func (c *Channel) SetEcho(enabled bool) {
	c.echo.Store(enabled)
}

// SetOutput replaces the echo writer
func (c *Channel) SetOutput(w io.Writer) {
	c.mu.Lock()
	c.out = w
	c.mu.Unlock()
}

// Subscribe registers l and returns a function removing it
func (c *Channel) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Report records and publishes e
func (c *Channel) Report(e Entry) {
	if c == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if int(e.Severity) >= 0 && int(e.Severity) < len(c.counts) {
		c.counts[e.Severity].Add(1)
	}

	c.histMu.Lock()
	c.history[c.next] = e
	c.next = (c.next + 1) % len(c.history)
	if c.next == 0 {
		c.full = true
	}
	c.histMu.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.echo.Load() && c.out != nil {
		fmt.Fprintf(c.out, "logpipe: %s\n", e.String())
	}
	for _, l := range c.listeners {
		l.OnStatus(e)
	}
}

// Info reports an informational entry; kv are alternating key/value pairs
func (c *Channel) Info(source, msg string, kv ...any) {
	c.Report(Entry{Severity: SeverityInfo, Source: source, Message: msg, Fields: fields(kv)})
}

// Warn reports a warning entry
func (c *Channel) Warn(source, msg string, err error, kv ...any) {
	c.Report(Entry{Severity: SeverityWarn, Source: source, Message: msg, Err: err, Fields: fields(kv)})
}

// Error reports an error entry
func (c *Channel) Error(source, msg string, err error, kv ...any) {
	c.Report(Entry{Severity: SeverityError, Source: source, Message: msg, Err: err, Fields: fields(kv)})
}

// Recent returns the retained entries, oldest first
func (c *Channel) Recent() []Entry {
	c.histMu.Lock()
	defer c.histMu.Unlock()

	if !c.full {
		out := make([]Entry, c.next)
		copy(out, c.history[:c.next])
		return out
	}
	out := make([]Entry, 0, len(c.history))
	out = append(out, c.history[c.next:]...)
	return append(out, c.history[:c.next]...)
}

// Count returns how many entries of severity s were reported
func (c *Channel) Count(s Severity) uint64 {
	if int(s) < 0 || int(s) >= len(c.counts) {
		return 0
	}
	return c.counts[s].Load()
}

func fields(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		m["!BADKEY"] = kv[len(kv)-1]
	}
	return m
}

// ChannelListener buffers entries on a Go channel without ever blocking the reporter
type ChannelListener struct {
	C       chan Entry
	dropped atomic.Uint64
}

// NewChannelListener creates a listener with a buffer of size entries
func NewChannelListener(size int) *ChannelListener {
	return &ChannelListener{C: make(chan Entry, size)}
}

// OnStatus implements Listener
func (l *ChannelListener) OnStatus(e Entry) {
	select {
	case l.C <- e:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many entries did not fit the buffer
func (l *ChannelListener) Dropped() uint64 {
	return l.dropped.Load()
}
