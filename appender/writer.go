// FILE: lixenwraith/logpipe/appender/writer.go
package appender

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/lixenwraith/logpipe/event"
)

// Console targets
const (
	TargetStdout = "stdout"
	TargetStderr = "stderr"
	// TargetSplit writes warnings and above to stderr, the rest to stdout
	TargetSplit = "split"
)

// WriterAppender renders events onto an io.Writer
type WriterAppender struct {
	name   string
	layout Layout

	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	splitLevel event.Level
	started    bool
}

// NewWriterAppender writes every event to w
func NewWriterAppender(name string, w io.Writer, layout Layout) *WriterAppender {
	return &WriterAppender{name: name, layout: layout, out: w}
}

// NewConsoleAppender writes to the process stdout and/or stderr
func NewConsoleAppender(name, target string, layout Layout) (*WriterAppender, error) {
	switch target {
	case "", TargetStdout:
		return NewWriterAppender(name, os.Stdout, layout), nil
	case TargetStderr:
		return NewWriterAppender(name, os.Stderr, layout), nil
	case TargetSplit:
		a := NewWriterAppender(name, os.Stdout, layout)
		a.errOut = os.Stderr
		a.splitLevel = event.LevelWarn
		return a, nil
	default:
		return nil, fmt.Errorf("appender: invalid console target '%s' (use stdout, stderr, or split)", target)
	}
}

// Split sends events at or above level to errOut
func (a *WriterAppender) Split(errOut io.Writer, level event.Level) *WriterAppender {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errOut = errOut
	a.splitLevel = level
	return a
}

// Name implements Appender
func (a *WriterAppender) Name() string { return a.name }

// Start implements Appender
func (a *WriterAppender) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.layout == nil {
		return fmt.Errorf("appender: '%s' has no layout", a.name)
	}
	a.started = true
	return nil
}

// Append implements Appender
func (a *WriterAppender) Append(ev *event.Event) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = a.layout.Render(buf.B, ev)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return ErrNotStarted
	}
	w := a.out
	if a.errOut != nil && ev.Level >= a.splitLevel {
		w = a.errOut
	}
	if _, err := w.Write(buf.B); err != nil {
		return fmt.Errorf("appender: '%s' write failed: %w", a.name, err)
	}
	return nil
}

// Flush implements Flusher for writers that buffer
func (a *WriterAppender) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, w := range []io.Writer{a.out, a.errOut} {
		if f, ok := w.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stop implements Appender
func (a *WriterAppender) Stop(_ time.Duration) error {
	a.mu.Lock()
	a.started = false
	a.mu.Unlock()
	return a.Flush()
}
