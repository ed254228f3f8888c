// FILE: lixenwraith/logpipe/appender/file.go
package appender

import (
	"fmt"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/rolling"
)

// FileOptions configures a RollingFileAppender
type FileOptions struct {
	Path   string
	Layout Layout
	// Rolling carries the triggering policy, strategy and file options
	Rolling rolling.Options
	// ImmediateFlush flushes after every event instead of at batch end
	ImmediateFlush bool
	// Registry shares managers by path; rolling.DefaultRegistry when nil
	Registry *rolling.Registry
}

// RollingFileAppender writes rendered events through a shared rolling.Manager
type RollingFileAppender struct {
	name string
	opts FileOptions

	mu      sync.RWMutex
	manager *rolling.Manager
}

// NewRollingFileAppender creates an appender; the file is opened by Start
func NewRollingFileAppender(name string, opts FileOptions) *RollingFileAppender {
	if opts.Registry == nil {
		opts.Registry = rolling.DefaultRegistry
	}
	return &RollingFileAppender{name: name, opts: opts}
}

// Name implements Appender
func (a *RollingFileAppender) Name() string { return a.name }

// Path returns the active file path
func (a *RollingFileAppender) Path() string { return a.opts.Path }

// Start acquires the manager for the configured path
func (a *RollingFileAppender) Start() error {
	if a.opts.Layout == nil {
		return fmt.Errorf("appender: '%s' has no layout", a.name)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.manager != nil {
		return nil
	}
	m, err := a.opts.Registry.Acquire(a.opts.Path, a.opts.Rolling)
	if err != nil {
		return fmt.Errorf("appender: '%s' failed to open file: %w", a.name, err)
	}
	a.manager = m
	return nil
}

// Manager returns the underlying manager, nil before Start
func (a *RollingFileAppender) Manager() *rolling.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.manager
}

// Append implements Appender
func (a *RollingFileAppender) Append(ev *event.Event) error {
	a.mu.RLock()
	m := a.manager
	a.mu.RUnlock()
	if m == nil {
		return ErrNotStarted
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = a.opts.Layout.Render(buf.B, ev)

	if _, err := m.Write(buf.B); err != nil {
		return err
	}
	if a.opts.ImmediateFlush || ev.EndOfBatch {
		return m.Flush()
	}
	return nil
}

// Flush implements Flusher
func (a *RollingFileAppender) Flush() error {
	if m := a.Manager(); m != nil {
		return m.Flush()
	}
	return nil
}

// Stop flushes and releases the manager
func (a *RollingFileAppender) Stop(_ time.Duration) error {
	a.mu.Lock()
	m := a.manager
	a.manager = nil
	a.mu.Unlock()
	if m == nil {
		return nil
	}
	if err := m.Flush(); err != nil {
		_ = a.opts.Registry.Release(a.opts.Path)
		return err
	}
	return a.opts.Registry.Release(a.opts.Path)
}
