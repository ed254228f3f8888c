// FILE: lixenwraith/logpipe/appender/http.go
package appender

import (
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/logpipe/event"
)

const (
	defaultHTTPTimeout   = 5 * time.Second
	defaultMaxBatchBytes = 1 << 20
	ndjsonContentType    = "application/x-ndjson"
)

// HTTPOptions configures an HTTPAppender
type HTTPOptions struct {
	Endpoint string
	// Layout should emit one line per event; a json formatter is typical
	Layout  Layout
	Timeout time.Duration
	// MaxBatchBytes posts early when the pending body grows past it
	MaxBatchBytes int
	// Client defaults to a fasthttp.Client with Timeout as read/write timeout
	Client *fasthttp.Client
}

// HTTPAppender accumulates rendered events and posts them as one
// newline-delimited body per dispatcher batch
type HTTPAppender struct {
	name   string
	opts   HTTPOptions
	client *fasthttp.Client

	mu      sync.Mutex
	body    []byte
	pending int
	started bool
}

// NewHTTPAppender creates an HTTP appender
func NewHTTPAppender(name string, opts HTTPOptions) *HTTPAppender {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHTTPTimeout
	}
	if opts.MaxBatchBytes <= 0 {
		opts.MaxBatchBytes = defaultMaxBatchBytes
	}
	client := opts.Client
	if client == nil {
		client = &fasthttp.Client{
			Name:         "logpipe",
			ReadTimeout:  opts.Timeout,
			WriteTimeout: opts.Timeout,
		}
	}
	return &HTTPAppender{name: name, opts: opts, client: client}
}

// Name implements Appender
func (a *HTTPAppender) Name() string { return a.name }

// Start implements Appender
func (a *HTTPAppender) Start() error {
	if a.opts.Endpoint == "" {
		return fmt.Errorf("appender: '%s' has no endpoint", a.name)
	}
	if a.opts.Layout == nil {
		return fmt.Errorf("appender: '%s' has no layout", a.name)
	}
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
	return nil
}

// Append buffers ev and posts the batch when ev ends a dispatcher batch
func (a *HTTPAppender) Append(ev *event.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return ErrNotStarted
	}
	a.body = a.opts.Layout.Render(a.body, ev)
	a.pending++
	if ev.EndOfBatch || len(a.body) >= a.opts.MaxBatchBytes {
		return a.postLocked()
	}
	return nil
}

// Flush implements Flusher
func (a *HTTPAppender) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.postLocked()
}

// Stop posts any pending events
func (a *HTTPAppender) Stop(_ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.postLocked()
	a.started = false
	return err
}

// postLocked sends the pending body. A failed batch is discarded and its
// size reported in the error.
func (a *HTTPAppender) postLocked() error {
	if a.pending == 0 {
		return nil
	}
	count := a.pending
	defer func() {
		a.body = a.body[:0]
		a.pending = 0
	}()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(a.opts.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(ndjsonContentType)
	req.SetBody(a.body)

	if err := a.client.DoTimeout(req, resp, a.opts.Timeout); err != nil {
		return fmt.Errorf("appender: '%s' failed to post %d events: %w", a.name, count, err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("appender: '%s' endpoint rejected %d events with status %d", a.name, count, code)
	}
	return nil
}
