// FILE: lixenwraith/logpipe/appender/appender_test.go
package appender

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/formatter"
	"github.com/lixenwraith/logpipe/rolling"
)

func newEvent(level event.Level, args ...any) *event.Event {
	ev := event.New(level, "", args...)
	ev.Time = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return ev
}

func plainLayout() Layout {
	return formatter.New().Type("txt").ShowTimestamp(false)
}

func TestEvaluate(t *testing.T) {
	accept := FilterFunc(func(*event.Event) Decision { return Accept })
	deny := FilterFunc(func(*event.Event) Decision { return Deny })
	neutral := FilterFunc(func(*event.Event) Decision { return Neutral })

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"NoFilters", nil, true},
		{"AllNeutral", []Filter{neutral, neutral}, true},
		{"DenyStops", []Filter{neutral, deny, accept}, false},
		{"AcceptContinues", []Filter{accept, deny}, false},
		{"AcceptThenNeutral", []Filter{accept, neutral}, true},
		{"NilSkipped", []Filter{nil, deny}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.filters, newEvent(event.LevelInfo)))
		})
	}
}

func TestBundledFilters(t *testing.T) {
	threshold := ThresholdFilter{Level: event.LevelWarn}
	assert.Equal(t, Deny, threshold.Decide(newEvent(event.LevelInfo)))
	assert.Equal(t, Neutral, threshold.Decide(newEvent(event.LevelError)))

	window := LevelRangeFilter{Min: event.LevelDebug, Max: event.LevelInfo, OnMatch: Accept}
	assert.Equal(t, Accept, window.Decide(newEvent(event.LevelDebug)))
	assert.Equal(t, Deny, window.Decide(newEvent(event.LevelWarn)))
	assert.Equal(t, Deny, window.Decide(newEvent(event.LevelTrace)))

	tenant := ContextFilter{Key: "tenant", Value: "acme", OnMatch: Accept, OnMismatch: Neutral}
	ev := newEvent(event.LevelDebug)
	assert.Equal(t, Neutral, tenant.Decide(ev))
	ev.Context = event.Context{}.With("tenant", "acme")
	assert.Equal(t, Accept, tenant.Decide(ev))
	ev.Context = event.Context{}.With("tenant", map[string]int{"x": 1})
	assert.Equal(t, Neutral, tenant.Decide(ev), "non-comparable values do not panic")

	// Accept from the tenant filter does not override a later threshold Deny
	chain := []Filter{tenant, threshold}
	ev.Context = event.Context{}.With("tenant", "acme")
	assert.False(t, Evaluate(chain, ev))
	ev.Level = event.LevelError
	assert.True(t, Evaluate(chain, ev))

	// Only the tenant's events pass when mismatches are denied
	only := ContextFilter{Key: "tenant", Value: "acme", OnMatch: Neutral, OnMismatch: Deny}
	assert.True(t, Evaluate([]Filter{only}, ev))
	ev.Context = event.Context{}
	assert.False(t, Evaluate([]Filter{only}, ev))

	assert.Equal(t, "DENY", Deny.String())
}

func TestFilteredAppender(t *testing.T) {
	list := NewListAppender("list")
	app := Filtered(list, ThresholdFilter{Level: event.LevelWarn})
	require.NoError(t, app.Start())

	require.NoError(t, app.Append(newEvent(event.LevelInfo, "dropped")))
	require.NoError(t, app.Append(newEvent(event.LevelError, "kept")))
	assert.Equal(t, []string{"kept"}, list.Messages())

	require.NoError(t, app.(Flusher).Flush())
	assert.Equal(t, 1, list.Flushes())
	assert.Same(t, Appender(list), Filtered(list))
}

func TestWriterAppender(t *testing.T) {
	var out, errOut bytes.Buffer
	app := NewWriterAppender("console", &out, plainLayout())

	ev := newEvent(event.LevelInfo, "before start")
	ev.Flags = 0
	assert.ErrorIs(t, app.Append(ev), ErrNotStarted)

	require.NoError(t, app.Start())
	app.Split(&errOut, event.LevelWarn)

	info := newEvent(event.LevelInfo, "hello")
	info.Flags = 0
	warn := newEvent(event.LevelWarn, "careful")
	warn.Flags = 0
	require.NoError(t, app.Append(info))
	require.NoError(t, app.Append(warn))

	assert.Equal(t, "INFO hello\n", out.String())
	assert.Equal(t, "WARN careful\n", errOut.String())
	require.NoError(t, app.Stop(time.Second))

	_, err := NewConsoleAppender("console", "printer", plainLayout())
	assert.Error(t, err)
	c, err := NewConsoleAppender("console", TargetSplit, plainLayout())
	require.NoError(t, err)
	assert.Equal(t, "console", c.Name())
}

func TestWriterAppenderConcurrentLines(t *testing.T) {
	var out bytes.Buffer
	app := NewWriterAppender("buf", &out, plainLayout())
	require.NoError(t, app.Start())

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				ev := newEvent(event.LevelInfo, "line")
				ev.Flags = 0
				assert.NoError(t, app.Append(ev))
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Len(t, lines, 1000)
	for _, l := range lines {
		assert.Equal(t, "INFO line", l)
	}
}

func TestRollingFileAppender(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	registry := rolling.NewRegistry()
	pattern, err := rolling.ParsePattern(filepath.Join(dir, "app.%i.log"))
	require.NoError(t, err)

	opts := FileOptions{
		Path:   path,
		Layout: plainLayout(),
		Rolling: rolling.Options{
			BufferSize: 4096,
			Policy:     rolling.SizePolicy{MaxSize: 1 << 20},
			Strategy:   rolling.FixedWindow{Pattern: pattern, Min: 1, Max: 3},
		},
		Registry: registry,
	}
	app := NewRollingFileAppender("file", opts)
	assert.ErrorIs(t, app.Append(newEvent(event.LevelInfo, "early")), ErrNotStarted)
	require.NoError(t, app.Start())

	first := newEvent(event.LevelInfo, "first")
	first.Flags = 0
	require.NoError(t, app.Append(first))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "buffered until the batch ends")

	last := newEvent(event.LevelInfo, "last")
	last.Flags = 0
	last.EndOfBatch = true
	require.NoError(t, app.Append(last))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "INFO first\nINFO last\n", string(data))

	// A second appender on the same path shares the manager
	other := NewRollingFileAppender("file-2", opts)
	require.NoError(t, other.Start())
	assert.Same(t, app.Manager(), other.Manager())
	assert.Equal(t, 1, registry.Len())

	require.NoError(t, app.Stop(time.Second))
	assert.Equal(t, 1, registry.Len())
	require.NoError(t, other.Stop(time.Second))
	assert.Equal(t, 0, registry.Len())
}

func startIngestServer(t *testing.T, status int) (*fasthttp.Client, <-chan []byte) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	bodies := make(chan []byte, 16)
	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Method()) != fasthttp.MethodPost || string(ctx.Path()) != "/ingest" {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				return
			}
			body := append([]byte(nil), ctx.PostBody()...)
			bodies <- body
			ctx.SetStatusCode(status)
		},
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})

	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
	return client, bodies
}

func TestHTTPAppender(t *testing.T) {
	client, bodies := startIngestServer(t, fasthttp.StatusAccepted)
	app := NewHTTPAppender("http", HTTPOptions{
		Endpoint: "http://logs.local/ingest",
		Layout:   formatter.New().Type("json"),
		Client:   client,
	})
	require.NoError(t, app.Start())

	for i, msg := range []string{"one", "two", "three"} {
		ev := newEvent(event.LevelInfo, msg)
		ev.EndOfBatch = i == 2
		require.NoError(t, app.Append(ev))
	}

	select {
	case body := <-bodies:
		lines := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
		require.Len(t, lines, 3)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
		assert.Equal(t, []any{"two"}, decoded["fields"])
	case <-time.After(5 * time.Second):
		t.Fatal("batch was not posted")
	}

	// Nothing pending means nothing posted
	require.NoError(t, app.Flush())
	assert.Empty(t, bodies)
	require.NoError(t, app.Stop(time.Second))
}

func TestHTTPAppenderRejected(t *testing.T) {
	client, _ := startIngestServer(t, fasthttp.StatusInternalServerError)
	app := NewHTTPAppender("http", HTTPOptions{
		Endpoint: "http://logs.local/ingest",
		Layout:   formatter.New().Type("json"),
		Client:   client,
	})
	require.NoError(t, app.Start())

	ev := newEvent(event.LevelError, "boom")
	ev.EndOfBatch = true
	err := app.Append(ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	assert.Error(t, NewHTTPAppender("bad", HTTPOptions{Layout: formatter.New()}).Start())
}

func TestListAppender(t *testing.T) {
	list := NewListAppender("list")
	require.NoError(t, list.Start())

	go func() {
		for i := 0; i < 3; i++ {
			_ = list.Append(newEvent(event.LevelInfo, "async", i))
		}
	}()
	require.True(t, list.WaitFor(3, 5*time.Second))
	assert.Equal(t, "async 0", list.Messages()[0])

	list.Hook = func(ev *event.Event) error {
		if ev.Level >= event.LevelError {
			return errors.New("rejected")
		}
		return nil
	}
	assert.Error(t, list.Append(newEvent(event.LevelError, "nope")))
	assert.Equal(t, 3, list.Len())

	require.NoError(t, list.Stop(time.Second))
	assert.True(t, list.Stopped())
	assert.False(t, list.WaitFor(10, 10*time.Millisecond))

	list.Reset()
	assert.Zero(t, list.Len())
	assert.Equal(t, 1, list.Starts())
}

func TestFlushAll(t *testing.T) {
	ok := NewListAppender("ok")
	failing := &failingFlusher{ListAppender: NewListAppender("bad")}
	errs := FlushAll([]Appender{ok, failing})
	assert.Len(t, errs, 1)
	assert.Error(t, errs["bad"])
	assert.Equal(t, 1, ok.Flushes())
}

type failingFlusher struct {
	*ListAppender
}

func (f *failingFlusher) Flush() error {
	return errors.New("disk gone")
}
