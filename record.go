// FILE: lixenwraith/logpipe/record.go
package logpipe

import (
	"context"
	"errors"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/internal/goid"
	"github.com/lixenwraith/logpipe/metrics"
	"github.com/lixenwraith/logpipe/queue"
)

// Frames between the user call site and capture: level method -> log -> capture
const (
	skipLocation = 3
	skipTrace    = 4
)

// log handles the core logging logic. skip counts wrappers between the
// user call site and the method that called log.
func (l *Logger) log(ctx context.Context, skip int, flags int64, level event.Level, depth int64, args ...any) error {
	if !l.state.IsInitialized.Load() {
		return ErrNotInitialized
	}

	cfg := l.getConfig()
	if int64(level) < cfg.Level {
		return nil
	}

	ev := l.capture(ctx, cfg, skip, flags, level, depth, args)
	return l.submit(ctx, ev)
}

// capture snapshots the call into an immutable event
func (l *Logger) capture(ctx context.Context, cfg *Config, skip int, flags int64, level event.Level, depth int64, args []any) *event.Event {
	ev := event.New(level, cfg.Name, args...)
	ev.Flags = flags
	if ctx != nil {
		ev.Context = event.FromContext(ctx)
	}
	if depth > 0 {
		ev.Trace = event.CaptureTrace(depth, skipTrace+skip)
	}
	if cfg.CaptureLocation {
		ev.Location = event.CaptureLocation(skipLocation + skip)
	}
	if cfg.CaptureGoroutine {
		ev.GoroutineID = goid.ID()
	}
	return ev
}

// submit hands ev to the current pipeline and accounts for the outcome
func (l *Logger) submit(ctx context.Context, ev *event.Event) error {
	l.state.Submitted.Add(1)

	p := l.pipeline.Load()
	if p == nil {
		l.state.Dropped.Add(1)
		l.state.UnreportedDrops.Add(1)
		l.observer().EventDropped(metrics.ReasonRejected)
		return ErrNotStarted
	}

	outcome, err := p.submitter.Submit(ctx, ev)
	for outcome == queue.Rejected && errors.Is(err, queue.ErrClosed) {
		// A restart closed this queue; follow the pipeline that replaced it
		next := l.pipeline.Load()
		if next == nil || next == p {
			break
		}
		p = next
		outcome, err = p.submitter.Submit(ctx, ev)
	}

	switch outcome {
	case queue.Enqueued:
		l.state.Enqueued.Add(1)
		l.observer().EventEnqueued()
	case queue.Discarded:
		l.state.Discarded.Add(1)
		l.observer().EventDropped(metrics.ReasonDiscarded)
	case queue.Delivered:
		l.state.DirectDelivered.Add(1)
	default:
		l.state.Dropped.Add(1)
		l.state.UnreportedDrops.Add(1)
		reason := metrics.ReasonRejected
		if errors.Is(err, queue.ErrTimeout) {
			reason = metrics.ReasonTimeout
		}
		l.observer().EventDropped(reason)
		if errors.Is(err, queue.ErrWouldDeadlock) {
			l.status.Warn(sourceProducer, "dispatcher logged into its own full queue", err,
				"level", ev.Level.String())
		}
	}
	return err
}
