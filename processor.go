// FILE: lixenwraith/logpipe/processor.go
package logpipe

import (
	"fmt"
	"time"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/internal/goid"
	"github.com/lixenwraith/logpipe/metrics"
	"github.com/lixenwraith/logpipe/queue"
)

// newPipeline builds the queue and overflow handling described by cfg
func (l *Logger) newPipeline(cfg *Config) (*pipeline, error) {
	q, err := queue.New(cfg.QueueType, int(cfg.BufferSize))
	if err != nil {
		return nil, fmtErrorf("failed to create queue: %w", err)
	}
	policy, err := queue.NewFullPolicy(cfg.OverflowPolicy, event.Level(cfg.DiscardLevel))
	if err != nil {
		return nil, fmtErrorf("failed to create overflow policy: %w", err)
	}

	batchSize := int(cfg.BatchSize)
	if batchSize > q.Capacity() {
		batchSize = q.Capacity()
	}

	p := &pipeline{
		queue:         q,
		batchSize:     batchSize,
		flushRequests: make(chan chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		batch:         make([]event.Event, 0, batchSize),
	}
	blockTimeout := time.Duration(cfg.BlockTimeoutMs) * time.Millisecond
	p.submitter = queue.NewSubmitter(q, policy, blockTimeout, p.onConsumer, l.deliverDirect)
	return p, nil
}

// onConsumer reports whether the calling goroutine is this pipeline's
// dispatcher, or the dispatcher of the pipeline it replaced while that one
// is still draining
func (p *pipeline) onConsumer() bool {
	own := p.consumerID.Load()
	prev := p.prev.Load()
	if own == 0 && prev == nil {
		return false
	}
	id := goid.ID()
	if own != 0 && own == id {
		return true
	}
	return prev != nil && prev.consumerID.Load() == id
}

// processEvents is the dispatcher loop running in its own goroutine
func (l *Logger) processEvents(p *pipeline) {
	defer close(p.done)
	p.consumerID.Store(goid.ID())

	// Keep delivery order across a restart
	if prev := p.prev.Load(); prev != nil {
		<-prev.done
		p.prev.Store(nil)
	}

	timers := newTimerSet(l.getConfig())
	defer timers.stop()

	// Send initial heartbeats immediately instead of waiting for first tick
	if l.getConfig().HeartbeatLevel > 0 {
		l.handleHeartbeat()
	}

	// A full batch means more may be waiting; poll again without a signal
	again := make(chan struct{})
	close(again)
	wake := p.queue.Ready()

	for {
		// A pending stop takes priority over queued work
		select {
		case <-p.stop:
			l.drainOnShutdown(p)
			return
		default:
		}

		select {
		case <-wake:
			if l.dispatchBatch(p) == p.batchSize {
				wake = again
			} else {
				wake = p.queue.Ready()
			}

		case <-timers.flushTicker.C:
			l.handleFlushTick()

		case confirm := <-p.flushRequests:
			l.handleFlushRequest(p, confirm)

		case <-timers.heartbeatChan:
			l.handleHeartbeat()

		case <-p.stop:
			l.drainOnShutdown(p)
			return
		}
	}
}

// dispatchBatch drains up to one batch, delivers it and flushes the
// appenders. It returns the batch size.
func (l *Logger) dispatchBatch(p *pipeline) int {
	batch := p.queue.Drain(p.batch[:0], p.batchSize)
	p.batch = batch
	n := len(batch)
	if n == 0 {
		return 0
	}

	batch[n-1].EndOfBatch = true
	for i := range batch {
		l.deliver(&batch[i])
		batch[i].Reset()
	}
	l.flushAppenders()

	obs := l.observer()
	obs.BatchDrained(n)
	obs.QueueDepth(p.queue.Len(), p.queue.Capacity())
	return n
}

// deliver routes ev through the current delivery configuration
func (l *Logger) deliver(ev *event.Event) {
	s := l.acquireStrategy()
	defer s.release()

	l.state.Processed.Add(1)
	if !appender.Evaluate(s.delivery.Filters, ev) {
		l.state.Filtered.Add(1)
		l.observer().EventDropped(metrics.ReasonFiltered)
		return
	}

	for i := range s.delivery.Refs {
		ref := &s.delivery.Refs[i]
		if ev.Level < ref.Level || !appender.Evaluate(ref.Filters, ev) {
			continue
		}
		l.safeAppend(ref.Appender, ev)
	}
}

// deliverDirect delivers on the calling goroutine when the dispatcher logs
// into its own full queue
func (l *Logger) deliverDirect(ev *event.Event) error {
	c := ev.Clone()
	c.EndOfBatch = true
	l.deliver(c)
	return nil
}

// safeAppend isolates one appender: errors and panics are counted and
// reported, and never reach the other appenders
func (l *Logger) safeAppend(a appender.Appender, ev *event.Event) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.appendFailed(a, fmtErrorf("appender panicked: %v", r))
		}
	}()

	if err := a.Append(ev); err != nil {
		l.appendFailed(a, err)
		return
	}
	l.observer().EventDelivered(a.Name(), time.Since(start))
}

func (l *Logger) appendFailed(a appender.Appender, err error) {
	l.state.AppendFailures.Add(1)
	l.observer().AppendFailed(a.Name())
	l.status.Error(sourceDispatcher, "appender failed", err, "appender", a.Name())
}

// flushAppenders flushes every buffering appender of the current delivery
func (l *Logger) flushAppenders() {
	s := l.acquireStrategy()
	defer s.release()

	for name, err := range appender.FlushAll(s.delivery.Appenders()) {
		l.status.Error(sourceDispatcher, "appender flush failed", err, "appender", name)
	}
}

// handleFlushTick handles the periodic flush timer tick
func (l *Logger) handleFlushTick() {
	l.flushAppenders()
	l.reportDrops()
}

// handleFlushRequest delivers everything already published, flushes, and
// confirms back to the Flush caller
func (l *Logger) handleFlushRequest(p *pipeline, confirm chan struct{}) {
	for remaining := p.queue.Len(); remaining > 0; {
		n := l.dispatchBatch(p)
		if n == 0 {
			break
		}
		remaining -= n
	}
	l.flushAppenders()
	close(confirm)
}

// drainOnShutdown delivers what the closed queue still holds until the drain
// deadline; the remainder is counted as lost. Producers that passed the
// closed check before Close are waited for, so their events are delivered
// or counted.
func (l *Logger) drainOnShutdown(p *pipeline) {
	deadline, _ := p.drainDeadline.Load().(time.Time)

	for time.Now().Before(deadline) {
		if l.dispatchBatch(p) > 0 {
			continue
		}
		if p.queue.Idle() {
			break
		}
		// Slots claimed by producers but not yet published
		select {
		case <-p.queue.Ready():
		case <-time.After(minWaitTime):
		}
	}

	if lost := p.queue.Len(); lost > 0 {
		l.state.Lost.Add(uint64(lost))
		obs := l.observer()
		for i := 0; i < lost; i++ {
			obs.EventDropped(metrics.ReasonShutdown)
		}
		l.status.Error(sourceDispatcher, "events lost at shutdown",
			fmt.Errorf("drain deadline passed with %d events queued", lost), "count", lost)
	}

	l.flushAppenders()
	l.reportDrops()
}

// reportDrops publishes the drops accumulated since the last report
func (l *Logger) reportDrops() {
	if n := l.state.UnreportedDrops.Swap(0); n > 0 {
		l.status.Warn(sourceProducer, "events dropped", nil, "count", n)
	}
}
