// FILE: lixenwraith/logpipe/state.go
package logpipe

import (
	"sync"
	"sync/atomic"
	"time"
)

// State encapsulates the runtime state of the logger
type State struct {
	IsInitialized  atomic.Bool
	ShutdownCalled atomic.Bool
	Started        atomic.Bool

	flushMutex sync.Mutex // Serializes concurrent Flush calls

	// Event accounting; every submitted event ends up in exactly one of
	// Enqueued/Discarded/Dropped/DirectDelivered
	Submitted       atomic.Uint64
	Enqueued        atomic.Uint64
	DirectDelivered atomic.Uint64
	Discarded       atomic.Uint64
	Dropped         atomic.Uint64
	Processed       atomic.Uint64 // Events taken through the delivery path
	Filtered        atomic.Uint64 // Events denied by the logger-level filter chain
	Lost            atomic.Uint64 // Events still queued when shutdown timed out
	AppendFailures  atomic.Uint64
	Stragglers      atomic.Uint64 // Deliveries still in flight when a retired delivery was force-stopped

	// Drops not yet reported on the status channel
	UnreportedDrops atomic.Uint64

	// Heartbeat statistics
	HeartbeatSequence atomic.Uint64
	LoggerStartTime   atomic.Value // stores time.Time for uptime calculation
}

// Stats is a point-in-time copy of the logger counters
type Stats struct {
	Submitted       uint64
	Enqueued        uint64
	DirectDelivered uint64
	Discarded       uint64
	Dropped         uint64
	Processed       uint64
	Filtered        uint64
	Lost            uint64
	AppendFailures  uint64
	Stragglers      uint64
	QueueLen        int
	QueueCapacity   int
	Uptime          time.Duration
}

// Stats returns the current counters
func (l *Logger) Stats() Stats {
	s := Stats{
		Submitted:       l.state.Submitted.Load(),
		Enqueued:        l.state.Enqueued.Load(),
		DirectDelivered: l.state.DirectDelivered.Load(),
		Discarded:       l.state.Discarded.Load(),
		Dropped:         l.state.Dropped.Load(),
		Processed:       l.state.Processed.Load(),
		Filtered:        l.state.Filtered.Load(),
		Lost:            l.state.Lost.Load(),
		AppendFailures:  l.state.AppendFailures.Load(),
		Stragglers:      l.state.Stragglers.Load(),
	}
	if p := l.pipeline.Load(); p != nil {
		s.QueueLen = p.queue.Len()
		s.QueueCapacity = p.queue.Capacity()
	}
	if start, ok := l.state.LoggerStartTime.Load().(time.Time); ok && !start.IsZero() {
		s.Uptime = time.Since(start)
	}
	return s
}
