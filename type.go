// FILE: lixenwraith/logpipe/type.go
package logpipe

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/queue"
)

// pipeline is one started queue and its dispatcher goroutine.
// A restart replaces the whole pipeline.
type pipeline struct {
	queue     queue.EventQueue
	submitter *queue.Submitter
	batchSize int

	// Goroutine id of the dispatcher, 0 until it runs
	consumerID atomic.Uint64
	// Pipeline replaced by a restart; dispatch waits until it has drained
	prev atomic.Pointer[pipeline]

	flushRequests chan chan struct{}
	stop          chan struct{}
	done          chan struct{}
	// Deadline for draining after stop, stored before stop is closed
	drainDeadline atomic.Value // time.Time

	batch []event.Event
}

// TimerSet holds all timers used in processEvents
type TimerSet struct {
	flushTicker     *time.Ticker
	heartbeatTicker *time.Ticker
	heartbeatChan   <-chan time.Time
}
