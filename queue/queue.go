// FILE: lixenwraith/logpipe/queue/queue.go
// Package queue provides the bounded multi-producer, single-consumer event
// queues that connect logging callers to the dispatch goroutine, and the
// policies that decide what a producer does when a queue is full.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/logpipe/event"
)

var (
	// ErrFull reports that the queue has no free slot
	ErrFull = errors.New("queue: full")
	// ErrClosed reports that the queue no longer accepts events
	ErrClosed = errors.New("queue: closed")
	// ErrTimeout reports that a blocking enqueue gave up waiting for space
	ErrTimeout = errors.New("queue: timed out waiting for space")
	// ErrWouldDeadlock reports a blocking enqueue attempted by the consumer itself
	ErrWouldDeadlock = errors.New("queue: consumer cannot block on its own queue")
)

// Queue types
const (
	TypeRing   = "ring"
	TypeLocked = "locked"
)

// EventQueue is a bounded FIFO with exactly one consumer.
// TryEnqueue never blocks and never drops: it either accepts the event or
// reports ErrFull/ErrClosed. What happens next is decided by a FullPolicy.
type EventQueue interface {
	// TryEnqueue copies ev into the queue
	TryEnqueue(ev *event.Event) error
	// Drain appends up to max published events to dst in FIFO order (consumer only)
	Drain(dst []event.Event, max int) []event.Event
	// Len returns the number of occupied slots, including claimed but unpublished ones
	Len() int
	// Capacity returns the fixed slot count
	Capacity() int
	// Ready signals the consumer that events were published
	Ready() <-chan struct{}
	// SpaceAvailable returns a channel closed the next time the consumer frees slots
	SpaceAvailable() <-chan struct{}
	// Close stops accepting events; published events remain drainable
	Close()
	// Closed reports whether Close was called
	Closed() bool
	// Idle reports that the queue is closed, empty, and no producer that
	// passed the closed check is still writing into it
	Idle() bool
}

// New creates a queue of the given type and capacity
func New(queueType string, capacity int) (EventQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: capacity must be positive: %d", capacity)
	}
	switch queueType {
	case TypeRing, "":
		return NewRing(capacity), nil
	case TypeLocked:
		return NewLocked(capacity), nil
	default:
		return nil, fmt.Errorf("queue: unknown type '%s' (use ring or locked)", queueType)
	}
}

// notifier is a broadcast condition built on channel close.
// wait hands out the current channel; broadcast closes it and installs a new one.
type notifier struct {
	mu      sync.Mutex
	ch      chan struct{}
	waiting atomic.Bool
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{})}
}

// wait registers interest and returns the channel to select on.
// Callers must re-check their condition after calling wait.
func (n *notifier) wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waiting.Store(true)
	return n.ch
}

// broadcast wakes every registered waiter, skipping the allocation when none exist
func (n *notifier) broadcast() {
	if !n.waiting.Load() {
		return
	}
	n.mu.Lock()
	if n.waiting.Load() {
		n.waiting.Store(false)
		close(n.ch)
		n.ch = make(chan struct{})
	}
	n.mu.Unlock()
}

// signal performs a non-blocking send on a one-slot wake-up channel
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
