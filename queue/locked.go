// FILE: lixenwraith/logpipe/queue/locked.go
package queue

import (
	"sync"

	"github.com/lixenwraith/logpipe/event"
)

// Locked is a mutex-guarded bounded ring of owned events.
// It satisfies the same contract as Ring with a simpler hot path.
type Locked struct {
	mu     sync.Mutex
	buf    []event.Event
	head   int
	count  int
	closed bool
	ready  chan struct{}
	space  *notifier
}

// NewLocked creates a locked queue with the given capacity
func NewLocked(capacity int) *Locked {
	return &Locked{
		buf:   make([]event.Event, capacity),
		ready: make(chan struct{}, 1),
		space: newNotifier(),
	}
}

// TryEnqueue copies ev into the queue
func (q *Locked) TryEnqueue(ev *event.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if q.count == len(q.buf) {
		q.mu.Unlock()
		return ErrFull
	}
	q.buf[(q.head+q.count)%len(q.buf)] = *ev
	q.count++
	q.mu.Unlock()

	signal(q.ready)
	return nil
}

// Drain moves up to max events into dst
func (q *Locked) Drain(dst []event.Event, max int) []event.Event {
	q.mu.Lock()
	n := q.count
	if n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		idx := (q.head + i) % len(q.buf)
		dst = append(dst, q.buf[idx])
		q.buf[idx].Reset()
	}
	q.head = (q.head + n) % len(q.buf)
	q.count -= n
	q.mu.Unlock()

	if n > 0 {
		q.space.broadcast()
	}
	return dst
}

// Len returns the number of queued events
func (q *Locked) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity returns the fixed capacity
func (q *Locked) Capacity() int {
	return len(q.buf)
}

// Ready signals queued events
func (q *Locked) Ready() <-chan struct{} {
	return q.ready
}

// SpaceAvailable returns a channel closed after the next drain that frees slots
func (q *Locked) SpaceAvailable() <-chan struct{} {
	return q.space.wait()
}

// Close rejects further events and wakes blocked producers
func (q *Locked) Close() {
	q.mu.Lock()
	wasClosed := q.closed
	q.closed = true
	q.mu.Unlock()

	if !wasClosed {
		q.space.waiting.Store(true)
		q.space.broadcast()
		signal(q.ready)
	}
}

// Idle reports whether the queue is closed and empty
func (q *Locked) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && q.count == 0
}

// Closed reports whether Close was called
func (q *Locked) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
