// FILE: lixenwraith/logpipe/queue/ring.go
package queue

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/lixenwraith/logpipe/event"
)

// slot is one preallocated event cell.
// seq == pos means free for the producer claiming pos,
// seq == pos+1 means published and readable by the consumer at pos,
// seq == pos+size means consumed and free for the next lap.
// With a single slot the published value of pos equals the free value of
// pos+1, so Claim also bounds tail against head.
type slot struct {
	seq atomic.Uint64
	ev  event.Event
}

// Ring is a preallocated slot arena with per-slot sequence numbers.
// Producers claim a position with a CAS on tail, write the slot, then publish
// by advancing the slot sequence. The single consumer advances head.
type Ring struct {
	_    cpu.CacheLinePad
	tail atomic.Uint64
	_    cpu.CacheLinePad
	head atomic.Uint64
	_    cpu.CacheLinePad

	size   uint64
	slots  []slot
	closed atomic.Bool
	ready  chan struct{}
	space  *notifier

	// Producers between the closed check and Publish or abandonment
	inflight atomic.Int64
}

// NewRing creates a ring with exactly capacity slots
func NewRing(capacity int) *Ring {
	r := &Ring{
		size:  uint64(capacity),
		slots: make([]slot, capacity),
		ready: make(chan struct{}, 1),
		space: newNotifier(),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

// Reservation is a claimed but not yet published slot
type Reservation struct {
	ring *Ring
	slot *slot
	pos  uint64
}

// Event returns the slot payload for in-place writing
func (rv Reservation) Event() *event.Event {
	return &rv.slot.ev
}

// Publish makes the slot visible to the consumer
func (rv Reservation) Publish() {
	rv.slot.seq.Store(rv.pos + 1)
	rv.ring.inflight.Add(-1)
	signal(rv.ring.ready)
}

// Claim reserves the next slot for a zero-copy write.
// Every successful Claim must be followed by Publish.
func (r *Ring) Claim() (Reservation, error) {
	// Announce before checking closed; Idle reads them in the opposite order
	r.inflight.Add(1)
	if r.closed.Load() {
		r.inflight.Add(-1)
		return Reservation{}, ErrClosed
	}
	pos := r.tail.Load()
	for {
		s := &r.slots[pos%r.size]
		seq := s.seq.Load()
		switch dif := int64(seq) - int64(pos); {
		case dif == 0:
			if pos >= r.head.Load()+r.size {
				r.inflight.Add(-1)
				return Reservation{}, ErrFull
			}
			if r.tail.CompareAndSwap(pos, pos+1) {
				return Reservation{ring: r, slot: s, pos: pos}, nil
			}
			pos = r.tail.Load()
		case dif < 0:
			// Slot still holds the event from one lap ago
			r.inflight.Add(-1)
			return Reservation{}, ErrFull
		default:
			pos = r.tail.Load()
		}
	}
}

// TryEnqueue copies ev into the next free slot
func (r *Ring) TryEnqueue(ev *event.Event) error {
	rv, err := r.Claim()
	if err != nil {
		return err
	}
	rv.slot.ev = *ev
	rv.Publish()
	return nil
}

// Drain moves published events into dst, stopping at the first unpublished slot
func (r *Ring) Drain(dst []event.Event, max int) []event.Event {
	drained := 0
	for drained < max {
		pos := r.head.Load()
		s := &r.slots[pos%r.size]
		if s.seq.Load() != pos+1 {
			break
		}
		dst = append(dst, s.ev)
		s.ev.Reset()
		// head first, so a producer that sees the slot free also sees the room
		r.head.Store(pos + 1)
		s.seq.Store(pos + r.size)
		drained++
	}
	if drained > 0 {
		r.space.broadcast()
	}
	return dst
}

// Len returns claimed minus consumed positions
func (r *Ring) Len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Idle reports whether the ring is closed, fully drained, and no producer
// can still publish into it
func (r *Ring) Idle() bool {
	return r.closed.Load() && r.inflight.Load() == 0 && r.Len() == 0
}

// Capacity returns the slot count
func (r *Ring) Capacity() int {
	return int(r.size)
}

// Ready signals published events
func (r *Ring) Ready() <-chan struct{} {
	return r.ready
}

// SpaceAvailable returns a channel closed after the next drain that frees slots
func (r *Ring) SpaceAvailable() <-chan struct{} {
	return r.space.wait()
}

// Close rejects further claims and wakes blocked producers
func (r *Ring) Close() {
	if r.closed.CompareAndSwap(false, true) {
		r.space.waiting.Store(true)
		r.space.broadcast()
		signal(r.ready)
	}
}

// Closed reports whether Close was called
func (r *Ring) Closed() bool {
	return r.closed.Load()
}
