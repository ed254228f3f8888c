// FILE: lixenwraith/logpipe/queue/submit.go
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/lixenwraith/logpipe/event"
)

// Outcome reports what happened to a submitted event
type Outcome int

const (
	// Enqueued means the event is in the queue
	Enqueued Outcome = iota
	// Discarded means the policy dropped the event
	Discarded
	// Delivered means the event bypassed the queue and was delivered synchronously
	Delivered
	// Rejected means the event was not accepted; the error says why
	Rejected
)

// Submitter applies a FullPolicy around a queue's non-blocking enqueue
type Submitter struct {
	queue      EventQueue
	policy     FullPolicy
	timeout    time.Duration
	isConsumer func() bool
	direct     func(*event.Event) error
}

// NewSubmitter creates a submitter.
// isConsumer reports whether the calling goroutine is the queue consumer;
// direct delivers an event synchronously for RouteSynchronous.
// A zero timeout blocks until space is available or ctx ends.
func NewSubmitter(q EventQueue, p FullPolicy, timeout time.Duration, isConsumer func() bool, direct func(*event.Event) error) *Submitter {
	return &Submitter{
		queue:      q,
		policy:     p,
		timeout:    timeout,
		isConsumer: isConsumer,
		direct:     direct,
	}
}

// Queue returns the underlying queue
func (s *Submitter) Queue() EventQueue {
	return s.queue
}

// Policy returns the configured FullPolicy
func (s *Submitter) Policy() FullPolicy {
	return s.policy
}

// Submit enqueues ev, consulting the policy only when the queue is full
func (s *Submitter) Submit(ctx context.Context, ev *event.Event) (Outcome, error) {
	err := s.queue.TryEnqueue(ev)
	if err == nil {
		return Enqueued, nil
	}
	if !errors.Is(err, ErrFull) {
		return Rejected, err
	}

	onConsumer := s.isConsumer != nil && s.isConsumer()
	switch s.policy.Route(ev, onConsumer) {
	case RouteDiscard:
		return Discarded, nil
	case RouteSynchronous:
		if s.direct == nil {
			return Rejected, ErrWouldDeadlock
		}
		return Delivered, s.direct(ev)
	case RouteReject:
		return Rejected, ErrWouldDeadlock
	default:
		return s.block(ctx, ev)
	}
}

// block waits on the queue's space notification until the event fits
func (s *Submitter) block(ctx context.Context, ev *event.Event) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var expired <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		// Register before retrying so a drain between the two is not missed
		space := s.queue.SpaceAvailable()
		err := s.queue.TryEnqueue(ev)
		if err == nil {
			return Enqueued, nil
		}
		if !errors.Is(err, ErrFull) {
			return Rejected, err
		}

		select {
		case <-space:
		case <-expired:
			return Rejected, ErrTimeout
		case <-ctx.Done():
			return Rejected, ctx.Err()
		}
	}
}
