// FILE: lixenwraith/logpipe/queue/policy.go
package queue

import (
	"fmt"

	"github.com/lixenwraith/logpipe/event"
)

// Route is the decision of a FullPolicy for one event that found the queue full
type Route int

const (
	// RouteEnqueue waits for space and retries
	RouteEnqueue Route = iota
	// RouteDiscard drops the event and counts it
	RouteDiscard
	// RouteSynchronous delivers the event on the calling goroutine, bypassing the queue
	RouteSynchronous
	// RouteReject fails the call immediately
	RouteReject
)

// String returns the route name
func (r Route) String() string {
	switch r {
	case RouteEnqueue:
		return "enqueue"
	case RouteDiscard:
		return "discard"
	case RouteSynchronous:
		return "synchronous"
	case RouteReject:
		return "reject"
	default:
		return fmt.Sprintf("route(%d)", int(r))
	}
}

// Overflow policy names
const (
	PolicyBlock   = "block"
	PolicyDiscard = "discard"
	PolicyDirect  = "direct"
)

// FullPolicy decides what a producer does when the queue has no free slot.
// onConsumer reports whether the caller is the queue's own consumer goroutine.
type FullPolicy interface {
	Route(ev *event.Event, onConsumer bool) Route
	Name() string
}

// BlockPolicy makes producers wait for space.
// The consumer cannot wait on itself, so its calls are rejected instead.
type BlockPolicy struct{}

// Route implements FullPolicy
func (BlockPolicy) Route(_ *event.Event, onConsumer bool) Route {
	if onConsumer {
		return RouteReject
	}
	return RouteEnqueue
}

// Name implements FullPolicy
func (BlockPolicy) Name() string { return PolicyBlock }

// DiscardPolicy drops events below Threshold and blocks for the rest
type DiscardPolicy struct {
	Threshold event.Level
}

// Route implements FullPolicy
func (p DiscardPolicy) Route(ev *event.Event, onConsumer bool) Route {
	if ev.Level < p.Threshold {
		return RouteDiscard
	}
	return BlockPolicy{}.Route(ev, onConsumer)
}

// Name implements FullPolicy
func (DiscardPolicy) Name() string { return PolicyDiscard }

// DirectPolicy delivers synchronously when the consumer itself logs into a
// full queue, and blocks every other producer
type DirectPolicy struct{}

// Route implements FullPolicy
func (DirectPolicy) Route(_ *event.Event, onConsumer bool) Route {
	if onConsumer {
		return RouteSynchronous
	}
	return RouteEnqueue
}

// Name implements FullPolicy
func (DirectPolicy) Name() string { return PolicyDirect }

// NewFullPolicy builds the policy named by configuration
func NewFullPolicy(name string, threshold event.Level) (FullPolicy, error) {
	switch name {
	case PolicyBlock:
		return BlockPolicy{}, nil
	case PolicyDiscard:
		return DiscardPolicy{Threshold: threshold}, nil
	case PolicyDirect, "":
		return DirectPolicy{}, nil
	default:
		return nil, fmt.Errorf("queue: unknown overflow policy '%s' (use block, discard, or direct)", name)
	}
}
