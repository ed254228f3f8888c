// FILE: lixenwraith/logpipe/metrics/metrics.go
// Package metrics defines the observation hooks the pipeline calls on its hot
// paths, with a no-op default and a Prometheus implementation.
package metrics

import "time"

// Drop reasons
const (
	ReasonDiscarded = "discarded"
	ReasonTimeout   = "timeout"
	ReasonRejected  = "rejected"
	ReasonShutdown  = "shutdown"
	ReasonFiltered  = "filtered"
)

// Observer receives pipeline measurements.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	EventEnqueued()
	EventDropped(reason string)
	EventDelivered(appender string, elapsed time.Duration)
	AppendFailed(appender string)
	BatchDrained(size int)
	QueueDepth(depth, capacity int)
	Rotation(path string, elapsed time.Duration, err error)
}

// Nop discards every observation
type Nop struct{}

func (Nop) EventEnqueued() {}
func (Nop) EventDropped(string) {}
func (Nop) EventDelivered(string, time.Duration) {}
func (Nop) AppendFailed(string) {}
func (Nop) BatchDrained(int) {}
func (Nop) QueueDepth(int, int) {}
func (Nop) Rotation(string, time.Duration, error) {}

var _ Observer = Nop{}

// OrNop returns o, or Nop when o is nil
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}
