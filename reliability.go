// FILE: lixenwraith/logpipe/reliability.go
package logpipe

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
)

// AppenderRef binds an appender into a delivery with its own level threshold
// and filter chain
type AppenderRef struct {
	Appender appender.Appender
	Level    event.Level
	Filters  []appender.Filter
}

// Delivery is one immutable delivery configuration: the logger-level filter
// chain and the appenders events are routed to
type Delivery struct {
	Filters []appender.Filter
	Refs    []AppenderRef
}

// Appenders returns the appenders of every ref
func (d Delivery) Appenders() []appender.Appender {
	apps := make([]appender.Appender, 0, len(d.Refs))
	for _, ref := range d.Refs {
		if ref.Appender != nil {
			apps = append(apps, ref.Appender)
		}
	}
	return apps
}

// Reliability strategy states
const (
	strategyActive int32 = iota
	strategyStopping
	strategyStopped
)

// reliabilityStrategy guards one Delivery. Every delivery holds it between
// acquire and release; a retired strategy waits for those to finish before
// its appenders may be stopped.
type reliabilityStrategy struct {
	delivery Delivery

	state    atomic.Int32
	inFlight atomic.Int64
	idle     chan struct{}
	idleOnce sync.Once
}

func newReliabilityStrategy(d Delivery) *reliabilityStrategy {
	return &reliabilityStrategy{delivery: d, idle: make(chan struct{})}
}

// acquire registers a delivery; it fails once the strategy left ACTIVE
func (s *reliabilityStrategy) acquire() bool {
	s.inFlight.Add(1)
	if s.state.Load() != strategyActive {
		s.release()
		return false
	}
	return true
}

// release ends a delivery started by a successful acquire
func (s *reliabilityStrategy) release() {
	if s.inFlight.Add(-1) == 0 && s.state.Load() != strategyActive {
		s.signalIdle()
	}
}

func (s *reliabilityStrategy) signalIdle() {
	s.idleOnce.Do(func() { close(s.idle) })
}

// stop moves the strategy to STOPPING, waits up to timeout for in-flight
// deliveries and marks it STOPPED. It returns how many deliveries were still
// running when the wait gave up.
func (s *reliabilityStrategy) stop(timeout time.Duration) int64 {
	if !s.state.CompareAndSwap(strategyActive, strategyStopping) {
		return 0
	}
	if s.inFlight.Load() == 0 {
		s.signalIdle()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var stragglers int64
	select {
	case <-s.idle:
	case <-timer.C:
		stragglers = s.inFlight.Load()
	}
	s.state.Store(strategyStopped)
	return stragglers
}

// stateName returns the strategy state name
func (s *reliabilityStrategy) stateName() string {
	switch s.state.Load() {
	case strategyActive:
		return "ACTIVE"
	case strategyStopping:
		return "STOPPING"
	default:
		return "STOPPED"
	}
}

// acquireStrategy returns the current strategy with a delivery registered.
// A strategy retired between the load and the acquire has already been
// replaced, so the loop picks up its successor.
func (l *Logger) acquireStrategy() *reliabilityStrategy {
	for {
		s := l.strategy.Load()
		if s.acquire() {
			return s
		}
	}
}

// install swaps in d. Appenders new to the delivery are started first; the
// previous strategy is retired in the background so that in-flight
// deliveries finish before the appenders it no longer carries are stopped.
func (l *Logger) install(d Delivery) error {
	l.installMu.Lock()
	defer l.installMu.Unlock()

	old := l.strategy.Load()

	var started []appender.Appender
	for _, ref := range d.Refs {
		if ref.Appender == nil {
			return fmtErrorf("appender ref has no appender")
		}
		if containsAppender(old.delivery.Refs, ref.Appender) {
			continue
		}
		if err := ref.Appender.Start(); err != nil {
			for _, a := range started {
				_ = a.Stop(l.reconfigTimeout())
			}
			return fmtErrorf("failed to start appender '%s': %w", ref.Appender.Name(), err)
		}
		started = append(started, ref.Appender)
	}

	next := newReliabilityStrategy(d)
	l.strategy.Store(next)

	l.retiring.Add(1)
	go func() {
		defer l.retiring.Done()
		l.retire(old, next)
	}()
	return nil
}

// retire waits for deliveries on old to finish, then stops the appenders
// that next does not carry
func (l *Logger) retire(old, next *reliabilityStrategy) {
	timeout := l.reconfigTimeout()
	if stragglers := old.stop(timeout); stragglers > 0 {
		l.state.Stragglers.Add(uint64(stragglers))
		l.state.AppendFailures.Add(uint64(stragglers))
		l.status.Error(sourceReliability, "force-stopping appenders with deliveries in flight",
			fmtErrorf("reconfiguration timed out after %v", timeout),
			"in_flight", stragglers)
	}

	for _, ref := range old.delivery.Refs {
		if containsAppender(next.delivery.Refs, ref.Appender) {
			continue
		}
		if err := ref.Appender.Stop(timeout); err != nil {
			l.status.Warn(sourceReliability, "appender failed to stop", err, "appender", ref.Appender.Name())
		}
	}
}

// waitRetired blocks until every retired strategy finished stopping
func (l *Logger) waitRetired(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		l.retiring.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (l *Logger) reconfigTimeout() time.Duration {
	return time.Duration(l.getConfig().ReconfigTimeoutMs) * time.Millisecond
}
