// FILE: lixenwraith/logpipe/logger.go
// Package logpipe is an asynchronous logging pipeline: producers capture
// events into a bounded queue, a dispatcher goroutine delivers them to
// appenders, and a rolling file sink rotates and compresses its output.
package logpipe

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/logpipe/metrics"
	"github.com/lixenwraith/logpipe/rolling"
	"github.com/lixenwraith/logpipe/status"
)

// Logger is the core struct that encapsulates all logger functionality
type Logger struct {
	currentConfig atomic.Value // stores *Config
	state         State
	initMu        sync.Mutex
	installMu     sync.Mutex

	pipeline atomic.Pointer[pipeline]
	strategy atomic.Pointer[reliabilityStrategy]
	retiring sync.WaitGroup

	status   *status.Channel
	observed atomic.Value // stores observerBox

	// Guarded by initMu
	configRefs []AppenderRef
	installed  Delivery
	compressor *rolling.Compressor
	registry   *rolling.Registry
}

// observerBox keeps the atomic.Value type stable across observer implementations
type observerBox struct {
	metrics.Observer
}

// NewLogger creates a new Logger instance with default settings
func NewLogger() *Logger {
	l := &Logger{
		status:   status.NewChannel(statusHistory),
		registry: rolling.DefaultRegistry,
	}

	l.currentConfig.Store(DefaultConfig())
	l.state.LoggerStartTime.Store(time.Now())
	l.observed.Store(observerBox{metrics.Nop{}})
	l.strategy.Store(newReliabilityStrategy(Delivery{}))

	return l
}

// ApplyConfig applies a validated configuration to the logger
// This is the primary way applications should configure the logger
func (l *Logger) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}

	if err := cfg.validate(); err != nil {
		return fmtErrorf("invalid configuration: %w", err)
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()

	return l.applyConfig(cfg.Clone())
}

// Reconfigure applies fn to a copy of the current configuration and applies the result
func (l *Logger) Reconfigure(fn func(cfg *Config)) error {
	cfg := l.GetConfig()
	fn(cfg)
	return l.ApplyConfig(cfg)
}

// GetConfig returns a copy of current configuration
func (l *Logger) GetConfig() *Config {
	return l.getConfig().Clone()
}

// Status returns the internal status channel
func (l *Logger) Status() *status.Channel {
	return l.status
}

// SetObserver installs the metrics observer; nil restores the no-op observer
func (l *Logger) SetObserver(o metrics.Observer) {
	l.observed.Store(observerBox{metrics.OrNop(o)})
}

func (l *Logger) observer() metrics.Observer {
	return l.observed.Load().(observerBox).Observer
}

// Install replaces the programmatic part of the delivery: appenders and
// filters added next to those built from the configuration. The swap is
// atomic; deliveries already running finish on the previous configuration
// before its appenders are stopped.
func (l *Logger) Install(d Delivery) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if err := l.install(l.merge(l.configRefs, d)); err != nil {
		return err
	}
	l.installed = d
	return nil
}

// merge combines configuration-built refs with the installed delivery
func (l *Logger) merge(configRefs []AppenderRef, d Delivery) Delivery {
	refs := make([]AppenderRef, 0, len(configRefs)+len(d.Refs))
	refs = append(refs, configRefs...)
	refs = append(refs, d.Refs...)
	return Delivery{Filters: d.Filters, Refs: refs}
}

// Start begins event processing. Safe to call multiple times
// Returns error if logger is not initialized
func (l *Logger) Start() error {
	if !l.state.IsInitialized.Load() {
		return ErrNotInitialized
	}

	if !l.state.Started.CompareAndSwap(false, true) {
		return nil
	}

	p, err := l.newPipeline(l.getConfig())
	if err != nil {
		l.state.Started.Store(false)
		return err
	}
	l.pipeline.Store(p)
	go l.processEvents(p)

	return nil
}

// Stop halts event processing. Can be restarted with Start()
// Queued events are delivered until the timeout (shutdown_timeout_ms by
// default); the rest are counted as lost. Returns nil if already stopped
func (l *Logger) Stop(timeout ...time.Duration) error {
	if !l.state.Started.CompareAndSwap(true, false) {
		return nil
	}

	p := l.pipeline.Swap(nil)
	if p == nil {
		return nil
	}

	return l.stopPipeline(p, l.shutdownTimeout(timeout))
}

// stopPipeline closes p's queue and waits for its dispatcher to drain it
func (l *Logger) stopPipeline(p *pipeline, timeout time.Duration) error {
	p.drainDeadline.Store(time.Now().Add(timeout))
	p.queue.Close()
	close(p.stop)

	if p.onConsumer() {
		// Stopped from an appender; the dispatcher exits after it returns
		return nil
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(timeout + 10*minWaitTime):
		return fmtErrorf("dispatcher did not exit within timeout (%v)", timeout)
	}
}

// restart replaces the running pipeline with one built from cfg.
// Producers move to the new queue as soon as it is installed, and the new
// dispatcher starts only after the old one has drained, so nothing is
// dropped and per-producer order holds across the swap.
func (l *Logger) restart(cfg *Config) error {
	old := l.pipeline.Load()
	if old == nil {
		return nil
	}

	p, err := l.newPipeline(cfg)
	if err != nil {
		return err
	}
	p.prev.Store(old)
	if !l.pipeline.CompareAndSwap(old, p) {
		// Stopped or restarted concurrently
		return nil
	}
	go l.processEvents(p)

	if err := l.stopPipeline(old, l.shutdownTimeout(nil)); err != nil {
		return fmtErrorf("failed to drain previous dispatcher: %w", err)
	}
	return nil
}

// Shutdown stops processing, stops every appender, and releases the file sink.
// If no timeout is provided, shutdown_timeout_ms is used
func (l *Logger) Shutdown(timeout ...time.Duration) error {
	if !l.state.ShutdownCalled.CompareAndSwap(false, true) {
		return nil
	}

	if !l.state.IsInitialized.Load() {
		l.state.ShutdownCalled.Store(false)
		return nil
	}

	effectiveTimeout := l.shutdownTimeout(timeout)
	stopErr := l.Stop(effectiveTimeout)

	l.initMu.Lock()
	installErr := l.install(Delivery{})
	l.configRefs = nil
	l.installed = Delivery{}
	compressor := l.compressor
	l.compressor = nil
	l.initMu.Unlock()

	var retireErr error
	if !l.waitRetired(effectiveTimeout + l.reconfigTimeout()) {
		retireErr = fmtErrorf("appenders did not stop within timeout (%v)", effectiveTimeout)
	}

	var compressErr error
	if compressor != nil {
		compressErr = compressor.Close(effectiveTimeout)
	}

	l.state.IsInitialized.Store(false)

	return combineErrors(stopErr, installErr, retireErr, compressErr)
}

// Flush delivers every event queued before the call, flushes the appenders,
// and waits for completion or timeout
func (l *Logger) Flush(timeout time.Duration) error {
	l.state.flushMutex.Lock()
	defer l.state.flushMutex.Unlock()

	if !l.state.IsInitialized.Load() || l.state.ShutdownCalled.Load() {
		return fmtErrorf("logger not initialized or already shut down")
	}
	p := l.pipeline.Load()
	if p == nil {
		return ErrNotStarted
	}

	if p.onConsumer() {
		l.flushAppenders()
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		err := l.flushPipeline(p, timer.C, timeout)
		if !errors.Is(err, errDispatcherStopped) {
			return err
		}
		// A restart drained p; flush its successor
		next := l.pipeline.Load()
		if next == nil || next == p {
			return err
		}
		p = next
	}
}

func (l *Logger) flushPipeline(p *pipeline, expired <-chan time.Time, timeout time.Duration) error {
	confirmChan := make(chan struct{})

	select {
	case p.flushRequests <- confirmChan:
	case <-p.done:
		return errDispatcherStopped
	case <-expired:
		return fmtErrorf("failed to send flush request to dispatcher (possible deadlock or high load)")
	}

	select {
	case <-confirmChan:
		return nil
	case <-p.done:
		return errDispatcherStopped
	case <-expired:
		return fmtErrorf("timeout waiting for flush confirmation (%v)", timeout)
	}
}

// getConfig returns the current configuration (thread-safe)
func (l *Logger) getConfig() *Config {
	return l.currentConfig.Load().(*Config)
}

func (l *Logger) shutdownTimeout(timeout []time.Duration) time.Duration {
	if len(timeout) > 0 && timeout[0] > 0 {
		return timeout[0]
	}
	return time.Duration(l.getConfig().ShutdownTimeoutMs) * time.Millisecond
}

// applyConfig is the internal implementation for applying configuration, assuming initMu is held
func (l *Logger) applyConfig(cfg *Config) error {
	oldCfg := l.getConfig()
	wasInitialized := l.state.IsInitialized.Load()

	l.currentConfig.Store(cfg)
	l.status.SetEcho(cfg.InternalErrorsToStderr)

	configRefs, err := l.buildAppenders(cfg)
	if err != nil {
		l.currentConfig.Store(oldCfg) // Rollback
		return err
	}

	// Live swap; appenders carried over keep running
	if err := l.install(l.merge(configRefs, l.installed)); err != nil {
		l.currentConfig.Store(oldCfg) // Rollback
		return err
	}
	l.configRefs = configRefs

	l.state.IsInitialized.Store(true)
	l.state.ShutdownCalled.Store(false)

	// Queue shape changes need a new pipeline
	if wasInitialized && l.state.Started.Load() && configRequiresRestart(oldCfg, cfg) {
		return l.restart(cfg)
	}

	return nil
}

// SaveConfig writes the current configuration to path
func (l *Logger) SaveConfig(path string) error {
	return SaveConfig(l.getConfig(), path)
}

// LoadConfig loads path, applies overrides on top and applies the result
func (l *Logger) LoadConfig(path string, overrides ...string) error {
	cfg, err := NewConfigFromFile(path)
	if err != nil {
		return err
	}
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err == nil {
			err = applyConfigField(cfg, key, value)
		}
		if err != nil {
			return err
		}
	}
	return l.ApplyConfig(cfg)
}
