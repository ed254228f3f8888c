// FILE: lixenwraith/logpipe/timer.go
package logpipe

import "time"

// newTimerSet starts the dispatcher tickers for cfg. Heartbeats are only
// scheduled when enabled, so heartbeatChan stays nil otherwise.
func newTimerSet(cfg *Config) *TimerSet {
	flushInterval := time.Duration(cfg.FlushIntervalMs) * time.Millisecond
	if flushInterval <= 0 {
		flushInterval = time.Duration(DefaultConfig().FlushIntervalMs) * time.Millisecond
	}
	timers := &TimerSet{flushTicker: time.NewTicker(flushInterval)}

	if cfg.HeartbeatLevel > 0 {
		interval := time.Duration(cfg.HeartbeatIntervalS) * time.Second
		if interval <= 0 {
			interval = time.Duration(DefaultConfig().HeartbeatIntervalS) * time.Second
		}
		timers.heartbeatTicker = time.NewTicker(interval)
		timers.heartbeatChan = timers.heartbeatTicker.C
	}
	return timers
}

// stop releases every ticker
func (t *TimerSet) stop() {
	t.flushTicker.Stop()
	if t.heartbeatTicker != nil {
		t.heartbeatTicker.Stop()
	}
}
