// FILE: lixenwraith/logpipe/reliability_test.go
package logpipe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
)

// failingStart is an appender that cannot start
type failingStart struct {
	*appender.ListAppender
}

func (failingStart) Start() error { return errors.New("no backend") }

func TestReliabilityStrategyStates(t *testing.T) {
	s := newReliabilityStrategy(Delivery{})
	assert.Equal(t, "ACTIVE", s.stateName())

	require.True(t, s.acquire())
	assert.Equal(t, int64(1), s.inFlight.Load())

	stopped := make(chan int64)
	go func() { stopped <- s.stop(time.Second) }()

	assert.Eventually(t, func() bool { return s.stateName() == "STOPPING" }, time.Second, time.Millisecond)
	assert.False(t, s.acquire(), "a stopping strategy accepts no new deliveries")

	s.release()
	assert.Equal(t, int64(0), <-stopped)
	assert.Equal(t, "STOPPED", s.stateName())

	// Stopping twice is a no-op
	assert.Equal(t, int64(0), s.stop(time.Second))
}

func TestReliabilityStrategyTimeout(t *testing.T) {
	s := newReliabilityStrategy(Delivery{})
	require.True(t, s.acquire())
	require.True(t, s.acquire())

	assert.Equal(t, int64(2), s.stop(10*time.Millisecond))
	assert.Equal(t, "STOPPED", s.stateName())
}

// TestReconfigurationSafety verifies a delivery in flight on the old
// configuration completes and its appender is stopped only afterwards
func TestReconfigurationSafety(t *testing.T) {
	g := newGate()
	logger, a := createTestLogger(t)
	defer logger.Shutdown()

	a.Hook = func(ev *event.Event) error {
		if len(ev.Args) == 1 && ev.Args[0] == "slow" {
			g.hold()
		}
		return nil
	}

	logger.Info("slow")
	g.waitEntered(t)

	b := appender.NewListAppender("b")
	require.NoError(t, logger.Install(Delivery{Refs: []AppenderRef{{Appender: b}}}))
	assert.Equal(t, 1, b.Starts())

	// The old delivery is still running inside A
	time.Sleep(50 * time.Millisecond)
	assert.False(t, a.Stopped(), "appender stopped while a delivery was in flight")

	logger.Info("after")
	close(g.release)

	require.NoError(t, logger.Flush(2*time.Second))
	require.True(t, logger.waitRetired(2*time.Second))

	assert.True(t, a.Stopped())
	assert.Equal(t, []string{"slow"}, a.Messages())
	assert.Equal(t, []string{"after"}, b.Messages())
	assert.Zero(t, logger.Stats().Stragglers)
}

// TestReconfigurationStragglers verifies the teardown gives up after reconfig_timeout_ms
func TestReconfigurationStragglers(t *testing.T) {
	g := newGate()
	logger, a := createTestLogger(t, func(cfg *Config) {
		cfg.ReconfigTimeoutMs = 20
	})
	defer logger.Shutdown()

	a.Hook = func(ev *event.Event) error {
		g.hold()
		return nil
	}

	logger.Info("stuck")
	g.waitEntered(t)

	require.NoError(t, logger.Install(Delivery{Refs: []AppenderRef{{Appender: appender.NewListAppender("b")}}}))
	require.True(t, logger.waitRetired(time.Second))

	assert.True(t, a.Stopped(), "stragglers do not keep the old appender alive")
	assert.Equal(t, uint64(1), logger.Stats().Stragglers)

	close(g.release)
	require.NoError(t, logger.Flush(time.Second))
}

// TestInstallCarriesAppenders verifies appenders present in both deliveries keep running
func TestInstallCarriesAppenders(t *testing.T) {
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	guarded := appender.Filtered(list, appender.ThresholdFilter{Level: event.LevelWarn})
	require.NoError(t, logger.Install(Delivery{Refs: []AppenderRef{{Appender: guarded}}}))
	require.True(t, logger.waitRetired(time.Second))

	assert.Equal(t, 1, list.Starts(), "carried appender must not be restarted")
	assert.False(t, list.Stopped())

	logger.Info("info")
	logger.Warn("warn")
	require.NoError(t, logger.Flush(time.Second))
	assert.Equal(t, []string{"warn"}, list.Messages())
}

// TestInstallStartFailure verifies a failed start leaves the current delivery in place
func TestInstallStartFailure(t *testing.T) {
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	extra := appender.NewListAppender("extra")
	broken := failingStart{appender.NewListAppender("broken")}
	err := logger.Install(Delivery{Refs: []AppenderRef{
		{Appender: list},
		{Appender: extra},
		{Appender: broken},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, extra.Stopped(), "appenders started for the failed install are stopped again")

	logger.Info("still delivered")
	require.NoError(t, logger.Flush(time.Second))
	assert.Equal(t, []string{"still delivered"}, list.Messages())
	assert.Zero(t, extra.Len())
}

// TestReconfigureKeepsProgrammaticAppenders verifies a config change keeps installed appenders
func TestReconfigureKeepsProgrammaticAppenders(t *testing.T) {
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	require.NoError(t, logger.Reconfigure(func(cfg *Config) {
		cfg.Name = "renamed"
		cfg.BufferSize = 256 // restarts the pipeline
	}))

	logger.Info("after reconfigure")
	require.NoError(t, logger.Flush(time.Second))

	events := list.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "renamed", events[0].Logger)
	assert.Equal(t, 256, logger.Stats().QueueCapacity)
	assert.Equal(t, 1, list.Starts())
}
