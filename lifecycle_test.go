// FILE: lixenwraith/logpipe/lifecycle_test.go
package logpipe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/queue"
)

func TestStartStopLifecycle(t *testing.T) {
	logger, list := createTestLogger(t) // Starts the logger by default

	assert.True(t, logger.state.Started.Load(), "Logger should be in a started state")

	logger.Info("before stop")
	err := logger.Stop()
	require.NoError(t, err)
	assert.False(t, logger.state.Started.Load(), "Logger should be in a stopped state after Stop()")
	assert.Equal(t, 1, list.Len(), "Stop delivers queued events")

	// Start it again
	err = logger.Start()
	require.NoError(t, err)
	assert.True(t, logger.state.Started.Load(), "Logger should be in a started state after restart")

	logger.Info("after restart")
	require.NoError(t, logger.Flush(time.Second))
	assert.Equal(t, []string{"before stop", "after restart"}, list.Messages())

	require.NoError(t, logger.Shutdown())
}

func TestStartBeforeConfig(t *testing.T) {
	logger := NewLogger()
	assert.ErrorIs(t, logger.Start(), ErrNotInitialized)
	assert.NoError(t, logger.Shutdown(), "shutting down an unconfigured logger is a no-op")
}

func TestStartAlreadyStarted(t *testing.T) {
	logger, _ := createTestLogger(t)
	defer logger.Shutdown()

	p := logger.pipeline.Load()

	// Calling Start() on an already started logger should be a no-op and return no error
	err := logger.Start()
	assert.NoError(t, err)
	assert.True(t, logger.state.Started.Load())
	assert.Same(t, p, logger.pipeline.Load())
}

func TestStopAlreadyStopped(t *testing.T) {
	logger, _ := createTestLogger(t)
	defer logger.Shutdown()

	require.NoError(t, logger.Stop())

	// Calling Stop() on an already stopped logger should be a no-op and return no error
	assert.NoError(t, logger.Stop())
	assert.False(t, logger.state.Started.Load())
}

func TestStopReconfigureRestart(t *testing.T) {
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	require.NoError(t, logger.Stop())
	require.NoError(t, logger.ApplyConfigString("queue_type=locked", "name=restarted"))
	assert.False(t, logger.state.Started.Load(), "ApplyConfig never starts a stopped logger")

	require.NoError(t, logger.Start())
	logger.Info("restarted")
	require.NoError(t, logger.Flush(time.Second))

	events := list.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "restarted", events[0].Logger)
}

func TestShutdownStopsAppenders(t *testing.T) {
	logger, list := createTestLogger(t)

	for i := 0; i < 10; i++ {
		logger.Info(i)
	}
	require.NoError(t, logger.Shutdown(time.Second))

	assert.Equal(t, 10, list.Len())
	assert.True(t, list.Stopped())
	assert.False(t, logger.state.IsInitialized.Load())
	assert.False(t, logger.state.Started.Load())

	// Idempotent
	assert.NoError(t, logger.Shutdown())

	// Logging after shutdown is a silent no-op
	assert.NotPanics(t, func() { logger.Info("late") })
	assert.Equal(t, 10, list.Len())
}

func TestReinitializeAfterShutdown(t *testing.T) {
	logger, _ := createTestLogger(t)
	require.NoError(t, logger.Shutdown())

	require.NoError(t, logger.ApplyConfig(testConfig()))
	require.NoError(t, logger.Start())
	defer logger.Shutdown()

	assert.True(t, logger.state.IsInitialized.Load())
	assert.False(t, logger.state.ShutdownCalled.Load())
	assert.NoError(t, logger.Flush(time.Second))
}

func TestStopFromAppender(t *testing.T) {
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	stopped := make(chan error, 1)
	list.Hook = func(ev *event.Event) error {
		stopped <- logger.Stop()
		return nil
	}

	logger.Info("trigger")
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop called on the dispatcher deadlocked")
	}
	assert.Eventually(t, func() bool { return list.Len() == 1 }, time.Second, time.Millisecond)
}

func TestQueueReconfigureUnderLoad(t *testing.T) {
	for _, queueType := range []string{"ring", "locked"} {
		t.Run(queueType, func(t *testing.T) {
			logger, list := createTestLogger(t, func(cfg *Config) {
				cfg.OverflowPolicy = "block"
				cfg.QueueType = queueType
				cfg.BufferSize = 16
			})
			defer logger.Shutdown()

			const producers = 4
			var stop atomic.Bool
			var wg sync.WaitGroup
			sent := make([]int, producers)
			for p := 0; p < producers; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < 20000 && !stop.Load(); i++ {
						if !assert.NoError(t, logger.Submit(context.Background(), LevelInfo, p, i)) {
							return
						}
						sent[p]++
					}
				}(p)
			}

			for i := 0; i < 20; i++ {
				require.NoError(t, logger.Reconfigure(func(cfg *Config) {
					cfg.BufferSize = int64(16 + i)
					cfg.BatchSize = int64(1 + i%4)
				}))
				time.Sleep(2 * time.Millisecond)
			}
			stop.Store(true)
			wg.Wait()
			require.NoError(t, logger.Flush(2*time.Second))

			stats := logger.Stats()
			assert.Zero(t, stats.Dropped)
			assert.Zero(t, stats.Lost)
			assert.Equal(t, stats.Submitted, stats.Enqueued)
			assert.Equal(t, stats.Submitted, stats.Processed)

			// Every event arrives once, in per-producer order
			next := make([]int, producers)
			for _, ev := range list.Events() {
				p, i := ev.Args[0].(int), ev.Args[1].(int)
				require.Equal(t, next[p], i, "producer %d out of order", p)
				next[p]++
			}
			assert.Equal(t, sent, next)
		})
	}
}

func TestRestartKeepsPipelineLive(t *testing.T) {
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	before := logger.pipeline.Load()
	logger.Info("old queue")
	require.NoError(t, logger.ApplyConfigString("buffer_size=64"))

	after := logger.pipeline.Load()
	require.NotNil(t, after)
	assert.NotSame(t, before, after)
	assert.True(t, logger.state.Started.Load())
	assert.Equal(t, 64, after.queue.Capacity())

	logger.Info("new queue")
	require.NoError(t, logger.Flush(time.Second))
	assert.Equal(t, []string{"old queue", "new queue"}, list.Messages())
}

func TestStopWaitsForClaimedSlots(t *testing.T) {
	logger, list := createTestLogger(t, func(cfg *Config) { cfg.QueueType = "ring" })
	defer logger.Shutdown()

	p := logger.pipeline.Load()
	ring := p.queue.(*queue.Ring)

	// A producer holding a claim when the queue closes
	rv, err := ring.Claim()
	require.NoError(t, err)

	stopped := make(chan error, 1)
	go func() { stopped <- logger.Stop(time.Second) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a claimed slot was unpublished")
	case <-time.After(50 * time.Millisecond):
	}

	*rv.Event() = *event.New(event.LevelInfo, "", "claimed")
	logger.state.Submitted.Add(1)
	logger.state.Enqueued.Add(1)
	rv.Publish()

	require.NoError(t, <-stopped)
	assert.Equal(t, []string{"claimed"}, list.Messages())
	assert.Zero(t, logger.Stats().Lost)
}

func TestStopCountsUnpublishedClaimsAsLost(t *testing.T) {
	logger, list := createTestLogger(t, func(cfg *Config) { cfg.QueueType = "ring" })
	defer logger.Shutdown()

	ring := logger.pipeline.Load().queue.(*queue.Ring)
	_, err := ring.Claim()
	require.NoError(t, err)

	require.NoError(t, logger.Stop(30*time.Millisecond))
	assert.Zero(t, list.Len())
	assert.Equal(t, uint64(1), logger.Stats().Lost)
}
