// FILE: lixenwraith/logpipe/processor_test.go
package logpipe

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/queue"
)

// gate blocks the dispatcher inside an appender until released
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// hold signals entry and waits for release; only the first call blocks
func (g *gate) hold() bool {
	first := false
	g.once.Do(func() {
		first = true
		close(g.entered)
		<-g.release
	})
	return first
}

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never entered the appender")
	}
}

// TestFIFOPerProducer verifies every producer's events arrive in submission order
func TestFIFOPerProducer(t *testing.T) {
	for _, policy := range []string{queue.PolicyBlock, queue.PolicyDirect} {
		for _, queueType := range []string{queue.TypeRing, queue.TypeLocked} {
			t.Run(policy+"/"+queueType, func(t *testing.T) {
				logger, list := createTestLogger(t, func(cfg *Config) {
					cfg.BufferSize = 16
					cfg.BatchSize = 4
					cfg.OverflowPolicy = policy
					cfg.QueueType = queueType
				})
				defer logger.Shutdown()

				const producers, perProducer = 4, 250
				var wg sync.WaitGroup
				for p := 0; p < producers; p++ {
					wg.Add(1)
					go func(p int) {
						defer wg.Done()
						for i := 0; i < perProducer; i++ {
							logger.Info(p, i)
						}
					}(p)
				}
				wg.Wait()
				require.NoError(t, logger.Flush(5*time.Second))

				events := list.Events()
				require.Len(t, events, producers*perProducer)

				next := make([]int, producers)
				for _, ev := range events {
					p, i := ev.Args[0].(int), ev.Args[1].(int)
					require.Equal(t, next[p], i, "producer %d out of order", p)
					next[p]++
				}
			})
		}
	}
}

// TestDiscardConservation verifies delivered + discarded == submitted under the discard policy
func TestDiscardConservation(t *testing.T) {
	g := newGate()
	logger, list := createTestLogger(t, func(cfg *Config) {
		cfg.BufferSize = 16
		cfg.OverflowPolicy = queue.PolicyDiscard
		cfg.DiscardLevel = LevelWarn
	})
	defer logger.Shutdown()

	list.Hook = func(ev *event.Event) error {
		g.hold()
		return nil
	}

	logger.Info("first")
	g.waitEntered(t)

	// Queue fills with 16; the rest are below the threshold and discarded
	for i := 0; i < 100; i++ {
		logger.Info("burst", i)
	}
	close(g.release)
	require.NoError(t, logger.Flush(2*time.Second))

	stats := logger.Stats()
	assert.Equal(t, uint64(101), stats.Submitted)
	assert.Equal(t, uint64(84), stats.Discarded)
	assert.Equal(t, stats.Submitted, uint64(list.Len())+stats.Discarded)
}

// TestDiscardKeepsSevereEvents verifies events at or above the threshold wait for space
func TestDiscardKeepsSevereEvents(t *testing.T) {
	g := newGate()
	logger, list := createTestLogger(t, func(cfg *Config) {
		cfg.BufferSize = 4
		cfg.OverflowPolicy = queue.PolicyDiscard
		cfg.DiscardLevel = LevelWarn
	})
	defer logger.Shutdown()

	list.Hook = func(ev *event.Event) error {
		g.hold()
		return nil
	}

	logger.Info("first")
	g.waitEntered(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			logger.Error("severe", i)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(g.release)
	<-done
	require.NoError(t, logger.Flush(2*time.Second))

	assert.Equal(t, 11, list.Len())
	assert.Zero(t, logger.Stats().Discarded)
}

// TestReentrantLoggingDirect fills a 128 slot queue while the dispatcher is
// inside an appender that then logs itself. The nested event is delivered
// synchronously and nothing hangs.
func TestReentrantLoggingDirect(t *testing.T) {
	g := newGate()
	logger, list := createTestLogger(t, func(cfg *Config) {
		cfg.BufferSize = 128
		cfg.OverflowPolicy = queue.PolicyDirect
	})
	defer logger.Shutdown()

	list.Hook = func(ev *event.Event) error {
		if len(ev.Args) == 1 && ev.Args[0] == "#1" && g.hold() {
			logger.Info("nested")
		}
		return nil
	}

	logger.Info("#1")
	g.waitEntered(t)

	for i := 2; i <= 129; i++ {
		logger.Info(fmt.Sprintf("#%d", i))
	}

	last := make(chan struct{})
	go func() {
		defer close(last)
		logger.Info("#130")
	}()

	close(g.release)
	select {
	case <-last:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked on a full queue never resumed")
	}
	require.NoError(t, logger.Flush(5*time.Second))

	want := []string{"nested"}
	for i := 1; i <= 130; i++ {
		want = append(want, fmt.Sprintf("#%d", i))
	}
	assert.Equal(t, want, list.Messages())
	assert.Equal(t, uint64(1), logger.Stats().DirectDelivered)
}

// TestReentrantLoggingBlock verifies the dispatcher is rejected instead of
// waiting on its own full queue, and all producer events still arrive in order
func TestReentrantLoggingBlock(t *testing.T) {
	g := newGate()
	logger, list := createTestLogger(t, func(cfg *Config) {
		cfg.BufferSize = 128
		cfg.OverflowPolicy = queue.PolicyBlock
	})
	defer logger.Shutdown()

	var nestedErr error
	list.Hook = func(ev *event.Event) error {
		if len(ev.Args) == 1 && ev.Args[0] == "#1" && g.hold() {
			nestedErr = logger.Submit(context.Background(), LevelInfo, "nested")
		}
		return nil
	}

	logger.Info("#1")
	g.waitEntered(t)
	for i := 2; i <= 129; i++ {
		logger.Info(fmt.Sprintf("#%d", i))
	}

	last := make(chan struct{})
	go func() {
		defer close(last)
		logger.Info("#130")
	}()

	close(g.release)
	<-last
	require.NoError(t, logger.Flush(5*time.Second))

	assert.ErrorIs(t, nestedErr, ErrWouldDeadlock)

	var want []string
	for i := 1; i <= 130; i++ {
		want = append(want, fmt.Sprintf("#%d", i))
	}
	assert.Equal(t, want, list.Messages())
	assert.Equal(t, uint64(1), logger.Stats().Dropped)
}

// TestBlockTimeout verifies a producer gives up after block_timeout_ms
func TestBlockTimeout(t *testing.T) {
	g := newGate()
	logger, list := createTestLogger(t, func(cfg *Config) {
		cfg.BufferSize = 2
		cfg.OverflowPolicy = queue.PolicyBlock
		cfg.BlockTimeoutMs = 20
	})
	defer logger.Shutdown()

	list.Hook = func(ev *event.Event) error {
		g.hold()
		return nil
	}

	logger.Info("first")
	g.waitEntered(t)
	logger.Info("a")
	logger.Info("b")

	err := logger.Submit(context.Background(), LevelInfo, "late")
	assert.ErrorIs(t, err, ErrQueueTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = logger.Submit(ctx, LevelInfo, "cancelled")
	assert.ErrorIs(t, err, context.Canceled)

	close(g.release)
	require.NoError(t, logger.Flush(2*time.Second))
	assert.Equal(t, []string{"first", "a", "b"}, list.Messages())
	assert.Equal(t, uint64(2), logger.Stats().Dropped)
}

// TestEndOfBatch verifies the last event of every drained batch is marked
func TestEndOfBatch(t *testing.T) {
	g := newGate()
	logger, list := createTestLogger(t, func(cfg *Config) {
		cfg.BufferSize = 64
		cfg.BatchSize = 8
	})
	defer logger.Shutdown()

	list.Hook = func(ev *event.Event) error {
		g.hold()
		return nil
	}

	logger.Info("first")
	g.waitEntered(t)
	for i := 0; i < 20; i++ {
		logger.Info(i)
	}
	close(g.release)
	require.NoError(t, logger.Flush(2*time.Second))

	events := list.Events()
	require.Len(t, events, 21)
	assert.True(t, events[0].EndOfBatch, "a lone event is its own batch")

	// 20 queued events drain as 8 + 8 + 4
	var marks []int
	for i, ev := range events[1:] {
		if ev.EndOfBatch {
			marks = append(marks, i)
		}
	}
	assert.Equal(t, []int{7, 15, 19}, marks)
}

// TestStopDrainsQueue verifies Stop delivers everything already queued
func TestStopDrainsQueue(t *testing.T) {
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	for i := 0; i < 100; i++ {
		logger.Info(i)
	}
	require.NoError(t, logger.Stop(time.Second))

	assert.Equal(t, 100, list.Len())
	assert.Zero(t, logger.Stats().Lost)
}

// TestStopCountsLost verifies events still queued at the drain deadline are counted
func TestStopCountsLost(t *testing.T) {
	g := newGate()
	logger, list := createTestLogger(t)
	defer logger.Shutdown()

	list.Hook = func(ev *event.Event) error {
		if g.hold() {
			time.Sleep(50 * time.Millisecond)
		}
		return nil
	}

	logger.Info("first")
	g.waitEntered(t)
	for i := 0; i < 10; i++ {
		logger.Info(i)
	}
	close(g.release)

	// The drain deadline passes while the dispatcher is still in the first append
	require.NoError(t, logger.Stop(10*time.Millisecond))

	stats := logger.Stats()
	assert.Equal(t, uint64(10), stats.Lost)
	assert.Equal(t, 1, list.Len())
}
