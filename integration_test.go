// FILE: lixenwraith/logpipe/integration_test.go
package logpipe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
)

func TestFullLifecycle(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewBuilder().
		File(filepath.Join(tmpDir, "app.log")).
		LevelString("debug").
		Format("json").
		MaxSizeKB(1).
		BufferSize(1000).
		EnableConsole(false).
		HeartbeatLevel(1).
		HeartbeatIntervalS(1).
		Build()
	require.NoError(t, err, "Logger creation with builder should succeed")
	logger.Status().SetEcho(false)
	require.NoError(t, logger.Start())

	defer func() {
		assert.NoError(t, logger.Shutdown(2*time.Second), "Logger shutdown should be clean")
	}()

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warning message")
	logger.Error("error message")

	logger.LogStructured(LevelInfo, "structured log", map[string]any{
		"user_id": 123,
		"action":  "login",
		"success": true,
	})
	logger.Write("raw data write\n")
	logger.InfoTrace(2, "trace info")

	// Live swap to a larger threshold and a second sink
	require.NoError(t, logger.ApplyConfigString("enable_console=true", "console_target=stderr", "max_size_kb=64"))
	logger.Info("after reconfiguration")

	require.Eventually(t, func() bool { return len(heartbeats(logger)) > 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, logger.Flush(time.Second))

	files, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(files), 1, "At least one log file should be created")
	assert.Equal(t, uint64(8), logger.Stats().Processed)
}

func TestConcurrentOperations(t *testing.T) {
	logger, list := createTestLogger(t, func(cfg *Config) {
		cfg.OverflowPolicy = "block"
	})
	defer logger.Shutdown()

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Info("worker", id, "log", j)
			}
		}(i)
	}

	// Buffer size changes restart the pipeline under the producers
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			assert.NoError(t, logger.ApplyConfigString(fmt.Sprintf("buffer_size=%d", 100+i*100)))
			time.Sleep(50 * time.Millisecond)
		}
	}()

	// Flushes racing a restart move on to the new dispatcher
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			assert.NoError(t, logger.Flush(time.Second))
			time.Sleep(30 * time.Millisecond)
		}
	}()

	wg.Wait()
	require.NoError(t, logger.Flush(time.Second))

	stats := logger.Stats()
	assert.Equal(t, uint64(100), stats.Submitted)
	assert.Zero(t, stats.Dropped, "restarts do not drop blocked producers")
	assert.Zero(t, stats.Lost)
	assert.Equal(t, stats.Submitted, stats.Processed)
	assert.Equal(t, int(stats.Processed), list.Len())
}

func TestErrorRecovery(t *testing.T) {
	t.Run("unwritable directory", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))

		logger, err := NewBuilder().
			EnableConsole(false).
			File(filepath.Join(blocker, "app.log")).
			Build()
		assert.Error(t, err, "a file path below a regular file cannot be opened")
		assert.Nil(t, logger)
	})

	t.Run("failing appender keeps others delivering", func(t *testing.T) {
		logger, list := createTestLogger(t)
		defer logger.Shutdown()

		failing := appender.NewListAppender("failing")
		failing.Hook = func(*event.Event) error { return errors.New("sink unavailable") }
		require.NoError(t, logger.Install(Delivery{Refs: []AppenderRef{
			{Appender: list},
			{Appender: failing},
		}}))

		logger.Info("survives")
		require.NoError(t, logger.Flush(time.Second))
		assert.Equal(t, []string{"survives"}, list.Messages())
		assert.Equal(t, uint64(1), logger.Stats().AppendFailures)

		var reported bool
		for _, e := range logger.Status().Recent() {
			if e.Message == "appender failed" && e.Fields["appender"] == "failing" {
				reported = true
			}
		}
		assert.True(t, reported, "append failure goes to the status channel")
	})
}
