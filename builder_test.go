// FILE: lixenwraith/logpipe/builder_test.go
package logpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/metrics"
)

// countingObserver records enqueue and delivery hooks
type countingObserver struct {
	metrics.Nop
	enqueued  int
	delivered int
}

func (o *countingObserver) EventEnqueued()                       { o.enqueued++ }
func (o *countingObserver) EventDelivered(string, time.Duration) { o.delivered++ }

func TestBuilder(t *testing.T) {
	list := appender.NewListAppender("list")
	errorsOnly := appender.NewListAppender("errors")

	logger, err := NewBuilder().
		LevelString("debug").
		Name("built").
		Format("json").
		BufferSize(64).
		QueueType("locked").
		OverflowPolicy("block").
		BatchSize(16).
		EnableConsole(false).
		Appender(list, LevelTrace).
		Appender(errorsOnly, LevelError).
		Filter(appender.ThresholdFilter{Level: event.LevelInfo}).
		Build()
	require.NoError(t, err)
	defer logger.Shutdown()

	cfg := logger.GetConfig()
	assert.Equal(t, LevelDebug, cfg.Level)
	assert.Equal(t, "built", cfg.Name)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, int64(64), cfg.BufferSize)
	assert.Equal(t, "locked", cfg.QueueType)
	assert.Equal(t, "block", cfg.OverflowPolicy)
	assert.False(t, cfg.EnableConsole)

	assert.False(t, logger.state.Started.Load(), "Build does not start the logger")
	require.NoError(t, logger.Start())

	logger.Debug("filtered by the logger chain")
	logger.Info("info")
	logger.Error("error")
	require.NoError(t, logger.Flush(time.Second))

	assert.Equal(t, []string{"info", "error"}, list.Messages())
	assert.Equal(t, []string{"error"}, errorsOnly.Messages())
}

func TestBuilderErrors(t *testing.T) {
	_, err := NewBuilder().LevelString("loud").Build()
	assert.Error(t, err)

	_, err = NewBuilder().Appender(nil, LevelInfo).Build()
	assert.Error(t, err)

	_, err = NewBuilder().Override("buffer_size=abc").Build()
	assert.Error(t, err)

	_, err = NewBuilder().BufferSize(0).Build()
	assert.Error(t, err, "validation runs at Build")
}

func TestBuilderFileSettings(t *testing.T) {
	path := t.TempDir() + "/svc.log"
	cfg, err := NewBuilder().
		File(path).
		FilePattern(t.TempDir() + "/svc.%i.log.gz").
		MaxSizeMB(5).
		RolloverEvery(1, "hour").
		RolloverStrategy("fixed").
		MaxFiles(4).
		Compression("gzip").
		ConsoleTarget("stderr").
		HeartbeatLevel(2).
		HeartbeatIntervalS(30).
		Override("immediate_flush=true").
		Config()
	require.NoError(t, err)

	assert.True(t, cfg.EnableFile)
	assert.Equal(t, path, cfg.FilePath)
	assert.Equal(t, int64(5*1024), cfg.MaxSizeKB)
	assert.Equal(t, int64(1), cfg.RolloverInterval)
	assert.Equal(t, "hour", cfg.RolloverUnit)
	assert.Equal(t, "fixed", cfg.RolloverStrategy)
	assert.Equal(t, int64(4), cfg.MaxFiles)
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, "stderr", cfg.ConsoleTarget)
	assert.Equal(t, int64(2), cfg.HeartbeatLevel)
	assert.Equal(t, int64(30), cfg.HeartbeatIntervalS)
	assert.True(t, cfg.ImmediateFlush)
	assert.NoError(t, cfg.validate())
}

func TestBuilderObserver(t *testing.T) {
	obs := &countingObserver{}
	list := appender.NewListAppender("list")

	logger, err := NewBuilder().
		EnableConsole(false).
		Observer(obs).
		Appender(list, LevelTrace).
		Build()
	require.NoError(t, err)
	defer logger.Shutdown()
	require.NoError(t, logger.Start())

	logger.Info("observed")
	require.NoError(t, logger.Flush(time.Second))
	require.NoError(t, logger.Stop())

	assert.Equal(t, 1, obs.enqueued)
	assert.Equal(t, 1, obs.delivered)
}
