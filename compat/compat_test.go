// FILE: lixenwraith/logpipe/compat/compat_test.go
package compat

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logpipe"
	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
)

// createTestCompatBuilder returns a builder around a started logger recording into a list appender
func createTestCompatBuilder(t *testing.T) (*Builder, *logpipe.Logger, *appender.ListAppender) {
	t.Helper()
	list := appender.NewListAppender("list")

	appLogger, err := logpipe.NewBuilder().
		LevelString("debug").
		EnableConsole(false).
		Appender(list, logpipe.LevelTrace).
		Build()
	require.NoError(t, err)
	appLogger.Status().SetEcho(false)
	require.NoError(t, appLogger.Start())

	return NewBuilder().WithLogger(appLogger), appLogger, list
}

func TestCompatBuilder(t *testing.T) {
	t.Run("with existing logger", func(t *testing.T) {
		builder, logger, _ := createTestCompatBuilder(t)
		defer logger.Shutdown()

		gnetAdapter, err := builder.BuildGnet()
		require.NoError(t, err)
		assert.Same(t, logger, gnetAdapter.logger)
	})

	t.Run("with config", func(t *testing.T) {
		cfg := logpipe.DefaultConfig()
		cfg.EnableConsole = false
		cfg.EnableFile = true
		cfg.FilePath = filepath.Join(t.TempDir(), "compat.log")

		builder := NewBuilder().WithConfig(cfg)
		fasthttpAdapter, err := builder.BuildFastHTTP()
		require.NoError(t, err)
		assert.NotNil(t, fasthttpAdapter)

		logger, err := builder.GetLogger()
		require.NoError(t, err)
		defer logger.Shutdown()
		assert.Same(t, logger, fasthttpAdapter.logger, "the builder caches the logger it created")
		assert.NoError(t, logger.Flush(time.Second), "the created logger is started")
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewBuilder().WithLogger(nil).BuildGnet()
		assert.Error(t, err)
	})
}

func TestGnetAdapter(t *testing.T) {
	builder, logger, list := createTestCompatBuilder(t)
	defer logger.Shutdown()

	var fatalMsg string
	adapter, err := builder.BuildGnet(WithFatalHandler(func(msg string) {
		fatalMsg = msg
	}))
	require.NoError(t, err)

	adapter.Debugf("gnet debug id=%d", 1)
	adapter.Infof("gnet info id=%d", 2)
	adapter.Warnf("gnet warn id=%d", 3)
	adapter.Errorf("gnet error id=%d", 4)
	adapter.Fatalf("gnet fatal id=%d", 5)

	require.NoError(t, logger.Flush(time.Second))

	expected := []struct {
		level event.Level
		msg   string
	}{
		{event.LevelDebug, "gnet debug id=1"},
		{event.LevelInfo, "gnet info id=2"},
		{event.LevelWarn, "gnet warn id=3"},
		{event.LevelError, "gnet error id=4"},
		{event.LevelError, "gnet fatal id=5"},
	}

	events := list.Events()
	require.Len(t, events, len(expected))
	for i, ev := range events {
		assert.Equal(t, expected[i].level, ev.Level)
		assert.Equal(t, expected[i].msg, ev.Message)
		assert.Equal(t, "gnet", ev.Fields["source"])
	}
	assert.Equal(t, true, events[4].Fields["fatal"])
	assert.Equal(t, "gnet fatal id=5", fatalMsg)
}

func TestGnetAdapterFieldExtraction(t *testing.T) {
	builder, logger, list := createTestCompatBuilder(t)
	defer logger.Shutdown()

	adapter, err := builder.BuildGnet(WithFieldExtraction())
	require.NoError(t, err)

	adapter.Infof("request served status=%d client_ip=%s", 200, "127.0.0.1")
	adapter.Infof("%s plain", "no fields")
	require.NoError(t, logger.Flush(time.Second))

	events := list.Events()
	require.Len(t, events, 2)

	assert.Equal(t, "request served", events[0].Message)
	assert.Equal(t, map[string]any{"status": 200, "client_ip": "127.0.0.1", "source": "gnet"}, events[0].Fields)

	assert.Equal(t, "no fields plain", events[1].Message)
	assert.Equal(t, map[string]any{"source": "gnet"}, events[1].Fields)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []any
		msg    string
		fields map[string]any
		ok     bool
	}{
		{"key value", "conn opened fd=%d", []any{7}, "conn opened", map[string]any{"fd": 7}, true},
		{"colon", "addr: %s", []any{":9000"}, "", map[string]any{"addr": ":9000"}, true},
		{"trailing text", "loop=%d started in %s", []any{2, "1ms"}, "started in 1ms", map[string]any{"loop": 2}, true},
		{"no verbs", "engine stopped", nil, "", nil, false},
		{"verb in prefix", "%s closed fd=%d", []any{"conn", 3}, "", nil, false},
		{"too few args", "a=%d b=%d", []any{1}, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, fields, ok := parseFormat(tt.format, tt.args)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.msg, msg)
				assert.Equal(t, tt.fields, fields)
			}
		})
	}
}

func TestFastHTTPAdapter(t *testing.T) {
	builder, logger, list := createTestCompatBuilder(t)
	defer logger.Shutdown()

	adapter, err := builder.BuildFastHTTP()
	require.NoError(t, err)

	testMessages := []string{
		"this is some informational message",
		"a debug message for the developers",
		"warning: something might be wrong",
		"an error occurred while processing",
	}
	for _, msg := range testMessages {
		adapter.Printf("%s", msg)
	}
	require.NoError(t, logger.Flush(time.Second))

	expectedLevels := []event.Level{event.LevelInfo, event.LevelDebug, event.LevelWarn, event.LevelError}
	events := list.Events()
	require.Len(t, events, 4)
	for i, ev := range events {
		assert.Equal(t, expectedLevels[i], ev.Level)
		assert.Equal(t, testMessages[i], ev.Message)
		assert.Equal(t, "fasthttp", ev.Fields["source"])
	}
}

func TestFastHTTPAdapterOptions(t *testing.T) {
	builder, logger, list := createTestCompatBuilder(t)
	defer logger.Shutdown()

	adapter, err := builder.BuildFastHTTP(
		WithDefaultLevel(logpipe.LevelWarn),
		WithLevelDetector(func(string) (int64, bool) { return 0, false }),
	)
	require.NoError(t, err)

	adapter.Printf("an error the detector ignores")
	require.NoError(t, logger.Flush(time.Second))

	events := list.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.LevelWarn, events[0].Level)
}

func TestDetectLogLevel(t *testing.T) {
	level, ok := DetectLogLevel("connection FAILED")
	assert.True(t, ok)
	assert.Equal(t, logpipe.LevelError, level)

	level, ok = DetectLogLevel("API is deprecated")
	assert.True(t, ok)
	assert.Equal(t, logpipe.LevelWarn, level)

	_, ok = DetectLogLevel("listening on :8080")
	assert.False(t, ok)
}
