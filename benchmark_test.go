// FILE: lixenwraith/logpipe/benchmark_test.go
package logpipe

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
)

func newBenchLogger(b *testing.B, mutate ...func(cfg *Config)) *Logger {
	b.Helper()
	logger := NewLogger()
	logger.Status().SetEcho(false)

	cfg := testConfig()
	cfg.BufferSize = 4096
	for _, fn := range mutate {
		fn(cfg)
	}
	if err := logger.ApplyConfig(cfg); err != nil {
		b.Fatal(err)
	}
	if !cfg.EnableFile {
		discard := appender.NewWriterAppender("discard", io.Discard, newLayout(cfg, cfg.Format))
		if err := logger.Install(Delivery{Refs: []AppenderRef{{Appender: discard, Level: event.LevelTrace}}}); err != nil {
			b.Fatal(err)
		}
	}
	if err := logger.Start(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = logger.Shutdown(5 * time.Second) })
	return logger
}

func BenchmarkLoggerInfo(b *testing.B) {
	logger := newBenchLogger(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", "iteration", i)
	}
}

func BenchmarkLoggerParallel(b *testing.B) {
	for _, queueType := range []string{"ring", "locked"} {
		b.Run(queueType, func(b *testing.B) {
			logger := newBenchLogger(b, func(cfg *Config) {
				cfg.QueueType = queueType
				cfg.OverflowPolicy = "block"
			})
			b.ReportAllocs()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					_ = logger.Submit(context.Background(), LevelInfo, "parallel message")
				}
			})
		})
	}
}

func BenchmarkLoggerFiltered(b *testing.B) {
	logger := newBenchLogger(b, func(cfg *Config) {
		cfg.Level = LevelError
	})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("dropped at the level gate")
	}
}

func BenchmarkFileSink(b *testing.B) {
	dir := b.TempDir()
	logger := newBenchLogger(b, func(cfg *Config) {
		cfg.EnableFile = true
		cfg.FilePath = filepath.Join(dir, "bench.log")
		cfg.MaxSizeKB = 10 * 1024
		cfg.OverflowPolicy = "block"
	})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("file sink message", "iteration", i)
	}
}
