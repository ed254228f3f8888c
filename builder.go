// FILE: lixenwraith/logpipe/builder.go
package logpipe

import (
	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/metrics"
)

// Builder provides a fluent API for building loggers.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg      *Config
	delivery Delivery
	observer metrics.Observer
	err      error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Logger instance with the specified configuration.
// The logger is initialized but not started.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	logger := NewLogger()
	if b.observer != nil {
		logger.SetObserver(b.observer)
	}

	// ApplyConfig handles all initialization and validation.
	if err := logger.ApplyConfig(b.cfg); err != nil {
		return nil, err
	}

	if len(b.delivery.Refs) > 0 || len(b.delivery.Filters) > 0 {
		if err := logger.Install(b.delivery); err != nil {
			_ = logger.Shutdown()
			return nil, err
		}
	}

	return logger, nil
}

// Config returns a copy of the configuration built so far.
func (b *Builder) Config() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg.Clone(), nil
}

// Level sets the log level.
func (b *Builder) Level(level int64) *Builder {
	b.cfg.Level = level
	return b
}

// LevelString sets the log level from a string.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	levelVal, err := Level(level)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = levelVal
	return b
}

// Name sets the logger name carried by every event.
func (b *Builder) Name(name string) *Builder {
	b.cfg.Name = name
	return b
}

// Format sets the output format.
func (b *Builder) Format(format string) *Builder {
	b.cfg.Format = format
	return b
}

// BufferSize sets the queue capacity.
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.BufferSize = size
	return b
}

// QueueType selects the ring or locked queue.
func (b *Builder) QueueType(queueType string) *Builder {
	b.cfg.QueueType = queueType
	return b
}

// OverflowPolicy sets what producers do when the queue is full.
func (b *Builder) OverflowPolicy(policy string) *Builder {
	b.cfg.OverflowPolicy = policy
	return b
}

// DiscardLevel sets the threshold below which the discard policy drops events.
func (b *Builder) DiscardLevel(level int64) *Builder {
	b.cfg.DiscardLevel = level
	return b
}

// BatchSize sets the maximum number of events drained per batch.
func (b *Builder) BatchSize(size int64) *Builder {
	b.cfg.BatchSize = size
	return b
}

// File enables the rolling file sink at path.
func (b *Builder) File(path string) *Builder {
	b.cfg.EnableFile = true
	b.cfg.FilePath = path
	return b
}

// FilePattern sets the archive name pattern.
func (b *Builder) FilePattern(pattern string) *Builder {
	b.cfg.FilePattern = pattern
	return b
}

// MaxSizeKB sets the size rotation threshold in KB.
func (b *Builder) MaxSizeKB(size int64) *Builder {
	b.cfg.MaxSizeKB = size
	return b
}

// MaxSizeMB sets the size rotation threshold in MB.
func (b *Builder) MaxSizeMB(size int64) *Builder {
	b.cfg.MaxSizeKB = size * sizeMultiplier
	return b
}

// RolloverEvery enables time rotation every interval units.
func (b *Builder) RolloverEvery(interval int64, unit string) *Builder {
	b.cfg.RolloverInterval = interval
	b.cfg.RolloverUnit = unit
	return b
}

// RolloverStrategy selects the pattern or fixed window strategy.
func (b *Builder) RolloverStrategy(strategy string) *Builder {
	b.cfg.RolloverStrategy = strategy
	return b
}

// MaxFiles sets how many archives are kept.
func (b *Builder) MaxFiles(n int64) *Builder {
	b.cfg.MaxFiles = n
	return b
}

// Compression sets the archive compression.
func (b *Builder) Compression(compression string) *Builder {
	b.cfg.Compression = compression
	return b
}

// EnableConsole enables the console sink.
func (b *Builder) EnableConsole(enable bool) *Builder {
	b.cfg.EnableConsole = enable
	return b
}

// ConsoleTarget sets the console stream.
func (b *Builder) ConsoleTarget(target string) *Builder {
	b.cfg.ConsoleTarget = target
	return b
}

// HTTPEndpoint enables the HTTP sink.
func (b *Builder) HTTPEndpoint(endpoint string) *Builder {
	b.cfg.HTTPEndpoint = endpoint
	return b
}

// HeartbeatLevel sets the heartbeat detail level.
func (b *Builder) HeartbeatLevel(level int64) *Builder {
	b.cfg.HeartbeatLevel = level
	return b
}

// HeartbeatIntervalS sets the heartbeat interval in seconds.
func (b *Builder) HeartbeatIntervalS(interval int64) *Builder {
	b.cfg.HeartbeatIntervalS = interval
	return b
}

// Override applies "key=value" strings on top of the builder settings.
func (b *Builder) Override(overrides ...string) *Builder {
	if b.err != nil {
		return b
	}
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err == nil {
			err = applyConfigField(b.cfg, key, value)
		}
		if err != nil {
			b.err = err
			return b
		}
	}
	return b
}

// Appender adds an appender receiving events at or above level.
func (b *Builder) Appender(a appender.Appender, level int64, filters ...appender.Filter) *Builder {
	if b.err != nil {
		return b
	}
	if a == nil {
		b.err = fmtErrorf("appender cannot be nil")
		return b
	}
	b.delivery.Refs = append(b.delivery.Refs, AppenderRef{
		Appender: a,
		Level:    event.Level(level),
		Filters:  filters,
	})
	return b
}

// Filter appends to the logger-level filter chain.
func (b *Builder) Filter(filters ...appender.Filter) *Builder {
	b.delivery.Filters = append(b.delivery.Filters, filters...)
	return b
}

// Observer installs a metrics observer.
func (b *Builder) Observer(o metrics.Observer) *Builder {
	b.observer = o
	return b
}
