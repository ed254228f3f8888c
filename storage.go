// FILE: lixenwraith/logpipe/storage.go
package logpipe

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/formatter"
	"github.com/lixenwraith/logpipe/rolling"
	"github.com/lixenwraith/logpipe/sanitizer"
)

// Names of the appenders built from configuration
const (
	AppenderConsole = "console"
	AppenderFile    = "file"
	AppenderHTTP    = "http"
)

// buildAppenders creates the appenders the configuration enables.
// They are not started; install starts the ones new to the delivery.
func (l *Logger) buildAppenders(cfg *Config) ([]AppenderRef, error) {
	layout := newLayout(cfg, cfg.Format)

	var refs []AppenderRef

	if cfg.EnableConsole {
		console, err := appender.NewConsoleAppender(AppenderConsole, cfg.ConsoleTarget, layout)
		if err != nil {
			return nil, fmtErrorf("failed to create console appender: %w", err)
		}
		refs = append(refs, AppenderRef{Appender: console, Level: event.LevelTrace})
	}

	if cfg.EnableFile {
		opts, err := l.rollingOptions(cfg)
		if err != nil {
			return nil, err
		}
		file := appender.NewRollingFileAppender(AppenderFile, appender.FileOptions{
			Path:           cfg.FilePath,
			Layout:         layout,
			Rolling:        opts,
			ImmediateFlush: cfg.ImmediateFlush,
			Registry:       l.registry,
		})
		refs = append(refs, AppenderRef{Appender: file, Level: event.LevelTrace})
	}

	if cfg.HTTPEndpoint != "" {
		http := appender.NewHTTPAppender(AppenderHTTP, appender.HTTPOptions{
			Endpoint: cfg.HTTPEndpoint,
			Layout:   newLayout(cfg, sanitizer.FormatJSON),
			Timeout:  time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond,
		})
		refs = append(refs, AppenderRef{Appender: http, Level: event.LevelTrace})
	}

	return refs, nil
}

// newLayout creates the formatter for one output format
func newLayout(cfg *Config, format string) *formatter.Formatter {
	preset := sanitizer.PolicyPreset(cfg.Sanitization)
	if preset == "" {
		preset = sanitizer.PolicyPreset(format)
	}
	return formatter.New(sanitizer.ForPolicy(preset)).
		Type(format).
		TimestampFormat(cfg.TimestampFormat).
		ShowTimestamp(cfg.ShowTimestamp).
		ShowLevel(cfg.ShowLevel).
		ShowGoroutine(cfg.CaptureGoroutine)
}

// rollingOptions translates the file sink settings into manager options
func (l *Logger) rollingOptions(cfg *Config) (rolling.Options, error) {
	compression, err := rolling.ParseCompression(cfg.Compression)
	if err != nil {
		return rolling.Options{}, fmtErrorf("invalid compression: %w", err)
	}

	rawPattern := cfg.FilePattern
	if rawPattern == "" {
		rawPattern = derivePattern(cfg.FilePath, cfg.RolloverStrategy)
	}
	pattern, err := rolling.ParsePattern(rawPattern)
	if err != nil {
		return rolling.Options{}, fmtErrorf("invalid file_pattern: %w", err)
	}

	var policies rolling.CompositePolicy
	if cfg.MaxSizeKB > 0 {
		policies = append(policies, rolling.SizePolicy{MaxSize: cfg.MaxSizeKB * sizeMultiplier})
	}
	if cfg.RolloverInterval > 0 {
		unit := pattern.Unit()
		if cfg.RolloverUnit != "" {
			if unit, err = rolling.ParseUnit(cfg.RolloverUnit); err != nil {
				return rolling.Options{}, fmtErrorf("invalid rollover_unit: %w", err)
			}
		}
		policies = append(policies, rolling.TimePolicy{
			Interval: int(cfg.RolloverInterval),
			Unit:     unit,
			Modulate: cfg.RolloverModulate,
			Location: time.Local,
		})
	}
	if cfg.RolloverOnStartup {
		policies = append(policies, rolling.StartupPolicy{MinSize: 1})
	}

	var strategy rolling.RolloverStrategy
	switch cfg.RolloverStrategy {
	case rolling.StrategyFixedWindow:
		if !pattern.HasIndex() {
			return rolling.Options{}, fmtErrorf("file_pattern '%s' must contain %%i for the fixed strategy", rawPattern)
		}
		maxIndex := cfg.MaxFiles
		if maxIndex < cfg.MinIndex {
			maxIndex = cfg.MinIndex
		}
		strategy = rolling.FixedWindow{
			Pattern:     pattern,
			Min:         int(cfg.MinIndex),
			Max:         int(maxIndex),
			Compression: compression,
		}
	default:
		strategy = rolling.PatternStrategy{
			Pattern:      pattern,
			MaxFiles:     int(cfg.MaxFiles),
			MaxAge:       time.Duration(cfg.RetentionPeriodHrs * float64(time.Hour)),
			MaxTotalSize: cfg.MaxTotalSizeKB * sizeMultiplier,
			Compression:  compression,
		}
	}

	compressor, err := l.sharedCompressor(cfg, compression, pattern)
	if err != nil {
		return rolling.Options{}, err
	}

	return rolling.Options{
		Append:     cfg.FileAppend,
		BufferSize: int(cfg.FileBufferKB * sizeMultiplier),
		Policy:     policies,
		Strategy:   strategy,
		Location:   time.Local,
		Compressor: compressor,
		Status:     l.status,
		Observer:   l.observer(),
	}, nil
}

// sharedCompressor returns the logger's compression pool, creating it on
// first use. It lives until Shutdown; called with initMu held.
func (l *Logger) sharedCompressor(cfg *Config, compression rolling.Compression, pattern *rolling.FilePattern) (*rolling.Compressor, error) {
	if !compression.Enabled() && !pattern.Compression().Enabled() {
		return nil, nil
	}
	if l.compressor != nil {
		return l.compressor, nil
	}
	c, err := rolling.NewCompressor(int(cfg.CompressionWorkers), nil, l.compressionDone)
	if err != nil {
		return nil, fmtErrorf("failed to create compressor: %w", err)
	}
	l.compressor = c
	return c, nil
}

func (l *Logger) compressionDone(job rolling.CompressJob, elapsed time.Duration, err error) {
	if err != nil {
		l.status.Warn(sourceStorage, "compression failed", err, "archive", job.Source)
		return
	}
	l.status.Info(sourceStorage, "archive compressed", "archive", job.Target, "elapsed", elapsed)
}

// derivePattern builds the archive pattern next to the active file:
// app.log becomes app-%d{yyyy-MM-dd}.%i.log, or app.%i.log for the fixed strategy
func derivePattern(path, strategy string) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	name := base + "-%d{yyyy-MM-dd}.%i" + ext
	if strategy == rolling.StrategyFixedWindow {
		name = base + ".%i" + ext
	}
	return filepath.Join(dir, name)
}

// fileAppenders returns the rolling file appenders of the current delivery
func (l *Logger) fileAppenders() []*appender.RollingFileAppender {
	s := l.acquireStrategy()
	defer s.release()

	var files []*appender.RollingFileAppender
	for _, ref := range s.delivery.Refs {
		if f, ok := unwrapAppender(ref.Appender).(*appender.RollingFileAppender); ok {
			files = append(files, f)
		}
	}
	return files
}

// getDiskFreeSpace retrieves available disk space for the given path
func getDiskFreeSpace(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmtErrorf("failed to get disk stats for '%s': %w", path, err)
	}
	availableBytes := int64(stat.Bavail) * int64(stat.Bsize)
	return availableBytes, nil
}

// getLogDirStats returns the total size and count of regular files in dir
// whose names start with prefix
func getLogDirStats(dir, prefix string) (int64, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}

	var size int64
	var count int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		size += info.Size()
		count++
	}
	return size, count, nil
}
