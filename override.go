// FILE: lixenwraith/logpipe/override.go
package logpipe

import (
	"strconv"

	"github.com/lixenwraith/logpipe/event"
)

// ApplyConfigString applies string key-value overrides to the logger's current configuration.
// Each override should be in the format "key=value".
// The configuration is cloned before modification to ensure thread safety.
//
// Example:
//
//	logger := logpipe.NewLogger()
//	err := logger.ApplyConfigString(
//	    "file_path=/var/log/app/app.log",
//	    "level=debug",
//	    "overflow_policy=discard",
//	)
func (l *Logger) ApplyConfigString(overrides ...string) error {
	cfg := l.getConfig().Clone()

	var errs []error
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := applyConfigField(cfg, key, value); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return combineErrors(errs...)
	}

	return l.ApplyConfig(cfg)
}

// applyConfigField applies a single key-value override to a Config.
// This is the core field mapping logic for string overrides.
func applyConfigField(cfg *Config, key, value string) error {
	parseInt := func(dst *int64) error {
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for %s '%s': %w", key, value, err)
		}
		*dst = v
		return nil
	}
	parseBool := func(dst *bool) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for %s '%s': %w", key, value, err)
		}
		*dst = v
		return nil
	}
	parseLevel := func(dst *int64) error {
		lvl, err := event.ParseLevel(value)
		if err != nil {
			return fmtErrorf("invalid level value for %s '%s': %w", key, value, err)
		}
		*dst = int64(lvl)
		return nil
	}

	switch key {
	// Basic settings
	case "level":
		return parseLevel(&cfg.Level)
	case "name":
		cfg.Name = value
	case "format":
		cfg.Format = value

	// Formatting
	case "show_timestamp":
		return parseBool(&cfg.ShowTimestamp)
	case "show_level":
		return parseBool(&cfg.ShowLevel)
	case "timestamp_format":
		cfg.TimestampFormat = value
	case "sanitization":
		cfg.Sanitization = value
	case "trace_depth":
		return parseInt(&cfg.TraceDepth)
	case "capture_goroutine":
		return parseBool(&cfg.CaptureGoroutine)
	case "capture_location":
		return parseBool(&cfg.CaptureLocation)

	// Queue
	case "buffer_size":
		return parseInt(&cfg.BufferSize)
	case "queue_type":
		cfg.QueueType = value
	case "overflow_policy":
		cfg.OverflowPolicy = value
	case "discard_level":
		return parseLevel(&cfg.DiscardLevel)
	case "block_timeout_ms":
		return parseInt(&cfg.BlockTimeoutMs)
	case "batch_size":
		return parseInt(&cfg.BatchSize)

	// Dispatcher
	case "flush_interval_ms":
		return parseInt(&cfg.FlushIntervalMs)
	case "shutdown_timeout_ms":
		return parseInt(&cfg.ShutdownTimeoutMs)
	case "reconfig_timeout_ms":
		return parseInt(&cfg.ReconfigTimeoutMs)

	// File sink
	case "enable_file":
		return parseBool(&cfg.EnableFile)
	case "file_path":
		cfg.FilePath = value
	case "file_pattern":
		cfg.FilePattern = value
	case "file_append":
		return parseBool(&cfg.FileAppend)
	case "immediate_flush":
		return parseBool(&cfg.ImmediateFlush)
	case "file_buffer_kb":
		return parseInt(&cfg.FileBufferKB)

	// Triggering
	case "max_size_kb":
		return parseInt(&cfg.MaxSizeKB)
	case "rollover_interval":
		return parseInt(&cfg.RolloverInterval)
	case "rollover_unit":
		cfg.RolloverUnit = value
	case "rollover_modulate":
		return parseBool(&cfg.RolloverModulate)
	case "rollover_on_startup":
		return parseBool(&cfg.RolloverOnStartup)

	// Rollover
	case "rollover_strategy":
		cfg.RolloverStrategy = value
	case "min_index":
		return parseInt(&cfg.MinIndex)
	case "max_files":
		return parseInt(&cfg.MaxFiles)
	case "compression":
		cfg.Compression = value
	case "compression_workers":
		return parseInt(&cfg.CompressionWorkers)
	case "retention_period_hrs":
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmtErrorf("invalid float value for retention_period_hrs '%s': %w", value, err)
		}
		cfg.RetentionPeriodHrs = floatVal
	case "max_total_size_kb":
		return parseInt(&cfg.MaxTotalSizeKB)

	// Console sink
	case "enable_console":
		return parseBool(&cfg.EnableConsole)
	case "console_target":
		cfg.ConsoleTarget = value

	// HTTP sink
	case "http_endpoint":
		cfg.HTTPEndpoint = value
	case "http_timeout_ms":
		return parseInt(&cfg.HTTPTimeoutMs)

	// Status
	case "heartbeat_level":
		return parseInt(&cfg.HeartbeatLevel)
	case "heartbeat_interval_s":
		return parseInt(&cfg.HeartbeatIntervalS)
	case "internal_errors_to_stderr":
		return parseBool(&cfg.InternalErrorsToStderr)

	default:
		return fmtErrorf("unknown configuration key '%s'", key)
	}

	return nil
}
