// FILE: lixenwraith/logpipe/config.go
package logpipe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lixenwraith/config"

	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/queue"
	"github.com/lixenwraith/logpipe/rolling"
	"github.com/lixenwraith/logpipe/sanitizer"
)

// configPrefix is the TOML table holding the logger settings
const configPrefix = "logpipe."

// Config holds all logger configuration values
type Config struct {
	// Basic settings
	Level  int64  `toml:"level"`
	Name   string `toml:"name"`   // Logger name carried by every event
	Format string `toml:"format"` // "txt", "raw", or "json"

	// Formatting
	ShowTimestamp    bool   `toml:"show_timestamp"`
	ShowLevel        bool   `toml:"show_level"`
	TimestampFormat  string `toml:"timestamp_format"`
	Sanitization     string `toml:"sanitization"` // "raw", "txt", "json", "shell"; empty follows format
	TraceDepth       int64  `toml:"trace_depth"`  // Default trace depth (0-10)
	CaptureGoroutine bool   `toml:"capture_goroutine"`
	CaptureLocation  bool   `toml:"capture_location"`

	// Queue
	BufferSize     int64  `toml:"buffer_size"`     // Queue capacity
	QueueType      string `toml:"queue_type"`      // "ring" or "locked"
	OverflowPolicy string `toml:"overflow_policy"` // "block", "discard", or "direct"
	DiscardLevel   int64  `toml:"discard_level"`   // Events below this level are dropped by "discard"
	BlockTimeoutMs int64  `toml:"block_timeout_ms"`
	BatchSize      int64  `toml:"batch_size"`

	// Dispatcher
	FlushIntervalMs   int64 `toml:"flush_interval_ms"`
	ShutdownTimeoutMs int64 `toml:"shutdown_timeout_ms"`
	ReconfigTimeoutMs int64 `toml:"reconfig_timeout_ms"`

	// File sink
	EnableFile     bool   `toml:"enable_file"`
	FilePath       string `toml:"file_path"`
	FilePattern    string `toml:"file_pattern"` // Archive pattern; derived from file_path when empty
	FileAppend     bool   `toml:"file_append"`
	ImmediateFlush bool   `toml:"immediate_flush"`
	FileBufferKB   int64  `toml:"file_buffer_kb"`

	// Triggering
	MaxSizeKB         int64  `toml:"max_size_kb"`       // 0 disables size rotation
	RolloverInterval  int64  `toml:"rollover_interval"` // 0 disables time rotation
	RolloverUnit      string `toml:"rollover_unit"`     // Empty takes the finest unit of the pattern date
	RolloverModulate  bool   `toml:"rollover_modulate"`
	RolloverOnStartup bool   `toml:"rollover_on_startup"`

	// Rollover
	RolloverStrategy   string  `toml:"rollover_strategy"` // "pattern" or "fixed"
	MinIndex           int64   `toml:"min_index"`
	MaxFiles           int64   `toml:"max_files"`
	Compression        string  `toml:"compression"` // "none", "gzip", "zstd"; empty infers from pattern
	CompressionWorkers int64   `toml:"compression_workers"`
	RetentionPeriodHrs float64 `toml:"retention_period_hrs"` // Hours to keep archives (0=disabled)
	MaxTotalSizeKB     int64   `toml:"max_total_size_kb"`

	// Console sink
	EnableConsole bool   `toml:"enable_console"`
	ConsoleTarget string `toml:"console_target"` // "stdout", "stderr", or "split"

	// HTTP sink
	HTTPEndpoint  string `toml:"http_endpoint"`
	HTTPTimeoutMs int64  `toml:"http_timeout_ms"`

	// Status
	HeartbeatLevel         int64 `toml:"heartbeat_level"` // 0=disabled, 1=proc only, 2=proc+disk, 3=proc+disk+sys
	HeartbeatIntervalS     int64 `toml:"heartbeat_interval_s"`
	InternalErrorsToStderr bool  `toml:"internal_errors_to_stderr"`
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	// Basic settings
	Level:  LevelInfo,
	Name:   "app",
	Format: "txt",

	// Formatting
	ShowTimestamp:   true,
	ShowLevel:       true,
	TimestampFormat: time.RFC3339Nano,

	// Queue
	BufferSize:     1024,
	QueueType:      queue.TypeRing,
	OverflowPolicy: queue.PolicyDirect,
	DiscardLevel:   LevelWarn,
	BatchSize:      256,

	// Dispatcher
	FlushIntervalMs:   100,
	ShutdownTimeoutMs: 2000,
	ReconfigTimeoutMs: 5000,

	// File sink
	FilePath:     "./log/app.log",
	FileAppend:   true,
	FileBufferKB: 64,

	// Triggering
	MaxSizeKB: 10 * 1024,

	// Rollover
	RolloverStrategy:   rolling.StrategyPattern,
	MinIndex:           1,
	MaxFiles:           7,
	CompressionWorkers: 1,

	// Console
	EnableConsole: true,
	ConsoleTarget: appender.TargetStdout,

	// HTTP
	HTTPTimeoutMs: 5000,

	// Status
	HeartbeatIntervalS: 60,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads configuration from the [logpipe] table of a TOML
// file and returns a validated Config. A missing file yields the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()
	if err := loader.RegisterStruct(configPrefix, *cfg); err != nil {
		return nil, fmtErrorf("failed to register config struct: %w", err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmtErrorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, configPrefix, cfg); err != nil {
		return nil, fmtErrorf("failed to extract config values: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmtErrorf("failed to apply overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes cfg as a [logpipe] TOML table to path
func SaveConfig(cfg *Config, path string) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmtErrorf("failed to create config directory '%s': %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmtErrorf("failed to create config file '%s': %w", tmp, err)
	}
	table := map[string]*Config{strings.TrimSuffix(configPrefix, "."): cfg}
	encErr := toml.NewEncoder(f).Encode(table)
	closeErr := f.Close()
	if err := combineErrors(encErr, closeErr); err != nil {
		_ = os.Remove(tmp)
		return fmtErrorf("failed to write config file '%s': %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmtErrorf("failed to replace config file '%s': %w", path, err)
	}
	return nil
}

// extractConfig extracts values from lixenwraith/config into our Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		if tomlTag := t.Field(i).Tag.Get("toml"); tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
			field.SetInt(int64(v))
		case string:
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("expected integer, got '%s'", v)
			}
			field.SetInt(i)
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Float64:
		switch v := value.(type) {
		case float64:
			field.SetFloat(v)
		case int64:
			field.SetFloat(float64(v))
		case int:
			field.SetFloat(float64(v))
		default:
			return fmt.Errorf("expected float64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// String validations
	if strings.TrimSpace(c.Name) == "" {
		return fmtErrorf("name cannot be empty")
	}

	if c.Format != sanitizer.FormatTxt && c.Format != sanitizer.FormatJSON && c.Format != sanitizer.FormatRaw {
		return fmtErrorf("invalid format: '%s' (use txt, json, or raw)", c.Format)
	}

	switch sanitizer.PolicyPreset(c.Sanitization) {
	case "", sanitizer.PolicyRaw, sanitizer.PolicyTxt, sanitizer.PolicyJSON, sanitizer.PolicyShell:
	default:
		return fmtErrorf("invalid sanitization: '%s' (use raw, txt, json, or shell)", c.Sanitization)
	}

	if strings.TrimSpace(c.TimestampFormat) == "" {
		return fmtErrorf("timestamp_format cannot be empty")
	}

	if c.QueueType != queue.TypeRing && c.QueueType != queue.TypeLocked {
		return fmtErrorf("invalid queue_type: '%s' (use ring or locked)", c.QueueType)
	}

	if _, err := queue.NewFullPolicy(c.OverflowPolicy, 0); err != nil || c.OverflowPolicy == "" {
		return fmtErrorf("invalid overflow_policy: '%s' (use block, discard, or direct)", c.OverflowPolicy)
	}

	switch c.ConsoleTarget {
	case appender.TargetStdout, appender.TargetStderr, appender.TargetSplit:
	default:
		return fmtErrorf("invalid console_target: '%s' (use stdout, stderr, or split)", c.ConsoleTarget)
	}

	if c.RolloverStrategy != rolling.StrategyPattern && c.RolloverStrategy != rolling.StrategyFixedWindow {
		return fmtErrorf("invalid rollover_strategy: '%s' (use pattern or fixed)", c.RolloverStrategy)
	}

	if _, err := rolling.ParseCompression(c.Compression); err != nil {
		return fmtErrorf("invalid compression: %w", err)
	}

	if c.RolloverUnit != "" {
		if _, err := rolling.ParseUnit(c.RolloverUnit); err != nil {
			return fmtErrorf("invalid rollover_unit: %w", err)
		}
	}

	if c.EnableFile && strings.TrimSpace(c.FilePath) == "" {
		return fmtErrorf("file_path cannot be empty when file output is enabled")
	}

	// Numeric validations
	if c.BufferSize <= 0 {
		return fmtErrorf("buffer_size must be positive: %d", c.BufferSize)
	}

	if c.BatchSize <= 0 {
		return fmtErrorf("batch_size must be positive: %d", c.BatchSize)
	}

	if c.MaxSizeKB < 0 || c.MaxTotalSizeKB < 0 || c.FileBufferKB < 0 {
		return fmtErrorf("size limits cannot be negative")
	}

	if c.FlushIntervalMs <= 0 || c.ShutdownTimeoutMs <= 0 || c.ReconfigTimeoutMs <= 0 {
		return fmtErrorf("interval settings must be positive")
	}

	if c.BlockTimeoutMs < 0 || c.HTTPTimeoutMs < 0 {
		return fmtErrorf("timeouts cannot be negative")
	}

	if c.TraceDepth < 0 || c.TraceDepth > 10 {
		return fmtErrorf("trace_depth must be between 0 and 10: %d", c.TraceDepth)
	}

	if c.RolloverInterval < 0 || c.MaxFiles < 0 || c.MinIndex < 0 || c.CompressionWorkers < 0 {
		return fmtErrorf("rollover settings cannot be negative")
	}

	if c.RetentionPeriodHrs < 0 {
		return fmtErrorf("retention_period_hrs cannot be negative")
	}

	if c.HeartbeatLevel < 0 || c.HeartbeatLevel > 3 {
		return fmtErrorf("heartbeat_level must be between 0 and 3: %d", c.HeartbeatLevel)
	}

	// Cross-field validations
	if c.RolloverStrategy == rolling.StrategyFixedWindow && c.MaxFiles > 0 && c.MaxFiles < c.MinIndex {
		return fmtErrorf("max_files (%d) cannot be less than min_index (%d) for the fixed strategy",
			c.MaxFiles, c.MinIndex)
	}

	if c.HeartbeatLevel > 0 && c.HeartbeatIntervalS <= 0 {
		return fmtErrorf("heartbeat_interval_s must be positive when heartbeat is enabled: %d",
			c.HeartbeatIntervalS)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}

// configRequiresRestart reports whether moving from old to new needs a new queue
func configRequiresRestart(oldCfg, newCfg *Config) bool {
	return oldCfg.BufferSize != newCfg.BufferSize ||
		oldCfg.QueueType != newCfg.QueueType ||
		oldCfg.OverflowPolicy != newCfg.OverflowPolicy ||
		oldCfg.DiscardLevel != newCfg.DiscardLevel ||
		oldCfg.BlockTimeoutMs != newCfg.BlockTimeoutMs ||
		oldCfg.BatchSize != newCfg.BatchSize ||
		oldCfg.FlushIntervalMs != newCfg.FlushIntervalMs ||
		oldCfg.HeartbeatLevel != newCfg.HeartbeatLevel ||
		oldCfg.HeartbeatIntervalS != newCfg.HeartbeatIntervalS
}
