// FILE: lixenwraith/logpipe/compat/builder.go
// Package compat adapts logpipe.Logger to the logger interfaces of gnet and fasthttp.
package compat

import (
	"fmt"

	"github.com/lixenwraith/logpipe"
)

// Builder creates adapters sharing one logger.
// It can use an existing *logpipe.Logger or create one from a *logpipe.Config.
type Builder struct {
	logger *logpipe.Logger
	logCfg *logpipe.Config
	err    error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger specifies an existing logger to use for the adapters.
// If this is set WithConfig is ignored.
func (b *Builder) WithLogger(l *logpipe.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("logpipe/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig provides a configuration for a new logger instance.
// If neither WithLogger nor WithConfig is used, a default logger is created.
func (b *Builder) WithConfig(cfg *logpipe.Config) *Builder {
	b.logCfg = cfg
	return b
}

// getLogger resolves the logger, creating and starting one if necessary
func (b *Builder) getLogger() (*logpipe.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.logger != nil {
		return b.logger, nil
	}

	l := logpipe.NewLogger()
	cfg := b.logCfg
	if cfg == nil {
		cfg = logpipe.DefaultConfig()
	}
	if err := l.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	if err := l.Start(); err != nil {
		_ = l.Shutdown()
		return nil, err
	}

	// Cached for subsequent builds
	b.logger = l
	return l, nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// GetLogger returns the underlying logger, creating it if needed
func (b *Builder) GetLogger() (*logpipe.Logger, error) {
	return b.getLogger()
}
