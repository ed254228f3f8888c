// FILE: lixenwraith/logpipe/rolling/registry.go
package rolling

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Registry shares one Manager per absolute file path so that several
// appenders, or an appender across reconfiguration, never open competing
// handles on the same file.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	manager *Manager
	refs    int
}

// DefaultRegistry is the process-wide registry used by file appenders
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Acquire returns the manager for path, opening it with opts on first use.
// A manager that is already open keeps its file and counters and adopts the
// policy and strategy from opts.
func (r *Registry) Acquire(path string, opts Options) (*Manager, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("rolling: failed to resolve '%s': %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		e.refs++
		e.manager.Update(opts.Policy, opts.Strategy)
		return e.manager, nil
	}

	m, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	r.entries[key] = &registryEntry{manager: m, refs: 1}
	return m, nil
}

// Release drops one reference to path and closes its manager with the last one
func (r *Registry) Release(path string) error {
	key, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("rolling: failed to resolve '%s': %w", path, err)
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, key)
	r.mu.Unlock()

	return e.manager.Close()
}

// Len returns the number of open managers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
