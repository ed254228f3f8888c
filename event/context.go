// FILE: lixenwraith/logpipe/event/context.go
package event

import (
	"context"
	"sort"
)

// Context is the diagnostic map and stack carried with an event.
// A Context value is never mutated in place: every With/Push/Pop returns a new
// value backed by fresh storage, so capturing it into an event is a snapshot.
type Context struct {
	values map[string]any
	stack  []string
}

// With returns a copy of the context with key set to v
func (c Context) With(key string, v any) Context {
	values := make(map[string]any, len(c.values)+1)
	for k, val := range c.values {
		values[k] = val
	}
	values[key] = v
	return Context{values: values, stack: c.stack}
}

// Without returns a copy of the context with key removed
func (c Context) Without(key string) Context {
	if _, ok := c.values[key]; !ok {
		return c
	}
	values := make(map[string]any, len(c.values))
	for k, val := range c.values {
		if k != key {
			values[k] = val
		}
	}
	return Context{values: values, stack: c.stack}
}

// Push returns a copy of the context with s appended to the stack
func (c Context) Push(s string) Context {
	stack := make([]string, len(c.stack), len(c.stack)+1)
	copy(stack, c.stack)
	return Context{values: c.values, stack: append(stack, s)}
}

// Pop returns a copy of the context with the top stack entry removed
func (c Context) Pop() Context {
	if len(c.stack) == 0 {
		return c
	}
	return Context{values: c.values, stack: c.stack[:len(c.stack)-1:len(c.stack)-1]}
}

// Value returns the value stored under key
func (c Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of map entries
func (c Context) Len() int {
	return len(c.values)
}

// IsEmpty reports whether both the map and the stack are empty
func (c Context) IsEmpty() bool {
	return len(c.values) == 0 && len(c.stack) == 0
}

// Keys returns the map keys in sorted order
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stack returns a copy of the stack, bottom first
func (c Context) Stack() []string {
	if len(c.stack) == 0 {
		return nil
	}
	out := make([]string, len(c.stack))
	copy(out, c.stack)
	return out
}

type contextKey struct{}

// NewContext returns ctx carrying the diagnostic context dc
func NewContext(ctx context.Context, dc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, dc)
}

// FromContext extracts the diagnostic context from ctx
func FromContext(ctx context.Context) Context {
	if ctx == nil {
		return Context{}
	}
	dc, _ := ctx.Value(contextKey{}).(Context)
	return dc
}

// WithValue returns ctx with key added to its diagnostic map
func WithValue(ctx context.Context, key string, v any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(key, v))
}

// WithStack returns ctx with s pushed onto its diagnostic stack
func WithStack(ctx context.Context, s string) context.Context {
	return NewContext(ctx, FromContext(ctx).Push(s))
}
