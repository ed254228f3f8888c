// FILE: lixenwraith/logpipe/appender/filter.go
package appender

import (
	"reflect"

	"github.com/lixenwraith/logpipe/event"
)

// Decision is the verdict of a Filter
type Decision int

const (
	Neutral Decision = iota
	Accept
	Deny
)

// String returns the decision name
func (d Decision) String() string {
	switch d {
	case Accept:
		return "ACCEPT"
	case Deny:
		return "DENY"
	default:
		return "NEUTRAL"
	}
}

// Filter inspects an event without side effects
type Filter interface {
	Decide(ev *event.Event) Decision
}

// FilterFunc adapts a function to Filter
type FilterFunc func(ev *event.Event) Decision

// Decide implements Filter
func (f FilterFunc) Decide(ev *event.Event) Decision { return f(ev) }

// Evaluate runs filters in order and stops at the first Deny.
// Accept and Neutral both continue; an event no filter denies is admitted.
func Evaluate(filters []Filter, ev *event.Event) bool {
	for _, f := range filters {
		if f != nil && f.Decide(ev) == Deny {
			return false
		}
	}
	return true
}

// ThresholdFilter denies events below Level and is neutral otherwise
type ThresholdFilter struct {
	Level event.Level
}

// Decide implements Filter
func (f ThresholdFilter) Decide(ev *event.Event) Decision {
	if ev.Level < f.Level {
		return Deny
	}
	return Neutral
}

// LevelRangeFilter matches events with Min <= level <= Max.
// Matching events get OnMatch, others are denied.
type LevelRangeFilter struct {
	Min     event.Level
	Max     event.Level
	OnMatch Decision
}

// Decide implements Filter
func (f LevelRangeFilter) Decide(ev *event.Event) Decision {
	if ev.Level < f.Min || ev.Level > f.Max {
		return Deny
	}
	return f.OnMatch
}

// ContextFilter compares a diagnostic context value with Value.
// A nil Value matches any event carrying Key.
type ContextFilter struct {
	Key        string
	Value      any
	OnMatch    Decision
	OnMismatch Decision
}

// Decide implements Filter
func (f ContextFilter) Decide(ev *event.Event) Decision {
	v, ok := ev.Context.Value(f.Key)
	if ok && (f.Value == nil || reflect.DeepEqual(v, f.Value)) {
		return f.OnMatch
	}
	return f.OnMismatch
}

// filtered guards an appender with its own filter chain
type filtered struct {
	Appender
	filters []Filter
}

// Filtered wraps app so that events rejected by filters never reach it
func Filtered(app Appender, filters ...Filter) Appender {
	if len(filters) == 0 {
		return app
	}
	return &filtered{Appender: app, filters: filters}
}

func (f *filtered) Append(ev *event.Event) error {
	if !Evaluate(f.filters, ev) {
		return nil
	}
	return f.Appender.Append(ev)
}

func (f *filtered) Flush() error {
	if fl, ok := f.Appender.(Flusher); ok {
		return fl.Flush()
	}
	return nil
}

// Unwrap returns the guarded appender
func (f *filtered) Unwrap() Appender {
	return f.Appender
}
