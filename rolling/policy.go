// FILE: lixenwraith/logpipe/rolling/policy.go
package rolling

import (
	"time"
)

// State is the read-only view of a Manager passed to triggering policies
type State struct {
	Path        string
	Size        int64
	PeriodStart time.Time
	Generation  uint64
	// Fresh is true until the first write after the file was opened
	Fresh bool
}

// TriggeringPolicy decides whether writing pending more bytes at now must be
// preceded by a rotation. Implementations are pure and never mutate state.
type TriggeringPolicy interface {
	IsTriggering(st State, pending int64, now time.Time) bool
}

// SizePolicy triggers when the write would push the file past MaxSize.
// An empty file never triggers, so a single oversized record is written
// rather than rotating forever.
type SizePolicy struct {
	MaxSize int64
}

// IsTriggering implements TriggeringPolicy
func (p SizePolicy) IsTriggering(st State, pending int64, _ time.Time) bool {
	return p.MaxSize > 0 && st.Size > 0 && st.Size+pending > p.MaxSize
}

// TimePolicy triggers once the clock reaches the first period boundary after
// the current period start. With Modulate the boundaries are aligned to
// multiples of Interval within the enclosing calendar unit (every 6 hours
// means 00:00, 06:00, 12:00, 18:00) instead of being offset from the start.
type TimePolicy struct {
	Interval int
	Unit     Unit
	Modulate bool
	Location *time.Location
}

// IsTriggering implements TriggeringPolicy.
// A clock that moved backwards is before the boundary and never triggers,
// and any number of elapsed boundaries triggers exactly once because the
// manager moves the period start to now on rotation.
func (p TimePolicy) IsTriggering(st State, _ int64, now time.Time) bool {
	if st.PeriodStart.IsZero() || now.Before(st.PeriodStart) {
		return false
	}
	return !now.Before(p.NextBoundary(st.PeriodStart))
}

// NextBoundary returns the first boundary strictly after from
func (p TimePolicy) NextBoundary(from time.Time) time.Time {
	interval := p.Interval
	if interval <= 0 {
		interval = 1
	}
	unit := p.Unit
	if unit == 0 {
		unit = UnitDay
	}
	loc := p.Location
	if loc == nil {
		loc = from.Location()
	}

	start := truncate(from.In(loc), unit)
	if p.Modulate && interval > 1 {
		start = alignDown(start, unit, interval)
	}
	next := add(start, unit, interval)
	for !next.After(from) {
		next = add(next, unit, interval)
	}
	return next
}

// truncate returns the start of the unit containing t
func truncate(t time.Time, u Unit) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	loc := t.Location()
	switch u {
	case UnitSecond:
		return time.Date(y, mo, d, h, mi, s, 0, loc)
	case UnitMinute:
		return time.Date(y, mo, d, h, mi, 0, 0, loc)
	case UnitHour:
		return time.Date(y, mo, d, h, 0, 0, 0, loc)
	case UnitMonth:
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc)
	case UnitYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, mo, d, 0, 0, 0, 0, loc)
	}
}

// alignDown moves t back to a multiple of interval within the enclosing unit
func alignDown(t time.Time, u Unit, interval int) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	loc := t.Location()
	switch u {
	case UnitSecond:
		return time.Date(y, mo, d, h, mi, s-s%interval, 0, loc)
	case UnitMinute:
		return time.Date(y, mo, d, h, mi-mi%interval, 0, 0, loc)
	case UnitHour:
		return time.Date(y, mo, d, h-h%interval, 0, 0, 0, loc)
	case UnitMonth:
		m := int(mo) - 1
		return time.Date(y, time.Month(m-m%interval+1), 1, 0, 0, 0, 0, loc)
	case UnitYear:
		return time.Date(y-y%interval, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, mo, d-(d-1)%interval, 0, 0, 0, 0, loc)
	}
}

// add advances t by n units using calendar arithmetic
func add(t time.Time, u Unit, n int) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	loc := t.Location()
	switch u {
	case UnitSecond:
		return time.Date(y, mo, d, h, mi, s+n, 0, loc)
	case UnitMinute:
		return time.Date(y, mo, d, h, mi+n, s, 0, loc)
	case UnitHour:
		return time.Date(y, mo, d, h+n, mi, s, 0, loc)
	case UnitMonth:
		return time.Date(y, mo+time.Month(n), d, h, mi, s, 0, loc)
	case UnitYear:
		return time.Date(y+n, mo, d, h, mi, s, 0, loc)
	default:
		return time.Date(y, mo, d+n, h, mi, s, 0, loc)
	}
}

// StartupPolicy rotates a pre-existing file of at least MinSize bytes on the
// first write after the manager opened it
type StartupPolicy struct {
	MinSize int64
}

// IsTriggering implements TriggeringPolicy
func (p StartupPolicy) IsTriggering(st State, _ int64, _ time.Time) bool {
	minSize := p.MinSize
	if minSize < 1 {
		minSize = 1
	}
	return st.Fresh && st.Size >= minSize
}

// CompositePolicy triggers when any member triggers
type CompositePolicy []TriggeringPolicy

// IsTriggering implements TriggeringPolicy
func (c CompositePolicy) IsTriggering(st State, pending int64, now time.Time) bool {
	for _, p := range c {
		if p != nil && p.IsTriggering(st, pending, now) {
			return true
		}
	}
	return false
}
