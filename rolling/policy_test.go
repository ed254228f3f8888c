// FILE: lixenwraith/logpipe/rolling/policy_test.go
package rolling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSizePolicy(t *testing.T) {
	p := SizePolicy{MaxSize: 100}

	tests := []struct {
		name    string
		size    int64
		pending int64
		want    bool
	}{
		{"EmptyFileNeverTriggers", 0, 500, false},
		{"ExactlyAtLimit", 50, 50, false},
		{"OverLimit", 50, 51, true},
		{"AlreadyOver", 150, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsTriggering(State{Size: tt.size}, tt.pending, time.Now()))
		})
	}

	assert.False(t, SizePolicy{}.IsTriggering(State{Size: 1 << 30}, 1, time.Now()), "zero limit disables")
}

func TestTimePolicyNextBoundary(t *testing.T) {
	from := time.Date(2024, 3, 5, 13, 45, 10, 0, time.UTC)

	tests := []struct {
		name   string
		policy TimePolicy
		want   time.Time
	}{
		{"Daily", TimePolicy{Interval: 1, Unit: UnitDay}, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{"DefaultUnitIsDay", TimePolicy{}, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)},
		{"SixHoursModulated", TimePolicy{Interval: 6, Unit: UnitHour, Modulate: true}, time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)},
		{"SixHoursFromStart", TimePolicy{Interval: 6, Unit: UnitHour}, time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)},
		{"FifteenMinutesModulated", TimePolicy{Interval: 15, Unit: UnitMinute, Modulate: true}, time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)},
		{"Monthly", TimePolicy{Interval: 1, Unit: UnitMonth}, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"Yearly", TimePolicy{Interval: 1, Unit: UnitYear}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.NextBoundary(from))
		})
	}

	// A start exactly on a boundary moves to the following one
	onBoundary := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), TimePolicy{Unit: UnitDay}.NextBoundary(onBoundary))

	// Month-end start does not overflow into the following month
	jan31 := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), TimePolicy{Unit: UnitMonth}.NextBoundary(jan31))
}

func TestTimePolicyTriggering(t *testing.T) {
	p := TimePolicy{Interval: 1, Unit: UnitDay, Location: time.UTC}
	st := State{PeriodStart: time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)}

	assert.False(t, p.IsTriggering(st, 10, time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)))
	assert.True(t, p.IsTriggering(st, 10, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.IsTriggering(st, 10, time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)), "several elapsed periods")
	assert.False(t, p.IsTriggering(st, 10, time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)), "clock moved backwards")
	assert.False(t, p.IsTriggering(State{}, 10, time.Now()), "no period start")
}

func TestStartupAndCompositePolicy(t *testing.T) {
	startup := StartupPolicy{}
	assert.True(t, startup.IsTriggering(State{Fresh: true, Size: 1}, 0, time.Now()))
	assert.False(t, startup.IsTriggering(State{Fresh: true, Size: 0}, 0, time.Now()))
	assert.False(t, startup.IsTriggering(State{Fresh: false, Size: 100}, 0, time.Now()))
	assert.False(t, StartupPolicy{MinSize: 100}.IsTriggering(State{Fresh: true, Size: 50}, 0, time.Now()))

	composite := CompositePolicy{SizePolicy{MaxSize: 100}, nil, StartupPolicy{}}
	assert.False(t, composite.IsTriggering(State{Size: 10}, 10, time.Now()))
	assert.True(t, composite.IsTriggering(State{Size: 95}, 10, time.Now()))
	assert.True(t, composite.IsTriggering(State{Size: 10, Fresh: true}, 10, time.Now()))
	assert.False(t, CompositePolicy{}.IsTriggering(State{Size: 1 << 20}, 1, time.Now()))
}
