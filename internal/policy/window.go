package policy

import (
	"slices"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// IsWithinAllowedWindow reports whether usage is permitted at nowMinute on
// nowWeekday.
//
// No enabled window means no restriction. Otherwise an enabled window must
// list the weekday and contain the minute, both ends inclusive. Windows
// crossing midnight (start > end) never match; split them in two instead.
func IsWithinAllowedWindow(windows []domain.TimeWindow, nowMinute, nowWeekday int) bool {
	constrained := false
	for _, w := range windows {
		if !w.Enabled {
			continue
		}
		constrained = true
		if w.Start > w.End {
			continue
		}
		if slices.Contains(w.Days, nowWeekday) && w.Start <= nowMinute && nowMinute <= w.End {
			return true
		}
	}
	return !constrained
}

// Evaluator evaluates windows against a clock with a fixed UTC offset.
type Evaluator struct {
	clock            domain.Clock
	utcOffsetMinutes int
}

// NewEvaluator creates an evaluator.
func NewEvaluator(clock domain.Clock, utcOffsetMinutes int) *Evaluator {
	return &Evaluator{clock: clock, utcOffsetMinutes: utcOffsetMinutes}
}

// Allowed evaluates windows at the clock's current time.
func (e *Evaluator) Allowed(windows []domain.TimeWindow) bool {
	now := e.clock.Now()
	return IsWithinAllowedWindow(windows,
		MinutesSinceMidnight(now, e.utcOffsetMinutes),
		WeekdayIndex(now, e.utcOffsetMinutes))
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock returns a settable time. Safe for concurrent use.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock creates a clock frozen at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{t: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var (
	_ domain.Clock = SystemClock{}
	_ domain.Clock = (*ManualClock)(nil)
)
