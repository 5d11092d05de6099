package policy

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

var weekdays = []int{1, 2, 3, 4, 5}

// No windows, or only disabled ones, never restrict.
func TestIsWithinAllowedWindow_NoConstraints(t *testing.T) {
	disabled := []domain.TimeWindow{
		{Start: 600, End: 660, Days: weekdays, Enabled: false},
		{Start: 0, End: 10, Days: []int{0}, Enabled: false},
	}
	for day := 0; day < 7; day++ {
		for minute := 0; minute <= LastMinuteOfDay; minute += 7 {
			assert.True(t, IsWithinAllowedWindow(nil, minute, day))
			assert.True(t, IsWithinAllowedWindow([]domain.TimeWindow{}, minute, day))
			assert.True(t, IsWithinAllowedWindow(disabled, minute, day))
		}
	}
}

func TestIsWithinAllowedWindow_InclusiveBounds(t *testing.T) {
	w := []domain.TimeWindow{{Start: 960, End: 1170, Days: weekdays, Enabled: true}}

	assert.False(t, IsWithinAllowedWindow(w, 959, 1))
	assert.True(t, IsWithinAllowedWindow(w, 960, 1))
	assert.True(t, IsWithinAllowedWindow(w, 1000, 3))
	assert.True(t, IsWithinAllowedWindow(w, 1170, 5))
	assert.False(t, IsWithinAllowedWindow(w, 1171, 5))
	assert.False(t, IsWithinAllowedWindow(w, 1000, 0), "sunday not listed")
	assert.False(t, IsWithinAllowedWindow(w, 1000, 6), "saturday not listed")
}

func TestIsWithinAllowedWindow_Exhaustive(t *testing.T) {
	w := domain.TimeWindow{Start: 480, End: 720, Days: []int{0, 6}, Enabled: true}
	for day := 0; day < 7; day++ {
		for minute := 0; minute <= LastMinuteOfDay; minute++ {
			want := slices.Contains(w.Days, day) && minute >= w.Start && minute <= w.End
			got := IsWithinAllowedWindow([]domain.TimeWindow{w}, minute, day)
			if got != want {
				t.Fatalf("day=%d minute=%d: got %v want %v", day, minute, got, want)
			}
		}
	}
}

// Windows crossing midnight are not supported and never match.
func TestIsWithinAllowedWindow_InvertedNeverMatches(t *testing.T) {
	w := []domain.TimeWindow{{Start: 1320, End: 60, Days: []int{0, 1, 2, 3, 4, 5, 6}, Enabled: true}}
	for day := 0; day < 7; day++ {
		for minute := 0; minute <= LastMinuteOfDay; minute++ {
			assert.False(t, IsWithinAllowedWindow(w, minute, day))
		}
	}
}

func TestIsWithinAllowedWindow_AnyEnabledWindowSuffices(t *testing.T) {
	w := []domain.TimeWindow{
		{Start: 420, End: 480, Days: weekdays, Enabled: true},
		{Start: 1000, End: 1100, Days: weekdays, Enabled: false},
		{Start: 600, End: 1200, Days: []int{0, 6}, Enabled: true},
	}
	assert.True(t, IsWithinAllowedWindow(w, 450, 2))
	assert.False(t, IsWithinAllowedWindow(w, 1050, 2), "only a disabled window covers it")
	assert.True(t, IsWithinAllowedWindow(w, 1050, 6))
}

func TestEvaluator_UsesClockAndOffset(t *testing.T) {
	// Friday 2024-03-15 15:30 UTC, 16:30 at +60.
	clock := NewManualClock(time.Date(2024, 3, 15, 15, 30, 0, 0, time.UTC))
	windows := []domain.TimeWindow{{Start: 960, End: 1080, Days: weekdays, Enabled: true}}

	assert.False(t, NewEvaluator(clock, 0).Allowed(windows))
	assert.True(t, NewEvaluator(clock, 60).Allowed(windows))

	clock.Advance(24 * time.Hour) // Saturday
	assert.False(t, NewEvaluator(clock, 60).Allowed(windows))
}
