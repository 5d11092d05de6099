package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	secondsPerDay = 86400

	// LastMinuteOfDay is the largest valid minute-of-day value (23:59).
	LastMinuteOfDay = 1439

	// epochWeekdayOffset shifts day 0 (1970-01-01, a Thursday) onto the
	// Sunday=0 index.
	epochWeekdayOffset = 4
)

// DefaultInterval is the reference cadence of the enforcement loop.
// One budget minute is accounted per cycle.
const DefaultInterval = 30 * time.Second

// localSeconds returns unix seconds shifted by a fixed UTC offset.
func localSeconds(now time.Time, utcOffsetMinutes int) int64 {
	return now.Unix() + int64(utcOffsetMinutes)*60
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// MinutesSinceMidnight returns the minute of the day in [0, 1439] for now,
// shifted by utcOffsetMinutes.
func MinutesSinceMidnight(now time.Time, utcOffsetMinutes int) int {
	secs := localSeconds(now, utcOffsetMinutes)
	return int(floorMod(secs, secondsPerDay) / 60)
}

// WeekdayIndex returns (daysSinceEpoch + 4) mod 7, so 0 is Sunday.
func WeekdayIndex(now time.Time, utcOffsetMinutes int) int {
	secs := localSeconds(now, utcOffsetMinutes)
	days := (secs - floorMod(secs, secondsPerDay)) / secondsPerDay
	return WeekdayForDay(days)
}

// WeekdayForDay maps a day count since the unix epoch to a weekday index.
func WeekdayForDay(daysSinceEpoch int64) int {
	return int(floorMod(daysSinceEpoch+epochWeekdayOffset, 7))
}

// ParseHHMM converts "HH:MM" to minutes since midnight. Fields after the
// minutes ("08:30:00") are ignored. Malformed input yields 0; the result
// is clamped to [0, 1439].
func ParseHHMM(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	return clampMinute(h*60 + m)
}

// FormatHHMM renders minutes since midnight as "HH:MM".
func FormatHHMM(minute int) string {
	minute = clampMinute(minute)
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func clampMinute(m int) int {
	return min(max(m, 0), LastMinuteOfDay)
}
