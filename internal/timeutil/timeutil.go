// ABOUTME: Time utility functions for date range calculations
// ABOUTME: Provides period cutoffs for mark-read and the retention cutoff for cleanup

package timeutil

import (
	"fmt"
	"time"
)

// Clock returns the current time. Components take one so tests can pin time.
type Clock func() time.Time

// System is the wall clock in UTC.
func System() time.Time {
	return time.Now().UTC()
}

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// StartOfToday returns midnight (00:00:00) of the day containing now, in now's location.
func StartOfToday(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// StartOfYesterday returns midnight of the day before now.
func StartOfYesterday(now time.Time) time.Time {
	return StartOfToday(now).AddDate(0, 0, -1)
}

// StartOfWeek returns midnight of the most recent Sunday.
// Note: Week starts on Sunday
func StartOfWeek(now time.Time) time.Time {
	today := StartOfToday(now)
	return today.AddDate(0, 0, -int(today.Weekday()))
}

// StartOfMonth returns midnight of the first day of now's month.
func StartOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// ParsePeriod converts a period string to a cutoff.
// Supported values: "today", "yesterday", "week", "month"
// Returns the start of that period (articles before this time would be marked)
func ParsePeriod(period string, now time.Time) (time.Time, bool) {
	switch period {
	case "today":
		return StartOfToday(now), true
	case "yesterday":
		return StartOfYesterday(now), true
	case "week":
		return StartOfWeek(now), true
	case "month":
		return StartOfMonth(now), true
	default:
		return time.Time{}, false
	}
}

// RetentionCutoff returns the instant before which articles fall outside a
// retention window of days. days must be positive.
func RetentionCutoff(now time.Time, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, fmt.Errorf("retention days must be positive, got %d", days)
	}
	return now.UTC().Add(-time.Duration(days) * 24 * time.Hour), nil
}

// ParseCutoff accepts either a period name or an RFC 3339 / YYYY-MM-DD date.
func ParseCutoff(s string, now time.Time) (time.Time, error) {
	if t, ok := ParsePeriod(s, now); ok {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid cutoff %q: use today, yesterday, week, month, YYYY-MM-DD or RFC 3339", s)
}
