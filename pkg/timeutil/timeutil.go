package timeutil

import "time"

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysAgo returns UTC midnight n days before t.
func DaysAgo(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, -n)
}

// SameDay reports whether a and b fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// MonthKey formats t as a YYYY-MM bucket label.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// DayKey formats t as a YYYY-MM-DD bucket label.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CombineDateTime anchors a wall-clock instant on the calendar date of day.
func CombineDateTime(day time.Time, hour, minute int) time.Time {
	day = day.UTC()
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}
