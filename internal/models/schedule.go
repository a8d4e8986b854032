package models

import (
	"time"

	"github.com/lib/pq"
)

// ClassSchedule describes the class occurrences of a group on one date. Each
// entry in Times ("HH:MM") is a distinct back-to-back occurrence starting at
// that wall-clock time.
type ClassSchedule struct {
	ID      string         `db:"id" json:"id"`
	GroupID string         `db:"group_id" json:"group_id"`
	Date    time.Time      `db:"date" json:"date"`
	Times   pq.StringArray `db:"times" json:"times"`
	Notes   *string        `db:"notes" json:"notes,omitempty"`
}

// FirstStartTime parses the first Times entry into hour and minute. It
// returns false when the schedule carries no parseable start time.
func (s *ClassSchedule) FirstStartTime() (hour, minute int, ok bool) {
	if s == nil || len(s.Times) == 0 {
		return 0, 0, false
	}
	parsed, err := time.Parse("15:04", s.Times[0])
	if err != nil {
		return 0, 0, false
	}
	return parsed.Hour(), parsed.Minute(), true
}
