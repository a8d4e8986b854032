package models

import "time"

// Attendance records a student's presence for one class occurrence.
// ClassScheduleID and ArrivalTime are nullable on legacy rows; the engine
// resolves both absences to documented defaults instead of rejecting them.
type Attendance struct {
	ID              string     `db:"id" json:"id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	GroupID         string     `db:"group_id" json:"group_id"`
	ClassScheduleID *string    `db:"class_schedule_id" json:"class_schedule_id,omitempty"`
	Date            time.Time  `db:"date" json:"date"`
	IsPresent       bool       `db:"is_present" json:"is_present"`
	ArrivalTime     *time.Time `db:"arrival_time" json:"arrival_time,omitempty"`
}

// AttendanceRecord joins an attendance row with its schedule, when one is
// still resolvable.
type AttendanceRecord struct {
	Attendance
	Schedule *ClassSchedule `json:"schedule,omitempty"`
}
