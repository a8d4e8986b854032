package service

import (
	"math"
	"time"

	"github.com/noah-isme/tutoring-center-api/internal/models"
	"github.com/noah-isme/tutoring-center-api/pkg/timeutil"
)

// attendanceScore converts one attendance record into a 0-100 presence
// score. Absence scores 0, rows that cannot be anchored on a class window
// keep full credit, and late arrivals decay linearly across the window.
// Only the first scheduled start time anchors the window even when a
// schedule row encodes several back-to-back occurrences.
func attendanceScore(rec models.AttendanceRecord, classDuration time.Duration) int {
	if !rec.IsPresent {
		return 0
	}
	if rec.ArrivalTime == nil || rec.Schedule == nil {
		return 100
	}
	hour, minute, ok := rec.Schedule.FirstStartTime()
	if !ok {
		return 100
	}

	start := timeutil.CombineDateTime(rec.Schedule.Date, hour, minute)
	end := start.Add(classDuration)
	arrival := rec.ArrivalTime.UTC()

	if !arrival.After(start) {
		return 100
	}
	if !arrival.Before(end) {
		return 0
	}
	score := int(math.Round(100 * float64(end.Sub(arrival)) / float64(classDuration)))
	return clampPct(score)
}

// attendanceContext carries the two outputs of the attendance filter pass:
// the headline rate for the target day and the all-time set of occurrences
// the student was present for.
type attendanceContext struct {
	rate     int
	attended map[string]struct{}
}

// resolveAttendance picks today as the target day when it has both schedules
// and attendance records, falling back to yesterday otherwise. The headline
// rate averages decay scores over target-day rows tied to the target day's
// schedules in active groups. The attended set spans all time and feeds the
// occurrence gate on test aggregation; written-work scoring never reads it.
func resolveAttendance(history []models.AttendanceRecord, schedulesToday, schedulesYesterday []models.ClassSchedule, activeGroups map[string]struct{}, now time.Time, classDuration time.Duration) attendanceContext {
	today := timeutil.StartOfDay(now)
	yesterday := timeutil.DaysAgo(now, 1)

	hasTodayRows := false
	for _, rec := range history {
		if !timeutil.SameDay(rec.Date, today) {
			continue
		}
		if _, ok := activeGroups[rec.GroupID]; !ok {
			continue
		}
		hasTodayRows = true
		break
	}

	targetDay := today
	targetSchedules := scheduleIDSet(schedulesToday)
	if len(schedulesToday) == 0 || !hasTodayRows {
		targetDay = yesterday
		targetSchedules = scheduleIDSet(schedulesYesterday)
	}

	var sum, count int
	attended := make(map[string]struct{})
	for _, rec := range history {
		_, active := activeGroups[rec.GroupID]

		if active && rec.IsPresent && rec.ClassScheduleID != nil {
			attended[*rec.ClassScheduleID] = struct{}{}
		}

		if !active || !timeutil.SameDay(rec.Date, targetDay) {
			continue
		}
		if rec.ClassScheduleID == nil {
			continue
		}
		if _, ok := targetSchedules[*rec.ClassScheduleID]; !ok {
			continue
		}
		sum += attendanceScore(rec, classDuration)
		count++
	}

	rate := 0
	if count > 0 {
		rate = int(math.Round(float64(sum) / float64(count)))
	}
	return attendanceContext{rate: clampPct(rate), attended: attended}
}

func scheduleIDSet(schedules []models.ClassSchedule) map[string]struct{} {
	set := make(map[string]struct{}, len(schedules))
	for _, schedule := range schedules {
		set[schedule.ID] = struct{}{}
	}
	return set
}

func clampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// pctOf rounds 100*part/total, guarding the empty denominator.
func pctOf(part, total int) int {
	if total <= 0 {
		return 0
	}
	return clampPct(int(math.Round(100 * float64(part) / float64(total))))
}
