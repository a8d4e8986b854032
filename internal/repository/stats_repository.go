package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-center-api/internal/models"
)

// StatsRepository provides the read-only queries consumed by the performance
// snapshot engine. It never writes.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository instantiates the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Student fetches the profile row for one student. A missing student yields
// (nil, nil).
func (r *StatsRepository) Student(ctx context.Context, studentID string) (*models.Student, error) {
	const query = `SELECT id, full_name, level, total_score, mastery_level, created_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query student: %w", err)
	}
	return &student, nil
}

// ActiveGroupIDs returns the student's current group set. Enrollment state is
// always read fresh, never cached across requests.
func (r *StatsRepository) ActiveGroupIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT group_id FROM enrollments WHERE student_id = $1 AND is_active = TRUE`
	var groupIDs []string
	if err := r.db.SelectContext(ctx, &groupIDs, query, studentID); err != nil {
		return nil, fmt.Errorf("query active enrollments: %w", err)
	}
	return groupIDs, nil
}

type attendanceRow struct {
	models.Attendance
	ScheduleID      *string        `db:"schedule_id"`
	ScheduleGroupID *string        `db:"schedule_group_id"`
	ScheduleDate    *time.Time     `db:"schedule_date"`
	ScheduleTimes   pq.StringArray `db:"schedule_times"`
	ScheduleNotes   *string        `db:"schedule_notes"`
}

// AttendanceHistory returns every attendance row of the student with its
// schedule left-joined. Legacy rows without a schedule survive the join.
func (r *StatsRepository) AttendanceHistory(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.student_id, a.group_id, a.class_schedule_id, a.date, a.is_present, a.arrival_time,
        cs.id AS schedule_id, cs.group_id AS schedule_group_id, cs.date AS schedule_date,
        cs.times AS schedule_times, cs.notes AS schedule_notes
        FROM attendances a
        LEFT JOIN class_schedules cs ON cs.id = a.class_schedule_id
        WHERE a.student_id = $1
        ORDER BY a.date ASC`
	var rows []attendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("query attendance history: %w", err)
	}

	records := make([]models.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		record := models.AttendanceRecord{Attendance: row.Attendance}
		if row.ScheduleID != nil {
			record.Schedule = &models.ClassSchedule{
				ID:      *row.ScheduleID,
				GroupID: derefString(row.ScheduleGroupID),
				Times:   row.ScheduleTimes,
				Notes:   row.ScheduleNotes,
			}
			if row.ScheduleDate != nil {
				record.Schedule.Date = *row.ScheduleDate
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// SchedulesOn lists the class schedules of the given groups on one calendar
// date.
func (r *StatsRepository) SchedulesOn(ctx context.Context, groupIDs []string, day time.Time) ([]models.ClassSchedule, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, group_id, date, times, notes FROM class_schedules
        WHERE group_id = ANY($1) AND date = $2`
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, pq.Array(groupIDs), day); err != nil {
		return nil, fmt.Errorf("query schedules on %s: %w", day.Format("2006-01-02"), err)
	}
	return schedules, nil
}

type testResultRow struct {
	models.TestResult
	TestGroupID         string          `db:"test_group_id"`
	TestClassScheduleID *string         `db:"test_class_schedule_id"`
	TestDate            time.Time       `db:"test_date"`
	TestType            models.TestType `db:"test_type"`
	TestTotalQuestions  int             `db:"test_total_questions"`
	TestTitle           string          `db:"test_title"`
	GroupName           string          `db:"group_name"`
}

// TestResults returns every test result of the student with the test
// definition and group name joined in.
func (r *StatsRepository) TestResults(ctx context.Context, studentID string) ([]models.TestResultRecord, error) {
	const query = `SELECT tr.id, tr.test_id, tr.student_id, tr.correct_answers, tr.created_at,
        t.group_id AS test_group_id, t.class_schedule_id AS test_class_schedule_id,
        t.date AS test_date, t.type AS test_type, t.total_questions AS test_total_questions,
        t.title AS test_title, g.name AS group_name
        FROM test_results tr
        JOIN tests t ON t.id = tr.test_id
        JOIN groups g ON g.id = t.group_id
        WHERE tr.student_id = $1
        ORDER BY tr.created_at ASC`
	var rows []testResultRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("query test results: %w", err)
	}

	records := make([]models.TestResultRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.TestResultRecord{
			TestResult: row.TestResult,
			Test: models.Test{
				ID:              row.TestID,
				GroupID:         row.TestGroupID,
				ClassScheduleID: row.TestClassScheduleID,
				Date:            row.TestDate,
				Type:            row.TestType,
				TotalQuestions:  row.TestTotalQuestions,
				Title:           row.TestTitle,
			},
			GroupName: row.GroupName,
		})
	}
	return records, nil
}

type writtenWorkResultRow struct {
	models.WrittenWorkResult
	WorkGroupID         string    `db:"work_group_id"`
	WorkClassScheduleID *string   `db:"work_class_schedule_id"`
	WorkDate            time.Time `db:"work_date"`
	WorkTotalQuestions  int       `db:"work_total_questions"`
	WorkTimeGiven       int       `db:"work_time_given"`
	WorkTitle           string    `db:"work_title"`
	GroupName           string    `db:"group_name"`
}

// WrittenWorkResults returns every written-work result of the student with
// the work definition and group name joined in.
func (r *StatsRepository) WrittenWorkResults(ctx context.Context, studentID string) ([]models.WrittenWorkResultRecord, error) {
	const query = `SELECT wr.id, wr.written_work_id, wr.student_id, wr.correct_answers, wr.mastery_level, wr.created_at,
        w.group_id AS work_group_id, w.class_schedule_id AS work_class_schedule_id,
        w.date AS work_date, w.total_questions AS work_total_questions,
        w.time_given AS work_time_given, w.title AS work_title, g.name AS group_name
        FROM written_work_results wr
        JOIN written_works w ON w.id = wr.written_work_id
        JOIN groups g ON g.id = w.group_id
        WHERE wr.student_id = $1
        ORDER BY wr.created_at ASC`
	var rows []writtenWorkResultRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("query written work results: %w", err)
	}

	records := make([]models.WrittenWorkResultRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.WrittenWorkResultRecord{
			WrittenWorkResult: row.WrittenWorkResult,
			Work: models.WrittenWork{
				ID:              row.WrittenWorkID,
				GroupID:         row.WorkGroupID,
				ClassScheduleID: row.WorkClassScheduleID,
				Date:            row.WorkDate,
				TotalQuestions:  row.WorkTotalQuestions,
				TimeGiven:       row.WorkTimeGiven,
				Title:           row.WorkTitle,
			},
			GroupName: row.GroupName,
		})
	}
	return records, nil
}

// OutstandingDebt sums the student's unpaid and overdue payments.
func (r *StatsRepository) OutstandingDebt(ctx context.Context, studentID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payments
        WHERE student_id = $1 AND status IN ('unpaid', 'overdue')`
	var debt float64
	if err := r.db.GetContext(ctx, &debt, query, studentID); err != nil {
		return 0, fmt.Errorf("query outstanding debt: %w", err)
	}
	return debt, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
