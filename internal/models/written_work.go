package models

import "time"

// WrittenWork defines a longer-form assessment for a group.
type WrittenWork struct {
	ID              string    `db:"id" json:"id"`
	GroupID         string    `db:"group_id" json:"group_id"`
	ClassScheduleID *string   `db:"class_schedule_id" json:"class_schedule_id,omitempty"`
	Date            time.Time `db:"date" json:"date"`
	TotalQuestions  int       `db:"total_questions" json:"total_questions"`
	TimeGiven       int       `db:"time_given" json:"time_given"`
	Title           string    `db:"title" json:"title"`
}

// WrittenWorkResult is one student's graded outcome on a WrittenWork.
// MasteryLevel is the authoritative 0-100 score supplied by the grading
// workflow; the engine selects and averages it but never recomputes it.
type WrittenWorkResult struct {
	ID             string    `db:"id" json:"id"`
	WrittenWorkID  string    `db:"written_work_id" json:"written_work_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	CorrectAnswers int       `db:"correct_answers" json:"correct_answers"`
	MasteryLevel   *float64  `db:"mastery_level" json:"mastery_level,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// WrittenWorkResultRecord joins a result with its work definition and group
// name.
type WrittenWorkResultRecord struct {
	WrittenWorkResult
	Work      WrittenWork `json:"work"`
	GroupName string      `json:"group_name"`
}
