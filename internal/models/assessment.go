package models

import "time"

// TestType distinguishes in-class quizzes from homework assignments.
type TestType string

const (
	TestTypeDaily    TestType = "daily_test"
	TestTypeHomework TestType = "homework"
)

// Valid returns true when the type is a supported value.
func (t TestType) Valid() bool {
	switch t {
	case TestTypeDaily, TestTypeHomework:
		return true
	default:
		return false
	}
}

// Test defines one assignment or quiz for a group, optionally pinned to a
// specific class occurrence via ClassScheduleID.
type Test struct {
	ID              string    `db:"id" json:"id"`
	GroupID         string    `db:"group_id" json:"group_id"`
	ClassScheduleID *string   `db:"class_schedule_id" json:"class_schedule_id,omitempty"`
	Date            time.Time `db:"date" json:"date"`
	Type            TestType  `db:"type" json:"type"`
	TotalQuestions  int       `db:"total_questions" json:"total_questions"`
	Title           string    `db:"title" json:"title"`
}

// TestResult is one student's outcome on a Test.
type TestResult struct {
	ID             string    `db:"id" json:"id"`
	TestID         string    `db:"test_id" json:"test_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	CorrectAnswers int       `db:"correct_answers" json:"correct_answers"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TestResultRecord joins a result with its test definition and group name.
type TestResultRecord struct {
	TestResult
	Test      Test   `json:"test"`
	GroupName string `json:"group_name"`
}
