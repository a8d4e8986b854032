package models

import "time"

// Student is the profile row read by the performance engine.
// MasteryLevel is a legacy aggregate persisted by the grading workflow and is
// surfaced alongside the live metrics, never recomputed here.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Level        int       `db:"level" json:"level"`
	TotalScore   int       `db:"total_score" json:"total_score"`
	MasteryLevel int       `db:"mastery_level" json:"mastery_level"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
