package models

import "time"

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// Payment is an invoice row; the engine only sums unpaid and overdue rows
// into the snapshot's debt figure.
type Payment struct {
	ID        string        `db:"id" json:"id"`
	StudentID string        `db:"student_id" json:"student_id"`
	Amount    float64       `db:"amount" json:"amount"`
	Status    PaymentStatus `db:"status" json:"status"`
	DueDate   time.Time     `db:"due_date" json:"due_date"`
}
