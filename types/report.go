package types

import "time"

// Report statuses. A report starts out pending and is moved to approved
// or rejected by an admin exactly once; resolved reports are terminal.
const (
	ReportPending  = "pending"
	ReportApproved = "approved"
	ReportRejected = "rejected"
)

// Report is a user-submitted complaint against a movie, reviewed by an
// admin through the moderation workflow.
type Report struct {
	// ID is the unique identifier of the report.
	ID int `json:"id" db:"id"`

	// MovieID references the reported movie.
	MovieID int `json:"movie_id" db:"movie_id"`

	// UserID references the user who filed the report.
	UserID int `json:"user_id" db:"user_id"`

	// Reason is the free-form justification given by the reporter.
	Reason string `json:"reason" db:"reason"`

	// Status is one of pending, approved, or rejected.
	Status string `json:"status" db:"status"`

	// Movie is the reported movie, populated on admin listings.
	Movie *Movie `json:"movie,omitempty"`

	// CreatedAt is the timestamp at which the report was filed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent status change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
