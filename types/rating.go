package types

import "time"

// Rating score bounds, inclusive.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating is a user's score for a movie. At most one rating exists per
// (movie, user) pair; a second submission overwrites the score of the
// existing row.
type Rating struct {
	// ID is the unique identifier of the rating.
	ID int `json:"id" db:"id"`

	// MovieID references the rated movie.
	MovieID int `json:"movie_id" db:"movie_id"`

	// UserID references the user who submitted the rating.
	UserID int `json:"user_id" db:"user_id"`

	// Score is the submitted score, between MinScore and MaxScore.
	Score int `json:"score" db:"score"`

	// CreatedAt is the timestamp of the first submission.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent score change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
