package types

import "time"

// Movie represents a catalog entry created and owned by a user.
type Movie struct {
	// ID is the unique identifier of the movie.
	ID int `json:"id" db:"id"`

	// Title is the display title of the movie.
	Title string `json:"title" db:"title"`

	// Description is the synopsis shown in the catalog.
	Description string `json:"description" db:"description"`

	// ReleasedAt is the theatrical release date.
	ReleasedAt time.Time `json:"released_at" db:"released_at"`

	// Duration is the running time in minutes.
	Duration int `json:"duration" db:"duration"`

	// Genre is a free-form genre label.
	Genre string `json:"genre" db:"genre"`

	// Language is the primary spoken language.
	Language string `json:"language" db:"language"`

	// CreatorID references the user who created the movie. The creator
	// is the only identity allowed to mutate or delete the entry.
	CreatorID int `json:"creator_id" db:"creator_id"`

	// Poster references the poster image in object storage, if one has
	// been uploaded.
	Poster *PosterImage `json:"poster,omitempty"`

	// AvgRating is the mean of all rating scores, rounded to one decimal
	// place. 0.0 when the movie has no ratings. Derived on read, never
	// stored.
	AvgRating float64 `json:"avg_rating"`

	// TotalRatings is the number of ratings submitted for the movie.
	// Derived on read, never stored.
	TotalRatings int `json:"total_ratings"`

	// CreatedAt is the timestamp at which the movie was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the movie.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PosterImage references a poster stored in an object-storage backend.
// The SHA256 hash identifies the image contents and is used to skip
// re-uploads of identical data.
type PosterImage struct {
	// ObjectKey is the identifier of the image in object storage.
	ObjectKey string `json:"object_key" db:"poster_object_key"`

	// SHA256 is the hex-encoded SHA-256 hash of the image bytes.
	SHA256 string `json:"sha256" db:"poster_sha256"`

	// ContentType is the detected MIME type of the image.
	ContentType string `json:"content_type" db:"poster_content_type"`
}
