package services

import "errors"

var (
	// ErrNotOwner is returned when a user tries to mutate a movie they
	// did not create.
	ErrNotOwner = errors.New("not the movie owner")

	// ErrScoreOutOfRange is returned for rating scores outside [1,5].
	ErrScoreOutOfRange = errors.New("score out of range")

	// ErrInvalidAction is returned for resolution actions other than
	// approve or reject.
	ErrInvalidAction = errors.New("invalid resolution action")

	// ErrAlreadyResolved is returned when resolving a report that has
	// already left the pending state. Resolved reports are terminal.
	ErrAlreadyResolved = errors.New("report already resolved")

	// ErrStorageDisabled is returned from poster operations when no
	// object-storage backend is configured.
	ErrStorageDisabled = errors.New("poster storage is not configured")

	// ErrUnsupportedPoster is returned for poster uploads that are not
	// JPEG, PNG, or WebP images.
	ErrUnsupportedPoster = errors.New("unsupported poster image format")

	// ErrNoPoster is returned when a movie has no poster uploaded.
	ErrNoPoster = errors.New("movie has no poster")
)
