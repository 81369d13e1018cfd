package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/reelhub/apiserver/internal/storage"
	"github.com/reelhub/apiserver/types"
)

// MovieRepository defines persistence operations for movies.
type MovieRepository interface {
	List(ctx context.Context) ([]types.Movie, error)
	Get(ctx context.Context, id int) (types.Movie, error)
	Create(ctx context.Context, movie types.Movie) (types.Movie, error)
	Update(ctx context.Context, movie types.Movie) (types.Movie, error)
	UpdatePoster(ctx context.Context, id int, poster types.PosterImage) error
	Delete(ctx context.Context, id int) error
}

// MovieUpdate carries a partial update. Nil fields keep their prior
// values; a non-nil pointer to a zero value is applied as given, so
// clearing a field is expressible.
type MovieUpdate struct {
	Title       *string
	Description *string
	ReleasedAt  *time.Time
	Duration    *int
	Genre       *string
	Language    *string
}

// MovieService encapsulates catalog use-cases and enforces ownership on
// every mutation.
type MovieService struct {
	repo    MovieRepository
	storage *storage.Storage
}

// NewMovieService constructs a MovieService. storage may be nil, in which
// case poster operations fail with ErrStorageDisabled.
func NewMovieService(repo MovieRepository, storage *storage.Storage) *MovieService {
	return &MovieService{repo: repo, storage: storage}
}

func (s *MovieService) List(ctx context.Context) ([]types.Movie, error) {
	return s.repo.List(ctx)
}

func (s *MovieService) Get(ctx context.Context, id int) (types.Movie, error) {
	return s.repo.Get(ctx, id)
}

func (s *MovieService) Create(ctx context.Context, creatorID int, movie types.Movie) (types.Movie, error) {
	movie.CreatorID = creatorID
	return s.repo.Create(ctx, movie)
}

// Update applies a partial update to a movie owned by actorID.
func (s *MovieService) Update(ctx context.Context, movieID, actorID int, update MovieUpdate) (types.Movie, error) {
	movie, err := s.repo.Get(ctx, movieID)
	if err != nil {
		return types.Movie{}, err
	}
	if movie.CreatorID != actorID {
		return types.Movie{}, ErrNotOwner
	}

	if update.Title != nil {
		movie.Title = *update.Title
	}
	if update.Description != nil {
		movie.Description = *update.Description
	}
	if update.ReleasedAt != nil {
		movie.ReleasedAt = *update.ReleasedAt
	}
	if update.Duration != nil {
		movie.Duration = *update.Duration
	}
	if update.Genre != nil {
		movie.Genre = *update.Genre
	}
	if update.Language != nil {
		movie.Language = *update.Language
	}

	updated, err := s.repo.Update(ctx, movie)
	if err != nil {
		return types.Movie{}, err
	}
	// Aggregates are not part of the update row; carry them over from
	// the read above.
	updated.AvgRating = movie.AvgRating
	updated.TotalRatings = movie.TotalRatings
	updated.Poster = movie.Poster
	return updated, nil
}

func (s *MovieService) Delete(ctx context.Context, movieID, actorID int) error {
	movie, err := s.repo.Get(ctx, movieID)
	if err != nil {
		return err
	}
	if movie.CreatorID != actorID {
		return ErrNotOwner
	}
	return s.repo.Delete(ctx, movieID)
}

// UploadPoster validates and stores a poster image for a movie owned by
// actorID, then records the object reference on the movie row. Re-uploads
// of identical bytes keep the existing object.
func (s *MovieService) UploadPoster(ctx context.Context, movieID, actorID int, filename string, data []byte) (types.PosterImage, error) {
	if s.storage == nil {
		return types.PosterImage{}, ErrStorageDisabled
	}

	movie, err := s.repo.Get(ctx, movieID)
	if err != nil {
		return types.PosterImage{}, err
	}
	if movie.CreatorID != actorID {
		return types.PosterImage{}, ErrNotOwner
	}

	poster, err := posterFromUpload(filename, data)
	if err != nil {
		return types.PosterImage{}, err
	}
	if movie.Poster != nil && movie.Poster.SHA256 == poster.SHA256 {
		return *movie.Poster, nil
	}

	poster.ObjectKey = fmt.Sprintf("posters/%d/%s%s", movieID, uuid.NewString(), posterExtension(poster.ContentType))
	if err := s.storage.Put(ctx, poster.ObjectKey, bytes.NewReader(data), int64(len(data)), poster.ContentType); err != nil {
		return types.PosterImage{}, err
	}
	if err := s.repo.UpdatePoster(ctx, movieID, poster); err != nil {
		return types.PosterImage{}, err
	}
	if movie.Poster != nil {
		// Best effort: the replaced object is unreferenced either way.
		_ = s.storage.Delete(ctx, movie.Poster.ObjectKey)
	}
	return poster, nil
}

// GetPoster opens the stored poster of a movie. Callers must close the
// returned reader.
func (s *MovieService) GetPoster(ctx context.Context, movieID int) (io.ReadCloser, types.PosterImage, error) {
	if s.storage == nil {
		return nil, types.PosterImage{}, ErrStorageDisabled
	}

	movie, err := s.repo.Get(ctx, movieID)
	if err != nil {
		return nil, types.PosterImage{}, err
	}
	if movie.Poster == nil {
		return nil, types.PosterImage{}, ErrNoPoster
	}

	reader, err := s.storage.Get(ctx, movie.Poster.ObjectKey)
	if err != nil {
		return nil, types.PosterImage{}, err
	}
	return reader, *movie.Poster, nil
}
