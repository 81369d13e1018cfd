package services

import (
	"context"

	"github.com/reelhub/apiserver/types"
)

// RatingRepository defines persistence operations for ratings. Upsert is
// atomic: the store must never turn two concurrent submissions for the
// same (movie, user) pair into two rows.
type RatingRepository interface {
	Upsert(ctx context.Context, rating types.Rating) (types.Rating, bool, error)
}

// RatingResult reports whether a submission created a new rating or
// overwrote an existing score.
type RatingResult struct {
	Rating  types.Rating
	Created bool
}

// RatingService encapsulates rating submission.
type RatingService struct {
	repo   RatingRepository
	movies MovieRepository
}

func NewRatingService(repo RatingRepository, movies MovieRepository) *RatingService {
	return &RatingService{repo: repo, movies: movies}
}

// Rate submits a score for a movie. The score range is validated before
// any write, and the movie must exist so no orphaned ratings are created.
func (s *RatingService) Rate(ctx context.Context, movieID, userID, score int) (RatingResult, error) {
	if score < types.MinScore || score > types.MaxScore {
		return RatingResult{}, ErrScoreOutOfRange
	}

	if _, err := s.movies.Get(ctx, movieID); err != nil {
		return RatingResult{}, err
	}

	rating, created, err := s.repo.Upsert(ctx, types.Rating{
		MovieID: movieID,
		UserID:  userID,
		Score:   score,
	})
	if err != nil {
		return RatingResult{}, err
	}
	return RatingResult{Rating: rating, Created: created}, nil
}
