package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/reelhub/apiserver/types"
)

// RatingRepository handles persistence for ratings.
type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert writes a rating for a (movie, user) pair in a single atomic
// statement, relying on the uq_rating_movie_user constraint. It reports
// whether a new row was inserted or an existing score was overwritten.
func (r *RatingRepository) Upsert(ctx context.Context, rating types.Rating) (types.Rating, bool, error) {
	now := time.Now()
	rating.CreatedAt = now
	rating.UpdatedAt = now

	// xmax is zero only for freshly inserted rows, which distinguishes
	// the insert and update arms of the upsert.
	const query = `
		INSERT INTO ratings (movie_id, user_id, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT uq_rating_movie_user
		DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS inserted`
	var inserted bool
	if err := r.db.QueryRowContext(
		ctx,
		query,
		rating.MovieID,
		rating.UserID,
		rating.Score,
		rating.CreatedAt,
		rating.UpdatedAt,
	).Scan(&rating.ID, &rating.CreatedAt, &inserted); err != nil {
		return types.Rating{}, false, err
	}
	return rating, inserted, nil
}
