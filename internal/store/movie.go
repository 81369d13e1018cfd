package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/reelhub/apiserver/types"
)

// MovieRepository handles persistence for movies. Read queries join the
// ratings table so every returned movie carries its derived average score
// and rating count.
type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `
	m.id, m.title, m.description, m.released_at, m.duration, m.genre, m.language,
	m.creator_id, m.poster_object_key, m.poster_sha256, m.poster_content_type,
	m.created_at, m.updated_at,
	COALESCE(ROUND(AVG(r.score)::numeric, 1), 0)::float8 AS avg_rating,
	COUNT(r.id)::int AS total_ratings`

func (r *MovieRepository) List(ctx context.Context) ([]types.Movie, error) {
	const query = `
		SELECT` + movieColumns + `
		FROM movies m
		LEFT JOIN ratings r ON r.movie_id = m.id
		GROUP BY m.id
		ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := make([]types.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movies, nil
}

func (r *MovieRepository) Get(ctx context.Context, id int) (types.Movie, error) {
	const query = `
		SELECT` + movieColumns + `
		FROM movies m
		LEFT JOIN ratings r ON r.movie_id = m.id
		WHERE m.id = $1
		GROUP BY m.id`
	movie, err := scanMovie(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Movie{}, ErrNotFound
		}
		return types.Movie{}, err
	}
	return movie, nil
}

func (r *MovieRepository) Create(ctx context.Context, movie types.Movie) (types.Movie, error) {
	now := time.Now()
	movie.CreatedAt = now
	movie.UpdatedAt = now

	const query = `
		INSERT INTO movies (title, description, released_at, duration, genre, language, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		movie.Title,
		movie.Description,
		movie.ReleasedAt,
		movie.Duration,
		movie.Genre,
		movie.Language,
		movie.CreatorID,
		movie.CreatedAt,
		movie.UpdatedAt,
	).Scan(&movie.ID); err != nil {
		return types.Movie{}, err
	}
	return movie, nil
}

// Update writes the mutable movie fields. Ownership is enforced by the
// service layer; the creator column is never touched here.
func (r *MovieRepository) Update(ctx context.Context, movie types.Movie) (types.Movie, error) {
	movie.UpdatedAt = time.Now()

	const query = `
		UPDATE movies
		SET title = $1,
			description = $2,
			released_at = $3,
			duration = $4,
			genre = $5,
			language = $6,
			updated_at = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		movie.Title,
		movie.Description,
		movie.ReleasedAt,
		movie.Duration,
		movie.Genre,
		movie.Language,
		movie.UpdatedAt,
		movie.ID,
	)
	if err != nil {
		return types.Movie{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Movie{}, err
	}
	if affected == 0 {
		return types.Movie{}, ErrNotFound
	}
	return movie, nil
}

func (r *MovieRepository) UpdatePoster(ctx context.Context, id int, poster types.PosterImage) error {
	const query = `
		UPDATE movies
		SET poster_object_key = $1,
			poster_sha256 = $2,
			poster_content_type = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, poster.ObjectKey, poster.SHA256, poster.ContentType, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MovieRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM movies WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (types.Movie, error) {
	var movie types.Movie
	var posterKey, posterSHA, posterType sql.NullString
	if err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Description,
		&movie.ReleasedAt,
		&movie.Duration,
		&movie.Genre,
		&movie.Language,
		&movie.CreatorID,
		&posterKey,
		&posterSHA,
		&posterType,
		&movie.CreatedAt,
		&movie.UpdatedAt,
		&movie.AvgRating,
		&movie.TotalRatings,
	); err != nil {
		return types.Movie{}, err
	}
	if posterKey.Valid && posterKey.String != "" {
		movie.Poster = &types.PosterImage{
			ObjectKey:   posterKey.String,
			SHA256:      posterSHA.String,
			ContentType: posterType.String,
		}
	}
	return movie, nil
}
