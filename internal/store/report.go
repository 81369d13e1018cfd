package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/reelhub/apiserver/types"
)

// ReportRepository handles persistence for moderation reports.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report types.Report) (types.Report, error) {
	now := time.Now()
	report.Status = types.ReportPending
	report.CreatedAt = now
	report.UpdatedAt = now

	const query = `
		INSERT INTO reports (movie_id, user_id, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		report.MovieID,
		report.UserID,
		report.Reason,
		report.Status,
		report.CreatedAt,
		report.UpdatedAt,
	).Scan(&report.ID); err != nil {
		return types.Report{}, err
	}
	return report, nil
}

func (r *ReportRepository) Get(ctx context.Context, id int) (types.Report, error) {
	const query = `
		SELECT id, movie_id, user_id, reason, status, created_at, updated_at
		FROM reports
		WHERE id = $1`
	var report types.Report
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.MovieID,
		&report.UserID,
		&report.Reason,
		&report.Status,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Report{}, ErrNotFound
		}
		return types.Report{}, err
	}
	return report, nil
}

// List returns every report joined with its movie, newest first.
func (r *ReportRepository) List(ctx context.Context) ([]types.Report, error) {
	const query = `
		SELECT rp.id, rp.movie_id, rp.user_id, rp.reason, rp.status, rp.created_at, rp.updated_at,
			m.id, m.title, m.description, m.released_at, m.duration, m.genre, m.language,
			m.creator_id, m.created_at, m.updated_at
		FROM reports rp
		JOIN movies m ON m.id = rp.movie_id
		ORDER BY rp.id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]types.Report, 0)
	for rows.Next() {
		var report types.Report
		var movie types.Movie
		if err := rows.Scan(
			&report.ID,
			&report.MovieID,
			&report.UserID,
			&report.Reason,
			&report.Status,
			&report.CreatedAt,
			&report.UpdatedAt,
			&movie.ID,
			&movie.Title,
			&movie.Description,
			&movie.ReleasedAt,
			&movie.Duration,
			&movie.Genre,
			&movie.Language,
			&movie.CreatorID,
			&movie.CreatedAt,
			&movie.UpdatedAt,
		); err != nil {
			return nil, err
		}
		report.Movie = &movie
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Resolve moves a pending report to the given terminal status. The update
// is conditional on the pending state so two concurrent resolutions cannot
// both win; losing the race reports ErrNotFound to the caller, which has
// already distinguished missing reports from resolved ones.
func (r *ReportRepository) Resolve(ctx context.Context, id int, status string) error {
	const query = `
		UPDATE reports
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id, types.ReportPending)
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
