package services

import (
	"context"
	"errors"

	"github.com/reelhub/apiserver/internal/events"
	"github.com/reelhub/apiserver/internal/store"
	"github.com/reelhub/apiserver/types"
)

// Resolution actions accepted by Resolve.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ReportRepository defines persistence operations for reports.
type ReportRepository interface {
	Create(ctx context.Context, report types.Report) (types.Report, error)
	Get(ctx context.Context, id int) (types.Report, error)
	List(ctx context.Context) ([]types.Report, error)
	Resolve(ctx context.Context, id int, status string) error
}

// ReportService encapsulates the moderation workflow: users file reports
// against movies, admins resolve them exactly once.
type ReportService struct {
	repo      ReportRepository
	movies    MovieRepository
	publisher *events.Publisher
}

// NewReportService constructs a ReportService. publisher may be nil, in
// which case moderation events are not emitted.
func NewReportService(repo ReportRepository, movies MovieRepository, publisher *events.Publisher) *ReportService {
	return &ReportService{repo: repo, movies: movies, publisher: publisher}
}

// Create files a report against an existing movie with status pending.
func (s *ReportService) Create(ctx context.Context, movieID, userID int, reason string) (types.Report, error) {
	if _, err := s.movies.Get(ctx, movieID); err != nil {
		return types.Report{}, err
	}

	report, err := s.repo.Create(ctx, types.Report{
		MovieID: movieID,
		UserID:  userID,
		Reason:  reason,
	})
	if err != nil {
		return types.Report{}, err
	}

	s.publisher.ReportCreated(ctx, report)
	return report, nil
}

// List returns all reports with their associated movies.
func (s *ReportService) List(ctx context.Context) ([]types.Report, error) {
	return s.repo.List(ctx)
}

// Resolve moves a pending report to approved or rejected. Resolved
// reports are terminal: a second resolution fails with ErrAlreadyResolved.
func (s *ReportService) Resolve(ctx context.Context, reportID int, action string) (types.Report, error) {
	var status string
	switch action {
	case ActionApprove:
		status = types.ReportApproved
	case ActionReject:
		status = types.ReportRejected
	default:
		return types.Report{}, ErrInvalidAction
	}

	report, err := s.repo.Get(ctx, reportID)
	if err != nil {
		return types.Report{}, err
	}
	if report.Status != types.ReportPending {
		return types.Report{}, ErrAlreadyResolved
	}

	if err := s.repo.Resolve(ctx, reportID, status); err != nil {
		// The conditional update misses when a concurrent resolution
		// got there first.
		if errors.Is(err, store.ErrNotFound) {
			return types.Report{}, ErrAlreadyResolved
		}
		return types.Report{}, err
	}

	report.Status = status
	s.publisher.ReportResolved(ctx, report)
	return report, nil
}
