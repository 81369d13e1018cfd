package services

import (
	"context"
	"errors"
	"testing"

	"github.com/reelhub/apiserver/internal/store"
	"github.com/reelhub/apiserver/types"
)

type fakeReportRepo struct {
	reports    map[int]types.Report
	nextID     int
	resolveErr error
}

func newFakeReportRepo(reports ...types.Report) *fakeReportRepo {
	repo := &fakeReportRepo{reports: make(map[int]types.Report)}
	for _, r := range reports {
		repo.reports[r.ID] = r
		if r.ID > repo.nextID {
			repo.nextID = r.ID
		}
	}
	return repo
}

func (f *fakeReportRepo) Create(_ context.Context, report types.Report) (types.Report, error) {
	f.nextID++
	report.ID = f.nextID
	report.Status = types.ReportPending
	f.reports[report.ID] = report
	return report, nil
}

func (f *fakeReportRepo) Get(_ context.Context, id int) (types.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return types.Report{}, store.ErrNotFound
	}
	return report, nil
}

func (f *fakeReportRepo) List(_ context.Context) ([]types.Report, error) {
	out := make([]types.Report, 0, len(f.reports))
	for _, r := range f.reports {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReportRepo) Resolve(_ context.Context, id int, status string) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	report, ok := f.reports[id]
	if !ok || report.Status != types.ReportPending {
		return store.ErrNotFound
	}
	report.Status = status
	f.reports[id] = report
	return nil
}

func pendingReport(id, movieID int) types.Report {
	return types.Report{ID: id, MovieID: movieID, UserID: 20, Reason: "spam", Status: types.ReportPending}
}

func TestCreateReportRequiresExistingMovie(t *testing.T) {
	repo := newFakeReportRepo()
	svc := NewReportService(repo, newFakeMovieRepo(), nil)

	if _, err := svc.Create(context.Background(), 42, 20, "spam"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(repo.reports) != 0 {
		t.Fatal("no report may be filed against a missing movie")
	}
}

func TestCreateReportStartsPending(t *testing.T) {
	repo := newFakeReportRepo()
	svc := NewReportService(repo, newFakeMovieRepo(sampleMovie(1, 10)), nil)

	report, err := svc.Create(context.Background(), 1, 20, "offensive content")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if report.Status != types.ReportPending {
		t.Fatalf("new reports must be pending, got %q", report.Status)
	}
	if report.MovieID != 1 || report.UserID != 20 {
		t.Fatalf("unexpected report identity: movie=%d user=%d", report.MovieID, report.UserID)
	}
}

func TestResolveRejectsUnknownAction(t *testing.T) {
	repo := newFakeReportRepo(pendingReport(1, 1))
	svc := NewReportService(repo, newFakeMovieRepo(sampleMovie(1, 10)), nil)

	for _, action := range []string{"", "close", "APPROVE", "approved"} {
		if _, err := svc.Resolve(context.Background(), 1, action); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("action %q: expected ErrInvalidAction, got %v", action, err)
		}
	}
	if repo.reports[1].Status != types.ReportPending {
		t.Fatal("invalid actions must leave the report untouched")
	}
}

func TestResolveApproveAndReject(t *testing.T) {
	repo := newFakeReportRepo(pendingReport(1, 1), pendingReport(2, 1))
	svc := NewReportService(repo, newFakeMovieRepo(sampleMovie(1, 10)), nil)

	approved, err := svc.Resolve(context.Background(), 1, ActionApprove)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != types.ReportApproved {
		t.Fatalf("expected approved, got %q", approved.Status)
	}

	rejected, err := svc.Resolve(context.Background(), 2, ActionReject)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != types.ReportRejected {
		t.Fatalf("expected rejected, got %q", rejected.Status)
	}
}

func TestResolveIsTerminal(t *testing.T) {
	repo := newFakeReportRepo(pendingReport(1, 1))
	svc := NewReportService(repo, newFakeMovieRepo(sampleMovie(1, 10)), nil)

	if _, err := svc.Resolve(context.Background(), 1, ActionApprove); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	// Both a repeat of the same action and the opposite action fail.
	if _, err := svc.Resolve(context.Background(), 1, ActionApprove); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), 1, ActionReject); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if repo.reports[1].Status != types.ReportApproved {
		t.Fatalf("terminal status changed: %q", repo.reports[1].Status)
	}
}

func TestResolveMissingReport(t *testing.T) {
	svc := NewReportService(newFakeReportRepo(), newFakeMovieRepo(), nil)

	if _, err := svc.Resolve(context.Background(), 42, ActionApprove); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveLostRaceReportsAlreadyResolved(t *testing.T) {
	repo := newFakeReportRepo(pendingReport(1, 1))
	// The conditional update misses when another admin resolved the
	// report between the read and the write.
	repo.resolveErr = store.ErrNotFound
	svc := NewReportService(repo, newFakeMovieRepo(sampleMovie(1, 10)), nil)

	if _, err := svc.Resolve(context.Background(), 1, ActionApprove); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}
