package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diet-coach/internal/domain"
)

type mockProgressRepo struct {
	items     map[string]domain.DailyProgress
	upsertErr error
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{items: make(map[string]domain.DailyProgress)}
}

func (m *mockProgressRepo) Get(_ context.Context, clientID, date string) (domain.DailyProgress, error) {
	p, ok := m.items[clientID+"|"+date]
	if !ok {
		return domain.DailyProgress{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProgressRepo) Upsert(_ context.Context, p domain.DailyProgress) (domain.DailyProgress, error) {
	if m.upsertErr != nil {
		return domain.DailyProgress{}, m.upsertErr
	}
	p.UpdatedAt = time.Now().UTC()
	m.items[p.ClientID+"|"+p.Date] = p
	return p, nil
}

func newTestProgressService(now time.Time) (*ProgressService, *mockProgressRepo, *mockUserRepo) {
	progress := newMockProgressRepo()
	users := newMockUserRepo()
	svc := NewProgressService(zap.NewNop(), progress, users)
	svc.now = func() time.Time { return now }
	return svc, progress, users
}

func TestProgressServiceToggle(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	// 01:30 UTC del 6 sigue siendo el 5 en ART.
	now := time.Date(2024, time.March, 6, 1, 30, 0, 0, time.UTC)
	svc, repo, _ := newTestProgressService(now)
	session := domain.NewSession("sid", domain.User{ID: "c1", Role: domain.SenderRoleClient}, time.Time{})
	ctx := context.Background()

	p, err := svc.Toggle(ctx, session, domain.ProgressBreakfast, loc)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if p.Date != "2024-03-05" || !p.Breakfast || p.Lunch {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if _, ok := repo.items["c1|2024-03-05"]; !ok {
		t.Fatalf("expected progress saved under local date")
	}

	p, err = svc.Toggle(ctx, session, domain.ProgressBreakfast, loc)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if p.Breakfast {
		t.Fatalf("expected second toggle to clear breakfast")
	}

	if _, err := svc.Toggle(ctx, session, "snack", loc); !errors.Is(err, ErrUnknownProgressItem) {
		t.Fatalf("expected ErrUnknownProgressItem, got %v", err)
	}
}

func TestProgressServiceToday_EmptyDay(t *testing.T) {
	now := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newTestProgressService(now)
	session := domain.NewSession("sid", domain.User{ID: "c1"}, time.Time{})

	p, err := svc.Today(context.Background(), session, time.UTC)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if p.ClientID != "c1" || p.Date != "2024-03-05" || p.Completed() != 0 {
		t.Fatalf("unexpected progress: %+v", p)
	}
}

func TestProgressServiceRequiresSession(t *testing.T) {
	svc, _, _ := newTestProgressService(time.Now())
	session := domain.NewSession("sid", domain.User{ID: "c1"}, time.Time{})
	session.Invalidate()

	if _, err := svc.Today(context.Background(), session, time.UTC); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if _, err := svc.Toggle(context.Background(), nil, domain.ProgressLunch, time.UTC); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestProgressServiceSummary(t *testing.T) {
	now := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	svc, progress, users := newTestProgressService(now)
	start, current := 90.0, 84.6
	end := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	users.usersByID["c1"] = domain.User{ID: "c1", StartWeight: &start, CurrentWeight: &current, DietEndDate: &end}
	progress.items["c1|2024-03-05"] = domain.DailyProgress{ClientID: "c1", Date: "2024-03-05", Breakfast: true}
	session := domain.NewSession("sid", domain.User{ID: "c1"}, time.Time{})

	summary, err := svc.Summary(context.Background(), session, time.UTC)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Completed != 1 || summary.Total != 6 || summary.Percent != 17 {
		t.Fatalf("unexpected completion: %+v", summary)
	}
	if summary.WeightLost != 5.4 {
		t.Fatalf("expected 5.4 lost, got %v", summary.WeightLost)
	}
	// 4.5 días hasta la medianoche del 10 -> 5.
	if summary.DaysRemaining == nil || *summary.DaysRemaining != 5 {
		t.Fatalf("expected 5 days remaining, got %v", summary.DaysRemaining)
	}
}

func TestProgressServiceSummary_MissingData(t *testing.T) {
	svc, _, users := newTestProgressService(time.Now())
	users.usersByID["c1"] = domain.User{ID: "c1"}
	session := domain.NewSession("sid", domain.User{ID: "c1"}, time.Time{})

	summary, err := svc.Summary(context.Background(), session, time.UTC)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.WeightLost != 0 || summary.DaysRemaining != nil {
		t.Fatalf("expected zero loss and no deadline, got %+v", summary)
	}
}
