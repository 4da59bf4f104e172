package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetplanner/internal/core"
)

type stubOwners struct {
	ids []string
	err error
}

func (s stubOwners) UsersWithPlans(context.Context) ([]string, error) { return s.ids, s.err }

type stubComparer struct {
	months  []core.Month
	results map[string]*core.Comparison
	errs    map[string]error
}

func (s *stubComparer) CompareMonth(_ context.Context, userID string, month core.Month) (*core.Comparison, error) {
	s.months = append(s.months, month)
	if err := s.errs[userID]; err != nil {
		return nil, err
	}
	return s.results[userID], nil
}

type review struct {
	userID   string
	status   core.OverallStatus
	insights int
}

type recordingPublisher struct {
	reviews []review
	failFor string
}

func (r *recordingPublisher) PublishMonthlyReview(_ context.Context, userID string, c core.Comparison, insights int) error {
	if userID == r.failFor {
		return errors.New("circuit breaker is open")
	}
	r.reviews = append(r.reviews, review{userID, c.OverallStatus, insights})
	return nil
}

func comparison(status core.OverallStatus, allocated, actual int64) *core.Comparison {
	return &core.Comparison{
		Month:         core.Month{Year: 2024, Month: time.April},
		TotalBudgeted: core.NewMoney(allocated),
		TotalActual:   core.NewMoney(actual),
		OverallStatus: status,
		Categories: []core.CategoryComparison{{
			BudgetCategory: core.BudgetCategory{Name: "Food", Allocated: core.NewMoney(allocated)},
			ActualSpending: core.NewMoney(actual),
			Difference:     core.NewMoney(allocated - actual),
			PercentageUsed: float64(actual) / float64(allocated) * 100,
			Status:         core.ClassifyUsage(float64(actual) / float64(allocated) * 100),
		}},
	}
}

func TestProcessPreviousMonth(t *testing.T) {
	comparer := &stubComparer{results: map[string]*core.Comparison{
		"alice": comparison(core.OverallCritical, 100, 150),
		"bob":   comparison(core.OverallGood, 100, 50),
	}}
	pub := &recordingPublisher{}
	p := NewReviewProcessor(stubOwners{ids: []string{"alice", "bob"}}, comparer, pub)

	n, err := p.ProcessPreviousMonth(context.Background(), time.Date(2024, time.May, 1, 6, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessPreviousMonth: %v", err)
	}
	if n != 2 || len(pub.reviews) != 2 {
		t.Fatalf("published %d (%d recorded), want 2", n, len(pub.reviews))
	}

	want := core.Month{Year: 2024, Month: time.April}
	for _, m := range comparer.months {
		if m != want {
			t.Errorf("compared month %s, want %s", m, want)
		}
	}
	if pub.reviews[0].userID != "alice" || pub.reviews[0].status != core.OverallCritical || pub.reviews[0].insights == 0 {
		t.Errorf("unexpected first review %+v", pub.reviews[0])
	}
}

func TestProcessMonth_SkipsFailuresAndUsersWithoutPlan(t *testing.T) {
	comparer := &stubComparer{
		results: map[string]*core.Comparison{
			"ok":      comparison(core.OverallGood, 100, 10),
			"publish": comparison(core.OverallGood, 100, 10),
		},
		errs: map[string]error{"broken": core.ErrPersistence},
	}
	pub := &recordingPublisher{failFor: "publish"}
	p := NewReviewProcessor(stubOwners{ids: []string{"broken", "noplan", "publish", "ok"}}, comparer, pub)

	n, err := p.ProcessMonth(context.Background(), core.Month{Year: 2024, Month: time.April})
	if err != nil {
		t.Fatalf("ProcessMonth: %v", err)
	}
	if n != 1 || len(pub.reviews) != 1 || pub.reviews[0].userID != "ok" {
		t.Fatalf("n=%d reviews=%+v", n, pub.reviews)
	}
}

func TestProcessMonth_ListFailure(t *testing.T) {
	p := NewReviewProcessor(stubOwners{err: errors.New("database is locked")}, &stubComparer{}, &recordingPublisher{})
	if _, err := p.ProcessMonth(context.Background(), core.Month{Year: 2024, Month: time.April}); err == nil {
		t.Fatal("expected error")
	}
}

func TestProcessMonth_NotInitialized(t *testing.T) {
	p := NewReviewProcessor(nil, nil, nil)
	if _, err := p.ProcessMonth(context.Background(), core.Month{Year: 2024, Month: time.April}); err == nil {
		t.Fatal("expected error for uninitialized processor")
	}
}

func TestProcessMonth_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	comparer := &stubComparer{}
	p := NewReviewProcessor(stubOwners{ids: []string{"a", "b"}}, comparer, &recordingPublisher{})
	if _, err := p.ProcessMonth(ctx, core.Month{Year: 2024, Month: time.April}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(comparer.months) != 0 {
		t.Error("no user should be compared after cancellation")
	}
}
