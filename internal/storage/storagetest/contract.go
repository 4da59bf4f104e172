// Package storagetest holds behavior checks shared by every repository implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"budgetplanner/internal/core"
	"budgetplanner/internal/storage"
)

// Plan returns a minimal valid plan for userID.
func Plan(userID, id string, created time.Time) core.BudgetPlan {
	return core.BudgetPlan{
		ID:          id,
		UserID:      userID,
		TotalBudget: core.NewMoney(1000),
		Categories: []core.BudgetCategory{
			{Name: "Food", Allocated: core.NewMoney(600), Priority: core.PriorityHigh, Tips: []string{"cook"}, Percentage: 60},
			{Name: "Savings", Allocated: core.NewMoney(400), Priority: core.PriorityHigh, Tips: []string{}, Percentage: 40},
		},
		Summary: core.PlanSummary{
			TotalAllocated: core.NewMoney(1000),
			SavingsRate:    40,
			KeyInsights:    []string{"ok"},
		},
		Recommendations: []string{"track"},
		Source:          core.SourceAI,
		CreatedAt:       created,
		Month:           core.MonthOf(created),
	}
}

// Run exercises the Repository contract against a fresh repository per subtest.
func Run(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	ctx := context.Background()
	base := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	t.Run("users", func(t *testing.T) {
		r := newRepo(t)
		if _, err := r.GetUser(ctx, "u1"); !errors.Is(err, core.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if err := r.UpsertUser(ctx, core.User{ID: "u1", Name: "Asha", Email: "a@example.com"}); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if err := r.UpsertUser(ctx, core.User{ID: "u1", Name: "Asha K", Email: "a@example.com"}); err != nil {
			t.Fatalf("UpsertUser again: %v", err)
		}
		u, err := r.GetUser(ctx, "u1")
		if err != nil || u.Name != "Asha K" {
			t.Fatalf("GetUser=%+v err=%v", u, err)
		}
	})

	t.Run("expenses in range newest first", func(t *testing.T) {
		r := newRepo(t)
		for i, day := range []int{3, 20, 11} {
			_, err := r.AddExpense(ctx, core.Expense{
				UserID:   "u1",
				Category: "Food",
				Amount:   core.NewMoney(int64(10 * (i + 1))),
				Date:     time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC),
			})
			if err != nil {
				t.Fatalf("AddExpense: %v", err)
			}
		}
		if _, err := r.AddExpense(ctx, core.Expense{UserID: "u2", Category: "Food", Amount: core.NewMoney(1), Date: base}); err != nil {
			t.Fatalf("AddExpense other user: %v", err)
		}
		if _, err := r.AddExpense(ctx, core.Expense{UserID: "u1", Category: "Food", Amount: core.NewMoney(5), Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
			t.Fatalf("AddExpense next month: %v", err)
		}
		if _, err := r.AddExpense(ctx, core.Expense{UserID: "u1", Category: "", Amount: core.NewMoney(5), Date: base}); !errors.Is(err, core.ErrEmptyCategory) {
			t.Fatalf("expected validation error, got %v", err)
		}

		start, end := core.Month{Year: 2024, Month: time.May}.Bounds(time.UTC)
		got, err := r.FindExpenses(ctx, "u1", start, end)
		if err != nil {
			t.Fatalf("FindExpenses: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 expenses, got %d", len(got))
		}
		if got[0].Date.Day() != 20 || got[1].Date.Day() != 11 || got[2].Date.Day() != 3 {
			t.Fatalf("not sorted newest first: %v %v %v", got[0].Date, got[1].Date, got[2].Date)
		}
		if got[0].Amount != core.NewMoney(20) || got[0].ID == 0 {
			t.Fatalf("unexpected expense %+v", got[0])
		}
	})

	t.Run("append plan updates history and current together", func(t *testing.T) {
		r := newRepo(t)
		if p, err := r.CurrentPlan(ctx, "u1"); err != nil || p != nil {
			t.Fatalf("expected no current plan, got %+v err=%v", p, err)
		}
		if h, err := r.PlanHistory(ctx, "u1"); err != nil || len(h) != 0 || h == nil {
			t.Fatalf("expected empty non-nil history, got %v err=%v", h, err)
		}

		for i := 0; i < 3; i++ {
			p := Plan("u1", fmt.Sprintf("plan-%d", i), base.Add(time.Duration(i)*time.Hour))
			if err := r.AppendPlan(ctx, p); err != nil {
				t.Fatalf("AppendPlan %d: %v", i, err)
			}
			h, err := r.PlanHistory(ctx, "u1")
			if err != nil || len(h) != i+1 {
				t.Fatalf("history len=%d err=%v", len(h), err)
			}
			cur, err := r.CurrentPlan(ctx, "u1")
			if err != nil || cur == nil || cur.ID != h[len(h)-1].ID {
				t.Fatalf("current=%+v last=%s err=%v", cur, h[len(h)-1].ID, err)
			}
		}

		h, _ := r.PlanHistory(ctx, "u1")
		if h[0].ID != "plan-0" || h[2].ID != "plan-2" {
			t.Fatalf("history out of order: %s %s", h[0].ID, h[2].ID)
		}
		p := h[0]
		if p.TotalBudget != core.NewMoney(1000) || p.Month.String() != "2024-05" || p.Source != core.SourceAI {
			t.Fatalf("plan fields lost: %+v", p)
		}
		if len(p.Categories) != 2 || p.Categories[0].Tips[0] != "cook" || p.Summary.SavingsRate != 40 {
			t.Fatalf("payload lost: %+v", p)
		}
		if !p.CreatedAt.Equal(base) {
			t.Fatalf("createdAt=%v want %v", p.CreatedAt, base)
		}

		u, err := r.GetUser(ctx, "u1")
		if err != nil || u.CurrentPlanID != "plan-2" || u.MonthlyBudget != core.NewMoney(1000) {
			t.Fatalf("user=%+v err=%v", u, err)
		}

		byID, err := r.PlanByID(ctx, "plan-1")
		if err != nil || byID.ID != "plan-1" {
			t.Fatalf("PlanByID=%+v err=%v", byID, err)
		}
		if _, err := r.PlanByID(ctx, "missing"); !errors.Is(err, core.ErrPlanNotFound) {
			t.Fatalf("expected ErrPlanNotFound, got %v", err)
		}
	})

	t.Run("users with plans", func(t *testing.T) {
		r := newRepo(t)
		_ = r.UpsertUser(ctx, core.User{ID: "no-plan"})
		for _, id := range []string{"b", "a"} {
			if err := r.AppendPlan(ctx, Plan(id, "p-"+id, base)); err != nil {
				t.Fatalf("AppendPlan: %v", err)
			}
		}
		ids, err := r.UsersWithPlans(ctx)
		if err != nil || len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
			t.Fatalf("UsersWithPlans=%v err=%v", ids, err)
		}
	})

	t.Run("concurrent appends keep history consistent", func(t *testing.T) {
		r := newRepo(t)
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- r.AppendPlan(ctx, Plan("u1", fmt.Sprintf("c-%d", i), base))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("AppendPlan: %v", err)
			}
		}
		h, _ := r.PlanHistory(ctx, "u1")
		cur, _ := r.CurrentPlan(ctx, "u1")
		if len(h) != 8 || cur == nil || cur.ID != h[len(h)-1].ID {
			t.Fatalf("history=%d current=%+v", len(h), cur)
		}
	})
}
