// Package memory is a process-local repository for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"budgetplanner/internal/core"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]core.User
	expenses []core.Expense
	history  map[string][]core.BudgetPlan
	byID     map[string]core.BudgetPlan
	nextID   int64
}

func New() *Store {
	return &Store{
		users:   make(map[string]core.User),
		history: make(map[string][]core.BudgetPlan),
		byID:    make(map[string]core.BudgetPlan),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) UpsertUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		existing.Name = u.Name
		existing.Email = u.Email
		s.users[u.ID] = existing
		return nil
	}
	s.users[u.ID] = core.User{ID: u.ID, Name: u.Name, Email: u.Email, MonthlyBudget: u.MonthlyBudget}
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

// AddExpense stores the expense and assigns it a sequential ID.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) FindExpenses(_ context.Context, userID string, start, end time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID && !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Expense) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

func (s *Store) AppendPlan(_ context.Context, plan core.BudgetPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[plan.UserID]
	if !ok {
		u = core.User{ID: plan.UserID}
	}
	u.CurrentPlanID = plan.ID
	u.MonthlyBudget = plan.TotalBudget
	s.users[plan.UserID] = u
	s.history[plan.UserID] = append(s.history[plan.UserID], plan)
	s.byID[plan.ID] = plan
	return nil
}

func (s *Store) CurrentPlan(_ context.Context, userID string) (*core.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.CurrentPlanID == "" {
		return nil, nil
	}
	plan := s.byID[u.CurrentPlanID]
	return &plan, nil
}

func (s *Store) PlanHistory(_ context.Context, userID string) ([]core.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BudgetPlan{}, s.history[userID]...), nil
}

func (s *Store) PlanByID(_ context.Context, planID string) (core.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.byID[planID]
	if !ok {
		return core.BudgetPlan{}, core.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Store) UsersWithPlans(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, u := range s.users {
		if u.CurrentPlanID != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
