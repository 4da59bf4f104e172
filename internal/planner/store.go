package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetplanner/internal/cache"
	"budgetplanner/internal/core"
)

// PlanStore turns drafts into persisted plans and serves current-plan reads
// through a per-user cache.
type PlanStore struct {
	repo    PlanRepository
	current cache.Cache[core.BudgetPlan]
	now     func() time.Time
	newID   func() string

	// saves counts completed saves per user. A read only fills the cache
	// when no save finished while it was in flight.
	mu    sync.Mutex
	saves map[string]uint64
}

// NewPlanStore builds a store. A nil cache disables current-plan caching.
func NewPlanStore(repo PlanRepository, current cache.Cache[core.BudgetPlan]) *PlanStore {
	return &PlanStore{
		repo:    repo,
		current: current,
		now:     time.Now,
		newID:   uuid.NewString,
		saves:   make(map[string]uint64),
	}
}

// WithClock overrides the clock used for createdAt and the plan month.
func (s *PlanStore) WithClock(now func() time.Time) *PlanStore {
	s.now = now
	return s
}

// Save appends the plan to the user's history and makes it current.
func (s *PlanStore) Save(ctx context.Context, userID string, draft core.PlanDraft, source core.PlanSource, totalBudget core.Money) (core.BudgetPlan, error) {
	createdAt := s.now().UTC()
	plan := core.BudgetPlan{
		ID:              s.newID(),
		UserID:          userID,
		TotalBudget:     totalBudget,
		Categories:      draft.Categories,
		Summary:         draft.Summary,
		Recommendations: draft.Recommendations,
		Source:          source,
		CreatedAt:       createdAt,
		Month:           core.MonthOf(createdAt),
	}

	err := s.repo.AppendPlan(ctx, plan)
	s.invalidate(userID)
	if err != nil {
		return core.BudgetPlan{}, fmt.Errorf("%w: save plan: %w", core.ErrPersistence, err)
	}
	return plan, nil
}

// Current returns the user's current plan, or nil if none was ever saved.
func (s *PlanStore) Current(ctx context.Context, userID string) (*core.BudgetPlan, error) {
	if s.current != nil {
		if plan, ok := s.current.Get(userID); ok {
			return &plan, nil
		}
	}
	seen := s.savesOf(userID)
	plan, err := s.repo.CurrentPlan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: current plan: %w", core.ErrPersistence, err)
	}
	if plan != nil {
		s.fill(userID, *plan, seen)
	}
	return plan, nil
}

func (s *PlanStore) savesOf(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[userID]
}

// invalidate runs after every save attempt, failed ones included.
func (s *PlanStore) invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves[userID]++
	if s.current != nil {
		s.current.Delete(userID)
	}
}

// fill caches plan unless a save completed after seen was taken.
func (s *PlanStore) fill(userID string, plan core.BudgetPlan, seen uint64) {
	if s.current == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saves[userID] == seen {
		s.current.Set(userID, plan)
	}
}

// History returns every plan of the user, oldest first.
func (s *PlanStore) History(ctx context.Context, userID string) ([]core.BudgetPlan, error) {
	history, err := s.repo.PlanHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: plan history: %w", core.ErrPersistence, err)
	}
	if history == nil {
		history = []core.BudgetPlan{}
	}
	return history, nil
}
