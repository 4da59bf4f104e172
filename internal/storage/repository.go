package storage

import (
	"context"
	"time"

	"budgetplanner/internal/core"
)

// Repository is everything the planner, the HTTP layer and the workers read or write.
type Repository interface {
	UpsertUser(ctx context.Context, u core.User) error
	GetUser(ctx context.Context, userID string) (core.User, error)

	AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	FindExpenses(ctx context.Context, userID string, start, end time.Time) ([]core.Expense, error)

	AppendPlan(ctx context.Context, plan core.BudgetPlan) error
	CurrentPlan(ctx context.Context, userID string) (*core.BudgetPlan, error)
	PlanHistory(ctx context.Context, userID string) ([]core.BudgetPlan, error)
	PlanByID(ctx context.Context, planID string) (core.BudgetPlan, error)
	UsersWithPlans(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// planPayload is the serialized allocation part of a plan.
type planPayload struct {
	Categories      []core.BudgetCategory `json:"categories"`
	Summary         core.PlanSummary      `json:"summary"`
	Recommendations []string              `json:"recommendations"`
}
