package planner

import (
	"context"
	"time"

	"budgetplanner/internal/core"
)

// ExpenseFinder returns a user's expenses in [start, end], newest first.
type ExpenseFinder interface {
	FindExpenses(ctx context.Context, userID string, start, end time.Time) ([]core.Expense, error)
}

// UserReader returns core.ErrUserNotFound for unknown users.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (core.User, error)
}

// PlanRepository persists plans. AppendPlan must update history and the
// current plan in a single atomic write.
type PlanRepository interface {
	AppendPlan(ctx context.Context, plan core.BudgetPlan) error
	CurrentPlan(ctx context.Context, userID string) (*core.BudgetPlan, error)
	PlanHistory(ctx context.Context, userID string) ([]core.BudgetPlan, error)
}

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EventPublisher announces saved plans to downstream consumers.
type EventPublisher interface {
	PublishPlanGenerated(ctx context.Context, plan core.BudgetPlan) error
}
