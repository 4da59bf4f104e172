package sheets

import (
	"context"
	"time"

	"budgetplanner/internal/core"
)

// Review is one row of the monthly review log.
type Review struct {
	UserID         string
	Month          string
	TotalBudgeted  core.Money
	TotalActual    core.Money
	OverallStatus  string
	OverCategories []string
	Insights       int
	ReviewedAt     time.Time
}

// Ports for outbound adapters.
type (
	// PlanExporter writes one row per category of a saved plan.
	PlanExporter interface {
		ExportPlan(ctx context.Context, plan core.BudgetPlan) (rowRef string, err error)
	}

	// ReviewExporter appends a monthly review summary row.
	ReviewExporter interface {
		ExportReview(ctx context.Context, review Review) (rowRef string, err error)
	}
)
