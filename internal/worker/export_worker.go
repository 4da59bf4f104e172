package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/core"
	"budgetplanner/internal/sheets"
)

// PlanLoader loads a persisted plan by ID.
type PlanLoader interface {
	PlanByID(ctx context.Context, planID string) (core.BudgetPlan, error)
}

// ExportWorker copies saved plans and monthly reviews to Google Sheets.
// It implements amqp.Handler.
type ExportWorker struct {
	plans   PlanLoader
	exports sheets.PlanExporter
	reviews sheets.ReviewExporter
}

var _ amqp.Handler = (*ExportWorker)(nil)

func NewExportWorker(plans PlanLoader, exports sheets.PlanExporter, reviews sheets.ReviewExporter) *ExportWorker {
	return &ExportWorker{
		plans:   plans,
		exports: exports,
		reviews: reviews,
	}
}

// HandlePlanGenerated exports the plan referenced by msg. A plan that no
// longer exists is acknowledged so the message is not redelivered forever.
func (w *ExportWorker) HandlePlanGenerated(ctx context.Context, msg *amqp.PlanGeneratedMessage) error {
	slog.InfoContext(ctx, "Processing plan generated message",
		"plan_id", msg.PlanID,
		"user_id", msg.UserID)

	plan, err := w.plans.PlanByID(ctx, msg.PlanID)
	if errors.Is(err, core.ErrPlanNotFound) {
		slog.WarnContext(ctx, "Plan not found, skipping export", "plan_id", msg.PlanID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load plan %s: %w", msg.PlanID, err)
	}

	ref, err := w.exports.ExportPlan(ctx, plan)
	if err != nil {
		return fmt.Errorf("export plan to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported plan",
		"plan_id", plan.ID,
		"sheets_ref", ref,
		"categories", len(plan.Categories),
		"source", plan.Source)
	return nil
}

// HandleMonthlyReview appends the review carried by msg.
func (w *ExportWorker) HandleMonthlyReview(ctx context.Context, msg *amqp.MonthlyReviewMessage) error {
	if w.reviews == nil {
		slog.WarnContext(ctx, "No review exporter configured, skipping monthly review",
			"user_id", msg.UserID, "month", msg.Month)
		return nil
	}

	ref, err := w.reviews.ExportReview(ctx, reviewFromMessage(msg))
	if err != nil {
		return fmt.Errorf("export review to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported monthly review",
		"user_id", msg.UserID,
		"month", msg.Month,
		"overall_status", msg.OverallStatus,
		"sheets_ref", ref)
	return nil
}

func reviewFromMessage(msg *amqp.MonthlyReviewMessage) sheets.Review {
	return sheets.Review{
		UserID:         msg.UserID,
		Month:          msg.Month,
		TotalBudgeted:  msg.TotalBudgeted,
		TotalActual:    msg.TotalActual,
		OverallStatus:  msg.OverallStatus,
		OverCategories: msg.OverCategories,
		Insights:       msg.Insights,
		ReviewedAt:     msg.Timestamp,
	}
}
