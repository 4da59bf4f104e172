package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetplanner/internal/core"
)

// PlanOwnerLister lists users that have a current plan.
type PlanOwnerLister interface {
	UsersWithPlans(ctx context.Context) ([]string, error)
}

// MonthComparer reconciles a user's current plan against one month of expenses.
// It returns nil when the user has no plan.
type MonthComparer interface {
	CompareMonth(ctx context.Context, userID string, month core.Month) (*core.Comparison, error)
}

// ReviewPublisher announces a finished review.
type ReviewPublisher interface {
	PublishMonthlyReview(ctx context.Context, userID string, c core.Comparison, insights int) error
}

// ReviewProcessor reconciles every planned user's month and publishes the outcome.
type ReviewProcessor struct {
	owners    PlanOwnerLister
	comparer  MonthComparer
	publisher ReviewPublisher
}

func NewReviewProcessor(owners PlanOwnerLister, comparer MonthComparer, publisher ReviewPublisher) *ReviewProcessor {
	return &ReviewProcessor{
		owners:    owners,
		comparer:  comparer,
		publisher: publisher,
	}
}

// ProcessPreviousMonth reviews the month before now. It is what the scheduled
// job runs on the first day of each month.
func (p *ReviewProcessor) ProcessPreviousMonth(ctx context.Context, now time.Time) (int, error) {
	return p.ProcessMonth(ctx, core.MonthOf(now).Previous())
}

// ProcessMonth reviews month for every user with a plan and returns how many
// reviews were published. Failures for one user are logged and skipped.
func (p *ReviewProcessor) ProcessMonth(ctx context.Context, month core.Month) (int, error) {
	if p.owners == nil || p.comparer == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	users, err := p.owners.UsersWithPlans(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users with plans: %w", err)
	}

	slog.InfoContext(ctx, "Processing monthly reviews",
		"users", len(users),
		"month", month.String())

	published := 0
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		comparison, err := p.comparer.CompareMonth(ctx, userID, month)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to compare spending",
				"user_id", userID,
				"month", month.String(),
				"error", err)
			continue
		}
		if comparison == nil {
			continue
		}

		report := core.DeriveInsights(comparison)
		if err := p.publisher.PublishMonthlyReview(ctx, userID, *comparison, len(report.Insights)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish monthly review",
				"user_id", userID,
				"month", month.String(),
				"error", err)
			continue
		}

		published++
		slog.InfoContext(ctx, "Published monthly review",
			"user_id", userID,
			"month", month.String(),
			"overall_status", comparison.OverallStatus,
			"insights", len(report.Insights))
	}

	slog.InfoContext(ctx, "Monthly review processing complete",
		"published", published,
		"total_checked", len(users))

	return published, nil
}
