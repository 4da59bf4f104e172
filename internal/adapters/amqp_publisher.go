package adapters

import (
	"context"
	"log/slog"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/core"
)

// MessagePublisher is the subset of the AMQP client the publisher needs.
type MessagePublisher interface {
	PublishPlanGenerated(ctx context.Context, msg *amqp.PlanGeneratedMessage) error
	PublishMonthlyReview(ctx context.Context, msg *amqp.MonthlyReviewMessage) error
}

// AMQPPublisher translates domain events into broker messages.
// A nil client turns every publish into a logged no-op.
type AMQPPublisher struct {
	client MessagePublisher
}

func NewAMQPPublisher(client MessagePublisher) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

// Enabled reports whether messages actually reach a broker.
func (p *AMQPPublisher) Enabled() bool {
	return p != nil && p.client != nil
}

// PublishPlanGenerated implements planner.EventPublisher.
func (p *AMQPPublisher) PublishPlanGenerated(ctx context.Context, plan core.BudgetPlan) error {
	if !p.Enabled() {
		slog.WarnContext(ctx, "AMQP client not available, skipping plan generated message", "plan_id", plan.ID)
		return nil
	}
	return p.client.PublishPlanGenerated(ctx, amqp.NewPlanGeneratedMessage(plan))
}

// PublishMonthlyReview publishes the reconciliation outcome of one user's month.
func (p *AMQPPublisher) PublishMonthlyReview(ctx context.Context, userID string, c core.Comparison, insights int) error {
	if !p.Enabled() {
		slog.WarnContext(ctx, "AMQP client not available, skipping monthly review message",
			"user_id", userID, "month", c.Month.String())
		return nil
	}
	return p.client.PublishMonthlyReview(ctx, amqp.NewMonthlyReviewMessage(userID, c, insights))
}
