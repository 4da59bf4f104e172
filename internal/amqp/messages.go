package amqp

import (
	"encoding/json"
	"time"

	"budgetplanner/internal/core"
)

// Message types double as routing keys on the direct exchange.
const (
	MessageTypePlanGenerated = "plan.generated"
	MessageTypeMonthlyReview = "review.monthly"
)

// PlanGeneratedMessage announces a saved plan. It carries only identifiers;
// consumers load the full plan from the database.
type PlanGeneratedMessage struct {
	PlanID    string    `json:"plan_id"`
	UserID    string    `json:"user_id"`
	Month     string    `json:"month"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPlanGeneratedMessage(plan core.BudgetPlan) *PlanGeneratedMessage {
	return &PlanGeneratedMessage{
		PlanID:    plan.ID,
		UserID:    plan.UserID,
		Month:     plan.Month.String(),
		Source:    string(plan.Source),
		Timestamp: time.Now(),
	}
}

func (m *PlanGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PlanGeneratedMessageFromJSON(data []byte) (*PlanGeneratedMessage, error) {
	var msg PlanGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MonthlyReviewMessage is the outcome of reconciling one user's month.
// It is self-contained since the comparison is never persisted.
type MonthlyReviewMessage struct {
	UserID         string     `json:"user_id"`
	Month          string     `json:"month"`
	TotalBudgeted  core.Money `json:"total_budgeted"`
	TotalActual    core.Money `json:"total_actual"`
	OverallStatus  string     `json:"overall_status"`
	OverCategories []string   `json:"over_categories"`
	Insights       int        `json:"insights"`
	Timestamp      time.Time  `json:"timestamp"`
}

func NewMonthlyReviewMessage(userID string, c core.Comparison, insights int) *MonthlyReviewMessage {
	msg := &MonthlyReviewMessage{
		UserID:         userID,
		Month:          c.Month.String(),
		TotalBudgeted:  c.TotalBudgeted,
		TotalActual:    c.TotalActual,
		OverallStatus:  string(c.OverallStatus),
		OverCategories: []string{},
		Insights:       insights,
		Timestamp:      time.Now(),
	}
	for _, cat := range c.Categories {
		if cat.Status == core.StatusOver {
			msg.OverCategories = append(msg.OverCategories, cat.Name)
		}
	}
	return msg
}

func (m *MonthlyReviewMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MonthlyReviewMessageFromJSON(data []byte) (*MonthlyReviewMessage, error) {
	var msg MonthlyReviewMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
