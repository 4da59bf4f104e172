package core

import "fmt"

const (
	InsightOverBudget         InsightType = "over_budget"
	InsightApproachingLimit   InsightType = "approaching_limit"
	InsightUnderBudget        InsightType = "under_budget"
	InsightOverallOverBudget  InsightType = "overall_over_budget"
	InsightOverallUnderBudget InsightType = "overall_under_budget"
)

const (
	RecommendReduceSpending  RecommendationType = "reduce_spending"
	RecommendOverallReduce   RecommendationType = "overall_reduction"
	RecommendIncreaseSavings RecommendationType = "increase_savings"
)

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Categories used below this share of their allocation get a positive note.
const underUsedThreshold = 70.0

// Plans spent below this share overall suggest moving money to savings.
const overallUnderThreshold = 80.0

type (
	InsightType        string
	RecommendationType string
	Severity           string

	Insight struct {
		Type     InsightType `json:"type"`
		Category string      `json:"category,omitempty"`
		Message  string      `json:"message"`
		Severity Severity    `json:"severity"`
	}

	Recommendation struct {
		Type     RecommendationType `json:"type"`
		Category string             `json:"category,omitempty"`
		Message  string             `json:"message"`
		Priority Priority           `json:"priority"`
	}

	InsightSummary struct {
		TotalBudgeted  Money         `json:"totalBudgeted"`
		TotalActual    Money         `json:"totalActual"`
		PercentageUsed float64       `json:"percentageUsed"`
		Status         OverallStatus `json:"status"`
	}

	InsightReport struct {
		Insights        []Insight        `json:"insights"`
		Recommendations []Recommendation `json:"recommendations"`
		Summary         *InsightSummary  `json:"summary,omitempty"`
	}
)

// DeriveInsights turns a comparison into user-facing messages.
// A nil comparison yields empty lists and no summary.
func DeriveInsights(c *Comparison) InsightReport {
	report := InsightReport{
		Insights:        []Insight{},
		Recommendations: []Recommendation{},
	}
	if c == nil {
		return report
	}

	for _, cat := range c.Categories {
		name := cat.Name
		if name == "" {
			name = "this category"
		}
		switch {
		case cat.Status == StatusOver:
			report.Insights = append(report.Insights, Insight{
				Type:     InsightOverBudget,
				Category: name,
				Message:  fmt.Sprintf("You've exceeded your %s budget by %s", name, cat.Difference.Abs().Format()),
				Severity: SeverityHigh,
			})
			report.Recommendations = append(report.Recommendations, Recommendation{
				Type:     RecommendReduceSpending,
				Category: name,
				Message:  fmt.Sprintf("Consider reducing %s spending by %.0f%%", name, cat.PercentageUsed-100),
				Priority: PriorityHigh,
			})
		case cat.Status == StatusWarning:
			report.Insights = append(report.Insights, Insight{
				Type:     InsightApproachingLimit,
				Category: name,
				Message:  fmt.Sprintf("You're approaching your %s budget limit (%.1f%% used)", name, cat.PercentageUsed),
				Severity: SeverityMedium,
			})
		case cat.PercentageUsed < underUsedThreshold:
			report.Insights = append(report.Insights, Insight{
				Type:     InsightUnderBudget,
				Category: name,
				Message:  fmt.Sprintf("Great job! You're under budget for %s (%.1f%% used)", name, cat.PercentageUsed),
				Severity: SeverityLow,
			})
		}
	}

	overall := PercentageUsed(c.TotalActual, c.TotalBudgeted)
	overBudget := c.TotalActual.Cents > c.TotalBudgeted.Cents
	underBudget := c.TotalBudgeted.Cents > 0 && overall < overallUnderThreshold

	switch {
	case overBudget:
		report.Insights = append(report.Insights, Insight{
			Type:     InsightOverallOverBudget,
			Message:  fmt.Sprintf("You've exceeded your overall monthly budget by %s", c.TotalActual.Sub(c.TotalBudgeted).Format()),
			Severity: SeverityHigh,
		})
		report.Recommendations = append(report.Recommendations, Recommendation{
			Type:     RecommendOverallReduce,
			Message:  "Review your spending and identify areas to cut back",
			Priority: PriorityHigh,
		})
	case underBudget:
		report.Insights = append(report.Insights, Insight{
			Type:     InsightOverallUnderBudget,
			Message:  fmt.Sprintf("Great job! You're under your overall budget by %s", c.TotalBudgeted.Sub(c.TotalActual).Format()),
			Severity: SeverityLow,
		})
		report.Recommendations = append(report.Recommendations, Recommendation{
			Type:     RecommendIncreaseSavings,
			Message:  "Consider increasing your savings with the extra money",
			Priority: PriorityMedium,
		})
	}

	report.Summary = &InsightSummary{
		TotalBudgeted:  c.TotalBudgeted,
		TotalActual:    c.TotalActual,
		PercentageUsed: overall,
		Status:         c.OverallStatus,
	}
	return report
}
