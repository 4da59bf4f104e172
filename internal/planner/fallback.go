package planner

import "budgetplanner/internal/core"

// FallbackPlan is the fixed allocation used whenever generated output is
// unusable. Its amounts add up to 5000 and are not scaled to the requested
// budget. A fresh value is returned on every call.
func FallbackPlan() core.PlanDraft {
	category := func(name string, units int64, p core.Priority, pct float64, desc string, tips ...string) core.BudgetCategory {
		return core.BudgetCategory{
			Name:        name,
			Allocated:   core.NewMoney(units),
			Priority:    p,
			Description: desc,
			Tips:        tips,
			Percentage:  pct,
		}
	}

	return core.PlanDraft{
		Categories: []core.BudgetCategory{
			category("Rent/Housing", 2000, core.PriorityHigh, 40, "Monthly rent or mortgage payment",
				"Try to keep housing costs under 30% of income", "Consider roommates to reduce costs"),
			category("Food & Groceries", 1000, core.PriorityHigh, 20, "Daily meals and household groceries",
				"Plan meals in advance", "Buy in bulk for non-perishables"),
			category("Transportation", 500, core.PriorityHigh, 10, "Fuel, public transport, maintenance",
				"Use public transport when possible", "Carpool to save fuel costs"),
			category("Utilities", 400, core.PriorityHigh, 8, "Electricity, water, internet, phone",
				"Turn off unused appliances", "Compare utility providers"),
			category("Entertainment", 300, core.PriorityMedium, 6, "Movies, dining out, hobbies",
				"Look for free entertainment options", "Set limits on dining out"),
			category("Healthcare", 200, core.PriorityHigh, 4, "Medical expenses, insurance",
				"Maintain emergency medical fund", "Use generic medications when possible"),
			category("Savings", 600, core.PriorityHigh, 12, "Emergency fund and future goals",
				"Pay yourself first", "Automate savings transfers"),
		},
		Summary: core.PlanSummary{
			TotalAllocated: core.NewMoney(5000),
			Remaining:      core.Money{},
			SavingsRate:    12,
			KeyInsights: []string{
				"Your budget is well-balanced with 12% savings",
				"Housing costs are within recommended 30-40% range",
				"Consider tracking actual spending vs budget",
			},
		},
		Recommendations: []string{
			"Track your spending daily to stay within budget",
			"Review and adjust budget monthly based on actual expenses",
			"Build an emergency fund of 3-6 months expenses",
		},
	}
}
