package core

import "math"

const (
	StatusGood    CategoryStatus = "good"
	StatusWarning CategoryStatus = "warning"
	StatusOver    CategoryStatus = "over"
)

const (
	OverallGood     OverallStatus = "good"
	OverallWarning  OverallStatus = "warning"
	OverallCritical OverallStatus = "critical"
)

// Usage thresholds, in percent of the allocation.
const (
	warningThreshold = 90.0
	overThreshold    = 110.0
)

type (
	CategoryStatus string
	OverallStatus  string

	CategoryComparison struct {
		BudgetCategory
		ActualSpending Money          `json:"actualSpending"`
		Difference     Money          `json:"difference"`
		PercentageUsed float64        `json:"percentageUsed"`
		Status         CategoryStatus `json:"status"`
	}

	Comparison struct {
		Month         Month                `json:"month"`
		TotalBudgeted Money                `json:"totalBudgeted"`
		TotalActual   Money                `json:"totalActual"`
		Categories    []CategoryComparison `json:"categories"`
		OverallStatus OverallStatus        `json:"overallStatus"`
	}
)

// PercentageUsed returns actual/allocated*100, or 0 when nothing was allocated.
func PercentageUsed(actual, allocated Money) float64 {
	if allocated.Cents == 0 {
		return 0
	}
	// Scaling before the division keeps round values exact (1100/1000 -> 110)
	// as long as the product fits in an int64.
	if actual.Cents > math.MaxInt64/100 || actual.Cents < math.MinInt64/100 {
		return float64(actual.Cents) / float64(allocated.Cents) * 100
	}
	return float64(actual.Cents*100) / float64(allocated.Cents)
}

// ClassifyUsage maps a usage percentage onto a category status.
func ClassifyUsage(pct float64) CategoryStatus {
	switch {
	case pct > overThreshold:
		return StatusOver
	case pct > warningThreshold:
		return StatusWarning
	default:
		return StatusGood
	}
}

// ClassifyOverall derives the plan-wide status from per-category counts.
func ClassifyOverall(over, warning int) OverallStatus {
	switch {
	case over > 2:
		return OverallCritical
	case over > 0 || warning > 3:
		return OverallWarning
	default:
		return OverallGood
	}
}

// Reconcile joins a month of expenses against the plan's allocations.
//
// Expenses are matched to categories by normalized name. TotalActual
// counts every expense, including the ones that match no category.
func Reconcile(plan BudgetPlan, expenses []Expense, month Month) Comparison {
	actual := make(map[string]int64)
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
		key := NormalizeCategory(e.Category)
		if key == "" {
			continue
		}
		actual[key] += e.Amount.Cents
	}

	out := Comparison{
		Month:         month,
		TotalBudgeted: plan.Summary.TotalAllocated,
		TotalActual:   Money{Cents: total},
		Categories:    make([]CategoryComparison, 0, len(plan.Categories)),
	}

	var over, warning int
	for _, c := range plan.Categories {
		spent := Money{Cents: actual[NormalizeCategory(c.Name)]}
		pct := PercentageUsed(spent, c.Allocated)
		status := ClassifyUsage(pct)
		switch status {
		case StatusOver:
			over++
		case StatusWarning:
			warning++
		}
		out.Categories = append(out.Categories, CategoryComparison{
			BudgetCategory: c,
			ActualSpending: spent,
			Difference:     spent.Sub(c.Allocated),
			PercentageUsed: pct,
			Status:         status,
		})
	}
	out.OverallStatus = ClassifyOverall(over, warning)
	return out
}
