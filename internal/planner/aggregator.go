package planner

import (
	"context"
	"slices"
	"time"

	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
)

const (
	historyLookbackMonths = 3
	recentExpenseLimit    = 10
)

// Aggregator condenses recent spending into prompt context.
type Aggregator struct {
	expenses ExpenseFinder
	logger   *applog.Logger
}

func NewAggregator(expenses ExpenseFinder, logger *applog.Logger) *Aggregator {
	if logger == nil {
		logger = applog.Default(applog.ComponentPlanner)
	}
	return &Aggregator{expenses: expenses, logger: logger}
}

// Snapshot summarizes the three months before now. It returns nil when the
// history cannot be read so generation can continue without it.
func (a *Aggregator) Snapshot(ctx context.Context, userID string, now time.Time) *core.SpendingSnapshot {
	start := now.AddDate(0, -historyLookbackMonths, 0)
	expenses, err := a.expenses.FindExpenses(ctx, userID, start, now)
	if err != nil {
		a.logger.WarnContext(ctx, "Spending history unavailable, generating without it",
			applog.NewFields().
				WithUser(userID).
				WithOperation(applog.OpAggregate).
				WithError(err, applog.ErrorTypeDatabase).
				ToSlice()...)
		return nil
	}
	return Summarize(expenses)
}

// Summarize computes totals, per-category averages and the newest expenses.
func Summarize(expenses []core.Expense) *core.SpendingSnapshot {
	sorted := slices.Clone(expenses)
	slices.SortStableFunc(sorted, func(a, b core.Expense) int {
		return b.Date.Compare(a.Date)
	})

	var total int64
	sums := make(map[string]int64)
	counts := make(map[string]int64)
	for _, e := range sorted {
		key := core.NormalizeCategory(e.Category)
		if key == "" {
			key = core.UncategorizedKey
		}
		total += e.Amount.Cents
		sums[key] += e.Amount.Cents
		counts[key]++
	}

	averages := make(map[string]core.Money, len(sums))
	for key, sum := range sums {
		averages[key] = core.Money{Cents: divRound(sum, counts[key])}
	}

	return &core.SpendingSnapshot{
		TotalExpenses:    core.Money{Cents: total},
		CategoryAverages: averages,
		RecentExpenses:   sorted[:min(recentExpenseLimit, len(sorted))],
	}
}

// divRound divides rounding half away from zero.
func divRound(n, d int64) int64 {
	if n < 0 {
		return -divRound(-n, d)
	}
	return (n + d/2) / d
}
