package core

import (
	"strings"
	"testing"
	"time"
)

func TestDeriveInsightsNilComparison(t *testing.T) {
	r := DeriveInsights(nil)
	if r.Insights == nil || r.Recommendations == nil {
		t.Fatalf("expected empty, non-nil lists")
	}
	if len(r.Insights) != 0 || len(r.Recommendations) != 0 || r.Summary != nil {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestDeriveInsightsPerCategory(t *testing.T) {
	plan := planWith(
		BudgetCategory{Name: "Food", Allocated: NewMoney(1000)},
		BudgetCategory{Name: "Transport", Allocated: NewMoney(1000)},
		BudgetCategory{Name: "Fun", Allocated: NewMoney(1000)},
		BudgetCategory{Name: "Rent", Allocated: NewMoney(1000)},
	)
	c := Reconcile(plan, []Expense{
		expense("Food", 1200, 1),
		expense("Transport", 950, 2),
		expense("Fun", 100, 3),
		expense("Rent", 800, 4),
	}, Month{2024, time.May})

	r := DeriveInsights(&c)

	byCategory := map[string]Insight{}
	for _, in := range r.Insights {
		if in.Category != "" {
			byCategory[in.Category] = in
		}
	}
	if in := byCategory["Food"]; in.Type != InsightOverBudget || in.Severity != SeverityHigh || !strings.Contains(in.Message, "200.00") {
		t.Fatalf("food insight=%+v", in)
	}
	if in := byCategory["Transport"]; in.Type != InsightApproachingLimit || !strings.Contains(in.Message, "95.0%") {
		t.Fatalf("transport insight=%+v", in)
	}
	if in := byCategory["Fun"]; in.Type != InsightUnderBudget || in.Severity != SeverityLow {
		t.Fatalf("fun insight=%+v", in)
	}
	if _, ok := byCategory["Rent"]; ok {
		t.Fatalf("80%% usage should not produce an insight")
	}

	if len(r.Recommendations) == 0 || r.Recommendations[0].Type != RecommendReduceSpending || r.Recommendations[0].Category != "Food" {
		t.Fatalf("recommendations=%+v", r.Recommendations)
	}
	if !strings.Contains(r.Recommendations[0].Message, "20%") {
		t.Fatalf("reduce message=%q", r.Recommendations[0].Message)
	}
	if r.Summary == nil || r.Summary.TotalActual != NewMoney(3050) || r.Summary.Status != c.OverallStatus {
		t.Fatalf("summary=%+v", r.Summary)
	}
}

func TestDeriveInsightsOverall(t *testing.T) {
	cases := []struct {
		name     string
		spent    int64
		wantType InsightType
		wantRec  RecommendationType
	}{
		{"over", 1500, InsightOverallOverBudget, RecommendOverallReduce},
		{"under", 500, InsightOverallUnderBudget, RecommendIncreaseSavings},
		{"on track", 900, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := planWith(BudgetCategory{Name: "All", Allocated: NewMoney(1000)})
			c := Reconcile(plan, []Expense{expense("all", tc.spent, 1)}, Month{2024, time.May})
			r := DeriveInsights(&c)

			var gotType InsightType
			for _, in := range r.Insights {
				if in.Category == "" {
					gotType = in.Type
				}
			}
			var gotRec RecommendationType
			for _, rec := range r.Recommendations {
				if rec.Category == "" {
					gotRec = rec.Type
				}
			}
			if gotType != tc.wantType || gotRec != tc.wantRec {
				t.Fatalf("got insight=%q rec=%q", gotType, gotRec)
			}
		})
	}
}

func TestDeriveInsightsZeroBudgetWithSpend(t *testing.T) {
	c := Comparison{TotalBudgeted: Money{}, TotalActual: NewMoney(10)}
	r := DeriveInsights(&c)
	if len(r.Insights) != 1 || r.Insights[0].Type != InsightOverallOverBudget {
		t.Fatalf("insights=%+v", r.Insights)
	}
	if r.Summary.PercentageUsed != 0 {
		t.Fatalf("percentage=%v", r.Summary.PercentageUsed)
	}
}
