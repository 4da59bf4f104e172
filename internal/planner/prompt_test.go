package planner

import (
	"strings"
	"testing"
	"time"

	"budgetplanner/internal/core"
)

func TestComposePromptWithoutHistory(t *testing.T) {
	prompt, err := ComposePrompt(PromptInput{
		TotalBudget:  core.NewMoney(5000),
		Requirements: "rent 1500, save for a bike",
	})
	if err != nil {
		t.Fatalf("ComposePrompt: %v", err)
	}
	for _, want := range []string{
		"TOTAL BUDGET: 5000",
		"USER REQUIREMENTS: rent 1500, save for a bike",
		"No spending history available.",
		"RESPONSE FORMAT (JSON only):",
		`"categories": [`,
		`"keyInsights"`,
		"at least 10% into savings",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "SPENDING HISTORY") || strings.Contains(prompt, "USER:") {
		t.Error("prompt should not render empty sections")
	}
}

func TestComposePromptRendersHistoryDeterministically(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	in := PromptInput{
		TotalBudget:  core.Money{Cents: 123456},
		Requirements: "keep it simple",
		Profile:      core.User{Name: "Ravi"},
		History: &core.SpendingSnapshot{
			TotalExpenses: core.NewMoney(350),
			CategoryAverages: map[string]core.Money{
				"transport": core.NewMoney(50),
				"food":      core.Money{Cents: 12550},
				"bills":     core.NewMoney(100),
			},
			RecentExpenses: []core.Expense{
				{Category: "Food", Amount: core.NewMoney(200), Date: day},
				{Category: "Transport", Amount: core.NewMoney(50), Date: day},
			},
		},
	}

	first, err := ComposePrompt(in)
	if err != nil {
		t.Fatalf("ComposePrompt: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := ComposePrompt(in)
		if again != first {
			t.Fatal("prompt is not deterministic")
		}
	}

	for _, want := range []string{
		"TOTAL BUDGET: 1234.56",
		"USER: Ravi",
		"SPENDING HISTORY (last 3 months):",
		"- Total spent: 350",
		"- Average spending by category: bills: 100, food: 125.5, transport: 50",
		"- Recent expenses: Food: 200, Transport: 50",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("prompt missing %q:\n%s", want, first)
		}
	}
	if strings.Contains(first, "No spending history available.") {
		t.Error("history marker rendered alongside history")
	}
}

func TestComposePromptTreatsEmptySnapshotAsNoHistory(t *testing.T) {
	prompt, err := ComposePrompt(PromptInput{
		TotalBudget:  core.NewMoney(10),
		Requirements: "x",
		History:      Summarize(nil),
	})
	if err != nil {
		t.Fatalf("ComposePrompt: %v", err)
	}
	if !strings.Contains(prompt, "No spending history available.") {
		t.Fatalf("expected no-history marker:\n%s", prompt)
	}
}
