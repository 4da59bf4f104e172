//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"budgetplanner/internal/core"
	ports "budgetplanner/internal/sheets"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	credentials := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if spreadsheetID == "" || credentials == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID or GOOGLE_SERVICE_ACCOUNT_FILE not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewWithServiceAccount(ctx, credentials, spreadsheetID, "Plans", "Reviews")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if err := client.EnsureHeaders(ctx); err != nil {
		t.Fatalf("Failed to ensure headers: %v", err)
	}

	now := time.Now().UTC()
	plan := core.BudgetPlan{
		ID:          "integration-" + now.Format("20060102150405"),
		UserID:      "integration-user",
		TotalBudget: core.NewMoney(100),
		Source:      core.SourceFallback,
		CreatedAt:   now,
		Month:       core.MonthOf(now),
		Categories: []core.BudgetCategory{
			{Name: "Test", Allocated: core.NewMoney(100), Priority: core.PriorityLow, Percentage: 100},
		},
	}

	t.Run("ExportPlan", func(t *testing.T) {
		ref, err := client.ExportPlan(ctx, plan)
		if err != nil {
			t.Fatalf("Failed to export plan: %v", err)
		}
		t.Logf("Plan exported to %s", ref)
	})

	t.Run("ExportReview", func(t *testing.T) {
		ref, err := client.ExportReview(ctx, ports.Review{
			UserID:        plan.UserID,
			Month:         plan.Month.String(),
			TotalBudgeted: plan.TotalBudget,
			OverallStatus: "good",
			ReviewedAt:    now,
		})
		if err != nil {
			t.Fatalf("Failed to export review: %v", err)
		}
		t.Logf("Review exported to %s", ref)
	})
}
