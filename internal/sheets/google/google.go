package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budgetplanner/internal/core"
	ports "budgetplanner/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	plansSheet    string
	reviewsSheet  string
}

// Ensure interface conformance
var (
	_ ports.PlanExporter   = (*Client)(nil)
	_ ports.ReviewExporter = (*Client)(nil)
)

// Header rows written by EnsureHeaders, matching the column order of the appended rows.
var (
	planHeader   = []any{"Month", "User", "Plan ID", "Source", "Created At", "Total Budget", "Category", "Allocated", "Priority", "Percentage"}
	reviewHeader = []any{"Month", "User", "Budgeted", "Actual", "Status", "Over Budget", "Insights", "Reviewed At"}
)

// New creates an exporter. Options are passed to the Sheets service, which
// lets tests use a local endpoint.
func New(ctx context.Context, spreadsheetID, plansSheet, reviewsSheet string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		plansSheet:    plansSheet,
		reviewsSheet:  reviewsSheet,
	}, nil
}

// NewWithServiceAccount authenticates with a service account key file.
func NewWithServiceAccount(ctx context.Context, credentialsFile, spreadsheetID, plansSheet, reviewsSheet string) (*Client, error) {
	if credentialsFile == "" {
		return nil, errors.New("missing service account credentials file")
	}
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	return New(ctx, spreadsheetID, plansSheet, reviewsSheet,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// ExportPlan appends one row per category.
func (c *Client) ExportPlan(ctx context.Context, plan core.BudgetPlan) (string, error) {
	if len(plan.Categories) == 0 {
		return "", errors.New("plan has no categories")
	}

	rows := make([][]any, 0, len(plan.Categories))
	for _, cat := range plan.Categories {
		rows = append(rows, []any{
			plan.Month.String(),
			plan.UserID,
			plan.ID,
			string(plan.Source),
			plan.CreatedAt.UTC().Format(time.RFC3339),
			plan.TotalBudget.Decimal().InexactFloat64(),
			cat.Name,
			cat.Allocated.Decimal().InexactFloat64(),
			string(cat.Priority),
			cat.Percentage,
		})
	}
	return c.append(ctx, c.plansSheet, rows)
}

// ExportReview appends the review as a single row.
func (c *Client) ExportReview(ctx context.Context, r ports.Review) (string, error) {
	row := []any{
		r.Month,
		r.UserID,
		r.TotalBudgeted.Decimal().InexactFloat64(),
		r.TotalActual.Decimal().InexactFloat64(),
		r.OverallStatus,
		strings.Join(r.OverCategories, ", "),
		r.Insights,
		r.ReviewedAt.UTC().Format(time.RFC3339),
	}
	return c.append(ctx, c.reviewsSheet, [][]any{row})
}

// EnsureHeaders writes the header row of each sheet when its first row is empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	for sheet, header := range map[string][]any{c.plansSheet: planHeader, c.reviewsSheet: reviewHeader} {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!1:1").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read header of %s: %w", sheet, err)
		}
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}
		vr := &gsheet.ValueRange{Values: [][]any{header}}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!A1", vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header of %s: %w", sheet, err)
		}
	}
	return nil
}

func (c *Client) append(ctx context.Context, sheet string, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:A", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := sheet
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Appended rows to Google Sheets", "range", ref, "rows", len(rows))
	return ref, nil
}
