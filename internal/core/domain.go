package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

const (
	SourceAI       PlanSource = "ai"
	SourceFallback PlanSource = "fallback"
)

type (
	Priority   string
	PlanSource string

	Money struct {
		Cents int64
	}

	BudgetCategory struct {
		Name        string   `json:"name"`
		Allocated   Money    `json:"allocated"`
		Priority    Priority `json:"priority"`
		Description string   `json:"description"`
		Tips        []string `json:"tips"`
		Percentage  float64  `json:"percentage"` // advisory, never derived from Allocated
	}

	PlanSummary struct {
		TotalAllocated Money    `json:"totalAllocated"`
		Remaining      Money    `json:"remaining"`
		SavingsRate    float64  `json:"savingsRate"`
		KeyInsights    []string `json:"keyInsights"`
	}

	// PlanDraft is a structurally valid allocation that has not been persisted yet.
	PlanDraft struct {
		Categories      []BudgetCategory `json:"categories"`
		Summary         PlanSummary      `json:"summary"`
		Recommendations []string         `json:"recommendations"`
	}

	// BudgetPlan is an immutable, persisted allocation for one month.
	BudgetPlan struct {
		ID              string           `json:"id"`
		UserID          string           `json:"userId"`
		TotalBudget     Money            `json:"totalBudget"`
		Categories      []BudgetCategory `json:"categories"`
		Summary         PlanSummary      `json:"summary"`
		Recommendations []string         `json:"recommendations"`
		Source          PlanSource       `json:"source"`
		CreatedAt       time.Time        `json:"createdAt"`
		Month           Month            `json:"month"`
	}

	User struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		MonthlyBudget Money  `json:"monthlyBudget"`
		CurrentPlanID string `json:"currentPlanId,omitempty"`
	}

	Expense struct {
		ID          int64     `json:"id"`
		UserID      string    `json:"userId"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
	}

	// SpendingSnapshot summarizes recent spending for prompt context only.
	SpendingSnapshot struct {
		TotalExpenses    Money
		CategoryAverages map[string]Money
		RecentExpenses   []Expense
	}
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTotalBudget = fmt.Errorf("%w: total budget must be greater than zero", ErrInvalidInput)
	ErrEmptyRequirements  = fmt.Errorf("%w: requirements cannot be empty", ErrInvalidInput)
	ErrInvalidMonth       = fmt.Errorf("%w: month must use the YYYY-MM format", ErrInvalidInput)
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrInvalidDate        = fmt.Errorf("%w: date cannot be zero", ErrInvalidInput)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category", ErrInvalidInput)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidInput)

	ErrUserNotFound     = errors.New("user not found")
	ErrPlanNotFound     = errors.New("budget plan not found")
	ErrGenerationFailed = errors.New("generation failed")
	ErrPersistence      = errors.New("persistence failure")
)

// UncategorizedKey groups history entries whose category is blank.
const UncategorizedKey = "uncategorized"

// NormalizeCategory is the single key used whenever category names are compared.
func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParsePriority maps free-form model output onto the priority enum.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	default:
		return PriorityMedium, false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Validate reports whether the draft satisfies the shape every persisted plan must have.
func (d PlanDraft) Validate() error {
	if len(d.Categories) == 0 {
		return errors.New("plan has no categories")
	}
	for i, c := range d.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("category %d: empty name", i)
		}
		if c.Allocated.Cents < 0 {
			return fmt.Errorf("category %q: negative allocation", c.Name)
		}
	}
	return nil
}

// SumAllocated totals the allocations of every category.
func (d PlanDraft) SumAllocated() Money {
	var total int64
	for _, c := range d.Categories {
		total += c.Allocated.Cents
	}
	return Money{Cents: total}
}

// Draft returns the allocation part of a persisted plan.
func (p BudgetPlan) Draft() PlanDraft {
	return PlanDraft{
		Categories:      p.Categories,
		Summary:         p.Summary,
		Recommendations: p.Recommendations,
	}
}
