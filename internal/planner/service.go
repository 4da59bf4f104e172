package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
)

// Service exposes plan generation, history and reconciliation for a user.
type Service struct {
	expenses   ExpenseFinder
	users      UserReader
	store      *PlanStore
	aggregator *Aggregator
	generator  Generator
	publisher  EventPublisher

	logger *applog.Logger
	slog   *applog.StructuredLogger
	now    func() time.Time
	loc    *time.Location
}

// NewService wires the service. A nil generator makes every plan the fallback.
func NewService(expenses ExpenseFinder, users UserReader, store *PlanStore, generator Generator, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Default(applog.ComponentPlanner)
	}
	return &Service{
		expenses:   expenses,
		users:      users,
		store:      store,
		aggregator: NewAggregator(expenses, logger),
		generator:  generator,
		logger:     logger,
		slog:       applog.NewStructuredLogger(logger),
		now:        time.Now,
		loc:        time.UTC,
	}
}

// WithPublisher announces every saved plan through p.
func (s *Service) WithPublisher(p EventPublisher) *Service {
	s.publisher = p
	return s
}

// WithClock sets the clock used for the lookback window and the default month.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.store.WithClock(now)
	return s
}

// WithLocation sets the time zone month boundaries are computed in.
func (s *Service) WithLocation(loc *time.Location) *Service {
	s.loc = loc
	return s
}

// GeneratePlan builds, persists and returns a new current plan for the user.
// Generation problems end in the fallback plan; only invalid input and
// persistence failures are returned as errors.
func (s *Service) GeneratePlan(ctx context.Context, userID string, totalBudget core.Money, requirements string) (core.BudgetPlan, error) {
	if totalBudget.Cents <= 0 {
		return core.BudgetPlan{}, core.ErrInvalidTotalBudget
	}
	if strings.TrimSpace(requirements) == "" {
		return core.BudgetPlan{}, core.ErrEmptyRequirements
	}

	logger := s.logger.WithUser(userID).WithOperation(applog.OpGenerate)
	now := s.now()

	var (
		history *core.SpendingSnapshot
		profile core.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		history = s.aggregator.Snapshot(gctx, userID, now)
		return nil
	})
	g.Go(func() error {
		u, err := s.users.GetUser(gctx, userID)
		if err != nil && !errors.Is(err, core.ErrUserNotFound) {
			logger.WarnContext(ctx, "User profile unavailable", applog.FieldError, err.Error())
		}
		profile = u
		return nil
	})
	_ = g.Wait()

	prompt, err := ComposePrompt(PromptInput{
		TotalBudget:  totalBudget,
		Requirements: requirements,
		History:      history,
		Profile:      profile,
	})
	if err != nil {
		return core.BudgetPlan{}, err
	}

	draft, source := s.draft(ctx, logger, prompt)

	plan, err := s.store.Save(ctx, userID, draft, source, totalBudget)
	if err != nil {
		s.slog.LogError(ctx, "Failed to save budget plan", err, applog.OpSave,
			applog.NewFields().WithUser(userID).WithErrorType(applog.ErrorTypeDatabase))
		return core.BudgetPlan{}, err
	}
	s.slog.LogPlanSaved(ctx, userID, plan.ID, plan.Month.String(), string(plan.Source), len(plan.Categories))

	if s.publisher != nil {
		if err := s.publisher.PublishPlanGenerated(ctx, plan); err != nil {
			logger.WarnContext(ctx, "Failed to publish plan event",
				applog.FieldPlanID, plan.ID, applog.FieldError, err.Error())
		}
	}
	return plan, nil
}

// draft runs the generation round trip and resolves its output to a valid draft.
func (s *Service) draft(ctx context.Context, logger *applog.Logger, prompt string) (core.PlanDraft, core.PlanSource) {
	if s.generator == nil {
		logger.WarnContext(ctx, "No generator configured, using fallback plan")
		return FallbackPlan(), core.SourceFallback
	}

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.WarnContext(ctx, "Generation failed, using fallback plan",
			applog.NewFields().WithError(err, applog.ErrorTypeGeneration).ToSlice()...)
		return FallbackPlan(), core.SourceFallback
	}

	draft, source := BuildPlanDraft(raw)
	if source == core.SourceFallback {
		logger.WarnContext(ctx, "Generated output unusable, using fallback plan",
			applog.FieldErrorType, applog.ErrorTypeMalformed,
			applog.FieldResponseBytes, len(raw))
	}
	return draft, source
}

// CurrentPlan returns nil when the user has never generated a plan.
func (s *Service) CurrentPlan(ctx context.Context, userID string) (*core.BudgetPlan, error) {
	return s.store.Current(ctx, userID)
}

// History returns the user's plans in the order they were generated.
func (s *Service) History(ctx context.Context, userID string) ([]core.BudgetPlan, error) {
	return s.store.History(ctx, userID)
}

// CompareSpending reconciles the current plan with the expenses of month
// (YYYY-MM, empty for the current month). It returns nil when there is no
// current plan.
func (s *Service) CompareSpending(ctx context.Context, userID, month string) (*core.Comparison, error) {
	target := core.MonthOf(s.now().In(s.loc))
	if month != "" {
		m, err := core.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		target = m
	}
	return s.CompareMonth(ctx, userID, target)
}

// CompareMonth is CompareSpending for an already resolved month.
func (s *Service) CompareMonth(ctx context.Context, userID string, month core.Month) (*core.Comparison, error) {
	plan, err := s.store.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}

	start, end := month.Bounds(s.loc)
	expenses, err := s.expenses.FindExpenses(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: find expenses: %w", core.ErrPersistence, err)
	}

	comparison := core.Reconcile(*plan, expenses, month)
	return &comparison, nil
}

// Insights derives messages from the current month's comparison.
func (s *Service) Insights(ctx context.Context, userID string) (core.InsightReport, error) {
	comparison, err := s.CompareSpending(ctx, userID, "")
	if err != nil {
		return core.InsightReport{}, err
	}
	return core.DeriveInsights(comparison), nil
}
