package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"budgetplanner/internal/ai"
	"budgetplanner/internal/cache"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/core"
	"budgetplanner/internal/planner"
	"budgetplanner/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("monthly-review-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	result := cli.InitBackend(initCtx, logger, cfg)
	initCancel()

	if !result.Publisher.Enabled() {
		logger.Warn("AMQP disabled - reviews will be computed but not exported")
	}

	// Reviews only read plans; generation is never attempted here.
	store := planner.NewPlanStore(result.Repository, cache.NewLRUCache[core.BudgetPlan](cfg.PlanCacheSize, cfg.PlanCacheTTL))
	service := planner.NewService(result.Repository, result.Repository, store, ai.Unavailable{}, logger)
	processor := services.NewReviewProcessor(result.Repository, service, result.Publisher)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	run := func() {
		count, err := processor.ProcessPreviousMonth(ctx, time.Now())
		if err != nil {
			logger.Error("Monthly review failed", "error", err)
			return
		}
		logger.Info("Monthly review complete", "reviews_published", count)
	}

	scheduler := cron.New()
	entryID, err := scheduler.AddFunc(cfg.ReviewSchedule, run)
	if err != nil {
		cli.Fatal(logger, "Invalid review schedule", err)
	}
	scheduler.Start()

	logger.Info("Monthly review worker started",
		"schedule", cfg.ReviewSchedule,
		"next_run", scheduler.Entry(entryID).Next.Format(time.RFC3339))

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for running review")
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Monthly review worker stopped")
}
