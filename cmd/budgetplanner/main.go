package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgetplanner/internal/ai"
	"budgetplanner/internal/cache"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/config"
	"budgetplanner/internal/core"
	apphttp "budgetplanner/internal/http"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/middleware/auth"
	"budgetplanner/internal/planner"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("budgetplanner")

	cfg := cli.LoadAndValidateConfig(logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	result := cli.InitBackend(initCtx, logger, cfg)
	initCancel()

	generator, err := ai.New(context.Background(), cfg, logger.WithComponent("ai"))
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AI provider", err)
	}

	// Current plans are cached per user; the manager sweeps expired entries.
	planCache := cache.NewLRUCache[core.BudgetPlan](cfg.PlanCacheSize, cfg.PlanCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(planCache)
	cacheManager.StartCleanup(cfg.PlanCacheTTL)

	store := planner.NewPlanStore(result.Repository, planCache)
	service := planner.NewService(result.Repository, result.Repository, store, generator, logger).
		WithPublisher(result.Publisher)

	srv := apphttp.NewServer(":"+cfg.Port, service, result.Repository, result.Repository, apphttp.Options{
		Auth:                      authenticator(cfg),
		GenerateRequestsPerMinute: cfg.GenerateRequestsPerMinute,
		Logger:                    logger.WithComponent(applog.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting budget planner server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"ai_provider", cfg.AIProvider,
		"auth_mode", cfg.AuthMode,
		"events", result.Publisher.Enabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func authenticator(cfg *config.Config) auth.Authenticator {
	if cfg.AuthMode == config.AuthModeHeader {
		return auth.Header{}
	}
	return auth.NewJWT(cfg.JWTSecret, cfg.JWTIssuer)
}
