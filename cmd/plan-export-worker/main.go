package main

import (
	"context"
	"errors"
	"time"

	"budgetplanner/internal/amqp"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/config"
	"budgetplanner/internal/sheets/google"
	"budgetplanner/internal/storage"
	"budgetplanner/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("plan-export-worker")

	cfg := config.Load()
	if err := cfg.ValidateExport(); err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	// Plans are loaded by ID, so the worker needs the API's SQLite database.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err)
	}
	defer repo.Close()

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	sheetsClient, err := google.NewWithServiceAccount(initCtx,
		cfg.GoogleServiceAccountFile,
		cfg.GoogleSpreadsheetID,
		cfg.PlansSheetName,
		cfg.ReviewsSheetName)
	if err != nil {
		initCancel()
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	if err := sheetsClient.EnsureHeaders(initCtx); err != nil {
		logger.Warn("Failed to write sheet headers", "error", err)
	}
	initCancel()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, sheetsClient, sheetsClient)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Starting plan export worker",
		"queue", cfg.AMQPQueue,
		"exchange", cfg.AMQPExchange,
		"spreadsheet_id", cfg.GoogleSpreadsheetID)
	if err := amqpClient.Consume(ctx, exportWorker); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Message consumption failed", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Plan export worker stopped")
}
