package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"coinpurse/internal/amqp"
	"coinpurse/internal/config"
	"coinpurse/internal/core"
	applog "coinpurse/internal/log"
	"coinpurse/internal/services"
	"coinpurse/internal/sheets"
	"coinpurse/internal/storage"
	"coinpurse/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	bucketer, err := core.GetBucketer(cfg.PeriodGranularity)
	if err != nil {
		logger.Error("Invalid period granularity", "error", err, "granularity", cfg.PeriodGranularity)
		os.Exit(1)
	}

	var consumer worker.MessageConsumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Warn("No AMQP URL configured, running checkup only")
	}

	var history sheets.HistoryWriter
	if cfg.SheetsSpreadsheetID != "" {
		client, err := sheets.New(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		history = client
	} else {
		logger.Warn("No spreadsheet configured, history export disabled")
	}

	periods := services.NewPeriodService(repo, bucketer)
	checkup := services.NewCheckupService(repo, periods, bucketer)

	w := worker.NewCheckupWorker(consumer, history, checkup, cfg.CheckupInterval)

	logger.Info("Starting coinpurse worker",
		"checkup_interval", cfg.CheckupInterval.String(),
		"consuming", consumer != nil,
		"exporting", history != nil)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
