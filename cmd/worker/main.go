package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-helpdesk/internal/aircall"
	"github.com/hugh/go-helpdesk/internal/database"
	"github.com/hugh/go-helpdesk/internal/reports"
	"github.com/hugh/go-helpdesk/internal/storage"
	"github.com/hugh/go-helpdesk/internal/tasks"
	"github.com/hugh/go-helpdesk/internal/tickets"
	"github.com/hugh/go-helpdesk/pkg/config"
	"github.com/hugh/go-helpdesk/pkg/queue"
	"github.com/hugh/go-helpdesk/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting helpdesk worker", "concurrency", cfg.Worker.Concurrency)

	if err := util.ValidateCronExpr(cfg.Worker.ReconcileCron); err != nil {
		logger.Error("invalid WORKER_RECONCILE_CRON", "cron", cfg.Worker.ReconcileCron, "error", err)
		os.Exit(1)
	}

	systemUserID, err := uuid.Parse(cfg.Aircall.SystemUserID)
	if err != nil {
		logger.Error("invalid AIRCALL_SYSTEM_USER_ID", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.Reports)
	if err != nil {
		logger.Error("failed to set up report storage", "backend", cfg.Reports.Storage, "error", err)
		os.Exit(1)
	}

	aircallService := aircall.NewService(db, tickets.NewService(db), logger, aircall.Options{
		WebhookToken: cfg.Aircall.WebhookToken,
		SystemUserID: systemUserID,
	})
	handler := tasks.NewHandler(logger, aircallService, reports.NewService(db), store, cfg.Reports.Prefix)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	// Periodic retry of calls whose ticket derivation failed
	scheduler := queue.NewScheduler(&cfg.Redis)
	reconcileTask, err := tasks.NewReconcileTicketsTask(tasks.ReconcileTicketsPayload{})
	if err != nil {
		logger.Error("failed to build reconcile task", "error", err)
		os.Exit(1)
	}
	entryID, err := scheduler.Register(cfg.Worker.ReconcileCron, reconcileTask)
	if err != nil {
		logger.Error("failed to schedule reconcile task", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Worker.ReconcileCron, time.Now()); err == nil {
		logger.Info("reconcile scheduled", "entry_id", entryID, "cron", cfg.Worker.ReconcileCron, "next_run", next)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	// Run blocks until SIGINT or SIGTERM
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	cancel()

	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("closing report storage", "error", err)
		}
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
