package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mealbridge/mealbridge/internal/app"
	"github.com/mealbridge/mealbridge/internal/audit"
	"github.com/mealbridge/mealbridge/internal/authz"
	"github.com/mealbridge/mealbridge/internal/platform/cache"
	"github.com/mealbridge/mealbridge/internal/platform/db"
	"github.com/mealbridge/mealbridge/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The worker is useless without Redis: both its queue and the cache it
	// sweeps live there.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	decisionCache := authz.NewDecisionCache(redisClient, cfg.AuthzCacheTTL)
	auditService := audit.NewService(audit.NewRepository(pool), logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheSweep, Handler: jobs.NewCacheSweepHandler(decisionCache, logger)},
			{Type: jobs.TaskAuditVerify, Handler: jobs.NewAuditVerifyHandler(auditService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/5 * * * *", Task: jobs.NewCacheSweepTask()},
			{Spec: "0 3 * * *", Task: jobs.NewAuditVerifyTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
