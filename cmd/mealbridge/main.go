package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mealbridge/mealbridge/internal/app"
	"github.com/mealbridge/mealbridge/internal/audit"
	audithttp "github.com/mealbridge/mealbridge/internal/audit/http"
	"github.com/mealbridge/mealbridge/internal/authz"
	"github.com/mealbridge/mealbridge/internal/observability"
	"github.com/mealbridge/mealbridge/internal/platform/db"
	"github.com/mealbridge/mealbridge/internal/roles"
	"github.com/mealbridge/mealbridge/internal/users"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The decision cache degrades to store reads when Redis is away.
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	decisionCache := authz.NewDecisionCache(redisClient, cfg.AuthzCacheTTL)

	recorder := audit.NewRecorder(audit.RecorderConfig{
		Writer:       audit.NewPGWriter(pool),
		Logger:       logger,
		Metrics:      metrics,
		WriteTimeout: cfg.AuditWriteTimeout,
		Retries:      cfg.AuditWriteRetries,
	})

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, decisionCache, recorder, logger)
	rolesHandler := roles.NewHandler(logger, rolesService)

	engine := authz.NewEngine(authz.EngineConfig{
		Source:       rolesService,
		Cache:        decisionCache,
		Logger:       logger,
		Metrics:      metrics,
		CheckTimeout: cfg.AuthzCheckTimeout,
	})
	gate := authz.Middleware{Engine: engine}

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, logger)
	auditHandler := audithttp.NewHandler(logger, auditService, recorder)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	permissionsHandler := authz.NewPermissionsHandler(logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Gate:               gate,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		AuditHandler:       auditHandler,
		PermissionsHandler: permissionsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
