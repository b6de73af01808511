package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taskforge-app/taskforge/internal/app"
	"github.com/taskforge-app/taskforge/internal/audit"
	"github.com/taskforge-app/taskforge/internal/auth"
	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/observability"
	"github.com/taskforge-app/taskforge/internal/orgs"
	"github.com/taskforge-app/taskforge/internal/platform/cache"
	"github.com/taskforge-app/taskforge/internal/platform/db"
	"github.com/taskforge-app/taskforge/internal/tasks"
	"github.com/taskforge-app/taskforge/internal/users"
	"github.com/taskforge-app/taskforge/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	recorder := audit.NewRecorder(jobs.QueueWriter{Client: queueClient}, logger).
		WithDenialObserver(metrics.ObserveDenial)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	refreshStore := auth.NewRefreshStore(redisClient, cfg.RefreshTTL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens, refreshStore)
	authHandler := auth.NewHandler(logger, authService)
	authenticator := auth.Authenticator{Tokens: tokens, Logger: logger}

	guard := authz.Middleware{Logger: logger, Sink: recorder}

	tasksRepo := tasks.NewRepository(dbpool)
	tasksService := tasks.NewService(tasksRepo, recorder)
	tasksHandler := tasks.NewHandler(logger, tasksService, guard)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, recorder)
	usersHandler := users.NewHandler(logger, usersService, guard)

	orgsRepo := orgs.NewRepository(dbpool)
	orgsService := orgs.NewService(orgsRepo, recorder)
	orgsHandler := orgs.NewHandler(logger, orgsService)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Authenticator: authenticator,
		AuthHandler:   authHandler,
		TasksHandler:  tasksHandler,
		UsersHandler:  usersHandler,
		OrgsHandler:   orgsHandler,
		AuditHandler:  auditHandler,
		JobHandler:    jobHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
