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
	"github.com/redis/go-redis/v9"

	"github.com/atelier-shop/atelier/internal/analytics"
	"github.com/atelier-shop/atelier/internal/app"
	"github.com/atelier-shop/atelier/internal/finance"
	"github.com/atelier-shop/atelier/internal/integration"
	"github.com/atelier-shop/atelier/internal/jobs"
	"github.com/atelier-shop/atelier/internal/masterdata"
	"github.com/atelier-shop/atelier/internal/observability"
	"github.com/atelier-shop/atelier/internal/platform/db"
	"github.com/atelier-shop/atelier/internal/purchases"
	"github.com/atelier-shop/atelier/internal/sales"
	"github.com/atelier-shop/atelier/internal/shared"
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
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	dashboardCache := analytics.NewCache(redisClient, cfg.DashboardCacheTTL)
	go func() {
		if err := dashboardCache.ListenForInvalidation(ctx, analytics.BumpChannel); err != nil && ctx.Err() == nil {
			logger.Warn("dashboard cache subscriber stopped", slog.Any("error", err))
		}
	}()

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	hooks := integration.NewHooks(dashboardCache, jobClient, logger)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo, auditLogger, logger)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	purchaseRepo := purchases.NewRepository(pool)
	purchaseService := purchases.NewService(purchaseRepo, auditLogger, hooks, logger, purchases.ServiceConfig{})
	purchaseHandler := purchases.NewHandler(logger, purchaseService)

	saleRepo := sales.NewRepository(pool)
	saleService := sales.NewService(saleRepo, auditLogger, hooks, logger, sales.ServiceConfig{})
	saleHandler := sales.NewHandler(logger, saleService)

	financeRepo := finance.NewRepository(pool)
	financeService := finance.NewService(financeRepo, auditLogger, hooks, logger, finance.ServiceConfig{})
	financeHandler := finance.NewHandler(logger, financeService)

	analyticsRepo := analytics.NewRepository(pool)
	analyticsService := analytics.NewService(analyticsRepo, dashboardCache, analytics.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
	})
	analyticsHandler := analytics.NewHandler(logger, analyticsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		Masterdata: masterdataHandler,
		Purchases:  purchaseHandler,
		Sales:      saleHandler,
		Finance:    financeHandler,
		Analytics:  analyticsHandler,
		Jobs:       jobHandler,
		Pool:       pool,
		Metrics:    metrics,
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
