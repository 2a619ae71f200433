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

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/almacen-erp/almacen-erp/internal/app"
	"github.com/almacen-erp/almacen-erp/internal/auth"
	"github.com/almacen-erp/almacen-erp/internal/billing"
	"github.com/almacen-erp/almacen-erp/internal/credit"
	"github.com/almacen-erp/almacen-erp/internal/masterdata"
	"github.com/almacen-erp/almacen-erp/internal/platform/cache"
	"github.com/almacen-erp/almacen-erp/internal/platform/db"
	"github.com/almacen-erp/almacen-erp/internal/shared"
	"github.com/almacen-erp/almacen-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessions := shared.NewSessionStore(redisClient, cfg.SessionTTL)
	validate := validator.New()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, sessions)
	authHandler := auth.NewHandler(logger, authService, validate)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, billing.ServiceConfig{TaxRate: cfg.TaxRateDecimal()})

	creditRepo := credit.NewRepository(pool)
	creditService := credit.NewService(creditRepo)
	creditHandler := credit.NewHandler(logger, creditService, validate)

	billingHandler := billing.NewHandler(logger, billingService, creditService, validate)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService, validate)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(logger, jobsClient)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Sessions:          sessions,
		AuthHandler:       authHandler,
		BillingHandler:    billingHandler,
		CreditHandler:     creditHandler,
		MasterDataHandler: masterdataHandler,
		JobsHandler:       jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
