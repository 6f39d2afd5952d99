package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmaflow/pharmaflow/internal/app"
	"github.com/pharmaflow/pharmaflow/internal/customers"
	"github.com/pharmaflow/pharmaflow/internal/deliveries"
	"github.com/pharmaflow/pharmaflow/internal/finance"
	"github.com/pharmaflow/pharmaflow/internal/inventory"
	"github.com/pharmaflow/pharmaflow/internal/orders"
	"github.com/pharmaflow/pharmaflow/internal/payments"
	"github.com/pharmaflow/pharmaflow/internal/platform/cache"
	"github.com/pharmaflow/pharmaflow/internal/platform/db"
	"github.com/pharmaflow/pharmaflow/internal/summary"
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
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	customerRepo := customers.NewRepository(dbpool)
	customerService := customers.NewService(customerRepo)
	customerHandler := customers.NewHandler(logger, customerService)

	orderRepo := orders.NewRepository(dbpool)
	orderService := orders.NewService(orderRepo, logger)
	orderHandler := orders.NewHandler(orderService)

	paymentRepo := payments.NewRepository(dbpool)
	paymentService := payments.NewService(paymentRepo, logger)
	paymentHandler := payments.NewHandler(paymentService)

	deliveryRepo := deliveries.NewRepository(dbpool)
	deliveryService := deliveries.NewService(deliveryRepo, logger)
	deliveryHandler := deliveries.NewHandler(deliveryService)

	financeRepo := finance.NewRepository(dbpool)
	financeService := finance.NewService(financeRepo, logger)
	financeHandler := finance.NewHandler(financeService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryHandler := inventory.NewHandler(inventoryRepo)

	summaryRepo := summary.NewRepository(dbpool)
	summaryCache := summary.NewCache(redisClient, cfg.SummaryCacheTTL)
	summaryService := summary.NewService(summaryRepo, summaryCache, logger)
	summaryHandler := summary.NewHandler(summaryService)

	// mutating services bump the dashboard summary cache
	orderService.WithInvalidator(summaryService)
	paymentService.WithInvalidator(summaryService)
	deliveryService.WithInvalidator(summaryService)
	financeService.WithInvalidator(summaryService)

	router := app.NewRouter(logger, cfg, app.Handlers{
		Customers:  customerHandler,
		Orders:     orderHandler,
		Payments:   paymentHandler,
		Deliveries: deliveryHandler,
		Finance:    financeHandler,
		Inventory:  inventoryHandler,
		Summary:    summaryHandler,
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
