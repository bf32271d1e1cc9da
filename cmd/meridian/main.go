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

	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/credit"
	"github.com/meridian-pos/meridian-pos/internal/discounts"
	"github.com/meridian-pos/meridian-pos/internal/expenses"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/locations"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/lookups"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/products"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/suppliers"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/procurement"
	"github.com/meridian-pos/meridian-pos/internal/receipts"
	"github.com/meridian-pos/meridian-pos/internal/reports"
	"github.com/meridian-pos/meridian-pos/internal/sales"
	"github.com/meridian-pos/meridian-pos/internal/sales/customers"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotency := shared.NewIdempotencyStore(dbpool)

	ledgerService := ledger.NewService(ledger.NewRepository(dbpool), auditLogger, idempotency)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	creditService := credit.NewService(credit.NewRepository(dbpool), auditLogger, credit.ServiceConfig{
		EnforceLimit: cfg.CreditEnforceLimit,
	})
	creditHandler := credit.NewHandler(logger, creditService)

	receiptsService := receipts.NewService(receipts.NewRepository(dbpool), auditLogger)
	receiptsHandler := receipts.NewHandler(logger, receiptsService)

	productsHandler := products.NewHandler(logger, products.NewService(products.NewRepository(dbpool)))
	lookupsService := lookups.NewService(lookups.NewRepository(dbpool))
	suppliersHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(dbpool)))
	locationsHandler := locations.NewHandler(logger, locations.NewService(locations.NewRepository(dbpool)))
	customersHandler := customers.NewHandler(logger, customers.NewService(customers.NewRepository(dbpool)))

	salesService := sales.NewService(sales.NewRepository(dbpool), creditService, ledgerService, receiptsService, auditLogger)
	salesHandler := sales.NewHandler(logger, salesService)

	procurementService := procurement.NewService(procurement.NewRepository(dbpool), ledgerService, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	expensesHandler := expenses.NewHandler(logger, expenses.NewService(expenses.NewRepository(dbpool)))
	discountsHandler := discounts.NewHandler(logger, discounts.NewService(discounts.NewRepository(dbpool)))

	reportsCache := reports.NewCache(redisClient, cfg.DashboardCacheTTL, logger)
	reportsService := reports.NewService(reports.NewRepository(dbpool), reportsCache, auditLogger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		LedgerHandler:      ledgerHandler,
		CreditHandler:      creditHandler,
		ReceiptsHandler:    receiptsHandler,
		ProductsHandler:    productsHandler,
		LookupsService:     lookupsService,
		SuppliersHandler:   suppliersHandler,
		LocationsHandler:   locationsHandler,
		CustomersHandler:   customersHandler,
		SalesHandler:       salesHandler,
		ProcurementHandler: procurementHandler,
		ExpensesHandler:    expensesHandler,
		DiscountsHandler:   discountsHandler,
		ReportsHandler:     reportsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
