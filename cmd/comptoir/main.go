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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/comptoir-erp/comptoir/internal/accounting/config"
	"github.com/comptoir-erp/comptoir/internal/accounting/journals"
	"github.com/comptoir-erp/comptoir/internal/app"
	"github.com/comptoir-erp/comptoir/internal/checkout"
	"github.com/comptoir-erp/comptoir/internal/inventory"
	"github.com/comptoir-erp/comptoir/internal/masterdata/products"
	"github.com/comptoir-erp/comptoir/internal/masterdata/services"
	"github.com/comptoir-erp/comptoir/internal/platform/cache"
	"github.com/comptoir-erp/comptoir/internal/platform/db"
	"github.com/comptoir-erp/comptoir/internal/shared"
	"github.com/comptoir-erp/comptoir/jobs"
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
		logger.Warn("redis unavailable, accounting config cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)
	idemStore := shared.NewIdempotencyStore(pool)

	productRepo := products.NewRepository(pool)
	serviceRepo := services.NewRepository(pool)

	var configCache *config.Cache
	if redisClient != nil {
		configCache = config.NewCache(redisClient, cfg.AccountingConfigTTL)
	}
	resolver := config.NewResolver(config.NewRepository(pool), configCache)

	inventoryRepo := inventory.NewRepository(pool)
	ledger := inventory.NewLedger(logger)
	checker := inventory.NewChecker(inventoryRepo)

	journalRepo := journals.NewRepository(pool)
	writer := journals.NewWriter()

	checkoutSvc := checkout.NewService(checkout.ServiceDeps{
		Repo:     checkout.NewPgRepository(pool),
		Products: productRepo,
		Services: serviceRepo,
		Journals: journalRepo,
		Resolver: resolver,
		Checker:  checker,
		Ledger:   ledger,
		Writer:   writer,
		Audit:    auditLogger,
		Logger:   logger,
	})

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("jobs client unavailable, receipt mails disabled", slog.Any("error", err))
		jobsClient = nil
	} else {
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:    logger,
		Config:    cfg,
		Checkout:  checkout.NewHandler(logger, checkoutSvc, idemStore, jobsClient),
		Journals:  journals.NewHandler(logger, journalRepo),
		Inventory: inventory.NewHandler(logger, inventoryRepo),
		Products:  products.NewHandler(logger, productRepo),
		Services:  services.NewHandler(logger, serviceRepo),
		Jobs:      jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
