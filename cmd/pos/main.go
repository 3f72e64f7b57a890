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

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/backup"
	"github.com/odyssey-erp/odyssey-pos/internal/cart"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/dashboard"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/live"
	"github.com/odyssey-erp/odyssey-pos/internal/preferences"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/internal/transfer"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
	"github.com/odyssey-erp/odyssey-pos/jobs"
	"github.com/odyssey-erp/odyssey-pos/report"
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
	slog.SetDefault(logger)

	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	defer svc.Close()

	sessionManager := shared.NewSessionManager(svc.Redis, shared.SessionCookieName, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	rbacMiddleware := rbac.Middleware{Service: svc.RBAC, Logger: logger}

	hub := live.NewHub(svc.Redis, logger, cfg.CheckOrigin())
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("live hub", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Auth:               svc.Auth,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            svc.Metrics,
		AuthHandler:        auth.NewHandler(logger, svc.Auth, sessionManager, csrfManager),
		CartHandler:        cart.NewHandler(logger, svc.Carts, rbacMiddleware),
		CheckoutHandler:    checkout.NewHandler(logger, svc.Checkout, rbacMiddleware),
		PreferencesHandler: preferences.NewHandler(logger, svc.Preferences),
		CatalogHandler:     catalog.NewHandler(logger, svc.Catalog, rbacMiddleware),
		LedgerHandler:      ledger.NewHandler(logger, svc.Ledger, svc.Receipts, rbacMiddleware),
		DashboardHandler:   dashboard.NewHandler(logger, svc.Dashboard, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, svc.Reports, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, svc.Users, rbacMiddleware),
		ShopHandler:        shop.NewHandler(logger, svc.Shop, rbacMiddleware),
		TransferHandler:    transfer.NewHandler(logger, svc.Transfer, rbacMiddleware),
		BackupHandler:      backup.NewHandler(logger, svc.Backups, rbacMiddleware),
		ReportHandler:      report.NewHandler(svc.PDF, logger),
		JobHandler:         jobs.NewHandler(inspector, logger, svc.Location),
		LiveFeed:           hub,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
