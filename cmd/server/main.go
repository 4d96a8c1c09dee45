package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/zalama/partner-dashboard/internal/config"
	"github.com/zalama/partner-dashboard/internal/dashboard"
	httpserver "github.com/zalama/partner-dashboard/internal/interfaces/http"
	"github.com/zalama/partner-dashboard/internal/lengo"
	"github.com/zalama/partner-dashboard/internal/notification"
	"github.com/zalama/partner-dashboard/internal/reconcile"
	"github.com/zalama/partner-dashboard/internal/repository"
	"github.com/zalama/partner-dashboard/internal/webhook"
	"github.com/zalama/partner-dashboard/pkg/database"
	"github.com/zalama/partner-dashboard/pkg/utils"
)

func main() {
	// Provider credentials come from the environment in every deployment;
	// .env only exists in development.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting partner dashboard",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create database directory", zap.Error(err))
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	remboursementRepo := repository.NewRemboursementRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	webhookEventRepo := repository.NewWebhookEventRepository(db.DB, logger)
	employeeRepo := repository.NewEmployeeRepository(db.DB, logger)
	transactionRepo := repository.NewTransactionRepository(db.DB, logger)
	advanceRepo := repository.NewAdvanceRepository(db.DB, logger)
	partnerRepo := repository.NewPartnerRepository(db.DB, logger)

	// Provider client and reconciliation
	lengoClient := lengo.NewClient(lengo.Config{
		APIURL:  cfg.Lengo.APIURL,
		SiteID:  cfg.Lengo.SiteID,
		APIKey:  cfg.Lengo.APIKey,
		Timeout: cfg.Lengo.Timeout,
	}, logger)

	reconciler := reconcile.NewReconciler(remboursementRepo, historyRepo, lengoClient, logger)
	emitter := notification.NewEmitter(notificationRepo, logger)

	// Webhook ingestion
	verifier := webhook.NewVerifier(cfg.Webhook.Secret, logger)
	webhookHandler := webhook.NewHandler(verifier, db, remboursementRepo, historyRepo,
		webhookEventRepo, emitter, logger)

	// Dashboard aggregates
	dashboardService := dashboard.NewService(employeeRepo, transactionRepo, advanceRepo,
		remboursementRepo, notificationRepo, logger)

	handlers := httpserver.NewHandlers(reconciler, remboursementRepo, historyRepo,
		notificationRepo, employeeRepo, transactionRepo, advanceRepo, partnerRepo,
		dashboardService, logger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		WebhookPath:  cfg.Webhook.Path,
	}, handlers, webhookHandler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
