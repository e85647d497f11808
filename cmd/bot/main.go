package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"xui-shop-bot/internal/config"
	"xui-shop-bot/internal/services"
	"xui-shop-bot/internal/storage"
	"xui-shop-bot/internal/web"
	"xui-shop-bot/pkg/panelclient"
	"xui-shop-bot/pkg/zibal"
)

func main() {
	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration:", err)
	}

	// Open database and run migrations
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	userStore := storage.NewUserStore(db)
	transactionStore := storage.NewTransactionStore(db)
	planStore := storage.NewPlanStore(db)

	// External clients
	panel := panelclient.New(cfg.Panel, logger)
	gateway := zibal.New(cfg.Gateway.Merchant, logger)

	// Services
	qrService := services.NewQRService(logger)
	notifier, err := services.NewNotificationService(cfg.Telegram.Token, cfg.Telegram.AdminIDs, cfg.Panel.SubURLPrefix, qrService, logger)
	if err != nil {
		logger.Fatal("Failed to create Telegram notifier:", err)
	}

	syncService := services.NewSyncService(panel, userStore, logger)
	purchaseService := services.NewPurchaseService(panel, userStore, cfg.Panel, logger)
	paymentService := services.NewPaymentService(gateway, transactionStore, planStore, purchaseService, notifier, cfg.Gateway.CallbackURL, logger)

	// Callback server
	server := web.NewServer(paymentService, cfg.Web.ListenAddr, cfg.Web.SecretKey, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal(err)
		}
	}()

	// Periodic reconciliation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sync.Schedule, func() {
		if err := syncService.Sync(ctx); err != nil {
			logger.Errorf("Scheduled sync failed: %v", err)
		}
	}); err != nil {
		logger.Fatal("Invalid sync schedule:", err)
	}
	scheduler.Start()

	// One pass up front so the entitlement view is warm
	if err := syncService.Sync(ctx); err != nil {
		logger.Errorf("Initial sync failed: %v", err)
	}

	logger.Info("X-UI shop bot started")

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("Received shutdown signal")

	cancel()
	<-scheduler.Stop().Done()
	if err := server.Shutdown(); err != nil {
		logger.Errorf("%v", err)
	}
}

// setupLogger sets up the logger
func setupLogger() *logrus.Logger {
	logger := logrus.New()

	// Set log level from environment variable or default to info
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Printf("Invalid log level %s, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	// Set formatter
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger
}
