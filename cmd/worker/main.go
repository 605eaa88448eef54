package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Raymond9734/storefront-outreach/internal/config"
	"github.com/Raymond9734/storefront-outreach/internal/db"
	"github.com/Raymond9734/storefront-outreach/internal/repository"
	"github.com/Raymond9734/storefront-outreach/internal/service"
	"github.com/Raymond9734/storefront-outreach/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	logger.Info("starting background worker")

	// Connect to database
	database, err := db.New(db.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	logger.Info("connected to database")

	subscriptionSvc := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(database.DB),
		service.SubscriptionConfig{
			Tier:       cfg.Billing.Tier,
			TrialDays:  cfg.Billing.TrialDays,
			PeriodDays: cfg.Billing.PeriodDays,
		},
		logger,
	)

	campaignSvc := service.NewCampaignService(
		repository.NewCampaignRepository(database.DB),
		repository.NewMessageLogRepository(database.DB),
		service.NewTemplateService(),
		logger,
	)

	sweepers := []*worker.Sweeper{
		worker.NewExpirySweeper(subscriptionSvc, cfg.Worker.ExpirySweepInterval, logger),
		worker.NewStaleCampaignSweeper(campaignSvc, cfg.Worker.StaleSendingAfter, cfg.Worker.ExpirySweepInterval, logger),
	}

	// Stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sweepers running",
		slog.Duration("interval", cfg.Worker.ExpirySweepInterval),
		slog.Duration("stale_sending_after", cfg.Worker.StaleSendingAfter),
	)

	// Each sweeper returns once ctx is cancelled
	var wg sync.WaitGroup
	for _, sw := range sweepers {
		wg.Add(1)
		go func(sw *worker.Sweeper) {
			defer wg.Done()
			_ = sw.Run(ctx)
		}(sw)
	}
	wg.Wait()

	logger.Info("worker stopped gracefully")
}
