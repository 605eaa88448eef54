package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Raymond9734/storefront-outreach/internal/cache"
	"github.com/Raymond9734/storefront-outreach/internal/channel"
	"github.com/Raymond9734/storefront-outreach/internal/config"
	"github.com/Raymond9734/storefront-outreach/internal/db"
	"github.com/Raymond9734/storefront-outreach/internal/handler"
	"github.com/Raymond9734/storefront-outreach/internal/metrics"
	"github.com/Raymond9734/storefront-outreach/internal/models"
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

	logger.Info("starting outreach API server")

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

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("connected to database")

	// Voucher cache is optional, lookups fall back to the database
	var cacheClient cache.Client
	if cfg.Redis.URL != "" {
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{URL: cfg.Redis.URL}, logger)
		if err != nil {
			logger.Warn("voucher cache disabled", slog.String("error", err.Error()))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
			logger.Info("connected to Redis voucher cache")
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Channel providers
	providers := channel.NewRegistry(channelCredentials(cfg.Channels), &http.Client{}, channel.GuardConfig{
		Timeout:       cfg.Dispatch.SendTimeout,
		RatePerSecond: cfg.Dispatch.RatePerSecond,
	}, logger)
	if cfg.Channels.Mock {
		mock := func(channel.Credentials, *http.Client) channel.Provider {
			return channel.NewMockProvider(cfg.Channels.MockSuccessRate)
		}
		for _, ch := range models.Channels {
			providers.WithFactory(ch, mock)
		}
		logger.Warn("channel sends are simulated", slog.Float64("success_rate", cfg.Channels.MockSuccessRate))
	}

	// Initialize repositories
	campaignRepo := repository.NewCampaignRepository(database.DB)
	customerRepo := repository.NewCustomerRepository(database.DB)
	logRepo := repository.NewMessageLogRepository(database.DB)
	subscriptionRepo := repository.NewSubscriptionRepository(database.DB)
	paymentRepo := repository.NewPaymentRepository(database.DB)
	voucherRepo := repository.NewVoucherRepository(database.DB)

	// Initialize services
	templateSvc := service.NewTemplateService()
	segmentSvc := service.NewSegmentService(customerRepo, logger)
	campaignSvc := service.NewCampaignService(campaignRepo, logRepo, templateSvc, logger)

	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, service.SubscriptionConfig{
		Tier:       cfg.Billing.Tier,
		TrialDays:  cfg.Billing.TrialDays,
		PeriodDays: cfg.Billing.PeriodDays,
	}, logger)

	checkoutSvc := service.NewCheckoutService(paymentRepo, voucherRepo, cacheClient, subscriptionSvc, m, service.CheckoutConfig{
		PlanPrice:       cfg.Billing.PlanPrice,
		Currency:        cfg.Billing.Currency,
		CheckoutBaseURL: cfg.Billing.CheckoutBaseURL,
		PaymentMethod:   cfg.Billing.PaymentMethod,
		VoucherCacheTTL: cfg.Redis.VoucherCacheTTL,
	}, logger)

	dispatchSvc := service.NewDispatchService(
		campaignRepo,
		logRepo,
		segmentSvc,
		templateSvc,
		subscriptionSvc,
		providers,
		worker.NewPool(cfg.Dispatch.Concurrency, logger),
		m,
		logger,
	)

	// Initialize handlers
	if cfg.Billing.CallbackSecret == "" {
		logger.Warn("BILLING_CALLBACK_SECRET not set, payment callbacks will be rejected")
	}
	if cfg.API.AdminSecret == "" {
		logger.Warn("ADMIN_API_SECRET not set, admin routes will be rejected")
	}

	router := handler.NewRouter(handler.Handlers{
		Campaigns:      handler.NewCampaignHandler(campaignSvc, dispatchSvc, segmentSvc, logger),
		Billing:        handler.NewBillingHandler(subscriptionSvc, checkoutSvc, logger),
		Health:         handler.NewHealthHandler(database.DB, cacheClient, logger),
		Admin:          handler.NewAdminHandler(subscriptionSvc, providers, logger),
		Metrics:        m.Handler(),
		CallbackSecret: cfg.Billing.CallbackSecret,
		AdminSecret:    cfg.API.AdminSecret,
	}, logger)

	// Create server
	addr := fmt.Sprintf(":%d", cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", slog.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)

	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}

		// Campaigns accepted with ?async=true finish before exit
		done := make(chan struct{})
		go func() {
			dispatchSvc.Wait()
			close(done)
		}()

		select {
		case <-done:
			logger.Info("server stopped gracefully")
		case <-ctx.Done():
			logger.Error("background dispatches still running at shutdown")
		}
	}
}

func channelCredentials(cfg config.ChannelsConfig) channel.StaticCredentials {
	creds := channel.StaticCredentials{}
	for ch, c := range map[models.Channel]config.ChannelConfig{
		models.ChannelChatBotA: cfg.ChatBotA,
		models.ChannelChatBotB: cfg.ChatBotB,
		models.ChannelChatBotC: cfg.ChatBotC,
	} {
		if c.BaseURL == "" {
			continue
		}
		creds[ch] = channel.Credentials{BaseURL: c.BaseURL, Token: c.Token, SenderID: c.SenderID}
	}
	return creds
}
