package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	API      APIConfig
	Dispatch DispatchConfig
	Channels ChannelsConfig
	Billing  BillingConfig
	Worker   WorkerConfig
	LogLevel slog.Level
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL             string
	VoucherCacheTTL time.Duration
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AdminSecret guards the operator routes; empty rejects every call
	AdminSecret string
}

// DispatchConfig controls the campaign fan-out
type DispatchConfig struct {
	Concurrency int
	SendTimeout time.Duration
	// RatePerSecond bounds sends per provider; zero disables the limiter
	RatePerSecond float64
}

// ChannelConfig holds the credentials of one messaging backend
type ChannelConfig struct {
	BaseURL  string
	Token    string
	SenderID string
}

// ChannelsConfig holds the configuration of every messaging backend
type ChannelsConfig struct {
	ChatBotA ChannelConfig
	ChatBotB ChannelConfig
	ChatBotC ChannelConfig
	// Mock routes all sends to an in-process simulator
	Mock            bool
	MockSuccessRate float64
}

// BillingConfig holds paid plan configuration
type BillingConfig struct {
	PlanPrice       float64
	Currency        string
	Tier            string
	TrialDays       int
	PeriodDays      int
	CheckoutBaseURL string
	PaymentMethod   string

	// CallbackSecret is shared with the payment provider; empty rejects every callback
	CallbackSecret string
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	ExpirySweepInterval time.Duration

	// StaleSendingAfter is how long a campaign may stay sending before it is closed from its logs
	StaleSendingAfter time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	apiPort, err := getEnvInt("API_PORT", 8080)
	if err != nil {
		return nil, err
	}

	concurrency, err := getEnvInt("DISPATCH_CONCURRENCY", 5)
	if err != nil {
		return nil, err
	}

	trialDays, err := getEnvInt("BILLING_TRIAL_DAYS", 14)
	if err != nil {
		return nil, err
	}

	periodDays, err := getEnvInt("BILLING_PERIOD_DAYS", 30)
	if err != nil {
		return nil, err
	}

	planPrice, err := getEnvFloat("BILLING_PLAN_PRICE", 800)
	if err != nil {
		return nil, err
	}

	ratePerSecond, err := getEnvFloat("DISPATCH_RATE_PER_SECOND", 20)
	if err != nil {
		return nil, err
	}

	mockSuccessRate, err := getEnvFloat("CHANNEL_MOCK_SUCCESS_RATE", 0.92)
	if err != nil {
		return nil, err
	}

	mock, err := getEnvBool("CHANNEL_MOCK", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "outreach"),
			Password: getEnv("DB_PASSWORD", "outreach"),
			DBName:   getEnv("DB_NAME", "outreach"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		API: APIConfig{
			Port:        apiPort,
			AdminSecret: os.Getenv("ADMIN_API_SECRET"),
		},
		Dispatch: DispatchConfig{
			Concurrency:   ClampConcurrency(concurrency),
			RatePerSecond: ratePerSecond,
		},
		Channels: ChannelsConfig{
			ChatBotA: ChannelConfig{
				BaseURL: getEnv("CHAT_BOT_A_URL", "https://api.chat-bot-a.example"),
				Token:   getEnv("CHAT_BOT_A_TOKEN", ""),
			},
			ChatBotB: ChannelConfig{
				BaseURL:  getEnv("CHAT_BOT_B_URL", "https://graph.chat-bot-b.example"),
				Token:    getEnv("CHAT_BOT_B_TOKEN", ""),
				SenderID: getEnv("CHAT_BOT_B_SENDER_ID", ""),
			},
			ChatBotC: ChannelConfig{
				BaseURL: getEnv("CHAT_BOT_C_URL", "https://hooks.chat-bot-c.example"),
				Token:   getEnv("CHAT_BOT_C_TOKEN", ""),
			},
			Mock:            mock,
			MockSuccessRate: mockSuccessRate,
		},
		Billing: BillingConfig{
			PlanPrice:       planPrice,
			Currency:        getEnv("BILLING_CURRENCY", "EGP"),
			Tier:            getEnv("BILLING_TIER", "pro"),
			TrialDays:       trialDays,
			PeriodDays:      periodDays,
			CheckoutBaseURL: getEnv("BILLING_CHECKOUT_URL", "https://pay.example/checkout"),
			PaymentMethod:   getEnv("BILLING_PAYMENT_METHOD", "card"),
			CallbackSecret:  os.Getenv("BILLING_CALLBACK_SECRET"),
		},
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.Redis.VoucherCacheTTL, err = getEnvDuration("REDIS_VOUCHER_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.API.ReadTimeout, err = getEnvDuration("API_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	// Synchronous sends hold the request open for the whole fan-out
	if cfg.API.WriteTimeout, err = getEnvDuration("API_WRITE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Dispatch.SendTimeout, err = getEnvDuration("DISPATCH_SEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Worker.ExpirySweepInterval, err = getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.Worker.StaleSendingAfter, err = getEnvDuration("STALE_SENDING_AFTER", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ClampConcurrency bounds dispatch concurrency to 1..8
func ClampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
