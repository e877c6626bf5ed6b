package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"seo-checkout-api/logger"
	"seo-checkout-api/services/email"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Session  SessionConfig
	Redis    RedisConfig
	SMTP     email.SMTPConfig
	Checkout CheckoutConfig
	Log      logger.Config
}

type ServerConfig struct {
	Port          string
	AllowedOrigin string
	TrustProxy    bool
}

// BackendConfig points at the billing backend that owns payments and auth.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Secret string
	Domain string
	MaxAge int
	Secure bool
}

type RedisConfig struct {
	URL               string
	WorkerConcurrency int
}

type CheckoutConfig struct {
	PaymentPageURL string
	SalesEmail     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
			TrustProxy:    getBool("TRUST_PROXY", false),
		},
		Backend: BackendConfig{
			BaseURL: os.Getenv("API_BASE_URL"),
			Timeout: getDuration("API_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			Domain: os.Getenv("SESSION_DOMAIN"),
			MaxAge: getInt("SESSION_MAX_AGE", 86400),
			Secure: getBool("SESSION_SECURE", true),
		},
		Redis: RedisConfig{
			URL:               os.Getenv("REDIS_URL"),
			WorkerConcurrency: getInt("WORKER_CONCURRENCY", 2),
		},
		SMTP: email.SMTPConfig{
			Host:        os.Getenv("SMTP_HOST"),
			Port:        getInt("SMTP_PORT", 587),
			Username:    os.Getenv("SMTP_USER"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			FromAddress: getEnv("SMTP_FROM", "no-reply@localhost"),
			FromName:    getEnv("SMTP_FROM_NAME", "Checkout"),
		},
		Checkout: CheckoutConfig{
			PaymentPageURL: os.Getenv("PAYMENT_PAGE_URL"),
			SalesEmail:     os.Getenv("SALES_EMAIL"),
		},
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
	}

	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
		slog.Warn("REDIS_URL not set, using default", "url", cfg.Redis.URL)
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
		slog.Warn("API_BASE_URL not set, using default", "url", cfg.Backend.BaseURL)
	}
	if cfg.Session.Secret == "" {
		slog.Warn("SESSION_SECRET not set, session cookies will not survive a restart")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}
