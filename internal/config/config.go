package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingDB         = errors.New("DATABASE_URL is required")
	ErrMissingGoogleKey  = errors.New("GOOGLE_API_KEY is required")
	ErrMissingGoogleCX   = errors.New("GOOGLE_CX is required")
	ErrInvalidHTTPAddr   = errors.New("invalid HTTP_ADDR")
	ErrInvalidConcurrent = errors.New("KEYWORD_CONCURRENCY must be positive")
)

type Config struct {
	Database  DatabaseConfig
	Google    GoogleConfig
	HTTP      HTTPConfig
	Telegram  TelegramConfig
	Log       LogConfig
	Timeouts  TimeoutConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Search    SearchConfig
}

type DatabaseConfig struct {
	URL string
}

type GoogleConfig struct {
	APIKey  string
	CX      string
	BaseURL string
	Timeout time.Duration

	RequestsPerSecond  float64
	Burst              int
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

type HTTPConfig struct {
	Addr string
}

// TelegramConfig - бот опционален, пустой токен значит "не запускать"
type TelegramConfig struct {
	Token string
	Debug bool
}

type LogConfig struct {
	Level string
}

type TimeoutConfig struct {
	Total time.Duration
}

// CacheConfig: TTL == 0 выключает кэш страниц
type CacheConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type SearchConfig struct {
	KeywordConcurrency int
	StrictQuota        bool
	HistoryLimit       int
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Google: GoogleConfig{
			APIKey:             os.Getenv("GOOGLE_API_KEY"),
			CX:                 os.Getenv("GOOGLE_CX"),
			BaseURL:            getEnvOrDefault("GOOGLE_BASE_URL", "https://www.googleapis.com/customsearch/v1"),
			Timeout:            time.Duration(getEnvIntOrDefault("GOOGLE_TIMEOUT_SEC", 15)) * time.Second,
			RequestsPerSecond:  float64(getEnvIntOrDefault("UPSTREAM_RPS", 10)),
			Burst:              getEnvIntOrDefault("UPSTREAM_BURST", 5),
			BreakerMaxFailures: getEnvIntOrDefault("BREAKER_MAX_FAILURES", 5),
			BreakerTimeout:     time.Duration(getEnvIntOrDefault("BREAKER_TIMEOUT_SEC", 30)) * time.Second,
		},
		HTTP: HTTPConfig{
			Addr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug: getEnvBoolOrDefault("TELEGRAM_DEBUG", false),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Timeouts: TimeoutConfig{
			Total: time.Duration(getEnvIntOrDefault("TOTAL_TIMEOUT_SEC", 60)) * time.Second,
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 600)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		Search: SearchConfig{
			KeywordConcurrency: getEnvIntOrDefault("KEYWORD_CONCURRENCY", 4),
			StrictQuota:        getEnvBoolOrDefault("STRICT_QUOTA", false),
			HistoryLimit:       getEnvIntOrDefault("HISTORY_LIMIT", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDB
	}
	if c.Google.APIKey == "" {
		return ErrMissingGoogleKey
	}
	if c.Google.CX == "" {
		return ErrMissingGoogleCX
	}
	if _, _, err := net.SplitHostPort(c.HTTP.Addr); err != nil {
		return ErrInvalidHTTPAddr
	}
	if c.Search.KeywordConcurrency <= 0 {
		return ErrInvalidConcurrent
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
