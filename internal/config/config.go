/**
 * @description
 * Configuration loader for the TTMS scoring backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 *
 * @notes
 * - Fails fast if critical variables (Database URL) are missing.
 * - Durations accept Go duration syntax ("3s", "500ms").
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Codex   CodexConfig
	Scoring ScoringConfig
	Notify  NotifyConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        string
	Env         string // "development", "staging", "production" or "test"
	MetricsAddr string // worker-only Prometheus listener
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL        string
	PoolSize   int
	RankingTTL time.Duration // lifetime of the cached live ranking
}

// CodexConfig holds the upstream token data provider (GraphQL) settings
type CodexConfig struct {
	URL          string
	APIKey       string
	NetworkID    int
	MinLiquidity float64
	PageSize     int
	MaxOffset    int
	RPS          float64
}

// ScoringConfig holds pipeline knobs
type ScoringConfig struct {
	TopN            int
	HolderChunkSize int
	VolumeChunkSize int
	HolderWorkers   int
	AutoVotesTopK   int
	RetryAttempts   int
	RetryDelay      time.Duration
}

// NotifyConfig holds publish sink credentials
type NotifyConfig struct {
	TelegramURL      string
	TelegramBotToken string
	TelegramChannels []string
	TwitterURL       string
	TwitterToken     string
	TwitterEnabled   bool
}

// LogConfig holds zap settings
type LogConfig struct {
	Level    string // "debug", "info" or "warn"
	Encoding string // "json" or "console"
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (containers inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Env:         getEnv("GO_ENV", "development"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9102"),
		},
		DB: DBConfig{
			URL:          getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", "redis://localhost:6379"),
			PoolSize:   getEnvAsInt("REDIS_POOL_SIZE", 20),
			RankingTTL: getEnvAsDuration("RANKING_CACHE_TTL", 5*time.Minute),
		},
		Codex: CodexConfig{
			URL:          getEnv("CODEX_URL", "https://graph.codex.io/graphql"),
			APIKey:       sanitizeCredential(getEnv("CODEX_API_KEY", "")),
			NetworkID:    getEnvAsInt("CODEX_NETWORK_ID", 8453),
			MinLiquidity: getEnvAsFloat("CODEX_MIN_LIQUIDITY", 5000),
			PageSize:     getEnvAsInt("CODEX_PAGE_SIZE", 200),
			MaxOffset:    getEnvAsInt("CODEX_MAX_OFFSET", 10000),
			RPS:          getEnvAsFloat("CODEX_RPS", 5),
		},
		Scoring: ScoringConfig{
			TopN:            getEnvAsInt("TOP_N", 30),
			HolderChunkSize: getEnvAsInt("HOLDER_CHUNK_SIZE", 200),
			VolumeChunkSize: getEnvAsInt("VOLUME_CHUNK_SIZE", 200),
			HolderWorkers:   getEnvAsInt("HOLDER_WORKERS", 4),
			AutoVotesTopK:   getEnvAsInt("AUTO_VOTES_TOP_K", 10),
			RetryAttempts:   getEnvAsInt("RETRY_ATTEMPTS", 3),
			RetryDelay:      getEnvAsDuration("RETRY_DELAY", 3*time.Second),
		},
		Notify: NotifyConfig{
			TelegramURL:      getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			TelegramBotToken: sanitizeCredential(getEnv("TELEGRAM_BOT_TOKEN", "")),
			TelegramChannels: splitList(getEnv("TELEGRAM_CHANNELS", "")),
			TwitterURL:       getEnv("TWITTER_API_URL", "https://api.twitter.com"),
			TwitterToken:     sanitizeCredential(getEnv("TWITTER_BEARER_TOKEN", "")),
			TwitterEnabled:   getEnvAsBool("TWITTER_ENABLED", false),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Scoring.TopN <= 0 {
		return fmt.Errorf("TOP_N must be positive, got %d", cfg.Scoring.TopN)
	}
	if cfg.Scoring.HolderChunkSize <= 0 {
		return fmt.Errorf("HOLDER_CHUNK_SIZE must be positive, got %d", cfg.Scoring.HolderChunkSize)
	}
	if cfg.Scoring.VolumeChunkSize <= 0 {
		return fmt.Errorf("VOLUME_CHUNK_SIZE must be positive, got %d", cfg.Scoring.VolumeChunkSize)
	}
	if cfg.Redis.RankingTTL <= 0 {
		return fmt.Errorf("RANKING_CACHE_TTL must be positive, got %s", cfg.Redis.RankingTTL)
	}
	if cfg.Scoring.RetryAttempts <= 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must be positive, got %d", cfg.Scoring.RetryAttempts)
	}
	if cfg.Codex.PageSize <= 0 || cfg.Codex.MaxOffset < cfg.Codex.PageSize {
		return fmt.Errorf("CODEX_PAGE_SIZE (%d) must be positive and not exceed CODEX_MAX_OFFSET (%d)",
			cfg.Codex.PageSize, cfg.Codex.MaxOffset)
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
