package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/barissdev/polylook/internal/secrets"
	"github.com/joho/godotenv"
)

// AuthMode represents the authentication mode for the Data API
type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeBearer AuthMode = "bearer"
	AuthModeAPIKey AuthMode = "api_key"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string

	// Upstream APIs
	DataAPIBaseURL     string
	GammaAPIBaseURL    string
	DataAPIAuthMode    AuthMode
	DataAPIBearerToken string
	DataAPIAPIKey      string

	// Fetch client retry/backoff
	FetchMaxRetries        int
	FetchInitialDelay      time.Duration
	FetchMaxDelay          time.Duration
	FetchBackoffMultiplier float64
	HTTPTimeout            time.Duration

	// Page limits and pagination caps
	PositionsPageLimit      int
	WalletPositionsLimit    int
	ClosedPositionsPageSize int
	ClosedPositionsMaxPages int
	TradesPageLimit         int
	ActivityPageLimit       int
	ActivityVolumeLimit     int

	// Aggregation windows
	DefaultWindowDays   int
	MaxWindowDays       int
	FeedLookbackMinutes int

	// Whale detection
	WhaleThresholdUSD  float64
	WhaleResultCap     int
	WhaleWindowMinutes int

	// Optional background whale watcher
	WhaleWatchEnabled    bool
	WhalePollIntervalSec int
	AlertMode            string // log, discord, or comma-separated list
	DiscordWebhookURL    string

	// Worker pool
	FeedWorkers int

	// Rate limits (requests per second)
	DataAPITradesRPS      float64
	DataAPIActivityRPS    float64
	DataAPIPositionsRPS   float64
	DataAPILeaderboardRPS float64
	GammaAPIEventsRPS     float64

	// Servers
	APIPort     int
	MetricsPort int
}

// Load reads configuration from environment variables, with fallback to a
// local .env file for development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:             getEnv("ENVIRONMENT", "production"),
		DataAPIBaseURL:          getEnv("DATA_API_BASE_URL", "https://data-api.polymarket.com"),
		GammaAPIBaseURL:         getEnv("GAMMA_API_BASE_URL", "https://gamma-api.polymarket.com"),
		DataAPIAuthMode:         AuthMode(getEnv("DATA_API_AUTH_MODE", "none")),
		DataAPIBearerToken:      secrets.GetOptional("DATA_API_BEARER_TOKEN", ""),
		DataAPIAPIKey:           secrets.GetOptional("DATA_API_API_KEY", ""),
		FetchMaxRetries:         getEnvInt("FETCH_MAX_RETRIES", 3),
		FetchInitialDelay:       time.Duration(getEnvInt("FETCH_INITIAL_DELAY_MS", 1000)) * time.Millisecond,
		FetchMaxDelay:           time.Duration(getEnvInt("FETCH_MAX_DELAY_MS", 10000)) * time.Millisecond,
		FetchBackoffMultiplier:  getEnvFloat("FETCH_BACKOFF_MULTIPLIER", 2.0),
		HTTPTimeout:             time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 30)) * time.Second,
		PositionsPageLimit:      getEnvInt("POSITIONS_PAGE_LIMIT", 200),
		WalletPositionsLimit:    getEnvInt("WALLET_POSITIONS_LIMIT", 500),
		ClosedPositionsPageSize: getEnvInt("CLOSED_POSITIONS_PAGE_SIZE", 50),
		ClosedPositionsMaxPages: getEnvInt("CLOSED_POSITIONS_MAX_PAGES", 10),
		TradesPageLimit:         getEnvInt("TRADES_PAGE_LIMIT", 500),
		ActivityPageLimit:       getEnvInt("ACTIVITY_PAGE_LIMIT", 200),
		ActivityVolumeLimit:     getEnvInt("ACTIVITY_VOLUME_LIMIT", 1000),
		DefaultWindowDays:       getEnvInt("DEFAULT_WINDOW_DAYS", 30),
		MaxWindowDays:           getEnvInt("MAX_WINDOW_DAYS", 3650),
		FeedLookbackMinutes:     getEnvInt("FEED_LOOKBACK_MINUTES", 60),
		WhaleThresholdUSD:       getEnvFloat("WHALE_THRESHOLD_USD", 5000.0),
		WhaleResultCap:          getEnvInt("WHALE_RESULT_CAP", 100),
		WhaleWindowMinutes:      getEnvInt("WHALE_WINDOW_MINUTES", 60),
		WhaleWatchEnabled:       getEnvBool("WHALE_WATCH_ENABLED", false),
		WhalePollIntervalSec:    getEnvInt("WHALE_POLL_INTERVAL_SEC", 60),
		AlertMode:               getEnv("ALERT_MODE", "log"),
		DiscordWebhookURL:       secrets.GetOptional("DISCORD_WEBHOOK_URL", ""),
		FeedWorkers:             getEnvInt("FEED_WORKERS", 5),
		DataAPITradesRPS:        getEnvFloat("DATA_API_TRADES_RPS", 2.0),
		DataAPIActivityRPS:      getEnvFloat("DATA_API_ACTIVITY_RPS", 2.0),
		DataAPIPositionsRPS:     getEnvFloat("DATA_API_POSITIONS_RPS", 2.0),
		DataAPILeaderboardRPS:   getEnvFloat("DATA_API_LEADERBOARD_RPS", 1.0),
		GammaAPIEventsRPS:       getEnvFloat("GAMMA_API_EVENTS_RPS", 5.0),
		APIPort:                 getEnvInt("API_PORT", 8080),
		MetricsPort:             getEnvInt("METRICS_PORT", 9090),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DataAPIBaseURL == "" {
		return fmt.Errorf("DATA_API_BASE_URL is required")
	}
	if c.GammaAPIBaseURL == "" {
		return fmt.Errorf("GAMMA_API_BASE_URL is required")
	}

	switch c.DataAPIAuthMode {
	case AuthModeNone:
	case AuthModeBearer:
		if c.DataAPIBearerToken == "" {
			return fmt.Errorf("DATA_API_BEARER_TOKEN is required when DATA_API_AUTH_MODE is bearer")
		}
	case AuthModeAPIKey:
		if c.DataAPIAPIKey == "" {
			return fmt.Errorf("DATA_API_API_KEY is required when DATA_API_AUTH_MODE is api_key")
		}
	default:
		return fmt.Errorf("invalid DATA_API_AUTH_MODE: %s (must be none, bearer, or api_key)", c.DataAPIAuthMode)
	}

	if c.FetchMaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be >= 0")
	}
	if c.FetchBackoffMultiplier < 1 {
		return fmt.Errorf("FETCH_BACKOFF_MULTIPLIER must be >= 1")
	}
	if c.FetchInitialDelay <= 0 || c.FetchMaxDelay < c.FetchInitialDelay {
		return fmt.Errorf("invalid fetch delay configuration")
	}

	if c.ClosedPositionsPageSize <= 0 || c.ClosedPositionsMaxPages <= 0 {
		return fmt.Errorf("closed positions pagination settings must be positive")
	}
	if c.FeedWorkers <= 0 {
		return fmt.Errorf("FEED_WORKERS must be positive")
	}
	if c.WhaleResultCap <= 0 {
		return fmt.Errorf("WHALE_RESULT_CAP must be positive")
	}

	hasDiscord := false
	for _, mode := range strings.Split(c.AlertMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
		case "discord":
			hasDiscord = true
		default:
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, discord)", mode)
		}
	}
	if hasDiscord && c.DiscordWebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required when discord is in ALERT_MODE")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
