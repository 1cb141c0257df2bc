package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values, loaded once at startup.
type Config struct {
	Env string

	// Chat transport
	TelegramBotToken string

	// Token codec (opaque symmetric encryption at rest)
	MasterKey string

	// Optional AI enrichment
	OpenAIAPIKey string
	OpenAIModel  string

	// Storage
	CacheDir string

	// Optional distributed coordination
	RedisURL string

	// Ops HTTP server (health, readiness and metrics endpoints)
	Addr            string
	GracefulTimeout time.Duration
	MaxBodyBytes    int64

	// Logging
	LogLevel string

	// Scheduler
	SchedTZ               string
	SchedWeeklyCron       string
	SchedMonthlyCron      string
	SchedDailyRefreshCron string
	SchedRefreshMinutes   int
	SchedTestMode         bool
	AutoRefreshJitterMin  int
	AutoRefreshJitterMax  int

	// Upstream client tuning
	UpstreamBaseURL string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	refreshMinutes := getEnvInt("SCHED_REFRESH_MINUTES", 120)
	weeklyCron := getEnv("SCHED_WEEKLY_CRON", "0 9 * * 1")
	monthlyCron := getEnv("SCHED_MONTHLY_CRON", "0 9 1 * *")
	dailyCron := getEnv("SCHED_DAILY_REFRESH_CRON", "0 6 * * *")
	testMode := getEnvBool("SCHED_TEST_MODE", false)

	if testMode {
		refreshMinutes = 1
		weeklyCron = "*/2 * * * *"
		monthlyCron = "*/3 * * * *"
		dailyCron = "*/2 * * * *"
	}

	return &Config{
		Env:                   getEnv("ENV", "development"),
		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		MasterKey:             getEnv("MASTER_KEY", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		CacheDir:              getEnv("CACHE_DIR", ".cache"),
		RedisURL:              getEnv("REDIS_URL", ""),
		Addr:                  getEnv("GATEWAY_ADDR", ":8080"),
		GracefulTimeout:       time.Duration(getEnvInt("GATEWAY_GRACEFUL_TIMEOUT_SEC", 15)) * time.Second,
		MaxBodyBytes:          int64(getEnvInt("GATEWAY_MAX_BODY_BYTES", 1*1024*1024)),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		SchedTZ:               getEnv("SCHED_TZ", "Europe/Kyiv"),
		SchedWeeklyCron:       weeklyCron,
		SchedMonthlyCron:      monthlyCron,
		SchedDailyRefreshCron: dailyCron,
		SchedRefreshMinutes:   refreshMinutes,
		SchedTestMode:         testMode,
		AutoRefreshJitterMin:  getEnvInt("AUTO_REFRESH_JITTER_MIN", 0),
		AutoRefreshJitterMax:  getEnvInt("AUTO_REFRESH_JITTER_MAX", 0),
		UpstreamBaseURL:       getEnv("UPSTREAM_BASE_URL", "https://api.monobank.ua"),
	}
}

// IsDevelopment reports whether the process is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AIEnabled reports whether generative-AI enrichment is configured.
func (c *Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// RedisEnabled reports whether distributed scheduler coordination is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
