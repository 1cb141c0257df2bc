package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ENV", "TELEGRAM_BOT_TOKEN", "MASTER_KEY", "OPENAI_API_KEY",
		"OPENAI_MODEL", "CACHE_DIR", "REDIS_URL", "LOG_LEVEL",
		"SCHED_TZ", "SCHED_WEEKLY_CRON", "SCHED_MONTHLY_CRON",
		"SCHED_DAILY_REFRESH_CRON", "SCHED_REFRESH_MINUTES",
		"SCHED_TEST_MODE", "AUTO_REFRESH_JITTER_MIN", "AUTO_REFRESH_JITTER_MAX",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.CacheDir != ".cache" {
		t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, ".cache")
	}
	if cfg.SchedTZ != "Europe/Kyiv" {
		t.Errorf("SchedTZ = %q, want %q", cfg.SchedTZ, "Europe/Kyiv")
	}
	if cfg.SchedRefreshMinutes != 120 {
		t.Errorf("SchedRefreshMinutes = %d, want 120", cfg.SchedRefreshMinutes)
	}
	if cfg.AIEnabled() {
		t.Error("AIEnabled() = true with no OPENAI_API_KEY set")
	}
	if cfg.RedisEnabled() {
		t.Error("RedisEnabled() = true with no REDIS_URL set")
	}
}

func TestLoad_TestModeCompressesSchedule(t *testing.T) {
	clearEnv(t)
	os.Setenv("SCHED_TEST_MODE", "true")
	defer os.Unsetenv("SCHED_TEST_MODE")

	cfg := Load()
	if cfg.SchedRefreshMinutes != 1 {
		t.Errorf("SchedRefreshMinutes = %d, want 1 in test mode", cfg.SchedRefreshMinutes)
	}
	if cfg.SchedWeeklyCron != "*/2 * * * *" {
		t.Errorf("SchedWeeklyCron = %q, want compressed expression", cfg.SchedWeeklyCron)
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("TELEGRAM_BOT_TOKEN", "tok-123")
	os.Setenv("MASTER_KEY", "secret")
	os.Setenv("OPENAI_API_KEY", "sk-test")
	os.Setenv("REDIS_URL", "redis://localhost:6379/0")
	defer clearEnv(t)

	cfg := Load()
	if cfg.TelegramBotToken != "tok-123" {
		t.Errorf("TelegramBotToken = %q, want tok-123", cfg.TelegramBotToken)
	}
	if !cfg.AIEnabled() {
		t.Error("AIEnabled() = false with OPENAI_API_KEY set")
	}
	if !cfg.RedisEnabled() {
		t.Error("RedisEnabled() = false with REDIS_URL set")
	}
}

func TestIsDevelopment(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)

	cfg := Load()
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for default ENV")
	}

	os.Setenv("ENV", "production")
	cfg = Load()
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true with ENV=production")
	}
}
