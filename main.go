// Command monoledger runs the personal-finance Telegram bot: it wires the
// on-disk stores, the upstream statement client, the scheduler and the
// long-polling chat surface together, then serves a small ops HTTP endpoint
// alongside them, with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/monoledger/monoledger/ai"
	"github.com/monoledger/monoledger/config"
	"github.com/monoledger/monoledger/cryptocodec"
	"github.com/monoledger/monoledger/diskcache"
	"github.com/monoledger/monoledger/ledger"
	"github.com/monoledger/monoledger/logger"
	"github.com/monoledger/monoledger/nlq"
	"github.com/monoledger/monoledger/observability"
	"github.com/monoledger/monoledger/profile"
	"github.com/monoledger/monoledger/ratelimit"
	"github.com/monoledger/monoledger/redisclient"
	"github.com/monoledger/monoledger/reportcache"
	"github.com/monoledger/monoledger/router"
	"github.com/monoledger/monoledger/scheduler"
	"github.com/monoledger/monoledger/telegram"
	"github.com/monoledger/monoledger/userconfig"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg, "main")

	log.Info().Str("env", cfg.Env).Msg("monoledger starting")

	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.MasterKey == "" {
		log.Fatal().Msg("MASTER_KEY is required")
	}

	codec, err := cryptocodec.New(cfg.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("token codec init failed")
	}

	cache, err := diskcache.New(filepath.Join(cfg.CacheDir, "statements"))
	if err != nil {
		log.Fatal().Err(err).Msg("statement cache init failed")
	}

	limiter, err := ratelimit.New(filepath.Join(cfg.CacheDir, "ratelimit.json"))
	if err != nil {
		log.Fatal().Err(err).Msg("rate limiter init failed")
	}

	ledgerStore, err := ledger.New(filepath.Join(cfg.CacheDir, "ledger"))
	if err != nil {
		log.Fatal().Err(err).Msg("ledger store init failed")
	}

	users, err := userconfig.New(filepath.Join(cfg.CacheDir, "users"), codec)
	if err != nil {
		log.Fatal().Err(err).Msg("user config store init failed")
	}

	reports, err := reportcache.New(filepath.Join(cfg.CacheDir, "reports"))
	if err != nil {
		log.Fatal().Err(err).Msg("report cache init failed")
	}

	profiles, err := profile.New(filepath.Join(cfg.CacheDir, "profiles"))
	if err != nil {
		log.Fatal().Err(err).Msg("profile store init failed")
	}

	memory, err := nlq.NewStore(filepath.Join(cfg.CacheDir, "nlq"))
	if err != nil {
		log.Fatal().Err(err).Msg("nlq memory store init failed")
	}

	// Distributed scheduler lock is optional — without Redis each user's
	// refresh is still serialized in-process by scheduler.UserLock.
	var redisClient *redisclient.Client
	if cfg.RedisEnabled() {
		rc, err := redisclient.New(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("redis init failed — continuing without distributed lock")
		} else if err := rc.Ping(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed — continuing without distributed lock")
		} else {
			redisClient = rc
			log.Info().Msg("redis connected")
		}
	}

	// AI enrichment is optional — without an API key, reports fall back to
	// the facts-only renderer.
	var aiClient *ai.Client
	if cfg.AIEnabled() {
		aiClient = ai.NewClient("https://api.openai.com/v1", cfg.OpenAIAPIKey, cfg.OpenAIModel)
		log.Info().Str("model", cfg.OpenAIModel).Msg("ai enrichment enabled")
	} else {
		log.Info().Msg("ai enrichment disabled (set OPENAI_API_KEY to enable)")
	}

	metrics := observability.NewMetrics(log)

	bot, err := telegram.NewBot(cfg, log, users, ledgerStore, reports, profiles, memory, cache, limiter, aiClient, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram bot init failed")
	}

	sched := scheduler.New(cfg, log, users, ledgerStore, reports, profiles, cache, limiter, redisClient, bot, bot, metrics)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler start failed")
	}

	r := router.New(cfg, log, metrics)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	botCtx, cancelBot := context.WithCancel(context.Background())
	botErrCh := make(chan error, 1)
	go func() {
		log.Info().Msg("telegram long-poll loop starting")
		botErrCh <- bot.Run(botCtx)
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("ops http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ops server failed")
		}
	}()

	select {
	case <-done:
		log.Info().Msg("shutdown signal received")
	case err := <-botErrCh:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("telegram bot loop exited unexpectedly")
		}
	}

	cancelBot()
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("monoledger stopped gracefully")
	}
}
