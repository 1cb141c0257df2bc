// Package scheduler drives the bot's unattended jobs: a frequent interval
// refresh, a daily refresh, and weekly/monthly digest sends. Grounded in
// bot/scheduler.py, ported from APScheduler's AsyncIOScheduler onto
// robfig/cron/v3.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/monoledger/monoledger/analytics"
	"github.com/monoledger/monoledger/calendar"
	"github.com/monoledger/monoledger/config"
	"github.com/monoledger/monoledger/diskcache"
	"github.com/monoledger/monoledger/ledger"
	"github.com/monoledger/monoledger/observability"
	"github.com/monoledger/monoledger/profile"
	"github.com/monoledger/monoledger/ratelimit"
	"github.com/monoledger/monoledger/redisclient"
	"github.com/monoledger/monoledger/reportcache"
	syncpkg "github.com/monoledger/monoledger/sync"
	"github.com/monoledger/monoledger/upstream"
	"github.com/monoledger/monoledger/userconfig"
)

const (
	profileWindowDays    = 90
	distributedLockTTL   = 10 * time.Minute
	dailyRefreshDaysBack = 8
	weeklyRefreshDaysBack = 8
	monthlyRefreshDaysBack = 32
	intervalDaysBack     = 2
)

// Notifier delivers a rendered report to a user's chat. The chat transport
// (telegram package) implements this; scheduler never imports it directly.
type Notifier interface {
	Send(chatID int64, text string) error
}

// ReportRenderer turns a cached period's facts into chat text. The chat
// transport supplies the concrete renderer so scheduler stays decoupled
// from presentation.
type ReportRenderer interface {
	Render(period reportcache.Period, facts analytics.Facts) string
}

// Scheduler owns the cron runtime and every dependency its jobs touch.
type Scheduler struct {
	cfg      *config.Config
	log      zerolog.Logger
	cron     *cron.Cron
	users    *userconfig.Store
	ledger   *ledger.Store
	reports  *reportcache.Store
	profiles *profile.Store
	cache    *diskcache.Cache
	limiter  *ratelimit.Limiter
	redis    *redisclient.Client
	userLock *UserLock
	notifier Notifier
	renderer ReportRenderer
	metrics  *observability.Metrics
}

// New builds a Scheduler; call Start to register and run its jobs. metrics
// may be nil, in which case job outcomes are logged but not exported.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	users *userconfig.Store,
	ledgerStore *ledger.Store,
	reports *reportcache.Store,
	profiles *profile.Store,
	cache *diskcache.Cache,
	limiter *ratelimit.Limiter,
	redis *redisclient.Client,
	notifier Notifier,
	renderer ReportRenderer,
	metrics *observability.Metrics,
) *Scheduler {
	schedLog := log.With().Str("component", "scheduler").Logger()
	loc, err := time.LoadLocation(cfg.SchedTZ)
	if err != nil {
		schedLog.Warn().Err(err).Str("tz", cfg.SchedTZ).Msg("invalid SCHED_TZ, falling back to UTC")
		loc = time.UTC
	}
	return &Scheduler{
		cfg:      cfg,
		log:      schedLog,
		cron:     cron.New(cron.WithLocation(loc)),
		users:    users,
		ledger:   ledgerStore,
		reports:  reports,
		profiles: profiles,
		cache:    cache,
		limiter:  limiter,
		redis:    redis,
		userLock: NewUserLock(),
		notifier: notifier,
		renderer: renderer,
		metrics:  metrics,
	}
}

// Start registers the interval and cron jobs and begins running them.
func (s *Scheduler) Start() error {
	intervalSpec := fmt.Sprintf("@every %dm", max1(s.cfg.SchedRefreshMinutes))

	if _, err := s.cron.AddFunc(intervalSpec, func() {
		s.sleepJitter()
		s.refreshAllUsers(context.Background(), intervalDaysBack)
	}); err != nil {
		return fmt.Errorf("scheduler: register interval refresh: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.SchedDailyRefreshCron, func() {
		s.refreshAllUsers(context.Background(), dailyRefreshDaysBack)
	}); err != nil {
		return fmt.Errorf("scheduler: register daily refresh: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.SchedWeeklyCron, func() {
		s.weeklyReport(context.Background())
	}); err != nil {
		return fmt.Errorf("scheduler: register weekly report: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.SchedMonthlyCron, func() {
		s.monthlyReport(context.Background())
	}); err != nil {
		return fmt.Errorf("scheduler: register monthly report: %w", err)
	}

	s.cron.Start()
	s.log.Info().
		Bool("test_mode", s.cfg.SchedTestMode).
		Int("refresh_minutes", s.cfg.SchedRefreshMinutes).
		Str("daily", s.cfg.SchedDailyRefreshCron).
		Str("weekly", s.cfg.SchedWeeklyCron).
		Str("monthly", s.cfg.SchedMonthlyCron).
		Msg("scheduler started")
	return nil
}

// Stop halts the cron runtime, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func max1(minutes int) int {
	if minutes < 1 {
		return 1
	}
	return minutes
}

// sleepJitter delays the interval sweep by a random number of minutes in
// [AUTO_REFRESH_JITTER_MIN, AUTO_REFRESH_JITTER_MAX], so several bot
// instances sharing an upstream do not hit it at the same moment.
func (s *Scheduler) sleepJitter() {
	lo, hi := s.cfg.AutoRefreshJitterMin, s.cfg.AutoRefreshJitterMax
	if hi <= 0 || hi < lo {
		return
	}
	delay := time.Duration(lo)*time.Minute + time.Duration(rand.Int63n(int64(hi-lo+1)))*time.Minute
	time.Sleep(delay)
}

// eligible reports whether u has everything a refresh job needs.
func eligible(u *userconfig.Config) bool {
	return u != nil && u.AutojobsEnabled && u.ChatID != nil && u.MonoToken != "" && len(u.SelectedAccountIDs) > 0
}

// acquireUserSlot serializes refresh work per user, preferring the
// distributed Redis lock when configured so multiple scheduler instances
// never race on the same user; falls back to the in-process lock.
func (s *Scheduler) acquireUserSlot(ctx context.Context, userID int64) (func(), bool) {
	unlockLocal := s.userLock.Lock(userID)

	if s.redis == nil {
		return unlockLocal, true
	}

	key := fmt.Sprintf("refresh:%d", userID)
	ok, err := s.redis.TryLock(ctx, key, distributedLockTTL)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("redis lock attempt failed; proceeding with local lock only")
		return unlockLocal, true
	}
	if !ok {
		unlockLocal()
		return nil, false
	}
	return func() {
		_ = s.redis.Unlock(ctx, key)
		unlockLocal()
	}, true
}

// refreshUser syncs one user's ledger and recomputes their cached reports
// and long-term profile. Returns true if the refresh ran to completion.
func (s *Scheduler) refreshUser(ctx context.Context, u *userconfig.Config, daysBack int) bool {
	if !eligible(u) {
		return false
	}

	unlock, ok := s.acquireUserSlot(ctx, u.TelegramUserID)
	if !ok {
		return false
	}
	defer unlock()

	log := s.log.With().Int64("user_id", u.TelegramUserID).Logger()
	client := upstream.NewClient(s.cfg.UpstreamBaseURL, u.MonoToken, s.cache, s.limiter, log)

	nowTS := calendar.NowUnix()
	start := time.Now()
	result := syncpkg.Sync(ctx, client, s.ledger, log, u.TelegramUserID, u.SelectedAccountIDs, daysBack, nowTS)
	durationMs := float64(time.Since(start).Milliseconds())
	for _, acc := range result.PerAccount {
		if acc.Err != nil {
			log.Warn().Str("account_id", acc.AccountID).Err(acc.Err).Msg("account sync failed")
		}
		if s.metrics != nil {
			s.metrics.TrackSync(acc.AccountID, acc.FetchedRequests, acc.Appended, durationMs, acc.Err != nil)
		}
	}

	if err := s.recomputeReports(u.TelegramUserID, u.SelectedAccountIDs, nowTS); err != nil {
		log.Warn().Err(err).Msg("failed to recompute reports")
		return false
	}
	return true
}

// recomputeReports rebuilds today/week/month period reports plus the
// long-term profile from a single wide ledger load.
func (s *Scheduler) recomputeReports(userID int64, accountIDs []string, nowTS int64) error {
	records, err := s.ledger.LoadRange(userID, accountIDs, nowTS-profileWindowDays*86400, nowTS)
	if err != nil {
		return err
	}

	for _, pair := range []struct {
		period reportcache.Period
		window calendar.Range
	}{
		{reportcache.PeriodToday, calendar.Today(nowTS)},
		{reportcache.PeriodWeek, calendar.Week(nowTS)},
		{reportcache.PeriodMonth, calendar.Month(nowTS)},
	} {
		report := analytics.BuildPeriodReport(records, pair.window, nowTS)
		if err := s.reports.Save(userID, pair.period, report.Current); err != nil {
			return fmt.Errorf("scheduler: save %s report: %w", pair.period, err)
		}
	}

	p := profile.Build(records)
	if err := s.profiles.Save(userID, p); err != nil {
		return fmt.Errorf("scheduler: save profile: %w", err)
	}
	return nil
}

// refreshAllUsers runs a silent refresh (no chat notification) over every
// eligible user. One user's failure never stops the sweep.
func (s *Scheduler) refreshAllUsers(ctx context.Context, daysBack int) {
	users, err := s.users.IterAll()
	if err != nil {
		s.log.Warn().Err(err).Msg("refresh_all_users: failed to list users")
		return
	}

	refreshed := 0
	for _, u := range users {
		if s.refreshUser(ctx, u, daysBack) {
			refreshed++
		}
	}
	if s.metrics != nil {
		s.metrics.TrackSchedulerRun("interval_or_daily", len(users), refreshed)
	}
	s.log.Info().Int("scanned", len(users)).Int("refreshed", refreshed).Int("days_back", daysBack).Msg("refresh_all_users done")
}

func (s *Scheduler) sendPeriodReport(ctx context.Context, u *userconfig.Config, daysBack int, period reportcache.Period) {
	if !s.refreshUser(ctx, u, daysBack) {
		return
	}
	env, err := s.reports.Load(u.TelegramUserID, period)
	if err != nil || env == nil {
		return
	}
	var facts analytics.Facts
	if err := json.Unmarshal(env.Facts, &facts); err != nil {
		s.log.Warn().Err(err).Int64("user_id", u.TelegramUserID).Msg("failed to decode cached facts for notification")
		return
	}
	text := s.renderer.Render(period, facts)
	if u.ChatID == nil {
		return
	}
	if err := s.notifier.Send(*u.ChatID, text); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", *u.ChatID).Msg("failed to deliver scheduled report")
	}
}

func (s *Scheduler) weeklyReport(ctx context.Context) {
	users, err := s.users.IterAll()
	if err != nil {
		s.log.Warn().Err(err).Msg("weekly_report: failed to list users")
		return
	}
	for _, u := range users {
		s.sendPeriodReport(ctx, u, weeklyRefreshDaysBack, reportcache.PeriodWeek)
	}
	if s.metrics != nil {
		s.metrics.TrackSchedulerRun("weekly", len(users), len(users))
	}
	s.log.Info().Msg("weekly_report done")
}

func (s *Scheduler) monthlyReport(ctx context.Context) {
	users, err := s.users.IterAll()
	if err != nil {
		s.log.Warn().Err(err).Msg("monthly_report: failed to list users")
		return
	}
	for _, u := range users {
		s.sendPeriodReport(ctx, u, monthlyRefreshDaysBack, reportcache.PeriodMonth)
	}
	if s.metrics != nil {
		s.metrics.TrackSchedulerRun("monthly", len(users), len(users))
	}
	s.log.Info().Msg("monthly_report done")
}
