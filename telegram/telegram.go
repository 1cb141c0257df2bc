// Package telegram is the chat surface: a long-polling go-telegram-bot-api
// bot wired to every store the rest of the repo builds. Command dispatch and
// copy are grounded in bot/app.py's aiogram handlers, adapted to tgbotapi's
// update/message shape; the inline-keyboard account picker is simplified to
// an indexed text list plus a /select reply (tgbotapi's keyboard API does
// not map cleanly onto aiogram's InlineKeyboardBuilder.adjust pattern).
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/monoledger/monoledger/ai"
	"github.com/monoledger/monoledger/analytics"
	"github.com/monoledger/monoledger/calendar"
	"github.com/monoledger/monoledger/config"
	"github.com/monoledger/monoledger/diskcache"
	"github.com/monoledger/monoledger/ledger"
	"github.com/monoledger/monoledger/nlq"
	"github.com/monoledger/monoledger/observability"
	"github.com/monoledger/monoledger/profile"
	"github.com/monoledger/monoledger/ratelimit"
	"github.com/monoledger/monoledger/reportcache"
	syncpkg "github.com/monoledger/monoledger/sync"
	"github.com/monoledger/monoledger/upstream"
	"github.com/monoledger/monoledger/userconfig"
)

const (
	todayRefreshDaysBack = 2
	weekRefreshDaysBack  = 8
	monthRefreshDaysBack = 32
	allRefreshDaysBack   = 90
)

// Bot owns the tgbotapi client plus every store a command handler touches.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	log      zerolog.Logger
	users    *userconfig.Store
	ledger   *ledger.Store
	reports  *reportcache.Store
	profiles *profile.Store
	memory   *nlq.Store
	cache    *diskcache.Cache
	limiter  *ratelimit.Limiter
	ai       *ai.Client
	metrics  *observability.Metrics

	pendingAccounts map[int64][]upstream.Account
}

// NewBot builds a Bot around a tgbotapi client and the repo's stores.
// aiClient and metrics may both be nil: "ai" report suffixes degrade to a
// facts-only report, and metrics tracking is simply skipped.
func NewBot(
	cfg *config.Config,
	log zerolog.Logger,
	users *userconfig.Store,
	ledgerStore *ledger.Store,
	reports *reportcache.Store,
	profiles *profile.Store,
	memory *nlq.Store,
	cache *diskcache.Cache,
	limiter *ratelimit.Limiter,
	aiClient *ai.Client,
	metrics *observability.Metrics,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: new bot api: %w", err)
	}
	return &Bot{
		api:             api,
		cfg:             cfg,
		log:             log.With().Str("component", "telegram").Logger(),
		users:           users,
		ledger:          ledgerStore,
		reports:         reports,
		profiles:        profiles,
		memory:          memory,
		cache:           cache,
		limiter:         limiter,
		ai:              aiClient,
		metrics:         metrics,
		pendingAccounts: make(map[int64][]upstream.Account),
	}, nil
}

// Send implements scheduler.Notifier.
func (b *Bot) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// Render implements scheduler.ReportRenderer.
func (b *Bot) Render(period reportcache.Period, facts analytics.Facts) string {
	return Render(period, facts, nil)
}

// Run starts the long-polling update loop; it blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Str("bot", b.api.Self.UserName).Msg("telegram bot started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.dispatch(ctx, update.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	log := b.log.With().Int64("user_id", userID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("command handler panicked")
			b.reply(msg.Chat.ID, "Сталася помилка. Спробуйте ще раз.")
		}
	}()

	text := strings.TrimSpace(msg.Text)
	switch {
	case msg.IsCommand():
		b.dispatchCommand(ctx, msg, log)
	case text != "":
		b.handlePlainText(ctx, msg, text)
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, msg *tgbotapi.Message, log zerolog.Logger) {
	switch msg.Command() {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(msg)
	case "connect":
		b.cmdConnect(msg)
	case "status":
		b.cmdStatus(msg)
	case "accounts":
		b.cmdAccounts(ctx, msg)
	case "select":
		b.cmdSelect(msg, msg.Text)
	case "refresh":
		b.cmdRefresh(ctx, msg, log)
	case "today":
		b.cmdPeriodReport(ctx, msg, reportcache.PeriodToday)
	case "week":
		b.cmdPeriodReport(ctx, msg, reportcache.PeriodWeek)
	case "month":
		b.cmdPeriodReport(ctx, msg, reportcache.PeriodMonth)
	case "autojobs":
		b.cmdAutojobs(msg)
	default:
		b.reply(msg.Chat.ID, "Невідома команда. Спробуйте /help.")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.Send(chatID, text); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if err := b.users.Save(msg.From.ID, userconfig.Update{ChatID: &chatID}); err != nil {
		b.log.Warn().Err(err).Msg("failed to save chat id on /start")
	}
	b.reply(chatID,
		"Monoledger — помічник для аналізу витрат Monobank.\n\n"+
			"Підключення:\n"+
			"/connect — додати Monobank token\n"+
			"Отримати токен: https://api.monobank.ua/index.html\n\n"+
			"Звіти:\n"+
			"/today /week /month\n\n"+
			"Дані зберігаються локально. Деталі — /help")
}

func (b *Bot) cmdHelp(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID,
		"Команди:\n\n"+
			"Підключення:\n"+
			"/connect — додати Monobank token\n"+
			"/status — перевірити стан підключення\n"+
			"/accounts — список карток, /select 1,2 — вибрати\n"+
			"/refresh [today|week|month|all] — синхронізувати ledger\n\n"+
			"Звіти:\n"+
			"/today /week /month — додай \"ai\" для AI-інсайтів, напр. /week ai\n\n"+
			"Автозвіти:\n"+
			"/autojobs on|off|status\n\n"+
			"Також можна питати звичайним текстом, напр. «скільки я витратив на каву за тиждень».")
}

func (b *Bot) cmdConnect(msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg.Chat.ID,
			"Підключення Monobank\n\n"+
				"1) Перейдіть на https://api.monobank.ua/index.html\n"+
				"2) Авторизуйтесь через Monobank\n"+
				"3) Створіть Personal API token\n"+
				"4) Надішліть його так: /connect YOUR_TOKEN\n\n"+
				"Токен зберігається локально у зашифрованому вигляді.")
		return
	}
	empty := []string{}
	if err := b.users.Save(msg.From.ID, userconfig.Update{MonoToken: &arg, SelectedAccountIDs: &empty}); err != nil {
		b.log.Warn().Err(err).Msg("failed to save mono token")
		b.reply(msg.Chat.ID, "Не вдалося зберегти токен. Спробуйте пізніше.")
		return
	}
	b.reply(msg.Chat.ID, "Monobank token збережено.\n\nДалі: /accounts — вибір карток.")
}

func maskSecret(s string, show int) string {
	if s == "" {
		return "немає"
	}
	if len(s) <= show {
		return strings.Repeat("*", len(s))
	}
	return s[:show] + strings.Repeat("*", len(s)-show)
}

func (b *Bot) cmdStatus(msg *tgbotapi.Message) {
	userID := msg.From.ID
	cfg, err := b.users.Load(userID)
	if err != nil {
		b.reply(msg.Chat.ID, "Не вдалося прочитати статус.")
		return
	}

	var b2 strings.Builder
	b2.WriteString("Статус:\n")
	if cfg == nil {
		b2.WriteString("Monobank: не підключено\nПідключіть: /connect <monobank token>\n")
	} else {
		fmt.Fprintf(&b2, "Monobank: підключено (%s)\n", maskSecret(cfg.MonoToken, 4))
		fmt.Fprintf(&b2, "Вибрані картки: %d\n", len(cfg.SelectedAccountIDs))
		fmt.Fprintf(&b2, "Автозвіти: %s\n", onOff(cfg.AutojobsEnabled))
	}

	b2.WriteString("\nСтатус кешу:\n")
	for _, p := range []reportcache.Period{reportcache.PeriodToday, reportcache.PeriodWeek, reportcache.PeriodMonth} {
		env, err := b.reports.Load(userID, p)
		if err != nil || env == nil {
			fmt.Fprintf(&b2, "• %s: немає (зробіть /refresh %s)\n", p, p)
			continue
		}
		ts := time.Unix(int64(env.GeneratedAt), 0).UTC().Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b2, "• %s: %s UTC\n", p, ts)
	}
	b.reply(msg.Chat.ID, b2.String())
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func (b *Bot) cmdAccounts(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	cfg, err := b.users.Load(userID)
	if err != nil || cfg == nil || cfg.MonoToken == "" {
		b.reply(msg.Chat.ID, "Спочатку підключіть Monobank: /connect <token>")
		return
	}

	client := upstream.NewClient(b.cfg.UpstreamBaseURL, cfg.MonoToken, b.cache, b.limiter, b.log)
	info, err := client.ClientInfo(ctx)
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("client-info failed")
		b.reply(msg.Chat.ID, "Не вдалося отримати список карток. Перевірте token: /connect")
		return
	}

	b.pendingAccounts[userID] = info.Accounts

	selected := make(map[string]bool, len(cfg.SelectedAccountIDs))
	for _, id := range cfg.SelectedAccountIDs {
		selected[id] = true
	}

	var b2 strings.Builder
	b2.WriteString("Картки для аналізу:\n\n")
	for i, acc := range info.Accounts {
		masked := "без картки"
		if len(acc.MaskedPan) > 0 {
			masked = strings.Join(acc.MaskedPan, " / ")
		}
		mark := " "
		if selected[acc.ID] {
			mark = "x"
		}
		fmt.Fprintf(&b2, "%d. [%s] %s (валюта %d)\n", i+1, mark, masked, acc.CurrencyCode)
	}
	b2.WriteString("\nВиберіть номери через кому, напр.: /select 1,3")
	b.reply(msg.Chat.ID, b2.String())
}

// parseSelectIndices parses a comma-separated "1,3" argument list into
// zero-based indices, validating each falls within [1, count].
func parseSelectIndices(text string, count int) ([]int, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "/select"))
	if rest == "" {
		return nil, fmt.Errorf("telegram: empty selection")
	}
	var out []int
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > count {
			return nil, fmt.Errorf("telegram: invalid index %q", part)
		}
		out = append(out, n-1)
	}
	return out, nil
}

func (b *Bot) cmdSelect(msg *tgbotapi.Message, text string) {
	userID := msg.From.ID
	accounts, ok := b.pendingAccounts[userID]
	if !ok || len(accounts) == 0 {
		b.reply(msg.Chat.ID, "Спочатку зробіть /accounts.")
		return
	}

	indices, err := parseSelectIndices(text, len(accounts))
	if err != nil {
		b.reply(msg.Chat.ID, "Використання: /select 1,3")
		return
	}

	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = accounts[idx].ID
	}

	if err := b.users.Save(userID, userconfig.Update{SelectedAccountIDs: &ids}); err != nil {
		b.log.Warn().Err(err).Msg("failed to save selected accounts")
		b.reply(msg.Chat.ID, "Не вдалося зберегти вибір.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Збережено %d карток. Тепер /refresh all, а потім /today /week /month.", len(ids)))
}

func (b *Bot) cmdRefresh(ctx context.Context, msg *tgbotapi.Message, log zerolog.Logger) {
	userID := msg.From.ID
	cfg, err := b.users.Load(userID)
	if err != nil || cfg == nil || cfg.MonoToken == "" {
		b.reply(msg.Chat.ID, "Спочатку підключіть Monobank: /connect YOUR_TOKEN")
		return
	}
	if len(cfg.SelectedAccountIDs) == 0 {
		b.reply(msg.Chat.ID, "Спочатку виберіть картки: /accounts")
		return
	}

	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	daysBack := weekRefreshDaysBack
	switch arg {
	case "", "week":
		daysBack = weekRefreshDaysBack
	case "today":
		daysBack = todayRefreshDaysBack
	case "month":
		daysBack = monthRefreshDaysBack
	case "all":
		daysBack = allRefreshDaysBack
	default:
		b.reply(msg.Chat.ID, "Використання: /refresh today|week|month|all")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("Запустив оновлення за ~%d днів. Напишу, коли буде готово.", daysBack))

	chatID := msg.Chat.ID
	go func() {
		client := upstream.NewClient(b.cfg.UpstreamBaseURL, cfg.MonoToken, b.cache, b.limiter, log)
		result := syncpkg.Sync(ctx, client, b.ledger, log, userID, cfg.SelectedAccountIDs, daysBack, calendar.NowUnix())

		if err := b.recomputeReports(userID, cfg.SelectedAccountIDs); err != nil {
			log.Warn().Err(err).Msg("failed to recompute reports after refresh")
			b.reply(chatID, "Оновлено, але не вдалося перерахувати звіти.")
			return
		}

		b.reply(chatID, fmt.Sprintf(
			"Оновлено.\nКарток: %d\nЗапитів до API: %d\nДодано транзакцій: %d\n\nМожете дивитись: /today /week /month",
			result.Accounts, result.FetchedRequests, result.Appended))
	}()
}

const profileWindowDays = 90

func (b *Bot) recomputeReports(userID int64, accountIDs []string) error {
	nowTS := calendar.NowUnix()
	records, err := b.ledger.LoadRange(userID, accountIDs, nowTS-profileWindowDays*86400, nowTS)
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
		if err := b.reports.Save(userID, pair.period, report.Current); err != nil {
			return err
		}
	}

	p := profile.Build(records)
	return b.profiles.Save(userID, p)
}

func (b *Bot) cmdPeriodReport(ctx context.Context, msg *tgbotapi.Message, period reportcache.Period) {
	userID := msg.From.ID
	wantAI := strings.Contains(" "+strings.ToLower(msg.Text)+" ", " ai ")

	cfg, err := b.users.Load(userID)
	if err != nil || cfg == nil || cfg.MonoToken == "" {
		b.reply(msg.Chat.ID, "Спочатку підключіть Monobank: /connect <token>")
		return
	}

	env, err := b.reports.Load(userID, period)
	if err != nil || env == nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Немає кешу для %s. Зробіть: /refresh %s", period, period))
		return
	}

	var facts analytics.Facts
	if err := json.Unmarshal(env.Facts, &facts); err != nil {
		b.reply(msg.Chat.ID, "Не вдалося прочитати кеш звіту.")
		return
	}

	var section *aiSection
	if wantAI {
		if b.ai == nil {
			b.reply(msg.Chat.ID, "OPENAI_API_KEY не задано — AI недоступний.")
		} else {
			b.reply(msg.Chat.ID, "Генерую AI інсайти…")
			prof, _ := b.profiles.Load(userID)
			aiStart := time.Now()
			rep, ok := ai.Enrich(ctx, b.ai, string(period), facts, prof)
			if b.metrics != nil {
				b.metrics.TrackAIEnrichment(ok, float64(time.Since(aiStart).Milliseconds()))
			}
			if ok {
				section = &aiSection{Summary: rep.Summary, NextStep: rep.NextStep}
			} else {
				b.log.Warn().Int64("user_id", userID).Msg("ai enrichment unavailable, falling back to facts-only report")
			}
		}
	}

	b.reply(msg.Chat.ID, Render(period, facts, section))
}

func (b *Bot) cmdAutojobs(msg *tgbotapi.Message) {
	userID := msg.From.ID
	cfg, err := b.users.Load(userID)
	if err != nil || cfg == nil {
		b.reply(msg.Chat.ID, "Спочатку підключіть Monobank: /connect <token>")
		return
	}

	action := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	switch action {
	case "on":
		enabled := true
		if err := b.users.Save(userID, userconfig.Update{AutojobsEnabled: &enabled}); err != nil {
			b.reply(msg.Chat.ID, "Не вдалося зберегти налаштування.")
			return
		}
		b.reply(msg.Chat.ID, "Автозвіти увімкнено.")
	case "off":
		enabled := false
		if err := b.users.Save(userID, userconfig.Update{AutojobsEnabled: &enabled}); err != nil {
			b.reply(msg.Chat.ID, "Не вдалося зберегти налаштування.")
			return
		}
		b.reply(msg.Chat.ID, "Автозвіти вимкнено.")
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("Автозвіти: %s", onOff(cfg.AutojobsEnabled)))
	}
}

func (b *Bot) handlePlainText(ctx context.Context, msg *tgbotapi.Message, text string) {
	userID := msg.From.ID
	cfg, err := b.users.Load(userID)
	if err != nil || cfg == nil || cfg.MonoToken == "" || len(cfg.SelectedAccountIDs) == 0 {
		b.reply(msg.Chat.ID, "Спочатку підключіть Monobank і виберіть картки: /connect, потім /accounts.")
		return
	}

	deps := nlq.Deps{
		Ledger:     b.ledger,
		Memory:     b.memory,
		UserID:     userID,
		AccountIDs: cfg.SelectedAccountIDs,
	}
	resp, err := nlq.Handle(ctx, deps, text, calendar.NowUnix())
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("nlq handling failed")
		b.reply(msg.Chat.ID, "Не вдалося обробити запит.")
		return
	}
	if resp.Intent != "" && b.metrics != nil {
		b.metrics.TrackNLQIntent(string(resp.Intent))
	}
	if resp.Clarification != nil {
		var b2 strings.Builder
		b2.WriteString(resp.Clarification.Prompt)
		for i, opt := range resp.Clarification.Options {
			fmt.Fprintf(&b2, "\n%d. %s", i+1, opt)
		}
		b.reply(msg.Chat.ID, b2.String())
		return
	}
	b.reply(msg.Chat.ID, resp.Text)
}
