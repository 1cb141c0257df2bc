// Package sync is the ingestion pipeline: orchestrates the upstream client
// and ledger store into a watermarked, windowed, concurrent per-account
// ingestion run. Grounded in monobank/sync.py's iter_statement_windows and
// sync_accounts_ledger — the 31-day-plus-1-hour window walk and 1-hour
// overlap are carried over exactly.
package sync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/monoledger/monoledger/ledger"
	"github.com/monoledger/monoledger/upstream"
)

// maxRangeSeconds is the upstream's statement window cap: 31 days + 1 hour.
const maxRangeSeconds = 31*24*3600 + 3600

const overlapSeconds = 3600

// window is a half-open [From, To) unix-second statement request span.
type window struct {
	from, to int64
}

// iterStatementWindows splits [startTs, endTs) into windows no longer than
// maxRangeSeconds, strictly increasing, terminating in a bounded number of
// steps.
func iterStatementWindows(startTs, endTs int64) []window {
	if endTs <= startTs {
		return nil
	}
	var out []window
	cur := startTs
	for cur < endTs {
		next := endTs
		if cur+maxRangeSeconds < next {
			next = cur + maxRangeSeconds
		}
		out = append(out, window{from: cur, to: next})
		cur = next
	}
	return out
}

// AccountResult is one account's contribution to a sync Result.
type AccountResult struct {
	AccountID        string
	FetchedRequests  int
	Appended         int
	Err              error
}

// Result is the sync pipeline's outcome across all requested accounts.
type Result struct {
	Accounts        int
	FetchedRequests int
	Appended        int
	PerAccount      []AccountResult
}

// Sync runs catch-up ingestion for each of accountIDs concurrently: for
// each account, resume from watermark-1h (or now-daysBack if never synced),
// walk forward to now in bounded windows, fetch+append through store.
// Failures on one account do not abort the others; they are reported in
// PerAccount and logged.
func Sync(ctx context.Context, client *upstream.Client, store *ledger.Store, log zerolog.Logger, userID int64, accountIDs []string, daysBack int, nowTs int64) Result {
	results := make([]AccountResult, len(accountIDs))

	var wg sync.WaitGroup
	for i, accountID := range accountIDs {
		wg.Add(1)
		go func(i int, accountID string) {
			defer wg.Done()
			results[i] = syncAccount(ctx, client, store, log, userID, accountID, daysBack, nowTs)
		}(i, accountID)
	}
	wg.Wait()

	out := Result{Accounts: len(accountIDs), PerAccount: results}
	for _, r := range results {
		out.FetchedRequests += r.FetchedRequests
		out.Appended += r.Appended
		if r.Err != nil {
			log.Error().Err(r.Err).Int64("user_id", userID).Str("account_id", r.AccountID).Msg("account sync failed")
		}
	}
	return out
}

func syncAccount(ctx context.Context, client *upstream.Client, store *ledger.Store, log zerolog.Logger, userID int64, accountID string, daysBack int, nowTs int64) AccountResult {
	res := AccountResult{AccountID: accountID}

	var start int64
	if last, ok, err := store.LastTS(userID, accountID); err == nil && ok {
		start = last - overlapSeconds
		if start < 0 {
			start = 0
		}
	} else {
		start = nowTs - int64(daysBack)*86400
	}

	for _, w := range iterStatementWindows(start, nowTs) {
		items, err := client.Statement(ctx, accountID, w.from, w.to)
		res.FetchedRequests++
		if err != nil {
			res.Err = err
			return res
		}

		rows := make([]ledger.Record, len(items))
		for i, it := range items {
			rows[i] = ledger.Record{
				ID:           it.ID,
				Time:         it.Time,
				AccountID:    accountID,
				Amount:       it.Amount,
				Description:  it.Description,
				MCC:          it.MCC,
				CurrencyCode: it.CurrencyCode,
			}
		}

		appended, err := store.AppendMany(userID, accountID, rows)
		if err != nil {
			res.Err = err
			return res
		}
		res.Appended += appended
	}

	return res
}
