// Package upstream is the authenticated HTTP client for the read-only
// banking API: client-info, paginated statement fetch, cache and
// rate-limiter integration, and 429/5xx retry with backoff.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/monoledger/monoledger/diskcache"
	"github.com/monoledger/monoledger/ratelimit"
)

const (
	clientInfoTTL   = 10 * time.Minute
	minCallInterval = 60 * time.Second
	pageCap         = 500
	maxAttempts     = 5
	requestTimeout  = 20 * time.Second
)

// Client is an authenticated client for one user's upstream token.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	fingerprint string
	cache       *diskcache.Cache
	limiter     *ratelimit.Limiter
	minInterval time.Duration
	log         zerolog.Logger
}

// NewClient builds a Client scoped to a single user's token.
func NewClient(baseURL, token string, cache *diskcache.Cache, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		httpClient:  &http.Client{Transport: transport, Timeout: requestTimeout},
		baseURL:     baseURL,
		token:       token,
		fingerprint: Fingerprint(token),
		cache:       cache,
		limiter:     limiter,
		minInterval: minCallInterval,
		log:         log.With().Str("subcomponent", "upstream").Logger(),
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Token", c.token)
	req.Header.Set("User-Agent", "monoledger/1.0")
}

// doWithRetry issues one GET request, retrying on transient network faults
// and 5xx/429 with exponential backoff and jitter, bounded to maxAttempts.
func (c *Client) doWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("upstream: build request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("upstream: request failed: %w", err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("upstream: read body: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		statusErr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}

		if resp.StatusCode == http.StatusTooManyRequests {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil {
					timer := time.NewTimer(time.Duration(secs) * time.Second)
					select {
					case <-ctx.Done():
						timer.Stop()
						return nil, ctx.Err()
					case <-timer.C:
					}
				}
			}
			lastErr = statusErr
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = statusErr
			continue
		}

		// 4xx other than 429: not retryable.
		return nil, statusErr
	}
	return nil, lastErr
}

func backoffDelay(attempt int) time.Duration {
	base := 500 * time.Millisecond * time.Duration(uint(1)<<uint(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

// Fingerprint returns a short stable hash of token for use in limiter and
// cache keys, so keys never leak the secret itself.
func Fingerprint(token string) string {
	return shortHash(token)
}

// ClientInfo fetches (and caches) the account list for this client's token.
func (c *Client) ClientInfo(ctx context.Context) (*ClientInfo, error) {
	cacheKey := "client_info:" + c.fingerprint
	var info ClientInfo
	if found, err := c.cache.Get(cacheKey, &info); err == nil && found {
		return &info, nil
	}

	if err := c.limiter.Throttle(ctx, "client_info:"+c.fingerprint, c.minInterval, true); err != nil {
		return nil, err
	}

	body, err := c.doWithRetry(ctx, "/personal/client-info")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("upstream: decode client-info: %w", err)
	}

	if err := c.cache.Set(cacheKey, info, clientInfoTTL); err != nil {
		c.log.Warn().Err(err).Msg("failed to cache client-info")
	}
	return &info, nil
}

// Statement fetches the full statement for account in [fromTs, toTs],
// paginating per the strict-decreasing-cur_to algorithm: start at cur_to =
// toTs, walk backward on each full page using the oldest returned timestamp
// minus one, dedup by id, stop once a short page is returned.
func (c *Client) Statement(ctx context.Context, accountID string, fromTs, toTs int64) ([]StatementItem, error) {
	cacheKey := fmt.Sprintf("statement:%s:%s:%d:%d", c.fingerprint, accountID, fromTs, toTs)
	var cached []StatementItem
	if found, err := c.cache.Get(cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	seen := map[string]bool{}
	var out []StatementItem
	curTo := toTs

	for curTo > fromTs {
		limiterKey := "statement:" + c.fingerprint + ":" + accountID
		if err := c.limiter.Throttle(ctx, limiterKey, c.minInterval, true); err != nil {
			return nil, err
		}

		page, err := c.fetchStatementPage(ctx, accountID, fromTs, curTo)
		if err != nil {
			return nil, err
		}

		for _, item := range page {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			out = append(out, item)
		}

		if len(page) < pageCap {
			break
		}

		tMin := page[0].Time
		for _, item := range page {
			if item.Time < tMin {
				tMin = item.Time
			}
		}
		newTo := curTo - 1
		if tMin-1 < newTo {
			newTo = tMin - 1
		}
		curTo = newTo
	}

	if err := c.cache.Set(cacheKey, out, 0); err != nil {
		c.log.Warn().Err(err).Msg("failed to cache statement page union")
	}
	return out, nil
}

func (c *Client) fetchStatementPage(ctx context.Context, accountID string, fromTs, toTs int64) ([]StatementItem, error) {
	path := fmt.Sprintf("/personal/statement/%s/%d/%d", accountID, fromTs, toTs)
	body, err := c.doWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}
	var items []StatementItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("upstream: decode statement page: %w", err)
	}
	return items, nil
}
