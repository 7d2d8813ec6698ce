// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package phoneburner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
	"github.com/outboundlabs/prospectus/internal/platform"
)

const breakerName = "phoneburner-api"

// maxErrorBodySize caps how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 64 * 1024

// API is the client surface the sync engine consumes. Implemented by
// *Client in production and by fakes in engine tests.
type API interface {
	ListContacts(ctx context.Context, page int) ([]Contact, platform.PageInfo, error)
	ListDialSessions(ctx context.Context, page int, since time.Time) ([]DialSession, platform.PageInfo, error)
	GetSessionCalls(ctx context.Context, sessionID string) ([]Call, error)
	ListMemberStats(ctx context.Context, page int) ([]MemberStat, platform.PageInfo, error)
	Ping(ctx context.Context) error
}

// Client talks to the PhoneBurner REST API.
//
// Request discipline, in order:
//
//  1. A fixed minimum delay precedes every attempt, retries included, via a
//     rate.Limiter with burst 1. The platform's limit is per-key, so the
//     limiter lives on the client, not the request.
//  2. HTTP 401/403 returns *platform.AuthError immediately. Zero retries: a
//     rejected key does not heal by waiting.
//  3. HTTP 429 retries with increasing backoff (base doubling per attempt),
//     honoring Retry-After when parseable, bounded by MaxRetries.
//  4. Network errors and other non-2xx retry with bounded linear backoff,
//     then surface as *platform.TransientError wrapping the last failure.
//
// Every request function runs inside a circuit breaker so a dead platform
// rejects fast instead of eating the sync budget one timeout at a time.
//
// Safe for concurrent use; the limiter serializes the request rate.
type Client struct {
	baseURL        string
	apiKey         string
	pageSize       int
	httpClient     *http.Client
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker[[]byte]
	maxRetries     int
	retryBaseDelay time.Duration
}

var _ API = (*Client)(nil)

// NewClient builds a PhoneBurner client from configuration.
func NewClient(cfg *config.PhoneBurnerConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		pageSize: cfg.PageSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		breaker:        platform.NewBreaker(breakerName),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// ListContacts fetches one page of contacts.
func (c *Client) ListContacts(ctx context.Context, page int) ([]Contact, platform.PageInfo, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))

	body, err := c.get(ctx, "contacts", params)
	if err != nil {
		return nil, platform.PageInfo{}, err
	}

	col, info := resolveList[Contact](body, "contacts", page, c.pageSize)
	c.recordSkips("contacts", col.Skipped)
	return col.Items, info, nil
}

// ListDialSessions fetches one page of dial sessions. A non-zero since
// bounds the window with date_start, which keeps recurring syncs from
// re-walking years of history.
func (c *Client) ListDialSessions(ctx context.Context, page int, since time.Time) ([]DialSession, platform.PageInfo, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))
	if !since.IsZero() {
		params.Set("date_start", since.UTC().Format("2006-01-02"))
	}

	body, err := c.get(ctx, "dialsession", params)
	if err != nil {
		return nil, platform.PageInfo{}, err
	}

	col, info := resolveList[DialSession](body, "dialsessions", page, c.pageSize)
	c.recordSkips("dialsessions", col.Skipped)
	return col.Items, info, nil
}

// GetSessionCalls fetches the call sub-collection of one dial session. The
// detail payload nests calls under the session object; flat variants are
// tolerated.
func (c *Client) GetSessionCalls(ctx context.Context, sessionID string) ([]Call, error) {
	body, err := c.get(ctx, "dialsession/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}

	if unwrapped := unwrapObject(body, "dialsession"); unwrapped != nil {
		body = unwrapped
	}
	col, _ := resolveList[Call](body, "calls", 0, 0)
	c.recordSkips("calls", col.Skipped)
	return col.Items, nil
}

// ListMemberStats fetches one page of per-member daily aggregates.
func (c *Client) ListMemberStats(ctx context.Context, page int) ([]MemberStat, platform.PageInfo, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))

	body, err := c.get(ctx, "members/stats", params)
	if err != nil {
		return nil, platform.PageInfo{}, err
	}

	col, info := resolveList[MemberStat](body, "stats", page, c.pageSize)
	c.recordSkips("member_stats", col.Skipped)
	return col.Items, info, nil
}

// Ping verifies connectivity and credential validity with a minimal request.
func (c *Client) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("page", "1")
	params.Set("page_size", "1")
	_, err := c.get(ctx, "members", params)
	return err
}

// get runs one request function through the breaker and classifies breaker
// rejections as transient.
func (c *Client) get(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doWithRetry(ctx, resource, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			return nil, &platform.TransientError{
				Platform: models.PlatformPhoneBurner,
				Endpoint: resource,
				Err:      err,
			}
		}
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return body, nil
}

// doWithRetry is the request loop: fixed delay, attempt, classify, back off
// or bail per the taxonomy.
func (c *Client) doWithRetry(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "/" + resource
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Fixed minimum spacing before every attempt, not just the first.
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		metrics.PlatformRateLimitWaits.WithLabelValues(models.PlatformPhoneBurner).Observe(time.Since(waitStart).Seconds())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if retryErr := c.retryTransient(ctx, resource, attempt, lastErr); retryErr != nil {
				return nil, retryErr
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("failed to read response body: %w", readErr)
				if retryErr := c.retryTransient(ctx, resource, attempt, lastErr); retryErr != nil {
					return nil, retryErr
				}
				continue
			}
			metrics.RecordPlatformRequest(models.PlatformPhoneBurner, resource, "ok", time.Since(start))
			return body, nil
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			_ = resp.Body.Close()
			metrics.RecordPlatformRequest(models.PlatformPhoneBurner, resource, "auth_error", time.Since(start))
			return nil, &platform.AuthError{
				Platform:   models.PlatformPhoneBurner,
				Endpoint:   resource,
				StatusCode: resp.StatusCode,
			}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := platform.ParseRetryAfter(resp.Header.Get("Retry-After"))
			_ = resp.Body.Close()
			lastErr = &platform.RateLimitError{
				Platform:   models.PlatformPhoneBurner,
				Endpoint:   resource,
				RetryAfter: retryAfter,
			}
			if attempt == c.maxRetries {
				break
			}
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
			if retryAfter > 0 {
				delay = retryAfter
			}
			metrics.PlatformRetries.WithLabelValues(models.PlatformPhoneBurner, "rate_limit").Inc()
			logging.Warn().
				Str("platform", models.PlatformPhoneBurner).
				Str("endpoint", resource).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("Rate limited, backing off")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		errBody := readBodyForError(resp.Body)
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(errBody))
		if retryErr := c.retryTransient(ctx, resource, attempt, lastErr); retryErr != nil {
			return nil, retryErr
		}
	}

	status := "transient_error"
	if platform.IsRateLimit(lastErr) {
		status = "rate_limited"
	}
	metrics.RecordPlatformRequest(models.PlatformPhoneBurner, resource, status, time.Since(start))
	return nil, &platform.TransientError{
		Platform: models.PlatformPhoneBurner,
		Endpoint: resource,
		Attempts: c.maxRetries + 1,
		Err:      lastErr,
	}
}

// retryTransient waits out the linear backoff before the next attempt. On
// the last attempt it returns nil without waiting so the loop can fall
// through to the final TransientError; a non-nil return means the wait was
// cancelled.
func (c *Client) retryTransient(ctx context.Context, resource string, attempt int, cause error) error {
	if attempt == c.maxRetries {
		return nil // loop exits on its own
	}
	metrics.PlatformRetries.WithLabelValues(models.PlatformPhoneBurner, "transient").Inc()
	logging.Warn().
		Err(cause).
		Str("platform", models.PlatformPhoneBurner).
		Str("endpoint", resource).
		Int("attempt", attempt+1).
		Int("max_attempts", c.maxRetries+1).
		Msg("Request failed, retrying")
	return sleepCtx(ctx, c.retryBaseDelay*time.Duration(attempt+1))
}

// sleepCtx is a cancellable wait.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readBodyForError reads at most maxErrorBodySize of a response body for
// error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// unwrapObject returns the raw value under key when the body is an object
// holding an object there, else nil.
func unwrapObject(body []byte, key string) []byte {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil
	}
	raw, ok := top[key]
	if !ok {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	return raw
}

// recordSkips counts records dropped by shape normalization.
func (c *Client) recordSkips(resource string, skipped int) {
	if skipped == 0 {
		return
	}
	metrics.SyncRecordsSkipped.WithLabelValues(models.PlatformPhoneBurner, resource).Add(float64(skipped))
	logging.Warn().
		Str("platform", models.PlatformPhoneBurner).
		Str("resource", resource).
		Int("skipped", skipped).
		Msg("Dropped records with unrecognized shape")
}
