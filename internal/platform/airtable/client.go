// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
	"github.com/outboundlabs/prospectus/internal/platform"
)

const breakerName = "airtable-api"

// resourceMetrics labels requests against the metrics table. The table name
// itself is user-configured and stays out of metric labels.
const resourceMetrics = "daily_metrics"

// maxErrorBodySize caps how much of an error response body is kept for
// diagnostics.
const maxErrorBodySize = 64 * 1024

// API is the client surface the sync engine consumes. Implemented by
// *Client in production and by fakes in engine tests.
type API interface {
	ListDailyMetrics(ctx context.Context, offset string) ([]Record, platform.PageInfo, error)
	Ping(ctx context.Context) error
}

// Client talks to the Airtable REST API. The retry loop lives in the resty
// layer (429 and 5xx with jittered backoff, Retry-After honored when the
// server sends one); the fixed inter-request delay lives in a before-request
// hook so it precedes every attempt, retries included. doList translates the
// final outcome into the shared error taxonomy.
//
// Safe for concurrent use; the limiter serializes the request rate.
type Client struct {
	http       *resty.Client
	baseID     string
	table      string
	pageSize   int
	maxRetries int
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

var _ API = (*Client)(nil)

// NewClient builds an Airtable client from configuration.
func NewClient(cfg *config.AirtableConfig) *Client {
	limiter := rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	maxRetries := cfg.MaxRetries

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(30 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
			if d := platform.ParseRetryAfter(r.Header().Get("Retry-After")); d > 0 {
				return d, nil
			}
			return 0, nil // zero keeps resty's jittered backoff
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			if r != nil && r.Request.Attempt > maxRetries {
				return // terminal attempt, nothing follows
			}
			reason := "transient"
			status := 0
			if r != nil {
				status = r.StatusCode()
			}
			if status == http.StatusTooManyRequests {
				reason = "rate_limit"
			}
			metrics.PlatformRetries.WithLabelValues(models.PlatformAirtable, reason).Inc()
			logging.Warn().
				Err(err).
				Str("platform", models.PlatformAirtable).
				Int("status", status).
				Msg("Request failed, retrying")
		}).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			// Fixed minimum spacing before every attempt; resty re-runs
			// request middleware on each retry.
			waitStart := time.Now()
			if err := limiter.Wait(req.Context()); err != nil {
				return err
			}
			metrics.PlatformRateLimitWaits.WithLabelValues(models.PlatformAirtable).Observe(time.Since(waitStart).Seconds())
			return nil
		})

	return &Client{
		http:       httpClient,
		baseID:     cfg.BaseID,
		table:      cfg.MetricsTable,
		pageSize:   cfg.PageSize,
		maxRetries: maxRetries,
		breaker:    platform.NewBreaker(breakerName),
	}
}

// ListDailyMetrics fetches one page of the configured metrics table. An
// empty offset starts from the first page; the returned PageInfo carries
// the next token, and the final page carries none.
func (c *Client) ListDailyMetrics(ctx context.Context, offset string) ([]Record, platform.PageInfo, error) {
	body, err := c.get(ctx, offset, c.pageSize)
	if err != nil {
		return nil, platform.PageInfo{}, err
	}

	var page listResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, platform.PageInfo{}, &platform.TransientError{
			Platform: models.PlatformAirtable,
			Endpoint: resourceMetrics,
			Attempts: 1,
			Err:      fmt.Errorf("failed to decode list response: %w", err),
		}
	}

	return page.Records, platform.PageInfo{
		NextOffset: page.Offset,
		Returned:   len(page.Records),
	}, nil
}

// Ping verifies connectivity and credential validity with a minimal request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "", 1)
	return err
}

// get runs one list request through the breaker and classifies breaker
// rejections as transient.
func (c *Client) get(ctx context.Context, offset string, pageSize int) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doList(ctx, offset, pageSize)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			return nil, &platform.TransientError{
				Platform: models.PlatformAirtable,
				Endpoint: resourceMetrics,
				Err:      err,
			}
		}
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return body, nil
}

// doList performs the list request. Resty owns the retry loop; this owns the
// final classification into the error taxonomy.
func (c *Client) doList(ctx context.Context, offset string, pageSize int) ([]byte, error) {
	start := time.Now()

	req := c.http.R().
		SetContext(ctx).
		SetPathParam("base", c.baseID).
		SetPathParam("table", c.table).
		SetQueryParam("pageSize", strconv.Itoa(pageSize))
	if offset != "" {
		req.SetQueryParam("offset", offset)
	}

	resp, err := req.Get("/{base}/{table}")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordPlatformRequest(models.PlatformAirtable, resourceMetrics, "transient_error", time.Since(start))
		return nil, &platform.TransientError{
			Platform: models.PlatformAirtable,
			Endpoint: resourceMetrics,
			Attempts: attemptCount(resp, c.maxRetries),
			Err:      err,
		}
	}

	status := resp.StatusCode()
	switch {
	case resp.IsSuccess():
		metrics.RecordPlatformRequest(models.PlatformAirtable, resourceMetrics, "ok", time.Since(start))
		return resp.Body(), nil

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		metrics.RecordPlatformRequest(models.PlatformAirtable, resourceMetrics, "auth_error", time.Since(start))
		return nil, &platform.AuthError{
			Platform:   models.PlatformAirtable,
			Endpoint:   resourceMetrics,
			StatusCode: status,
		}

	case status == http.StatusTooManyRequests:
		metrics.RecordPlatformRequest(models.PlatformAirtable, resourceMetrics, "rate_limited", time.Since(start))
		return nil, &platform.TransientError{
			Platform: models.PlatformAirtable,
			Endpoint: resourceMetrics,
			Attempts: attemptCount(resp, c.maxRetries),
			Err: &platform.RateLimitError{
				Platform:   models.PlatformAirtable,
				Endpoint:   resourceMetrics,
				RetryAfter: platform.ParseRetryAfter(resp.Header().Get("Retry-After")),
			},
		}

	default:
		metrics.RecordPlatformRequest(models.PlatformAirtable, resourceMetrics, "transient_error", time.Since(start))
		return nil, &platform.TransientError{
			Platform: models.PlatformAirtable,
			Endpoint: resourceMetrics,
			Attempts: attemptCount(resp, c.maxRetries),
			Err:      fmt.Errorf("HTTP %d: %s", status, snippet(resp.Body())),
		}
	}
}

// attemptCount reads how many attempts resty actually made; failures the
// retry condition never matched report 1, not the full retry budget.
func attemptCount(resp *resty.Response, maxRetries int) int {
	if resp != nil && resp.Request != nil && resp.Request.Attempt > 0 {
		return resp.Request.Attempt
	}
	return maxRetries + 1
}

// snippet truncates a response body for error reporting.
func snippet(body []byte) string {
	if len(body) > maxErrorBodySize {
		return string(body[:maxErrorBodySize]) + "... (truncated)"
	}
	return string(body)
}
