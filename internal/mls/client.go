// Package mls talks to the upstream RESO/OData listing feed and the media
// hosts its records point at.
package mls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mls-property-api/internal/config"
	"mls-property-api/internal/errs"
	"mls-property-api/internal/metrics"
	"mls-property-api/internal/ratelimit"
)

const maxBackoff = 60 * time.Second

// Record is one listing object from the feed, keyed by upstream field name.
type Record map[string]interface{}

// Page is one page of the OData response.
type Page struct {
	Records  []Record `json:"value"`
	NextLink string   `json:"@odata.nextLink"`
}

// ClientConfig configures a feed client.
type ClientConfig struct {
	BaseURL           string
	BearerToken       string
	OriginatingSystem string
	UserAgent         string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RetryOnNetwork    bool
	RetryOn5xx        bool

	// Optional; nil disables pacing or breaking.
	Limiter *ratelimit.RateLimiter
	Breaker *CircuitBreaker
}

// ConfigFrom builds a ClientConfig with limiter and breaker from app config.
func ConfigFrom(cfg *config.Config) ClientConfig {
	return ClientConfig{
		BaseURL:           cfg.MLS.BaseURL,
		BearerToken:       cfg.MLS.BearerToken,
		OriginatingSystem: cfg.MLS.OriginatingSystem,
		UserAgent:         cfg.MLS.UserAgent,
		Timeout:           cfg.MLS.GetTimeout(),
		MaxRetries:        cfg.MLS.MaxRetries,
		RetryDelay:        cfg.MLS.GetRetryDelay(),
		RetryOnNetwork:    cfg.ErrorHandling.RetryOnNetworkError,
		RetryOn5xx:        cfg.ErrorHandling.RetryOn5xx,
		Limiter: ratelimit.NewRateLimiter(
			cfg.RateLimit.RequestsPerMinute,
			cfg.RateLimit.RequestsPerHour,
			cfg.RateLimit.RequestsPerDay,
			cfg.RateLimit.Enabled,
		),
		Breaker: NewCircuitBreaker(cfg.ErrorHandling.BreakerThreshold, cfg.ErrorHandling.GetBreakerReset()),
	}
}

// Client fetches listing pages from the feed.
type Client struct {
	cfg    ClientConfig
	client *http.Client
}

// NewClient creates a feed client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// FirstPageURL returns the query for the first page of viewable listings
// from the configured originating system, with media expanded.
func (c *Client) FirstPageURL(top int) string {
	filter := fmt.Sprintf("OriginatingSystemName eq '%s' and MlgCanView eq true", c.cfg.OriginatingSystem)
	params := []string{
		"$filter=" + odataEscape(filter),
		"$expand=Media",
	}
	if top > 0 {
		params = append(params, fmt.Sprintf("$top=%d", top))
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/Property?" + strings.Join(params, "&")
}

// odataEscape percent-encodes a query value, using %20 for spaces.
func odataEscape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// FetchPage fetches and decodes one page. A body that fails to decode is
// retried like any other transient upstream failure.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	return c.fetchWithRetry(ctx, pageURL)
}

// Stats reports limiter and breaker state for the admin endpoint.
func (c *Client) Stats() map[string]interface{} {
	stats := map[string]interface{}{}
	if c.cfg.Limiter != nil {
		stats["rate_limit"] = c.cfg.Limiter.GetStats()
	}
	if c.cfg.Breaker != nil {
		stats["circuit_breaker"] = c.cfg.Breaker.GetStatus()
	}
	return stats
}

// fetchWithRetry performs a GET and decode with exponential backoff.
func (c *Client) fetchWithRetry(ctx context.Context, pageURL string) (*Page, error) {
	if c.cfg.Breaker != nil && !c.cfg.Breaker.CanProceed() {
		status := c.cfg.Breaker.GetStatus()
		return nil, &errs.UpstreamError{
			URL: pageURL,
			Err: fmt.Errorf("circuit breaker open (%d/%d failures)", status.Failures, status.Total),
		}
	}

	var lastErr *errs.UpstreamError
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := backoffFor(attempt, c.cfg.RetryDelay)
			log.Printf("[MLS] Retry attempt %d/%d after %v: %v", attempt, c.cfg.MaxRetries, backoff, lastErr)
			if err := sleepContext(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if c.cfg.Limiter != nil {
			if err := c.cfg.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		page, err := c.fetch(ctx, pageURL)
		if err == nil {
			if c.cfg.Breaker != nil {
				c.cfg.Breaker.RecordSuccess()
			}
			return page, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if c.cfg.Breaker != nil {
			c.cfg.Breaker.RecordFailure(err.StatusCode)
		}
		if !c.shouldRetry(err) {
			break
		}
		if c.cfg.Breaker != nil && !c.cfg.Breaker.CanProceed() {
			break
		}
	}
	return nil, lastErr
}

// errMalformedPage marks a 200 response whose body is not a valid page.
var errMalformedPage = errors.New("malformed page")

func (c *Client) fetch(ctx context.Context, pageURL string) (*Page, *errs.UpstreamError) {
	resp, upErr := c.do(ctx, pageURL)
	if upErr != nil {
		return nil, upErr
	}
	defer resp.Body.Close()

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &errs.UpstreamError{URL: pageURL, Err: fmt.Errorf("%w: %v", errMalformedPage, err)}
	}
	return &page, nil
}

func (c *Client) do(ctx context.Context, pageURL string) (*http.Response, *errs.UpstreamError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &errs.UpstreamError{URL: pageURL, StatusCode: http.StatusBadRequest, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveSince(metrics.UpstreamLatency.WithLabelValues("feed"), start)
	if err != nil {
		return nil, &errs.UpstreamError{URL: pageURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &errs.UpstreamError{URL: pageURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) shouldRetry(err *errs.UpstreamError) bool {
	if !err.Retryable() {
		return false
	}
	if errors.Is(err, errMalformedPage) {
		return true
	}
	if err.StatusCode == 0 {
		return c.cfg.RetryOnNetwork
	}
	if err.StatusCode >= 500 {
		return c.cfg.RetryOn5xx
	}
	return true
}

// backoffFor returns delay * 2^(attempt-1), capped at one minute.
func backoffFor(attempt int, delay time.Duration) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * delay
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
