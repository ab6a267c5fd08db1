package mls

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"mls-property-api/internal/config"
	"mls-property-api/internal/errs"
	"mls-property-api/internal/metrics"
)

// Media is a downloaded photo.
type Media struct {
	Data        []byte
	ContentType string
}

// MediaFetcherConfig configures photo downloads.
type MediaFetcherConfig struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	MaxBytes   int64
	UserAgent  string
}

// MediaFetcher downloads listing photos from the media host.
type MediaFetcher struct {
	cfg    MediaFetcherConfig
	client *http.Client
}

// NewMediaFetcher creates a fetcher. Timeout bounds each attempt.
func NewMediaFetcher(cfg MediaFetcherConfig) *MediaFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 25 << 20
	}
	return &MediaFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// MediaFetcherConfigFrom builds the processor fetcher settings.
func MediaFetcherConfigFrom(cfg *config.Config) MediaFetcherConfig {
	return MediaFetcherConfig{
		Timeout:    cfg.Images.GetFetchTimeout(),
		Retries:    cfg.Images.FetchRetries,
		RetryDelay: cfg.Images.GetFetchRetryDelay(),
		MaxBytes:   cfg.Images.MaxSourceBytes,
		UserAgent:  cfg.MLS.UserAgent,
	}
}

// Fetch downloads a photo, retrying network errors, 5xx and 429 with
// exponential backoff.
func (f *MediaFetcher) Fetch(ctx context.Context, sourceURL string) (*Media, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := backoffFor(attempt, f.cfg.RetryDelay)
			log.Printf("[Media] Retry %d/%d for %s after %v: %v", attempt, f.cfg.Retries, sourceURL, backoff, lastErr)
			if err := sleepContext(ctx, backoff); err != nil {
				return nil, err
			}
		}

		media, err := f.Open(ctx, sourceURL)
		if err == nil {
			return media, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if upstream, ok := err.(*errs.UpstreamError); ok && !upstream.Retryable() {
			break
		}
	}
	return nil, lastErr
}

// Open makes a single download attempt.
func (f *MediaFetcher) Open(ctx context.Context, sourceURL string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, &errs.UpstreamError{URL: sourceURL, StatusCode: http.StatusBadRequest, Err: err}
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ObserveSince(metrics.UpstreamLatency.WithLabelValues("media"), start)
		return nil, &errs.UpstreamError{URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveSince(metrics.UpstreamLatency.WithLabelValues("media"), start)
		return nil, &errs.UpstreamError{URL: sourceURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	metrics.ObserveSince(metrics.UpstreamLatency.WithLabelValues("media"), start)
	if err != nil {
		return nil, &errs.UpstreamError{URL: sourceURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, &errs.UpstreamError{
			URL:        sourceURL,
			StatusCode: http.StatusRequestEntityTooLarge,
			Err:        fmt.Errorf("body exceeds %d bytes", f.cfg.MaxBytes),
		}
	}
	if len(data) == 0 {
		return nil, &errs.UpstreamError{URL: sourceURL, StatusCode: http.StatusNoContent, Err: fmt.Errorf("empty body")}
	}

	return &Media{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}
