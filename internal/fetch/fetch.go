package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Browser identity pool. Naive bot filters on the upstream reject requests
// with a default Go User-Agent, so every request carries a realistic one.
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// RetryPolicy controls the exponential backoff schedule. The first attempt
// fires immediately; retry n waits min(InitialDelay * Multiplier^(n-1), MaxDelay).
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Client is a retrying HTTP client for the upstream market-data APIs. It is
// process-scoped: a single keep-alive transport is shared by all calls.
type Client struct {
	httpClient  *http.Client
	retry       RetryPolicy
	authMode    config.AuthMode
	bearerToken string
	apiKey      string
	referer     string
	log         *logrus.Logger
}

// New creates a fetch client from configuration.
func New(cfg *config.Config, log *logrus.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.HTTPTimeout,
		},
		retry: RetryPolicy{
			MaxRetries:   cfg.FetchMaxRetries,
			InitialDelay: cfg.FetchInitialDelay,
			MaxDelay:     cfg.FetchMaxDelay,
			Multiplier:   cfg.FetchBackoffMultiplier,
		},
		authMode:    cfg.DataAPIAuthMode,
		bearerToken: cfg.DataAPIBearerToken,
		apiKey:      cfg.DataAPIAPIKey,
		referer:     "https://polymarket.com/",
		log:         log,
	}
}

// Do executes a request with retry and backoff. Retryable failures (HTTP 429,
// 5xx, transport errors) are retried up to MaxRetries times; the last failure
// is surfaced once the budget is exhausted. Non-retryable statuses return an
// *HTTPError on the first attempt. The endpoint name is used for metrics only.
func (c *Client) Do(ctx context.Context, endpoint, method, rawURL string, body []byte) ([]byte, error) {
	start := time.Now()
	data, err := c.do(ctx, method, rawURL, body)
	metrics.RecordUpstreamRequest(endpoint, statusLabel(err), time.Since(start))
	return data, err
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport-level failure: timeout, reset, DNS. Retryable.
			lastErr = fmt.Errorf("execute request: %w", err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			metrics.RecordRetry("transport_error")
			c.log.WithError(err).WithFields(logrus.Fields{
				"url":     rawURL,
				"attempt": attempt + 1,
			}).Warn("Upstream request failed, will retry")
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response body: %w", readErr)
			metrics.RecordRetry("transport_error")
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        rawURL,
			Body:       truncate(string(respBody), 256),
		}

		if !httpErr.Retryable() {
			// 4xx other than 429: the request is malformed, surface immediately.
			return nil, httpErr
		}

		lastErr = httpErr
		metrics.RecordRetry(retryReason(resp.StatusCode))
		c.log.WithFields(logrus.Fields{
			"url":     rawURL,
			"status":  resp.StatusCode,
			"attempt": attempt + 1,
		}).Warn("Upstream returned retryable status")
	}

	return nil, lastErr
}

// GetJSON performs a GET and decodes the JSON response into target. A body
// that is not valid JSON surfaces as a *ParseError.
func (c *Client) GetJSON(ctx context.Context, endpoint, rawURL string, target interface{}) error {
	body, err := c.Do(ctx, endpoint, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &ParseError{URL: rawURL, Err: err}
	}
	return nil
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(c.retry.InitialDelay) * math.Pow(c.retry.Multiplier, float64(attempt-1)))
	if delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}

	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", c.referer)

	switch c.authMode {
	case config.AuthModeBearer:
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	case config.AuthModeAPIKey:
		req.Header.Set("X-API-KEY", c.apiKey)
	case config.AuthModeNone:
	}
}

func statusLabel(err error) string {
	switch err.(type) {
	case nil:
		return "success"
	case *HTTPError:
		return "http_error"
	default:
		return "transport_error"
	}
}

func retryReason(statusCode int) string {
	if statusCode == 429 {
		return "rate_limited"
	}
	return "server_error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
