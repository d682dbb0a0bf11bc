package browserbase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// httpClient wraps http.Client with token-bucket rate limiting and retries
// on 429 and 5xx responses. It is safe for concurrent use.
type httpClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	apiKey     string
	onRetry    func(statusCode int)
}

func newHTTPClient(cfg Config) *httpClient {
	return &httpClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		apiKey:     cfg.APIKey,
	}
}

// do executes req, waiting on the limiter before every attempt. Requests with
// a body must set GetBody to be retried.
func (c *httpClient) do(req *http.Request) (*http.Response, error) {
	req.Header.Set(apiKeyHeader, c.apiKey)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := resetBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
		}
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.maxRetries {
				if err := sleepCtx(req.Context(), c.retryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if !retryable(resp.StatusCode) {
			return resp, nil
		}
		if c.onRetry != nil {
			c.onRetry(resp.StatusCode)
		}
		if attempt == c.maxRetries {
			// Hand the final response to the caller so it can decode the error body.
			return resp, nil
		}

		delay := retryAfter(resp, c.retryDelay)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if err := sleepCtx(req.Context(), delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500 && statusCode < 600
}

// retryAfter honours a Retry-After header in seconds or HTTP-date form.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return fallback
	}
	if seconds, err := strconv.ParseInt(v, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return fallback
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func resetBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
