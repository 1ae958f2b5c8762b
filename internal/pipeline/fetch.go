package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig defines retry behavior for snapshot fetches.
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
	Jitter            bool          `json:"jitter"`
}

// DefaultFetchRetry covers transient open-data portal failures.
var DefaultFetchRetry = RetryConfig{
	MaxAttempts:       3,
	InitialDelay:      1 * time.Second,
	MaxDelay:          30 * time.Second,
	BackoffMultiplier: 2.0,
	Jitter:            true,
}

// fetchWithRetry GETs a snapshot URL, retrying with exponential backoff on
// network errors and 5xx responses. 4xx responses are not retryable.
func fetchWithRetry(ctx context.Context, url string, cfg RetryConfig) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := http.DefaultClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %s", resp.Status)
		case resp.StatusCode >= 400:
			resp.Body.Close()
			return nil, &LoadError{Source: url, Err: fmt.Errorf("request failed: %s", resp.Status)}
		default:
			if attempt > 1 {
				fmt.Printf("🔁 Fetch succeeded on attempt %d: %s\n", attempt, url)
			}
			return resp.Body, nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		fmt.Printf("🔁 Fetch attempt %d failed (%v), retrying in %v: %s\n", attempt, lastErr, delay, url)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, &LoadError{Source: url, Err: fmt.Errorf("all %d fetch attempts failed: %w", cfg.MaxAttempts, lastErr)}
}

// backoffDelay computes the delay before the next attempt.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		delay += delay * 0.25 * rand.Float64()
	}
	return time.Duration(delay)
}
