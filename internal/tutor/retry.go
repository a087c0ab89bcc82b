package tutor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RetryConfig configures the retry behavior for tutoring requests.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for backend calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// statusError reports a non-2xx response from the tutoring backend.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tutoring request failed: status %d", e.code)
}

// Is makes errors.Is(err, ErrBadStatus) match any status error.
func (e *statusError) Is(target error) bool {
	return target == ErrBadStatus
}

// retryableError reports whether err is transient and should trigger a
// retry. Transport-level failures and 5xx/429 statuses are transient;
// other statuses (4xx) indicate a request the backend will keep
// rejecting.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		// Do not retry cancellations the caller asked for.
		return !errors.Is(ue.Err, context.Canceled)
	}

	return false
}

// doWithRetry executes the request builder with exponential backoff.
// Each attempt is rate limited. On success the response body is open and
// owned by the caller.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := c.attempt(build)
		if err == nil {
			c.logger.Debug("tutoring request succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}

		lastErr = err

		// Non-retryable error - fail immediately
		if !retryableError(err) {
			return nil, err
		}

		// Last attempt - don't sleep
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("tutoring request after %d retries (elapsed: %v): %w",
		c.retry.MaxRetries, time.Since(start), lastErr)
}

// attempt performs one request and checks the status. On a non-2xx
// response the body is drained and closed here.
func (c *Client) attempt(build func() (*http.Request, error)) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tutoring request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainAndClose(resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	return resp, nil
}
