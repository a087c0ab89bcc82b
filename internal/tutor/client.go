// Package tutor provides the client for the tutoring service. Questions
// are posted to a subject-specific endpoint (POST /api/{subjectId}) and
// the answer arrives as a chunked plain-text body that is consumed
// incrementally, chunk by chunk, in strict arrival order.
//
// The client wraps every request in a resilience layer: proactive rate
// limiting, exponential-backoff retry for transient failures, and a
// circuit breaker so a dead backend fails fast.
package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/lewa0/lewa/internal/log"
	"github.com/lewa0/lewa/internal/session"
)

// chunkBufferSize is the read buffer for the response stream. Small
// enough to keep the typewriter effect responsive, large enough to avoid
// syscall churn.
const chunkBufferSize = 4096

// ErrBadStatus indicates the tutoring service returned a non-2xx status.
var ErrBadStatus = errors.New("tutoring request failed")

// Stream is a finite, non-restartable sequence of response text chunks in
// strict arrival order. Iteration stops at end-of-stream; a non-nil error
// is yielded exactly once as the final element if the stream breaks
// mid-read. The underlying connection is released when iteration ends.
type Stream = iter.Seq2[string, error]

type askRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
}

// Config holds the tutoring client configuration.
type Config struct {
	BaseURL string // Backend base URL, no trailing slash (required)

	// Resilience configuration (zero values use defaults)
	Retry          RetryConfig
	CircuitBreaker CircuitBreakerConfig
	RateLimiter    *rate.Limiter // nil = default 10 req/s, burst 30
}

// Client calls the tutoring service over HTTP.
//
// The HTTP client carries no overall timeout: response bodies stream for
// as long as the tutor keeps generating. Callers bound a whole exchange
// with a context deadline instead.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	breaker    *CircuitBreaker
	limiter    *rate.Limiter
	logger     log.Logger
}

// New creates a tutoring client.
func New(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}
	cbCfg := cfg.CircuitBreaker
	if cbCfg.FailureThreshold == 0 {
		cbCfg = DefaultCircuitBreakerConfig()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{},
		retry:      retryCfg,
		breaker:    NewCircuitBreaker(cbCfg),
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Ask posts a question to the subject endpoint and returns the chunk
// stream of the reply. The request phase (connect, status check, retry)
// completes before Ask returns; only body reads remain for the stream.
//
// The returned stream must be fully drained (or its loop broken) by the
// caller; either way the response body is closed.
func (c *Client) Ask(ctx context.Context, subjectID, question string, mode session.Mode) (Stream, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.Warn("circuit breaker is open, rejecting request",
			"state", c.breaker.State().String())
		return nil, fmt.Errorf("tutoring service unavailable: %w", err)
	}

	payload, err := json.Marshal(askRequest{Question: question, Mode: string(mode)})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.baseURL + "/api/" + subjectID
	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := c.doWithRetry(ctx, build)
	if err != nil {
		c.breaker.Failure()
		return nil, err
	}

	c.breaker.Success()
	return chunkStream(resp.Body), nil
}

// chunkStream adapts a response body into a Stream. Chunks are yielded
// exactly as read - no reordering, coalescing, or buffering beyond the
// read buffer itself.
func chunkStream(body io.ReadCloser) Stream {
	return func(yield func(string, error) bool) {
		defer func() { _ = body.Close() }()

		buf := make([]byte, chunkBufferSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				if !yield(string(buf[:n]), nil) {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					yield("", fmt.Errorf("reading stream: %w", err))
				}
				return
			}
		}
	}
}

// Health probes the backend service health endpoint (GET /health).
func (c *Client) Health(ctx context.Context) error {
	return c.probe(ctx, c.baseURL+"/health")
}

// SubjectHealth probes a subject endpoint's health check
// (GET /api/{subjectId}/health).
func (c *Client) SubjectHealth(ctx context.Context, subjectID string) error {
	return c.probe(ctx, c.baseURL+"/api/"+subjectID+"/health")
}

func (c *Client) probe(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// drainAndClose empties and closes a response body so the underlying
// connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
