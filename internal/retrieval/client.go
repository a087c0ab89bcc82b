// Package retrieval provides the client for the retrieval service, which
// returns ranked snippets for a query. Two endpoints share one wire
// contract: /api/research (web search) and /api/messenger (GCE board
// announcements).
//
// Retrieval is a best-effort collaborator: callers treat any error as a
// signal to proceed without augmentation, never as a fatal condition.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lewa0/lewa/internal/log"
)

// maxResponseSize bounds the retrieval response body (1MB).
const maxResponseSize = 1 << 20

// ErrBadStatus indicates the retrieval service returned a non-2xx status.
var ErrBadStatus = errors.New("retrieval request failed")

// Result is a single ranked snippet. Date is only populated by the
// messenger endpoint.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

type searchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Config holds the retrieval client configuration.
type Config struct {
	BaseURL     string        // Backend base URL, no trailing slash (required)
	ResultCount int           // Results per query (default: 3)
	Timeout     time.Duration // Per-request timeout (default: 10s)
	CacheTTL    time.Duration // Snippet cache TTL; 0 disables caching
}

// Client calls the retrieval service over HTTP.
//
// Identical queries within the cache TTL are served from an in-memory
// cache, so toggling between tools or re-asking a question does not
// re-issue the search.
type Client struct {
	baseURL     string
	resultCount int
	httpClient  *http.Client
	cache       *gocache.Cache // nil = caching disabled
	logger      log.Logger
}

// New creates a retrieval client.
func New(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	resultCount := cfg.ResultCount
	if resultCount <= 0 {
		resultCount = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var c *gocache.Cache
	if cfg.CacheTTL > 0 {
		c = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		resultCount: resultCount,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       c,
		logger:      logger,
	}, nil
}

// Search queries the web research endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	return c.post(ctx, "/api/research", query)
}

// Announcements queries the GCE announcements endpoint.
func (c *Client) Announcements(ctx context.Context, query string) ([]Result, error) {
	return c.post(ctx, "/api/messenger", query)
}

func (c *Client) post(ctx context.Context, path, query string) ([]Result, error) {
	cacheKey := path + "\x00" + query
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			c.logger.Debug("retrieval cache hit", "path", path)
			return cached.([]Result), nil
		}
	}

	body, err := json.Marshal(searchRequest{Query: query, NumResults: c.resultCount})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, parsed.Results, gocache.DefaultExpiration)
	}

	c.logger.Debug("retrieval succeeded", "path", path, "results", len(parsed.Results))
	return parsed.Results, nil
}
