package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Defaults for the hosted API.
const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
)

const maxResponseBytes = 16 << 20

// Client is a Source backed by the hosted HTTP API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	version      string
	apiKey       string
	databaseID   string
	pageSize     int
	limiter      *rate.Limiter
	maxRetries   int
	retryInitial time.Duration
	logger       *slog.Logger
}

var _ Source = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different API root (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithVersion sets the Notion-Version header.
func WithVersion(v string) ClientOption {
	return func(c *Client) { c.version = v }
}

// WithPageSize sets the page_size of every round trip (1..100).
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 && n <= DefaultPageSize {
			c.pageSize = n
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetry sets how many times a transient failure is retried and the first wait.
func WithRetry(maxRetries int, initial time.Duration) ClientOption {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if initial > 0 {
			c.retryInitial = initial
		}
	}
}

// WithLogger sets the logger used for request and retry events.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the given integration key and database.
func NewClient(apiKey, databaseID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		baseURL:      DefaultBaseURL,
		version:      DefaultVersion,
		apiKey:       apiKey,
		databaseID:   databaseID,
		pageSize:     DefaultPageSize,
		limiter:      rate.NewLimiter(rate.Limit(3), 1),
		maxRetries:   3,
		retryInitial: 500 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryPublished implements Source.
func (c *Client) QueryPublished(ctx context.Context, cursor string) (Page, error) {
	body := map[string]any{
		"filter": map[string]any{
			"property": "Published",
			"checkbox": map[string]any{"equals": true},
		},
		"sorts": []map[string]any{
			{"property": "PublishedAt", "direction": "descending"},
		},
		"page_size": c.pageSize,
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}
	return c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(c.databaseID)+"/query", body)
}

// ListChildren implements Source.
func (c *Client) ListChildren(ctx context.Context, blockID, cursor string) (Page, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	return c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID)+"/children?"+q.Encode(), nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (Page, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return Page{}, fmt.Errorf("notion: encode request: %w", err)
		}
	}

	attempt := func() (Page, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return Page{}, backoff.Permanent(err)
		}
		page, err := c.roundTrip(ctx, method, path, encoded)
		if err == nil {
			return page, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return Page{}, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return Page{}, backoff.Permanent(ctx.Err())
		}
		return Page{}, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInitial
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)

	return backoff.RetryNotifyWithData(attempt, policy, func(err error, wait time.Duration) {
		c.logger.Warn("notion: retrying request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	})
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) (Page, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Page{}, backoff.Permanent(fmt.Errorf("notion: build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("notion: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Page{}, fmt.Errorf("notion: read response: %w", err)
	}

	c.logger.Debug("notion: request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return Page{}, newAPIError(resp.StatusCode, data)
	}
	page, err := parsePage(data)
	if err != nil {
		return Page{}, backoff.Permanent(err)
	}
	return page, nil
}
