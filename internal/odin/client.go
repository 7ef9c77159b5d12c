// Package odin provides a read-only client for the ODIN.FUN REST API.
package odin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.odin.fun/v1"
	DefaultListTimeout = 10 * time.Second
	DefaultFeedTimeout = 5 * time.Second
	DefaultListLimit   = 1000

	// FeedResolution is the candle width in minutes.
	FeedResolution = 1
	// FeedBars is the number of candles requested (24h of 1-minute bars).
	FeedBars = 1440
)

// Client fetches token listings and candle feeds over plain HTTPS GET.
// Calls use fixed timeouts and are never retried; callers fall back to
// cached data instead.
type Client struct {
	baseURL     string
	client      *http.Client
	listTimeout time.Duration
	feedTimeout time.Duration
	listLimit   int
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithListLimit sets the maximum number of records fetched per listing call.
func WithListLimit(n int) ClientOption {
	return func(c *Client) {
		c.listLimit = n
	}
}

// WithListTimeout sets the listing request timeout.
func WithListTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.listTimeout = d
	}
}

// WithFeedTimeout sets the tv-feed request timeout.
func WithFeedTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.feedTimeout = d
	}
}

// NewClient creates a new ODIN.FUN API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		client:      &http.Client{},
		listTimeout: DefaultListTimeout,
		feedTimeout: DefaultFeedTimeout,
		listLimit:   DefaultListLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTokens fetches the newest tokens from the listing endpoint in a single
// call. The upstream is asked for created_time-descending order; no deep
// pagination is performed.
func (c *Client) ListTokens(ctx context.Context) ([]*domain.RawToken, error) {
	q := url.Values{}
	q.Set("sort", "created_time:desc")
	q.Set("modified_by", "table")
	q.Set("page", "1")
	q.Set("limit", fmt.Sprintf("%d", c.listLimit))

	body, err := c.get(ctx, "tokens", "/tokens?"+q.Encode(), c.listTimeout)
	if err != nil {
		return nil, err
	}

	return decodeListing(body)
}

// TokenFeed fetches 24h of 1-minute candles for a token. A missing or empty
// feed is returned as nil with no error.
func (c *Client) TokenFeed(ctx context.Context, tokenID string) ([]*domain.Candle, error) {
	q := url.Values{}
	q.Set("resolution", fmt.Sprintf("%d", FeedResolution))
	q.Set("last", fmt.Sprintf("%d", FeedBars))

	body, err := c.get(ctx, "tv_feed", "/token/"+url.PathEscape(tokenID)+"/tv_feed?"+q.Encode(), c.feedTimeout)
	if err != nil {
		return nil, err
	}

	var candles []*domain.Candle
	if err := json.Unmarshal(body, &candles); err != nil {
		// Unexpected feed shape is non-fatal: treat as no feed data.
		return nil, nil
	}
	for _, cd := range candles {
		cd.TokenID = tokenID
	}
	return candles, nil
}

// get performs a single GET with a per-call timeout. No retries.
func (c *Client) get(ctx context.Context, endpoint, path string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		observability.RecordUpstreamLatency(endpoint, time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	return body, nil
}
