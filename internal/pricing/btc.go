// Package pricing provides the BTC/USD quote used to convert reported
// volumes into a fiat figure.
package pricing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"forseti-scan/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://mempool.space"
	DefaultTimeout = 5 * time.Second

	// DefaultTTL is longer than the listing cache TTL: the quote moves
	// slower than the token listing in this design's assumption.
	DefaultTTL = 5 * time.Minute
)

// Source returns the current BTC price in USD, backed by a short-TTL cache.
// On upstream failure it degrades to the last known price, or zero when no
// price was ever fetched. Zero is valid output, never a sentinel error.
type Source struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	price     float64
	fetchedAt time.Time
}

// SourceOption configures Source.
type SourceOption func(*Source)

// WithBaseURL overrides the quote API base URL.
func WithBaseURL(u string) SourceOption {
	return func(s *Source) {
		s.baseURL = u
	}
}

// WithTTL sets the quote cache TTL.
func WithTTL(d time.Duration) SourceOption {
	return func(s *Source) {
		s.ttl = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(s *Source) {
		s.client = client
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) SourceOption {
	return func(s *Source) {
		s.now = now
	}
}

// NewSource creates a new price source.
func NewSource(opts ...SourceOption) *Source {
	s := &Source{
		baseURL: DefaultBaseURL,
		client:  &http.Client{},
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quoteResponse matches the mempool.space prices payload.
type quoteResponse struct {
	USD float64 `json:"USD"`
}

// USD returns the cached BTC/USD price, refreshing it when the cache has
// expired. Never returns an error: failures degrade to the last known price.
func (s *Source) USD(ctx context.Context) float64 {
	s.mu.Lock()
	if s.price != 0 && s.now().Sub(s.fetchedAt) < s.ttl {
		p := s.price
		s.mu.Unlock()
		observability.RecordPriceLookup("cached")
		return p
	}
	s.mu.Unlock()

	price, err := s.fetch(ctx)
	if err != nil {
		observability.RecordPriceLookup("degraded")
		s.mu.Lock()
		p := s.price // last known, or zero
		s.mu.Unlock()
		return p
	}

	observability.RecordPriceLookup("refreshed")
	s.mu.Lock()
	s.price = price
	s.fetchedAt = s.now()
	s.mu.Unlock()
	return price
}

// fetch performs one quote request with a fixed timeout. No retries.
func (s *Source) fetch(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/prices", nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return 0, err
	}
	return quote.USD, nil
}
