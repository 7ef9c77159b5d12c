// Package normalize maps raw upstream token records to the stable shape
// cached and served by the listing API.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"forseti-scan/internal/domain"
)

// SatsPerBTC is the sats-to-BTC scaling divisor for candle volumes.
const SatsPerBTC = 100_000_000

// ErrNoIdentity is returned for records with no usable token id. Such
// records are dropped from the result set, not retried.
var ErrNoIdentity = errors.New("raw token has no id")

// FeedFetcher fetches the candle feed for one token.
type FeedFetcher interface {
	TokenFeed(ctx context.Context, tokenID string) ([]*domain.Candle, error)
}

// PriceSource returns the current BTC/USD quote, degrading to zero rather
// than failing.
type PriceSource interface {
	USD(ctx context.Context) float64
}

// Normalizer maps one raw token to the normalized shape. Side-effect-free
// except for the feed fetch and the shared best-effort price lookup.
type Normalizer struct {
	feed  FeedFetcher
	price PriceSource
	now   func() time.Time
}

// Option configures Normalizer.
type Option func(*Normalizer)

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer.
func New(feed FeedFetcher, price PriceSource, opts ...Option) *Normalizer {
	n := &Normalizer{
		feed:  feed,
		price: price,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps a raw token and its assigned risk level to the normalized
// shape. A nil record produces the placeholder "unknown" token at high risk.
// The feed and the candles derived from it are returned alongside so the
// caller can persist them; a failed feed fetch degrades to no feed data.
func (n *Normalizer) Normalize(ctx context.Context, raw *domain.RawToken, level domain.RiskLevel) (*domain.Token, []*domain.Candle, error) {
	if raw == nil {
		return unknownToken(), nil, nil
	}
	if raw.ID == "" {
		return nil, nil, ErrNoIdentity
	}

	feed, err := n.feed.TokenFeed(ctx, raw.ID)
	if err != nil {
		feed = nil // fail soft: render without feed-derived fields
	}

	volumeBTC := feedVolumeBTC(feed)
	volumeUSD := volumeBTC * n.price.USD(ctx)

	age, ageValue, timestamp := FormatAge(raw.CreatedTime, n.now())

	name := raw.Name
	if name == "" {
		name = "Unknown"
	}
	ticker := raw.Ticker
	if ticker == "" {
		ticker = "???"
	}

	sats := 0.0
	if raw.Price != nil && !math.IsNaN(*raw.Price) {
		sats = *raw.Price
	}

	txns := "N/A"
	if raw.TxnCount != nil {
		txns = fmt.Sprintf("%d", *raw.TxnCount)
	}

	var contractStatus *string
	if raw.Verified != nil {
		s := "Unverified"
		if *raw.Verified {
			s = "Verified"
		}
		contractStatus = &s
	}

	tok := &domain.Token{
		ID:             raw.ID,
		Name:           name,
		Ticker:         ticker,
		Address:        raw.ID,
		Logo:           "https://images.odin.fun/token/" + raw.ID,
		Age:            age,
		AgeValue:       ageValue,
		Timestamp:      timestamp,
		MarketCap:      FormatMarketCap(raw.Marketcap),
		Sats:           sats,
		Change5m:       FormatChange(raw.Price5m),
		Change1h:       FormatChange(raw.Price1h),
		Change6h:       FormatChange(raw.Price6h),
		Change24h:      feedChange24h(feed),
		Volume:         domain.Volume{BTC: volumeBTC, USD: volumeUSD},
		Txns:           txns,
		Ascended:       domain.Ascended{Percent: 0, Direction: "up"},
		Risk:           level,
		ContractStatus: contractStatus,
		Manipulation:   manipulationNarrative(level),
	}
	return tok, feed, nil
}

// unknownToken is the placeholder served for a record that decodes to nil.
func unknownToken() *domain.Token {
	return &domain.Token{
		ID:        "unknown",
		Name:      "Unknown",
		Ticker:    "???",
		Address:   "unknown",
		Age:       "Unknown",
		MarketCap: "N/A",
		Change5m:  "-",
		Change1h:  "-",
		Change6h:  "-",
		Change24h: "-",
		Txns:      "N/A",
		Ascended:  domain.Ascended{Percent: 0, Direction: "up"},
		Risk:      domain.RiskHigh,
	}
}

// feedVolumeBTC sums candle volumes (sats) and scales to BTC.
func feedVolumeBTC(feed []*domain.Candle) float64 {
	var sats int64
	for _, c := range feed {
		sats += c.Volume
	}
	return float64(sats) / SatsPerBTC
}

// feedChange24h computes the 24h price change from the candle feed. Tokens
// younger than 24h get the elapsed window appended: "12.34% (3.5h)".
func feedChange24h(feed []*domain.Candle) string {
	if len(feed) == 0 {
		return "-"
	}

	first := feed[0]
	last := feed[len(feed)-1]
	if first.Open == 0 {
		return "-"
	}

	change := (last.Close - first.Open) / first.Open * 100

	if len(feed) < 1440 {
		firstAt, err1 := time.Parse(time.RFC3339, first.DateTime)
		lastAt, err2 := time.Parse(time.RFC3339, last.DateTime)
		if err1 == nil && err2 == nil {
			hours := lastAt.Sub(firstAt).Hours()
			return fmt.Sprintf("%.2f%% (%.1fh)", change, hours)
		}
	}

	return fmt.Sprintf("%.2f%%", change)
}
