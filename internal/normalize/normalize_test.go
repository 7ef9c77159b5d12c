package normalize

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"forseti-scan/internal/domain"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

type stubFeed struct {
	candles []*domain.Candle
	err     error
	calls   int
}

func (s *stubFeed) TokenFeed(ctx context.Context, tokenID string) ([]*domain.Candle, error) {
	s.calls++
	return s.candles, s.err
}

type stubPrice struct {
	usd float64
}

func (s *stubPrice) USD(ctx context.Context) float64 { return s.usd }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// feedOf builds a 1-minute candle series starting at the given time with
// the given closes. Volume is 1 BTC worth of sats per candle.
func feedOf(tokenID string, start time.Time, closes ...float64) []*domain.Candle {
	feed := make([]*domain.Candle, len(closes))
	open := closes[0]
	for i, cl := range closes {
		feed[i] = &domain.Candle{
			TokenID:  tokenID,
			DateTime: start.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			Open:     open,
			High:     cl,
			Low:      open,
			Close:    cl,
			Volume:   SatsPerBTC,
		}
		open = cl
	}
	return feed
}

func TestNormalize_NilRecord(t *testing.T) {
	n := New(&stubFeed{}, &stubPrice{})

	tok, feed, err := n.Normalize(context.Background(), nil, domain.RiskHigh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed != nil {
		t.Errorf("expected no feed for nil record")
	}
	if tok.ID != "unknown" || tok.Name != "Unknown" || tok.Ticker != "???" {
		t.Errorf("unexpected placeholder token: %+v", tok)
	}
	if tok.Risk != domain.RiskHigh {
		t.Errorf("placeholder risk = %s, want high", tok.Risk)
	}
}

func TestNormalize_NoIdentity(t *testing.T) {
	n := New(&stubFeed{}, &stubPrice{})

	_, _, err := n.Normalize(context.Background(), &domain.RawToken{}, domain.RiskMedium)
	if !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestNormalize_VolumeFromFeed(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	feed := feedOf("tok1", now.Add(-3*time.Minute), 100, 110, 120)

	n := New(&stubFeed{candles: feed}, &stubPrice{usd: 50_000}, WithClock(fixedClock(now)))

	tok, gotFeed, err := n.Normalize(context.Background(), &domain.RawToken{ID: "tok1"}, domain.RiskLow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotFeed) != 3 {
		t.Fatalf("expected feed passed through, got %d candles", len(gotFeed))
	}
	if tok.Volume.BTC != 3 {
		t.Errorf("volume BTC = %v, want 3", tok.Volume.BTC)
	}
	if tok.Volume.USD != 150_000 {
		t.Errorf("volume USD = %v, want 150000", tok.Volume.USD)
	}
}

func TestNormalize_FeedFailureDegrades(t *testing.T) {
	n := New(&stubFeed{err: errors.New("upstream down")}, &stubPrice{usd: 50_000})

	tok, feed, err := n.Normalize(context.Background(), &domain.RawToken{ID: "tok1"}, domain.RiskMedium)
	if err != nil {
		t.Fatalf("feed failure must not fail normalization: %v", err)
	}
	if feed != nil {
		t.Errorf("expected nil feed after fetch failure")
	}
	if tok.Volume.BTC != 0 || tok.Volume.USD != 0 {
		t.Errorf("expected zero volume, got %+v", tok.Volume)
	}
	if tok.Change24h != "-" {
		t.Errorf("change24h = %q, want -", tok.Change24h)
	}
}

func TestNormalize_Fields(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	created := now.Add(-5 * time.Hour).Format(time.RFC3339)
	verified := true

	raw := &domain.RawToken{
		ID:          "tok1",
		Name:        "Forseti",
		Ticker:      "FST",
		CreatedTime: &created,
		Marketcap:   f64(7_200_000),
		Price:       f64(123.45),
		Price5m:     f64(1.5),
		TxnCount:    i64(42),
		Verified:    &verified,
	}

	n := New(&stubFeed{}, &stubPrice{}, WithClock(fixedClock(now)))

	tok, _, err := n.Normalize(context.Background(), raw, domain.RiskLow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Address != "tok1" {
		t.Errorf("address = %q", tok.Address)
	}
	if tok.Logo != "https://images.odin.fun/token/tok1" {
		t.Errorf("logo = %q", tok.Logo)
	}
	if tok.Age != "5h" {
		t.Errorf("age = %q, want 5h", tok.Age)
	}
	if tok.MarketCap != "$7.2M" {
		t.Errorf("marketCap = %q", tok.MarketCap)
	}
	if tok.Sats != 123.45 {
		t.Errorf("sats = %v", tok.Sats)
	}
	if tok.Change5m != "1.5" {
		t.Errorf("change5m = %q", tok.Change5m)
	}
	if tok.Txns != "42" {
		t.Errorf("txns = %q", tok.Txns)
	}
	if tok.ContractStatus == nil || *tok.ContractStatus != "Verified" {
		t.Errorf("contractStatus = %v", tok.ContractStatus)
	}
	if tok.Manipulation == nil || tok.Manipulation.Title != "No significant manipulation detected" {
		t.Errorf("manipulation = %+v", tok.Manipulation)
	}
}

func TestNormalize_MissingFieldDefaults(t *testing.T) {
	n := New(&stubFeed{}, &stubPrice{})

	tok, _, err := n.Normalize(context.Background(), &domain.RawToken{ID: "tok1"}, domain.RiskMedium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Name != "Unknown" || tok.Ticker != "???" {
		t.Errorf("name/ticker defaults: %q %q", tok.Name, tok.Ticker)
	}
	if tok.Age != "Unknown" || tok.AgeValue != 0 || tok.Timestamp != 0 {
		t.Errorf("age defaults: %q %d %d", tok.Age, tok.AgeValue, tok.Timestamp)
	}
	if tok.MarketCap != "N/A" || tok.Txns != "N/A" {
		t.Errorf("marketCap/txns defaults: %q %q", tok.MarketCap, tok.Txns)
	}
	if tok.ContractStatus != nil {
		t.Errorf("contractStatus should be absent, got %v", *tok.ContractStatus)
	}
}

func TestFeedChange24h(t *testing.T) {
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("empty feed", func(t *testing.T) {
		if got := feedChange24h(nil); got != "-" {
			t.Errorf("got %q, want -", got)
		}
	})

	t.Run("zero open", func(t *testing.T) {
		feed := feedOf("t", start, 0, 100)
		if got := feedChange24h(feed); got != "-" {
			t.Errorf("got %q, want -", got)
		}
	})

	t.Run("young token carries window", func(t *testing.T) {
		// 90 one-minute bars rising 100 -> 150: +50% over 1.5h.
		closes := make([]float64, 90)
		for i := range closes {
			closes[i] = 100 + float64(i)*50/89
		}
		feed := feedOf("t", start, closes...)

		got := feedChange24h(feed)
		want := fmt.Sprintf("%.2f%% (%.1fh)", 50.0, 89.0/60.0)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("full day plain percent", func(t *testing.T) {
		closes := make([]float64, 1440)
		for i := range closes {
			closes[i] = 200
		}
		closes[1439] = 250
		feed := feedOf("t", start, closes...)

		if got := feedChange24h(feed); got != "25.00%" {
			t.Errorf("got %q, want 25.00%%", got)
		}
	})
}
