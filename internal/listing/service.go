// Package listing implements the token listing ingestion and cache proxy.
package listing

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/idhash"
	"forseti-scan/internal/observability"
	"forseti-scan/internal/risk"
	"forseti-scan/internal/storage"
)

// Default configuration values.
const (
	DefaultTTL       = 2 * time.Minute
	DefaultBatchSize = 5
	DefaultPageLimit = 50

	// persistTimeout bounds the best-effort persistence pass that runs
	// after a refresh, detached from the request context.
	persistTimeout = 30 * time.Second
)

// Upstream fetches the raw token listing.
type Upstream interface {
	ListTokens(ctx context.Context) ([]*domain.RawToken, error)
}

// Normalizer maps one raw token to the normalized shape.
type Normalizer interface {
	Normalize(ctx context.Context, raw *domain.RawToken, level domain.RiskLevel) (*domain.Token, []*domain.Candle, error)
}

// RefreshEvent describes one completed cache refresh.
type RefreshEvent struct {
	Total int       `json:"total"`
	At    time.Time `json:"at"`
}

// Page is one paginated slice of the cached listing.
type Page struct {
	Tokens []*domain.Token `json:"tokens"`
	Total  int             `json:"total"`
}

// Status reports cache state for the /status endpoint.
type Status struct {
	CacheTokens   int       `json:"cache_tokens"`
	CacheAge      string    `json:"cache_age,omitempty"`
	Refreshes     int       `json:"refreshes"`
	LastRefresh   time.Time `json:"last_refresh,omitempty"`
	RefreshErrors int       `json:"refresh_errors"`
}

// slot is the single process-wide cache entry. It is replaced wholesale on
// refresh; readers never observe a partially updated listing.
type slot struct {
	tokens    []*domain.Token
	fetchedAt time.Time
}

// Options configures Service.
type Options struct {
	Upstream   Upstream
	Normalizer Normalizer

	// Snapshots and Candles are optional; when set, each successful
	// refresh persists risk snapshots and candle feeds best-effort.
	Snapshots storage.SnapshotStore
	Candles   storage.CandleStore

	// OnRefresh, when set, is invoked after each successful refresh.
	OnRefresh func(RefreshEvent)

	TTL       time.Duration
	BatchSize int
	Logger    *log.Logger
	Clock     func() time.Time
}

// Service serves paginated token listings from a single-slot TTL cache.
// Cache population is lazy: the first request after expiry pays for the
// refresh, with concurrent callers sharing one in-flight fill.
type Service struct {
	upstream   Upstream
	normalizer Normalizer
	snapshots  storage.SnapshotStore
	candles    storage.CandleStore
	onRefresh  func(RefreshEvent)

	ttl       time.Duration
	batchSize int
	logger    *log.Logger
	now       func() time.Time

	mu            sync.Mutex
	slot          *slot
	inflight      chan struct{}
	refreshes     int
	refreshErrors int
	lastRefresh   time.Time

	wg sync.WaitGroup // outstanding persist passes
}

// NewService creates a listing service.
func NewService(opts Options) *Service {
	s := &Service{
		upstream:   opts.Upstream,
		normalizer: opts.Normalizer,
		snapshots:  opts.Snapshots,
		candles:    opts.Candles,
		onRefresh:  opts.OnRefresh,
		ttl:        opts.TTL,
		batchSize:  opts.BatchSize,
		logger:     opts.Logger,
		now:        opts.Clock,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "[listing] ", log.LstdFlags)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetTokens returns one page of the cached listing, refreshing the cache
// slot first when it is missing or expired. Page numbering is 1-based;
// out-of-range values fall back to defaults.
func (s *Service) GetTokens(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}

	for {
		s.mu.Lock()
		if s.slot != nil && s.now().Sub(s.slot.fetchedAt) < s.ttl {
			p := s.pageLocked(page, limit)
			s.mu.Unlock()
			observability.RecordCacheHit()
			return p, nil
		}

		// Another caller is already filling the slot: wait and re-check.
		if s.inflight != nil {
			ch := s.inflight
			s.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		ch := make(chan struct{})
		s.inflight = ch
		s.mu.Unlock()

		observability.RecordCacheMiss()
		err := s.refresh(ctx)

		s.mu.Lock()
		s.inflight = nil
		close(ch)

		if err != nil {
			// Unified degrade policy: serve the expired slot if one
			// exists; only a cold start surfaces the error.
			if s.slot != nil {
				p := s.pageLocked(page, limit)
				s.mu.Unlock()
				observability.RecordStaleServed()
				s.logger.Printf("refresh failed, serving stale listing: %v", err)
				return p, nil
			}
			s.mu.Unlock()
			return nil, err
		}

		p := s.pageLocked(page, limit)
		s.mu.Unlock()
		return p, nil
	}
}

// pageLocked slices the current slot. Caller holds s.mu; slot is non-nil.
func (s *Service) pageLocked(page, limit int) *Page {
	tokens := s.slot.tokens
	start := (page - 1) * limit
	if start > len(tokens) {
		start = len(tokens)
	}
	end := start + limit
	if end > len(tokens) {
		end = len(tokens)
	}
	return &Page{Tokens: tokens[start:end], Total: len(tokens)}
}

// refresh fetches the listing, normalizes it in bounded-concurrency batches
// and swaps the cache slot. Failed tokens are dropped, not retried.
func (s *Service) refresh(ctx context.Context) error {
	start := s.now()

	raws, err := s.upstream.ListTokens(ctx)
	if err != nil {
		s.mu.Lock()
		s.refreshErrors++
		s.mu.Unlock()
		observability.RecordRefresh("error", time.Since(start).Seconds())
		return err
	}

	capturedAt := s.now().UnixMilli()
	var (
		tokens    []*domain.Token
		snapshots []*domain.RiskSnapshot
		candles   []*domain.Candle
	)

	// Batch-at-a-time concurrency: each batch runs in parallel, batches
	// run sequentially, so at most batchSize feed fetches are in flight.
	for base := 0; base < len(raws); base += s.batchSize {
		batch := raws[base:min(base+s.batchSize, len(raws))]

		type result struct {
			token *domain.Token
			feed  []*domain.Candle
			err   error
		}
		results := make([]result, len(batch))

		var wg sync.WaitGroup
		for i, raw := range batch {
			wg.Add(1)
			go func(i int, raw *domain.RawToken) {
				defer wg.Done()
				level := risk.Assign(raw)
				tok, feed, err := s.normalizer.Normalize(ctx, raw, level)
				results[i] = result{token: tok, feed: feed, err: err}
			}(i, raw)
		}
		wg.Wait()

		for i, res := range results {
			if res.err != nil {
				observability.RecordDropped()
				s.logger.Printf("dropping token during normalization: %v", res.err)
				continue
			}
			observability.RecordNormalized()
			tokens = append(tokens, res.token)
			candles = append(candles, res.feed...)

			if raw := batch[i]; raw != nil && raw.ID != "" {
				snapshots = append(snapshots, &domain.RiskSnapshot{
					SnapshotID:  idhash.ComputeSnapshotID(raw.ID, capturedAt),
					TokenID:     raw.ID,
					Risk:        res.token.Risk,
					HolderCount: raw.HolderCount,
					TxnCount:    raw.TxnCount,
					Marketcap:   raw.Marketcap,
					VolumeBTC:   res.token.Volume.BTC,
					VolumeUSD:   res.token.Volume.USD,
					CapturedAt:  capturedAt,
				})
			}
		}
	}

	// Newest first.
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Timestamp > tokens[j].Timestamp
	})

	fetchedAt := s.now()
	s.mu.Lock()
	s.slot = &slot{tokens: tokens, fetchedAt: fetchedAt}
	s.refreshes++
	s.lastRefresh = fetchedAt
	s.mu.Unlock()

	observability.RecordRefresh("success", time.Since(start).Seconds())
	observability.UpdateCacheSlot(len(tokens), 0)

	if s.snapshots != nil || s.candles != nil {
		s.wg.Add(1)
		go s.persist(snapshots, candles)
	}
	if s.onRefresh != nil {
		s.onRefresh(RefreshEvent{Total: len(tokens), At: fetchedAt})
	}
	return nil
}

// persist stores snapshots and candles best-effort, detached from the
// triggering request. Failures are logged, never surfaced to callers.
func (s *Service) persist(snapshots []*domain.RiskSnapshot, candles []*domain.Candle) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if s.snapshots != nil && len(snapshots) > 0 {
		if err := s.snapshots.InsertBulk(ctx, snapshots); err != nil {
			observability.RecordPersistError("snapshots")
			s.logger.Printf("persist snapshots: %v", err)
		} else {
			observability.RecordSnapshotsPersisted(len(snapshots))
		}
	}

	if s.candles != nil && len(candles) > 0 {
		if err := s.candles.InsertBulk(ctx, candles); err != nil {
			observability.RecordPersistError("candles")
			s.logger.Printf("persist candles: %v", err)
		} else {
			observability.RecordCandlesPersisted(len(candles))
		}
	}
}

// Status reports current cache state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Refreshes:     s.refreshes,
		RefreshErrors: s.refreshErrors,
		LastRefresh:   s.lastRefresh,
	}
	if s.slot != nil {
		st.CacheTokens = len(s.slot.tokens)
		st.CacheAge = s.now().Sub(s.slot.fetchedAt).String()
	}
	return st
}

// Wait blocks until outstanding persist passes finish. Used on shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}
