package memory

import (
	"context"
	"sort"
	"sync"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu      sync.RWMutex
	byToken map[string]map[string]*domain.Candle // token_id -> date_time -> candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		byToken: make(map[string]map[string]*domain.Candle),
	}
}

// InsertBulk adds multiple candles. Re-inserting an existing (token_id,
// date_time) pair overwrites it, mirroring ReplacingMergeTree semantics in
// the ClickHouse implementation.
func (s *CandleStore) InsertBulk(_ context.Context, candles []*domain.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range candles {
		if c == nil || c.TokenID == "" || c.DateTime == "" {
			return storage.ErrInvalidInput
		}
	}

	for _, c := range candles {
		byTime, ok := s.byToken[c.TokenID]
		if !ok {
			byTime = make(map[string]*domain.Candle)
			s.byToken[c.TokenID] = byTime
		}
		candleCopy := *c
		byTime[c.DateTime] = &candleCopy
	}
	return nil
}

// GetByTokenID retrieves all candles for a token, ordered by date_time ASC.
func (s *CandleStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTime := s.byToken[tokenID]
	result := make([]*domain.Candle, 0, len(byTime))
	for _, c := range byTime {
		candleCopy := *c
		result = append(result, &candleCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DateTime < result[j].DateTime
	})
	return result, nil
}

// GetByTimeRange retrieves candles for a token within [start, end]
// (inclusive, RFC3339 strings compare lexically).
func (s *CandleStore) GetByTimeRange(_ context.Context, tokenID string, start, end string) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.byToken[tokenID] {
		if c.DateTime >= start && c.DateTime <= end {
			candleCopy := *c
			result = append(result, &candleCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DateTime < result[j].DateTime
	})
	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
