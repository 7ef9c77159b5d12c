package memory

import (
	"context"
	"sort"
	"sync"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.RiskSnapshot // keyed by snapshot_id
	byToken map[string][]*domain.RiskSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		byID:    make(map[string]*domain.RiskSnapshot),
		byToken: make(map[string][]*domain.RiskSnapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.RiskSnapshot) error {
	if snap == nil || snap.SnapshotID == "" || snap.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(snap)
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.RiskSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.SnapshotID == "" || snap.TokenID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[snap.SnapshotID]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.byID[snap.SnapshotID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[snap.SnapshotID] = struct{}{}
	}

	for _, snap := range snapshots {
		if err := s.insertLocked(snap); err != nil {
			return err
		}
	}
	return nil
}

func (s *SnapshotStore) insertLocked(snap *domain.RiskSnapshot) error {
	if _, exists := s.byID[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	snapCopy := *snap
	s.byID[snap.SnapshotID] = &snapCopy
	s.byToken[snap.TokenID] = append(s.byToken[snap.TokenID], &snapCopy)
	return nil
}

// GetByTokenID retrieves all snapshots for a token, ordered by captured_at DESC.
func (s *SnapshotStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.RiskSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.byToken[tokenID]
	result := make([]*domain.RiskSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt > result[j].CapturedAt
	})
	return result, nil
}

// GetByTimeRange retrieves snapshots for a token within [start, end] (inclusive, ms).
func (s *SnapshotStore) GetByTimeRange(_ context.Context, tokenID string, start, end int64) ([]*domain.RiskSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskSnapshot
	for _, snap := range s.byToken[tokenID] {
		if snap.CapturedAt >= start && snap.CapturedAt <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt > result[j].CapturedAt
	})
	return result, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
