package storage

import (
	"context"

	"forseti-scan/internal/domain"
)

// SnapshotStore provides access to risk_snapshots storage.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.RiskSnapshot) error

	// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, snapshots []*domain.RiskSnapshot) error

	// GetByTokenID retrieves all snapshots for a token, ordered by captured_at DESC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.RiskSnapshot, error)

	// GetByTimeRange retrieves snapshots for a token within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.RiskSnapshot, error)
}

// CandleStore provides access to candle storage.
type CandleStore interface {
	// InsertBulk adds multiple candles. Re-inserting an existing
	// (token_id, date_time) pair overwrites it: refresh cycles fetch
	// overlapping 24h windows.
	InsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetByTokenID retrieves all candles for a token, ordered by date_time ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.Candle, error)

	// GetByTimeRange retrieves candles for a token within [start, end] (inclusive, RFC3339).
	GetByTimeRange(ctx context.Context, tokenID string, start, end string) ([]*domain.Candle, error)
}
