package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.RiskSnapshot) error {
	query := `
		INSERT INTO risk_snapshots (
			snapshot_id, token_id, risk, holder_count, txn_count,
			marketcap, volume_btc, volume_usd, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		snap.SnapshotID,
		snap.TokenID,
		string(snap.Risk),
		snap.HolderCount,
		snap.TxnCount,
		snap.Marketcap,
		snap.VolumeBTC,
		snap.VolumeUSD,
		snap.CapturedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert risk snapshot: %w", err)
	}
	return nil
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.RiskSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO risk_snapshots (
			snapshot_id, token_id, risk, holder_count, txn_count,
			marketcap, volume_btc, volume_usd, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, snap := range snapshots {
		_, err := tx.Exec(ctx, query,
			snap.SnapshotID,
			snap.TokenID,
			string(snap.Risk),
			snap.HolderCount,
			snap.TxnCount,
			snap.Marketcap,
			snap.VolumeBTC,
			snap.VolumeUSD,
			snap.CapturedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert risk snapshot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTokenID retrieves all snapshots for a token, ordered by captured_at DESC.
func (s *SnapshotStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.RiskSnapshot, error) {
	query := `
		SELECT snapshot_id, token_id, risk, holder_count, txn_count,
		       marketcap, volume_btc, volume_usd, captured_at, created_at
		FROM risk_snapshots
		WHERE token_id = $1
		ORDER BY captured_at DESC
	`

	rows, err := s.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query risk snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for a token within [start, end] (inclusive, ms).
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.RiskSnapshot, error) {
	query := `
		SELECT snapshot_id, token_id, risk, holder_count, txn_count,
		       marketcap, volume_btc, volume_usd, captured_at, created_at
		FROM risk_snapshots
		WHERE token_id = $1 AND captured_at >= $2 AND captured_at <= $3
		ORDER BY captured_at DESC
	`

	rows, err := s.pool.Query(ctx, query, tokenID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query risk snapshots by range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshots scans all rows into RiskSnapshot records.
func scanSnapshots(rows pgx.Rows) ([]*domain.RiskSnapshot, error) {
	var result []*domain.RiskSnapshot
	for rows.Next() {
		var snap domain.RiskSnapshot
		var risk string

		err := rows.Scan(
			&snap.SnapshotID,
			&snap.TokenID,
			&risk,
			&snap.HolderCount,
			&snap.TxnCount,
			&snap.Marketcap,
			&snap.VolumeBTC,
			&snap.VolumeUSD,
			&snap.CapturedAt,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan risk snapshot: %w", err)
		}
		snap.Risk = domain.RiskLevel(risk)
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk snapshots: %w", err)
	}
	return result, nil
}
