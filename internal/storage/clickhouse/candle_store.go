package clickhouse

import (
	"context"
	"fmt"
	"time"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
// Backed by a ReplacingMergeTree: re-inserting a (token_id, date_time) pair
// supersedes the previous row.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds multiple candles in one batch.
func (s *CandleStore) InsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			token_id, date_time, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		if c == nil || c.TokenID == "" || c.DateTime == "" {
			return storage.ErrInvalidInput
		}
		at, err := time.Parse(time.RFC3339, c.DateTime)
		if err != nil {
			return fmt.Errorf("parse candle date_time %q: %w", c.DateTime, err)
		}
		err = batch.Append(
			c.TokenID, at, c.Open, c.High, c.Low, c.Close, uint64(c.Volume),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTokenID retrieves all candles for a token, ordered by date_time ASC.
func (s *CandleStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.Candle, error) {
	query := `
		SELECT token_id, date_time, open, high, low, close, volume
		FROM candles FINAL
		WHERE token_id = ?
		ORDER BY date_time ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// GetByTimeRange retrieves candles for a token within [start, end] (inclusive, RFC3339).
func (s *CandleStore) GetByTimeRange(ctx context.Context, tokenID string, start, end string) ([]*domain.Candle, error) {
	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	endAt, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	query := `
		SELECT token_id, date_time, open, high, low, close, volume
		FROM candles FINAL
		WHERE token_id = ? AND date_time >= ? AND date_time <= ?
		ORDER BY date_time ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID, startAt, endAt)
	if err != nil {
		return nil, fmt.Errorf("query candles by range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanCandles scans all rows into Candle records.
func scanCandles(rows chRows) ([]*domain.Candle, error) {
	var result []*domain.Candle
	for rows.Next() {
		var c domain.Candle
		var at time.Time
		var volume uint64

		err := rows.Scan(&c.TokenID, &at, &c.Open, &c.High, &c.Low, &c.Close, &volume)
		if err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.DateTime = at.UTC().Format(time.RFC3339)
		c.Volume = int64(volume)
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}
	return result, nil
}
