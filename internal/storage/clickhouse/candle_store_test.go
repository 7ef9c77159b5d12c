package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forseti-scan/internal/domain"
	"forseti-scan/internal/storage"
)

func testCandle(tokenID, at string, close float64) *domain.Candle {
	return &domain.Candle{
		TokenID:  tokenID,
		DateTime: at,
		Open:     close - 1,
		High:     close + 1,
		Low:      close - 2,
		Close:    close,
		Volume:   1000,
	}
}

func TestCandleStore_InsertBulkAndGetByTokenID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(conn)

	batch := []*domain.Candle{
		testCandle("tok1", "2025-06-15T00:01:00Z", 2),
		testCandle("tok1", "2025-06-15T00:00:00Z", 1),
		testCandle("tok1", "2025-06-15T00:02:00Z", 3),
		testCandle("other", "2025-06-15T00:00:00Z", 9),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	candles, err := store.GetByTokenID(ctx, "tok1")
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, "2025-06-15T00:00:00Z", candles[0].DateTime)
	assert.InDelta(t, 1.0, candles[0].Close, 0.0001)
	assert.Equal(t, "2025-06-15T00:02:00Z", candles[2].DateTime)
	assert.Equal(t, int64(1000), candles[0].Volume)
}

func TestCandleStore_ReinsertSupersedes(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(conn)

	at := "2025-06-15T00:00:00Z"
	require.NoError(t, store.InsertBulk(ctx, []*domain.Candle{testCandle("tok1", at, 1)}))
	require.NoError(t, store.InsertBulk(ctx, []*domain.Candle{testCandle("tok1", at, 7)}))

	candles, err := store.GetByTokenID(ctx, "tok1")
	require.NoError(t, err)
	require.Len(t, candles, 1, "FINAL read must collapse replaced rows")
	assert.InDelta(t, 7.0, candles[0].Close, 0.0001)
}

func TestCandleStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(conn)

	err := store.InsertBulk(ctx, []*domain.Candle{{TokenID: "tok1"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, []*domain.Candle{{TokenID: "tok1", DateTime: "not a time"}})
	assert.Error(t, err)
}

func TestCandleStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(conn)

	batch := []*domain.Candle{
		testCandle("tok1", "2025-06-15T00:00:00Z", 1),
		testCandle("tok1", "2025-06-15T00:01:00Z", 2),
		testCandle("tok1", "2025-06-15T00:02:00Z", 3),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	candles, err := store.GetByTimeRange(ctx, "tok1", "2025-06-15T00:01:00Z", "2025-06-15T00:02:00Z")
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.InDelta(t, 2.0, candles[0].Close, 0.0001)
	assert.InDelta(t, 3.0, candles[1].Close, 0.0001)

	candles, err = store.GetByTimeRange(ctx, "tok1", "2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z")
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestCandleStore_EmptyBatchIsNoop(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandleStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
