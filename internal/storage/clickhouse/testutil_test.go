package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start ClickHouse container
	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	// Get native port (9000)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	// Connect to ClickHouse
	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	// Run migrations
	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// runMigrations applies the candles schema. The file is read from the
// migrations directory when found, with an inline fallback.
func runMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(findMigrationsDir(), "001_candles.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Logf("Could not read migration %s: %v, using inline schema", path, err)
		runInlineMigrations(t, conn)
		return
	}

	err = conn.Exec(ctx, trimTrailingSemicolon(string(content)))
	require.NoError(t, err, "failed to apply migration %s", path)
}

// findMigrationsDir attempts to locate the clickhouse migrations directory.
func findMigrationsDir() string {
	paths := []string{
		"../migrations/clickhouse",
		"../../migrations/clickhouse",
		"internal/storage/migrations/clickhouse",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return "../migrations/clickhouse"
}

// trimTrailingSemicolon strips the statement terminator. The driver does not
// accept multiquery input in Exec.
func trimTrailingSemicolon(sql string) string {
	trimmed := sql
	for len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		if last == ';' || last == '\n' || last == ' ' || last == '\t' {
			trimmed = trimmed[:len(trimmed)-1]
			continue
		}
		break
	}
	return trimmed
}

// runInlineMigrations applies the schema directly without reading files.
func runInlineMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS candles (
			token_id   String,
			date_time  DateTime64(3, 'UTC'),
			open       Float64,
			high       Float64,
			low        Float64,
			close      Float64,
			volume     UInt64
		) ENGINE = ReplacingMergeTree()
		ORDER BY (token_id, date_time)
	`)
	require.NoError(t, err)
}
