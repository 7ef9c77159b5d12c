// Package main runs the Forseti Scan listing proxy:
// - Listing cache (lazy): refresh-on-miss with single-flight fill
// - HTTP API: paginated tokens, candle feed, risk history, health/status/metrics
// - Stream: websocket fan-out of refresh events
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"forseti-scan/internal/api"
	"forseti-scan/internal/listing"
	"forseti-scan/internal/normalize"
	"forseti-scan/internal/odin"
	"forseti-scan/internal/pricing"
	"forseti-scan/internal/storage"
	chstore "forseti-scan/internal/storage/clickhouse"
	"forseti-scan/internal/storage/memory"
	"forseti-scan/internal/storage/migrations"
	pgstore "forseti-scan/internal/storage/postgres"
	"forseti-scan/internal/stream"
)

// stores holds both storage implementations used by the proxy.
type stores struct {
	snapshots storage.SnapshotStore
	candles   storage.CandleStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen", envOr("LISTEN_ADDR", ":4000"), "HTTP listen address")
	odinBaseURL := flag.String("odin-base-url", envOr("ODIN_BASE_URL", odin.DefaultBaseURL), "ODIN.FUN API base URL")
	priceBaseURL := flag.String("price-base-url", envOr("PRICE_BASE_URL", pricing.DefaultBaseURL), "BTC price API base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	cacheTTL := flag.Duration("cache-ttl", listing.DefaultTTL, "Listing cache TTL")
	priceTTL := flag.Duration("price-ttl", pricing.DefaultTTL, "BTC price cache TTL")
	fetchLimit := flag.Int("fetch-limit", odin.DefaultListLimit, "Maximum records fetched from the upstream listing")
	batchSize := flag.Int("batch-size", listing.DefaultBatchSize, "Normalization batch width")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Wire components
	client := odin.NewClient(
		odin.WithBaseURL(*odinBaseURL),
		odin.WithListLimit(*fetchLimit),
	)
	price := pricing.NewSource(
		pricing.WithBaseURL(*priceBaseURL),
		pricing.WithTTL(*priceTTL),
	)
	normalizer := normalize.New(client, price)
	hub := stream.NewHub(log.New(os.Stdout, "[stream] ", log.LstdFlags))

	svc := listing.NewService(listing.Options{
		Upstream:   client,
		Normalizer: normalizer,
		Snapshots:  st.snapshots,
		Candles:    st.candles,
		TTL:        *cacheTTL,
		BatchSize:  *batchSize,
		Logger:     log.New(os.Stdout, "[listing] ", log.LstdFlags),
		OnRefresh: func(ev listing.RefreshEvent) {
			hub.Broadcast(map[string]interface{}{
				"type":  "refresh",
				"total": ev.Total,
				"at":    ev.At.UTC().Format(time.RFC3339),
			})
		},
	})

	server := api.NewServer(api.Options{
		Listing:   svc,
		Feed:      client,
		Snapshots: st.snapshots,
		Candles:   st.candles,
		Stream:    hub,
		Logger:    log.New(os.Stdout, "[api] ", log.LstdFlags),
	})

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.Handler(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown: %v", err)
		}
		cancel()

		// Second signal forces immediate exit
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	logger.Printf("Serving on %s (upstream %s)", *listenAddr, *odinBaseURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	// Let best-effort persistence finish before exiting.
	svc.Wait()
	logger.Println("Shutdown complete")
}

// createStores creates both stores, either in-memory or database-backed,
// applying migrations for the latter.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		st := &stores{
			snapshots: memory.NewSnapshotStore(),
			candles:   memory.NewCandleStore(),
		}
		return st, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	st := &stores{
		snapshots: pgstore.NewSnapshotStore(pool),
		candles:   chstore.NewCandleStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
