// Package main runs the bonding-curve trading engine as an HTTP service:
// JSON API for protocol admin, launches and trades, a websocket feed of
// executed trades, and Prometheus metrics.
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

	"go.uber.org/zap"

	"solana-curve-engine/internal/engine"
	"solana-curve-engine/internal/feed"
	"solana-curve-engine/internal/observability"
	"solana-curve-engine/internal/storage"
	chstore "solana-curve-engine/internal/storage/clickhouse"
	"solana-curve-engine/internal/storage/memory"
	"solana-curve-engine/internal/storage/migrations"
	pgstore "solana-curve-engine/internal/storage/postgres"
)

// engineStores bundles the storage implementations behind the engine.
type engineStores struct {
	protocols storage.ProtocolStore
	curves    storage.CurveStore
	trades    storage.TradeLogStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	listen := flag.String("listen", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the trade-event sink (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	zlog, err := zap.NewProduction()
	if err != nil {
		logger.Fatalf("Failed to create zap logger: %v", err)
	}
	defer zlog.Sync()

	metrics := observability.NewMetrics("")

	hub := feed.NewHub(feed.Config{
		Metrics: metrics,
		Logger:  zlog.Named("feed"),
	})
	defer hub.Close()

	eng, err := engine.New(ctx, engine.Config{
		Protocols: stores.protocols,
		Curves:    stores.curves,
		Trades:    stores.trades,
		Feed:      hub,
		Metrics:   metrics,
		Logger:    zlog.Named("engine"),
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	api := &apiServer{engine: eng, hub: hub, started: time.Now(), logger: logger}

	srv := &http.Server{
		Addr:         *listen,
		Handler:      api.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket feed connections are long-lived
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Listening on %s", *listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates protocol/curve/trade stores and runs migrations.
// The trade log goes to ClickHouse when a DSN is given, otherwise PostgreSQL.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*engineStores, func(), error) {
	if useMemory {
		stores := &engineStores{
			protocols: memory.NewProtocolStore(),
			curves:    memory.NewCurveStore(),
			trades:    memory.NewTradeLogStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &engineStores{
		protocols: pgstore.NewProtocolStore(pool),
		curves:    pgstore.NewCurveStore(pool),
		trades:    pgstore.NewTradeLogStore(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.trades = chstore.NewTradeEventStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// loadEnvFile loads KEY=VALUE pairs from .env without overriding existing vars.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
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
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
