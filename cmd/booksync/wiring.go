package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-booksync/config"
	"github.com/aluiziolira/go-booksync/metrics"
	"github.com/aluiziolira/go-booksync/pipeline"
	"github.com/aluiziolira/go-booksync/scraper"
	"github.com/aluiziolira/go-booksync/warehouse"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func newCollector(cfg *config.Config, m *metrics.Metrics) (*scraper.Collector, error) {
	httpFetcher, err := scraper.NewHTTPFetcher(cfg, m)
	if err != nil {
		return nil, fmt.Errorf("initialising fetcher: %w", err)
	}
	fetcher := scraper.NewRetryingFetcher(httpFetcher, cfg, m)
	return scraper.NewCollector(fetcher, scraper.NewExtractor(scraper.DefaultSelectors()), m), nil
}

func openSink(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*warehouse.Sink, *sql.DB, error) {
	dialect, err := warehouse.DialectFor(cfg.SinkDriver)
	if err != nil {
		return nil, nil, err
	}
	if dialect.Name == warehouse.SQLite.Name {
		if err := ensureSQLiteDir(cfg.SinkDSN); err != nil {
			return nil, nil, err
		}
	}

	db, err := warehouse.Open(ctx, dialect, cfg.SinkDSN)
	if err != nil {
		return nil, nil, err
	}

	sink, err := warehouse.NewSink(db, warehouse.Options{
		Dialect:       dialect,
		Table:         cfg.Table,
		Transactional: cfg.Transactional,
		Metrics:       m,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return sink, db, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %q: %w", dir, err)
	}
	return nil
}

// newStore returns the handoff store and a function releasing it.
func newStore(ctx context.Context, cfg *config.Config) (pipeline.Store, func() error, error) {
	if cfg.HandoffBackend != "redis" {
		return pipeline.NewMemoryStore(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return pipeline.NewRedisStore(client, cfg.HandoffTTL), client.Close, nil
}

// startMetricsServer serves the registry on addr. The returned function
// shuts the server down; it is a no-op when addr is empty.
func startMetricsServer(addr string, m *metrics.Metrics) func() {
	if addr == "" || m == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}
