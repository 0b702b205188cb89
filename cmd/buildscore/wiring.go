package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/cache"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/catalog"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/config"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/db"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/extract"
)

// openStore returns the configured cache backend and its release func.
// SQL backends drop expired rows on open.
func openStore(ctx context.Context, cfg config.Scorer) (cache.Store, func(), error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case config.BackendSQLite:
		store, err := db.OpenSQLite(ctx, cfg.Cache.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		purge(ctx, "sqlite", store.PurgeExpired)
		slog.Info("cache opened", "backend", "sqlite", "path", cfg.Cache.SQLitePath)
		return store, func() { _ = store.Close() }, nil

	case config.BackendPostgres:
		dsn := cfg.Database.DSN()
		if err := db.RunMigrations(ctx, dsn); err != nil {
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		database, err := db.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		store := db.NewPostgresStore(database.Pool())
		purge(ctx, "postgres", store.PurgeExpired)
		slog.Info("cache opened", "backend", "postgres")
		return store, database.Close, nil

	default:
		slog.Info("cache opened", "backend", "memory")
		return cache.NewMemoryStore(), func() {}, nil
	}
}

func purge(ctx context.Context, backend string, fn func(context.Context) (int64, error)) {
	n, err := fn(ctx)
	if err != nil {
		slog.Warn("purging expired cache entries failed", "backend", backend, "err", err)
		return
	}
	if n > 0 {
		slog.Debug("purged expired cache entries", "backend", backend, "count", n)
	}
}

// openCatalog prefers a local catalog file and falls back to the remote
// service, which is cached with the short catalog ttl.
func openCatalog(cfg config.Scorer, store cache.Store) (catalog.Source, error) {
	if cfg.Catalog.File != "" {
		src, err := catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		slog.Info("catalog loaded", "file", cfg.Catalog.File, "subjects", src.Len())
		return src, nil
	}
	if cfg.Catalog.BaseURL != "" {
		src, err := catalog.NewHTTPSource(cfg.Catalog.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		return catalog.NewCached(src, store, cfg.Cache.CatalogTTL), nil
	}
	return nil, errors.New("no catalog configured: set catalog.file or catalog.base_url")
}

// newExtractor returns the inference client. Without an endpoint the run is
// cache-only: cached slots still score and the rest fail extraction.
func newExtractor(cfg config.Scorer) (extract.Extractor, error) {
	if strings.TrimSpace(cfg.Extraction.Endpoint) == "" {
		slog.Warn("no extraction endpoint configured, scoring from cache only")
		return extract.ExtractorFunc(func(context.Context, extract.Request) ([]effect.Descriptor, error) {
			return nil, fmt.Errorf("%w: no extraction endpoint configured", extract.ErrExtractionFailed)
		}), nil
	}
	c, err := extract.NewClient(extract.ClientConfig{
		Endpoint: cfg.Extraction.Endpoint,
		APIKey:   cfg.Extraction.APIKey,
		Model:    cfg.Extraction.Model,
		Timeout:  cfg.Extraction.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring extraction: %w", err)
	}
	return c, nil
}
