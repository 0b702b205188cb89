package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/cache"
)

// PostgresStore implements cache.Store on the cache_entries table.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a cache store over pool. Migrations must be applied.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// Get returns the entry value if it exists and has not expired.
func (s *PostgresStore) Get(ctx context.Context, key cache.Key) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM cache_entries WHERE cache_key = $1 AND expires_at > $2`,
		key.String(), s.now(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying cache entry %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the entry with expiry now+ttl.
func (s *PostgresStore) Set(ctx context.Context, key cache.Key, value []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_entries (cache_key, namespace, value, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cache_key)
		 DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		key.String(), string(key.Namespace), value, now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("upserting cache entry %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes the entry.
func (s *PostgresStore) Invalidate(ctx context.Context, key cache.Key) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE cache_key = $1`, key.String()); err != nil {
		return fmt.Errorf("deleting cache entry %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes every expired entry and returns how many were removed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("purging expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
