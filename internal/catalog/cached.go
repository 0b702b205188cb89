package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/cache"
)

// DefaultTTL is the lifetime of cached game data. Catalog content changes with
// game patches, so it is kept much shorter than extraction results.
const DefaultTTL = 6 * time.Hour

// Cached memoizes a Source in a cache.Store under the catalog namespace.
type Cached struct {
	src   Source
	store cache.Typed[Subject]
}

// NewCached wraps src. A non-positive ttl means DefaultTTL.
func NewCached(src Source, store cache.Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{src: src, store: cache.NewTyped[Subject](store, ttl)}
}

func (c *Cached) Subject(ctx context.Context, id string) (Subject, error) {
	key := cache.Key{Namespace: cache.NamespaceCatalog, SubjectID: id}

	s, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("catalog cache read failed", "subject", id, "err", err)
	} else if ok {
		return s, nil
	}

	s, err = c.src.Subject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if err := c.store.Set(ctx, key, s); err != nil {
		slog.Warn("catalog cache write failed", "subject", id, "err", err)
	}
	return s, nil
}
