// Package cache defines the structured cache key and the storage capability
// the score layer is written against. Backends live in internal/db; an
// in-memory store lives here.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Namespace separates kinds of cached content.
type Namespace string

const (
	NamespaceTalent  Namespace = "talent"  // extracted descriptor lists, long TTL
	NamespaceScore   Namespace = "score"   // per-level score maps, long TTL
	NamespaceCatalog Namespace = "catalog" // game data, short TTL
)

// Key identifies one cache entry. Level is 0 for slot-wide entries.
type Key struct {
	Namespace Namespace
	SubjectID string
	Slot      int
	Level     int
}

// TalentKey returns the key of a slot's extraction result.
func TalentKey(subjectID string, slot int) Key {
	return Key{Namespace: NamespaceTalent, SubjectID: subjectID, Slot: slot}
}

// String renders the key as "namespace:subject:slot[:level]", the form stored by SQL backends.
// The subject is query-escaped so that distinct keys never render alike.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Namespace))
	b.WriteByte(':')
	b.WriteString(url.QueryEscape(k.SubjectID))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(k.Slot))
	if k.Level > 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(k.Level))
	}
	return b.String()
}

// In returns k moved to namespace ns.
func (k Key) In(ns Namespace) Key {
	k.Namespace = ns
	return k
}

// Store is the capability every cache backend provides.
// Get reports ok=false for missing and expired entries alike.
type Store interface {
	Get(ctx context.Context, key Key) (value []byte, ok bool, err error)
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key Key) error
}

// Typed stores values of V in a Store as JSON with a fixed TTL.
type Typed[V any] struct {
	store Store
	ttl   time.Duration
}

// NewTyped wraps store. Every Set uses ttl.
func NewTyped[V any](store Store, ttl time.Duration) Typed[V] {
	return Typed[V]{store: store, ttl: ttl}
}

// TTL returns the lifetime given to entries written through t.
func (t Typed[V]) TTL() time.Duration { return t.ttl }

func (t Typed[V]) Get(ctx context.Context, key Key) (V, bool, error) {
	var v V
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return v, true, nil
}

func (t Typed[V]) Set(ctx context.Context, key Key, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	return t.store.Set(ctx, key, raw, t.ttl)
}

func (t Typed[V]) Invalidate(ctx context.Context, key Key) error {
	return t.store.Invalidate(ctx, key)
}
