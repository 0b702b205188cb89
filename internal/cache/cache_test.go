package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestKey_String(t *testing.T) {
	assert.Equal(t, "talent:chitose:2", TalentKey("chitose", 2).String())
	assert.Equal(t, "score:chitose:2:5", Key{Namespace: NamespaceScore, SubjectID: "chitose", Slot: 2, Level: 5}.String())

	colon := Key{Namespace: NamespaceScore, SubjectID: "a:1", Slot: 2}
	plain := Key{Namespace: NamespaceScore, SubjectID: "a", Slot: 1, Level: 2}
	assert.Equal(t, "score:a%3A1:2", colon.String())
	assert.NotEqual(t, plain.String(), colon.String())
	assert.Equal(t, NamespaceScore, TalentKey("a", 1).In(NamespaceScore).Namespace)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clock.now)
	key := TalentKey("minova", 1)

	require.NoError(t, s.Set(ctx, key, []byte("v1"), time.Hour))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	clock.advance(59 * time.Minute)
	_, ok, _ = s.Get(ctx, key)
	assert.True(t, ok)

	clock.advance(time.Minute)
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "expired at exactly ttl")
	assert.Equal(t, 0, s.Len(), "expired entries are evicted on read")
}

func TestMemoryStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := TalentKey("minova", 1)

	require.NoError(t, s.Set(ctx, key, []byte("v"), time.Hour))
	require.NoError(t, s.Invalidate(ctx, key))

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Invalidate(ctx, key), "invalidating a missing key is not an error")
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := TalentKey("x", 1)
	buf := []byte("abc")

	require.NoError(t, s.Set(ctx, key, buf, time.Hour))
	buf[0] = 'z'

	got, _, _ := s.Get(ctx, key)
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'z'

	again, _, _ := s.Get(ctx, key)
	assert.Equal(t, []byte("abc"), again)
}

func TestTyped(t *testing.T) {
	ctx := context.Background()
	typed := NewTyped[map[int]float64](NewMemoryStore(), 24*time.Hour)
	key := Key{Namespace: NamespaceScore, SubjectID: "x", Slot: 3}

	_, ok, err := typed.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := map[int]float64{1: 2.5, 6: 14}
	require.NoError(t, typed.Set(ctx, key, want))

	got, ok, err := typed.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, 24*time.Hour, typed.TTL())
}

func TestTyped_DecodeError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := TalentKey("x", 1)
	require.NoError(t, store.Set(ctx, key, []byte("not json"), time.Hour))

	_, ok, err := NewTyped[[]string](store, time.Hour).Get(ctx, key)
	assert.Error(t, err)
	assert.False(t, ok)
}
