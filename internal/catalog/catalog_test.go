package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/cache"
)

const sampleCatalog = `{
  "subjects": [
    {"id": "chitose", "name": "Chitose", "element": "water", "talents": [
      {"slot": 1, "name": "Tidal Edge", "description": "ATK +{1}", "params": ["8%", "10%"]},
      {"slot": 2, "name": "Undertow", "description": "DMG +{1} for {2}s", "params": ["12%", "6"]}
    ]},
    {"id": "", "name": "ignored"},
    {"id": "amber", "name": "Amber", "talents": []}
  ]
}`

func TestParseJSON(t *testing.T) {
	src, err := ParseJSON([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	s, tal, err := TalentOf(context.Background(), src, "chitose", 2)
	require.NoError(t, err)
	assert.Equal(t, "water", s.Element)
	assert.Equal(t, "Undertow", tal.Name)
	assert.Equal(t, []string{"12%", "6"}, tal.Params)

	_, _, err = TalentOf(context.Background(), src, "chitose", 9)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = src.Subject(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ParseJSON([]byte("{"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	src, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/subjects/amber.json":
			_, _ = w.Write([]byte(`{"id":"amber","name":"Amber","element":"fire","talents":[{"slot":3,"description":"Crit +5%"}]}`))
		case "/subjects/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/", nil)
	require.NoError(t, err)

	s, err := src.Subject(context.Background(), "amber")
	require.NoError(t, err)
	assert.Equal(t, "fire", s.Element)
	tal, err := s.Talent(3)
	require.NoError(t, err)
	assert.Equal(t, "Crit +5%", tal.Description)

	_, err = src.Subject(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Subject(context.Background(), "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = NewHTTPSource("  ", nil)
	assert.Error(t, err)
}

type countingSource struct {
	inner Source
	calls atomic.Int32
}

func (c *countingSource) Subject(ctx context.Context, id string) (Subject, error) {
	c.calls.Add(1)
	return c.inner.Subject(ctx, id)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	static, err := ParseJSON([]byte(sampleCatalog))
	require.NoError(t, err)
	counting := &countingSource{inner: static}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore().WithClock(func() time.Time { return now })
	cached := NewCached(counting, store, time.Hour)

	for range 3 {
		s, err := cached.Subject(ctx, "chitose")
		require.NoError(t, err)
		assert.Equal(t, "Chitose", s.Name)
	}
	assert.Equal(t, int32(1), counting.calls.Load())

	now = now.Add(time.Hour)
	_, err = cached.Subject(ctx, "chitose")
	require.NoError(t, err)
	assert.Equal(t, int32(2), counting.calls.Load(), "refetched after the short ttl")

	_, err = cached.Subject(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
