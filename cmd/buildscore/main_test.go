package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `{"subjects":[
  {"id":"chitose","name":"Chitose","element":"water","talents":[
    {"slot":1,"name":"Rally","description":"ATK +{1} permanently","params":["15%"]},
    {"slot":2,"name":"Riptide","description":"Summons a wave"}
  ]},
  {"id":"amber","name":"Amber","element":"fire","talents":[
    {"slot":1,"name":"Pierce","description":"enemy DEF -20%"}
  ]}
]}`

// inference answers by the talent text found in the prompt.
func inference(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Input string `json:"input"`
		}
		_ = json.Unmarshal(raw, &req)

		var effects string
		switch {
		case strings.Contains(req.Input, "ATK +15% permanently"):
			effects = `[{"name":"Rally","kind":"atk_increase","magnitude":15}]`
		case strings.Contains(req.Input, "enemy DEF -20%"):
			effects = `[{"name":"Pierce","kind":"def_decrease","magnitude":20}]`
		default:
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			return
		}
		answer, _ := json.Marshal(map[string]string{"output_text": `{"effects":` + effects + `}`})
		_, _ = w.Write(answer)
	}))
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func setup(t *testing.T, backend string, calls *atomic.Int32) (cfgPath, buildPath string) {
	t.Helper()
	dir := t.TempDir()
	srv := inference(t, calls)
	t.Cleanup(srv.Close)

	catalogPath := writeFile(t, dir, "catalog.json", testCatalog)
	cfgPath = writeFile(t, dir, "scorer.yaml", `
log:
  level: ERROR
cache:
  backend: `+backend+`
  sqlite_path: `+filepath.Join(dir, "cache.db")+`
catalog:
  file: `+catalogPath+`
extraction:
  endpoint: `+srv.URL+`
  model: test-model
`)
	buildPath = writeFile(t, dir, "build.yaml", `
picks:
  - {subject: chitose, slot: 1, level: 6}
  - {subject: amber, slot: 1, level: 2}
  - {subject: chitose, slot: 2, level: 1}
equipment: [sword, ring, charm]
`)
	return cfgPath, buildPath
}

func TestRun_JSON(t *testing.T) {
	var calls atomic.Int32
	cfgPath, buildPath := setup(t, "memory", &calls)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath, "-json", buildPath}, &out))

	var rep struct {
		Slots []struct {
			SubjectID string             `json:"subjectId"`
			Levels    map[string]float64 `json:"levels"`
			Error     string             `json:"error"`
		} `json:"slots"`
		Build struct {
			Total    float64 `json:"total"`
			Unscored []struct {
				SubjectID string `json:"subjectId"`
				Slot      int    `json:"slot"`
			} `json:"unscored"`
		} `json:"build"`
		Evaluation struct {
			Grade string `json:"grade"`
		} `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))

	require.Len(t, rep.Slots, 3)
	assert.InDelta(t, 15, rep.Slots[0].Levels["6"], 0.01)
	assert.InDelta(t, 10, rep.Slots[1].Levels["2"], 0.01)
	assert.Contains(t, rep.Slots[2].Error, "extraction failed")

	assert.InDelta(t, 25, rep.Build.Total, 0.05)
	require.Len(t, rep.Build.Unscored, 1)
	assert.Equal(t, 2, rep.Build.Unscored[0].Slot)
	assert.NotEmpty(t, rep.Evaluation.Grade)
}

func TestRun_SQLiteCacheSurvivesRuns(t *testing.T) {
	var calls atomic.Int32
	cfgPath, buildPath := setup(t, "sqlite", &calls)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath, buildPath}, &out))
	first := calls.Load()
	assert.Contains(t, out.String(), "build score: 25.00%")
	assert.Contains(t, out.String(), "1 unscored")

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath, buildPath}, &out))

	// Only the failed slot is retried; the others come from the cache file.
	assert.Equal(t, first+1, calls.Load())
}

func TestRun_CacheOnlyWithoutEndpoint(t *testing.T) {
	var calls atomic.Int32
	cfgPath, buildPath := setup(t, "sqlite", &calls)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath, buildPath}, &out))

	// второй запуск без endpoint: только кэш
	cfg, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	lines := strings.Split(string(cfg), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !strings.Contains(l, "endpoint:") {
			kept = append(kept, l)
		}
	}
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Join(kept, "\n")), 0o644))

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath, buildPath}, &out))
	assert.Contains(t, out.String(), "build score: 25.00%")
	assert.Contains(t, out.String(), "1 unscored")
}

func TestRun_Usage(t *testing.T) {
	err := run(context.Background(), nil, io.Discard)
	assert.Error(t, err)
}
