package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptors(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "effects.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun_Text(t *testing.T) {
	path := writeDescriptors(t, `
effects:
  - {name: Rally, kind: atk_increase, magnitude: 15}
  - {name: Surge, kind: damage_increase, magnitude: 30, duration_seconds: 10}
`)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), path}, &out))

	text := out.String()
	assert.Contains(t, text, "Rally")
	assert.Contains(t, text, "+15.00%")
	assert.Contains(t, text, "+30.00%", "a lone timed effect repeats")
	assert.Contains(t, text, "+2.50%", "a one-shot timed effect covers 10 of 120 seconds")
	assert.Contains(t, text, "combined: +17.50%")
}

func TestRun_JSONByLevel(t *testing.T) {
	path := writeDescriptors(t, `
- {name: Pierce, kind: def_decrease, magnitude: 20, level: 1}
- {name: Pierce, kind: def_decrease, magnitude: 40, level: 6}
`)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-json", path}, &out))

	var rep struct {
		Effects []struct {
			Name string `json:"name"`
		} `json:"effects"`
		ByLevel map[string]struct {
			IncreaseRatePercent float64 `json:"increaseRatePercent"`
		} `json:"byLevel"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	require.Len(t, rep.Effects, 2)
	assert.InDelta(t, 10, rep.ByLevel["1"].IncreaseRatePercent, 0.01)
	assert.InDelta(t, 20, rep.ByLevel["6"].IncreaseRatePercent, 0.01)
	assert.NotContains(t, rep.ByLevel, "3")
}

func TestRun_Errors(t *testing.T) {
	assert.Error(t, run(context.Background(), nil, io.Discard))
	assert.Error(t, run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard))

	bad := writeDescriptors(t, `[{name: Bad, kind: crit_rate, magnitude: 1, max_stacks: 0}]`)
	assert.Error(t, run(context.Background(), []string{bad}, io.Discard))
}
