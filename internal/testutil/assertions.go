package testutil

import (
	"math"
	"testing"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

// AssertAllLevels проверяет, что карта очков содержит ровно уровни 1..6.
func AssertAllLevels(t testing.TB, scores map[int]float64) {
	t.Helper()

	if len(scores) != effect.MaxLevel {
		t.Fatalf("score map has %d levels, expected %d: %v", len(scores), effect.MaxLevel, scores)
	}
	for lvl := 1; lvl <= effect.MaxLevel; lvl++ {
		if _, ok := scores[lvl]; !ok {
			t.Fatalf("score map is missing level %d: %v", lvl, scores)
		}
	}
}

// AssertPercentNear проверяет, что процент отличается от ожидаемого не более чем на delta.
func AssertPercentNear(t testing.TB, expected, actual, delta float64) {
	t.Helper()

	if math.IsNaN(actual) || math.Abs(expected-actual) > delta {
		t.Fatalf("percent mismatch: expected %.4f±%.4f, got %.4f", expected, delta, actual)
	}
}
