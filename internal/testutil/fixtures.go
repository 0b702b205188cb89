package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/catalog"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

// Тексты талантов тестового каталога.
const (
	TextRally    = "ATK +{1} permanently"
	TextUndertow = "DMG +{1} for {2}s"
	TextPierce   = "Lv.{1}: enemy DEF -20%"
	TextNothing  = "Grants a cosmetic aura"
)

// Fixtures содержит тестовый каталог и дескрипторы к его талантам,
// чтобы не дублировать их в тестах.
var Fixtures = struct {
	Subjects []catalog.Subject

	Rally    []effect.Descriptor
	Undertow []effect.Descriptor
	Pierce   []effect.Descriptor
}{
	Subjects: []catalog.Subject{
		{ID: "chitose", Name: "Chitose", Element: "water", Talents: []catalog.Talent{
			{Slot: 1, Name: "Rally", Description: TextRally, Params: []string{"15%"}},
			{Slot: 2, Name: "Undertow", Description: TextUndertow, Params: []string{"30%", "10"}},
			{Slot: 3, Name: "Aura", Description: TextNothing},
		}},
		{ID: "amber", Name: "Amber", Element: "fire", Talents: []catalog.Talent{
			{Slot: 1, Name: "Pierce", Description: TextPierce, Params: []string{"1-6"}},
		}},
	},

	// один постоянный эффект на все уровни
	Rally: []effect.Descriptor{
		effect.MustNew(effect.Params{Name: "Rally", Kind: effect.KindAtkIncrease, Magnitude: 15,
			DurationSeconds: effect.Permanent, MaxStacks: 1}),
	},
	// один временный эффект на все уровни
	Undertow: []effect.Descriptor{
		effect.MustNew(effect.Params{Name: "Undertow", Kind: effect.KindDamageIncrease, Magnitude: 30,
			DurationSeconds: 10, MaxStacks: 1}),
	},
	// уровень 1 с одним эффектом, уровень 6 с двумя
	Pierce: []effect.Descriptor{
		effect.MustNew(effect.Params{Name: "Pierce", Kind: effect.KindDefDecrease, Magnitude: 20,
			DurationSeconds: effect.Permanent, MaxStacks: 1, Level: 1}),
		effect.MustNew(effect.Params{Name: "Pierce", Kind: effect.KindDefDecrease, Magnitude: 20,
			DurationSeconds: effect.Permanent, MaxStacks: 1, Level: 6}),
		effect.MustNew(effect.Params{Name: "Pierce+", Kind: effect.KindCritRate, Magnitude: 10,
			DurationSeconds: effect.Permanent, MaxStacks: 1, Level: 6}),
	},
}

// Catalog возвращает тестовый каталог.
func Catalog() *catalog.StaticSource {
	return catalog.NewStaticSource(Fixtures.Subjects)
}

// Extractor возвращает CountingExtractor с ответами на все таланты каталога.
func Extractor() *CountingExtractor {
	return NewCountingExtractor().
		Answer(TextRally, Fixtures.Rally...).
		Answer(TextUndertow, Fixtures.Undertow...).
		Answer(TextPierce, Fixtures.Pierce...)
}

// ContextWithTimeout создаёт context с timeout и автоматически отменяет его при завершении теста.
func ContextWithTimeout(t testing.TB, duration time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx
}
