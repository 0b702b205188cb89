package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

func newTestSimulator(t *testing.T, opts ...Option) *Simulator {
	t.Helper()
	s, err := New(DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

func desc(kind effect.Kind, magnitude, duration float64) effect.Descriptor {
	return effect.MustNew(effect.Params{Name: kind.String(), Kind: kind, Magnitude: magnitude, DurationSeconds: duration, MaxStacks: 1})
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero tick", Config{Tick: 0, Horizon: 120, BaseDPS: 100}},
		{"negative horizon", Config{Tick: 0.1, Horizon: -1, BaseDPS: 100}},
		{"zero dps", Config{Tick: 0.1, Horizon: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfig_ValidateReportsFirstBadField(t *testing.T) {
	for range 20 {
		err := Config{}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tick must be positive")
	}
}

func TestConfig_Standard(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1200, cfg.Steps())
	assert.Equal(t, 12000.0, cfg.BaseDamage())
}

func TestBaseDamageIndependentOfEffects(t *testing.T) {
	s := newTestSimulator(t)
	lists := [][]effect.Descriptor{
		nil,
		{desc(effect.KindAtkIncrease, 15, effect.Permanent)},
		{desc(effect.KindDamageIncrease, 40, 5), desc(effect.KindCritRate, 30, 12)},
	}
	for _, l := range lists {
		assert.Equal(t, 12000.0, s.SimulateMultiple(l).BaseDamage)
	}
	assert.Equal(t, 12000.0, s.SimulateSingle(desc(effect.KindHeal, 5, 3)).BaseDamage)
}

func TestSimulate_Empty(t *testing.T) {
	r := newTestSimulator(t).SimulateMultiple(nil)

	assert.GreaterOrEqual(t, r.IncreaseRatePercent, 0.0)
	assert.Less(t, r.IncreaseRatePercent, 1.0)
}

func TestSimulate_PermanentAtkIncrease(t *testing.T) {
	s := newTestSimulator(t)
	d := desc(effect.KindAtkIncrease, 15, effect.Permanent)

	single := s.SimulateSingle(d)
	assert.Equal(t, 12000.0, single.BaseDamage)
	assert.InDelta(t, 15, single.IncreaseRatePercent, 0.01)

	multi := s.SimulateMultiple([]effect.Descriptor{d})
	assert.InDelta(t, 15, multi.IncreaseRatePercent, 0.01)
}

func TestSimulate_CritRate(t *testing.T) {
	r := newTestSimulator(t).SimulateSingle(desc(effect.KindCritRate, 10, effect.Permanent))
	assert.InDelta(t, 5, r.IncreaseRatePercent, 0.01)
}

func TestSimulate_TwoAdditiveEffects(t *testing.T) {
	r := newTestSimulator(t).SimulateMultiple([]effect.Descriptor{
		desc(effect.KindAtkIncrease, 15, effect.Permanent),
		desc(effect.KindDamageIncrease, 10, effect.Permanent),
	})
	assert.Greater(t, r.IncreaseRatePercent, 20.0)
	assert.Less(t, r.IncreaseRatePercent, 30.0)
}

func TestSimulate_SingleAndMultipleDiverge(t *testing.T) {
	s := newTestSimulator(t)
	d := desc(effect.KindDamageIncrease, 30, 10)

	single := s.SimulateSingle(d)
	multi := s.SimulateMultiple([]effect.Descriptor{d})

	assert.InDelta(t, 30, single.IncreaseRatePercent, 0.01, "re-triggered for the whole horizon")
	assert.InDelta(t, 30*10.0/120.0, multi.IncreaseRatePercent, 0.01, "active for its first 10s only")
	assert.NotEqual(t, single, multi)
}

func TestSimulateLevel(t *testing.T) {
	s := newTestSimulator(t)
	d := desc(effect.KindDamageIncrease, 30, 10)

	assert.Equal(t, s.SimulateSingle(d), s.SimulateLevel([]effect.Descriptor{d}))

	pair := []effect.Descriptor{d, desc(effect.KindAtkIncrease, 5, effect.Permanent)}
	assert.Equal(t, s.SimulateMultiple(pair), s.SimulateLevel(pair))
}

func TestSimulate_UnknownKindIsNoOp(t *testing.T) {
	s := newTestSimulator(t)
	odd := desc(effect.KindUnknown, 500, effect.Permanent)

	assert.Equal(t, s.SimulateMultiple(nil), s.SimulateMultiple([]effect.Descriptor{odd}))
}

func TestSimulate_Deterministic(t *testing.T) {
	s := newTestSimulator(t)
	descs := []effect.Descriptor{
		desc(effect.KindAtkIncrease, 12.5, 7.3),
		desc(effect.KindCritDamage, 40, effect.Permanent),
		desc(effect.KindDefDecrease, 18, 33),
	}
	want := s.SimulateMultiple(descs)

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.SimulateMultiple(descs)
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestSimulate_FullStacks(t *testing.T) {
	stacking := effect.MustNew(effect.Params{Kind: effect.KindAtkIncrease, Magnitude: 5, DurationSeconds: effect.Permanent, Stackable: true, MaxStacks: 4})

	plain := newTestSimulator(t).SimulateSingle(stacking)
	assert.InDelta(t, 5, plain.IncreaseRatePercent, 0.01)

	cfg := DefaultConfig()
	cfg.FullStacks = true
	s, err := New(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 20, s.SimulateSingle(stacking).IncreaseRatePercent, 0.01)
}

func TestWithCondition(t *testing.T) {
	guarded := effect.MustNew(effect.Params{Kind: effect.KindAtkIncrease, Magnitude: 20, DurationSeconds: effect.Permanent, MaxStacks: 1, Condition: "combo"})

	assert.InDelta(t, 20, newTestSimulator(t).SimulateSingle(guarded).IncreaseRatePercent, 0.01)

	never := newTestSimulator(t, WithCondition(func(string) bool { return false }))
	assert.InDelta(t, 0, never.SimulateSingle(guarded).IncreaseRatePercent, 1e-9)
}
