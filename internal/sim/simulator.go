// Package sim integrates the damage multiplier of a set of effects over a
// fixed combat horizon and reports how much it raises damage over baseline.
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

// Standard run parameters.
const (
	DefaultTick    = 0.1   // seconds
	DefaultHorizon = 120.0 // seconds
	DefaultBaseDPS = 100.0
)

// ErrInvalidConfig is returned by New for non-positive run parameters.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the fixed parameters of a run.
type Config struct {
	Tick    float64 // seconds per step
	Horizon float64 // simulated seconds
	BaseDPS float64 // damage per second with multiplier 1.0
	// FullStacks starts stackable effects at their maximum stack count.
	FullStacks bool
}

// DefaultConfig returns the standard 0.1s / 120s / 100 DPS configuration.
func DefaultConfig() Config {
	return Config{Tick: DefaultTick, Horizon: DefaultHorizon, BaseDPS: DefaultBaseDPS}
}

// Validate reports whether the config can drive a run.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"tick", c.Tick}, {"horizon", c.Horizon}, {"base dps", c.BaseDPS}} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, f.name, f.v)
		}
	}
	return nil
}

// Steps returns the number of ticks in a run.
func (c Config) Steps() int {
	return int(math.Ceil(c.Horizon/c.Tick - 1e-9))
}

// BaseDamage is the damage of a run with no effects: BaseDPS × Horizon.
func (c Config) BaseDamage() float64 {
	return c.BaseDPS * c.Horizon
}

// Result is the outcome of one run.
type Result struct {
	BaseDamage          float64 `json:"baseDamage"`
	ActualDamage        float64 `json:"actualDamage"`
	IncreaseRatePercent float64 `json:"increaseRatePercent"`
}

// Simulator runs descriptors through the tracker and composer.
// It holds no per-run state and is safe for concurrent use.
type Simulator struct {
	cfg      Config
	composer effect.Composer
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithCondition sets the predicate used for descriptors with an activation tag.
func WithCondition(cond effect.Condition) Option {
	return func(s *Simulator) {
		s.composer = effect.NewComposer(cond)
	}
}

// New returns a Simulator for cfg.
func New(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the run parameters.
func (s *Simulator) Config() Config { return s.cfg }

// SimulateSingle runs one descriptor in isolation. A timed effect is restarted
// as soon as it expires, so it is modelled as perpetually re-triggering.
func (s *Simulator) SimulateSingle(d effect.Descriptor) Result {
	return s.run([]effect.Descriptor{d}, true)
}

// SimulateMultiple runs descriptors together. Timed effects expire once and
// stay inert for the rest of the run.
func (s *Simulator) SimulateMultiple(descs []effect.Descriptor) Result {
	return s.run(descs, false)
}

// SimulateLevel picks the single-effect path for exactly one descriptor and
// the multi-effect path otherwise.
func (s *Simulator) SimulateLevel(descs []effect.Descriptor) Result {
	if len(descs) == 1 {
		return s.SimulateSingle(descs[0])
	}
	return s.SimulateMultiple(descs)
}

func (s *Simulator) run(descs []effect.Descriptor, autoRestart bool) Result {
	states := effect.Initialize(descs, effect.TrackerOptions{
		AutoRestart: autoRestart,
		FullStacks:  s.cfg.FullStacks,
	})

	perTick := s.cfg.BaseDPS * s.cfg.Tick
	actual := 0.0
	for range s.cfg.Steps() {
		actual += perTick * s.composer.Compose(states)
		states = effect.Tick(states, s.cfg.Tick)
	}

	base := s.cfg.BaseDamage()
	return Result{
		BaseDamage:          base,
		ActualDamage:        actual,
		IncreaseRatePercent: (actual - base) / base * 100,
	}
}
