package effect

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Permanent is the DurationSeconds value of an effect that never expires.
const Permanent = -1

// MaxLevel is the highest talent level a descriptor can be tagged with.
const MaxLevel = 6

// ErrInvalidDescriptor is returned by New for descriptors the tracker cannot run.
var ErrInvalidDescriptor = errors.New("invalid effect descriptor")

// Params holds the raw fields of a descriptor before validation.
type Params struct {
	Name            string
	Kind            Kind
	Magnitude       float64
	Unit            Unit
	DurationSeconds float64 // Permanent or >= 0
	Stackable       bool
	MaxStacks       int    // >= 1, exactly 1 when not stackable
	Condition       string // opaque activation tag, empty when unconditional
	Level           int    // 0 when not leveled, else 1..MaxLevel
}

// Descriptor is one buff/debuff extracted from talent or skill text.
// It is an immutable value: construct it with New and copy it freely.
type Descriptor struct {
	p Params
}

// New validates p and returns the descriptor.
func New(p Params) (Descriptor, error) {
	switch {
	case math.IsNaN(p.Magnitude) || math.IsInf(p.Magnitude, 0):
		return Descriptor{}, fmt.Errorf("%w: %q magnitude %v is not finite", ErrInvalidDescriptor, p.Name, p.Magnitude)
	case math.IsNaN(p.DurationSeconds) || math.IsInf(p.DurationSeconds, 0):
		return Descriptor{}, fmt.Errorf("%w: %q duration %v is not finite", ErrInvalidDescriptor, p.Name, p.DurationSeconds)
	case p.DurationSeconds < 0 && p.DurationSeconds != Permanent:
		return Descriptor{}, fmt.Errorf("%w: %q duration %v must be %d or >= 0", ErrInvalidDescriptor, p.Name, p.DurationSeconds, Permanent)
	case p.MaxStacks < 1:
		return Descriptor{}, fmt.Errorf("%w: %q max stacks %d must be >= 1", ErrInvalidDescriptor, p.Name, p.MaxStacks)
	case !p.Stackable && p.MaxStacks != 1:
		return Descriptor{}, fmt.Errorf("%w: %q is not stackable but declares %d stacks", ErrInvalidDescriptor, p.Name, p.MaxStacks)
	case p.Level < 0 || p.Level > MaxLevel:
		return Descriptor{}, fmt.Errorf("%w: %q level %d outside 1..%d", ErrInvalidDescriptor, p.Name, p.Level, MaxLevel)
	case p.Kind >= kindCount:
		p.Kind = KindUnknown
	}
	return Descriptor{p: p}, nil
}

// MustNew is New for literals in tests and tables; it panics on invalid params.
func MustNew(p Params) Descriptor {
	d, err := New(p)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Descriptor) Name() string             { return d.p.Name }
func (d Descriptor) Kind() Kind               { return d.p.Kind }
func (d Descriptor) Magnitude() float64       { return d.p.Magnitude }
func (d Descriptor) Unit() Unit               { return d.p.Unit }
func (d Descriptor) DurationSeconds() float64 { return d.p.DurationSeconds }
func (d Descriptor) Stackable() bool          { return d.p.Stackable }
func (d Descriptor) MaxStacks() int           { return d.p.MaxStacks }
func (d Descriptor) Condition() string        { return d.p.Condition }

// Level returns the talent level the descriptor belongs to and whether it has one.
func (d Descriptor) Level() (int, bool) { return d.p.Level, d.p.Level > 0 }

// IsPermanent reports whether the effect never expires.
func (d Descriptor) IsPermanent() bool { return d.p.DurationSeconds == Permanent }

// Params returns a copy of the descriptor's fields.
func (d Descriptor) Params() Params { return d.p }

// WithLevel returns a copy of d tagged with level.
func (d Descriptor) WithLevel(level int) (Descriptor, error) {
	p := d.p
	p.Level = level
	return New(p)
}

// wire is the JSON/YAML representation. Omitted duration means permanent,
// omitted max stacks means 1.
type wire struct {
	Name            string   `json:"name" yaml:"name"`
	Kind            string   `json:"kind" yaml:"kind"`
	Magnitude       float64  `json:"magnitude" yaml:"magnitude"`
	Unit            string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty" yaml:"duration_seconds,omitempty"`
	Stackable       bool     `json:"stackable,omitempty" yaml:"stackable,omitempty"`
	MaxStacks       *int     `json:"maxStacks,omitempty" yaml:"max_stacks,omitempty"`
	Condition       string   `json:"activationCondition,omitempty" yaml:"activation_condition,omitempty"`
	Level           int      `json:"level,omitempty" yaml:"level,omitempty"`
}

func (d Descriptor) toWire() wire {
	dur := d.p.DurationSeconds
	stacks := d.p.MaxStacks
	return wire{
		Name:            d.p.Name,
		Kind:            d.p.Kind.String(),
		Magnitude:       d.p.Magnitude,
		Unit:            d.p.Unit.String(),
		DurationSeconds: &dur,
		Stackable:       d.p.Stackable,
		MaxStacks:       &stacks,
		Condition:       d.p.Condition,
		Level:           d.p.Level,
	}
}

func (w wire) descriptor() (Descriptor, error) {
	kind, _ := ParseKind(w.Kind)
	unit, _ := ParseUnit(w.Unit)
	p := Params{
		Name:            w.Name,
		Kind:            kind,
		Magnitude:       w.Magnitude,
		Unit:            unit,
		DurationSeconds: Permanent,
		Stackable:       w.Stackable,
		MaxStacks:       1,
		Condition:       w.Condition,
		Level:           w.Level,
	}
	if w.DurationSeconds != nil {
		p.DurationSeconds = *w.DurationSeconds
	}
	if w.MaxStacks != nil {
		p.MaxStacks = *w.MaxStacks
	}
	return New(p)
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.toWire())
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding descriptor: %w", err)
	}
	out, err := w.descriptor()
	if err != nil {
		return err
	}
	*d = out
	return nil
}

func (d Descriptor) MarshalYAML() (any, error) {
	return d.toWire(), nil
}

func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	var w wire
	if err := node.Decode(&w); err != nil {
		return fmt.Errorf("decoding descriptor: %w", err)
	}
	out, err := w.descriptor()
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// ByLevel groups descriptors by level 1..MaxLevel. Unleveled descriptors are
// added to every level.
func ByLevel(descs []Descriptor) map[int][]Descriptor {
	out := make(map[int][]Descriptor, MaxLevel)
	var shared []Descriptor
	for _, d := range descs {
		if lvl, ok := d.Level(); ok {
			out[lvl] = append(out[lvl], d)
		} else {
			shared = append(shared, d)
		}
	}
	if len(shared) == 0 {
		return out
	}
	for lvl := 1; lvl <= MaxLevel; lvl++ {
		out[lvl] = append(out[lvl], shared...)
	}
	return out
}
