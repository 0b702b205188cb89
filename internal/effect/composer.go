package effect

// BaseMultiplier is the damage multiplier with no active effects.
const BaseMultiplier = 1.0

// Condition decides whether an effect with the given activation tag applies.
// It is only consulted for descriptors that carry a non-empty tag.
type Condition func(tag string) bool

// Always is the default Condition: activation tags are not interpreted.
func Always(string) bool { return true }

// Composer turns a set of states into the instantaneous damage multiplier.
// The zero value is ready to use and treats every condition as met.
type Composer struct {
	cond Condition
}

// NewComposer returns a Composer using cond to evaluate activation tags.
// A nil cond means Always.
func NewComposer(cond Condition) Composer {
	return Composer{cond: cond}
}

// Compose returns BaseMultiplier plus the contribution of every active state.
func (c Composer) Compose(states []State) float64 {
	cond := c.cond
	if cond == nil {
		cond = Always
	}

	mul := BaseMultiplier
	for _, s := range states {
		if !s.Active() {
			continue
		}
		if tag := s.desc.Condition(); tag != "" && !cond(tag) {
			continue
		}
		mul += s.desc.Kind().Contribution(s.EffectiveMagnitude())
	}
	return mul
}
