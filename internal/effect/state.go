package effect

// expiryEpsilon absorbs float drift from repeated tick subtraction so a 10s
// effect expires after exactly 100 ticks of 0.1s.
const expiryEpsilon = 1e-9

// State tracks one descriptor through a simulation run.
// States are values: Tick returns new states and never mutates its input.
type State struct {
	desc        Descriptor
	remaining   float64
	stacks      int
	autoRestart bool
	fullStacks  bool
}

// Descriptor returns the descriptor this state runs.
func (s State) Descriptor() Descriptor { return s.desc }

// Remaining returns the seconds left before expiry. Meaningless for permanent effects.
func (s State) Remaining() float64 { return s.remaining }

// Stacks returns the current stack count, 0 once a one-shot effect has expired.
func (s State) Stacks() int { return s.stacks }

// AutoRestart reports whether the state re-initializes itself on expiry.
func (s State) AutoRestart() bool { return s.autoRestart }

// Active reports whether the state contributes to the multiplier.
func (s State) Active() bool {
	if s.stacks <= 0 {
		return false
	}
	return s.desc.IsPermanent() || s.remaining > 0
}

// EffectiveMagnitude is the descriptor magnitude scaled by the current stacks.
func (s State) EffectiveMagnitude() float64 {
	return s.desc.Magnitude() * float64(s.stacks)
}

// TrackerOptions controls how states are initialized.
type TrackerOptions struct {
	// AutoRestart re-initializes timed effects the moment they expire, modelling
	// a perpetually re-triggering effect. When false an expired effect goes inert.
	AutoRestart bool
	// FullStacks starts stackable effects at MaxStacks instead of 1.
	FullStacks bool
}

// Initialize creates a fresh state for every descriptor, in order.
func Initialize(descs []Descriptor, opts TrackerOptions) []State {
	states := make([]State, len(descs))
	for i, d := range descs {
		states[i] = newState(d, opts.AutoRestart, opts.FullStacks)
	}
	return states
}

func newState(d Descriptor, autoRestart, fullStacks bool) State {
	s := State{
		desc:        d,
		stacks:      1,
		autoRestart: autoRestart,
		fullStacks:  fullStacks,
	}
	if !d.IsPermanent() {
		s.remaining = d.DurationSeconds()
	}
	if fullStacks && d.Stackable() {
		s.stacks = d.MaxStacks()
	}
	return s
}

// Tick advances every state by dt seconds and returns the new states.
func Tick(states []State, dt float64) []State {
	next := make([]State, len(states))
	for i, s := range states {
		next[i] = s.tick(dt)
	}
	return next
}

func (s State) tick(dt float64) State {
	if s.desc.IsPermanent() || s.stacks == 0 {
		return s
	}
	s.remaining -= dt
	if s.remaining > expiryEpsilon {
		return s
	}
	s.remaining = 0
	if s.autoRestart {
		return newState(s.desc, s.autoRestart, s.fullStacks)
	}
	s.stacks = 0
	return s
}
