// Package effect models combat effects extracted from talent text and the
// per-run state that tracks them.
//
// A Descriptor is an immutable buff/debuff. Initialize and Tick move a set of
// descriptors through a run as State values, and a Composer reduces the
// active states to a damage multiplier using the per-kind table in kind.go.
package effect
