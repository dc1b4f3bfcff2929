package model

import (
	"fmt"
	"slices"
)

// Repeats is the repeat policy of an action: either unlimited, or an exact
// number of remaining executions.
type Repeats struct {
	// Indefinitely means the action may fire without limit. Count is
	// ignored when set.
	Indefinitely bool

	// Count is the number of remaining executions.
	Count uint32
}

// RepeatsIndefinitely returns the unlimited repeat policy.
func RepeatsIndefinitely() Repeats {
	return Repeats{Indefinitely: true}
}

// RepeatsExactly returns a policy with exactly n remaining executions.
func RepeatsExactly(n uint32) Repeats {
	return Repeats{Count: n}
}

// IsExactly reports whether r is Exactly(n).
func (r Repeats) IsExactly(n uint32) bool {
	return !r.Indefinitely && r.Count == n
}

// Exhausted reports whether no executions remain.
func (r Repeats) Exhausted() bool {
	return !r.Indefinitely && r.Count == 0
}

func (r Repeats) String() string {
	if r.Indefinitely {
		return "indefinitely"
	}
	return fmt.Sprintf("exactly(%d)", r.Count)
}

// Action is what a trigger does: the instructions to run, how many times,
// on whose behalf, and in reaction to which events.
type Action struct {
	Executable []Instruction
	Repeats    Repeats
	Authority  AccountID
	Filter     EventFilter
	Metadata   Metadata
}

// OccursExactlyAtTime reports whether the action fires exactly once at a
// fixed instant: a time schedule with no recurring period.
func (a Action) OccursExactlyAtTime() bool {
	tf, ok := a.Filter.(TimeEventFilter)
	if !ok {
		return false
	}
	s, ok := tf.Time.(Schedule)
	return ok && s.Period == nil
}

// Clone returns a copy of a whose slices and maps are not shared with a.
// Triggers nested in Register instructions are cloned as well.
func (a Action) Clone() Action {
	out := a
	out.Executable = slices.Clone(a.Executable)
	for i, instr := range out.Executable {
		if r, ok := instr.(RegisterTrigger); ok {
			out.Executable[i] = RegisterTrigger{Trigger: NewTrigger(r.Trigger.ID, r.Trigger.Action.Clone())}
		}
	}
	out.Metadata = a.Metadata.Clone()
	return out
}

// Trigger is a named, authority-owned, conditionally-repeating action.
type Trigger struct {
	ID     TriggerID
	Action Action
}

func (Trigger) value() {}

// NewTrigger builds a trigger from its id and action.
func NewTrigger(id TriggerID, action Action) Trigger {
	return Trigger{ID: id, Action: action}
}

// Summary renders the trigger as a Map for uniform transport and display.
// Executable instructions are rendered by kind only.
func (t Trigger) Summary() Map {
	kinds := make(Vec, len(t.Action.Executable))
	for i, instr := range t.Action.Executable {
		kinds[i] = String(instr.Kind())
	}
	metadata := make(Map, len(t.Action.Metadata))
	for k, v := range t.Action.Metadata {
		metadata[k] = v
	}
	filter := "none"
	if t.Action.Filter != nil {
		filter = t.Action.Filter.FilterKind()
	}
	return Map{
		"id":         t.ID,
		"repeats":    String(t.Action.Repeats.String()),
		"authority":  t.Action.Authority,
		"filter":     String(filter),
		"executable": kinds,
		"metadata":   metadata,
	}
}
