package wsv

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/chriszhao1988/iroha/internal/model"
)

// world is one immutable snapshot of ledger state.
type world struct {
	triggers *TriggerSet
	events   []model.TriggerEvent
	requests []model.ExecuteTriggerRequest
}

func (w *world) clone() *world {
	return &world{
		triggers: w.triggers.clone(),
		events:   slices.Clone(w.events),
		requests: slices.Clone(w.requests),
	}
}

// WorldStateView is the shared world state.
//
// Thread-safety model:
//   - ModifyTriggers, ExecuteTrigger, Rollback, DrainEvents: serialized by mu
//   - Triggers, Checkpoint: lock-free snapshot loads
type WorldStateView struct {
	mu      sync.Mutex
	current atomic.Pointer[world]
}

// New returns a world with an empty trigger registry.
func New() *WorldStateView {
	v := &WorldStateView{}
	v.current.Store(&world{triggers: NewTriggerSet()})
	return v
}

// ModifyTriggers runs fn against a private copy of the registry. If fn
// succeeds the copy and the returned event become the current state; if it
// fails nothing changes and fn's error is returned untouched.
func (v *WorldStateView) ModifyTriggers(fn func(*TriggerSet) (model.TriggerEvent, error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := v.current.Load().clone()
	ev, err := fn(next.triggers)
	if err != nil {
		return err
	}
	next.events = append(next.events, ev)
	v.current.Store(next)
	return nil
}

// ExecuteTrigger records a request to run id's action under authority.
// The outcome is reported later as a notification event.
func (v *WorldStateView) ExecuteTrigger(id model.TriggerID, authority model.AccountID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := v.current.Load().clone()
	next.requests = append(next.requests, model.ExecuteTriggerRequest{TriggerID: id, Authority: authority})
	v.current.Store(next)
}

// Triggers returns the current registry snapshot.
func (v *WorldStateView) Triggers() TriggerReader {
	return v.current.Load().triggers
}

// Checkpoint captures the whole current state.
type Checkpoint struct {
	w *world
}

// Checkpoint returns a handle that Rollback can restore.
func (v *WorldStateView) Checkpoint() Checkpoint {
	return Checkpoint{w: v.current.Load()}
}

// Rollback restores the state captured by cp, discarding every mutation,
// pending event and request recorded since.
func (v *WorldStateView) Rollback(cp Checkpoint) {
	if cp.w == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current.Store(cp.w)
}

// DrainEvents returns and clears the pending lifecycle events and execute
// requests, in emission order.
func (v *WorldStateView) DrainEvents() ([]model.TriggerEvent, []model.ExecuteTriggerRequest) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cur := v.current.Load()
	if len(cur.events) == 0 && len(cur.requests) == 0 {
		return nil, nil
	}
	next := &world{triggers: cur.triggers}
	v.current.Store(next)
	return cur.events, cur.requests
}

// ConsumeRepeat spends one execution of id after a trigger run. An
// Exactly(n) count drops by one and a trigger left with no executions is
// removed. No lifecycle event is emitted. Returns the remaining repeats and
// whether the trigger was removed; an unknown id is a no-op.
func (v *WorldStateView) ConsumeRepeat(id model.TriggerID) (model.Repeats, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cur := v.current.Load()
	a, err := cur.triggers.Get(id)
	if err != nil {
		return model.Repeats{}, false
	}
	if a.Repeats.Indefinitely {
		return a.Repeats, false
	}

	next := cur.clone()
	if a.Repeats.Count <= 1 {
		delete(next.triggers.actions, id)
		v.current.Store(next)
		return model.RepeatsExactly(0), true
	}
	a.Repeats = model.RepeatsExactly(a.Repeats.Count - 1)
	next.triggers.actions[id] = a
	v.current.Store(next)
	return a.Repeats, false
}

// Prune removes id if it has no executions left. Returns whether it did.
func (v *WorldStateView) Prune(id model.TriggerID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	cur := v.current.Load()
	a, err := cur.triggers.Get(id)
	if err != nil || !a.Repeats.Exhausted() {
		return false
	}
	next := cur.clone()
	delete(next.triggers.actions, id)
	v.current.Store(next)
	return true
}
