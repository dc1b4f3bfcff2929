package wsv

import (
	"maps"
	"slices"

	"github.com/chriszhao1988/iroha/internal/model"
)

// TriggerReader is read-only access to a registry snapshot.
type TriggerReader interface {
	Get(id model.TriggerID) (model.Action, error)
	Inspect(id model.TriggerID, fn func(model.Action)) error
	IDs() []model.TriggerID
	Len() int
}

// TriggerSet is the trigger registry: a map from id to action.
//
// A TriggerSet handed to a ModifyTriggers closure is a private copy; the
// snapshot returned by Triggers must be treated as read-only.
type TriggerSet struct {
	actions map[model.TriggerID]model.Action
}

// NewTriggerSet returns an empty registry.
func NewTriggerSet() *TriggerSet {
	return &TriggerSet{actions: make(map[model.TriggerID]model.Action)}
}

func (s *TriggerSet) clone() *TriggerSet {
	return &TriggerSet{actions: maps.Clone(s.actions)}
}

// Get returns a copy of the action registered under id. Changing the copy
// does not change the registry.
func (s *TriggerSet) Get(id model.TriggerID) (model.Action, error) {
	a, ok := s.actions[id]
	if !ok {
		return model.Action{}, &model.FindError{Kind: model.FindTrigger, Key: string(id)}
	}
	return a.Clone(), nil
}

// Inspect calls fn with the stored action registered under id, without
// copying it. fn must not modify or retain the action's slices and maps.
func (s *TriggerSet) Inspect(id model.TriggerID, fn func(model.Action)) error {
	a, ok := s.actions[id]
	if !ok {
		return &model.FindError{Kind: model.FindTrigger, Key: string(id)}
	}
	fn(a)
	return nil
}

// Add inserts t. A duplicate id fails and leaves the registry unchanged.
func (s *TriggerSet) Add(t model.Trigger) error {
	if _, ok := s.actions[t.ID]; ok {
		return &model.RepetitionError{ID: t.ID}
	}
	s.actions[t.ID] = t.Action.Clone()
	return nil
}

// Remove deletes the trigger registered under id.
func (s *TriggerSet) Remove(id model.TriggerID) error {
	if _, ok := s.actions[id]; !ok {
		return &model.FindError{Kind: model.FindTrigger, Key: string(id)}
	}
	delete(s.actions, id)
	return nil
}

// ModRepeats replaces the remaining repeat count of id with fn(count).
// On error the count is unchanged. Triggers that repeat indefinitely have
// no count, so fn is not called and ModRepeats succeeds.
func (s *TriggerSet) ModRepeats(id model.TriggerID, fn func(uint32) (uint32, error)) error {
	a, ok := s.actions[id]
	if !ok {
		return &model.FindError{Kind: model.FindTrigger, Key: string(id)}
	}
	if a.Repeats.Indefinitely {
		return nil
	}
	n, err := fn(a.Repeats.Count)
	if err != nil {
		return err
	}
	a.Repeats = model.RepeatsExactly(n)
	s.actions[id] = a
	return nil
}

// IDs returns a sorted snapshot of registered ids.
func (s *TriggerSet) IDs() []model.TriggerID {
	ids := make([]model.TriggerID, 0, len(s.actions))
	for id := range s.actions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered triggers.
func (s *TriggerSet) Len() int {
	return len(s.actions)
}
