package model

// Query is a sealed interface for read-only requests against world state.
// Implemented by FindAllActiveTriggerIDs, FindTriggerByID and
// FindTriggerKeyValueByIDAndKey.
type Query interface {
	QueryName() string
	query()
}

// FindAllActiveTriggerIDs lists every registered trigger id.
type FindAllActiveTriggerIDs struct{}

// FindTriggerByID looks up a trigger by an evaluated id.
type FindTriggerByID struct {
	ID Expression
}

// FindTriggerKeyValueByIDAndKey looks up one metadata value of a trigger.
type FindTriggerKeyValueByIDAndKey struct {
	ID  Expression
	Key Expression
}

func (FindAllActiveTriggerIDs) QueryName() string       { return "find_all_active_trigger_ids" }
func (FindTriggerByID) QueryName() string               { return "find_trigger_by_id" }
func (FindTriggerKeyValueByIDAndKey) QueryName() string { return "find_trigger_key_value_by_id_and_key" }

func (FindAllActiveTriggerIDs) query()       {}
func (FindTriggerByID) query()               {}
func (FindTriggerKeyValueByIDAndKey) query() {}

// QueryNames returns every query name in declaration order.
func QueryNames() []string {
	return []string{
		FindAllActiveTriggerIDs{}.QueryName(),
		FindTriggerByID{}.QueryName(),
		FindTriggerKeyValueByIDAndKey{}.QueryName(),
	}
}
