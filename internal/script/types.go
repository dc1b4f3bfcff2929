package script

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Script is a decoded ledger script.
type Script struct {
	GenesisTime string     `yaml:"genesis_time,omitempty" json:"genesis_time,omitempty"`
	Blocks      []BlockDTO `yaml:"blocks,omitempty" json:"blocks,omitempty"`
	Queries     []QueryDTO `yaml:"queries,omitempty" json:"queries,omitempty"`
}

// BlockDTO is a block as written in a script.
type BlockDTO struct {
	Height       uint64           `yaml:"height" json:"height"`
	Time         string           `yaml:"time" json:"time"`
	Transactions []TransactionDTO `yaml:"transactions,omitempty" json:"transactions,omitempty"`
}

// TransactionDTO is a transaction as written in a script.
type TransactionDTO struct {
	Authority    string           `yaml:"authority" json:"authority"`
	Instructions []InstructionDTO `yaml:"instructions" json:"instructions"`
}

// InstructionDTO holds exactly one instruction variant.
type InstructionDTO struct {
	RegisterTrigger   *TriggerDTO     `yaml:"register_trigger,omitempty" json:"register_trigger,omitempty"`
	UnregisterTrigger *TriggerRefDTO  `yaml:"unregister_trigger,omitempty" json:"unregister_trigger,omitempty"`
	MintTrigger       *RepetitionsDTO `yaml:"mint_trigger,omitempty" json:"mint_trigger,omitempty"`
	BurnTrigger       *RepetitionsDTO `yaml:"burn_trigger,omitempty" json:"burn_trigger,omitempty"`
	ExecuteTrigger    *TriggerRefDTO  `yaml:"execute_trigger,omitempty" json:"execute_trigger,omitempty"`
	Fail              *FailDTO        `yaml:"fail,omitempty" json:"fail,omitempty"`
}

// TriggerRefDTO names a trigger.
type TriggerRefDTO struct {
	ID string `yaml:"id" json:"id"`
}

// RepetitionsDTO is the body of mint_trigger and burn_trigger.
type RepetitionsDTO struct {
	ID          string `yaml:"id" json:"id"`
	Repetitions uint32 `yaml:"repetitions" json:"repetitions"`
}

// FailDTO is the body of fail.
type FailDTO struct {
	Message string `yaml:"message" json:"message"`
}

// TriggerDTO is the body of register_trigger.
type TriggerDTO struct {
	ID         string           `yaml:"id" json:"id"`
	Authority  string           `yaml:"authority" json:"authority"`
	Repeats    RepeatsDTO       `yaml:"repeats" json:"repeats"`
	Filter     FilterDTO        `yaml:"filter" json:"filter"`
	Executable []InstructionDTO `yaml:"executable,omitempty" json:"executable,omitempty"`
	Metadata   map[string]any   `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// RepeatsDTO is either the string "indefinitely" or a count.
type RepeatsDTO struct {
	Indefinitely bool
	Count        uint32
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RepeatsDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: repeats must be a count or \"indefinitely\"", node.Line)
	}
	if node.Value == "indefinitely" {
		*r = RepeatsDTO{Indefinitely: true}
		return nil
	}
	n, err := strconv.ParseUint(node.Value, 10, 32)
	if err != nil {
		return fmt.Errorf("line %d: repeats: %w", node.Line, err)
	}
	*r = RepeatsDTO{Count: uint32(n)}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r RepeatsDTO) MarshalJSON() ([]byte, error) {
	if r.Indefinitely {
		return []byte(`"indefinitely"`), nil
	}
	return []byte(strconv.FormatUint(uint64(r.Count), 10)), nil
}

// FilterDTO holds exactly one event filter variant.
type FilterDTO struct {
	Data           *DataFilterDTO           `yaml:"data,omitempty" json:"data,omitempty"`
	ExecuteTrigger *ExecuteTriggerFilterDTO `yaml:"execute_trigger,omitempty" json:"execute_trigger,omitempty"`
	Time           *TimeFilterDTO           `yaml:"time,omitempty" json:"time,omitempty"`
	Notification   *NotificationFilterDTO   `yaml:"notification,omitempty" json:"notification,omitempty"`
}

// DataFilterDTO matches lifecycle events.
type DataFilterDTO struct {
	TriggerID string   `yaml:"trigger_id,omitempty" json:"trigger_id,omitempty"`
	Kinds     []string `yaml:"kinds,omitempty" json:"kinds,omitempty"`
}

// ExecuteTriggerFilterDTO matches execute requests.
type ExecuteTriggerFilterDTO struct {
	TriggerID string `yaml:"trigger_id" json:"trigger_id"`
	Authority string `yaml:"authority" json:"authority"`
}

// TimeFilterDTO is either precommit or a schedule.
type TimeFilterDTO struct {
	PreCommit bool         `yaml:"precommit,omitempty" json:"precommit,omitempty"`
	Schedule  *ScheduleDTO `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

// ScheduleDTO is a start time and an optional Go duration period.
type ScheduleDTO struct {
	Start  string `yaml:"start" json:"start"`
	Period string `yaml:"period,omitempty" json:"period,omitempty"`
}

// NotificationFilterDTO is accept_all or a TriggerCompleted filter.
type NotificationFilterDTO struct {
	AcceptAll        bool                       `yaml:"accept_all,omitempty" json:"accept_all,omitempty"`
	TriggerCompleted *TriggerCompletedFilterDTO `yaml:"trigger_completed,omitempty" json:"trigger_completed,omitempty"`
}

// TriggerCompletedFilterDTO has optional trigger id and outcome fields.
type TriggerCompletedFilterDTO struct {
	TriggerID string `yaml:"trigger_id,omitempty" json:"trigger_id,omitempty"`
	Outcome   string `yaml:"outcome,omitempty" json:"outcome,omitempty"`
}

// QueryDTO holds exactly one query variant plus an optional name used to
// label its result.
type QueryDTO struct {
	Name                string           `yaml:"name,omitempty" json:"name,omitempty"`
	FindAllActiveIDs    *struct{}        `yaml:"find_all_active_trigger_ids,omitempty" json:"find_all_active_trigger_ids,omitempty"`
	FindTriggerByID     *FindByIDDTO     `yaml:"find_trigger_by_id,omitempty" json:"find_trigger_by_id,omitempty"`
	FindTriggerKeyValue *FindKeyValueDTO `yaml:"find_trigger_key_value_by_id_and_key,omitempty" json:"find_trigger_key_value_by_id_and_key,omitempty"`
}

// FindByIDDTO is the body of find_trigger_by_id.
type FindByIDDTO struct {
	ID ExpressionDTO `yaml:"id" json:"id"`
}

// FindKeyValueDTO is the body of find_trigger_key_value_by_id_and_key.
type FindKeyValueDTO struct {
	ID  ExpressionDTO `yaml:"id" json:"id"`
	Key ExpressionDTO `yaml:"key" json:"key"`
}

// ExpressionDTO holds one expression variant. A bare scalar in YAML is
// shorthand for raw.
type ExpressionDTO struct {
	Raw     any            `yaml:"raw,omitempty" json:"raw,omitempty"`
	Context string         `yaml:"context,omitempty" json:"context,omitempty"`
	Query   *QueryDTO      `yaml:"query,omitempty" json:"query,omitempty"`
	Where   *WhereDTO      `yaml:"where,omitempty" json:"where,omitempty"`
	If      *IfDTO         `yaml:"if,omitempty" json:"if,omitempty"`
	Equal   *EqualDTO      `yaml:"equal,omitempty" json:"equal,omitempty"`
	Not     *ExpressionDTO `yaml:"not,omitempty" json:"not,omitempty"`
}

// EqualDTO compares two expressions.
type EqualDTO struct {
	Left  ExpressionDTO `yaml:"left" json:"left"`
	Right ExpressionDTO `yaml:"right" json:"right"`
}

// WhereDTO binds values before evaluating an inner expression.
type WhereDTO struct {
	Expression ExpressionDTO            `yaml:"expression" json:"expression"`
	Values     map[string]ExpressionDTO `yaml:"values,omitempty" json:"values,omitempty"`
}

// IfDTO is a conditional expression.
type IfDTO struct {
	Condition ExpressionDTO `yaml:"condition" json:"condition"`
	Then      ExpressionDTO `yaml:"then" json:"then"`
	Else      ExpressionDTO `yaml:"else" json:"else"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *ExpressionDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode || node.Kind == yaml.SequenceNode {
		var raw any
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*e = ExpressionDTO{Raw: raw}
		return nil
	}
	type plain ExpressionDTO
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = ExpressionDTO(p)
	return nil
}
