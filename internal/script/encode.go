package script

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chriszhao1988/iroha/internal/model"
)

// MarshalBlock encodes b as a JSON script block. The encoding is
// deterministic and parses back with UnmarshalBlock, so it serves as the
// stored block payload that replay re-executes.
func MarshalBlock(b model.Block) ([]byte, error) {
	dto, err := FromBlock(b)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal block %d: %w", b.Height, err)
	}
	return data, nil
}

// UnmarshalBlock decodes a payload produced by MarshalBlock.
func UnmarshalBlock(data []byte) (model.Block, error) {
	s, err := Parse(append(append([]byte(`{"blocks":[`), data...), "]}"...))
	if err != nil {
		return model.Block{}, fmt.Errorf("unmarshal block: %w", err)
	}
	if len(s.Blocks) != 1 {
		return model.Block{}, fmt.Errorf("unmarshal block: expected one block, got %d", len(s.Blocks))
	}
	return s.Blocks[0].ToBlock()
}

// FromBlock converts a model block into its script form.
func FromBlock(b model.Block) (BlockDTO, error) {
	dto := BlockDTO{
		Height: b.Height,
		Time:   b.Time.UTC().Format(time.RFC3339Nano),
	}
	for i, tx := range b.Transactions {
		instrs, err := fromInstructions(tx.Instructions)
		if err != nil {
			return BlockDTO{}, fmt.Errorf("transactions.%d: %w", i, err)
		}
		dto.Transactions = append(dto.Transactions, TransactionDTO{
			Authority:    tx.Authority.String(),
			Instructions: instrs,
		})
	}
	return dto, nil
}

func fromInstructions(instrs []model.Instruction) ([]InstructionDTO, error) {
	out := make([]InstructionDTO, 0, len(instrs))
	for i, instr := range instrs {
		dto, err := fromInstruction(instr)
		if err != nil {
			return nil, fmt.Errorf("instructions.%d: %w", i, err)
		}
		out = append(out, dto)
	}
	return out, nil
}

func fromInstruction(instr model.Instruction) (InstructionDTO, error) {
	switch in := instr.(type) {
	case model.RegisterTrigger:
		t, err := fromTrigger(in.Trigger)
		if err != nil {
			return InstructionDTO{}, err
		}
		return InstructionDTO{RegisterTrigger: &t}, nil
	case model.UnregisterTrigger:
		return InstructionDTO{UnregisterTrigger: &TriggerRefDTO{ID: string(in.ID)}}, nil
	case model.MintTrigger:
		return InstructionDTO{MintTrigger: &RepetitionsDTO{ID: string(in.ID), Repetitions: in.Repetitions}}, nil
	case model.BurnTrigger:
		return InstructionDTO{BurnTrigger: &RepetitionsDTO{ID: string(in.ID), Repetitions: in.Repetitions}}, nil
	case model.ExecuteTrigger:
		return InstructionDTO{ExecuteTrigger: &TriggerRefDTO{ID: string(in.ID)}}, nil
	case model.Fail:
		return InstructionDTO{Fail: &FailDTO{Message: in.Message}}, nil
	}
	return InstructionDTO{}, fmt.Errorf("unsupported instruction %T", instr)
}

func fromTrigger(t model.Trigger) (TriggerDTO, error) {
	filter, err := fromFilter(t.Action.Filter)
	if err != nil {
		return TriggerDTO{}, fmt.Errorf("register_trigger %s: %w", t.ID, err)
	}
	exec, err := fromInstructions(t.Action.Executable)
	if err != nil {
		return TriggerDTO{}, fmt.Errorf("register_trigger %s: %w", t.ID, err)
	}
	dto := TriggerDTO{
		ID:         string(t.ID),
		Authority:  t.Action.Authority.String(),
		Repeats:    RepeatsDTO{Indefinitely: t.Action.Repeats.Indefinitely, Count: t.Action.Repeats.Count},
		Filter:     filter,
		Executable: exec,
	}
	if len(t.Action.Metadata) > 0 {
		dto.Metadata = make(map[string]any, len(t.Action.Metadata))
		for k, v := range t.Action.Metadata {
			dto.Metadata[k] = model.ValueToAny(v)
		}
	}
	return dto, nil
}

func fromFilter(f model.EventFilter) (FilterDTO, error) {
	switch filter := f.(type) {
	case model.DataEventFilter:
		d := &DataFilterDTO{}
		if filter.TriggerID != nil {
			d.TriggerID = string(*filter.TriggerID)
		}
		for _, k := range filter.Kinds {
			d.Kinds = append(d.Kinds, string(k))
		}
		return FilterDTO{Data: d}, nil
	case model.ExecuteTriggerEventFilter:
		return FilterDTO{ExecuteTrigger: &ExecuteTriggerFilterDTO{
			TriggerID: string(filter.TriggerID),
			Authority: filter.Authority.String(),
		}}, nil
	case model.TimeEventFilter:
		switch at := filter.Time.(type) {
		case model.PreCommit:
			return FilterDTO{Time: &TimeFilterDTO{PreCommit: true}}, nil
		case model.Schedule:
			s := &ScheduleDTO{Start: at.Start.UTC().Format(time.RFC3339Nano)}
			if at.Period != nil {
				s.Period = at.Period.String()
			}
			return FilterDTO{Time: &TimeFilterDTO{Schedule: s}}, nil
		}
		return FilterDTO{}, fmt.Errorf("unsupported execution time %T", filter.Time)
	case model.NotificationTriggerFilter:
		n, err := fromNotificationFilter(filter.Filter)
		if err != nil {
			return FilterDTO{}, err
		}
		return FilterDTO{Notification: n}, nil
	}
	return FilterDTO{}, fmt.Errorf("unsupported filter %T", f)
}

func fromNotificationFilter(f model.NotificationEventFilter) (*NotificationFilterDTO, error) {
	switch filter := f.(type) {
	case model.AcceptAllFilter:
		return &NotificationFilterDTO{AcceptAll: true}, nil
	case model.TriggerCompletedEventFilter:
		tc := &TriggerCompletedFilterDTO{}
		if filter.TriggerID != nil {
			tc.TriggerID = string(*filter.TriggerID)
		}
		if filter.OutcomeType != nil {
			tc.Outcome = filter.OutcomeType.String()
		}
		return &NotificationFilterDTO{TriggerCompleted: tc}, nil
	}
	return nil, fmt.Errorf("unsupported notification filter %T", f)
}
