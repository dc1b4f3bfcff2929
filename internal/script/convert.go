package script

import (
	"fmt"
	"slices"
	"time"

	"github.com/chriszhao1988/iroha/internal/model"
)

// Genesis returns the script's genesis time. ok is false when the
// script does not set one.
func (s *Script) Genesis() (t time.Time, ok bool, err error) {
	if s.GenesisTime == "" {
		return time.Time{}, false, nil
	}
	t, err = parseTime(s.GenesisTime)
	if err != nil {
		return time.Time{}, false, convertError("genesis_time", err)
	}
	return t, true, nil
}

// ToBlocks converts every block of the script.
func (s *Script) ToBlocks() ([]model.Block, error) {
	blocks := make([]model.Block, 0, len(s.Blocks))
	for i, b := range s.Blocks {
		block, err := b.ToBlock()
		if err != nil {
			return nil, fmt.Errorf("blocks.%d: %w", i, err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// ToQueries converts every query of the script.
func (s *Script) ToQueries() ([]model.Query, error) {
	queries := make([]model.Query, 0, len(s.Queries))
	for i, q := range s.Queries {
		query, err := q.ToQuery()
		if err != nil {
			return nil, fmt.Errorf("queries.%d: %w", i, err)
		}
		queries = append(queries, query)
	}
	return queries, nil
}

// ToBlock converts the DTO into a model block.
func (b BlockDTO) ToBlock() (model.Block, error) {
	at, err := parseTime(b.Time)
	if err != nil {
		return model.Block{}, convertError("time", err)
	}
	block := model.Block{
		Height:       b.Height,
		Time:         at,
		Transactions: make([]model.Transaction, 0, len(b.Transactions)),
	}
	for i, tx := range b.Transactions {
		authority, err := model.ParseAccountID(tx.Authority)
		if err != nil {
			return model.Block{}, convertError(fmt.Sprintf("transactions.%d.authority", i), err)
		}
		instrs, err := toInstructions(tx.Instructions, fmt.Sprintf("transactions.%d.instructions", i))
		if err != nil {
			return model.Block{}, err
		}
		block.Transactions = append(block.Transactions, model.Transaction{Authority: authority, Instructions: instrs})
	}
	return block, nil
}

func toInstructions(dtos []InstructionDTO, path string) ([]model.Instruction, error) {
	out := make([]model.Instruction, 0, len(dtos))
	for i, dto := range dtos {
		instr, err := dto.ToInstruction()
		if err != nil {
			return nil, fmt.Errorf("%s.%d: %w", path, i, err)
		}
		out = append(out, instr)
	}
	return out, nil
}

// ToInstruction converts the single variant set on the DTO.
func (d InstructionDTO) ToInstruction() (model.Instruction, error) {
	switch {
	case d.RegisterTrigger != nil:
		t, err := d.RegisterTrigger.ToTrigger()
		if err != nil {
			return nil, err
		}
		return model.RegisterTrigger{Trigger: t}, nil
	case d.UnregisterTrigger != nil:
		id, err := triggerID("unregister_trigger.id", d.UnregisterTrigger.ID)
		if err != nil {
			return nil, err
		}
		return model.UnregisterTrigger{ID: id}, nil
	case d.MintTrigger != nil:
		id, err := triggerID("mint_trigger.id", d.MintTrigger.ID)
		if err != nil {
			return nil, err
		}
		return model.MintTrigger{ID: id, Repetitions: d.MintTrigger.Repetitions}, nil
	case d.BurnTrigger != nil:
		id, err := triggerID("burn_trigger.id", d.BurnTrigger.ID)
		if err != nil {
			return nil, err
		}
		return model.BurnTrigger{ID: id, Repetitions: d.BurnTrigger.Repetitions}, nil
	case d.ExecuteTrigger != nil:
		id, err := triggerID("execute_trigger.id", d.ExecuteTrigger.ID)
		if err != nil {
			return nil, err
		}
		return model.ExecuteTrigger{ID: id}, nil
	case d.Fail != nil:
		return model.Fail{Message: d.Fail.Message}, nil
	}
	return nil, &Error{Code: ErrCodeConvert, Message: "instruction has no variant"}
}

// ToTrigger converts the body of register_trigger.
func (d TriggerDTO) ToTrigger() (model.Trigger, error) {
	id, err := triggerID("register_trigger.id", d.ID)
	if err != nil {
		return model.Trigger{}, err
	}
	authority, err := model.ParseAccountID(d.Authority)
	if err != nil {
		return model.Trigger{}, convertError("register_trigger.authority", err)
	}
	filter, err := d.Filter.ToFilter()
	if err != nil {
		return model.Trigger{}, fmt.Errorf("register_trigger.filter: %w", err)
	}
	exec, err := toInstructions(d.Executable, "register_trigger.executable")
	if err != nil {
		return model.Trigger{}, err
	}

	var metadata model.Metadata
	if len(d.Metadata) > 0 {
		metadata = make(model.Metadata, len(d.Metadata))
		for k, raw := range d.Metadata {
			v, err := model.ValueFromAny(raw)
			if err != nil {
				return model.Trigger{}, convertError("register_trigger.metadata."+k, err)
			}
			metadata[k] = v
		}
	}

	repeats := model.RepeatsExactly(d.Repeats.Count)
	if d.Repeats.Indefinitely {
		repeats = model.RepeatsIndefinitely()
	}

	return model.NewTrigger(id, model.Action{
		Executable: exec,
		Repeats:    repeats,
		Authority:  authority,
		Filter:     filter,
		Metadata:   metadata,
	}), nil
}

// ToFilter converts the single variant set on the DTO.
func (d FilterDTO) ToFilter() (model.EventFilter, error) {
	switch {
	case d.Data != nil:
		f := model.DataEventFilter{}
		if d.Data.TriggerID != "" {
			id, err := triggerID("data.trigger_id", d.Data.TriggerID)
			if err != nil {
				return nil, err
			}
			f.TriggerID = &id
		}
		for _, k := range d.Data.Kinds {
			kind := model.TriggerEventKind(k)
			if !slices.Contains(model.TriggerEventKinds(), kind) {
				return nil, &Error{Code: ErrCodeConvert, Path: "data.kinds", Message: fmt.Sprintf("unknown event kind %q", k)}
			}
			f.Kinds = append(f.Kinds, kind)
		}
		return f, nil

	case d.ExecuteTrigger != nil:
		id, err := triggerID("execute_trigger.trigger_id", d.ExecuteTrigger.TriggerID)
		if err != nil {
			return nil, err
		}
		authority, err := model.ParseAccountID(d.ExecuteTrigger.Authority)
		if err != nil {
			return nil, convertError("execute_trigger.authority", err)
		}
		return model.ExecuteTriggerEventFilter{TriggerID: id, Authority: authority}, nil

	case d.Time != nil:
		if d.Time.Schedule == nil {
			return model.TimeEventFilter{Time: model.PreCommit{}}, nil
		}
		start, err := parseTime(d.Time.Schedule.Start)
		if err != nil {
			return nil, convertError("time.schedule.start", err)
		}
		schedule := model.NewSchedule(start)
		if d.Time.Schedule.Period != "" {
			period, err := time.ParseDuration(d.Time.Schedule.Period)
			if err != nil {
				return nil, convertError("time.schedule.period", err)
			}
			if period <= 0 {
				return nil, &Error{Code: ErrCodeConvert, Path: "time.schedule.period", Message: "period must be positive"}
			}
			schedule = schedule.WithPeriod(period)
		}
		return model.TimeEventFilter{Time: schedule}, nil

	case d.Notification != nil:
		f, err := d.Notification.ToNotificationFilter()
		if err != nil {
			return nil, err
		}
		return model.NotificationTriggerFilter{Filter: f}, nil
	}
	return nil, &Error{Code: ErrCodeConvert, Message: "filter has no variant"}
}

// ToNotificationFilter converts the DTO into a notification filter.
func (d NotificationFilterDTO) ToNotificationFilter() (model.NotificationEventFilter, error) {
	if d.TriggerCompleted == nil {
		return model.AcceptAllFilter{}, nil
	}
	f := model.TriggerCompletedEventFilter{}
	if d.TriggerCompleted.TriggerID != "" {
		id, err := triggerID("trigger_completed.trigger_id", d.TriggerCompleted.TriggerID)
		if err != nil {
			return nil, err
		}
		f = f.ForTrigger(id)
	}
	if d.TriggerCompleted.Outcome != "" {
		t, err := model.ParseOutcomeType(d.TriggerCompleted.Outcome)
		if err != nil {
			return nil, convertError("trigger_completed.outcome", err)
		}
		f = f.ForOutcome(t)
	}
	return f, nil
}

// ToQuery converts the single variant set on the DTO.
func (d QueryDTO) ToQuery() (model.Query, error) {
	switch {
	case d.FindAllActiveIDs != nil:
		return model.FindAllActiveTriggerIDs{}, nil
	case d.FindTriggerByID != nil:
		id, err := d.FindTriggerByID.ID.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("find_trigger_by_id.id: %w", err)
		}
		return model.FindTriggerByID{ID: id}, nil
	case d.FindTriggerKeyValue != nil:
		id, err := d.FindTriggerKeyValue.ID.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("find_trigger_key_value_by_id_and_key.id: %w", err)
		}
		key, err := d.FindTriggerKeyValue.Key.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("find_trigger_key_value_by_id_and_key.key: %w", err)
		}
		return model.FindTriggerKeyValueByIDAndKey{ID: id, Key: key}, nil
	}
	return nil, &Error{Code: ErrCodeConvert, Message: "query has no variant"}
}

// Label names the query in results: its name when set, otherwise its
// position.
func (d QueryDTO) Label(index int) string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("query_%d", index)
}

// ToExpression converts the DTO into an expression tree. An expression
// with no variant set is the literal null.
func (d ExpressionDTO) ToExpression() (model.Expression, error) {
	switch {
	case d.Context != "":
		return model.ContextValue{Name: d.Context}, nil
	case d.Query != nil:
		q, err := d.Query.ToQuery()
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		return model.QueryExpression{Query: q}, nil
	case d.Where != nil:
		inner, err := d.Where.Expression.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("where.expression: %w", err)
		}
		values := make(map[string]model.Expression, len(d.Where.Values))
		for name, dto := range d.Where.Values {
			v, err := dto.ToExpression()
			if err != nil {
				return nil, fmt.Errorf("where.values.%s: %w", name, err)
			}
			values[name] = v
		}
		return model.Where{Expression: inner, Values: values}, nil
	case d.If != nil:
		cond, err := d.If.Condition.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("if.condition: %w", err)
		}
		then, err := d.If.Then.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("if.then: %w", err)
		}
		els, err := d.If.Else.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("if.else: %w", err)
		}
		return model.If{Condition: cond, Then: then, Else: els}, nil
	case d.Equal != nil:
		left, err := d.Equal.Left.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("equal.left: %w", err)
		}
		right, err := d.Equal.Right.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("equal.right: %w", err)
		}
		return model.Equal{Left: left, Right: right}, nil
	case d.Not != nil:
		inner, err := d.Not.ToExpression()
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return model.Not{Expression: inner}, nil
	}

	v, err := model.ValueFromAny(d.Raw)
	if err != nil {
		return nil, convertError("raw", err)
	}
	return model.Lit(v), nil
}

func triggerID(path, s string) (model.TriggerID, error) {
	id, err := model.NewTriggerID(s)
	if err != nil {
		return "", convertError(path, err)
	}
	return id, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
