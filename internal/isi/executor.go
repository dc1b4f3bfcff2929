// Package isi executes ledger instructions against the world state view.
//
// Every instruction either commits its full effect (registry mutation plus
// lifecycle event) through wsv.WorldStateView.ModifyTriggers or fails with
// an *Error and leaves the world unchanged. The executor holds no locks.
package isi

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/telemetry"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// Executor applies instructions.
type Executor struct {
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records every executed instruction in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor returns an Executor configured by opts.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies instr on behalf of authority.
func (e *Executor) Execute(instr model.Instruction, authority model.AccountID, view *wsv.WorldStateView) error {
	var err error
	switch in := instr.(type) {
	case model.RegisterTrigger:
		err = e.executeRegister(in, view)
	case model.UnregisterTrigger:
		err = e.executeUnregister(in, view)
	case model.MintTrigger:
		err = e.executeMint(in, view)
	case model.BurnTrigger:
		err = e.executeBurn(in, view)
	case model.ExecuteTrigger:
		view.ExecuteTrigger(in.ID, authority)
	case model.Fail:
		err = &FailError{Message: in.Message}
	default:
		e.metrics.ObserveInstruction("unknown", fmt.Errorf("unsupported"))
		return &Error{Code: ErrCodeUnsupported, Instruction: "unknown", Err: fmt.Errorf("unsupported instruction type %T", instr)}
	}

	kind := instr.Kind()
	e.metrics.ObserveInstruction(string(kind), err)
	if err != nil {
		e.logger.Debug("instruction failed",
			"instruction", kind,
			"authority", authority.String(),
			"error", err,
		)
		return wrap(kind, err)
	}
	e.logger.Debug("instruction executed",
		"instruction", kind,
		"authority", authority.String(),
	)
	return nil
}

// checkSchedule enforces the one-shot invariant: an action that fires once
// at a fixed instant must repeat exactly once.
func checkSchedule(id model.TriggerID, a model.Action) error {
	if a.OccursExactlyAtTime() && !a.Repeats.IsExactly(1) {
		return &model.ScheduleError{
			ID:      id,
			Repeats: a.Repeats,
			Reason:  "a trigger scheduled at a single instant must repeat exactly once",
		}
	}
	return nil
}

func validateTrigger(t model.Trigger) error {
	if err := model.ValidateName(string(t.ID)); err != nil {
		return &validationError{msg: "trigger id", err: err}
	}
	if t.Action.Filter == nil {
		return &validationError{msg: fmt.Sprintf("trigger `%s` has no event filter", t.ID)}
	}
	if t.Action.Authority.IsZero() {
		return &validationError{msg: fmt.Sprintf("trigger `%s` has no authority", t.ID)}
	}
	if err := t.Action.Metadata.Validate(); err != nil {
		return &validationError{msg: fmt.Sprintf("trigger `%s`", t.ID), err: err}
	}
	return checkSchedule(t.ID, t.Action)
}

func (e *Executor) executeRegister(in model.RegisterTrigger, view *wsv.WorldStateView) error {
	if err := validateTrigger(in.Trigger); err != nil {
		return err
	}
	return view.ModifyTriggers(func(s *wsv.TriggerSet) (model.TriggerEvent, error) {
		if err := s.Add(in.Trigger); err != nil {
			return model.TriggerEvent{}, err
		}
		return model.Created(in.Trigger.ID), nil
	})
}

func (e *Executor) executeUnregister(in model.UnregisterTrigger, view *wsv.WorldStateView) error {
	return view.ModifyTriggers(func(s *wsv.TriggerSet) (model.TriggerEvent, error) {
		if err := s.Remove(in.ID); err != nil {
			return model.TriggerEvent{}, err
		}
		return model.Deleted(in.ID), nil
	})
}

// executeMint rejects one-shot triggers before any arithmetic, so even a
// zero amount fails for them.
func (e *Executor) executeMint(in model.MintTrigger, view *wsv.WorldStateView) error {
	return view.ModifyTriggers(func(s *wsv.TriggerSet) (model.TriggerEvent, error) {
		a, err := s.Get(in.ID)
		if err != nil {
			return model.TriggerEvent{}, err
		}
		if a.OccursExactlyAtTime() {
			return model.TriggerEvent{}, &model.ScheduleError{
				ID:      in.ID,
				Repeats: a.Repeats,
				Reason:  "a trigger scheduled at a single instant cannot be extended",
			}
		}
		err = s.ModRepeats(in.ID, func(n uint32) (uint32, error) {
			if n > math.MaxUint32-in.Repetitions {
				return 0, &model.MathError{Kind: model.Overflow}
			}
			return n + in.Repetitions, nil
		})
		if err != nil {
			return model.TriggerEvent{}, err
		}
		return model.Extended(in.ID), nil
	})
}

// executeBurn has no one-shot restriction; burning a one-shot trigger down
// to zero is allowed.
func (e *Executor) executeBurn(in model.BurnTrigger, view *wsv.WorldStateView) error {
	return view.ModifyTriggers(func(s *wsv.TriggerSet) (model.TriggerEvent, error) {
		err := s.ModRepeats(in.ID, func(n uint32) (uint32, error) {
			if in.Repetitions > n {
				return 0, &model.MathError{Kind: model.Underflow}
			}
			return n - in.Repetitions, nil
		})
		if err != nil {
			return model.TriggerEvent{}, err
		}
		return model.Shortened(in.ID), nil
	})
}
