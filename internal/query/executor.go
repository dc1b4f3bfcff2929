// Package query executes read-only queries against a registry snapshot.
//
// Queries never mutate state. Dynamic id and key expressions are each
// evaluated through a fresh Context bound to the same snapshot.
package query

import (
	"fmt"
	"log/slog"

	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/telemetry"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// Executor runs queries.
type Executor struct {
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records every executed query in m.
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

// FindAllActiveTriggerIDs returns a sorted snapshot of registered ids.
func (e *Executor) FindAllActiveTriggerIDs(view wsv.TriggerReader) []model.TriggerID {
	ids := view.IDs()
	e.observe(model.FindAllActiveTriggerIDs{}, nil)
	return ids
}

// FindTriggerByID evaluates the id expression and returns the trigger.
// Metadata is returned as stored; nothing is redacted.
func (e *Executor) FindTriggerByID(q model.FindTriggerByID, view wsv.TriggerReader) (model.Trigger, error) {
	t, err := e.findTriggerByID(q, view)
	e.observe(q, err)
	return t, err
}

func (e *Executor) findTriggerByID(q model.FindTriggerByID, view wsv.TriggerReader) (model.Trigger, error) {
	id, err := model.EvaluateTriggerID(q.ID, NewContext(e, view))
	if err != nil {
		return model.Trigger{}, &Failure{Code: ErrCodeEvaluate, Query: q.QueryName(), Message: "failed to evaluate trigger id", Err: err}
	}
	a, err := view.Get(id)
	if err != nil {
		return model.Trigger{}, &Failure{Code: ErrCodeFind, Query: q.QueryName(), Message: "trigger lookup", Err: err}
	}
	return model.NewTrigger(id, a.Clone()), nil
}

// FindTriggerKeyValueByIDAndKey evaluates the id and key expressions and
// returns the metadata value stored under the key.
func (e *Executor) FindTriggerKeyValueByIDAndKey(q model.FindTriggerKeyValueByIDAndKey, view wsv.TriggerReader) (model.Value, error) {
	v, err := e.findTriggerKeyValue(q, view)
	e.observe(q, err)
	return v, err
}

func (e *Executor) findTriggerKeyValue(q model.FindTriggerKeyValueByIDAndKey, view wsv.TriggerReader) (model.Value, error) {
	id, err := model.EvaluateTriggerID(q.ID, NewContext(e, view))
	if err != nil {
		return nil, &Failure{Code: ErrCodeEvaluate, Query: q.QueryName(), Message: "failed to evaluate trigger id", Err: err}
	}
	// The trigger must exist before the key is evaluated.
	a, err := view.Get(id)
	if err != nil {
		return nil, &Failure{Code: ErrCodeFind, Query: q.QueryName(), Message: "trigger lookup", Err: err}
	}
	key, err := model.EvaluateName(q.Key, NewContext(e, view))
	if err != nil {
		return nil, &Failure{Code: ErrCodeEvaluate, Query: q.QueryName(), Message: "failed to evaluate key", Err: err}
	}

	value, found := a.Metadata.Get(key)
	if !found {
		return nil, &Failure{
			Code:    ErrCodeFind,
			Query:   q.QueryName(),
			Message: "metadata lookup",
			Err:     &model.FindError{Kind: model.FindMetadataKey, Key: key},
		}
	}
	return model.CloneValue(value), nil
}

// Execute runs q and converts its typed result into a Value.
func (e *Executor) Execute(q model.Query, view wsv.TriggerReader) (model.Value, error) {
	switch qq := q.(type) {
	case model.FindAllActiveTriggerIDs:
		ids := e.FindAllActiveTriggerIDs(view)
		out := make(model.Vec, len(ids))
		for i, id := range ids {
			out[i] = id
		}
		return out, nil
	case model.FindTriggerByID:
		t, err := e.FindTriggerByID(qq, view)
		if err != nil {
			return nil, err
		}
		return t, nil
	case model.FindTriggerKeyValueByIDAndKey:
		return e.FindTriggerKeyValueByIDAndKey(qq, view)
	default:
		return nil, &Failure{Code: ErrCodeUnsupported, Query: fmt.Sprintf("%T", q), Message: "unsupported query"}
	}
}

func (e *Executor) observe(q model.Query, err error) {
	e.metrics.ObserveQuery(q.QueryName(), err)
	if err != nil {
		e.logger.Debug("query failed", "query", q.QueryName(), "error", err)
	}
}
