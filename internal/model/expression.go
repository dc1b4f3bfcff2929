package model

import (
	"fmt"
	"iter"
	"slices"
)

// EvaluationContext binds names to values while an expression is evaluated
// and routes embedded queries to a read-only world state view.
type EvaluationContext interface {
	// Get returns the value bound to name.
	Get(name string) (Value, bool)

	// Update merges bindings into the context, overwriting existing names.
	Update(bindings iter.Seq2[string, Value])

	// Query executes q against the held view.
	Query(q Query) (Value, error)

	// Clone returns an independent context over the same view.
	Clone() EvaluationContext
}

// Expression is a sealed interface for evaluable expressions.
// Implemented by Raw, ContextValue, QueryExpression, Where, If, Equal and
// Not. Evaluation never mutates world state.
type Expression interface {
	Evaluate(ctx EvaluationContext) (Value, error)
	expression()
}

// Raw is a literal value.
type Raw struct {
	Value Value
}

// ContextValue reads a name bound in the evaluation context.
type ContextValue struct {
	Name string
}

// QueryExpression evaluates to the result of a query.
type QueryExpression struct {
	Query Query
}

// Where evaluates Expression with Values bound as additional context names.
type Where struct {
	Expression Expression
	Values     map[string]Expression
}

// If evaluates Then or Else depending on Condition.
type If struct {
	Condition Expression
	Then      Expression
	Else      Expression
}

// Equal compares two expressions structurally.
type Equal struct {
	Left  Expression
	Right Expression
}

// Not negates a boolean expression.
type Not struct {
	Expression Expression
}

func (Raw) expression()             {}
func (ContextValue) expression()    {}
func (QueryExpression) expression() {}
func (Where) expression()           {}
func (If) expression()              {}
func (Equal) expression()           {}
func (Not) expression()             {}

// Lit wraps v as a Raw expression.
func Lit(v Value) Raw {
	return Raw{Value: v}
}

func (e Raw) Evaluate(EvaluationContext) (Value, error) {
	if e.Value == nil {
		return Null{}, nil
	}
	return e.Value, nil
}

func (e ContextValue) Evaluate(ctx EvaluationContext) (Value, error) {
	v, ok := ctx.Get(e.Name)
	if !ok {
		return nil, &EvaluationError{Message: fmt.Sprintf("context value `%s` not found", e.Name)}
	}
	return v, nil
}

func (e QueryExpression) Evaluate(ctx EvaluationContext) (Value, error) {
	v, err := ctx.Query(e.Query)
	if err != nil {
		return nil, &EvaluationError{Message: fmt.Sprintf("query %s", e.Query.QueryName()), Err: err}
	}
	return v, nil
}

// Evaluate binds Values in sorted name order against ctx, then evaluates
// the inner expression in a clone so the caller's bindings are untouched.
func (e Where) Evaluate(ctx EvaluationContext) (Value, error) {
	names := make([]string, 0, len(e.Values))
	for name := range e.Values {
		names = append(names, name)
	}
	slices.Sort(names)

	bound := make(map[string]Value, len(names))
	for _, name := range names {
		v, err := e.Values[name].Evaluate(ctx)
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", name, err)
		}
		bound[name] = v
	}

	inner := ctx.Clone()
	inner.Update(func(yield func(string, Value) bool) {
		for _, name := range names {
			if !yield(name, bound[name]) {
				return
			}
		}
	})
	return e.Expression.Evaluate(inner)
}

func (e If) Evaluate(ctx EvaluationContext) (Value, error) {
	cond, err := evaluateBool(e.Condition, ctx)
	if err != nil {
		return nil, fmt.Errorf("if condition: %w", err)
	}
	if cond {
		return e.Then.Evaluate(ctx)
	}
	return e.Else.Evaluate(ctx)
}

func (e Equal) Evaluate(ctx EvaluationContext) (Value, error) {
	left, err := e.Left.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.Right.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return Bool(ValuesEqual(left, right)), nil
}

func (e Not) Evaluate(ctx EvaluationContext) (Value, error) {
	b, err := evaluateBool(e.Expression, ctx)
	if err != nil {
		return nil, err
	}
	return Bool(!b), nil
}

func evaluateBool(expr Expression, ctx EvaluationContext) (bool, error) {
	v, err := expr.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, &EvaluationError{Message: fmt.Sprintf("expected bool, got %T", v)}
	}
	return bool(b), nil
}

// EvaluateTriggerID evaluates expr and converts the result into a TriggerID.
// Both TriggerID and String results are accepted; strings are validated.
func EvaluateTriggerID(expr Expression, ctx EvaluationContext) (TriggerID, error) {
	v, err := expr.Evaluate(ctx)
	if err != nil {
		return "", err
	}
	switch val := v.(type) {
	case TriggerID:
		return val, nil
	case String:
		id, err := NewTriggerID(string(val))
		if err != nil {
			return "", &EvaluationError{Message: "convert to trigger id", Err: err}
		}
		return id, nil
	}
	return "", &EvaluationError{Message: fmt.Sprintf("expected trigger id, got %T", v)}
}

// EvaluateName evaluates expr and converts the result into a validated name.
func EvaluateName(expr Expression, ctx EvaluationContext) (string, error) {
	v, err := expr.Evaluate(ctx)
	if err != nil {
		return "", err
	}
	s, ok := v.(String)
	if !ok {
		return "", &EvaluationError{Message: fmt.Sprintf("expected name, got %T", v)}
	}
	if err := ValidateName(string(s)); err != nil {
		return "", &EvaluationError{Message: "convert to name", Err: err}
	}
	return string(s), nil
}
