package model

import (
	"errors"
	"fmt"
)

// FindKind names what a FindError failed to locate.
type FindKind string

const (
	FindTrigger     FindKind = "trigger"
	FindMetadataKey FindKind = "metadata key"
)

// FindError reports that a trigger or metadata key does not exist.
type FindError struct {
	Kind FindKind
	Key  string
}

func (e *FindError) Error() string {
	return fmt.Sprintf("failed to find %s: `%s`", e.Kind, e.Key)
}

// RepetitionError reports an attempt to register an id that already exists.
type RepetitionError struct {
	ID TriggerID
}

func (e *RepetitionError) Error() string {
	return fmt.Sprintf("trigger `%s` is already registered", e.ID)
}

// MathKind distinguishes overflow from underflow.
type MathKind string

const (
	Overflow  MathKind = "overflow"
	Underflow MathKind = "underflow"
)

// MathError reports checked arithmetic on a repeat count that would leave
// the valid range.
type MathError struct {
	Kind MathKind
}

func (e *MathError) Error() string {
	return "math error: " + string(e.Kind)
}

// ScheduleError reports a violation of the one-shot schedule invariant: a
// trigger firing at a single fixed instant must repeat exactly once.
type ScheduleError struct {
	ID      TriggerID
	Repeats Repeats
	Reason  string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("invalid trigger schedule for `%s` (repeats %s): %s", e.ID, e.Repeats, e.Reason)
}

// EvaluationError reports an expression that could not be evaluated.
type EvaluationError struct {
	Message string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluation failed: %s: %v", e.Message, e.Err)
	}
	return "evaluation failed: " + e.Message
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// IsNotFound reports whether err wraps a FindError.
func IsNotFound(err error) bool {
	var fe *FindError
	return errors.As(err, &fe)
}

// IsDuplicate reports whether err wraps a RepetitionError.
func IsDuplicate(err error) bool {
	var re *RepetitionError
	return errors.As(err, &re)
}

// IsMath reports whether err wraps a MathError.
func IsMath(err error) bool {
	var me *MathError
	return errors.As(err, &me)
}

// IsSchedule reports whether err wraps a ScheduleError.
func IsSchedule(err error) bool {
	var se *ScheduleError
	return errors.As(err, &se)
}

// IsEvaluation reports whether err wraps an EvaluationError.
func IsEvaluation(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}
