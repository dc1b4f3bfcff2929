package isi

import (
	"errors"
	"fmt"

	"github.com/chriszhao1988/iroha/internal/model"
)

// ErrorCode categorizes instruction failures.
type ErrorCode string

const (
	// ErrCodeValidation indicates the instruction violates a structural
	// invariant, such as a one-shot trigger registered to repeat.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeMath indicates checked repeat arithmetic overflowed or underflowed.
	ErrCodeMath ErrorCode = "MATH"

	// ErrCodeNotFound indicates a missing trigger.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeDuplicate indicates a trigger id that is already registered.
	ErrCodeDuplicate ErrorCode = "DUPLICATE"

	// ErrCodeEvaluate indicates an expression could not be evaluated.
	ErrCodeEvaluate ErrorCode = "EVALUATE"

	// ErrCodeFail indicates an explicit Fail instruction.
	ErrCodeFail ErrorCode = "FAIL"

	// ErrCodeUnsupported indicates an instruction type the executor does not know.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"
)

// Error is returned by Executor.Execute for every failed instruction.
type Error struct {
	Code        ErrorCode
	Instruction model.InstructionKind
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Instruction, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FailError is the cause carried by a failed Fail instruction.
type FailError struct {
	Message string
}

func (e *FailError) Error() string {
	return e.Message
}

// validationError reports a malformed instruction payload.
type validationError struct {
	msg string
	err error
}

func (e *validationError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *validationError) Unwrap() error { return e.err }

func wrap(kind model.InstructionKind, err error) error {
	return &Error{Code: classify(err), Instruction: kind, Err: err}
}

func classify(err error) ErrorCode {
	var (
		ve *validationError
		fe *FailError
	)
	switch {
	case model.IsSchedule(err), errors.As(err, &ve):
		return ErrCodeValidation
	case model.IsMath(err):
		return ErrCodeMath
	case model.IsNotFound(err):
		return ErrCodeNotFound
	case model.IsDuplicate(err):
		return ErrCodeDuplicate
	case model.IsEvaluation(err):
		return ErrCodeEvaluate
	case errors.As(err, &fe):
		return ErrCodeFail
	}
	return ErrCodeUnsupported
}

// Code returns the ErrorCode of err, or "" if err is not an *Error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a VALIDATION instruction error.
func IsValidation(err error) bool { return Code(err) == ErrCodeValidation }

// IsMath reports whether err is a MATH instruction error.
func IsMath(err error) bool { return Code(err) == ErrCodeMath }

// IsNotFound reports whether err is a NOT_FOUND instruction error.
func IsNotFound(err error) bool { return Code(err) == ErrCodeNotFound }

// IsDuplicate reports whether err is a DUPLICATE instruction error.
func IsDuplicate(err error) bool { return Code(err) == ErrCodeDuplicate }
