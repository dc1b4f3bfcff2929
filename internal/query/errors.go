package query

import (
	"errors"
	"fmt"
)

// FailureCode categorizes query execution failures.
type FailureCode string

const (
	// ErrCodeEvaluate indicates an id or key expression failed to evaluate.
	ErrCodeEvaluate FailureCode = "EVALUATE"

	// ErrCodeFind indicates a missing trigger or metadata key.
	ErrCodeFind FailureCode = "FIND"

	// ErrCodeUnsupported indicates a query type the executor does not know.
	ErrCodeUnsupported FailureCode = "UNSUPPORTED"
)

// Failure is returned for every failed query.
type Failure struct {
	Code    FailureCode
	Query   string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", f.Code, f.Query, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s: %s", f.Code, f.Query, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Code returns the FailureCode of err, or "" if err is not a *Failure.
func Code(err error) FailureCode {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// IsFind reports whether err is a FIND failure.
func IsFind(err error) bool { return Code(err) == ErrCodeFind }

// IsEvaluate reports whether err is an EVALUATE failure.
func IsEvaluate(err error) bool { return Code(err) == ErrCodeEvaluate }
