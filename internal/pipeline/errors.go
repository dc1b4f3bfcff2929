package pipeline

import (
	"errors"
	"fmt"
)

// RuntimeErrorCode categorizes pipeline errors.
type RuntimeErrorCode string

const (
	// ErrCodeBlockOrder indicates a block out of height or time order.
	ErrCodeBlockOrder RuntimeErrorCode = "BLOCK_ORDER"

	// ErrCodeDepthExceeded indicates trigger rounds hit the depth limit.
	ErrCodeDepthExceeded RuntimeErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeQuotaExceeded indicates a block hit the trigger run limit.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeSink indicates the trail could not be persisted.
	ErrCodeSink RuntimeErrorCode = "SINK"
)

// RuntimeError is a pipeline-level failure, as opposed to an instruction
// or trigger failure, which is reported in BlockResult.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	Height  uint64
	Err     error
}

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (height=%d)", e.Code, e.Message, e.Height)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsBlockOrderError reports whether err is a BLOCK_ORDER error.
func IsBlockOrderError(err error) bool { return hasCode(err, ErrCodeBlockOrder) }

// IsDepthError reports whether err is a DEPTH_EXCEEDED error.
func IsDepthError(err error) bool { return hasCode(err, ErrCodeDepthExceeded) }

// IsQuotaError reports whether err is a QUOTA_EXCEEDED error.
func IsQuotaError(err error) bool { return hasCode(err, ErrCodeQuotaExceeded) }

// IsSinkError reports whether err is a SINK error.
func IsSinkError(err error) bool { return hasCode(err, ErrCodeSink) }
