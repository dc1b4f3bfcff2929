package script

import (
	"errors"
	"fmt"
)

// Error codes for script loading.
const (
	ErrCodeSyntax  = "SYNTAX"  // not well-formed YAML or JSON
	ErrCodeSchema  = "SCHEMA"  // rejected by the CUE schema
	ErrCodeConvert = "CONVERT" // well-formed but not a valid ledger value
)

// Error is a script loading failure. Path locates the offending value,
// dot-separated from the document root.
type Error struct {
	Code    string
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsSchemaError reports whether err is a schema violation.
func IsSchemaError(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeSchema
}

func convertError(path string, err error) error {
	return &Error{Code: ErrCodeConvert, Path: path, Message: err.Error()}
}
