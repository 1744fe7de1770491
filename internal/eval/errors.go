package eval

import (
	"errors"
	"fmt"
)

// Code identifies an evaluation failure. The set is closed.
type Code string

const (
	// CodeMissingBinding indicates a "$name" reference with no binding in
	// scope.
	CodeMissingBinding Code = "MISSING_BINDING"

	// CodeMissingVar indicates an undeclared variable, zone or token
	// property.
	CodeMissingVar Code = "MISSING_VAR"

	// CodeTypeMismatch indicates an operand of the wrong runtime type.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeSelectorCardinality indicates a selector that had to resolve to
	// exactly one target resolved to zero or many.
	CodeSelectorCardinality Code = "SELECTOR_CARDINALITY"

	// CodeQueryBoundsExceeded indicates a result set larger than
	// maxQueryResults.
	CodeQueryBoundsExceeded Code = "QUERY_BOUNDS_EXCEEDED"

	// CodeSpatialNotImplemented indicates an unsupported spatial relation.
	CodeSpatialNotImplemented Code = "SPATIAL_NOT_IMPLEMENTED"

	// CodeDivisionByZero is the recoverable arithmetic failure.
	CodeDivisionByZero Code = "DIVISION_BY_ZERO"
)

// Error is an evaluation failure with enough context to reconstruct what was
// being evaluated.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, details map[string]any, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Details: details}
}

// NewError creates an evaluation error for callers outside this package
// that resolve game-definition references themselves.
func NewError(code Code, details map[string]any, format string, args ...any) *Error {
	return newError(code, details, format, args...)
}

// AsError extracts an evaluation error from a wrapped chain.
func AsError(err error) (*Error, bool) {
	var ee *Error
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// HasCode reports whether err is an evaluation error with the given code.
func HasCode(err error, code Code) bool {
	ee, ok := AsError(err)
	return ok && ee.Code == code
}

// IsOutsidePlayerCount reports whether err is a selector failure caused by a
// player index outside the game's player count.
func IsOutsidePlayerCount(err error) bool {
	ee, ok := AsError(err)
	if !ok || ee.Code != CodeSelectorCardinality {
		return false
	}
	outside, _ := ee.Details["outsidePlayerCount"].(bool)
	return outside
}
