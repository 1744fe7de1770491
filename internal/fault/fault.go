// Package fault defines the runtime and contract error family of the kernel.
//
// Evaluation failures (package eval) describe what went wrong inside an
// expression; a RuntimeError describes what went wrong with a move or a
// kernel call and carries action/profile/path context for the caller.
package fault

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Code categorizes runtime errors.
type Code string

const (
	// CodeIllegalMove indicates a move rejected by applicability, legality,
	// free-operation or parameter checks. Details["reason"] carries the
	// denial cause.
	CodeIllegalMove Code = "ILLEGAL_MOVE"

	// CodePipelinePredicateFailed indicates a legality or cost predicate
	// that could not be evaluated.
	CodePipelinePredicateFailed Code = "PIPELINE_PREDICATE_FAILED"

	// CodeEffectRuntime indicates an effect that failed while executing.
	CodeEffectRuntime Code = "EFFECT_RUNTIME"

	// CodeEffectBudgetExceeded indicates more than maxEffectOps primitive
	// operations in one move.
	CodeEffectBudgetExceeded Code = "EFFECT_BUDGET_EXCEEDED"

	// CodeEnumerationBudgetExceeded indicates a move or choice discovery
	// that exceeded one of the enumeration budgets.
	CodeEnumerationBudgetExceeded Code = "MOVE_ENUMERATION_BUDGET_EXCEEDED"

	// CodeInternalInvariant indicates a kernel bug. Never recovered.
	CodeInternalInvariant Code = "INTERNAL_INVARIANT"

	// CodeStateInvalid indicates a state that fails structural validation.
	CodeStateInvalid Code = "STATE_INVALID"
)

// RuntimeError is a kernel failure with a stable code, a human message and
// a structured details payload.
type RuntimeError struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// ActionID identifies the action being applied, if any.
	ActionID string

	// Details contains additional context (reason, profile, effect path,
	// selector...).
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.ActionID != "" {
		fmt.Fprintf(&b, " (action=%s)", e.ActionID)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Cause }

// Reason returns the denial cause of an illegal move, or "".
func (e *RuntimeError) Reason() string {
	r, _ := e.Details["reason"].(string)
	return r
}

// DetailKeys lists detail keys in sorted order, for stable rendering.
func (e *RuntimeError) DetailKeys() []string {
	return slices.Sorted(maps.Keys(e.Details))
}

// As extracts a RuntimeError from a wrapped chain.
func As(err error) (*RuntimeError, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Is reports whether err is a RuntimeError with the given code.
func Is(err error, code Code) bool {
	re, ok := As(err)
	return ok && re.Code == code
}

// IsIllegalMove returns true if the error rejects a move.
func IsIllegalMove(err error) bool { return Is(err, CodeIllegalMove) }

// IsBudgetError returns true for effect or enumeration budget overruns.
func IsBudgetError(err error) bool {
	return Is(err, CodeEffectBudgetExceeded) || Is(err, CodeEnumerationBudgetExceeded)
}

// IsInternal returns true for kernel invariant violations.
func IsInternal(err error) bool { return Is(err, CodeInternalInvariant) }

// IllegalMove creates an ILLEGAL_MOVE error for a denial reason.
func IllegalMove(actionID, reason string, details map[string]any) *RuntimeError {
	d := map[string]any{"reason": reason}
	maps.Copy(d, details)
	return &RuntimeError{
		Code:     CodeIllegalMove,
		Message:  fmt.Sprintf("move is not legal: %s", reason),
		ActionID: actionID,
		Details:  d,
	}
}

// PredicateFailed wraps an evaluation failure of a pipeline predicate.
func PredicateFailed(actionID, profile, predicate string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:     CodePipelinePredicateFailed,
		Message:  fmt.Sprintf("%s predicate could not be evaluated", predicate),
		ActionID: actionID,
		Details:  map[string]any{"profile": profile, "predicate": predicate},
		Cause:    cause,
	}
}

// EffectRuntime wraps a failure while executing the effect at path.
func EffectRuntime(actionID, path string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:     CodeEffectRuntime,
		Message:  fmt.Sprintf("effect at %s failed", path),
		ActionID: actionID,
		Details:  map[string]any{"effectPath": path},
		Cause:    cause,
	}
}

// BudgetExceeded reports an effect operation overrun.
func BudgetExceeded(ops, limit int, path string) *RuntimeError {
	return &RuntimeError{
		Code:    CodeEffectBudgetExceeded,
		Message: fmt.Sprintf("effect operations exceeded maxEffectOps (%d > %d)", ops, limit),
		Details: map[string]any{"ops": ops, "maxEffectOps": limit, "effectPath": path},
	}
}

// EnumerationBudget reports an exceeded discovery budget.
func EnumerationBudget(budget string, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    CodeEnumerationBudgetExceeded,
		Message: fmt.Sprintf("%s exceeded (limit %d)", budget, limit),
		Details: map[string]any{"budget": budget, "limit": limit},
	}
}

// Internal reports a kernel invariant violation.
func Internal(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    CodeInternalInvariant,
		Message: fmt.Sprintf(format, args...),
	}
}

// StateInvalid wraps a structural state validation failure.
func StateInvalid(cause error) *RuntimeError {
	return &RuntimeError{
		Code:    CodeStateInvalid,
		Message: "state failed validation",
		Cause:   cause,
	}
}
