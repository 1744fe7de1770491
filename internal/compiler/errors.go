package compiler

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CodeInputInvalid is the error code of every rejected game definition.
const CodeInputInvalid = "GAMEDEF_INPUT_INVALID"

// Diagnostic codes (E100-E199).
const (
	ErrSchema         = "E100" // structural schema violation
	ErrDuplicateID    = "E101" // duplicate id within one declaration list
	ErrUnknownRef     = "E102" // reference to an undeclared id
	ErrPlayerRange    = "E103" // players.min > players.max
	ErrSeatOrder      = "E104" // invalid card-driven seat order
	ErrVarBounds      = "E105" // var bounds inverted or init out of bounds
	ErrTurnOrderShape = "E106" // cardDriven config without cardDriven type
)

// Diagnostic is one problem found in a game definition.
type Diagnostic struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Pos     string `json:"pos,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", d.Code)
	if d.Pos != "" {
		b.WriteString(d.Pos + ": ")
	}
	if d.Path != "" {
		b.WriteString(d.Path + ": ")
	}
	b.WriteString(d.Message)
	return b.String()
}

// InputError rejects a game definition. It carries either the diagnostics
// of a well-formed but invalid document, or the cause when the input could
// not be read as a document at all.
type InputError struct {
	Source       string       `json:"source"`
	ReceivedType string       `json:"receivedType"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
	Cause        error        `json:"-"`
}

// Error implements the error interface.
func (e *InputError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", CodeInputInvalid, e.Source, e.Cause)
	case len(e.Diagnostics) == 0:
		return fmt.Sprintf("%s: %s: rejected %s input", CodeInputInvalid, e.Source, e.ReceivedType)
	case len(e.Diagnostics) == 1:
		return fmt.Sprintf("%s: %s: %s", CodeInputInvalid, e.Source, e.Diagnostics[0].Error())
	default:
		return fmt.Sprintf("%s: %s: %d problems, first: %s", CodeInputInvalid, e.Source, len(e.Diagnostics), e.Diagnostics[0].Error())
	}
}

// Unwrap returns the cause.
func (e *InputError) Unwrap() error { return e.Cause }

// Code returns CodeInputInvalid.
func (e *InputError) Code() string { return CodeInputInvalid }

// Details returns the structured payload of the error.
func (e *InputError) Details() map[string]any {
	d := map[string]any{"source": e.Source, "receivedType": e.ReceivedType}
	if e.Cause != nil {
		d["cause"] = e.Cause.Error()
	}
	if len(e.Diagnostics) > 0 {
		d["diagnostics"] = e.Diagnostics
	}
	return d
}

// AsInputError extracts an InputError from an error chain.
func AsInputError(err error) (*InputError, bool) {
	var ie *InputError
	ok := errors.As(err, &ie)
	return ie, ok
}

// IsInputError reports whether err is a rejected game definition.
func IsInputError(err error) bool {
	_, ok := AsInputError(err)
	return ok
}

// cueDiagnostics flattens a CUE error list into diagnostics with source
// positions.
func cueDiagnostics(err error) []Diagnostic {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []Diagnostic{{Code: ErrSchema, Message: err.Error()}}
	}
	out := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		format, args := e.Msg()
		path := e.Path()
		for len(path) > 0 && strings.HasPrefix(path[0], "#") {
			path = path[1:]
		}
		d := Diagnostic{
			Code:    ErrSchema,
			Path:    strings.Join(path, "."),
			Message: fmt.Sprintf(format, args...),
		}
		if p, ok := documentPos(cueerrors.Positions(e)); ok {
			d.Pos = fmt.Sprintf("%s:%d:%d", p.Filename(), p.Line(), p.Column())
		}
		out = append(out, d)
	}
	return out
}

// documentPos prefers a position in the checked document over one in the
// schema.
func documentPos(positions []token.Pos) (token.Pos, bool) {
	var fallback token.Pos
	for _, p := range positions {
		if !p.IsValid() {
			continue
		}
		if p.Filename() != schemaFile {
			return p, true
		}
		if !fallback.IsValid() {
			fallback = p
		}
	}
	return fallback, fallback.IsValid()
}
