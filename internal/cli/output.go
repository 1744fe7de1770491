package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/tabula/internal/compiler"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/harness"
	"github.com/roach88/tabula/internal/session"
	"github.com/roach88/tabula/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input: invalid game, illegal move, failed scenario, divergent replay
	ExitCommandError = 2 // Command error (missing file, database not found, bad flags)
)

// Error codes reported by the CLI itself. Kernel and compiler failures keep
// their own codes (ILLEGAL_MOVE, GAMEDEF_INPUT_INVALID, ...).
const (
	ErrCodeGeneric    = "E001"
	ErrCodeNotFound   = "E002"
	ErrCodeBadInput   = "E003"
	ErrCodeDivergence = "E004"
)

// errMalformedMove marks move JSON that could not be parsed.
var errMalformedMove = errors.New("malformed move")

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result. In text mode, render prints the
// human-readable form; a nil render prints data with fmt.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	if render != nil {
		render(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Failure reports err with the most specific code found in its chain and
// returns an ExitError carrying exitCode.
func (f *OutputFormatter) Failure(exitCode int, message string, err error) error {
	code, details := classify(err)
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), details); outErr != nil {
		return outErr
	}
	return WrapExitError(exitCode, message, err)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// classify maps kernel and compiler errors onto their stable codes.
func classify(err error) (string, any) {
	if re, ok := fault.As(err); ok {
		return string(re.Code), re.Details
	}
	if ie, ok := compiler.AsInputError(err); ok {
		return ie.Code(), ie.Details()
	}
	var missing *harness.ScenarioNotFoundError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.As(err, &missing):
		return ErrCodeNotFound, nil
	case errors.Is(err, errMalformedMove):
		return ErrCodeBadInput, nil
	case errors.Is(err, session.ErrDivergence), errors.Is(err, session.ErrDefChanged), errors.Is(err, session.ErrCorruptLog):
		return ErrCodeDivergence, nil
	}
	return ErrCodeGeneric, nil
}
