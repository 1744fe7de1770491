package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/compiler"
)

// FileValidation is the validation result of one game definition file.
type FileValidation struct {
	Path         string                  `json:"path"`
	Valid        bool                    `json:"valid"`
	GameID       string                  `json:"gameId,omitempty"`
	ReceivedType string                  `json:"receivedType,omitempty"`
	Diagnostics  []compiler.Diagnostic   `json:"diagnostics,omitempty"`
	Cause        string                  `json:"cause,omitempty"`
	Warnings     []compiler.CycleWarning `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <game-file>...",
		Short: "Validate game definitions",
		Long: `Validate game definition files (.json, .yaml, .yml or .cue).

Each file is checked against the game definition schema, decoded and
cross-referenced. Trigger dependency cycles are reported as warnings.

Exit codes:
  0 - All definitions are valid
  1 - One or more definitions were rejected
  2 - Command error (unsupported extension, unreadable file)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		fv := FileValidation{Path: path}
		def, err := compiler.LoadGameDef(path)
		if err != nil {
			ie, ok := compiler.AsInputError(err)
			if !ok {
				return formatter.Failure(ExitCommandError, fmt.Sprintf("cannot read %s", path), err)
			}
			fv.ReceivedType = ie.ReceivedType
			fv.Diagnostics = ie.Diagnostics
			if ie.Cause != nil {
				fv.Cause = ie.Cause.Error()
			}
			result.Valid = false
		} else {
			fv.Valid = true
			fv.GameID = def.ID
			fv.Warnings = compiler.AnalyzeTriggerCycles(def)
			formatter.VerboseLog("%s: %d actions, %d triggers", path, len(def.Actions), len(def.Triggers))
		}
		result.Files = append(result.Files, fv)
	}

	if err := formatter.Success(result, func(w io.Writer) { renderValidation(w, result) }); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func renderValidation(w io.Writer, result ValidationResult) {
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.GameID)
			for _, warn := range fv.Warnings {
				fmt.Fprintf(w, "  warning: trigger cycle %s\n", strings.Join(warn.Path, " -> "))
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fv.Path)
		if fv.Cause != "" {
			fmt.Fprintf(w, "  %s\n", fv.Cause)
		}
		for _, d := range fv.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d.Error())
		}
	}
}
