package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Moves  int      `json:"moves"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios against their game definitions.

Each scenario starts a game in a fresh in-memory database, applies the
scripted moves, checks their expected outcomes, optionally lets random
agents continue, replays the stored log and evaluates the assertions.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  tabula test ./testdata/scenarios
  tabula test ./testdata/scenarios --filter "race_*"
  tabula test ./testdata/scenarios --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := harness.DiscoverScenarios(paths...)
	if err != nil {
		var nf *harness.ScenarioNotFoundError
		if errors.As(err, &nf) {
			return formatter.Failure(ExitCommandError, "scenario not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(opts, file, cmd)
		formatter.VerboseLog("%s: pass=%t", sr.Name, sr.Pass)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := formatter.Success(result, func(w io.Writer) { renderTests(w, result) }); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// filterScenarios keeps files whose base name, without extension, matches
// pattern.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

// runScenario executes a single scenario. Load and execution errors fail
// the scenario rather than the command.
func runScenario(opts *TestOptions, file string, cmd *cobra.Command) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), Path: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.RunContext(cmd.Context(), scenario, opts.kernelOptions()...)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution error: %v", err)}
		return sr
	}
	sr.Pass = result.Pass
	sr.Moves = len(result.Applied())
	sr.Errors = result.Errors
	return sr
}

func renderTests(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s (%d moves)\n", sr.Name, sr.Moves)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
