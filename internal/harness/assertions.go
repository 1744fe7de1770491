package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] p%d %s %s -> %s\n", event.Step, event.Player, event.Action, ir.ValueKey(event.Params), event.Outcome)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against a finished run and
// returns one message per failure.
func EvaluateAssertions(result *Result, def *ir.GameDef, assertions []Assertion, opts ...kernel.Option) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, def, a, opts); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, def *ir.GameDef, a Assertion, opts []kernel.Option) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}
	s := result.Final
	switch a.Type {
	case AssertVar:
		got, ok := varValue(s, a)
		if !ok {
			return fail(fmt.Sprintf("%s var %s = %d", a.Scope, a.Var, *a.Equals), "var not found")
		}
		if got != *a.Equals {
			return fail(fmt.Sprintf("%s var %s = %d", a.Scope, a.Var, *a.Equals), fmt.Sprintf("%d", got))
		}

	case AssertZoneCount:
		tokens, ok := s.ZoneTokens(a.Zone)
		if !ok {
			return fail(fmt.Sprintf("zone %s holds %d tokens", a.Zone, *a.Equals), "zone not found")
		}
		if int64(len(tokens)) != *a.Equals {
			return fail(fmt.Sprintf("zone %s holds %d tokens", a.Zone, *a.Equals), fmt.Sprintf("%d tokens", len(tokens)))
		}

	case AssertPhase:
		if s.CurrentPhase != a.Phase {
			return fail("phase "+a.Phase, "phase "+s.CurrentPhase)
		}

	case AssertActivePlayer:
		if s.ActivePlayer != *a.Player {
			return fail(fmt.Sprintf("active player %d", *a.Player), fmt.Sprintf("active player %d", s.ActivePlayer))
		}

	case AssertTerminal:
		return assertTerminal(result.Terminal, a, fail)

	case AssertTraceContains:
		if countApplied(result, a.Action) == 0 {
			return fail("applied move "+a.Action, "not found in trace")
		}

	case AssertTraceOrder:
		return assertTraceOrder(result, a, fail)

	case AssertTraceCount:
		if got := countApplied(result, a.Action); got != *a.Count {
			return fail(fmt.Sprintf("%s applied %d times", a.Action, *a.Count), fmt.Sprintf("%d times", got))
		}

	case AssertTriggerCount:
		got := 0
		for _, e := range result.Trace {
			for _, id := range e.Triggers {
				if id == a.Trigger {
					got++
				}
			}
		}
		if got != *a.Count {
			return fail(fmt.Sprintf("trigger %s fired %d times", a.Trigger, *a.Count), fmt.Sprintf("%d times", got))
		}

	case AssertLegalMoves:
		moves, err := kernel.LegalMoves(def, s, opts...)
		if err != nil {
			return fail("legal moves", err.Error())
		}
		if a.Count != nil && len(moves) != *a.Count {
			return fail(fmt.Sprintf("%d legal moves", *a.Count), fmt.Sprintf("%d legal moves", len(moves)))
		}
		if a.Action != "" && !containsAction(moves, a.Action) {
			return fail("legal move "+a.Action, "not legal")
		}

	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func varValue(s *ir.GameState, a Assertion) (int64, bool) {
	switch a.Scope {
	case "global":
		return s.GlobalVar(a.Var)
	case "player":
		return s.PlayerVar(*a.Player, a.Var)
	case "zone":
		return s.ZoneVar(a.Zone, a.Var)
	}
	return 0, false
}

func assertTerminal(term *kernel.Terminal, a Assertion, fail func(string, string) error) error {
	got := "none"
	if term != nil {
		got = term.Type
		if term.Player != nil {
			got = fmt.Sprintf("%s by player %d", term.Type, *term.Player)
		}
	}
	want := a.Result
	if a.Player != nil {
		want = fmt.Sprintf("%s by player %d", a.Result, *a.Player)
	}

	switch {
	case a.Result == "none":
		if term != nil {
			return fail("game running", got)
		}
	case term == nil || term.Type != a.Result:
		return fail(want, got)
	case a.Player != nil && (term.Player == nil || *term.Player != *a.Player):
		return fail(want, got)
	}
	return nil
}

// assertTraceOrder checks that applied moves of the listed actions appear
// in order. Moves don't need to be consecutive.
func assertTraceOrder(result *Result, a Assertion, fail func(string, string) error) error {
	positions := make(map[string]int)
	for _, ev := range result.Applied() {
		if _, seen := positions[ev.Action]; !seen {
			positions[ev.Action] = ev.Step
		}
	}
	for _, action := range a.Actions {
		if _, ok := positions[action]; !ok {
			return fail(fmt.Sprintf("all actions present: %v", a.Actions), "missing action: "+action)
		}
	}
	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return fail(fmt.Sprintf("actions in order: %v", a.Actions),
				fmt.Sprintf("%s (step %d) should be before %s (step %d)", prev, positions[prev], curr, positions[curr]))
		}
	}
	return nil
}

func countApplied(result *Result, action string) int {
	n := 0
	for _, ev := range result.Applied() {
		if ev.Action == action {
			n++
		}
	}
	return n
}

func containsAction(moves []ir.Move, action string) bool {
	for _, m := range moves {
		if m.ActionID == action {
			return true
		}
	}
	return false
}
