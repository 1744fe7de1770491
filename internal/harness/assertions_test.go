package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

// raceResult builds a result over the initial race state with a fixed
// trace.
func raceResult(t *testing.T) (*Result, *ir.GameDef) {
	t.Helper()
	def := testutil.GameDef(t, testutil.GameRace)
	s, err := kernel.InitialState(def, 42, 2)
	require.NoError(t, err)
	s.PerPlayerVars[0]["pos"] = 4

	r := NewResult()
	r.Final = s
	r.Trace = []TraceEvent{
		{Step: 1, Seq: 1, Action: "roll", Outcome: OutcomeApplied, Triggers: []string{"count-rolls"}},
		{Step: 2, Action: "roll", Outcome: "illegal:actionLimitExceeded"},
		{Step: 3, Seq: 2, Action: "advance", Outcome: OutcomeApplied},
		{Step: 4, Seq: 3, Action: "draw", Outcome: OutcomeApplied},
	}
	return r, def
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	r, def := raceResult(t)
	assertions := []Assertion{
		{Type: AssertVar, Scope: "player", Player: ptr(0), Var: "pos", Equals: ptr(int64(4))},
		{Type: AssertVar, Scope: "global", Var: "rolls", Equals: ptr(int64(0))},
		{Type: AssertZoneCount, Zone: "deck:none", Equals: ptr(int64(6))},
		{Type: AssertPhase, Phase: "move"},
		{Type: AssertActivePlayer, Player: ptr(0)},
		{Type: AssertTerminal, Result: "none"},
		{Type: AssertTraceContains, Action: "draw"},
		{Type: AssertTraceOrder, Actions: []string{"roll", "advance", "draw"}},
		{Type: AssertTraceCount, Action: "roll", Count: ptr(1)},
		{Type: AssertTriggerCount, Trigger: "count-rolls", Count: ptr(1)},
		{Type: AssertLegalMoves, Count: ptr(5)},
		{Type: AssertLegalMoves, Action: "draw"},
	}
	assert.Empty(t, EvaluateAssertions(r, def, assertions))
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	r, def := raceResult(t)
	tests := []struct {
		name      string
		assertion Assertion
		actual    string
	}{
		{"var value", Assertion{Type: AssertVar, Scope: "player", Player: ptr(1), Var: "pos", Equals: ptr(int64(4))}, "Actual: 0"},
		{"unknown var", Assertion{Type: AssertVar, Scope: "global", Var: "nope", Equals: ptr(int64(0))}, "var not found"},
		{"zone count", Assertion{Type: AssertZoneCount, Zone: "hand:0", Equals: ptr(int64(1))}, "0 tokens"},
		{"unknown zone", Assertion{Type: AssertZoneCount, Zone: "void", Equals: ptr(int64(0))}, "zone not found"},
		{"phase", Assertion{Type: AssertPhase, Phase: "night"}, "phase move"},
		{"active player", Assertion{Type: AssertActivePlayer, Player: ptr(1)}, "active player 0"},
		{"terminal", Assertion{Type: AssertTerminal, Result: "win"}, "Actual: none"},
		{"trace contains", Assertion{Type: AssertTraceContains, Action: "teleport"}, "not found in trace"},
		{"trace order", Assertion{Type: AssertTraceOrder, Actions: []string{"draw", "roll"}}, "should be before"},
		{"trace order missing", Assertion{Type: AssertTraceOrder, Actions: []string{"roll", "fly"}}, "missing action: fly"},
		{"trace count ignores rejected moves", Assertion{Type: AssertTraceCount, Action: "roll", Count: ptr(2)}, "1 times"},
		{"trigger count", Assertion{Type: AssertTriggerCount, Trigger: "count-rolls", Count: ptr(0)}, "1 times"},
		{"legal move count", Assertion{Type: AssertLegalMoves, Count: ptr(1)}, "5 legal moves"},
		{"legal move action", Assertion{Type: AssertLegalMoves, Action: "pass"}, "not legal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(r, def, []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "Assertion failed: "+tt.assertion.Type)
			assert.Contains(t, errs[0], tt.actual)
		})
	}
}

func TestAssertTerminal(t *testing.T) {
	win := &kernel.Terminal{Type: ir.ResultWin, Player: ptr(1)}
	draw := &kernel.Terminal{Type: "draw"}
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertTerminal, Expected: expected, Actual: actual}
	}

	tests := []struct {
		name string
		term *kernel.Terminal
		a    Assertion
		ok   bool
	}{
		{"running", nil, Assertion{Result: "none"}, true},
		{"ended but expected running", draw, Assertion{Result: "none"}, false},
		{"result only", win, Assertion{Result: ir.ResultWin}, true},
		{"result and player", win, Assertion{Result: ir.ResultWin, Player: ptr(1)}, true},
		{"wrong player", win, Assertion{Result: ir.ResultWin, Player: ptr(0)}, false},
		{"wrong result", draw, Assertion{Result: ir.ResultWin}, false},
		{"player on a draw", draw, Assertion{Result: "draw", Player: ptr(0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTerminal(tt.term, tt.a, fail)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertionErrorListsTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertPhase,
		Expected: "phase a",
		Actual:   "phase b",
		Trace: []TraceEvent{
			{Step: 1, Player: 1, Action: "advance", Params: ir.Object{"$steps": ir.Int(2)}, Outcome: OutcomeApplied},
		},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: phase")
	assert.Contains(t, msg, "[1] p1 advance")
	assert.Contains(t, msg, "-> applied")
}
