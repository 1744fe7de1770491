package kernel

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/testutil"
)

const limitsDef = `{
  "id": "limits",
  "players": {"min": 2, "max": 2},
  "zones": [],
  "turnStructure": {"phases": [{"id": "a"}, {"id": "b"}]},
  "actions": [
    {"id": "once", "actor": "active", "limits": [{"scope": "game", "max": 1}]},
    {"id": "early", "actor": "active", "phases": ["a"]},
    {"id": "first-seat", "actor": 0},
    {"id": "pass", "actor": "active"}
  ]
}`

// fragileDef has a precondition and a parameter domain that both divide
// by zero.
const fragileDef = `{
  "id": "fragile",
  "players": {"min": 2, "max": 2},
  "zones": [],
  "globalVars": [{"name": "zero", "init": 0}],
  "turnStructure": {"phases": [{"id": "main"}]},
  "actions": [
    {"id": "divide", "actor": "active",
     "pre": {"op": "==", "left": {"op": "/", "left": 1, "right": {"ref": "gvar", "var": "zero"}}, "right": 0}},
    {"id": "pick", "actor": "active",
     "params": [{"name": "$n", "domain": {"query": "intsInRange", "min": 0,
       "max": {"op": "/", "left": 1, "right": {"ref": "gvar", "var": "zero"}}}}]},
    {"id": "pass", "actor": "active"}
  ]
}`

func moveKeys(moves []ir.Move) []string {
	keys := make([]string, len(moves))
	for i, m := range moves {
		keys[i] = m.Key()
	}
	return keys
}

func TestLegalMovesExpandsParams(t *testing.T) {
	def := testutil.GameDef(t, testutil.GameRace)
	s0 := start(t, def, 11)

	moves, err := LegalMoves(def, s0)
	require.NoError(t, err)
	require.Len(t, moves, 5)
	for i, steps := range []int64{1, 2, 3} {
		assert.Equal(t, "advance", moves[i].ActionID)
		assert.Equal(t, ir.Int(steps), moves[i].Params["$steps"])
	}
	assert.Equal(t, "roll", moves[3].ActionID)
	assert.Equal(t, "draw", moves[4].ActionID)
}

func TestApplicabilityReasons(t *testing.T) {
	def := testutil.DecodeDef(t, limitsDef)
	s0 := start(t, def, 1)

	moves, err := LegalMoves(def, s0)
	require.NoError(t, err)
	assert.Equal(t, []string{"once", "early", "first-seat", "pass"}, actionIDs(moves))

	// Player 0 uses "once" in phase a; the flow moves to phase b.
	s1 := apply(t, def, s0, ir.Move{ActionID: "once"}).State
	assert.Equal(t, "b", s1.CurrentPhase)
	assert.Equal(t, 0, s1.ActivePlayer)

	moves, err = LegalMoves(def, s1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first-seat", "pass"}, actionIDs(moves))

	_, err = ApplyMove(def, s1, ir.Move{ActionID: "once"})
	requireIllegal(t, err, ReasonActionLimitExceeded)
	_, err = ApplyMove(def, s1, ir.Move{ActionID: "early"})
	requireIllegal(t, err, ReasonPhaseMismatch)

	// End of turn: player 1 is not seat 0.
	s2 := apply(t, def, s1, ir.Move{ActionID: "pass"}).State
	assert.Equal(t, 1, s2.ActivePlayer)
	_, err = ApplyMove(def, s2, ir.Move{ActionID: "first-seat"})
	requireIllegal(t, err, ReasonActorNotApplicable)
}

func actionIDs(moves []ir.Move) []string {
	ids := make([]string, len(moves))
	for i, m := range moves {
		ids[i] = m.ActionID
	}
	return ids
}

// Every move missing from LegalMoves is rejected with a reason from the
// shared denial set.
func TestLegalityConsistency(t *testing.T) {
	cases := []struct {
		name  string
		def   *ir.GameDef
		moves []ir.Move
	}{
		{"race", testutil.GameDef(t, testutil.GameRace), nil},
		{"limits", testutil.DecodeDef(t, limitsDef), []ir.Move{{ActionID: "once"}}},
		{"heist", testutil.GameDef(t, testutil.GameHeist), []ir.Move{{ActionID: "alarm"}}},
		{"ops", testutil.GameDef(t, testutil.GameOps), []ir.Move{{ActionID: "event"}}},
		{"failed evaluation", testutil.DecodeDef(t, fragileDef), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := start(t, tc.def, 4)
			for _, m := range tc.moves {
				s = apply(t, tc.def, s, m).State
			}
			legal, err := LegalMoves(tc.def, s)
			require.NoError(t, err)
			listed := moveKeys(legal)

			for _, cand := range candidates(tc.def) {
				if slices.Contains(listed, cand.Key()) {
					_, err := ApplyMove(tc.def, s, cand)
					if err != nil {
						// Listed moves may still fail a stage check.
						requireReasonIn(t, err)
					}
					continue
				}
				_, err := ApplyMove(tc.def, s, cand)
				requireReasonIn(t, err)
			}
		})
	}
}

func TestFailedEvaluationIsInapplicable(t *testing.T) {
	def := testutil.DecodeDef(t, fragileDef)
	s0 := start(t, def, 1)

	legal, err := LegalMoves(def, s0)
	require.NoError(t, err)
	assert.Equal(t, []string{"pass"}, actionIDs(legal))

	tests := []struct {
		move    ir.Move
		details map[string]any
	}{
		{ir.Move{ActionID: "divide", Params: ir.Object{}}, map[string]any{"predicate": "pre", "profile": "divide:default"}},
		{ir.Move{ActionID: "pick", Params: ir.Object{"$n": ir.Int(0)}}, map[string]any{"param": "$n"}},
	}
	for _, tt := range tests {
		t.Run(tt.move.ActionID, func(t *testing.T) {
			_, err := ApplyMove(def, s0, tt.move)
			requireIllegal(t, err, ReasonEvaluationInapplicable)
			assert.True(t, eval.HasCode(err, eval.CodeDivisionByZero), "cause kept: %v", err)

			re, _ := fault.As(err)
			assert.Equal(t, string(eval.CodeDivisionByZero), re.Details["code"])
			for k, v := range tt.details {
				assert.Equal(t, v, re.Details[k], k)
			}

			choice, err := LegalChoices(def, s0, ir.Move{ActionID: tt.move.ActionID})
			require.NoError(t, err)
			assert.Equal(t, ChoiceIllegal, choice.Kind)
			assert.Equal(t, ReasonEvaluationInapplicable, choice.Reason)
			assert.Contains(t, DenialReasons, choice.Reason)
		})
	}
}

func requireReasonIn(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	re, ok := fault.As(err)
	require.True(t, ok, "unexpected error %v", err)
	require.Equal(t, fault.CodeIllegalMove, re.Code, "unexpected error %v", err)
	assert.Contains(t, DenialReasons, re.Reason())
}

// candidates lists every action as a normal and a free move, with the
// integer params 0..4.
func candidates(def *ir.GameDef) []ir.Move {
	var out []ir.Move
	for _, a := range def.Actions {
		for _, free := range []bool{false, true} {
			if len(a.Params) == 0 {
				out = append(out, ir.Move{ActionID: a.ID, Params: ir.Object{}, FreeOperation: free})
				continue
			}
			for v := int64(0); v <= 4; v++ {
				params := ir.Object{}
				for _, p := range a.Params {
					params[p.Name] = ir.Int(v)
				}
				out = append(out, ir.Move{ActionID: a.ID, Params: params, FreeOperation: free})
			}
		}
	}
	return out
}

func TestEnumerationBudgets(t *testing.T) {
	def := testutil.GameDef(t, testutil.GameRace)
	s0 := start(t, def, 2)

	_, err := LegalMoves(def, s0, WithMaxTemplates(2))
	assert.True(t, fault.Is(err, fault.CodeEnumerationBudgetExceeded), "got %v", err)

	_, err = LegalMoves(def, s0, WithMaxParamExpansions(2))
	assert.True(t, fault.Is(err, fault.CodeEnumerationBudgetExceeded), "got %v", err)
}

const spinDef = `{
  "id": "spin",
  "players": {"min": 1, "max": 1},
  "zones": [],
  "globalVars": [{"name": "n", "init": 0}],
  "turnStructure": {"phases": [{"id": "main"}]},
  "actions": [
    {"id": "spin", "actor": "active", "effects": [
      {"forEach": {"bind": "$i", "over": {"query": "intsInRange", "min": 1, "max": 500}, "effects": [
        {"addVar": {"scope": "global", "var": "n", "delta": 1}}
      ]}}
    ]}
  ]
}`

func TestEffectAndQueryBudgets(t *testing.T) {
	def := testutil.DecodeDef(t, spinDef)
	s0 := start(t, def, 1)

	res := apply(t, def, s0, ir.Move{ActionID: "spin"})
	assert.Equal(t, int64(500), res.State.GlobalVars["n"])

	_, err := ApplyMove(def, s0, ir.Move{ActionID: "spin"}, WithMaxEffectOps(100))
	assert.True(t, fault.Is(err, fault.CodeEffectBudgetExceeded), "got %v", err)

	_, err = ApplyMove(def, s0, ir.Move{ActionID: "spin"}, WithMaxQueryResults(10))
	require.Error(t, err)
	assert.True(t, eval.HasCode(err, eval.CodeQueryBoundsExceeded), "got %v", err)

	_, err = LegalChoices(def, s0, ir.Move{ActionID: "spin"}, WithMaxDecisionProbeSteps(50))
	assert.True(t, fault.Is(err, fault.CodeEnumerationBudgetExceeded), "got %v", err)
}

func TestAutoSkipPassesPlayersWithoutMoves(t *testing.T) {
	def := testutil.DecodeDef(t, `{
	  "id": "solo",
	  "players": {"min": 2, "max": 2},
	  "zones": [],
	  "turnStructure": {"phases": [{"id": "main"}]},
	  "actions": [{"id": "act", "actor": 0}]
	}`)
	s0 := start(t, def, 1)
	require.Equal(t, 0, s0.ActivePlayer)

	res := apply(t, def, s0, ir.Move{ActionID: "act"})
	assert.Equal(t, 0, res.State.ActivePlayer)
	assert.Equal(t, int64(2), res.State.TurnCount)
}
