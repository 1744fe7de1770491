package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/internal/turnflow"
)

func TestFreeOperationGrantFlow(t *testing.T) {
	def := testutil.GameDef(t, testutil.GameOps)
	s0 := start(t, def, 1)
	require.Equal(t, 0, s0.ActivePlayer)

	s1 := apply(t, def, s0, ir.Move{ActionID: "event"}).State
	assert.Equal(t, 1, s1.ActivePlayer, "the granted seat acts next")
	assert.Equal(t, int64(0), s1.GlobalVars["resolved"])
	require.Len(t, turnflow.Pending(s1, 1), 1)

	moves, err := LegalMoves(def, s1)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "march", moves[0].ActionID)
	assert.True(t, moves[0].FreeOperation)

	_, err = ApplyMove(def, s1, ir.Move{ActionID: "pass"})
	requireIllegal(t, err, ReasonFreeOperationPending)
	_, err = ApplyMove(def, s1, ir.Move{ActionID: "pass", FreeOperation: true})
	requireIllegal(t, err, string(turnflow.ActionIDMismatch))

	res := apply(t, def, s1, moves[0])
	s2 := res.State
	assert.Equal(t, int64(1), s2.PerPlayerVars[1]["marches"])
	assert.Equal(t, int64(1), s2.GlobalVars["resolved"], "deferred effect released once the batch completed")
	assert.Empty(t, turnflow.Pending(s2, 1))
	assert.Zero(t, s2.ActionUsage["march"].Game, "free operations do not count against limits")

	// Seat 1 now takes its own activation; then the turn wraps.
	assert.Equal(t, 1, s2.ActivePlayer)
	s3 := apply(t, def, s2, ir.Move{ActionID: "pass"}).State
	assert.Equal(t, 0, s3.ActivePlayer)
	assert.Equal(t, int64(1), s3.TurnCount)
}

// ambushDef lets the first seat interrupt the turn so the other seat
// answers in the react phase.
const ambushDef = `{
  "id": "ambush",
  "players": {"min": 2, "max": 2},
  "zones": [],
  "perPlayerVars": [{"name": "answers", "init": 0}],
  "turnStructure": {"phases": [{"id": "main"}, {"id": "react"}]},
  "turnOrder": {"type": "cardDriven", "cardDriven": {"seatOrder": [0, 1]}},
  "actions": [
    {"id": "ambush", "actor": "active", "phases": ["main"], "effects": [
      {"pushInterruptPhase": {"phase": "react", "player": 1}}
    ]},
    {"id": "answer", "actor": "active", "phases": ["react"], "effects": [
      {"addVar": {"scope": "player", "var": "answers", "delta": 1}}
    ]},
    {"id": "pass", "actor": "active", "phases": ["main"]}
  ]
}`

func TestInterruptPhaseFlow(t *testing.T) {
	def := testutil.DecodeDef(t, ambushDef)
	s0 := start(t, def, 1)
	require.Equal(t, "main", s0.CurrentPhase)
	require.Equal(t, 0, s0.ActivePlayer)

	s1 := apply(t, def, s0, ir.Move{ActionID: "ambush"}).State
	assert.Equal(t, "react", s1.CurrentPhase)
	assert.Equal(t, 1, s1.ActivePlayer, "the interrupt hands the decision to seat 1")
	assert.True(t, turnflow.InInterrupt(s1))
	assert.Equal(t, 0, s1.TurnOrder.CardDriven.SeatCursor, "the interrupt does not spend the activation")

	moves, err := LegalMoves(def, s1)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, "answer", moves[0].ActionID)
	_, err = ApplyMove(def, s1, ir.Move{ActionID: "pass"})
	requireIllegal(t, err, ReasonPhaseMismatch)

	s2 := apply(t, def, s1, moves[0]).State
	assert.Equal(t, int64(1), s2.PerPlayerVars[1]["answers"])
	assert.Equal(t, "main", s2.CurrentPhase, "the suspended phase resumes")
	assert.False(t, turnflow.InInterrupt(s2))
	assert.Empty(t, s2.TurnOrder.CardDriven.InterruptPhaseStack)
	assert.Equal(t, 1, s2.TurnOrder.CardDriven.SeatCursor, "the interrupting seat's activation is complete")
	assert.Equal(t, 1, s2.ActivePlayer)
	assert.Equal(t, int64(0), s2.TurnCount)
}

func TestRoundRobinHasNoGrants(t *testing.T) {
	def := testutil.GameDef(t, testutil.GamePass)
	s0 := start(t, def, 1)
	_, err := ApplyMove(def, s0, ir.Move{ActionID: "pass", FreeOperation: true})
	requireIllegal(t, err, string(turnflow.NoActiveSeatGrant))
}
