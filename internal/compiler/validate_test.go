package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/testutil"
)

func TestValidateFixturesClean(t *testing.T) {
	for _, name := range []string{testutil.GamePass, testutil.GameChoose, testutil.GameRace, testutil.GameHeist, testutil.GameOps} {
		assert.Empty(t, Validate(testutil.GameDef(t, name)), name)
	}
}

func TestValidatePlayerRange(t *testing.T) {
	def := testutil.GameDef(t, testutil.GamePass)
	def.Players = ir.PlayerRange{Min: 4, Max: 2}

	diags := Validate(def)
	require.Len(t, diags, 1)
	assert.Equal(t, ErrPlayerRange, diags[0].Code)
	assert.Equal(t, "players", diags[0].Path)
}

func TestValidateDuplicateIDs(t *testing.T) {
	def := testutil.GameDef(t, testutil.GameHeist)
	def.Actions = append(def.Actions, ir.ActionDef{ID: "raid", Actor: ir.PlayerSel{Kind: ir.PlayerActive}})
	def.PerPlayerVars = append(def.PerPlayerVars, ir.VarDef{Name: "gold"})

	diags := Validate(def)
	require.Len(t, diags, 2)
	assert.Equal(t, Diagnostic{Code: ErrDuplicateID, Path: "actions[4]", Message: `duplicate id "raid"`}, diags[0])
	assert.Equal(t, "perPlayerVars[3]", diags[1].Path)
}

func TestValidateVarBounds(t *testing.T) {
	lo, hi := int64(5), int64(1)
	def := testutil.GameDef(t, testutil.GamePass)
	def.GlobalVars = []ir.VarDef{
		{Name: "inverted", Min: &lo, Max: &hi},
		{Name: "outside", Init: 9, Max: &lo},
	}

	diags := Validate(def)
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, ErrVarBounds, d.Code)
	}
	assert.Contains(t, diags[0].Message, "exceeds")
	assert.Contains(t, diags[1].Message, "init 9")
}

func TestValidateSeatOrder(t *testing.T) {
	def := testutil.GameDef(t, testutil.GameOps)
	def.TurnOrder.CardDriven.SeatOrder = []int{0, 2, 0}

	diags := Validate(def)
	require.Len(t, diags, 2)
	assert.Equal(t, "turnOrder.cardDriven.seatOrder[1]", diags[0].Path)
	assert.Contains(t, diags[0].Message, "outside")
	assert.Equal(t, "turnOrder.cardDriven.seatOrder[2]", diags[1].Path)
	assert.Contains(t, diags[1].Message, "twice")
}

func TestValidateCardDrivenShape(t *testing.T) {
	def := testutil.GameDef(t, testutil.GamePass)
	def.TurnOrder.CardDriven = &ir.CardDrivenDef{SeatOrder: []int{0, 1}}

	diags := Validate(def)
	require.Len(t, diags, 1)
	assert.Equal(t, ErrTurnOrderShape, diags[0].Code)
}

func TestValidateEffectReferences(t *testing.T) {
	def := testutil.DecodeDef(t, `{
		"id": "refs",
		"players": {"min": 2, "max": 2},
		"zones": [{"id": "deck", "adjacent": ["void"]}],
		"turnStructure": {"phases": [{"id": "main"}]},
		"actions": [
			{"id": "go", "actor": "active", "linkedActions": ["fly"], "effects": [
				{"if": {"when": true, "then": [
					{"setVar": {"scope": "global", "var": "ghost", "value": 1}}
				], "else": [
					{"draw": {"from": "deck", "to": "hand:actor", "count": 1}}
				]}},
				{"forEach": {"bind": "$i", "over": {"query": "intsInRange", "min": 1, "max": 2}, "effects": [
					{"createToken": {"type": "gem", "zone": "$z"}},
					{"gotoPhase": {"phase": "dusk"}}
				]}}
			]}
		],
		"actionPipelines": [
			{"id": "p", "actionId": "nope", "stages": [{"name": "s", "effects": []}]}
		],
		"triggers": [
			{"id": "t", "event": {"type": "actionResolved", "action": "swim"}, "effects": []}
		]
	}`)

	var got []string
	for _, d := range Validate(def) {
		assert.Equal(t, ErrUnknownRef, d.Code, d.Path)
		got = append(got, d.Path)
	}
	assert.Equal(t, []string{
		"zones[0].adjacent[0]",
		"actions[0].linkedActions[0]",
		"actionPipelines[0].actionId",
		"triggers[0].event.action",
		"actions[0].effects[0].if.then[0].setVar.var",
		"actions[0].effects[0].if.else[0].draw.to",
		"actions[0].effects[1].forEach.effects[0].createToken.type",
		"actions[0].effects[1].forEach.effects[1].gotoPhase.phase",
	}, got)
}
