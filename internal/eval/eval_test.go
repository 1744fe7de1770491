package eval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
)

const testDefJSON = `{
  "id": "evaltest",
  "players": {"min": 2, "max": 3},
  "zones": [
    {"id": "board", "adjacent": ["north", "south"]},
    {"id": "north", "adjacent": ["far"]},
    {"id": "south"},
    {"id": "far"},
    {"id": "hand", "owner": "player"}
  ],
  "globalVars": [{"name": "round", "init": 1}],
  "perPlayerVars": [{"name": "gold", "init": 3}],
  "zoneVars": [{"name": "control", "init": 0}],
  "tables": {"units": [{"name": "pawn", "cost": 1}, {"name": "rook", "cost": 5}]},
  "turnStructure": {"phases": [{"id": "main"}]},
  "turnOrder": {"type": "roundRobin"},
  "actions": []
}`

func testDef(t *testing.T) *ir.GameDef {
	t.Helper()
	var def ir.GameDef
	require.NoError(t, json.Unmarshal([]byte(testDefJSON), &def))
	return &def
}

func testState(def *ir.GameDef) *ir.GameState {
	s := &ir.GameState{
		GlobalVars:    map[string]int64{"round": 1},
		PerPlayerVars: []map[string]int64{{"gold": 3}, {"gold": 7}},
		ZoneVars:      map[string]map[string]int64{},
		Zones:         map[string][]string{},
		Tokens: map[string]ir.Token{
			"t1": {ID: "t1", Type: "unit", Props: ir.Object{"strength": ir.Int(2)}},
			"t2": {ID: "t2", Type: "unit", Props: ir.Object{"strength": ir.Int(5)}},
			"t3": {ID: "t3", Type: "card", Props: ir.Object{}},
		},
		PlayerCount:  2,
		ActivePlayer: 0,
		CurrentPhase: "main",
		TurnCount:    4,
	}
	for _, z := range def.ZoneIDs(2) {
		s.Zones[z] = []string{}
		s.ZoneVars[z] = map[string]int64{"control": 0}
	}
	s.Zones["board:none"] = []string{"t1", "t2"}
	s.Zones["hand:1"] = []string{"t3"}
	return s
}

func testCtx(t *testing.T) *Context {
	def := testDef(t)
	st := testState(def)
	return NewContext(def, st, BuildAdjacency(def, 2), ModeExecution)
}

func expr(t *testing.T, src string) ir.Expr {
	t.Helper()
	var e ir.Expr
	require.NoError(t, json.Unmarshal([]byte(src), &e))
	return e
}

func cond(t *testing.T, src string) ir.Cond {
	t.Helper()
	var c ir.Cond
	require.NoError(t, json.Unmarshal([]byte(src), &c))
	return c
}

func query(t *testing.T, src string) ir.Query {
	t.Helper()
	var q ir.Query
	require.NoError(t, json.Unmarshal([]byte(src), &q))
	return q
}

func TestValueExpressions(t *testing.T) {
	ctx := testCtx(t).With("$n", ir.Int(10))

	tests := []struct {
		name string
		src  string
		want ir.Value
	}{
		{"literal", `7`, ir.Int(7)},
		{"string literal", `"x"`, ir.String("x")},
		{"global var", `{"ref":"gvar","var":"round"}`, ir.Int(1)},
		{"player var default actor", `{"ref":"pvar","var":"gold"}`, ir.Int(3)},
		{"player var explicit", `{"ref":"pvar","player":1,"var":"gold"}`, ir.Int(7)},
		{"player var left", `{"ref":"pvar","player":"left","var":"gold"}`, ir.Int(7)},
		{"zone var", `{"ref":"zoneVar","zone":"board","var":"control"}`, ir.Int(0)},
		{"zone count", `{"ref":"zoneCount","zone":"board:none"}`, ir.Int(2)},
		{"zone count all hands", `{"ref":"zoneCount","zone":"hand:all"}`, ir.Int(1)},
		{"binding", `{"ref":"binding","name":"$n"}`, ir.Int(10)},
		{"turn count", `{"ref":"turnCount"}`, ir.Int(4)},
		{"phase", `{"ref":"phase"}`, ir.String("main")},
		{"add", `{"op":"+","left":2,"right":3}`, ir.Int(5)},
		{"div truncates toward zero", `{"op":"/","left":-7,"right":2}`, ir.Int(-3)},
		{"mod", `{"op":"%","left":7,"right":3}`, ir.Int(1)},
		{"max", `{"op":"max","left":{"ref":"binding","name":"$n"},"right":3}`, ir.Int(10)},
		{"concat", `{"concat":["p",{"ref":"activePlayer"},"-",true]}`, ir.String("p0-true")},
		{"if", `{"if":{"when":{"op":">","left":{"ref":"binding","name":"$n"},"right":5},"then":"big","else":"small"}}`, ir.String("big")},
		{"count", `{"aggregate":{"op":"count","query":{"query":"tokensInZone","zone":"board"}}}`, ir.Int(2)},
		{"sum", `{"aggregate":{"op":"sum","query":{"query":"tokensInZone","zone":"board"},"bind":"$t","value":{"ref":"tokenProp","token":"$t","prop":"strength"}}}`, ir.Int(7)},
		{"min of ints", `{"aggregate":{"op":"min","query":{"query":"intsInRange","min":3,"max":6}}}`, ir.Int(3)},
		{"distance", `{"distance":{"from":"south","to":"far"}}`, ir.Int(3)},
		{"distance same zone", `{"distance":{"from":"far","to":"far"}}`, ir.Int(0)},
		{"token type pseudo prop", `{"ref":"tokenProp","token":"t3","prop":"type"}`, ir.String("card")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Value(ctx, expr(t, tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueErrors(t *testing.T) {
	ctx := testCtx(t)

	tests := []struct {
		name string
		src  string
		code Code
	}{
		{"missing binding", `{"ref":"binding","name":"$nope"}`, CodeMissingBinding},
		{"missing var", `{"ref":"gvar","var":"nope"}`, CodeMissingVar},
		{"type mismatch", `{"op":"+","left":"a","right":1}`, CodeTypeMismatch},
		{"division by zero", `{"op":"/","left":1,"right":0}`, CodeDivisionByZero},
		{"modulo by zero", `{"op":"%","left":1,"right":0}`, CodeDivisionByZero},
		{"unknown zone", `{"ref":"zoneCount","zone":"nowhere"}`, CodeSelectorCardinality},
		{"player outside count", `{"ref":"pvar","player":5,"var":"gold"}`, CodeSelectorCardinality},
		{"many players for one", `{"ref":"pvar","player":"all","var":"gold"}`, CodeSelectorCardinality},
		{"missing token prop", `{"ref":"tokenProp","token":"t3","prop":"strength"}`, CodeMissingVar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Value(ctx, expr(t, tt.src))
			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestQueries(t *testing.T) {
	ctx := testCtx(t).With("$list", ir.Array{ir.Int(4), ir.Int(5)})

	tests := []struct {
		name string
		src  string
		want []ir.Value
	}{
		{"tokens in zone", `{"query":"tokensInZone","zone":"board"}`, []ir.Value{ir.TokenRef("t1"), ir.TokenRef("t2")}},
		{"tokens filtered", `{"query":"tokensInZone","zone":"board","filter":{"op":">","left":{"ref":"tokenProp","token":"$token","prop":"strength"},"right":3}}`, []ir.Value{ir.TokenRef("t2")}},
		{"ints", `{"query":"intsInRange","min":1,"max":3}`, []ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)}},
		{"inverted ints", `{"query":"intsInRange","min":3,"max":1}`, nil},
		{"enums", `{"query":"enums","values":["a","b"]}`, []ir.Value{ir.String("a"), ir.String("b")}},
		{"players", `{"query":"players"}`, []ir.Value{ir.Int(0), ir.Int(1)}},
		{"players filtered", `{"query":"players","filter":{"op":">","left":{"ref":"pvar","player":"$player","var":"gold"},"right":5}}`, []ir.Value{ir.Int(1)}},
		{"zones by base", `{"query":"zones","base":"hand"}`, []ir.Value{ir.String("hand:0"), ir.String("hand:1")}},
		{"zones by owner", `{"query":"zones","owner":"actor"}`, []ir.Value{ir.String("hand:0")}},
		{"adjacent", `{"query":"adjacentZones","zone":"board"}`, []ir.Value{ir.String("north:none"), ir.String("south:none")}},
		{"connected", `{"query":"connectedZones","zone":"south"}`, []ir.Value{ir.String("board:none"), ir.String("north:none"), ir.String("far:none")}},
		{"connected depth", `{"query":"connectedZones","zone":"south","maxDepth":1,"includeStart":true}`, []ir.Value{ir.String("south:none"), ir.String("board:none")}},
		{"asset rows", `{"query":"assetRows","table":"units","where":{"op":"==","left":{"ref":"binding","name":"$row"},"right":{"lit":{"name":"rook","cost":5}}}}`, []ir.Value{ir.Object{"name": ir.String("rook"), "cost": ir.Int(5)}}},
		{"binding", `{"query":"binding","name":"$list"}`, []ir.Value{ir.Int(4), ir.Int(5)}},
		{"concat", `{"query":"concat","sources":[{"query":"enums","values":["x"]},{"query":"intsInRange","min":1,"max":1}]}`, []ir.Value{ir.String("x"), ir.Int(1)}},
		{"next in order wraps", `{"query":"nextInOrderByCondition","source":{"query":"players"},"from":1,"bind":"$p","where":true,"wrap":true}`, []ir.Value{ir.Int(0)}},
		{"next in order no wrap", `{"query":"nextInOrderByCondition","source":{"query":"players"},"from":1,"bind":"$p","where":true}`, nil},
		{"next in order include from", `{"query":"nextInOrderByCondition","source":{"query":"players"},"from":1,"bind":"$p","where":true,"includeFrom":true}`, []ir.Value{ir.Int(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(ctx, query(t, tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryBoundsExceeded(t *testing.T) {
	ctx := testCtx(t)
	ctx.MaxQueryResults = 5

	_, err := Query(ctx, query(t, `{"query":"intsInRange","min":1,"max":6}`))
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeQueryBoundsExceeded))

	_, err = Query(ctx, query(t, `{"query":"concat","sources":[{"query":"intsInRange","min":1,"max":3},{"query":"intsInRange","min":1,"max":3}]}`))
	assert.True(t, HasCode(err, CodeQueryBoundsExceeded))

	got, err := Query(ctx, query(t, `{"query":"intsInRange","min":1,"max":5}`))
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestConditions(t *testing.T) {
	ctx := testCtx(t)

	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"true", `true`, true},
		{"and", `{"op":"and","args":[true,{"op":"==","left":1,"right":1}]}`, true},
		{"or", `{"op":"or","args":[false,false]}`, false},
		{"not", `{"op":"not","arg":false}`, true},
		{"string order", `{"op":"<","left":"a","right":"b"}`, true},
		{"token equals string id", `{"op":"==","left":{"ref":"tokenProp","token":"t1","prop":"id"},"right":"t1"}`, true},
		{"in", `{"op":"in","item":"t2","set":{"query":"tokensInZone","zone":"board"}}`, true},
		{"not in", `{"op":"in","item":"t3","set":{"query":"tokensInZone","zone":"board"}}`, false},
		{"adjacent", `{"op":"spatial","relation":"adjacent","from":"board","to":"north"}`, true},
		{"not adjacent", `{"op":"spatial","relation":"adjacent","from":"south","to":"far"}`, false},
		{"connected", `{"op":"spatial","relation":"connected","from":"south","to":"far"}`, true},
		{"connected via blocked", `{"op":"spatial","relation":"connected","from":"south","to":"far","via":{"op":"!=","left":{"ref":"binding","name":"$zone"},"right":"north:none"}}`, false},
		{"and short-circuits", `{"op":"and","args":[false,{"op":"==","left":{"ref":"binding","name":"$missing"},"right":1}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Condition(ctx, cond(t, tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionErrors(t *testing.T) {
	ctx := testCtx(t)

	_, err := Condition(ctx, cond(t, `{"op":"spatial","relation":"lineOfSight","from":"board","to":"far"}`))
	assert.True(t, HasCode(err, CodeSpatialNotImplemented))

	_, err = Condition(ctx, cond(t, `{"op":"<","left":"a","right":1}`))
	assert.True(t, HasCode(err, CodeTypeMismatch))
}

func TestEvaluationDoesNotMutateState(t *testing.T) {
	def := testDef(t)
	st := testState(def)
	before, err := json.Marshal(st)
	require.NoError(t, err)

	ctx := NewContext(def, st, BuildAdjacency(def, 2), ModeDiscovery)
	_, err = Query(ctx, query(t, `{"query":"tokensInZone","zone":"board"}`))
	require.NoError(t, err)
	_, err = Value(ctx, expr(t, `{"aggregate":{"op":"sum","query":{"query":"players"},"bind":"$p","value":{"ref":"pvar","player":"$p","var":"gold"}}}`))
	require.NoError(t, err)

	after, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		src    string
		domain DomainKind
		shape  Shape
	}{
		{`{"query":"tokensInZone","zone":"board"}`, DomainToken, ShapeToken},
		{`{"query":"intsInRange","min":1,"max":2}`, DomainOther, ShapeNumber},
		{`{"query":"enums","values":[]}`, DomainOther, ShapeString},
		{`{"query":"zones"}`, DomainZone, ShapeString},
		{`{"query":"assetRows","table":"units"}`, DomainOther, ShapeObject},
		{`{"query":"binding","name":"$x"}`, DomainOther, ShapeUnknown},
		{`{"query":"concat","sources":[{"query":"zones"},{"query":"adjacentZones","zone":"board"}]}`, DomainZone, ShapeString},
		{`{"query":"concat","sources":[{"query":"zones"},{"query":"players"}]}`, DomainOther, ShapeUnknown},
	}
	for _, tt := range tests {
		d, s := Describe(query(t, tt.src))
		assert.Equal(t, tt.domain, d, tt.src)
		assert.Equal(t, tt.shape, s, tt.src)
	}
	assert.False(t, MoveParamSafe(ShapeObject))
	assert.True(t, MoveParamSafe(ShapeToken))
}

// Whether a cardinality failure is binding-derived follows the parsed
// selector, not a "$" somewhere in its text.
func TestResolveZoneBindingDerived(t *testing.T) {
	def := testDef(t)
	st := testState(def)
	st.Zones["$vault:0"] = []string{}
	st.Zones["$vault:1"] = []string{}
	ctx := NewContext(def, st, BuildAdjacency(def, 2), ModeExecution).
		With("$none", ir.Array{}).
		With("$both", ir.Array{ir.Int(0), ir.Int(1)})

	tests := []struct {
		sel     ir.ZoneSel
		count   int
		derived bool
	}{
		{"hand:all", 2, false},
		{"$vault:all", 2, false},
		{"$none", 0, true},
		{"hand:$both", 2, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.sel), func(t *testing.T) {
			_, err := ResolveZone(ctx, tt.sel)
			require.Error(t, err)
			ee, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, CodeSelectorCardinality, ee.Code)
			assert.Equal(t, tt.count, ee.Details["resolvedCount"])
			assert.Equal(t, tt.derived, ee.Details["bindingDerived"])
		})
	}

	zone, err := ResolveZone(ctx, "$vault:0")
	require.NoError(t, err)
	assert.Equal(t, "$vault:0", zone)
}
