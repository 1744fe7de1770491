package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState returns a small valid two-player state.
func testState() *GameState {
	return &GameState{
		GlobalVars:    map[string]int64{"rolls": 0},
		PerPlayerVars: []map[string]int64{{"pos": 0}, {"pos": 3}},
		ZoneVars:      map[string]map[string]int64{},
		Zones: map[string][]string{
			"deck:none": {"card-2", "card-1"},
			"hand:0":    {},
			"hand:1":    {"card-3"},
		},
		Tokens: map[string]Token{
			"card-1": {ID: "card-1", Type: "card", Props: Object{"value": Int(1)}},
			"card-2": {ID: "card-2", Type: "card", Props: Object{"value": Int(2)}},
			"card-3": {ID: "card-3", Type: "card", Props: Object{}},
		},
		NextTokenOrdinal: 4,
		PlayerCount:      2,
		CurrentPhase:     "move",
		ActionUsage:      map[string]ActionUsage{"roll": {Turn: 1, Game: 1}},
		Revealed:         map[string][]int{"hand:1": {0}},
		RNG:              RngState{Algorithm: "pcg-dxsm-128", Version: 1, Words: []Hex64{1, 2, 3, 4}},
		TurnOrder:        TurnOrderState{Type: TurnOrderRoundRobin},
	}
}

func cardDrivenState() *GameState {
	s := testState()
	s.TurnOrder = TurnOrderState{
		Type: TurnOrderCardDriven,
		CardDriven: &CardDrivenRuntime{
			SeatOrder: []int{1, 0},
			PendingFreeOperationGrants: []FreeOperationGrant{
				{GrantID: "grant-1", Seat: 0, ActionIDs: []string{"march"}, RemainingUses: 1},
			},
			InterruptPhaseStack: []InterruptFrame{{Phase: "react", ResumePhase: "move", ResumePlayer: 1}},
		},
	}
	return s
}

func TestEncodeDecodeState(t *testing.T) {
	for name, s := range map[string]*GameState{
		"roundRobin": testState(),
		"cardDriven": cardDrivenState(),
	} {
		t.Run(name, func(t *testing.T) {
			s.StateHash = MustStateHash(s)
			data, err := EncodeState(s)
			require.NoError(t, err)

			decoded, err := DecodeState(data)
			require.NoError(t, err)
			assert.Equal(t, s, decoded)

			again, err := EncodeState(decoded)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again), "encoding is stable")
		})
	}
}

func TestDecodeStateRejectsUnknownFields(t *testing.T) {
	data, err := EncodeState(testState())
	require.NoError(t, err)
	data = append(data[:len(data)-1], []byte(`,"extra":1}`)...)

	_, err = DecodeState(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDecodeStateRejectsFloats(t *testing.T) {
	_, err := DecodeState([]byte(`{"globalVars":{"rolls":1.5}}`))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestValidateState(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *GameState)
		msg    string
	}{
		{"no players", func(s *GameState) { s.PlayerCount = 0 }, "playerCount"},
		{"active out of range", func(s *GameState) { s.ActivePlayer = 2 }, "activePlayer"},
		{"per-player vars", func(s *GameState) { s.PerPlayerVars = s.PerPlayerVars[:1] }, "perPlayerVars"},
		{"negative counter", func(s *GameState) { s.TurnCount = -1 }, "negative"},
		{"empty rng", func(s *GameState) { s.RNG.Words = nil }, "rng"},
		{"token in two zones", func(s *GameState) { s.Zones["hand:0"] = []string{"card-1"} }, "in both"},
		{"unknown token", func(s *GameState) { s.Zones["hand:0"] = []string{"ghost"} }, "unknown token"},
		{"token key", func(s *GameState) {
			tok := s.Tokens["card-3"]
			tok.ID = "card-9"
			s.Tokens["card-3"] = tok
		}, "holds token"},
		{"orphan token", func(s *GameState) { s.Zones["hand:1"] = nil }, "in no zone"},
		{"revealed to nobody", func(s *GameState) { s.Revealed["hand:1"] = []int{5} }, "revealed"},
		{"roundRobin with runtime", func(s *GameState) { s.TurnOrder.CardDriven = &CardDrivenRuntime{} }, "carries cardDriven"},
		{"unknown turn order", func(s *GameState) { s.TurnOrder.Type = "auction" }, "unknown turn order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testState()
			require.NoError(t, ValidateState(s))
			tt.mutate(s)
			err := ValidateState(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestValidateCardDrivenState(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cd *CardDrivenRuntime)
		msg    string
	}{
		{"empty seat order", func(cd *CardDrivenRuntime) { cd.SeatOrder = nil }, "seatOrder is empty"},
		{"bad seat", func(cd *CardDrivenRuntime) { cd.SeatOrder = []int{0, 7} }, "not a valid player"},
		{"cursor", func(cd *CardDrivenRuntime) { cd.SeatCursor = 2 }, "seatCursor"},
		{"duplicate grant", func(cd *CardDrivenRuntime) {
			cd.PendingFreeOperationGrants = append(cd.PendingFreeOperationGrants, cd.PendingFreeOperationGrants[0])
		}, "duplicate grantId"},
		{"used up grant", func(cd *CardDrivenRuntime) { cd.PendingFreeOperationGrants[0].RemainingUses = 0 }, "remainingUses"},
		{"deferred without batch", func(cd *CardDrivenRuntime) {
			cd.PendingDeferredEventEffects = []DeferredEventEffect{{DeferredID: "d1", ActorPlayer: 0}}
		}, "requires no batch"},
		{"interrupt frame", func(cd *CardDrivenRuntime) { cd.InterruptPhaseStack[0].ResumePhase = "" }, "missing a phase"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cardDrivenState()
			require.NoError(t, ValidateState(s))
			tt.mutate(s.TurnOrder.CardDriven)
			err := ValidateState(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	s := cardDrivenState()
	s.TurnOrder.CardDriven = nil
	assert.ErrorIs(t, ValidateState(s), ErrInvalidState)
}

func TestMoveKey(t *testing.T) {
	a := Move{ActionID: "advance", Params: Object{"$steps": Int(2), "decision:$x": String("b")}}
	b := Move{ActionID: "advance", Params: Object{"decision:$x": String("b"), "$steps": Int(2)}}
	assert.Equal(t, `{"actionId":"advance","params":{"$steps":2,"decision:$x":"b"}}`, a.Key())
	assert.True(t, Equivalent(a, b))

	assert.Equal(t, Move{ActionID: "roll"}.Key(), Move{ActionID: "roll", Params: Object{}}.Key())
	assert.False(t, Equivalent(a, Move{ActionID: "advance", Params: Object{"$steps": Int(3)}}))

	ordered := Move{ActionID: "pick", Params: Object{"$xs": Array{Int(1), Int(2)}}}
	reversed := Move{ActionID: "pick", Params: Object{"$xs": Array{Int(2), Int(1)}}}
	assert.False(t, Equivalent(ordered, reversed), "arrays are order-sensitive")
}

func TestMoveObject(t *testing.T) {
	m := Move{
		ActionID:      "march",
		Params:        Object{"$to": String("city")},
		FreeOperation: true,
		Compound:      &Move{ActionID: "raid"},
	}
	assert.Equal(t, Object{
		"actionId":      String("march"),
		"params":        Object{"$to": String("city")},
		"freeOperation": Bool(true),
		"compound":      Object{"actionId": String("raid"), "params": Object{}},
	}, m.Object())
}

func TestMoveWithParam(t *testing.T) {
	m := Move{ActionID: "pick"}
	m2 := m.WithParam("decision:$x", String("a"))
	m3 := m2.WithParam("decision:$y", Int(1))

	assert.Nil(t, m.Params)
	assert.Len(t, m2.Params, 1, "WithParam copies the params")
	assert.Len(t, m3.Params, 2)
}
