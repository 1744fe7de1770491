package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidState marks a structurally inconsistent state.
var ErrInvalidState = errors.New("invalid game state")

// EncodeState serializes a state. The output is stable: encoding the decoded
// result reproduces the same bytes.
func EncodeState(s *GameState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses and validates a serialized state. Unknown fields are
// rejected.
func DecodeState(data []byte) (*GameState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s GameState
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := ValidateState(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ValidateState checks the structural invariants every state must satisfy,
// including the card-driven turn-order runtime.
func ValidateState(s *GameState) error {
	if s.PlayerCount < 1 {
		return invalidf("playerCount %d must be positive", s.PlayerCount)
	}
	inRange := func(p int) bool { return p >= 0 && p < s.PlayerCount }
	if !inRange(s.ActivePlayer) {
		return invalidf("activePlayer %d outside player count %d", s.ActivePlayer, s.PlayerCount)
	}
	if len(s.PerPlayerVars) != s.PlayerCount {
		return invalidf("perPlayerVars has %d entries for %d players", len(s.PerPlayerVars), s.PlayerCount)
	}
	if s.TurnCount < 0 || s.NextTokenOrdinal < 0 {
		return invalidf("negative counters")
	}
	if len(s.RNG.Words) == 0 {
		return invalidf("rng state is empty")
	}

	seen := make(map[string]string, len(s.Tokens))
	for _, zone := range SortedZoneIDs(s.Zones) {
		for _, id := range s.Zones[zone] {
			if prev, dup := seen[id]; dup {
				return invalidf("token %q is in both %q and %q", id, prev, zone)
			}
			if _, ok := s.Tokens[id]; !ok {
				return invalidf("zone %q references unknown token %q", zone, id)
			}
			seen[id] = zone
		}
	}
	for id, tok := range s.Tokens {
		if tok.ID != id {
			return invalidf("token key %q holds token %q", id, tok.ID)
		}
		if _, ok := seen[id]; !ok {
			return invalidf("token %q is in no zone", id)
		}
	}
	for zone, players := range s.Revealed {
		for _, p := range players {
			if !inRange(p) {
				return invalidf("zone %q revealed to invalid player %d", zone, p)
			}
		}
	}

	return validateTurnOrder(s.TurnOrder, inRange)
}

func validateTurnOrder(t TurnOrderState, inRange func(int) bool) error {
	switch t.Type {
	case TurnOrderRoundRobin:
		if t.CardDriven != nil {
			return invalidf("roundRobin turn order carries cardDriven runtime")
		}
		return nil
	case TurnOrderCardDriven:
		if t.CardDriven == nil {
			return invalidf("cardDriven turn order without runtime")
		}
	default:
		return invalidf("unknown turn order type %q", t.Type)
	}

	cd := t.CardDriven
	if len(cd.SeatOrder) == 0 {
		return invalidf("cardDriven seatOrder is empty")
	}
	for _, seat := range cd.SeatOrder {
		if !inRange(seat) {
			return invalidf("seatOrder entry %d is not a valid player", seat)
		}
	}
	if cd.SeatCursor < 0 || cd.SeatCursor >= len(cd.SeatOrder) {
		return invalidf("seatCursor %d outside seatOrder", cd.SeatCursor)
	}
	grantIDs := make(map[string]bool, len(cd.PendingFreeOperationGrants))
	for i, g := range cd.PendingFreeOperationGrants {
		if g.GrantID == "" || grantIDs[g.GrantID] {
			return invalidf("pendingFreeOperationGrants[%d] has missing or duplicate grantId", i)
		}
		grantIDs[g.GrantID] = true
		if !inRange(g.Seat) {
			return invalidf("pendingFreeOperationGrants[%d].seat %d is not a valid player", i, g.Seat)
		}
		if g.RemainingUses < 1 {
			return invalidf("pendingFreeOperationGrants[%d].remainingUses must be positive", i)
		}
	}
	for i, d := range cd.PendingDeferredEventEffects {
		if !inRange(d.ActorPlayer) {
			return invalidf("pendingDeferredEventEffects[%d].actorPlayer %d is not a valid player", i, d.ActorPlayer)
		}
		if len(d.RequiredBatchIDs) == 0 {
			return invalidf("pendingDeferredEventEffects[%d] requires no batch", i)
		}
	}
	for i, f := range cd.InterruptPhaseStack {
		if f.Phase == "" || f.ResumePhase == "" {
			return invalidf("interruptPhaseStack[%d] is missing a phase", i)
		}
		if !inRange(f.ResumePlayer) {
			return invalidf("interruptPhaseStack[%d].resumePlayer %d is not a valid player", i, f.ResumePlayer)
		}
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
