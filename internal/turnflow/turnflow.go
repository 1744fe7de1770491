// Package turnflow is the turn/phase/seat state machine.
//
// Functions here are pure state transitions on an owned working copy of the
// game state. They never run effects: entering a phase returns phaseEnter
// events and the kernel runs the phase hooks and triggers for them.
package turnflow

import (
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/ir"
)

// Init installs the turn-order runtime and the first active player.
func Init(def *ir.GameDef, s *ir.GameState) error {
	s.TurnOrder = ir.TurnOrderState{Type: def.TurnOrder.Kind()}
	switch def.TurnOrder.Kind() {
	case ir.TurnOrderRoundRobin:
		s.ActivePlayer = 0
	case ir.TurnOrderCardDriven:
		var order []int
		if def.TurnOrder.CardDriven != nil {
			order = slices.Clone(def.TurnOrder.CardDriven.SeatOrder)
		}
		if len(order) == 0 {
			for p := 0; p < s.PlayerCount; p++ {
				order = append(order, p)
			}
		}
		for _, seat := range order {
			if seat < 0 || seat >= s.PlayerCount {
				return fmt.Errorf("seatOrder entry %d outside player count %d", seat, s.PlayerCount)
			}
		}
		s.TurnOrder.CardDriven = &ir.CardDrivenRuntime{
			SeatOrder:                   order,
			PendingFreeOperationGrants:  []ir.FreeOperationGrant{},
			PendingDeferredEventEffects: []ir.DeferredEventEffect{},
			InterruptPhaseStack:         []ir.InterruptFrame{},
		}
		s.ActivePlayer = order[0]
	default:
		return fmt.Errorf("unknown turn order type %q", def.TurnOrder.Type)
	}
	if len(def.TurnStructure.Phases) == 0 {
		return fmt.Errorf("turn structure declares no phases")
	}
	s.CurrentPhase = def.TurnStructure.Phases[0].ID
	return nil
}

// StartEvents are the events of the very first decision point.
func StartEvents(s *ir.GameState) []ir.TriggerEvent {
	p := s.ActivePlayer
	return []ir.TriggerEvent{
		{Type: ir.EventTurnStart, Phase: s.CurrentPhase, Player: &p},
		{Type: ir.EventPhaseEnter, Phase: s.CurrentPhase, Player: &p},
	}
}

// Advance moves the flow past the decision point that was just resolved.
func Advance(def *ir.GameDef, s *ir.GameState) []ir.TriggerEvent {
	if s.TurnOrder.Type == ir.TurnOrderCardDriven {
		return advanceCardDriven(def, s)
	}
	return advancePhase(def, s, func() {
		s.ActivePlayer = (s.ActivePlayer + 1) % s.PlayerCount
	})
}

func advanceCardDriven(def *ir.GameDef, s *ir.GameState) []ir.TriggerEvent {
	cd := s.TurnOrder.CardDriven
	var events []ir.TriggerEvent

	if InInterrupt(s) {
		frame, _ := PopInterrupt(s)
		events = append(events, phaseChange(s, frame.Phase, frame.ResumePhase)...)
		s.ActivePlayer = frame.ResumePlayer
	}

	if g, ok := NextGrant(s); ok {
		s.ActivePlayer = g.Seat
		return events
	}

	// Each seat's activation is its own turn for usage limits.
	ResetUsage(s, ir.LimitTurn)
	ResetUsage(s, ir.LimitPhase)
	cd.SeatCursor++
	if cd.SeatCursor < len(cd.SeatOrder) {
		s.ActivePlayer = cd.SeatOrder[cd.SeatCursor]
		return events
	}
	cd.SeatCursor = 0
	return append(events, advancePhase(def, s, func() {
		s.ActivePlayer = cd.SeatOrder[0]
	})...)
}

// advancePhase moves to the next phase, ending the turn after the last
// one. nextPlayer runs only when the turn ends.
func advancePhase(def *ir.GameDef, s *ir.GameState, nextPlayer func()) []ir.TriggerEvent {
	phases := def.TurnStructure.Phases
	_, idx, _ := def.Phase(s.CurrentPhase)
	if idx+1 < len(phases) {
		events := phaseChange(s, s.CurrentPhase, phases[idx+1].ID)
		if s.TurnOrder.Type == ir.TurnOrderCardDriven {
			s.ActivePlayer = s.TurnOrder.CardDriven.SeatOrder[0]
		}
		return events
	}

	prev := s.ActivePlayer
	events := []ir.TriggerEvent{
		{Type: ir.EventPhaseExit, Phase: s.CurrentPhase, Player: &prev},
		{Type: ir.EventTurnEnd, Phase: s.CurrentPhase, Player: &prev},
	}
	s.TurnCount++
	ResetUsage(s, ir.LimitTurn)
	ResetUsage(s, ir.LimitPhase)
	s.CurrentPhase = phases[0].ID
	nextPlayer()
	next := s.ActivePlayer
	return append(events,
		ir.TriggerEvent{Type: ir.EventTurnStart, Phase: s.CurrentPhase, Player: &next},
		ir.TriggerEvent{Type: ir.EventPhaseEnter, Phase: s.CurrentPhase, Player: &next},
	)
}

func phaseChange(s *ir.GameState, from, to string) []ir.TriggerEvent {
	p := s.ActivePlayer
	s.CurrentPhase = to
	ResetUsage(s, ir.LimitPhase)
	return []ir.TriggerEvent{
		{Type: ir.EventPhaseExit, Phase: from, Player: &p},
		{Type: ir.EventPhaseEnter, Phase: to, Player: &p},
	}
}

// GotoPhase jumps to a declared phase of the current turn.
func GotoPhase(def *ir.GameDef, s *ir.GameState, phase string) ([]ir.TriggerEvent, error) {
	if _, _, ok := def.Phase(phase); !ok {
		return nil, fmt.Errorf("gotoPhase: unknown phase %q", phase)
	}
	return phaseChange(s, s.CurrentPhase, phase), nil
}

// ResetUsage clears one usage scope for every action.
func ResetUsage(s *ir.GameState, scope string) {
	for id, u := range s.ActionUsage {
		switch scope {
		case ir.LimitTurn:
			u.Turn = 0
		case ir.LimitPhase:
			u.Phase = 0
		case ir.LimitGame:
			u.Game = 0
		}
		s.ActionUsage[id] = u
	}
}

// RecordUsage counts one use of an action in every scope.
func RecordUsage(s *ir.GameState, actionID string) {
	if s.ActionUsage == nil {
		s.ActionUsage = map[string]ir.ActionUsage{}
	}
	u := s.ActionUsage[actionID]
	u.Turn++
	u.Phase++
	u.Game++
	s.ActionUsage[actionID] = u
}

// UsageCount returns the recorded uses of an action in a scope.
func UsageCount(s *ir.GameState, actionID, scope string) int {
	u := s.ActionUsage[actionID]
	switch scope {
	case ir.LimitTurn:
		return u.Turn
	case ir.LimitPhase:
		return u.Phase
	case ir.LimitGame:
		return u.Game
	}
	return 0
}
