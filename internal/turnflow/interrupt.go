package turnflow

import (
	"fmt"

	"github.com/roach88/tabula/internal/ir"
)

// PushInterrupt suspends the current phase and hands player a decision in
// the interrupt phase.
func PushInterrupt(def *ir.GameDef, s *ir.GameState, phase, resumePhase string, player int) ([]ir.TriggerEvent, error) {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return nil, ErrNotCardDriven
	}
	if _, _, ok := def.Phase(phase); !ok {
		return nil, fmt.Errorf("pushInterruptPhase: unknown phase %q", phase)
	}
	if resumePhase == "" {
		resumePhase = s.CurrentPhase
	}
	if _, _, ok := def.Phase(resumePhase); !ok {
		return nil, fmt.Errorf("pushInterruptPhase: unknown resume phase %q", resumePhase)
	}
	if player < 0 || player >= s.PlayerCount {
		return nil, fmt.Errorf("pushInterruptPhase: player %d outside player count %d", player, s.PlayerCount)
	}
	cd.InterruptPhaseStack = append(cd.InterruptPhaseStack, ir.InterruptFrame{
		Phase:        phase,
		ResumePhase:  resumePhase,
		ResumePlayer: s.ActivePlayer,
	})
	events := phaseChange(s, s.CurrentPhase, phase)
	s.ActivePlayer = player
	return events, nil
}

// PopInterrupt removes the innermost interrupt frame.
func PopInterrupt(s *ir.GameState) (ir.InterruptFrame, bool) {
	cd := s.TurnOrder.CardDriven
	if cd == nil || len(cd.InterruptPhaseStack) == 0 {
		return ir.InterruptFrame{}, false
	}
	n := len(cd.InterruptPhaseStack)
	frame := cd.InterruptPhaseStack[n-1]
	cd.InterruptPhaseStack = cd.InterruptPhaseStack[:n-1]
	return frame, true
}

// InInterrupt reports whether the current phase is an interrupt.
func InInterrupt(s *ir.GameState) bool {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return false
	}
	n := len(cd.InterruptPhaseStack)
	return n > 0 && cd.InterruptPhaseStack[n-1].Phase == s.CurrentPhase
}
