package kernel

import (
	"fmt"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
)

// Terminal describes a finished game. Player is set for a win.
type Terminal struct {
	Type      string `json:"type"`
	Player    *int   `json:"player,omitempty"`
	Condition int    `json:"condition"`
}

// TerminalResult evaluates the end conditions in declaration order and
// returns the first that holds, or nil while the game is running.
func TerminalResult(def *ir.GameDef, s *ir.GameState) (*Terminal, error) {
	if s == nil {
		return nil, fault.Internal("nil game state")
	}
	m, err := newMachine(def, s.PlayerCount, nil)
	if err != nil {
		return nil, err
	}
	return m.terminal(s)
}

func (m *machine) terminal(s *ir.GameState) (*Terminal, error) {
	for i, end := range m.def.EndConditions {
		ctx := m.evalCtx(s, nil, s.ActivePlayer, eval.ModeExecution)
		ok, err := eval.Condition(ctx, end.When)
		if err != nil {
			return nil, fmt.Errorf("end condition %d: %w", i, err)
		}
		if !ok {
			continue
		}
		t := &Terminal{Type: end.Result.Type, Condition: i}
		if end.Result.Player != nil {
			p, err := eval.ResolvePlayer(ctx, *end.Result.Player)
			if err != nil {
				return nil, fmt.Errorf("end condition %d winner: %w", i, err)
			}
			t.Player = &p
		}
		return t, nil
	}
	return nil, nil
}
