package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
)

// Game is a running game agents can play, such as a session.Session.
type Game interface {
	Def() *ir.GameDef
	State() *ir.GameState
	Apply(ctx context.Context, move ir.Move) (*kernel.Result, error)
	Terminal() (*kernel.Terminal, error)
}

// Outcome summarizes a played game.
type Outcome struct {
	Moves    int              `json:"moves"`
	Terminal *kernel.Terminal `json:"terminal,omitempty"`

	// Stalled is set when the game stopped without a result because no
	// legal move remained.
	Stalled bool `json:"stalled,omitempty"`
}

// Play lets the agents take turns, agents[p] moving for player p, until the
// game ends, stalls or maxMoves moves were applied. A single agent plays
// every seat.
func Play(ctx context.Context, g Game, agents []Agent, maxMoves int) (Outcome, error) {
	if len(agents) == 0 {
		return Outcome{}, errors.New("play: no agents")
	}
	var out Outcome
	for out.Moves < maxMoves {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		term, err := g.Terminal()
		if err != nil {
			return out, err
		}
		if term != nil {
			out.Terminal = term
			return out, nil
		}

		s := g.State()
		a := agents[0]
		if s.ActivePlayer < len(agents) {
			a = agents[s.ActivePlayer]
		}
		move, err := a.Choose(g.Def(), s)
		if errors.Is(err, ErrNoMoves) {
			out.Stalled = true
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("player %d: %w", s.ActivePlayer, err)
		}
		if _, err := g.Apply(ctx, move); err != nil {
			return out, fmt.Errorf("player %d: apply %s: %w", s.ActivePlayer, move.ActionID, err)
		}
		out.Moves++
	}
	term, err := g.Terminal()
	out.Terminal = term
	return out, err
}
