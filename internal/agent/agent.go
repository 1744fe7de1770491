// Package agent implements the uniform-random baseline player.
//
// The agent draws from its own rng stream, seeded independently of the
// game, so its picks never disturb the game's random state and a run is
// reproducible from the pair (game seed, agent seed).
package agent

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/rng"
)

// DefaultMaxDecisions bounds the decisions the agent answers for one move.
const DefaultMaxDecisions = 256

// ErrNoMoves is returned when no legal move can be completed.
var ErrNoMoves = errors.New("no legal moves")

// Agent picks a complete move for a state.
type Agent interface {
	Choose(def *ir.GameDef, s *ir.GameState) (ir.Move, error)
}

// Random picks uniformly among the legal moves, then answers every pending
// decision of the picked move uniformly among its options.
//
// Thread-safety: not safe for concurrent use; its rng state advances with
// every pick.
type Random struct {
	rng          ir.RngState
	opts         []kernel.Option
	maxDecisions int
}

// NewRandom creates a random agent. The kernel options bound the legality
// queries it makes.
func NewRandom(seed int64, opts ...kernel.Option) *Random {
	return &Random{rng: rng.Create(seed), opts: opts, maxDecisions: DefaultMaxDecisions}
}

// Choose returns a complete legal move. Templates whose decisions end in an
// illegal verdict are dropped and another one is drawn.
func (a *Random) Choose(def *ir.GameDef, s *ir.GameState) (ir.Move, error) {
	candidates, err := kernel.LegalMoves(def, s, a.opts...)
	if err != nil {
		return ir.Move{}, err
	}
	for len(candidates) > 0 {
		i, err := a.intn(len(candidates))
		if err != nil {
			return ir.Move{}, err
		}
		move, ok, err := a.complete(def, s, candidates[i])
		if err != nil {
			return ir.Move{}, err
		}
		if ok {
			return move, nil
		}
		candidates = slices.Delete(candidates, i, i+1)
	}
	return ir.Move{}, ErrNoMoves
}

// complete answers the pending decisions of move until it is complete or
// illegal.
func (a *Random) complete(def *ir.GameDef, s *ir.GameState, move ir.Move) (ir.Move, bool, error) {
	for range a.maxDecisions {
		c, err := kernel.LegalChoices(def, s, move, a.opts...)
		if err != nil {
			return ir.Move{}, false, err
		}
		switch c.Kind {
		case kernel.ChoiceComplete:
			return move, true, nil
		case kernel.ChoiceIllegal:
			return ir.Move{}, false, nil
		}
		answer, ok, err := a.answer(c)
		if err != nil || !ok {
			return ir.Move{}, false, err
		}
		move = move.WithParam(c.DecisionID, answer)
	}
	return ir.Move{}, false, fmt.Errorf("move %s: more than %d decisions", move.ActionID, a.maxDecisions)
}

// answer picks a value for a pending decision. A chooseN answer keeps the
// options' order.
func (a *Random) answer(c kernel.Choice) (ir.Value, bool, error) {
	if c.Type != effects.KindChooseN {
		if len(c.Options) == 0 {
			return nil, false, nil
		}
		i, err := a.intn(len(c.Options))
		if err != nil {
			return nil, false, err
		}
		return c.Options[i], true, nil
	}

	hi := min(c.Max, len(c.Options))
	if c.Min > hi {
		return nil, false, nil
	}
	k, err := a.intn(hi - c.Min + 1)
	if err != nil {
		return nil, false, err
	}
	k += c.Min

	idx := make([]int, len(c.Options))
	for i := range idx {
		idx[i] = i
	}
	idx, a.rng, err = rng.Shuffle(a.rng, idx)
	if err != nil {
		return nil, false, err
	}
	picked := idx[:k]
	slices.Sort(picked)
	out := make(ir.Array, 0, k)
	for _, i := range picked {
		out = append(out, c.Options[i])
	}
	return out, true, nil
}

func (a *Random) intn(n int) (int, error) {
	v, next, err := rng.NextInt(a.rng, 0, int64(n-1))
	if err != nil {
		return 0, err
	}
	a.rng = next
	return int(v), nil
}
