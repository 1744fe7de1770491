package kernel

import (
	"fmt"
	"log/slog"

	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/triggers"
	"github.com/roach88/tabula/internal/turnflow"
)

// Result is the outcome of ApplyMove.
type Result struct {
	State      *ir.GameState       `json:"state"`
	RNG        ir.RngState         `json:"rng"`
	Trace      []effects.TraceEntry `json:"trace"`
	TriggerLog []triggers.LogEntry `json:"triggerLog"`
	Warnings   []string            `json:"warnings"`

	// Degenerate is set when a trigger cascade hit maxTriggerDepth.
	Degenerate bool `json:"degenerate,omitempty"`
}

// outcome is the shared product of resolving a move in either mode.
type outcome struct {
	x       *effects.Execution
	disp    *triggers.Dispatcher
	pending *effects.ChoicePending
}

// ApplyMove applies a complete move and advances the turn flow. The input
// state is not modified.
//
// A move that is incomplete, not applicable or not legal fails with an
// ILLEGAL_MOVE error whose reason is one of DenialReasons.
func ApplyMove(def *ir.GameDef, s *ir.GameState, move ir.Move, opts ...Option) (*Result, error) {
	if s == nil {
		return nil, fault.Internal("nil game state")
	}
	m, err := newMachine(def, s.PlayerCount, opts)
	if err != nil {
		return nil, err
	}
	out, err := m.resolve(s, move, eval.ModeExecution, effects.NewOpBudget(m.opts.MaxEffectOps))
	if err != nil {
		return nil, err
	}
	if out.pending != nil {
		return nil, illegal(move.ActionID, ReasonIncompleteMove, map[string]any{"decisionId": out.pending.DecisionID})
	}
	x := out.x
	if err := m.settle(x, out.disp); err != nil {
		return nil, err
	}
	hash, err := ir.StateHash(x.State)
	if err != nil {
		return nil, fault.Internal("state hash: %v", err)
	}
	x.State.StateHash = hash

	slog.Debug("move applied",
		"action", move.ActionID,
		"player", s.ActivePlayer,
		"ops", x.Ctx.Budget.Current(),
		"triggers", len(out.disp.Log()),
		"hash", hash.String(),
	)
	return &Result{
		State:      x.State,
		RNG:        x.State.RNG,
		Trace:      x.Trace,
		TriggerLog: out.disp.Log(),
		Warnings:   x.Warnings,
		Degenerate: out.disp.Degenerate,
	}, nil
}

// resolve runs a move on a working copy of s up to the point where the next
// decision point is known. A pending decision stops it early.
func (m *machine) resolve(s *ir.GameState, move ir.Move, mode eval.Mode, budget *effects.OpBudget) (*outcome, error) {
	term, err := m.terminal(s)
	if err != nil {
		return nil, err
	}
	if term != nil {
		return nil, illegal(move.ActionID, ReasonGameOver, nil)
	}
	action, ok := m.def.Action(move.ActionID)
	if !ok {
		return nil, illegal(move.ActionID, ReasonUnknownAction, nil)
	}

	work := s.Clone()
	player := work.ActivePlayer
	if err := m.applicable(work, action, move.FreeOperation, mode); err != nil {
		return nil, err
	}
	ec := m.evalCtx(work, nil, player, mode)
	var grant *ir.FreeOperationGrant
	if move.FreeOperation {
		if grant, err = m.grant(ec, work, action); err != nil {
			return nil, err
		}
	}
	b, pending, err := m.bindParams(ec, action, move.Params)
	if err != nil || pending != nil {
		return &outcome{pending: pending}, err
	}
	ec = ec.WithBindings(b)
	executor, err := m.executor(ec, action)
	if err != nil {
		return nil, err
	}
	if move.FreeOperation {
		if grant, err = m.grant(ec, work, action); err != nil {
			return nil, err
		}
	}

	ctx, err := effects.NewContext(effects.Config{
		Def:             m.def,
		Adjacency:       m.adj,
		ActorPlayer:     player,
		ExecutorPlayer:  executor,
		Mode:            mode,
		MaxQueryResults: m.opts.MaxQueryResults,
		Budget:          budget,
		Decisions:       move.Params,
		ActionID:        action.ID,
		EventContext:    "action:" + action.ID,
	})
	if err != nil {
		return nil, err
	}
	x, err := effects.NewExecution(ctx, work)
	if err != nil {
		return nil, err
	}
	out := &outcome{x: x, disp: triggers.New(m.def, triggers.WithMaxDepth(m.opts.MaxTriggerDepth))}

	if out.pending, err = m.runAction(x, ctx, action, move, b); err != nil || out.pending != nil {
		return out, err
	}
	if grant != nil {
		if err := turnflow.Consume(work, grant.GrantID); err != nil {
			return nil, fault.Internal("consume grant: %v", err)
		}
	} else {
		turnflow.RecordUsage(work, action.ID)
	}

	events := append(x.DrainEvents(), ir.TriggerEvent{Type: ir.EventActionResolved, Action: action.ID, Player: &player})
	if out.pending, err = out.disp.Dispatch(x, events); err != nil || out.pending != nil {
		return out, err
	}
	if out.pending, err = m.release(x, out.disp); err != nil || out.pending != nil {
		return out, err
	}
	if !x.FlowOverride {
		out.pending, err = m.advance(x, out.disp)
	}
	return out, err
}

// advance moves the turn flow one decision point and dispatches what that
// emitted.
func (m *machine) advance(x *effects.Execution, disp *triggers.Dispatcher) (*effects.ChoicePending, error) {
	pending, err := disp.Dispatch(x, turnflow.Advance(m.def, x.State))
	if err != nil || pending != nil {
		return pending, err
	}
	return m.release(x, disp)
}

// release runs deferred event effects whose grant batches completed. Each
// runs for the player that deferred it.
func (m *machine) release(x *effects.Execution, disp *triggers.Dispatcher) (*effects.ChoicePending, error) {
	for {
		ready := turnflow.ReleasableDeferred(x.State)
		if len(ready) == 0 {
			return nil, nil
		}
		for _, d := range ready {
			ctx := x.Ctx.WithEvent("deferred:"+d.DeferredID, d.ActorPlayer)
			ctx.ActionID = d.ActionID
			_, pending, err := x.RunWith(ctx, d.Effects, d.Bindings, "deferred."+d.DeferredID+".effects")
			if err != nil || pending != nil {
				return pending, err
			}
			if pending, err = disp.Dispatch(x, x.DrainEvents()); err != nil || pending != nil {
				return pending, err
			}
		}
	}
}

// settle skips decision points where the active player has nothing to do.
// Grants the player cannot use are expired. The loop is bounded so a game
// where nobody can ever move still terminates.
func (m *machine) settle(x *effects.Execution, disp *triggers.Dispatcher) error {
	bound := len(m.def.TurnStructure.Phases)*(x.State.PlayerCount+1)*2 + 2
	for i := 0; i < bound; i++ {
		term, err := m.terminal(x.State)
		if err != nil {
			return err
		}
		if term != nil {
			return nil
		}
		moves, err := m.legalMoves(x.State)
		if err != nil {
			return err
		}
		if len(moves) > 0 {
			return nil
		}
		seat := x.State.ActivePlayer
		if expired := turnflow.ExpireSeat(x.State, seat); len(expired) > 0 {
			x.Warnings = append(x.Warnings, fmt.Sprintf("expired %d unusable free-operation grant(s) of seat %d", len(expired), seat))
		}
		pending, err := m.advance(x, disp)
		if err != nil {
			return err
		}
		if pending != nil {
			return illegal(x.Ctx.ActionID, ReasonIncompleteMove, map[string]any{"decisionId": pending.DecisionID})
		}
	}
	x.Warnings = append(x.Warnings, fmt.Sprintf("no legal move found after skipping %d decision points", bound))
	return nil
}
