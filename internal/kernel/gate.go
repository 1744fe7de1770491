package kernel

import (
	"slices"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/turnflow"
)

// applicable runs the outer checks every move passes before its parameters
// are bound: free-operation priority, phase, actor and usage limits.
// legalMoves and applyMove share it so both report the same reasons.
func (m *machine) applicable(s *ir.GameState, action *ir.ActionDef, free bool, mode eval.Mode) error {
	player := s.ActivePlayer
	if !free {
		if _, pending := turnflow.NextGrant(s); pending {
			return illegal(action.ID, ReasonFreeOperationPending, nil)
		}
		if len(action.Phases) > 0 && !slices.Contains(action.Phases, s.CurrentPhase) {
			return illegal(action.ID, ReasonPhaseMismatch, map[string]any{"phase": s.CurrentPhase})
		}
	}

	ctx := m.evalCtx(s, nil, player, mode)
	actors, err := eval.ResolvePlayers(ctx, action.Actor)
	if err != nil {
		if eval.IsOutsidePlayerCount(err) {
			return illegal(action.ID, ReasonActorOutsidePlayerCount, map[string]any{"selector": action.Actor.String()})
		}
		switch eval.Classify(eval.SiteLegalityDiscovery, err) {
		case eval.Inapplicable:
			return illegal(action.ID, ReasonActorNotApplicable, map[string]any{"selector": action.Actor.String()})
		case eval.Defer:
			if mode == eval.ModeExecution {
				return fault.PredicateFailed(action.ID, "", "actor", err)
			}
			// The actor set depends on a binding not known yet.
		default:
			return fault.PredicateFailed(action.ID, "", "actor", err)
		}
	} else if !slices.Contains(actors, player) {
		return illegal(action.ID, ReasonActorNotApplicable, map[string]any{"selector": action.Actor.String(), "player": player})
	}

	if free {
		return nil
	}
	for _, lim := range action.Limits {
		if used := turnflow.UsageCount(s, action.ID, lim.Scope); used >= lim.Max {
			return illegal(action.ID, ReasonActionLimitExceeded, map[string]any{"scope": lim.Scope, "max": lim.Max, "used": used})
		}
	}
	return nil
}

// executor resolves who executes the action's effects. It runs with the
// move parameters bound since cross-seat actions often name the executor
// by parameter.
func (m *machine) executor(ctx *eval.Context, action *ir.ActionDef) (int, error) {
	if action.Executor == nil {
		return ctx.ActorPlayer, nil
	}
	p, err := eval.ResolvePlayer(ctx, *action.Executor)
	if err == nil {
		return p, nil
	}
	if eval.IsOutsidePlayerCount(err) {
		return 0, illegal(action.ID, ReasonExecutorOutsidePlayerCount, map[string]any{"selector": action.Executor.String()})
	}
	if ctx.Mode == eval.ModeDiscovery && eval.Classify(eval.SiteLegalityDiscovery, err) == eval.Propagate {
		return 0, fault.PredicateFailed(action.ID, "", "executor", err)
	}
	if _, ok := eval.AsError(err); !ok {
		return 0, err
	}
	return 0, illegal(action.ID, ReasonExecutorNotApplicable, map[string]any{"selector": action.Executor.String(), "cause": err.Error()})
}

// grant checks a free operation and returns the grant it consumes.
func (m *machine) grant(ctx *eval.Context, s *ir.GameState, action *ir.ActionDef) (*ir.FreeOperationGrant, error) {
	denial, g, err := turnflow.Check(ctx, s, ctx.ActivePlayer, action)
	if err != nil {
		if ctx.Mode == eval.ModeExecution {
			return nil, fault.PredicateFailed(action.ID, "", "zoneFilter", err)
		}
		return nil, err
	}
	if denial != turnflow.Granted {
		return nil, illegal(action.ID, string(denial), nil)
	}
	return g, nil
}
