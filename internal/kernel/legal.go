package kernel

import (
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/turnflow"
)

// LegalMoves enumerates the legal moves of the active player in action
// declaration order. Declared parameters are expanded; decisions made by
// choice effects are left to LegalChoices, so a listed move may still need
// answers before ApplyMove accepts it.
//
// Every candidate dropped here would be rejected by ApplyMove with one of
// DenialReasons.
func LegalMoves(def *ir.GameDef, s *ir.GameState, opts ...Option) ([]ir.Move, error) {
	if s == nil {
		return nil, fault.Internal("nil game state")
	}
	m, err := newMachine(def, s.PlayerCount, opts)
	if err != nil {
		return nil, err
	}
	term, err := m.terminal(s)
	if err != nil || term != nil {
		return nil, err
	}
	return m.legalMoves(s)
}

func (m *machine) legalMoves(s *ir.GameState) ([]ir.Move, error) {
	m.deferred = 0
	templates := 0
	expansions := 0
	hasGrant := len(turnflow.Pending(s, s.ActivePlayer)) > 0

	var moves []ir.Move
	for i := range m.def.Actions {
		action := &m.def.Actions[i]
		for _, free := range []bool{false, true} {
			if free && !hasGrant {
				continue
			}
			templates++
			if templates > m.opts.MaxTemplates {
				return nil, fault.EnumerationBudget("maxTemplates", m.opts.MaxTemplates)
			}
			if err := m.applicable(s, action, free, eval.ModeDiscovery); err != nil {
				if fault.IsIllegalMove(err) {
					continue
				}
				return nil, err
			}
			ec := m.evalCtx(s, nil, s.ActivePlayer, eval.ModeDiscovery)
			if free {
				if _, err := m.grant(ec, s, action); err != nil {
					if fault.IsIllegalMove(err) {
						continue
					}
					return nil, err
				}
			}
			combos, err := m.expand(ec, action, &expansions)
			if err != nil {
				return nil, err
			}
			for _, params := range combos {
				ok, err := m.admit(ec.WithBindings(params), s, action, free)
				if err != nil {
					return nil, err
				}
				if ok {
					moves = append(moves, ir.Move{ActionID: action.ID, Params: params, FreeOperation: free})
				}
			}
		}
	}
	return moves, nil
}

// expand returns the cartesian product of the declared parameter domains.
// A domain that fails with an inapplicable error yields no combinations;
// ApplyMove rejects the same candidate with ReasonEvaluationInapplicable.
func (m *machine) expand(ctx *eval.Context, action *ir.ActionDef, count *int) ([]ir.Object, error) {
	combos := []ir.Object{{}}
	for _, p := range action.Params {
		var next []ir.Object
		for _, partial := range combos {
			options, err := eval.Query(ctx.WithBindings(partial), p.Domain)
			if err != nil {
				if err := m.domainError(action, p.Name, err); !isInapplicable(err) {
					return nil, err
				}
				continue
			}
			for _, o := range options {
				*count++
				if *count > m.opts.MaxParamExpansions {
					return nil, fault.EnumerationBudget("maxParamExpansions", m.opts.MaxParamExpansions)
				}
				c := partial.Clone()
				c[p.Name] = o
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos, nil
}

// admit decides whether a fully parameterized template is legal without
// running any effect.
func (m *machine) admit(ctx *eval.Context, s *ir.GameState, action *ir.ActionDef, free bool) (bool, error) {
	executor, err := m.executor(ctx, action)
	if err != nil {
		if fault.IsIllegalMove(err) {
			return false, nil
		}
		return false, err
	}
	if _, _, err := m.admissible(ctx.WithActor(executor), action, free); err != nil {
		if fault.IsIllegalMove(err) {
			return false, nil
		}
		return false, err
	}
	if free {
		if _, err := m.grant(ctx, s, action); err != nil {
			if fault.IsIllegalMove(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}
