package kernel

import (
	"strings"

	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
)

// KindParam marks a pending decision that is a declared action parameter.
const KindParam = "param"

// seedBindings exposes answered static decisions ("decision:$x") as their
// bindings so predicates evaluated before the effects run can see them.
func seedBindings(params ir.Object) ir.Object {
	b := ir.Object{}
	for k, v := range params {
		name, ok := strings.CutPrefix(k, effects.DecisionPrefix)
		if !ok {
			continue
		}
		if _, _, templated := effects.SplitDecisionID(k); templated {
			continue
		}
		b[name] = v
	}
	return b
}

// bindParams binds the declared parameters in order; each domain sees the
// parameters before it. A missing parameter is pending in discovery and an
// incomplete move in execution.
func (m *machine) bindParams(ctx *eval.Context, action *ir.ActionDef, params ir.Object) (ir.Object, *effects.ChoicePending, error) {
	b := seedBindings(params)
	for _, p := range action.Params {
		path := paramPath(action.ID, p.Name)
		options, err := eval.Query(ctx.WithBindings(b), p.Domain)
		if err != nil {
			return nil, nil, m.domainError(action, p.Name, err)
		}
		v, ok := params[p.Name]
		if !ok {
			if ctx.Mode == eval.ModeExecution {
				return nil, nil, illegal(action.ID, ReasonIncompleteMove, map[string]any{"decisionId": p.Name})
			}
			if len(options) == 0 {
				return nil, nil, illegal(action.ID, effects.ReasonEmptyChoiceDomain, map[string]any{"decisionId": p.Name})
			}
			return nil, &effects.ChoicePending{
				DecisionID: p.Name,
				Name:       p.Name,
				Kind:       KindParam,
				Options:    options,
				Min:        1,
				Max:        1,
				EffectPath: path,
			}, nil
		}
		chosen, ok := optionFor(options, v)
		if !ok {
			return nil, nil, illegal(action.ID, ReasonInvalidParam, map[string]any{"param": p.Name, "value": ir.ValueKey(v)})
		}
		b = b.Clone()
		b[p.Name] = chosen
	}
	return b, nil, nil
}

// domainError maps a failed parameter domain the same way legalMoves does:
// a domain that cannot be evaluated for a recoverable reason makes the move
// inapplicable, anything else is an effect runtime failure.
func (m *machine) domainError(action *ir.ActionDef, param string, err error) error {
	if eval.Classify(eval.SiteParamDomain, err) == eval.Propagate {
		return fault.EffectRuntime(action.ID, paramPath(action.ID, param), err)
	}
	return inapplicable(action.ID, map[string]any{"param": param}, err)
}

func optionFor(options []ir.Value, v ir.Value) (ir.Value, bool) {
	key := ir.ValueKey(v)
	for _, o := range options {
		if ir.ValueKey(o) == key {
			return o, true
		}
	}
	return nil, false
}
