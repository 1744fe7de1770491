package kernel

import (
	"maps"

	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
)

// Choice kinds.
const (
	ChoicePending  = "pending"
	ChoiceComplete = "complete"
	ChoiceIllegal  = "illegal"
)

// Choice is the answer of LegalChoices: the next decision a partial move
// needs, or whether it is complete or illegal.
type Choice struct {
	Kind       string         `json:"kind"`
	DecisionID string         `json:"decisionId,omitempty"`
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type,omitempty"`
	Options    []ir.Value     `json:"options,omitempty"`
	Min        int            `json:"min,omitempty"`
	Max        int            `json:"max,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// LegalChoices walks a partial move in discovery mode and reports the first
// unanswered decision. Declared parameters come first, then choices met by
// the effects in execution order. Answers are added to the move's params
// under the returned decision id.
func LegalChoices(def *ir.GameDef, s *ir.GameState, partial ir.Move, opts ...Option) (Choice, error) {
	if s == nil {
		return Choice{}, fault.Internal("nil game state")
	}
	m, err := newMachine(def, s.PlayerCount, opts)
	if err != nil {
		return Choice{}, err
	}
	budget := effects.NewOpBudget(min(m.opts.MaxEffectOps, m.opts.MaxDecisionProbeSteps))
	out, err := m.resolve(s, partial, eval.ModeDiscovery, budget)
	if err != nil {
		return classifyProbe(err, m.opts)
	}
	if p := out.pending; p != nil {
		return Choice{
			Kind:       ChoicePending,
			DecisionID: p.DecisionID,
			Name:       p.Name,
			Type:       p.Kind,
			Options:    p.Options,
			Min:        p.Min,
			Max:        p.Max,
		}, nil
	}
	return Choice{Kind: ChoiceComplete}, nil
}

// classifyProbe turns a probe failure into an illegal verdict where the
// failure is the move's fault and not the kernel's or the definition's.
func classifyProbe(err error, opts Options) (Choice, error) {
	if re, ok := fault.As(err); ok {
		switch re.Code {
		case fault.CodeIllegalMove:
			return Choice{Kind: ChoiceIllegal, Reason: re.Reason(), Details: re.Details}, nil
		case fault.CodeEffectBudgetExceeded:
			return Choice{}, fault.EnumerationBudget("maxDecisionProbeSteps", min(opts.MaxEffectOps, opts.MaxDecisionProbeSteps))
		case fault.CodeEffectRuntime:
			if re.Cause != nil {
				err = re.Cause
			}
		default:
			return Choice{}, err
		}
	}
	ee, ok := eval.AsError(err)
	if !ok {
		return Choice{}, err
	}
	switch eval.Classify(eval.SiteDecisionProbe, err) {
	case eval.Defer:
		return Choice{Kind: ChoiceIllegal, Reason: ReasonUndecidable, Details: map[string]any{"code": string(ee.Code)}}, nil
	case eval.Inapplicable:
		details := maps.Clone(ee.Details)
		if details == nil {
			details = map[string]any{}
		}
		details["code"] = string(ee.Code)
		return Choice{Kind: ChoiceIllegal, Reason: ReasonEvaluationInapplicable, Details: details}, nil
	default:
		return Choice{}, err
	}
}
