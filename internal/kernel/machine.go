package kernel

import (
	"fmt"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
)

// machine carries the per-call configuration shared by every entry point.
// It is built fresh for each call and never shared between calls.
type machine struct {
	def  *ir.GameDef
	opts Options
	adj  *eval.Adjacency

	// deferred counts discovery predicates left undecided in this call.
	deferred int
}

func newMachine(def *ir.GameDef, playerCount int, opts []Option) (*machine, error) {
	if def == nil {
		return nil, fault.Internal("nil game definition")
	}
	return &machine{
		def:  def,
		opts: buildOptions(opts),
		adj:  eval.BuildAdjacency(def, playerCount),
	}, nil
}

// evalCtx builds a read-only evaluation context over s for actor.
func (m *machine) evalCtx(s *ir.GameState, b ir.Object, actor int, mode eval.Mode) *eval.Context {
	if b == nil {
		b = ir.Object{}
	}
	return &eval.Context{
		Def:             m.def,
		State:           s,
		Bindings:        b,
		Adjacency:       m.adj,
		ActivePlayer:    s.ActivePlayer,
		ActorPlayer:     actor,
		Mode:            mode,
		MaxQueryResults: m.opts.MaxQueryResults,
	}
}

// predicate evaluates one pipeline predicate. A nil predicate holds.
//
// An evaluation failure is classified the same way in both modes, so
// legalMoves and applyMove agree on the candidate: an inapplicable failure
// rejects the move with ReasonEvaluationInapplicable, keeping the eval
// error as the cause. In discovery a deferred failure holds for now; in
// execution every other failure is PIPELINE_PREDICATE_FAILED.
func (m *machine) predicate(ctx *eval.Context, c *ir.Cond, actionID, profile, name string) (bool, error) {
	if c == nil {
		return true, nil
	}
	ok, err := eval.Condition(ctx, *c)
	if err == nil {
		return ok, nil
	}
	switch eval.Classify(eval.SiteLegalityDiscovery, err) {
	case eval.Inapplicable:
		return false, inapplicable(actionID, map[string]any{"profile": profile, "predicate": name}, err)
	case eval.Defer:
		if ctx.Mode == eval.ModeExecution {
			break
		}
		m.deferred++
		if m.deferred > m.opts.MaxDeferredPredicates {
			return false, fault.EnumerationBudget("maxDeferredPredicates", m.opts.MaxDeferredPredicates)
		}
		return true, nil
	}
	return false, fault.PredicateFailed(actionID, profile, name, err)
}

// optional evaluates a predicate whose inapplicable failure only means
// "does not hold": profile applicability and cost validation.
func (m *machine) optional(ctx *eval.Context, c *ir.Cond, actionID, profile, name string) (bool, error) {
	ok, err := m.predicate(ctx, c, actionID, profile, name)
	if isInapplicable(err) {
		return false, nil
	}
	return ok, err
}

// inapplicable rejects a move over a recoverable evaluation error.
func inapplicable(actionID string, details map[string]any, cause error) error {
	if ee, ok := eval.AsError(cause); ok {
		details["code"] = string(ee.Code)
	}
	e := fault.IllegalMove(actionID, ReasonEvaluationInapplicable, details)
	e.Cause = cause
	return e
}

func isInapplicable(err error) bool {
	re, ok := fault.As(err)
	return ok && re.Code == fault.CodeIllegalMove && re.Reason() == ReasonEvaluationInapplicable
}

func illegal(actionID, reason string, details map[string]any) error {
	return fault.IllegalMove(actionID, reason, details)
}

func paramPath(actionID, name string) string {
	return fmt.Sprintf("actions.%s.params.%s", actionID, name)
}
