package kernel

import (
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/turnflow"
)

// Stage outcomes recorded in the trace.
const (
	StageApplied = "applied"
	StageSkipped = "skipped"
)

// profile is a resolved pipeline: either a declared ActionPipelineDef or the
// default single-stage wrapper around the action's own effects.
type profile struct {
	id             string
	legality       *ir.Cond
	costValidation *ir.Cond
	costEffects    []ir.Effect
	stages         []ir.StageDef
	atomic         bool
	path           string

	// implicit marks the default pipeline, whose single stage is the
	// action's effect list.
	implicit bool
}

func defaultProfile(action *ir.ActionDef) *profile {
	return &profile{
		id:       action.ID + ":default",
		stages:   []ir.StageDef{{Name: "resolve", Effects: action.Effects}},
		atomic:   true,
		path:     "actions." + action.ID,
		implicit: true,
	}
}

// selectProfile returns the first declared profile whose applicability
// holds. With no declared profiles the default pipeline applies.
func (m *machine) selectProfile(ctx *eval.Context, action *ir.ActionDef) (*profile, error) {
	declared := m.def.Pipelines(action.ID)
	if len(declared) == 0 {
		return defaultProfile(action), nil
	}
	for _, p := range declared {
		ok, err := m.optional(ctx, p.Applicability, action.ID, p.ID, "applicability")
		if err != nil {
			return nil, err
		}
		if ok {
			return &profile{
				id:             p.ID,
				legality:       p.Legality,
				costValidation: p.CostValidation,
				costEffects:    p.CostEffects,
				stages:         p.Stages,
				atomic:         p.Atomicity != ir.AtomicityPartial,
				path:           "pipelines." + p.ID,
			}, nil
		}
	}
	return nil, illegal(action.ID, ReasonNoApplicablePipeline, nil)
}

// admissible selects the profile and checks legality and, for normal moves,
// cost validation. It never runs effects, so legalMoves can call it on the
// caller's state. costOK is false when a partial profile must skip its cost.
func (m *machine) admissible(ctx *eval.Context, action *ir.ActionDef, free bool) (prof *profile, costOK bool, err error) {
	prof, err = m.selectProfile(ctx, action)
	if err != nil {
		return nil, false, err
	}
	for _, pred := range []struct {
		name string
		cond *ir.Cond
	}{{"pre", action.Pre}, {"legality", prof.legality}} {
		ok, err := m.predicate(ctx, pred.cond, action.ID, prof.id, pred.name)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, illegal(action.ID, ReasonLegalityFailed, map[string]any{"profile": prof.id, "predicate": pred.name})
		}
	}
	if free {
		return prof, false, nil
	}
	ok, err := m.optional(ctx, prof.costValidation, action.ID, prof.id, "costValidation")
	if err != nil {
		return nil, false, err
	}
	if !ok && prof.atomic {
		return nil, false, illegal(action.ID, ReasonCostValidationFailed, map[string]any{"profile": prof.id})
	}
	return prof, ok, nil
}

// runAction resolves one action through its pipeline inside x. It returns a
// pending decision when a choice effect is unanswered.
func (m *machine) runAction(x *effects.Execution, ctx *effects.Context, action *ir.ActionDef, move ir.Move, b ir.Object) (*effects.ChoicePending, error) {
	ec := m.evalCtx(x.State, b, ctx.ExecutorPlayer, ctx.Mode)
	prof, costOK, err := m.admissible(ec, action, move.FreeOperation)
	if err != nil {
		return nil, err
	}

	if costOK {
		var pending *effects.ChoicePending
		if b, pending, err = x.RunWith(ctx, action.Cost, b, "actions."+action.ID+".cost"); err != nil || pending != nil {
			return pending, err
		}
		if b, pending, err = x.RunWith(ctx, prof.costEffects, b, prof.path+".costEffects"); err != nil || pending != nil {
			return pending, err
		}
	} else if !move.FreeOperation {
		x.Note(effects.TraceStage, prof.path+".costEffects", map[string]any{"profile": prof.id, "status": StageSkipped, "reason": ReasonCostValidationFailed})
	}

	blocked := ""
	for i, st := range prof.stages {
		path := fmt.Sprintf("%s.stages[%d]", prof.path, i)
		if prof.implicit {
			path = prof.path + ".effects"
		}
		if blocked != "" {
			x.Note(effects.TraceStage, path, map[string]any{"profile": prof.id, "stage": st.Name, "status": StageSkipped, "reason": "blockedBy:" + blocked})
			continue
		}
		ok, err := m.optional(m.evalCtx(x.State, b, ctx.ExecutorPlayer, ctx.Mode), st.Legality, action.ID, prof.id, "stages."+st.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			if prof.atomic {
				return nil, illegal(action.ID, ReasonStageBlocked, map[string]any{"profile": prof.id, "stage": st.Name})
			}
			blocked = st.Name
			x.Note(effects.TraceStage, path, map[string]any{"profile": prof.id, "stage": st.Name, "status": StageSkipped, "reason": ReasonLegalityFailed})
			continue
		}
		var pending *effects.ChoicePending
		if b, pending, err = x.RunWith(ctx, st.Effects, b, path); err != nil || pending != nil {
			return pending, err
		}
		x.Note(effects.TraceStage, path, map[string]any{"profile": prof.id, "stage": st.Name, "status": StageApplied})
	}

	if move.Compound != nil {
		return m.runCompound(x, ctx, action, *move.Compound)
	}
	return nil, nil
}

// runCompound resolves a linked sub-move inside the parent's execution. It
// shares the parent's operation budget.
func (m *machine) runCompound(x *effects.Execution, parent *effects.Context, action *ir.ActionDef, sub ir.Move) (*effects.ChoicePending, error) {
	if !slices.Contains(action.LinkedActions, sub.ActionID) {
		return nil, illegal(action.ID, ReasonCompoundNotLinked, map[string]any{"compound": sub.ActionID})
	}
	subAction, ok := m.def.Action(sub.ActionID)
	if !ok {
		return nil, illegal(sub.ActionID, ReasonUnknownAction, nil)
	}
	if err := m.applicable(x.State, subAction, false, parent.Mode); err != nil {
		return nil, err
	}
	ec := m.evalCtx(x.State, nil, parent.ActorPlayer, parent.Mode)
	b, pending, err := m.bindParams(ec, subAction, sub.Params)
	if err != nil || pending != nil {
		return pending, err
	}
	executor, err := m.executor(ec.WithBindings(b), subAction)
	if err != nil {
		return nil, err
	}
	ctx := *parent
	ctx.ActionID = subAction.ID
	ctx.ExecutorPlayer = executor
	ctx.Decisions = sub.Params
	if ctx.Decisions == nil {
		ctx.Decisions = ir.Object{}
	}
	ctx.EventContext = "compound:" + subAction.ID
	if pending, err = m.runAction(x, &ctx, subAction, sub, b); err != nil || pending != nil {
		return pending, err
	}
	turnflow.RecordUsage(x.State, subAction.ID)
	return nil, nil
}
