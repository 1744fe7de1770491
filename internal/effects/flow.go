package effects

import (
	"slices"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/rng"
	"github.com/roach88/tabula/internal/turnflow"
)

func (x *Execution) rollRandom(n ir.RollRandom, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	ctx := x.eval(b)
	lo, err := eval.Int(ctx, n.Min)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	hi, err := eval.Int(ctx, n.Max)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	v, next, err := rng.NextInt(x.State.RNG, lo, hi)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	x.State.RNG = next
	x.record(TraceRoll, path, map[string]any{"bind": n.Bind, "min": lo, "max": hi, "value": v})
	return x.bindThen(b, n.Bind, ir.Int(v), n.In, path+".in")
}

func (x *Execution) gotoPhase(n ir.GotoPhase, path string) error {
	from := x.State.CurrentPhase
	events, err := turnflow.GotoPhase(x.Ctx.Def, x.State, n.Phase)
	if err != nil {
		return x.wrap(path, err)
	}
	x.FlowOverride = true
	x.Events = append(x.Events, events...)
	x.record(TraceFlow, path, map[string]any{"op": "gotoPhase", "from": from, "to": n.Phase})
	return nil
}

func (x *Execution) grantFreeOperation(n ir.GrantFreeOperation, b ir.Object, path string) error {
	ctx := x.eval(b)
	seat, err := eval.ResolvePlayer(ctx, n.Seat)
	if err != nil {
		return x.wrap(path, err)
	}
	uses := int64(1)
	if n.Uses != nil {
		if uses, err = eval.Int(ctx, *n.Uses); err != nil {
			return x.wrap(path, err)
		}
	}
	g, err := turnflow.AddGrant(x.State, ir.FreeOperationGrant{
		Seat:            seat,
		ActionClass:     n.ActionClass,
		ActionIDs:       slices.Clone(n.ActionIDs),
		ZoneFilter:      n.ZoneFilter,
		RemainingUses:   int(uses),
		SequenceBatchID: n.SequenceBatchID,
		SequenceIndex:   n.SequenceIndex,
	})
	if err != nil {
		return x.wrap(path, err)
	}
	x.record(TraceFlow, path, map[string]any{"op": "grantFreeOperation", "grantId": g.GrantID, "seat": seat, "uses": g.RemainingUses})
	return nil
}

// deferEventEffect queues effects with the current bindings; the executor
// of this effect resolves them once the batches complete.
func (x *Execution) deferEventEffect(n ir.DeferEventEffect, b ir.Object, path string) error {
	d, err := turnflow.Defer(x.State, ir.DeferredEventEffect{
		ActorPlayer:      x.Ctx.ExecutorPlayer,
		ActionID:         x.Ctx.ActionID,
		RequiredBatchIDs: slices.Clone(n.RequiredBatches),
		Effects:          n.Effects,
		Bindings:         b.Clone(),
	})
	if err != nil {
		return x.wrap(path, err)
	}
	x.record(TraceFlow, path, map[string]any{"op": "deferEventEffect", "deferredId": d.DeferredID, "batches": d.RequiredBatchIDs})
	return nil
}

func (x *Execution) pushInterruptPhase(n ir.PushInterruptPhase, b ir.Object, path string) error {
	sel := ir.PlayerSel{Kind: ir.PlayerActor}
	if n.Player != nil {
		sel = *n.Player
	}
	player, err := eval.ResolvePlayer(x.eval(b), sel)
	if err != nil {
		return x.wrap(path, err)
	}
	from := x.State.CurrentPhase
	events, err := turnflow.PushInterrupt(x.Ctx.Def, x.State, n.Phase, n.ResumePhase, player)
	if err != nil {
		return x.wrap(path, err)
	}
	x.FlowOverride = true
	x.Events = append(x.Events, events...)
	x.record(TraceFlow, path, map[string]any{"op": "pushInterruptPhase", "from": from, "to": n.Phase, "player": player})
	return nil
}

func (x *Execution) emit(n ir.Emit, b ir.Object, path string) error {
	ctx := x.eval(b)
	var data ir.Object
	if len(n.Data) > 0 {
		data = make(ir.Object, len(n.Data))
		keys := make([]string, 0, len(n.Data))
		for k := range n.Data {
			keys = append(keys, k)
		}
		ir.SortCanonical(keys)
		for _, k := range keys {
			v, err := eval.Value(ctx, n.Data[k])
			if err != nil {
				return x.wrap(path, err)
			}
			data[k] = v
		}
	}
	p := x.Ctx.ExecutorPlayer
	x.emitEvent(ir.TriggerEvent{Type: ir.EventCustom, Name: n.Event, Player: &p, Data: data})
	return nil
}
