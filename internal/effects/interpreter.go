package effects

import (
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
)

// ChoicePending is the data-level pause of the interpreter: the effect at
// EffectPath needs a decision that the move does not carry yet.
type ChoicePending struct {
	DecisionID string     `json:"decisionId"`
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	Options    []ir.Value `json:"options"`
	Min        int        `json:"min"`
	Max        int        `json:"max"`
	EffectPath string     `json:"effectPath"`
}

// Choice kinds.
const (
	KindChooseOne = "chooseOne"
	KindChooseN   = "chooseN"
)

// Execution runs effects against an owned working state.
//
// Run mutates State in place; callers clone the snapshot they were given
// before building an Execution. Trace, Events and Warnings accumulate across
// every Run on the same Execution, so one move's cost, stages and triggers
// share a single record.
type Execution struct {
	Ctx   *Context
	State *ir.GameState

	Trace    []TraceEntry
	Events   []ir.TriggerEvent
	Warnings []string

	// FlowOverride is set when an effect already moved the turn flow
	// (gotoPhase, pushInterruptPhase); the kernel then skips its own
	// advance.
	FlowOverride bool
}

// NewExecution prepares an execution. The context invariants are checked
// again here so a hand-built context cannot slip through.
func NewExecution(ctx *Context, s *ir.GameState) (*Execution, error) {
	if ctx == nil {
		return nil, fault.Internal("nil effect context")
	}
	if err := ctx.validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fault.Internal("nil working state")
	}
	return &Execution{Ctx: ctx, State: s}, nil
}

// Run executes effects in order and returns the bindings visible after the
// list. A non-nil ChoicePending means execution stopped at an unanswered
// decision; the state is then partially updated and must be discarded.
func (x *Execution) Run(effects []ir.Effect, bindings ir.Object, path string) (ir.Object, *ChoicePending, error) {
	return x.RunWith(x.Ctx, effects, bindings, path)
}

// RunWith is Run under another context (trigger and deferred execution).
func (x *Execution) RunWith(ctx *Context, effects []ir.Effect, bindings ir.Object, path string) (ir.Object, *ChoicePending, error) {
	if err := ctx.validate(); err != nil {
		return nil, nil, err
	}
	if ctx.EnforceOwnership != (ctx.Mode == eval.ModeExecution) {
		return nil, nil, fault.Internal("effect context mode %s with ownership enforcement %v", ctx.Mode, ctx.EnforceOwnership)
	}
	prev := x.Ctx
	x.Ctx = ctx
	defer func() { x.Ctx = prev }()

	b := bindings.Clone()
	if b == nil {
		b = ir.Object{}
	}
	return x.runList(effects, b, path)
}

func (x *Execution) runList(effects []ir.Effect, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	for i, e := range effects {
		p := fmt.Sprintf("%s[%d]", path, i)
		next, pending, err := x.step(e, b, p)
		if err != nil || pending != nil {
			return b, pending, err
		}
		b = next
	}
	return b, nil, nil
}

// runScoped runs a nested list; its bindings do not leak to the caller.
func (x *Execution) runScoped(effects []ir.Effect, b ir.Object, path string) (*ChoicePending, error) {
	_, pending, err := x.runList(effects, b.Clone(), path)
	return pending, err
}

// step executes one node and returns the bindings for the next sibling.
func (x *Execution) step(e ir.Effect, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	if err := x.Ctx.Budget.Check(path); err != nil {
		return b, nil, err
	}

	var err error
	switch n := e.Node.(type) {
	case ir.SetVar:
		err = x.setVar(n, b, path)
	case ir.AddVar:
		err = x.addVar(n, b, path)
	case ir.TransferVar:
		return x.transferVar(n, b, path)
	case ir.MoveToken:
		err = x.moveToken(n, b, path)
	case ir.MoveAll:
		err = x.moveAll(n, b, path)
	case ir.Draw:
		err = x.draw(n, b, path)
	case ir.CreateToken:
		return x.createToken(n, b, path)
	case ir.DestroyToken:
		err = x.destroyToken(n, b, path)
	case ir.SetTokenProp:
		err = x.setTokenProp(n, b, path)
	case ir.Shuffle:
		err = x.shuffle(n, b, path)
	case ir.Reveal:
		err = x.reveal(n, b, path)
	case ir.Conceal:
		err = x.conceal(n, b, path)

	case ir.IfEffect:
		ok, cerr := eval.Condition(x.eval(b), n.When)
		if cerr != nil {
			return b, nil, x.wrap(path, cerr)
		}
		branch, suffix := n.Then, ".then"
		if !ok {
			branch, suffix = n.Else, ".else"
		}
		pending, rerr := x.runScoped(branch, b, path+suffix)
		return b, pending, rerr
	case ir.ForEach:
		return x.forEach(n, b, path)
	case ir.Reduce:
		return x.reduce(n, b, path)
	case ir.BindValue:
		v, verr := eval.Value(x.eval(b), n.Value)
		if verr != nil {
			return b, nil, x.wrap(path, verr)
		}
		return x.bindThen(b, n.Bind, v, n.In, path+".in")
	case ir.RollRandom:
		return x.rollRandom(n, b, path)

	case ir.ChooseOne:
		return x.chooseOne(n, b, path)
	case ir.ChooseN:
		return x.chooseN(n, b, path)

	case ir.GotoPhase:
		err = x.gotoPhase(n, path)
	case ir.GrantFreeOperation:
		err = x.grantFreeOperation(n, b, path)
	case ir.DeferEventEffect:
		err = x.deferEventEffect(n, b, path)
	case ir.PushInterruptPhase:
		err = x.pushInterruptPhase(n, b, path)
	case ir.Emit:
		err = x.emit(n, b, path)

	default:
		err = fault.Internal("unknown effect node %T at %s", e.Node, path)
	}
	return b, nil, err
}

// bindThen binds v and either runs in with it (scoped) or exposes it to the
// following siblings.
func (x *Execution) bindThen(b ir.Object, name string, v ir.Value, in []ir.Effect, path string) (ir.Object, *ChoicePending, error) {
	if len(in) > 0 {
		inner := b.Clone()
		inner[name] = v
		pending, err := x.runScoped(in, inner, path)
		return b, pending, err
	}
	out := b.Clone()
	out[name] = v
	return out, nil, nil
}

func (x *Execution) forEach(n ir.ForEach, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	ctx := x.eval(b)
	items, err := eval.Query(ctx, n.Over)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	limit, err := x.iterationLimit(ctx, n.Limit, path)
	if err != nil {
		return b, nil, err
	}
	iterated := min(len(items), limit)
	for i := 0; i < iterated; i++ {
		inner := b.Clone()
		inner[n.Bind] = items[i]
		pending, rerr := x.runScoped(n.Effects, inner, fmt.Sprintf("%s.effects#%d", path, i))
		if rerr != nil || pending != nil {
			return b, pending, rerr
		}
	}
	x.reportIterations(TraceForEach, n.Bind, len(items), iterated, limit, path)
	if n.CountBind == "" {
		return b, nil, nil
	}
	out := b.Clone()
	out[n.CountBind] = ir.Int(iterated)
	return out, nil, nil
}

func (x *Execution) reduce(n ir.Reduce, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	ctx := x.eval(b)
	items, err := eval.Query(ctx, n.Over)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	limit, err := x.iterationLimit(ctx, n.Limit, path)
	if err != nil {
		return b, nil, err
	}
	acc, err := eval.Value(ctx, n.Initial)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	iterated := min(len(items), limit)
	for i := 0; i < iterated; i++ {
		if err := x.Ctx.Budget.Check(path); err != nil {
			return b, nil, err
		}
		step := ctx.With(n.ItemBind, items[i]).With(n.AccBind, acc)
		acc, err = eval.Value(step, n.Next)
		if err != nil {
			return b, nil, x.wrap(path, err)
		}
	}
	x.reportIterations(TraceReduce, n.ItemBind, len(items), iterated, limit, path)
	return x.bindThen(b, n.ResultBind, acc, n.In, path+".in")
}

func (x *Execution) iterationLimit(ctx *eval.Context, e *ir.Expr, path string) (int, error) {
	if e == nil {
		return x.Ctx.MaxIterations, nil
	}
	v, err := eval.Int(ctx, *e)
	if err != nil {
		return 0, x.wrap(path, err)
	}
	if v < 0 {
		return 0, x.wrap(path, fmt.Errorf("iteration limit must be non-negative, got %d", v))
	}
	return int(min(v, int64(x.Ctx.MaxIterations))), nil
}

// reportIterations always traces a loop, so truncation is visible even when
// the body changed nothing.
func (x *Execution) reportIterations(kind, bind string, matched, iterated, limit int, path string) {
	truncated := matched > iterated
	x.record(kind, path, map[string]any{
		"bind":      bind,
		"matched":   matched,
		"iterated":  iterated,
		"limit":     limit,
		"truncated": truncated,
	})
	if truncated {
		x.Warnings = append(x.Warnings, fmt.Sprintf("%s at %s truncated: matched %d, limit %d", kind, path, matched, limit))
	}
}

// eval builds the read-only evaluation context over the working state.
func (x *Execution) eval(b ir.Object) *eval.Context {
	return x.Ctx.evalContext(x.State, b)
}

// wrap attaches action and path context to a failure. Runtime errors that
// already carry a code pass through unchanged.
func (x *Execution) wrap(path string, err error) error {
	if _, ok := fault.As(err); ok {
		return err
	}
	return fault.EffectRuntime(x.Ctx.ActionID, path, err)
}

func (x *Execution) record(kind, path string, details map[string]any) {
	x.Trace = append(x.Trace, TraceEntry{
		Kind: kind,
		Provenance: Provenance{
			Phase:        x.State.CurrentPhase,
			EventContext: x.Ctx.EventContext,
			ActionID:     x.Ctx.ActionID,
			EffectPath:   path,
		},
		Details: details,
	})
}

func (x *Execution) emitEvent(ev ir.TriggerEvent) {
	x.Events = append(x.Events, ev)
}

// DrainEvents returns and clears the events collected so far.
func (x *Execution) DrainEvents() []ir.TriggerEvent {
	out := slices.Clone(x.Events)
	x.Events = x.Events[:0]
	return out
}

// Note records a trace entry on behalf of the caller, such as a pipeline
// stage outcome.
func (x *Execution) Note(kind, path string, details map[string]any) {
	x.record(kind, path, details)
}
