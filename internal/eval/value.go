package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tabula/internal/ir"
)

// Value evaluates a value expression.
func Value(ctx *Context, e ir.Expr) (ir.Value, error) {
	switch n := e.Node.(type) {
	case ir.Lit:
		if n.Value == nil {
			return ir.Null{}, nil
		}
		return n.Value, nil
	case ir.Ref:
		return evalRef(ctx, n)
	case ir.Arith:
		return evalArith(ctx, n)
	case ir.ConcatExpr:
		var b strings.Builder
		for i, part := range n.Parts {
			v, err := Value(ctx, part)
			if err != nil {
				return nil, err
			}
			s, err := stringForm(v)
			if err != nil {
				return nil, fmt.Errorf("concat part %d: %w", i, err)
			}
			b.WriteString(s)
		}
		return ir.String(b.String()), nil
	case ir.IfExpr:
		ok, err := Condition(ctx, n.When)
		if err != nil {
			return nil, err
		}
		if ok {
			return Value(ctx, n.Then)
		}
		return Value(ctx, n.Else)
	case ir.Aggregate:
		return evalAggregate(ctx, n)
	case ir.Distance:
		from, err := ResolveZone(ctx, n.From)
		if err != nil {
			return nil, err
		}
		to, err := ResolveZone(ctx, n.To)
		if err != nil {
			return nil, err
		}
		if from == to {
			return ir.Int(0), nil
		}
		_, depth, err := ctx.Adjacency.Walk(from, -1, func(string) (bool, error) { return true, nil })
		if err != nil {
			return nil, err
		}
		if d, ok := depth[to]; ok {
			return ir.Int(d), nil
		}
		return ir.Int(-1), nil
	case nil:
		return nil, newError(CodeTypeMismatch, nil, "empty expression")
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"node": fmt.Sprintf("%T", n)}, "unknown expression node %T", n)
	}
}

// Int evaluates an expression that must produce an integer.
func Int(ctx *Context, e ir.Expr) (int64, error) {
	v, err := Value(ctx, e)
	if err != nil {
		return 0, err
	}
	i, ok := v.(ir.Int)
	if !ok {
		return 0, newError(CodeTypeMismatch, map[string]any{"expected": "number", "got": ir.TypeName(v)},
			"expected a number, got %s", ir.TypeName(v))
	}
	return int64(i), nil
}

func evalRef(ctx *Context, r ir.Ref) (ir.Value, error) {
	switch r.Ref {
	case ir.RefGlobalVar:
		v, ok := ctx.State.GlobalVar(r.Var)
		if !ok {
			return nil, newError(CodeMissingVar, map[string]any{"scope": "global", "var": r.Var}, "global variable %q is not declared", r.Var)
		}
		return ir.Int(v), nil
	case ir.RefPlayerVar:
		sel := ir.PlayerSel{Kind: ir.PlayerActor}
		if r.Player != nil {
			sel = *r.Player
		}
		p, err := ResolvePlayer(ctx, sel)
		if err != nil {
			return nil, err
		}
		v, ok := ctx.State.PlayerVar(p, r.Var)
		if !ok {
			return nil, newError(CodeMissingVar, map[string]any{"scope": "player", "var": r.Var, "player": p}, "player variable %q is not declared", r.Var)
		}
		return ir.Int(v), nil
	case ir.RefZoneVar:
		z, err := ResolveZone(ctx, r.Zone)
		if err != nil {
			return nil, err
		}
		v, ok := ctx.State.ZoneVar(z, r.Var)
		if !ok {
			return nil, newError(CodeMissingVar, map[string]any{"scope": "zone", "var": r.Var, "zone": z}, "zone variable %q is not declared for %s", r.Var, z)
		}
		return ir.Int(v), nil
	case ir.RefTokenProp:
		id, err := ResolveToken(ctx, r.Token)
		if err != nil {
			return nil, err
		}
		tok, _ := ctx.State.TokenByID(id)
		if v, ok := tok.Props[r.Prop]; ok {
			return v, nil
		}
		switch r.Prop {
		case "id":
			return ir.TokenRef(tok.ID), nil
		case "type":
			return ir.String(tok.Type), nil
		case "zone":
			z, _ := ctx.State.TokenZone(tok.ID)
			return ir.String(z), nil
		}
		return nil, newError(CodeMissingVar, map[string]any{"token": id, "prop": r.Prop}, "token %s has no property %q", id, r.Prop)
	case ir.RefBinding:
		return ctx.Lookup(r.Name)
	case ir.RefZoneCount:
		zones, err := ResolveZones(ctx, r.Zone)
		if err != nil {
			return nil, err
		}
		total := 0
		for _, z := range zones {
			ids, _ := ctx.State.ZoneTokens(z)
			total += len(ids)
		}
		return ir.Int(total), nil
	case ir.RefActivePlayer:
		return ir.Int(ctx.ActivePlayer), nil
	case ir.RefActorPlayer:
		return ir.Int(ctx.ActorPlayer), nil
	case ir.RefTurnCount:
		return ir.Int(ctx.State.Turn()), nil
	case ir.RefPhase:
		return ir.String(ctx.State.Phase()), nil
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"ref": string(r.Ref)}, "unknown reference kind %q", r.Ref)
	}
}

func evalArith(ctx *Context, a ir.Arith) (ir.Value, error) {
	l, err := Int(ctx, a.Left)
	if err != nil {
		return nil, err
	}
	r, err := Int(ctx, a.Right)
	if err != nil {
		return nil, err
	}
	switch a.Op {
	case ir.OpAdd:
		return ir.Int(l + r), nil
	case ir.OpSub:
		return ir.Int(l - r), nil
	case ir.OpMul:
		return ir.Int(l * r), nil
	case ir.OpDiv, ir.OpMod:
		if r == 0 {
			return nil, newError(CodeDivisionByZero, map[string]any{"op": string(a.Op), "left": l}, "%d %s 0", l, a.Op)
		}
		if a.Op == ir.OpDiv {
			return ir.Int(l / r), nil
		}
		return ir.Int(l % r), nil
	case ir.OpMin:
		return ir.Int(min(l, r)), nil
	case ir.OpMax:
		return ir.Int(max(l, r)), nil
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"op": string(a.Op)}, "unknown arithmetic operator %q", a.Op)
	}
}

func evalAggregate(ctx *Context, a ir.Aggregate) (ir.Value, error) {
	items, err := Query(ctx, a.Query)
	if err != nil {
		return nil, err
	}
	switch a.Op {
	case ir.AggCount:
		return ir.Int(len(items)), nil
	case ir.AggSum, ir.AggMin, ir.AggMax:
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"aggregate": string(a.Op)}, "unknown aggregate %q", a.Op)
	}
	bind := a.Bind
	if bind == "" {
		bind = BindItem
	}
	var acc int64
	for i, item := range items {
		v := item
		if a.Value != nil {
			v, err = Value(ctx.With(bind, item), *a.Value)
			if err != nil {
				return nil, err
			}
		}
		n, ok := v.(ir.Int)
		if !ok {
			return nil, newError(CodeTypeMismatch, map[string]any{"aggregate": string(a.Op), "index": i, "got": ir.TypeName(v)},
				"aggregate %s over a %s", a.Op, ir.TypeName(v))
		}
		switch {
		case i == 0:
			acc = int64(n)
		case a.Op == ir.AggSum:
			acc += int64(n)
		case a.Op == ir.AggMin:
			acc = min(acc, int64(n))
		default:
			acc = max(acc, int64(n))
		}
	}
	return ir.Int(acc), nil
}

// stringForm renders scalars for concat and option display.
func stringForm(v ir.Value) (string, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.TokenRef:
		return string(val), nil
	case ir.Int:
		return strconv.FormatInt(int64(val), 10), nil
	case ir.Bool:
		return strconv.FormatBool(bool(val)), nil
	default:
		return "", newError(CodeTypeMismatch, map[string]any{"got": ir.TypeName(v)}, "cannot concatenate a %s", ir.TypeName(v))
	}
}

// StringForm renders a scalar value as a string.
func StringForm(v ir.Value) (string, error) { return stringForm(v) }
