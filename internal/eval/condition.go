package eval

import (
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/ir"
)

// Spatial relations.
const (
	RelationAdjacent  = "adjacent"
	RelationConnected = "connected"
)

// Condition evaluates a boolean predicate. And/or short-circuit left to
// right.
func Condition(ctx *Context, c ir.Cond) (bool, error) {
	switch n := c.Node.(type) {
	case ir.ConstCond:
		return n.Value, nil
	case ir.Logical:
		switch n.Op {
		case "and":
			for _, arg := range n.Args {
				ok, err := Condition(ctx, arg)
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		case "or":
			for _, arg := range n.Args {
				ok, err := Condition(ctx, arg)
				if err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		default:
			return false, newError(CodeTypeMismatch, map[string]any{"op": n.Op}, "unknown logical operator %q", n.Op)
		}
	case ir.NotCond:
		ok, err := Condition(ctx, n.Arg)
		return !ok && err == nil, err
	case ir.Compare:
		return compare(ctx, n)
	case ir.InCond:
		item, err := Value(ctx, n.Item)
		if err != nil {
			return false, err
		}
		set, err := Query(ctx, n.Set)
		if err != nil {
			return false, err
		}
		key := ir.ValueKey(item)
		return slices.ContainsFunc(set, func(v ir.Value) bool { return ir.ValueKey(v) == key }), nil
	case ir.SpatialCond:
		return spatial(ctx, n)
	case nil:
		return false, newError(CodeTypeMismatch, nil, "empty condition")
	default:
		return false, newError(CodeTypeMismatch, map[string]any{"node": fmt.Sprintf("%T", n)}, "unknown condition node %T", n)
	}
}

func compare(ctx *Context, c ir.Compare) (bool, error) {
	l, err := Value(ctx, c.Left)
	if err != nil {
		return false, err
	}
	r, err := Value(ctx, c.Right)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case ir.CmpEq:
		return ir.EqualValues(l, r), nil
	case ir.CmpNe:
		return !ir.EqualValues(l, r), nil
	}

	var cmp int
	li, lok := l.(ir.Int)
	ri, rok := r.(ir.Int)
	ls, lsok := l.(ir.String)
	rs, rsok := r.(ir.String)
	switch {
	case lok && rok:
		cmp = compareInts(int64(li), int64(ri))
	case lsok && rsok:
		cmp = ir.CompareCanonical(string(ls), string(rs))
	default:
		return false, newError(CodeTypeMismatch, map[string]any{
			"op": string(c.Op), "left": ir.TypeName(l), "right": ir.TypeName(r),
		}, "cannot order %s %s %s", ir.TypeName(l), c.Op, ir.TypeName(r))
	}
	switch c.Op {
	case ir.CmpLt:
		return cmp < 0, nil
	case ir.CmpLe:
		return cmp <= 0, nil
	case ir.CmpGt:
		return cmp > 0, nil
	case ir.CmpGe:
		return cmp >= 0, nil
	default:
		return false, newError(CodeTypeMismatch, map[string]any{"op": string(c.Op)}, "unknown comparison %q", c.Op)
	}
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func spatial(ctx *Context, s ir.SpatialCond) (bool, error) {
	switch s.Relation {
	case RelationAdjacent, RelationConnected:
	default:
		return false, newError(CodeSpatialNotImplemented, map[string]any{"relation": s.Relation},
			"spatial relation %q is not implemented", s.Relation)
	}
	from, err := ResolveZone(ctx, s.From)
	if err != nil {
		return false, err
	}
	to, err := ResolveZone(ctx, s.To)
	if err != nil {
		return false, err
	}
	if s.Relation == RelationAdjacent {
		return slices.Contains(ctx.Adjacency.Neighbors(from), to), nil
	}
	if from == to {
		return true, nil
	}
	_, depth, err := ctx.Adjacency.Walk(from, -1, func(z string) (bool, error) {
		if z == to {
			return true, nil
		}
		return filter(ctx, s.Via, BindZone, ir.String(z))
	})
	if err != nil {
		return false, err
	}
	_, ok := depth[to]
	return ok, nil
}
