package eval

import (
	"fmt"

	"github.com/roach88/tabula/internal/ir"
)

// Query evaluates a query to an ordered sequence of values. Every result set
// is checked against the context's maxQueryResults.
func Query(ctx *Context, q ir.Query) ([]ir.Value, error) {
	out, err := evalQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := checkBounds(ctx, q, len(out)); err != nil {
		return nil, err
	}
	return out, nil
}

func checkBounds(ctx *Context, q ir.Query, n int) error {
	if n > ctx.maxResults() {
		return newError(CodeQueryBoundsExceeded, map[string]any{
			"query":           ir.QueryKind(q.Node),
			"resultCount":     n,
			"maxQueryResults": ctx.maxResults(),
		}, "query %s produced %d results, limit is %d", ir.QueryKind(q.Node), n, ctx.maxResults())
	}
	return nil
}

func evalQuery(ctx *Context, q ir.Query) ([]ir.Value, error) {
	switch n := q.Node.(type) {
	case ir.TokensInZone:
		zones, err := ResolveZones(ctx, n.Zone)
		if err != nil {
			return nil, err
		}
		var out []ir.Value
		for _, z := range zones {
			ids, _ := ctx.State.ZoneTokens(z)
			for _, id := range ids {
				keep, err := filter(ctx, n.Filter, BindToken, ir.TokenRef(id))
				if err != nil {
					return nil, err
				}
				if keep {
					out = append(out, ir.TokenRef(id))
				}
			}
		}
		return out, nil

	case ir.IntsInRange:
		lo, err := Int(ctx, n.Min)
		if err != nil {
			return nil, err
		}
		hi, err := Int(ctx, n.Max)
		if err != nil {
			return nil, err
		}
		if hi < lo {
			return nil, nil
		}
		if hi-lo >= int64(ctx.maxResults()) || hi-lo < 0 {
			return nil, newError(CodeQueryBoundsExceeded, map[string]any{
				"query": "intsInRange", "min": lo, "max": hi, "maxQueryResults": ctx.maxResults(),
			}, "intsInRange %d..%d exceeds limit %d", lo, hi, ctx.maxResults())
		}
		out := make([]ir.Value, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			out = append(out, ir.Int(i))
		}
		return out, nil

	case ir.EnumsQuery:
		out := make([]ir.Value, len(n.Values))
		for i, v := range n.Values {
			out[i] = ir.String(v)
		}
		return out, nil

	case ir.PlayersQuery:
		var out []ir.Value
		for p := 0; p < ctx.State.Players(); p++ {
			keep, err := filter(ctx, n.Filter, BindPlayer, ir.Int(p))
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, ir.Int(p))
			}
		}
		return out, nil

	case ir.ZonesQuery:
		return zonesQuery(ctx, n)

	case ir.AdjacentZones:
		z, err := ResolveZone(ctx, n.Zone)
		if err != nil {
			return nil, err
		}
		return zoneValues(ctx.Adjacency.Neighbors(z)), nil

	case ir.ConnectedZones:
		start, err := ResolveZone(ctx, n.Zone)
		if err != nil {
			return nil, err
		}
		maxDepth := -1
		if n.MaxDepth != nil {
			d, err := Int(ctx, *n.MaxDepth)
			if err != nil {
				return nil, err
			}
			maxDepth = int(d)
		}
		order, _, err := ctx.Adjacency.Walk(start, maxDepth, func(z string) (bool, error) {
			return filter(ctx, n.Via, BindZone, ir.String(z))
		})
		if err != nil {
			return nil, err
		}
		if n.IncludeStart {
			order = append([]string{start}, order...)
		}
		return zoneValues(order), nil

	case ir.AssetRows:
		rows, ok := ctx.Def.Tables[n.Table]
		if !ok {
			return nil, newError(CodeMissingVar, map[string]any{"table": n.Table}, "asset table %q is not declared", n.Table)
		}
		var out []ir.Value
		for _, row := range rows {
			keep, err := filter(ctx, n.Where, BindRow, row)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, row)
			}
		}
		return out, nil

	case ir.BindingQuery:
		v, err := ctx.Lookup(n.Name)
		if err != nil {
			return nil, err
		}
		if arr, ok := v.(ir.Array); ok {
			return append([]ir.Value(nil), arr...), nil
		}
		return []ir.Value{v}, nil

	case ir.ConcatQuery:
		var out []ir.Value
		for _, src := range n.Sources {
			part, err := Query(ctx, src)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
			if err := checkBounds(ctx, q, len(out)); err != nil {
				return nil, err
			}
		}
		return out, nil

	case ir.NextInOrderByCondition:
		return nextInOrder(ctx, n)

	case nil:
		return nil, newError(CodeTypeMismatch, nil, "empty query")
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"node": fmt.Sprintf("%T", n)}, "unknown query node %T", n)
	}
}

func zonesQuery(ctx *Context, n ir.ZonesQuery) ([]ir.Value, error) {
	var ownerPlayers map[int]bool
	ownerFilter := n.Owner
	if ownerFilter != "" && ownerFilter != ir.OwnerNone && ownerFilter != ir.OwnerPlayer {
		sel, err := ir.ParsePlayerSel(ownerFilter)
		if err != nil {
			return nil, newError(CodeTypeMismatch, map[string]any{"owner": ownerFilter}, "zones owner: %v", err)
		}
		players, err := ResolvePlayers(ctx, sel)
		if err != nil {
			return nil, err
		}
		ownerPlayers = make(map[int]bool, len(players))
		for _, p := range players {
			ownerPlayers[p] = true
		}
	}

	var out []ir.Value
	for _, id := range ctx.Def.ZoneIDs(ctx.State.Players()) {
		base, qual := ir.SplitZoneID(id)
		if n.Base != "" && base != n.Base {
			continue
		}
		switch {
		case ownerFilter == "":
		case ownerFilter == ir.OwnerNone:
			if qual != ir.OwnerNone {
				continue
			}
		case ownerFilter == ir.OwnerPlayer:
			if qual == ir.OwnerNone {
				continue
			}
		default:
			p, ok := PlayerIndex(id)
			if !ok || !ownerPlayers[p] {
				continue
			}
		}
		keep, err := filter(ctx, n.Filter, BindZone, ir.String(id))
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, ir.String(id))
		}
	}
	return out, nil
}

func nextInOrder(ctx *Context, n ir.NextInOrderByCondition) ([]ir.Value, error) {
	source, err := Query(ctx, n.Source)
	if err != nil {
		return nil, err
	}
	from, err := Value(ctx, n.From)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return nil, nil
	}

	start := -1
	key := ir.ValueKey(from)
	for i, v := range source {
		if ir.ValueKey(v) == key {
			start = i
			break
		}
	}

	// An absent anchor scans from the beginning.
	var order []int
	switch {
	case start < 0:
		for i := range source {
			order = append(order, i)
		}
	default:
		first := start + 1
		if n.IncludeFrom {
			first = start
		}
		for i := first; i < len(source); i++ {
			order = append(order, i)
		}
		if n.Wrap {
			for i := 0; i < start; i++ {
				order = append(order, i)
			}
		}
	}

	bind := n.Bind
	if bind == "" {
		bind = BindItem
	}
	for _, i := range order {
		ok, err := Condition(ctx.With(bind, source[i]), n.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			return []ir.Value{source[i]}, nil
		}
	}
	return nil, nil
}

func filter(ctx *Context, c *ir.Cond, bind string, v ir.Value) (bool, error) {
	if c == nil {
		return true, nil
	}
	return Condition(ctx.With(bind, v), *c)
}

func zoneValues(ids []string) []ir.Value {
	out := make([]ir.Value, len(ids))
	for i, id := range ids {
		out[i] = ir.String(id)
	}
	return out
}
