package effects

import (
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/rng"
)

// Token positions within a zone. Index 0 is the top.
const (
	PositionTop    = "top"
	PositionBottom = "bottom"
	PositionRandom = "random"
)

func (x *Execution) moveToken(n ir.MoveToken, b ir.Object, path string) error {
	ctx := x.eval(b)
	id, err := eval.ResolveToken(ctx, n.Token)
	if err != nil {
		return x.wrap(path, err)
	}
	at, ok := x.State.TokenZone(id)
	if !ok {
		return x.wrap(path, fmt.Errorf("token %s is in no zone", id))
	}
	if n.From != "" {
		from, err := eval.ResolveZone(ctx, n.From)
		if err != nil {
			return x.wrap(path, err)
		}
		// Discovery tolerates a stale source and moves from the actual zone.
		if from != at && x.Ctx.EnforceOwnership {
			return x.wrap(path, fmt.Errorf("token %s is in %s, not %s", id, at, from))
		}
	}
	to, err := eval.ResolveZone(ctx, n.To)
	if err != nil {
		return x.wrap(path, err)
	}

	position := n.Position
	if position == "" {
		position = PositionTop
	}
	dest := slices.DeleteFunc(slices.Clone(x.State.Zones[to]), func(t string) bool { return t == id })
	var idx int
	switch position {
	case PositionTop:
		idx = 0
	case PositionBottom:
		idx = len(dest)
	case PositionRandom:
		v, next, err := rng.NextInt(x.State.RNG, 0, int64(len(dest)))
		if err != nil {
			return x.wrap(path, err)
		}
		x.State.RNG = next
		idx = int(v)
	default:
		return x.wrap(path, eval.NewError(eval.CodeTypeMismatch, map[string]any{"position": position},
			"unknown token position %q", position))
	}
	x.place(id, at, to, idx, path)
	return nil
}

// place moves a token into to at idx (an index into to without the token).
// Nothing is traced when the zone contents are unchanged.
func (x *Execution) place(id, from, to string, idx int, path string) {
	if from == to {
		cur := x.State.Zones[to]
		next := slices.DeleteFunc(slices.Clone(cur), func(t string) bool { return t == id })
		next = slices.Insert(next, idx, id)
		if slices.Equal(cur, next) {
			return
		}
		x.State.Zones[to] = next
		x.record(TraceMoveToken, path, map[string]any{"token": id, "from": from, "to": to, "index": idx})
		return
	}
	x.State.Zones[from] = slices.DeleteFunc(x.State.Zones[from], func(t string) bool { return t == id })
	x.State.Zones[to] = slices.Insert(slices.Clone(x.State.Zones[to]), idx, id)
	x.record(TraceMoveToken, path, map[string]any{"token": id, "from": from, "to": to, "index": idx})
	x.emitEvent(ir.TriggerEvent{Type: ir.EventTokenEntered, Zone: to, Token: id})
}

// moveAll keeps the moved tokens in their relative order, on top of the
// destination.
func (x *Execution) moveAll(n ir.MoveAll, b ir.Object, path string) error {
	ctx := x.eval(b)
	from, err := eval.ResolveZone(ctx, n.From)
	if err != nil {
		return x.wrap(path, err)
	}
	to, err := eval.ResolveZone(ctx, n.To)
	if err != nil {
		return x.wrap(path, err)
	}
	if from == to {
		return nil
	}
	var picked []string
	for _, id := range x.State.Zones[from] {
		if n.Filter != nil {
			ok, err := eval.Condition(ctx.With(eval.BindToken, ir.TokenRef(id)), *n.Filter)
			if err != nil {
				return x.wrap(path, err)
			}
			if !ok {
				continue
			}
		}
		picked = append(picked, id)
	}
	for i, id := range picked {
		if err := x.Ctx.Budget.Check(path); err != nil {
			return err
		}
		x.place(id, from, to, i, path)
	}
	return nil
}

// draw deals up to Count tokens one at a time from the top of From onto the
// top of To.
func (x *Execution) draw(n ir.Draw, b ir.Object, path string) error {
	ctx := x.eval(b)
	count, err := eval.Int(ctx, n.Count)
	if err != nil {
		return x.wrap(path, err)
	}
	if count < 0 {
		return x.wrap(path, fmt.Errorf("draw count must be non-negative, got %d", count))
	}
	from, err := eval.ResolveZone(ctx, n.From)
	if err != nil {
		return x.wrap(path, err)
	}
	to, err := eval.ResolveZone(ctx, n.To)
	if err != nil {
		return x.wrap(path, err)
	}
	if from == to {
		return nil
	}
	for i := int64(0); i < count && len(x.State.Zones[from]) > 0; i++ {
		if err := x.Ctx.Budget.Check(path); err != nil {
			return err
		}
		x.place(x.State.Zones[from][0], from, to, 0, path)
	}
	return nil
}

func (x *Execution) createToken(n ir.CreateToken, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	ctx := x.eval(b)
	tt, ok := x.Ctx.Def.TokenType(n.Type)
	if !ok {
		return b, nil, x.wrap(path, eval.NewError(eval.CodeMissingVar, map[string]any{"tokenType": n.Type},
			"token type %s is not declared", n.Type))
	}
	zone, err := eval.ResolveZone(ctx, n.Zone)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	props := tt.Props.Clone()
	if props == nil {
		props = ir.Object{}
	}
	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		keys = append(keys, k)
	}
	ir.SortCanonical(keys)
	for _, k := range keys {
		v, err := eval.Value(ctx, n.Props[k])
		if err != nil {
			return b, nil, x.wrap(path, err)
		}
		props[k] = v
	}

	var id string
	for {
		x.State.NextTokenOrdinal++
		id = fmt.Sprintf("%s-%d", n.Type, x.State.NextTokenOrdinal)
		if _, taken := x.State.Tokens[id]; !taken {
			break
		}
	}
	x.State.Tokens[id] = ir.Token{ID: id, Type: n.Type, Props: props}
	x.State.Zones[zone] = slices.Insert(slices.Clone(x.State.Zones[zone]), 0, id)
	x.record(TraceCreateToken, path, map[string]any{"token": id, "type": n.Type, "zone": zone})
	x.emitEvent(ir.TriggerEvent{Type: ir.EventTokenCreated, Zone: zone, Token: id})

	if n.Bind == "" {
		return b, nil, nil
	}
	out := b.Clone()
	out[n.Bind] = ir.TokenRef(id)
	return out, nil, nil
}

func (x *Execution) destroyToken(n ir.DestroyToken, b ir.Object, path string) error {
	id, err := eval.ResolveToken(x.eval(b), n.Token)
	if err != nil {
		return x.wrap(path, err)
	}
	zone, _ := x.State.TokenZone(id)
	if zone != "" {
		x.State.Zones[zone] = slices.DeleteFunc(slices.Clone(x.State.Zones[zone]), func(t string) bool { return t == id })
	}
	delete(x.State.Tokens, id)
	x.record(TraceDestroy, path, map[string]any{"token": id, "zone": zone})
	return nil
}

func (x *Execution) setTokenProp(n ir.SetTokenProp, b ir.Object, path string) error {
	ctx := x.eval(b)
	id, err := eval.ResolveToken(ctx, n.Token)
	if err != nil {
		return x.wrap(path, err)
	}
	v, err := eval.Value(ctx, n.Value)
	if err != nil {
		return x.wrap(path, err)
	}
	tok := x.State.Tokens[id]
	old, had := tok.Props[n.Prop]
	if had && ir.EqualValues(old, v) {
		return nil
	}
	tok.Props = tok.Props.Clone()
	if tok.Props == nil {
		tok.Props = ir.Object{}
	}
	tok.Props[n.Prop] = v
	x.State.Tokens[id] = tok
	d := map[string]any{"token": id, "prop": n.Prop, "to": ir.ValueKey(v)}
	if had {
		d["from"] = ir.ValueKey(old)
	}
	x.record(TraceTokenProp, path, d)
	return nil
}

func (x *Execution) shuffle(n ir.Shuffle, b ir.Object, path string) error {
	zone, err := eval.ResolveZone(x.eval(b), n.Zone)
	if err != nil {
		return x.wrap(path, err)
	}
	cur := x.State.Zones[zone]
	next, rs, err := rng.Shuffle(x.State.RNG, cur)
	if err != nil {
		return x.wrap(path, err)
	}
	x.State.RNG = rs
	if slices.Equal(cur, next) {
		return nil
	}
	x.State.Zones[zone] = next
	x.record(TraceShuffle, path, map[string]any{"zone": zone, "size": len(next)})
	return nil
}

func (x *Execution) reveal(n ir.Reveal, b ir.Object, path string) error {
	ctx := x.eval(b)
	zones, err := eval.ResolveZones(ctx, n.Zone)
	if err != nil {
		return x.wrap(path, err)
	}
	players, err := eval.ResolvePlayers(ctx, n.To)
	if err != nil {
		return x.wrap(path, err)
	}
	for _, z := range zones {
		cur := x.State.Revealed[z]
		next := slices.Clone(cur)
		next = append(next, players...)
		slices.Sort(next)
		next = slices.Compact(next)
		if slices.Equal(cur, next) {
			continue
		}
		if x.State.Revealed == nil {
			x.State.Revealed = map[string][]int{}
		}
		x.State.Revealed[z] = next
		x.record(TraceReveal, path, map[string]any{"zone": z, "players": next})
	}
	return nil
}

func (x *Execution) conceal(n ir.Conceal, b ir.Object, path string) error {
	ctx := x.eval(b)
	zones, err := eval.ResolveZones(ctx, n.Zone)
	if err != nil {
		return x.wrap(path, err)
	}
	var hide []int
	if n.From != nil {
		if hide, err = eval.ResolvePlayers(ctx, *n.From); err != nil {
			return x.wrap(path, err)
		}
	}
	for _, z := range zones {
		cur, ok := x.State.Revealed[z]
		if !ok {
			continue
		}
		var next []int
		if n.From != nil {
			next = slices.DeleteFunc(slices.Clone(cur), func(p int) bool { return slices.Contains(hide, p) })
		}
		if len(next) == len(cur) {
			continue
		}
		if len(next) == 0 {
			delete(x.State.Revealed, z)
		} else {
			x.State.Revealed[z] = next
		}
		x.record(TraceConceal, path, map[string]any{"zone": z, "players": next})
	}
	return nil
}
