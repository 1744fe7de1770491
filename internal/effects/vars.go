package effects

import (
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/ir"
)

// varSlot is one concrete variable cell.
type varSlot struct {
	scope  ir.VarScope
	name   string
	player int
	zone   string
	def    ir.VarDef
}

func (s varSlot) details() map[string]any {
	d := map[string]any{"scope": string(s.scope), "var": s.name}
	switch s.scope {
	case ir.ScopePlayer:
		d["player"] = s.player
	case ir.ScopeZone:
		d["zone"] = s.zone
	}
	return d
}

// slots resolves a target to every cell it addresses. Player and zone
// selectors may address several cells ("all", a zone-list binding).
func (x *Execution) slots(t ir.VarTarget, b ir.Object) ([]varSlot, error) {
	def, ok := x.Ctx.Def.VarDefFor(t.Scope, t.Var)
	if !ok {
		return nil, eval.NewError(eval.CodeMissingVar, map[string]any{"scope": string(t.Scope), "var": t.Var},
			"%s variable %s is not declared", t.Scope, t.Var)
	}
	ctx := x.eval(b)
	switch t.Scope {
	case ir.ScopeGlobal:
		return []varSlot{{scope: t.Scope, name: t.Var, def: def}}, nil
	case ir.ScopePlayer:
		sel := ir.PlayerSel{Kind: ir.PlayerActor}
		if t.Player != nil {
			sel = *t.Player
		}
		players, err := eval.ResolvePlayers(ctx, sel)
		if err != nil {
			return nil, err
		}
		out := make([]varSlot, len(players))
		for i, p := range players {
			out[i] = varSlot{scope: t.Scope, name: t.Var, player: p, def: def}
		}
		return out, nil
	case ir.ScopeZone:
		zones, err := eval.ResolveZones(ctx, t.Zone)
		if err != nil {
			return nil, err
		}
		out := make([]varSlot, len(zones))
		for i, z := range zones {
			out[i] = varSlot{scope: t.Scope, name: t.Var, zone: z, def: def}
		}
		return out, nil
	}
	return nil, eval.NewError(eval.CodeTypeMismatch, map[string]any{"scope": string(t.Scope)}, "unknown variable scope %q", t.Scope)
}

// one resolves a target that must address exactly one cell.
func (x *Execution) one(t ir.VarTarget, b ir.Object) (varSlot, error) {
	cells, err := x.slots(t, b)
	if err != nil {
		return varSlot{}, err
	}
	if len(cells) != 1 {
		return varSlot{}, eval.NewError(eval.CodeSelectorCardinality, map[string]any{
			"var":           t.Var,
			"resolvedCount": len(cells),
		}, "transfer endpoint %s resolved to %d variables, expected 1", t.Var, len(cells))
	}
	return cells[0], nil
}

func (x *Execution) read(s varSlot) int64 {
	switch s.scope {
	case ir.ScopeGlobal:
		if v, ok := x.State.GlobalVars[s.name]; ok {
			return v
		}
	case ir.ScopePlayer:
		if v, ok := x.State.PerPlayerVars[s.player][s.name]; ok {
			return v
		}
	case ir.ScopeZone:
		if v, ok := x.State.ZoneVars[s.zone][s.name]; ok {
			return v
		}
	}
	return s.def.Init
}

// write stores a clamped value and reports whether it changed. Changes are
// traced and raise varChanged.
func (x *Execution) write(s varSlot, v int64, path string) bool {
	v = s.def.Clamp(v)
	old := x.read(s)
	if v == old {
		return false
	}
	ev := ir.TriggerEvent{Type: ir.EventVarChanged, Var: s.name}
	switch s.scope {
	case ir.ScopeGlobal:
		if x.State.GlobalVars == nil {
			x.State.GlobalVars = map[string]int64{}
		}
		x.State.GlobalVars[s.name] = v
	case ir.ScopePlayer:
		if x.State.PerPlayerVars[s.player] == nil {
			x.State.PerPlayerVars[s.player] = map[string]int64{}
		}
		x.State.PerPlayerVars[s.player][s.name] = v
		p := s.player
		ev.Player = &p
	case ir.ScopeZone:
		if x.State.ZoneVars == nil {
			x.State.ZoneVars = map[string]map[string]int64{}
		}
		if x.State.ZoneVars[s.zone] == nil {
			x.State.ZoneVars[s.zone] = map[string]int64{}
		}
		x.State.ZoneVars[s.zone][s.name] = v
		ev.Zone = s.zone
	}
	d := s.details()
	d["from"] = old
	d["to"] = v
	x.record(TraceVar, path, d)
	x.emitEvent(ev)
	return true
}

func (x *Execution) setVar(n ir.SetVar, b ir.Object, path string) error {
	v, err := eval.Int(x.eval(b), n.Value)
	if err != nil {
		return x.wrap(path, err)
	}
	cells, err := x.slots(n.VarTarget, b)
	if err != nil {
		return x.wrap(path, err)
	}
	for _, c := range cells {
		x.write(c, v, path)
	}
	return nil
}

func (x *Execution) addVar(n ir.AddVar, b ir.Object, path string) error {
	delta, err := eval.Int(x.eval(b), n.Delta)
	if err != nil {
		return x.wrap(path, err)
	}
	cells, err := x.slots(n.VarTarget, b)
	if err != nil {
		return x.wrap(path, err)
	}
	for _, c := range cells {
		x.write(c, x.read(c)+delta, path)
	}
	return nil
}

// transferVar moves as much of the requested amount as the source's lower
// bound and the target's upper bound allow. The amount actually moved is
// bound to Bind for the following siblings.
func (x *Execution) transferVar(n ir.TransferVar, b ir.Object, path string) (ir.Object, *ChoicePending, error) {
	amount, err := eval.Int(x.eval(b), n.Amount)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	from, err := x.one(n.From, b)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}
	to, err := x.one(n.To, b)
	if err != nil {
		return b, nil, x.wrap(path, err)
	}

	moved := max(amount, 0)
	fromOld, toOld := x.read(from), x.read(to)
	if from.def.Min != nil {
		moved = min(moved, max(fromOld-*from.def.Min, 0))
	}
	if to.def.Max != nil {
		moved = min(moved, max(*to.def.Max-toOld, 0))
	}
	if moved > 0 && from != to {
		x.write(from, fromOld-moved, path)
		x.write(to, toOld+moved, path)
		d := map[string]any{"from": from.details(), "to": to.details(), "requested": amount, "moved": moved}
		x.record(TraceTransfer, path, d)
	} else {
		moved = 0
	}

	if n.Bind == "" {
		return b, nil, nil
	}
	out := b.Clone()
	out[n.Bind] = ir.Int(moved)
	return out, nil, nil
}
