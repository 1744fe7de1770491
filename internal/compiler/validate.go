package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/tabula/internal/ir"
)

// Validate cross-checks a decoded game definition. It returns every problem
// found, in declaration order, and does not stop at the first.
func Validate(def *ir.GameDef) []Diagnostic {
	v := &validator{def: def}
	v.players()
	v.declarations()
	v.turnOrder()
	v.actions()
	v.pipelines()
	v.triggers()
	for _, l := range effectLists(def) {
		walkEffects(l.effects, l.path, v.effect)
	}
	return v.diags
}

type validator struct {
	def   *ir.GameDef
	diags []Diagnostic
}

func (v *validator) add(code, path, format string, args ...any) {
	v.diags = append(v.diags, Diagnostic{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) players() {
	if v.def.Players.Min > v.def.Players.Max {
		v.add(ErrPlayerRange, "players", "min %d exceeds max %d", v.def.Players.Min, v.def.Players.Max)
	}
}

// unique reports ids that appear more than once in one list.
func (v *validator) unique(list string, ids []string) {
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if seen[id] {
			v.add(ErrDuplicateID, fmt.Sprintf("%s[%d]", list, i), "duplicate id %q", id)
		}
		seen[id] = true
	}
}

func (v *validator) declarations() {
	d := v.def
	v.unique("zones", ids(d.Zones, func(z ir.ZoneDef) string { return z.ID }))
	v.unique("tokenTypes", ids(d.TokenTypes, func(t ir.TokenTypeDef) string { return t.ID }))
	v.unique("turnStructure.phases", ids(d.TurnStructure.Phases, func(p ir.PhaseDef) string { return p.ID }))
	v.unique("actions", ids(d.Actions, func(a ir.ActionDef) string { return a.ID }))
	v.unique("actionPipelines", ids(d.ActionPipelines, func(p ir.ActionPipelineDef) string { return p.ID }))
	v.unique("triggers", ids(d.Triggers, func(t ir.TriggerDef) string { return t.ID }))

	for _, scope := range []struct {
		list string
		vars []ir.VarDef
	}{{"globalVars", d.GlobalVars}, {"perPlayerVars", d.PerPlayerVars}, {"zoneVars", d.ZoneVars}} {
		v.unique(scope.list, ids(scope.vars, func(vd ir.VarDef) string { return vd.Name }))
		for i, vd := range scope.vars {
			path := fmt.Sprintf("%s[%d]", scope.list, i)
			if vd.Min != nil && vd.Max != nil && *vd.Min > *vd.Max {
				v.add(ErrVarBounds, path, "min %d exceeds max %d", *vd.Min, *vd.Max)
			} else if vd.Clamp(vd.Init) != vd.Init {
				v.add(ErrVarBounds, path, "init %d is outside its bounds", vd.Init)
			}
		}
	}

	for i, z := range d.Zones {
		for j, adj := range z.Adjacent {
			if _, ok := d.ZoneFamily(adj); !ok {
				v.add(ErrUnknownRef, fmt.Sprintf("zones[%d].adjacent[%d]", i, j), "unknown zone %q", adj)
			}
		}
	}
}

func (v *validator) turnOrder() {
	t := v.def.TurnOrder
	if t.CardDriven != nil && t.Kind() != ir.TurnOrderCardDriven {
		v.add(ErrTurnOrderShape, "turnOrder.cardDriven", "cardDriven configuration requires type %q", ir.TurnOrderCardDriven)
	}
	if t.Kind() != ir.TurnOrderCardDriven || t.CardDriven == nil {
		return
	}
	seen := map[int]bool{}
	for i, seat := range t.CardDriven.SeatOrder {
		path := fmt.Sprintf("turnOrder.cardDriven.seatOrder[%d]", i)
		if seat >= v.def.Players.Max {
			v.add(ErrSeatOrder, path, "seat %d is outside the player range (max %d)", seat, v.def.Players.Max)
		}
		if seen[seat] {
			v.add(ErrSeatOrder, path, "seat %d listed twice", seat)
		}
		seen[seat] = true
	}
}

func (v *validator) actions() {
	for i, a := range v.def.Actions {
		path := fmt.Sprintf("actions[%d]", i)
		for j, ph := range a.Phases {
			v.phaseRef(fmt.Sprintf("%s.phases[%d]", path, j), ph)
		}
		for j, linked := range a.LinkedActions {
			v.actionRef(fmt.Sprintf("%s.linkedActions[%d]", path, j), linked)
		}
		v.unique(path+".params", ids(a.Params, func(p ir.ParamDef) string { return p.Name }))
	}
}

func (v *validator) pipelines() {
	for i, p := range v.def.ActionPipelines {
		v.actionRef(fmt.Sprintf("actionPipelines[%d].actionId", i), p.ActionID)
	}
}

func (v *validator) triggers() {
	for i, t := range v.def.Triggers {
		path := fmt.Sprintf("triggers[%d].event", i)
		if t.Event.Phase != "" {
			v.phaseRef(path+".phase", t.Event.Phase)
		}
		if t.Event.Action != "" {
			v.actionRef(path+".action", t.Event.Action)
		}
	}
}

// effect checks the references of one effect node.
func (v *validator) effect(e ir.Effect, path string) {
	path += "." + e.Kind()
	switch n := e.Node.(type) {
	case ir.SetVar:
		v.varRef(path, n.VarTarget)
		v.zoneRef(path+".zone", n.Zone)
	case ir.AddVar:
		v.varRef(path, n.VarTarget)
		v.zoneRef(path+".zone", n.Zone)
	case ir.TransferVar:
		v.varRef(path+".from", n.From)
		v.varRef(path+".to", n.To)
	case ir.MoveToken:
		v.zoneRef(path+".from", n.From)
		v.zoneRef(path+".to", n.To)
	case ir.MoveAll:
		v.zoneRef(path+".from", n.From)
		v.zoneRef(path+".to", n.To)
	case ir.Draw:
		v.zoneRef(path+".from", n.From)
		v.zoneRef(path+".to", n.To)
	case ir.CreateToken:
		if _, ok := v.def.TokenType(n.Type); !ok {
			v.add(ErrUnknownRef, path+".type", "unknown token type %q", n.Type)
		}
		v.zoneRef(path+".zone", n.Zone)
	case ir.Shuffle:
		v.zoneRef(path+".zone", n.Zone)
	case ir.Reveal:
		v.zoneRef(path+".zone", n.Zone)
	case ir.Conceal:
		v.zoneRef(path+".zone", n.Zone)
	case ir.GotoPhase:
		v.phaseRef(path+".phase", n.Phase)
	case ir.PushInterruptPhase:
		v.phaseRef(path+".phase", n.Phase)
		if n.ResumePhase != "" {
			v.phaseRef(path+".resumePhase", n.ResumePhase)
		}
	case ir.GrantFreeOperation:
		for i, id := range n.ActionIDs {
			v.actionRef(fmt.Sprintf("%s.actionIds[%d]", path, i), id)
		}
	}
}

func (v *validator) phaseRef(path, id string) {
	if _, _, ok := v.def.Phase(id); !ok {
		v.add(ErrUnknownRef, path, "unknown phase %q", id)
	}
}

func (v *validator) actionRef(path, id string) {
	if _, ok := v.def.Action(id); !ok {
		v.add(ErrUnknownRef, path, "unknown action %q", id)
	}
}

func (v *validator) varRef(path string, t ir.VarTarget) {
	if _, ok := v.def.VarDefFor(t.Scope, t.Var); !ok {
		v.add(ErrUnknownRef, path+".var", "unknown %s variable %q", t.Scope, t.Var)
	}
}

// zoneRef checks the family of a literal zone selector. Binding-derived
// selectors are only known at run time.
func (v *validator) zoneRef(path string, sel ir.ZoneSel) {
	s := string(sel)
	if s == "" || strings.HasPrefix(s, "$") {
		return
	}
	base, _, _ := strings.Cut(s, ":")
	if _, ok := v.def.ZoneFamily(base); !ok {
		v.add(ErrUnknownRef, path, "unknown zone %q", base)
	}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}
