package compiler

import (
	"fmt"

	"github.com/roach88/tabula/internal/ir"
)

// effectList is an effect list with its path in the definition.
type effectList struct {
	path    string
	effects []ir.Effect
}

// walkEffects visits every effect of a list and of the lists nested inside
// it, depth first, with its path.
func walkEffects(effects []ir.Effect, path string, fn func(e ir.Effect, path string)) {
	for i, e := range effects {
		p := fmt.Sprintf("%s[%d]", path, i)
		fn(e, p)
		for _, nested := range nestedEffects(e, p+"."+e.Kind()) {
			walkEffects(nested.effects, nested.path, fn)
		}
	}
}

func nestedEffects(e ir.Effect, path string) []effectList {
	switch n := e.Node.(type) {
	case ir.IfEffect:
		return []effectList{{path + ".then", n.Then}, {path + ".else", n.Else}}
	case ir.ForEach:
		return []effectList{{path + ".effects", n.Effects}}
	case ir.Reduce:
		return []effectList{{path + ".in", n.In}}
	case ir.BindValue:
		return []effectList{{path + ".in", n.In}}
	case ir.RollRandom:
		return []effectList{{path + ".in", n.In}}
	case ir.DeferEventEffect:
		return []effectList{{path + ".effects", n.Effects}}
	default:
		return nil
	}
}

// effectLists returns every top-level effect list of a definition.
func effectLists(def *ir.GameDef) []effectList {
	out := []effectList{{"setup", def.Setup}}
	for i, ph := range def.TurnStructure.Phases {
		out = append(out, effectList{fmt.Sprintf("turnStructure.phases[%d].onEnter", i), ph.OnEnter})
	}
	for i, a := range def.Actions {
		out = append(out,
			effectList{fmt.Sprintf("actions[%d].cost", i), a.Cost},
			effectList{fmt.Sprintf("actions[%d].effects", i), a.Effects},
		)
	}
	for i, p := range def.ActionPipelines {
		out = append(out, effectList{fmt.Sprintf("actionPipelines[%d].costEffects", i), p.CostEffects})
		for j, st := range p.Stages {
			out = append(out, effectList{fmt.Sprintf("actionPipelines[%d].stages[%d].effects", i, j), st.Effects})
		}
	}
	for i, t := range def.Triggers {
		out = append(out, effectList{fmt.Sprintf("triggers[%d].effects", i), t.Effects})
	}
	return out
}
