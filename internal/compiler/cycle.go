package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tabula/internal/ir"
)

// CycleWarning represents a potential trigger cascade loop.
//
// Cycles are warnings, not errors, because they may be intentional: a
// trigger that reacts to its own variable change usually stops through its
// when condition, and the dispatcher bounds every cascade by
// maxTriggerDepth anyway.
type CycleWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeTriggerCycles reports triggers whose effects can raise events that
// lead back to themselves.
//
// The algorithm:
//  1. Collect the events each trigger's effects may raise
//  2. Add an edge to every trigger whose event clause could match one
//  3. Use Tarjan's algorithm to find strongly connected components
//  4. Report each SCC with size > 1 or a self-loop
//
// A definition without cycles returns an empty list.
func AnalyzeTriggerCycles(def *ir.GameDef) []CycleWarning {
	if len(def.Triggers) == 0 {
		return []CycleWarning{}
	}
	graph := buildDependencyGraph(def)

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(def, graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// dependencyGraph maps trigger id -> trigger ids it could fire.
type dependencyGraph map[string][]string

func buildDependencyGraph(def *ir.GameDef) dependencyGraph {
	graph := make(dependencyGraph, len(def.Triggers))
	for _, t := range def.Triggers {
		graph[t.ID] = []string{}
		raised := raisedEvents(t.Effects)
		for _, other := range def.Triggers {
			if slices.ContainsFunc(raised, func(ev ir.EventMatch) bool { return mayMatch(other.Event, ev) }) {
				graph[t.ID] = append(graph[t.ID], other.ID)
			}
		}
	}
	return graph
}

// raisedEvents lists the events an effect list may raise. Unknown fields
// are left empty and match anything.
func raisedEvents(effects []ir.Effect) []ir.EventMatch {
	var out []ir.EventMatch
	walkEffects(effects, "", func(e ir.Effect, _ string) {
		switch n := e.Node.(type) {
		case ir.SetVar:
			out = append(out, ir.EventMatch{Type: ir.EventVarChanged, Var: n.Var})
		case ir.AddVar:
			out = append(out, ir.EventMatch{Type: ir.EventVarChanged, Var: n.Var})
		case ir.TransferVar:
			out = append(out,
				ir.EventMatch{Type: ir.EventVarChanged, Var: n.From.Var},
				ir.EventMatch{Type: ir.EventVarChanged, Var: n.To.Var})
		case ir.MoveToken:
			out = append(out, ir.EventMatch{Type: ir.EventTokenEntered, Zone: zoneBase(n.To)})
		case ir.MoveAll:
			out = append(out, ir.EventMatch{Type: ir.EventTokenEntered, Zone: zoneBase(n.To)})
		case ir.Draw:
			out = append(out, ir.EventMatch{Type: ir.EventTokenEntered, Zone: zoneBase(n.To)})
		case ir.CreateToken:
			out = append(out, ir.EventMatch{Type: ir.EventTokenCreated, Zone: zoneBase(n.Zone)})
		case ir.GotoPhase:
			out = append(out, ir.EventMatch{Type: ir.EventPhaseExit}, ir.EventMatch{Type: ir.EventPhaseEnter, Phase: n.Phase})
		case ir.PushInterruptPhase:
			out = append(out, ir.EventMatch{Type: ir.EventPhaseExit}, ir.EventMatch{Type: ir.EventPhaseEnter, Phase: n.Phase})
		case ir.Emit:
			out = append(out, ir.EventMatch{Type: ir.EventCustom, Name: n.Event})
		}
	})
	return out
}

// zoneBase returns the family of a literal selector, or "" when the zone is
// only known at run time.
func zoneBase(sel ir.ZoneSel) string {
	s := string(sel)
	if strings.HasPrefix(s, "$") {
		return ""
	}
	base, _, _ := strings.Cut(s, ":")
	return base
}

// mayMatch reports whether a trigger clause could match a raised event.
// Zones compare by family since triggers name concrete zones.
func mayMatch(clause, raised ir.EventMatch) bool {
	if clause.Type != raised.Type {
		return false
	}
	clauseZone, _, _ := strings.Cut(clause.Zone, ":")
	for _, f := range [][2]string{
		{clause.Phase, raised.Phase},
		{clause.Var, raised.Var},
		{clause.Name, raised.Name},
		{clauseZone, raised.Zone},
	} {
		if f[0] != "" && f[1] != "" && f[0] != f[1] {
			return false
		}
	}
	return clause.Action == ""
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in declaration order so the result is stable.
func tarjanSCC(def *ir.GameDef, graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Reverse(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, t := range def.Triggers {
		if _, visited := indices[t.ID]; !visited {
			strongConnect(t.ID)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("self-triggering trigger: %s -> %s", id, id),
			Level:   "warning",
		}
	}
	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("potential trigger cycle: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}
	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true
		next := ""
		for _, w := range graph[current] {
			if inSCC[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
