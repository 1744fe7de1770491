package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tabula/internal/ir"
)

// Summary is the golden form of a run: the move outcomes and the final
// observable state. Hashes and token ids are left out so that a summary
// reads as rules behavior, not as a fingerprint.
//
// All fields use canonical JSON serialization for deterministic comparison.
func Summary(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		params := ev.Params
		if params == nil {
			params = ir.Object{}
		}
		m := map[string]any{
			"step":    ev.Step,
			"player":  ev.Player,
			"action":  ev.Action,
			"params":  params,
			"outcome": ev.Outcome,
		}
		if len(ev.Triggers) > 0 {
			m["triggers"] = ev.Triggers
		}
		trace[i] = m
	}

	s := result.Final
	players := make([]any, len(s.PerPlayerVars))
	for p, vars := range s.PerPlayerVars {
		players[p] = intMap(vars)
	}
	zones := map[string]any{}
	for _, id := range ir.SortedZoneIDs(s.Zones) {
		if n := len(s.Zones[id]); n > 0 {
			zones[id] = n
		}
	}
	final := map[string]any{
		"phase":         s.CurrentPhase,
		"active":        s.ActivePlayer,
		"globalVars":    intMap(s.GlobalVars),
		"perPlayerVars": players,
		"zones":         zones,
	}
	if t := result.Terminal; t != nil {
		term := map[string]any{"type": t.Type}
		if t.Player != nil {
			term["player"] = *t.Player
		}
		final["terminal"] = term
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": name,
		"trace":    trace,
		"final":    final,
	})
}

func intMap(m map[string]int64) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RunWithGolden executes a scenario and compares its summary against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's summary against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Summary(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
