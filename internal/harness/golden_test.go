package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/testutil"
)

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"race_opening", "choose_pick"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, loadTestScenario(t, name)))
		})
	}
}

func TestSummary(t *testing.T) {
	def := testutil.GameDef(t, testutil.GamePass)
	s, err := kernel.InitialState(def, 1, 2)
	require.NoError(t, err)

	r := NewResult()
	r.Final = s
	r.Trace = []TraceEvent{{Step: 1, Seq: 1, Action: "pass", Outcome: OutcomeApplied, Hash: 0xabc, Triggers: []string{"t"}}}
	r.Terminal = &kernel.Terminal{Type: ir.ResultWin, Player: ptr(1)}

	data, err := Summary("pass", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"final":{"active":0,"globalVars":{},"perPlayerVars":[{},{}],"phase":"main","terminal":{"player":1,"type":"win"},"zones":{}},`+
			`"scenario":"pass","trace":[{"action":"pass","outcome":"applied","params":{},"player":0,"step":1,"triggers":["t"]}]}`,
		string(data))
}
