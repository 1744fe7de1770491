package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/testutil"
)

func TestAnalyzeTriggerCycles_NoTriggers(t *testing.T) {
	warnings := AnalyzeTriggerCycles(testutil.GameDef(t, testutil.GamePass))
	assert.Empty(t, warnings)
}

// The race fixture counts rolls in a global var; nothing listens to it.
func TestAnalyzeTriggerCycles_DAG(t *testing.T) {
	warnings := AnalyzeTriggerCycles(testutil.GameDef(t, testutil.GameRace))
	assert.Empty(t, warnings)
}

func TestAnalyzeTriggerCycles_SelfLoop(t *testing.T) {
	def := testutil.DecodeDef(t, `{
		"id": "echo",
		"players": {"min": 1, "max": 1},
		"zones": [],
		"globalVars": [{"name": "n", "init": 0}],
		"turnStructure": {"phases": [{"id": "main"}]},
		"actions": [{"id": "pass", "actor": "active"}],
		"triggers": [
			{"id": "bump", "event": {"type": "varChanged", "var": "n"},
			 "effects": [{"addVar": {"scope": "global", "var": "n", "delta": 1}}]}
		]
	}`)

	warnings := AnalyzeTriggerCycles(def)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"bump", "bump"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "self-triggering")
}

func TestAnalyzeTriggerCycles_MultiNode(t *testing.T) {
	def := testutil.DecodeDef(t, `{
		"id": "pingpong",
		"players": {"min": 1, "max": 1},
		"zones": [{"id": "left"}, {"id": "right"}],
		"turnStructure": {"phases": [{"id": "main"}]},
		"actions": [{"id": "pass", "actor": "active"}],
		"triggers": [
			{"id": "ping", "event": {"type": "custom", "name": "ping"},
			 "effects": [{"moveAll": {"from": "left", "to": "right"}}]},
			{"id": "pong", "event": {"type": "tokenEntered", "zone": "right:none"},
			 "effects": [{"if": {"when": true, "then": [{"emit": {"event": "ping"}}]}}]},
			{"id": "bystander", "event": {"type": "custom", "name": "other"}, "effects": []}
		]
	}`)

	warnings := AnalyzeTriggerCycles(def)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"ping", "pong", "ping"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "ping -> pong -> ping")
}

func TestAnalyzeTriggerCycles_ActionFilterBreaksEdge(t *testing.T) {
	def := testutil.DecodeDef(t, `{
		"id": "quiet",
		"players": {"min": 1, "max": 1},
		"zones": [],
		"turnStructure": {"phases": [{"id": "main"}]},
		"actions": [{"id": "pass", "actor": "active"}],
		"triggers": [
			{"id": "after-pass", "event": {"type": "actionResolved", "action": "pass"},
			 "effects": [{"emit": {"event": "passed"}}]}
		]
	}`)
	assert.Empty(t, AnalyzeTriggerCycles(def))
}
