package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("..", "..", "testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func raceGame() string {
	return filepath.Join("..", "testutil", "games", "race.json")
}

func TestRunScenarios(t *testing.T) {
	for _, name := range []string{"race_opening", "choose_pick", "race_autoplay"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.NotEmpty(t, result.Trace)
			assert.Equal(t, name+"-0001", result.GameID)
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	s := loadTestScenario(t, "race_autoplay")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Final.StateHash, second.Final.StateHash)
}

func TestRunAutoplayMarksMoves(t *testing.T) {
	result, err := Run(loadTestScenario(t, "race_autoplay"))
	require.NoError(t, err)

	require.Greater(t, len(result.Trace), 2)
	assert.False(t, result.Trace[0].Auto)
	assert.False(t, result.Trace[1].Auto)
	for _, ev := range result.Trace[2:] {
		assert.True(t, ev.Auto)
		assert.True(t, ev.Applied(), "agents only pick legal moves")
	}
	assert.NotNil(t, result.Terminal)
}

func TestRunRecordsTriggersAndSeqs(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "roll",
		Description: "roll once",
		Game:        raceGame(),
		Seed:        3,
		Players:     2,
		Moves: []MoveStep{
			{Action: "roll"},
			{Action: "roll", ExpectIllegal: "any"},
			{Action: "draw"},
		},
	})
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)

	assert.Equal(t, []string{"count-rolls"}, result.Trace[0].Triggers)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.NotZero(t, result.Trace[0].Hash)
	assert.Equal(t, "illegal:actionLimitExceeded", result.Trace[1].Outcome)
	assert.Zero(t, result.Trace[1].Seq)
	assert.Equal(t, int64(2), result.Trace[2].Seq)
	assert.Len(t, result.Applied(), 2)
}

func TestRunReportsUnexpectedOutcomes(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "mismatch",
		Description: "expectations that do not hold",
		Game:        raceGame(),
		Seed:        3,
		Players:     2,
		Moves: []MoveStep{
			{Action: "advance", Params: map[string]any{"$steps": 1}, ExpectIllegal: "any"},
			{Action: "advance", Params: map[string]any{"$steps": 7}},
			{Action: "advance", Params: map[string]any{"$steps": 7}, ExpectIllegal: "actionLimitExceeded"},
			{Action: "draw", ExpectError: "EFFECT_RUNTIME"},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected illegal:any, got applied")
	assert.Contains(t, result.Errors[1], "expected applied, got illegal:invalidParam")
	assert.Contains(t, result.Errors[2], "expected illegal:actionLimitExceeded, got illegal:invalidParam")
	assert.Contains(t, result.Errors[3], "expected error:EFFECT_RUNTIME, got applied")
}

func TestRunFailingAssertion(t *testing.T) {
	eq := int64(99)
	result, err := Run(&Scenario{
		Name:        "assert",
		Description: "wrong expectation",
		Game:        raceGame(),
		Seed:        3,
		Players:     2,
		Moves:       []MoveStep{{Action: "advance", Params: map[string]any{"$steps": 1}}},
		Assertions:  []Assertion{{Type: AssertVar, Scope: "player", Player: new(int), Var: "pos", Equals: &eq}},
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "Actual: 1")
}

func TestRunMissingGame(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "nogame",
		Description: "game file missing",
		Game:        filepath.Join(t.TempDir(), "missing.json"),
		Players:     2,
		Moves:       []MoveStep{{Action: "roll"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nogame")
}

func TestRunBadPlayerCount(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "crowd",
		Description: "too many players",
		Game:        raceGame(),
		Players:     5,
		Moves:       []MoveStep{{Action: "roll"}},
	})
	assert.Error(t, err)
}
