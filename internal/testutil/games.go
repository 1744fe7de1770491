package testutil

import (
	"embed"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
)

//go:embed games/*.json
var games embed.FS

// Fixture game names.
const (
	GamePass   = "pass"
	GameChoose = "choose"
	GameRace   = "race"
	GameHeist  = "heist"
	GameOps    = "ops"
)

// GameJSON returns the raw definition of a fixture game.
func GameJSON(t testing.TB, name string) []byte {
	t.Helper()
	data, err := games.ReadFile("games/" + name + ".json")
	require.NoError(t, err, "unknown fixture game %q", name)
	return data
}

// GameDef decodes a fixture game.
func GameDef(t testing.TB, name string) *ir.GameDef {
	t.Helper()
	var def ir.GameDef
	require.NoError(t, json.Unmarshal(GameJSON(t, name), &def))
	return &def
}

// DecodeDef decodes an inline definition.
func DecodeDef(t testing.TB, src string) *ir.GameDef {
	t.Helper()
	var def ir.GameDef
	require.NoError(t, json.Unmarshal([]byte(src), &def))
	return &def
}
