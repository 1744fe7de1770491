package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a deterministic
// clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithClock(testutil.NewDeterministicClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestGame stores a minimal game header and initial snapshot.
func createTestGame(t *testing.T, s *Store, id string) Game {
	t.Helper()
	g := Game{
		ID:            id,
		DefID:         "race",
		DefHash:       "test-hash",
		Def:           []byte(`{"id":"race"}`),
		Seed:          42,
		PlayerCount:   2,
		InitialHash:   0x1f,
		EngineVersion: ir.EngineVersion,
	}
	require.NoError(t, s.CreateGame(context.Background(), g, Snapshot{StateHash: 0x1f, State: []byte(`{"seq":0}`)}))
	return g
}

func createTestMove(gameID string, seq int64, action string) MoveRecord {
	return MoveRecord{
		GameID:    gameID,
		Seq:       seq,
		Player:    int(seq-1) % 2,
		Move:      ir.Move{ActionID: action, Params: ir.Object{}},
		StateHash: ir.Hex64(0x100 + seq),
	}
}
