package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/internal/triggers"
)

func TestCreateGame_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestGame(t, s, "game-0001")

	got, err := s.Game(ctx, "game-0001")
	require.NoError(t, err)
	assert.Equal(t, testutil.Epoch.Add(1e9), got.CreatedAt, "first clock tick")
	got.CreatedAt = want.CreatedAt
	assert.Equal(t, want, got)

	snap, err := s.LatestSnapshot(ctx, "game-0001", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Seq)
	assert.Equal(t, ir.Hex64(0x1f), snap.StateHash)
}

func TestCreateGame_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	createTestGame(t, s, "game-0001")

	err := s.CreateGame(context.Background(), Game{ID: "game-0001", Def: []byte("{}")}, Snapshot{State: []byte("{}")})
	assert.Error(t, err)
}

func TestGame_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Game(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LastSeq(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMove_SequenceMustBeContiguous(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s, "g")

	require.NoError(t, s.AppendMove(ctx, createTestMove("g", 1, "roll"), nil, nil))

	tests := []struct {
		name string
		seq  int64
	}{
		{"replayed seq", 1},
		{"skipped seq", 3},
		{"zero seq", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AppendMove(ctx, createTestMove("g", tt.seq, "roll"), nil, nil)
			assert.ErrorIs(t, err, ErrSeqConflict)
		})
	}

	last, err := s.LastSeq(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(1), last)
}

func TestAppendMove_UnknownGame(t *testing.T) {
	s := createTestStore(t)

	err := s.AppendMove(context.Background(), createTestMove("ghost", 1, "roll"), nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMove_StoresCanonicalMove(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s, "g")

	rec := createTestMove("g", 1, "advance")
	rec.Move.Params = ir.Object{"$steps": ir.Int(2), "decision:$x": ir.String("b")}
	rec.Move.Compound = &ir.Move{ActionID: "raid"}
	require.NoError(t, s.AppendMove(ctx, rec, nil, nil))

	var stored string
	require.NoError(t, s.DB().QueryRow("SELECT move FROM moves WHERE game_id = 'g' AND seq = 1").Scan(&stored))
	assert.Equal(t, `{"actionId":"advance","compound":{"actionId":"raid","params":{}},"params":{"$steps":2,"decision:$x":"b"}}`, stored)

	moves, err := s.Moves(ctx, "g")
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.True(t, ir.Equivalent(rec.Move, moves[0].Move))
	assert.Equal(t, rec.StateHash, moves[0].StateHash)
	assert.Equal(t, 0, moves[0].Player)
}

func TestAppendMove_TriggerLogAndSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s, "g")

	player := 1
	log := []triggers.LogEntry{
		{TriggerID: "count-rolls", Event: ir.TriggerEvent{Type: ir.EventActionResolved, Action: "roll", Player: &player}, Depth: 0, Player: 1},
		{TriggerID: "echo", Event: ir.TriggerEvent{Type: ir.EventVarChanged, Var: "rolls"}, Depth: 1, Player: 1},
	}
	snap := &Snapshot{StateHash: 0xabc, State: []byte(`{"seq":1}`)}
	require.NoError(t, s.AppendMove(ctx, createTestMove("g", 1, "roll"), log, snap))
	require.NoError(t, s.AppendMove(ctx, createTestMove("g", 2, "pass"), nil, nil))

	records, err := s.TriggerLog(ctx, "g")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for i, rec := range records {
		assert.Equal(t, int64(1), rec.Seq)
		assert.Equal(t, i, rec.Index)
		assert.Equal(t, log[i], rec.Entry)
	}

	latest, err := s.LatestSnapshot(ctx, "g", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest.Seq)
	assert.Equal(t, ir.Hex64(0xabc), latest.StateHash)
	assert.JSONEq(t, `{"seq":1}`, string(latest.State))

	initial, err := s.LatestSnapshot(ctx, "g", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), initial.Seq)
}

func TestAppendMove_FailedAppendWritesNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s, "g")

	log := []triggers.LogEntry{{TriggerID: "t"}}
	err := s.AppendMove(ctx, createTestMove("g", 2, "roll"), log, &Snapshot{State: []byte("{}")})
	require.ErrorIs(t, err, ErrSeqConflict)

	records, err := s.TriggerLog(ctx, "g")
	require.NoError(t, err)
	assert.Empty(t, records)
	latest, err := s.LatestSnapshot(ctx, "g", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), latest.Seq)
}

func TestWriteSnapshot_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s, "g")

	require.NoError(t, s.WriteSnapshot(ctx, Snapshot{GameID: "g", Seq: 0, StateHash: 0x2, State: []byte(`{"v":2}`)}))

	snap, err := s.LatestSnapshot(ctx, "g", 0)
	require.NoError(t, err)
	assert.Equal(t, ir.Hex64(0x2), snap.StateHash)
}

func TestListGames_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	for _, id := range []string{"game-0002", "game-0010", "game-0001"} {
		createTestGame(t, s, id)
	}

	games, err := s.ListGames(context.Background())
	require.NoError(t, err)
	var ids []string
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"game-0001", "game-0002", "game-0010"}, ids)
}

func TestListGames_Empty(t *testing.T) {
	s := createTestStore(t)

	games, err := s.ListGames(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, games)
	assert.Empty(t, games)
}
