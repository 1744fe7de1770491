package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/testutil"
)

func TestReplay(t *testing.T) {
	m, _ := newManager(t)
	sess := playRace(t, m)

	report, err := m.Replay(context.Background(), sess.ID(), nil)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, len(raceMoves), report.Verified)
	assert.Equal(t, sess.State().StateHash, report.FinalHash)
	assert.Len(t, report.LogHash, 64)
	assert.False(t, report.DefChanged)
	assert.Nil(t, report.Terminal)
}

func TestReplayLogHashFollowsMoves(t *testing.T) {
	m, _ := newManager(t)
	a := playRace(t, m)
	b := playRace(t, m)
	ctx := context.Background()
	_, err := b.Apply(ctx, advance(1))
	require.NoError(t, err)

	ra, err := m.Replay(ctx, a.ID(), nil)
	require.NoError(t, err)
	rb, err := m.Replay(ctx, b.ID(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, ra.LogHash, rb.LogHash)

	again, err := m.Replay(ctx, a.ID(), nil)
	require.NoError(t, err)
	assert.Equal(t, ra.LogHash, again.LogHash)
}

func TestReplayReportsFirstDivergence(t *testing.T) {
	m, st := newManager(t)
	sess := playRace(t, m)

	for _, seq := range []int{4, 2} {
		_, err := st.DB().Exec(`UPDATE moves SET state_hash = '0xff' WHERE game_id = ? AND seq = ?`, sess.ID(), seq)
		require.NoError(t, err)
	}

	report, err := m.Replay(context.Background(), sess.ID(), nil)
	require.NoError(t, err)
	require.False(t, report.OK())
	assert.Equal(t, int64(2), report.Divergence.Seq)
	assert.Equal(t, "advance", report.Divergence.Move.ActionID)
	assert.Equal(t, ir.Hex64(0xff), report.Divergence.Expected)
	assert.NotZero(t, report.Divergence.Actual)
	assert.Empty(t, report.Divergence.Err)
	assert.Equal(t, 1, report.Verified)
}

func TestReplayReportsRejectedMove(t *testing.T) {
	m, st := newManager(t)
	sess := playRace(t, m)

	_, err := st.DB().Exec(`UPDATE moves SET move = '{"actionId":"advance","params":{"$steps":9}}' WHERE game_id = ? AND seq = 4`, sess.ID())
	require.NoError(t, err)

	report, err := m.Replay(context.Background(), sess.ID(), nil)
	require.NoError(t, err)
	require.NotNil(t, report.Divergence)
	assert.Equal(t, int64(4), report.Divergence.Seq)
	assert.Contains(t, report.Divergence.Err, "ILLEGAL_MOVE")
	assert.Equal(t, 3, report.Verified)
}

func TestReplayAgainstChangedDefinition(t *testing.T) {
	m, _ := newManager(t)
	sess := playRace(t, m)

	def := testutil.GameDef(t, testutil.GameRace)
	def.PerPlayerVars[0].Init = 1

	report, err := m.Replay(context.Background(), sess.ID(), def)
	require.NoError(t, err)
	assert.True(t, report.DefChanged)
	require.NotNil(t, report.Divergence)
	assert.Equal(t, int64(0), report.Divergence.Seq, "initial state differs")
	assert.Equal(t, 0, report.Verified)
}

func TestReplaySameDefinitionIsUnchanged(t *testing.T) {
	m, _ := newManager(t)
	sess := playRace(t, m)

	report, err := m.Replay(context.Background(), sess.ID(), testutil.GameDef(t, testutil.GameRace))
	require.NoError(t, err)
	assert.False(t, report.DefChanged)
	assert.True(t, report.OK())
}

func TestReplayFinishedGame(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	sess, err := m.Start(ctx, testutil.GameDef(t, testutil.GameRace), 7, 2)
	require.NoError(t, err)

	for sess.State().PerPlayerVars[0]["pos"] < 10 {
		term, err := sess.Terminal()
		require.NoError(t, err)
		require.Nil(t, term)
		_, err = sess.Apply(ctx, advance(3))
		require.NoError(t, err)
	}

	report, err := m.Replay(ctx, sess.ID(), nil)
	require.NoError(t, err)
	require.NotNil(t, report.Terminal)
	assert.Equal(t, ir.ResultWin, report.Terminal.Type)
	require.NotNil(t, report.Terminal.Player)
	assert.Equal(t, 0, *report.Terminal.Player)
}

func TestDivergenceError(t *testing.T) {
	d := &Divergence{Seq: 3, Move: ir.Move{ActionID: "roll"}, Expected: 0x1, Actual: 0x2}
	assert.Contains(t, d.Error(), "seq 3 (roll)")
	assert.ErrorIs(t, d, ErrDivergence)

	d = &Divergence{Seq: 1, Move: ir.Move{ActionID: "roll"}, Err: "ILLEGAL_MOVE: limit"}
	assert.Equal(t, "seq 1 (roll): ILLEGAL_MOVE: limit", d.Error())
}
