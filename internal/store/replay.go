package store

import (
	"context"
	"errors"
	"fmt"
)

// GameLog is everything stored for one game, as needed to resume or replay
// it.
type GameLog struct {
	Game  Game
	Moves []MoveRecord

	// Snapshot is the latest stored snapshot; Seq 0 is the initial state.
	Snapshot Snapshot

	// LastSeq is the seq of the last move, 0 for a game without moves.
	LastSeq int64

	// Gaps lists seqs missing from the move log. A healthy log has none.
	Gaps []int64
}

// ReadLog loads a game's header, move log and latest snapshot.
func (s *Store) ReadLog(ctx context.Context, gameID string) (GameLog, error) {
	g, err := s.Game(ctx, gameID)
	if err != nil {
		return GameLog{}, fmt.Errorf("read log: %w", err)
	}
	moves, err := s.Moves(ctx, gameID)
	if err != nil {
		return GameLog{}, fmt.Errorf("read log: %w", err)
	}
	snap, err := s.LatestSnapshot(ctx, gameID, -1)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return GameLog{}, fmt.Errorf("read log: %w", err)
	}

	log := GameLog{Game: g, Moves: moves, Snapshot: snap}
	expected := int64(1)
	for _, m := range moves {
		for ; expected < m.Seq; expected++ {
			log.Gaps = append(log.Gaps, expected)
		}
		expected = m.Seq + 1
		log.LastSeq = m.Seq
	}
	return log, nil
}
