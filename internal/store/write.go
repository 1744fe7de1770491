package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tabula/internal/triggers"
)

// CreateGame inserts a game header together with its initial snapshot.
// A duplicate id is an error: game ids are never reused.
func (s *Store) CreateGame(ctx context.Context, g Game, initial Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create game: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games
		(id, def_id, def_hash, def_json, seed, player_count, initial_hash, engine_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.ID,
		g.DefID,
		g.DefHash,
		string(g.Def),
		g.Seed,
		g.PlayerCount,
		g.InitialHash.String(),
		g.EngineVersion,
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("create game %s: %w", g.ID, err)
	}

	initial.GameID = g.ID
	initial.Seq = 0
	if err := writeSnapshot(ctx, tx, initial); err != nil {
		return fmt.Errorf("create game %s: %w", g.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create game: commit: %w", err)
	}
	return nil
}

// AppendMove appends one move to a game's log, with the trigger entries it
// caused and, optionally, a snapshot of the state after it.
//
// The move's Seq must be exactly one past the last stored move; anything
// else fails with ErrSeqConflict and writes nothing.
func (s *Store) AppendMove(ctx context.Context, rec MoveRecord, log []triggers.LogEntry, snap *Snapshot) error {
	moveJSON, err := marshalMove(rec.Move)
	if err != nil {
		return fmt.Errorf("append move: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append move: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	last, err := lastSeq(ctx, tx, rec.GameID)
	if err != nil {
		return fmt.Errorf("append move: %w", err)
	}
	if rec.Seq != last+1 {
		return fmt.Errorf("append move %s#%d: last stored seq is %d: %w", rec.GameID, rec.Seq, last, ErrSeqConflict)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO moves (game_id, seq, player, move, state_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.GameID,
		rec.Seq,
		rec.Player,
		moveJSON,
		rec.StateHash.String(),
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append move %s#%d: %w", rec.GameID, rec.Seq, err)
	}

	for i, e := range log {
		entryJSON, err := marshalLogEntry(e)
		if err != nil {
			return fmt.Errorf("append move: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trigger_log (game_id, seq, idx, trigger_id, entry)
			VALUES (?, ?, ?, ?, ?)
		`, rec.GameID, rec.Seq, i, e.TriggerID, entryJSON)
		if err != nil {
			return fmt.Errorf("append move: trigger entry %d: %w", i, err)
		}
	}

	if snap != nil {
		snap.GameID = rec.GameID
		snap.Seq = rec.Seq
		if err := writeSnapshot(ctx, tx, *snap); err != nil {
			return fmt.Errorf("append move: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append move: commit: %w", err)
	}
	return nil
}

// WriteSnapshot stores a snapshot. Rewriting the same (game, seq) replaces
// it, which only happens when a snapshot is re-taken after a replay.
func (s *Store) WriteSnapshot(ctx context.Context, snap Snapshot) error {
	return writeSnapshot(ctx, s.db, snap)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeSnapshot(ctx context.Context, db execer, snap Snapshot) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO snapshots (game_id, seq, state_hash, state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id, seq) DO UPDATE SET state_hash = excluded.state_hash, state = excluded.state
	`, snap.GameID, snap.Seq, snap.StateHash.String(), string(snap.State))
	if err != nil {
		return fmt.Errorf("write snapshot %s#%d: %w", snap.GameID, snap.Seq, err)
	}
	return nil
}
