package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/tabula/internal/ir"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Game returns a stored game header, or ErrNotFound.
func (s *Store) Game(ctx context.Context, id string) (Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, def_id, def_hash, def_json, seed, player_count, initial_hash, engine_version, created_at
		FROM games
		WHERE id = ?
	`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return g, err
}

// ListGames returns every stored game ordered by id.
//
// Returns an empty slice (not nil) if there are no games.
func (s *Store) ListGames(ctx context.Context) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, def_id, def_hash, def_json, seed, player_count, initial_hash, engine_version, created_at
		FROM games
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

// Moves returns the move log of a game in seq order.
//
// Returns an empty slice (not nil) if no moves were stored.
func (s *Store) Moves(ctx context.Context, gameID string) ([]MoveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, seq, player, move, state_hash, created_at
		FROM moves
		WHERE game_id = ?
		ORDER BY seq ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	moves := []MoveRecord{}
	for rows.Next() {
		var (
			rec                       MoveRecord
			moveJSON, hash, createdAt string
		)
		if err := rows.Scan(&rec.GameID, &rec.Seq, &rec.Player, &moveJSON, &hash, &createdAt); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		if rec.Move, err = unmarshalMove(moveJSON); err != nil {
			return nil, err
		}
		if rec.StateHash, err = ir.ParseHex64(hash); err != nil {
			return nil, fmt.Errorf("move %s#%d: %w", rec.GameID, rec.Seq, err)
		}
		if rec.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		moves = append(moves, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return moves, nil
}

// LatestSnapshot returns the snapshot with the highest seq not above
// maxSeq. A negative maxSeq means no upper bound.
func (s *Store) LatestSnapshot(ctx context.Context, gameID string, maxSeq int64) (Snapshot, error) {
	if maxSeq < 0 {
		maxSeq = 1<<62 - 1
	}
	var (
		snap        Snapshot
		hash, state string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT game_id, seq, state_hash, state
		FROM snapshots
		WHERE game_id = ? AND seq <= ?
		ORDER BY seq DESC
		LIMIT 1
	`, gameID, maxSeq).Scan(&snap.GameID, &snap.Seq, &hash, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot of %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	if snap.StateHash, err = ir.ParseHex64(hash); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s#%d: %w", gameID, snap.Seq, err)
	}
	snap.State = []byte(state)
	return snap, nil
}

// TriggerLog returns the trigger firings of a game in (seq, index) order.
//
// Returns an empty slice (not nil) if nothing fired.
func (s *Store) TriggerLog(ctx context.Context, gameID string) ([]TriggerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, seq, idx, entry
		FROM trigger_log
		WHERE game_id = ?
		ORDER BY seq ASC, idx ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query trigger log: %w", err)
	}
	defer rows.Close()

	out := []TriggerRecord{}
	for rows.Next() {
		var (
			rec   TriggerRecord
			entry string
		)
		if err := rows.Scan(&rec.GameID, &rec.Seq, &rec.Index, &entry); err != nil {
			return nil, fmt.Errorf("scan trigger entry: %w", err)
		}
		if rec.Entry, err = unmarshalLogEntry(entry); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trigger log: %w", err)
	}
	return out, nil
}

// LastSeq returns the seq of the last stored move (0 when there is none),
// or ErrNotFound for an unknown game.
func (s *Store) LastSeq(ctx context.Context, gameID string) (int64, error) {
	return lastSeq(ctx, s.db, gameID)
}

func lastSeq(ctx context.Context, db querier, gameID string) (int64, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE id = ?`, gameID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("query game: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	var seq int64
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM moves WHERE game_id = ?`, gameID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (Game, error) {
	var (
		g                           Game
		def, initialHash, createdAt string
	)
	err := row.Scan(&g.ID, &g.DefID, &g.DefHash, &def, &g.Seed, &g.PlayerCount, &initialHash, &g.EngineVersion, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Game{}, err
		}
		return Game{}, fmt.Errorf("scan game: %w", err)
	}
	g.Def = []byte(def)
	if g.InitialHash, err = ir.ParseHex64(initialHash); err != nil {
		return Game{}, fmt.Errorf("game %s: %w", g.ID, err)
	}
	if g.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Game{}, err
	}
	return g, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
