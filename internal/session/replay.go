package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/store"
)

// Divergence is the first point where re-applying a log disagrees with it.
// Seq 0 means the initial state. Err is set when the move was rejected
// rather than producing a different hash.
type Divergence struct {
	Seq      int64    `json:"seq"`
	Move     ir.Move  `json:"move"`
	Expected ir.Hex64 `json:"expected"`
	Actual   ir.Hex64 `json:"actual,omitempty"`
	Err      string   `json:"error,omitempty"`
}

// Error implements the error interface.
func (d *Divergence) Error() string {
	if d.Err != "" {
		return fmt.Sprintf("seq %d (%s): %s", d.Seq, d.Move.ActionID, d.Err)
	}
	return fmt.Sprintf("seq %d (%s): state hash %s, stored %s", d.Seq, d.Move.ActionID, d.Actual, d.Expected)
}

// Unwrap returns ErrDivergence.
func (d *Divergence) Unwrap() error { return ErrDivergence }

// ReplayReport is the result of a full replay.
type ReplayReport struct {
	GameID string `json:"gameId"`

	// Verified counts the moves whose state hash matched.
	Verified int `json:"verified"`

	// FinalHash is the state hash after the last verified move.
	FinalHash ir.Hex64 `json:"finalHash"`

	// LogHash fingerprints the stored move sequence.
	LogHash string `json:"logHash"`

	// DefChanged is set when the replay ran against a definition other
	// than the stored one.
	DefChanged bool `json:"defChanged,omitempty"`

	Divergence *Divergence     `json:"divergence,omitempty"`
	Terminal   *kernel.Terminal `json:"terminal,omitempty"`
}

// OK reports whether every stored move replayed to its stored hash.
func (r *ReplayReport) OK() bool { return r.Divergence == nil }

// Replay re-applies a stored game from its seed. With a nil def the stored
// definition is used; otherwise def replaces it, which is how a changed
// rulebook is checked against recorded games.
//
// A divergence is reported in the result, not as an error. Errors are
// reserved for logs that cannot be read.
func (m *Manager) Replay(ctx context.Context, gameID string, def *ir.GameDef) (*ReplayReport, error) {
	log, err := m.store.ReadLog(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", gameID, err)
	}
	if len(log.Gaps) > 0 {
		return nil, fmt.Errorf("replay %s: %w: missing %v", gameID, ErrCorruptLog, log.Gaps)
	}

	report := &ReplayReport{GameID: gameID}
	if report.LogHash, err = moveLogHash(log.Moves); err != nil {
		return nil, fmt.Errorf("replay %s: %w", gameID, err)
	}
	if def == nil {
		if def, err = storedDef(log.Game); err != nil {
			return nil, fmt.Errorf("replay %s: %w", gameID, err)
		}
	} else {
		hash, err := ir.GameDefHash(def)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", gameID, err)
		}
		report.DefChanged = hash != log.Game.DefHash
	}

	state, err := kernel.InitialState(def, log.Game.Seed, log.Game.PlayerCount, m.kernelOpts...)
	if err != nil {
		report.Divergence = &Divergence{Expected: log.Game.InitialHash, Err: err.Error()}
		return report, nil
	}
	report.FinalHash = state.StateHash
	if state.StateHash != log.Game.InitialHash {
		report.Divergence = &Divergence{Expected: log.Game.InitialHash, Actual: state.StateHash}
		return report, nil
	}

	for _, rec := range log.Moves {
		next, div := m.reapply(def, state, rec)
		if div != nil {
			report.Divergence = div
			slog.Warn("replay diverged", "game", gameID, "seq", div.Seq, "action", div.Move.ActionID)
			return report, nil
		}
		state = next
		report.Verified++
		report.FinalHash = state.StateHash
	}

	if report.Terminal, err = kernel.TerminalResult(def, state); err != nil {
		return nil, fmt.Errorf("replay %s: %w", gameID, err)
	}
	slog.Info("game replayed", "game", gameID, "moves", report.Verified, "hash", report.FinalHash.String())
	return report, nil
}

// moveLogHash hashes the canonical move sequence.
func moveLogHash(moves []store.MoveRecord) (string, error) {
	arr := make(ir.Array, len(moves))
	for i, rec := range moves {
		arr[i] = rec.Move.Object()
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("move log hash: %w", err)
	}
	return ir.HashHex(ir.DomainMoveLog, data), nil
}
