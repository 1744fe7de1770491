package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/store"
)

// DefaultSnapshotEvery is the number of moves between stored snapshots.
const DefaultSnapshotEvery = 16

var (
	// ErrDivergence is wrapped by every *Divergence.
	ErrDivergence = errors.New("replay diverged from the stored log")

	// ErrDefChanged is returned when a stored definition no longer matches
	// its recorded hash.
	ErrDefChanged = errors.New("stored game definition does not match its hash")

	// ErrCorruptLog is returned for a move log with missing seqs.
	ErrCorruptLog = errors.New("move log has gaps")
)

// Manager creates and reopens persisted games.
type Manager struct {
	store         *store.Store
	ids           IDGenerator
	kernelOpts    []kernel.Option
	snapshotEvery int
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the UUIDv7 game id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithKernelOptions sets the budgets used for every kernel call.
func WithKernelOptions(opts ...kernel.Option) Option {
	return func(m *Manager) { m.kernelOpts = append(m.kernelOpts, opts...) }
}

// WithSnapshotEvery stores a snapshot after every n-th move. Zero disables
// snapshots beyond the initial one.
//
// Default: 16 (DefaultSnapshotEvery)
func WithSnapshotEvery(n int) Option {
	return func(m *Manager) { m.snapshotEvery = n }
}

// NewManager creates a manager over an open store.
func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:         st,
		ids:           UUIDv7Generator{},
		snapshotEvery: DefaultSnapshotEvery,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session is one running game. It is not safe for concurrent use.
type Session struct {
	m     *Manager
	game  store.Game
	def   *ir.GameDef
	state *ir.GameState
	seq   int64
}

// Start creates a game: it builds the initial state, stores the definition
// with its hash and the seq 0 snapshot.
func (m *Manager) Start(ctx context.Context, def *ir.GameDef, seed int64, players int) (*Session, error) {
	s0, err := kernel.InitialState(def, seed, players, m.kernelOpts...)
	if err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	id, err := m.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	defJSON, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("start game: encode definition: %w", err)
	}
	state, err := kernel.SerializeState(s0)
	if err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}

	g := store.Game{
		ID:            id,
		DefID:         def.ID,
		DefHash:       ir.HashHex(ir.DomainGameDef, defJSON),
		Def:           defJSON,
		Seed:          seed,
		PlayerCount:   players,
		InitialHash:   s0.StateHash,
		EngineVersion: ir.EngineVersion,
	}
	if err := m.store.CreateGame(ctx, g, store.Snapshot{StateHash: s0.StateHash, State: state}); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	if g, err = m.store.Game(ctx, id); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}

	slog.Info("game started", "game", id, "def", def.ID, "seed", seed, "players", players, "hash", s0.StateHash.String())
	return &Session{m: m, game: g, def: def, state: s0}, nil
}

// Resume reopens a stored game at its last move. It starts from the latest
// snapshot and re-applies the moves after it, verifying every state hash.
func (m *Manager) Resume(ctx context.Context, gameID string) (*Session, error) {
	log, err := m.store.ReadLog(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", gameID, err)
	}
	if len(log.Gaps) > 0 {
		return nil, fmt.Errorf("resume %s: %w: missing %v", gameID, ErrCorruptLog, log.Gaps)
	}
	def, err := storedDef(log.Game)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", gameID, err)
	}

	state, err := kernel.DeserializeState(log.Snapshot.State)
	if err != nil {
		return nil, fmt.Errorf("resume %s: snapshot %d: %w", gameID, log.Snapshot.Seq, err)
	}
	if state.StateHash != log.Snapshot.StateHash {
		return nil, fmt.Errorf("resume %s: %w", gameID, &Divergence{
			Seq:      log.Snapshot.Seq,
			Expected: log.Snapshot.StateHash,
			Actual:   state.StateHash,
			Err:      "snapshot hash mismatch",
		})
	}

	for _, rec := range log.Moves {
		if rec.Seq <= log.Snapshot.Seq {
			continue
		}
		next, div := m.reapply(def, state, rec)
		if div != nil {
			return nil, fmt.Errorf("resume %s: %w", gameID, div)
		}
		state = next
	}

	slog.Info("game resumed", "game", gameID, "seq", log.LastSeq, "fromSnapshot", log.Snapshot.Seq)
	return &Session{m: m, game: log.Game, def: def, state: state, seq: log.LastSeq}, nil
}

// ID returns the game id.
func (s *Session) ID() string { return s.game.ID }

// Game returns the stored game header.
func (s *Session) Game() store.Game { return s.game }

// Def returns the game definition.
func (s *Session) Def() *ir.GameDef { return s.def }

// State returns the current state. Callers must not modify it.
func (s *Session) State() *ir.GameState { return s.state }

// Seq returns the seq of the last applied move; 0 before the first move.
func (s *Session) Seq() int64 { return s.seq }

// LegalMoves lists the legal moves at the current state.
func (s *Session) LegalMoves() ([]ir.Move, error) {
	return kernel.LegalMoves(s.def, s.state, s.m.kernelOpts...)
}

// LegalChoices reports the next decision of a partial move.
func (s *Session) LegalChoices(partial ir.Move) (kernel.Choice, error) {
	return kernel.LegalChoices(s.def, s.state, partial, s.m.kernelOpts...)
}

// Terminal reports the game result, nil while the game is running.
func (s *Session) Terminal() (*kernel.Terminal, error) {
	return kernel.TerminalResult(s.def, s.state)
}

// Apply applies a move and appends it to the log. A rejected move leaves
// both the session and the store untouched.
func (s *Session) Apply(ctx context.Context, move ir.Move) (*kernel.Result, error) {
	res, err := kernel.ApplyMove(s.def, s.state, move, s.m.kernelOpts...)
	if err != nil {
		return nil, err
	}

	seq := s.seq + 1
	rec := store.MoveRecord{
		GameID:    s.game.ID,
		Seq:       seq,
		Player:    s.state.ActivePlayer,
		Move:      move,
		StateHash: res.State.StateHash,
	}
	var snap *store.Snapshot
	if every := s.m.snapshotEvery; every > 0 && seq%int64(every) == 0 {
		data, err := kernel.SerializeState(res.State)
		if err != nil {
			return nil, err
		}
		snap = &store.Snapshot{StateHash: res.State.StateHash, State: data}
	}
	if err := s.m.store.AppendMove(ctx, rec, res.TriggerLog, snap); err != nil {
		return nil, fmt.Errorf("apply %s: %w", move.ActionID, err)
	}

	s.state = res.State
	s.seq = seq
	slog.Info("move stored", "game", s.game.ID, "seq", seq, "action", move.ActionID, "hash", res.State.StateHash.String(), "snapshot", snap != nil)
	return res, nil
}

// storedDef decodes a stored definition after checking it against its
// recorded hash.
func storedDef(g store.Game) (*ir.GameDef, error) {
	if got := ir.HashHex(ir.DomainGameDef, g.Def); got != g.DefHash {
		return nil, fmt.Errorf("%w: recorded %s, computed %s", ErrDefChanged, g.DefHash, got)
	}
	var def ir.GameDef
	if err := json.Unmarshal(g.Def, &def); err != nil {
		return nil, fmt.Errorf("decode stored definition: %w", err)
	}
	return &def, nil
}

// reapply applies one stored move and checks the resulting hash.
func (m *Manager) reapply(def *ir.GameDef, s *ir.GameState, rec store.MoveRecord) (*ir.GameState, *Divergence) {
	res, err := kernel.ApplyMove(def, s, rec.Move, m.kernelOpts...)
	if err != nil {
		return nil, &Divergence{Seq: rec.Seq, Move: rec.Move, Expected: rec.StateHash, Err: err.Error()}
	}
	if res.State.StateHash != rec.StateHash {
		return nil, &Divergence{Seq: rec.Seq, Move: rec.Move, Expected: rec.StateHash, Actual: res.State.StateHash}
	}
	return res.State, nil
}
