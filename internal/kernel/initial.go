package kernel

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/rng"
	"github.com/roach88/tabula/internal/triggers"
	"github.com/roach88/tabula/internal/turnflow"
)

// ErrPlayerCount is returned when a game is started with a player count the
// definition does not support.
var ErrPlayerCount = errors.New("player count outside the supported range")

// InitialState builds the first decision point of a game. The result
// depends only on def, seed and playerCount.
func InitialState(def *ir.GameDef, seed int64, playerCount int, opts ...Option) (*ir.GameState, error) {
	if def == nil {
		return nil, fault.Internal("nil game definition")
	}
	if playerCount < def.Players.Min || playerCount > def.Players.Max || playerCount < 1 {
		return nil, fmt.Errorf("%w: %d not in %d..%d", ErrPlayerCount, playerCount, def.Players.Min, def.Players.Max)
	}
	m, err := newMachine(def, playerCount, opts)
	if err != nil {
		return nil, err
	}

	s := blankState(def, playerCount)
	s.RNG = rng.Create(seed)
	if err := turnflow.Init(def, s); err != nil {
		return nil, fault.StateInvalid(err)
	}

	ctx, err := effects.NewContext(effects.Config{
		Def:             def,
		Adjacency:       m.adj,
		ActorPlayer:     s.ActivePlayer,
		ExecutorPlayer:  s.ActivePlayer,
		Mode:            eval.ModeExecution,
		MaxQueryResults: m.opts.MaxQueryResults,
		Budget:          effects.NewOpBudget(m.opts.MaxEffectOps),
		EventContext:    "setup",
	})
	if err != nil {
		return nil, err
	}
	x, err := effects.NewExecution(ctx, s)
	if err != nil {
		return nil, err
	}
	disp := triggers.New(def, triggers.WithMaxDepth(m.opts.MaxTriggerDepth))

	_, pending, err := x.Run(def.Setup, nil, "setup")
	if err == nil && pending == nil {
		pending, err = disp.Dispatch(x, append(x.DrainEvents(), turnflow.StartEvents(s)...))
	}
	if err == nil && pending == nil {
		pending, err = m.release(x, disp)
	}
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fault.EffectRuntime("", pending.EffectPath, fmt.Errorf("setup cannot ask for decision %s", pending.DecisionID))
	}
	if err := m.settle(x, disp); err != nil {
		return nil, err
	}

	if s.StateHash, err = ir.StateHash(s); err != nil {
		return nil, fault.Internal("state hash: %v", err)
	}
	slog.Debug("initial state", "game", def.ID, "seed", seed, "players", playerCount, "hash", s.StateHash.String())
	return s, nil
}

// blankState allocates every collection so that a fresh state serializes
// exactly like its decoded copy.
func blankState(def *ir.GameDef, playerCount int) *ir.GameState {
	s := &ir.GameState{
		GlobalVars:    map[string]int64{},
		PerPlayerVars: make([]map[string]int64, playerCount),
		ZoneVars:      map[string]map[string]int64{},
		Zones:         map[string][]string{},
		Tokens:        map[string]ir.Token{},
		PlayerCount:   playerCount,
		ActionUsage:   map[string]ir.ActionUsage{},
		Revealed:      map[string][]int{},
	}
	for _, v := range def.GlobalVars {
		s.GlobalVars[v.Name] = v.Clamp(v.Init)
	}
	for p := range s.PerPlayerVars {
		s.PerPlayerVars[p] = map[string]int64{}
		for _, v := range def.PerPlayerVars {
			s.PerPlayerVars[p][v.Name] = v.Clamp(v.Init)
		}
	}
	for _, z := range def.ZoneIDs(playerCount) {
		s.Zones[z] = []string{}
		if len(def.ZoneVars) == 0 {
			continue
		}
		vars := make(map[string]int64, len(def.ZoneVars))
		for _, v := range def.ZoneVars {
			vars[v.Name] = v.Clamp(v.Init)
		}
		s.ZoneVars[z] = vars
	}
	return s
}
