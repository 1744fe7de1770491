// Package effects is the effect interpreter.
//
// An Execution runs effect lists against an owned working copy of the game
// state, threading the RNG through the state, collecting trigger events and
// trace entries, and pausing at player decisions by returning a
// ChoicePending value instead of blocking. Callers resume by re-running the
// same effects with the decision supplied in Context.Decisions.
package effects

import (
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
)

// DefaultMaxIterations caps forEach/reduce when no explicit limit is given.
const DefaultMaxIterations = 1000

// Context is the per-call configuration of the interpreter.
type Context struct {
	Def       *ir.GameDef
	Adjacency *eval.Adjacency

	// ActorPlayer is the decision player; ExecutorPlayer is the player
	// effects act for ("actor" selectors resolve to it).
	ActorPlayer    int
	ExecutorPlayer int

	Mode             eval.Mode
	EnforceOwnership bool

	MaxQueryResults int
	MaxIterations   int
	Budget          *OpBudget

	// Decisions are the move parameters answering choice effects, keyed
	// by decision id.
	Decisions ir.Object

	ActionID     string
	EventContext string
}

// Config collects the inputs of NewContext.
type Config struct {
	Def             *ir.GameDef
	Adjacency       *eval.Adjacency
	ActorPlayer     int
	ExecutorPlayer  int
	Mode            eval.Mode
	MaxQueryResults int
	MaxIterations   int
	Budget          *OpBudget
	Decisions       ir.Object
	ActionID        string
	EventContext    string
}

// NewContext builds a context. Execution mode always enforces ownership;
// discovery mode never does.
func NewContext(cfg Config) (*Context, error) {
	ctx := &Context{
		Def:              cfg.Def,
		Adjacency:        cfg.Adjacency,
		ActorPlayer:      cfg.ActorPlayer,
		ExecutorPlayer:   cfg.ExecutorPlayer,
		Mode:             cfg.Mode,
		EnforceOwnership: cfg.Mode == eval.ModeExecution,
		MaxQueryResults:  cfg.MaxQueryResults,
		MaxIterations:    cfg.MaxIterations,
		Budget:           cfg.Budget,
		Decisions:        cfg.Decisions,
		ActionID:         cfg.ActionID,
		EventContext:     cfg.EventContext,
	}
	if ctx.MaxIterations <= 0 {
		ctx.MaxIterations = DefaultMaxIterations
	}
	if ctx.Budget == nil {
		ctx.Budget = NewOpBudget(DefaultMaxEffectOps)
	}
	if ctx.Decisions == nil {
		ctx.Decisions = ir.Object{}
	}
	if err := ctx.validate(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// validate checks the mode/ownership invariant. A violation is a kernel
// bug, never a game-definition error.
func (c *Context) validate() error {
	switch c.Mode {
	case eval.ModeExecution:
		if !c.EnforceOwnership {
			return fault.Internal("effect context in execution mode without ownership enforcement")
		}
	case eval.ModeDiscovery:
	default:
		return fault.Internal("effect context has unknown mode %q", c.Mode)
	}
	if c.Def == nil {
		return fault.Internal("effect context without game definition")
	}
	return nil
}

// WithEvent returns a copy for trigger or deferred execution.
func (c *Context) WithEvent(eventContext string, actor int) *Context {
	out := *c
	out.EventContext = eventContext
	out.ActorPlayer = actor
	out.ExecutorPlayer = actor
	return &out
}

// evalContext builds the read-only evaluation context for the current
// working state.
func (c *Context) evalContext(s *ir.GameState, bindings ir.Object) *eval.Context {
	return &eval.Context{
		Def:             c.Def,
		State:           s,
		Bindings:        bindings,
		Adjacency:       c.Adjacency,
		ActivePlayer:    s.ActivePlayer,
		ActorPlayer:     c.ExecutorPlayer,
		Mode:            c.Mode,
		MaxQueryResults: c.MaxQueryResults,
	}
}
