package eval

import (
	"github.com/roach88/tabula/internal/ir"
)

// Mode distinguishes speculative evaluation from a real move application.
type Mode string

const (
	// ModeExecution is used while applying a move.
	ModeExecution Mode = "execution"

	// ModeDiscovery is used while enumerating legal moves and choices.
	ModeDiscovery Mode = "discovery"
)

// DefaultMaxQueryResults bounds any single query result set.
const DefaultMaxQueryResults = 10000

// Well-known bindings set by the kernel.
const (
	BindToken  = "$token"
	BindPlayer = "$player"
	BindZone   = "$zone"
	BindRow    = "$row"
	BindItem   = "$item"
	BindEvent  = "$event"
)

// Context is the read-only environment of one evaluation.
//
// State is an ir.StateView, which exposes getters only: nothing reachable
// from a Context can mutate game state. Bindings are never modified in
// place; With returns an extended copy.
type Context struct {
	Def             *ir.GameDef
	State           ir.StateView
	Bindings        ir.Object
	Adjacency       *Adjacency
	ActivePlayer    int
	ActorPlayer     int
	Mode            Mode
	MaxQueryResults int
}

// NewContext builds a context for the state's active player acting as the
// actor.
func NewContext(def *ir.GameDef, state ir.StateView, adj *Adjacency, mode Mode) *Context {
	return &Context{
		Def:             def,
		State:           state,
		Bindings:        ir.Object{},
		Adjacency:       adj,
		ActivePlayer:    state.Active(),
		ActorPlayer:     state.Active(),
		Mode:            mode,
		MaxQueryResults: DefaultMaxQueryResults,
	}
}

// With returns a copy of ctx with one more binding.
func (ctx *Context) With(name string, v ir.Value) *Context {
	out := *ctx
	out.Bindings = make(ir.Object, len(ctx.Bindings)+1)
	for k, val := range ctx.Bindings {
		out.Bindings[k] = val
	}
	out.Bindings[name] = v
	return &out
}

// WithBindings returns a copy of ctx whose bindings are replaced.
func (ctx *Context) WithBindings(b ir.Object) *Context {
	out := *ctx
	out.Bindings = b
	return &out
}

// WithActor returns a copy of ctx evaluating on behalf of another player.
func (ctx *Context) WithActor(player int) *Context {
	out := *ctx
	out.ActorPlayer = player
	return &out
}

// Lookup returns a binding.
func (ctx *Context) Lookup(name string) (ir.Value, error) {
	v, ok := ctx.Bindings[name]
	if !ok {
		return nil, newError(CodeMissingBinding, map[string]any{"binding": name}, "binding %s is not in scope", name)
	}
	return v, nil
}

func (ctx *Context) maxResults() int {
	if ctx.MaxQueryResults <= 0 {
		return DefaultMaxQueryResults
	}
	return ctx.MaxQueryResults
}
