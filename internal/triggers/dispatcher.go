// Package triggers dispatches trigger events to reactive rules.
//
// Dispatch is depth-first: the events a trigger emits are dispatched before
// the next trigger of the same event runs. Depth is bounded by
// MaxTriggerDepth; events beyond it are dropped and the dispatcher is
// flagged degenerate instead of looping forever.
package triggers

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tabula/internal/effects"
	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/ir"
)

// DefaultMaxTriggerDepth bounds trigger cascades.
const DefaultMaxTriggerDepth = 8

// PhaseHookID names the pseudo-trigger that runs a phase's onEnter effects.
func PhaseHookID(phase string) string {
	return "phase:" + phase + ":onEnter"
}

// LogEntry records one trigger execution.
type LogEntry struct {
	TriggerID string          `json:"triggerId"`
	Event     ir.TriggerEvent `json:"event"`
	Depth     int             `json:"depth"`
	Player    int             `json:"player"`
}

// Dispatcher runs triggers for the events of one move.
//
// INVARIANTS:
//   - triggers fire in declaration order for each event
//   - the log is append-only, in firing order
type Dispatcher struct {
	def      *ir.GameDef
	maxDepth int
	log      []LogEntry

	// Degenerate is set once a cascade hit the depth bound.
	Degenerate bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxDepth sets the maximum cascade depth.
//
// Default: 8 (DefaultMaxTriggerDepth)
func WithMaxDepth(depth int) Option {
	return func(d *Dispatcher) {
		if depth > 0 {
			d.maxDepth = depth
		}
	}
}

// New creates a dispatcher for a game definition.
func New(def *ir.GameDef, opts ...Option) *Dispatcher {
	d := &Dispatcher{def: def, maxDepth: DefaultMaxTriggerDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Log returns a copy of the trigger log.
func (d *Dispatcher) Log() []LogEntry {
	return slices.Clone(d.log)
}

// Dispatch runs every trigger matching events, including cascades. A
// pending choice inside a trigger stops dispatch and is returned.
func (d *Dispatcher) Dispatch(x *effects.Execution, events []ir.TriggerEvent) (*effects.ChoicePending, error) {
	for _, ev := range events {
		pending, err := d.dispatch(x, ev, 0)
		if err != nil || pending != nil {
			return pending, err
		}
	}
	return nil, nil
}

func (d *Dispatcher) dispatch(x *effects.Execution, ev ir.TriggerEvent, depth int) (*effects.ChoicePending, error) {
	if depth >= d.maxDepth {
		if !d.Degenerate {
			slog.Debug("trigger depth exceeded", "event", ev.Type, "name", ev.Name, "max_depth", d.maxDepth)
		}
		d.Degenerate = true
		x.Warnings = append(x.Warnings, fmt.Sprintf("trigger depth %d exceeded at event %s", d.maxDepth, ev.Type))
		return nil, nil
	}

	if ev.Type == ir.EventPhaseEnter {
		if phase, _, ok := d.def.Phase(ev.Phase); ok && len(phase.OnEnter) > 0 {
			pending, err := d.fire(x, PhaseHookID(phase.ID), phase.OnEnter, nil, ev, depth)
			if err != nil || pending != nil {
				return pending, err
			}
		}
	}

	for i := range d.def.Triggers {
		trig := &d.def.Triggers[i]
		if !matchEvent(trig.Event, ev) {
			continue
		}
		pending, err := d.fire(x, trig.ID, trig.Effects, trig.When, ev, depth)
		if err != nil || pending != nil {
			return pending, err
		}
	}
	return nil, nil
}

// fire runs one trigger body for ev and then dispatches what it emitted one
// level deeper.
func (d *Dispatcher) fire(x *effects.Execution, id string, body []ir.Effect, when *ir.Cond, ev ir.TriggerEvent, depth int) (*effects.ChoicePending, error) {
	actor := x.State.ActivePlayer
	if ev.Player != nil {
		actor = *ev.Player
	}
	ctx := x.Ctx.WithEvent("trigger:"+id, actor)
	bindings := ir.Object{eval.BindEvent: ev.Object()}

	if when != nil {
		ec := &eval.Context{
			Def:             ctx.Def,
			State:           x.State,
			Bindings:        bindings,
			Adjacency:       ctx.Adjacency,
			ActivePlayer:    x.State.ActivePlayer,
			ActorPlayer:     actor,
			Mode:            ctx.Mode,
			MaxQueryResults: ctx.MaxQueryResults,
		}
		ok, err := eval.Condition(ec, *when)
		if err != nil {
			return nil, fmt.Errorf("trigger %s condition: %w", id, err)
		}
		if !ok {
			return nil, nil
		}
	}

	d.log = append(d.log, LogEntry{TriggerID: id, Event: ev, Depth: depth, Player: actor})
	_, pending, err := x.RunWith(ctx, body, bindings, "triggers."+id+".effects")
	if err != nil || pending != nil {
		return pending, err
	}

	for _, next := range x.DrainEvents() {
		pending, err := d.dispatch(x, next, depth+1)
		if err != nil || pending != nil {
			return pending, err
		}
	}
	return nil, nil
}
