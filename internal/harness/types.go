package harness

import (
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
)

// Move outcomes recorded in the trace.
const (
	OutcomeApplied = "applied"
)

// TraceEvent is one attempted move. Seq is set for applied moves only.
type TraceEvent struct {
	Step     int       `json:"step"`
	Seq      int64     `json:"seq,omitempty"`
	Player   int       `json:"player"`
	Action   string    `json:"action"`
	Params   ir.Object `json:"params"`
	Outcome  string    `json:"outcome"` // "applied", "illegal:<reason>" or "error:<code>"
	Triggers []string  `json:"triggers,omitempty"`
	Hash     ir.Hex64  `json:"hash,omitempty"`

	// Auto marks moves picked by autoplay agents.
	Auto bool `json:"auto,omitempty"`
}

// Applied reports whether the move changed the state.
func (e TraceEvent) Applied() bool { return e.Outcome == OutcomeApplied }

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success: every move outcome and every
	// assertion matched, and the replay reproduced the final state.
	Pass bool `json:"pass"`

	// Trace contains every attempted move in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	GameID   string           `json:"gameId"`
	Final    *ir.GameState    `json:"-"`
	Terminal *kernel.Terminal `json:"terminal,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Applied returns the applied moves of the trace.
func (r *Result) Applied() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Applied() {
			out = append(out, e)
		}
	}
	return out
}
