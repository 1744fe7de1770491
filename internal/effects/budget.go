package effects

import (
	"github.com/roach88/tabula/internal/fault"
)

// DefaultMaxEffectOps bounds primitive effect operations per move.
const DefaultMaxEffectOps = 10000

// OpBudget counts primitive effect operations for one move, including every
// trigger and deferred effect the move sets off.
//
// Exceeding the budget is a hard, non-recoverable error: it is how
// termination is guaranteed for looping or adversarial definitions.
type OpBudget struct {
	max     int
	current int
}

// NewOpBudget creates a budget with the given limit.
func NewOpBudget(max int) *OpBudget {
	if max <= 0 {
		max = DefaultMaxEffectOps
	}
	return &OpBudget{max: max}
}

// Check counts one operation and validates against the limit.
func (b *OpBudget) Check(path string) error {
	b.current++
	if b.current > b.max {
		return fault.BudgetExceeded(b.current, b.max, path)
	}
	return nil
}

// Current returns the operations counted so far.
func (b *OpBudget) Current() int { return b.current }

// Max returns the limit.
func (b *OpBudget) Max() int { return b.max }
