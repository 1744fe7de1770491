package triggers

import (
	"github.com/roach88/tabula/internal/ir"
)

// matchEvent checks if an event matches a trigger's event clause.
//
// The match is determined by:
//  1. Event type: must be equal
//  2. Phase, action, zone, var and name: match if empty (any) or exact
//
// Returns true only if ALL conditions are satisfied.
func matchEvent(m ir.EventMatch, ev ir.TriggerEvent) bool {
	if m.Type != ev.Type {
		return false
	}
	for _, f := range [][2]string{
		{m.Phase, ev.Phase},
		{m.Action, ev.Action},
		{m.Zone, ev.Zone},
		{m.Var, ev.Var},
		{m.Name, ev.Name},
	} {
		if f[0] != "" && f[0] != f[1] {
			return false
		}
	}
	return true
}
