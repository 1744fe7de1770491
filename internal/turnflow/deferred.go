package turnflow

import (
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/ir"
)

// Defer queues event effects until every required batch has no pending
// grants.
func Defer(s *ir.GameState, d ir.DeferredEventEffect) (ir.DeferredEventEffect, error) {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return d, ErrNotCardDriven
	}
	if d.ActorPlayer < 0 || d.ActorPlayer >= s.PlayerCount {
		return d, fmt.Errorf("deferred actor %d outside player count %d", d.ActorPlayer, s.PlayerCount)
	}
	cd.NextGrantOrdinal++
	d.DeferredID = fmt.Sprintf("deferred-%d", cd.NextGrantOrdinal)
	cd.PendingDeferredEventEffects = append(cd.PendingDeferredEventEffects, d)
	return d, nil
}

// Ready reports whether every batch a deferred entry waits on is complete.
func Ready(s *ir.GameState, d ir.DeferredEventEffect) bool {
	for _, b := range d.RequiredBatchIDs {
		if BatchPending(s, b) {
			return false
		}
	}
	return true
}

// ReleasableDeferred removes and returns the deferred entries whose batches
// have completed, in queue order.
func ReleasableDeferred(s *ir.GameState) []ir.DeferredEventEffect {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return nil
	}
	var ready []ir.DeferredEventEffect
	cd.PendingDeferredEventEffects = slices.DeleteFunc(cd.PendingDeferredEventEffects, func(d ir.DeferredEventEffect) bool {
		if Ready(s, d) {
			ready = append(ready, d)
			return true
		}
		return false
	})
	return ready
}
