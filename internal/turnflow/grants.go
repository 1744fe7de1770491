package turnflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/eval"
	"github.com/roach88/tabula/internal/ir"
)

// ErrNotCardDriven is returned by card-driven operations on a round-robin
// game.
var ErrNotCardDriven = errors.New("turn order is not card-driven")

// Denial is the closed set of free-operation verdicts. The same values
// filter legalMoves and explain rejected moves.
type Denial string

const (
	NoActiveSeatGrant   Denial = "noActiveSeatGrant"
	SequenceLocked      Denial = "sequenceLocked"
	ActionClassMismatch Denial = "actionClassMismatch"
	ActionIDMismatch    Denial = "actionIdMismatch"
	ZoneFilterMismatch  Denial = "zoneFilterMismatch"
	Granted             Denial = "granted"
)

// stage orders denials by how far a grant got through the checks; the
// furthest failure is the one reported.
var stage = map[Denial]int{
	NoActiveSeatGrant:   0,
	ActionClassMismatch: 1,
	ActionIDMismatch:    2,
	SequenceLocked:      3,
	ZoneFilterMismatch:  4,
	Granted:             5,
}

// AddGrant appends a grant and assigns its id.
func AddGrant(s *ir.GameState, g ir.FreeOperationGrant) (ir.FreeOperationGrant, error) {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return g, ErrNotCardDriven
	}
	if g.Seat < 0 || g.Seat >= s.PlayerCount {
		return g, fmt.Errorf("grant seat %d outside player count %d", g.Seat, s.PlayerCount)
	}
	if g.RemainingUses < 1 {
		return g, fmt.Errorf("grant must have at least one use, got %d", g.RemainingUses)
	}
	cd.NextGrantOrdinal++
	g.GrantID = fmt.Sprintf("grant-%d", cd.NextGrantOrdinal)
	cd.PendingFreeOperationGrants = append(cd.PendingFreeOperationGrants, g)
	return g, nil
}

// Pending returns the pending grants of a seat in grant order.
func Pending(s *ir.GameState, seat int) []ir.FreeOperationGrant {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return nil
	}
	var out []ir.FreeOperationGrant
	for _, g := range cd.PendingFreeOperationGrants {
		if g.Seat == seat {
			out = append(out, g)
		}
	}
	return out
}

// Locked reports whether an earlier grant of the same sequence batch is
// still pending.
func Locked(s *ir.GameState, g ir.FreeOperationGrant) bool {
	if g.SequenceBatchID == "" {
		return false
	}
	for _, other := range s.TurnOrder.CardDriven.PendingFreeOperationGrants {
		if other.GrantID != g.GrantID && other.SequenceBatchID == g.SequenceBatchID && other.SequenceIndex < g.SequenceIndex {
			return true
		}
	}
	return false
}

// NextGrant returns the first pending grant that is not sequence-locked.
func NextGrant(s *ir.GameState) (ir.FreeOperationGrant, bool) {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return ir.FreeOperationGrant{}, false
	}
	for _, g := range cd.PendingFreeOperationGrants {
		if !Locked(s, g) {
			return g, true
		}
	}
	return ir.FreeOperationGrant{}, false
}

// Check decides whether player may execute action as a free operation with
// the given move parameters bound in ctx. On Granted the matching grant is
// returned.
//
// A zone filter that cannot be decided yet (a parameter still missing) is
// treated as granted so the move template stays listed; it is re-checked
// when the move is complete.
func Check(ctx *eval.Context, s *ir.GameState, player int, action *ir.ActionDef) (Denial, *ir.FreeOperationGrant, error) {
	grants := Pending(s, player)
	if len(grants) == 0 {
		return NoActiveSeatGrant, nil, nil
	}
	best := NoActiveSeatGrant
	for i := range grants {
		g := &grants[i]
		d, err := checkOne(ctx, s, g, action)
		if err != nil {
			return "", nil, err
		}
		if d == Granted {
			return Granted, g, nil
		}
		if stage[d] > stage[best] {
			best = d
		}
	}
	return best, nil, nil
}

func checkOne(ctx *eval.Context, s *ir.GameState, g *ir.FreeOperationGrant, action *ir.ActionDef) (Denial, error) {
	if g.ActionClass != "" && g.ActionClass != action.Class {
		return ActionClassMismatch, nil
	}
	if len(g.ActionIDs) > 0 && !slices.Contains(g.ActionIDs, action.ID) {
		return ActionIDMismatch, nil
	}
	if Locked(s, *g) {
		return SequenceLocked, nil
	}
	if g.ZoneFilter == nil {
		return Granted, nil
	}
	ok, err := eval.Condition(ctx, *g.ZoneFilter)
	if err != nil {
		switch eval.Classify(eval.SiteGrantFilter, err) {
		case eval.Defer:
			return Granted, nil
		case eval.Inapplicable:
			return ZoneFilterMismatch, nil
		default:
			return "", err
		}
	}
	if !ok {
		return ZoneFilterMismatch, nil
	}
	return Granted, nil
}

// Consume spends one use of a grant, removing it when exhausted.
func Consume(s *ir.GameState, grantID string) error {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return ErrNotCardDriven
	}
	for i := range cd.PendingFreeOperationGrants {
		g := &cd.PendingFreeOperationGrants[i]
		if g.GrantID != grantID {
			continue
		}
		g.RemainingUses--
		if g.RemainingUses <= 0 {
			cd.PendingFreeOperationGrants = slices.Delete(cd.PendingFreeOperationGrants, i, i+1)
		}
		return nil
	}
	return fmt.Errorf("grant %q is not pending", grantID)
}

// ExpireSeat drops every pending grant of a seat and returns them.
func ExpireSeat(s *ir.GameState, seat int) []ir.FreeOperationGrant {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return nil
	}
	var expired []ir.FreeOperationGrant
	cd.PendingFreeOperationGrants = slices.DeleteFunc(cd.PendingFreeOperationGrants, func(g ir.FreeOperationGrant) bool {
		if g.Seat == seat {
			expired = append(expired, g)
			return true
		}
		return false
	})
	return expired
}

// BatchPending reports whether any grant of a sequence batch is pending.
func BatchPending(s *ir.GameState, batch string) bool {
	cd := s.TurnOrder.CardDriven
	if cd == nil {
		return false
	}
	return slices.ContainsFunc(cd.PendingFreeOperationGrants, func(g ir.FreeOperationGrant) bool {
		return g.SequenceBatchID == batch
	})
}
