package eval

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/tabula/internal/ir"
)

// ResolvePlayers resolves a player selector to player indices in ascending
// order. An index outside the player count is reported as a cardinality
// error flagged outsidePlayerCount.
func ResolvePlayers(ctx *Context, sel ir.PlayerSel) ([]int, error) {
	n := ctx.State.Players()
	switch sel.Kind {
	case ir.PlayerActor:
		return checkPlayers(ctx, sel, []int{ctx.ActorPlayer})
	case ir.PlayerActive:
		return checkPlayers(ctx, sel, []int{ctx.ActivePlayer})
	case ir.PlayerLeft:
		return checkPlayers(ctx, sel, []int{mod(ctx.ActorPlayer+1, n)})
	case ir.PlayerRight:
		return checkPlayers(ctx, sel, []int{mod(ctx.ActorPlayer-1, n)})
	case ir.PlayerAll:
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	case ir.PlayerAllOther:
		out := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if i != ctx.ActorPlayer {
				out = append(out, i)
			}
		}
		return out, nil
	case ir.PlayerID:
		return checkPlayers(ctx, sel, []int{sel.ID})
	case ir.PlayerBinding:
		v, err := ctx.Lookup(sel.Binding)
		if err != nil {
			return nil, err
		}
		ids, err := playersFromValue(sel, v)
		if err != nil {
			return nil, err
		}
		slices.Sort(ids)
		return checkPlayers(ctx, sel, slices.Compact(ids))
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"selector": sel.String()}, "unknown player selector kind %q", sel.Kind)
	}
}

// ResolvePlayer resolves a selector that must name exactly one player.
func ResolvePlayer(ctx *Context, sel ir.PlayerSel) (int, error) {
	ids, err := ResolvePlayers(ctx, sel)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, newError(CodeSelectorCardinality, map[string]any{
			"selector":       sel.String(),
			"resolvedCount":  len(ids),
			"resolvedIds":    ids,
			"bindingDerived": sel.Kind == ir.PlayerBinding,
		}, "player selector %s resolved to %d players, expected 1", sel, len(ids))
	}
	return ids[0], nil
}

func playersFromValue(sel ir.PlayerSel, v ir.Value) ([]int, error) {
	switch val := v.(type) {
	case ir.Int:
		return []int{int(val)}, nil
	case ir.Array:
		out := make([]int, 0, len(val))
		for _, e := range val {
			i, ok := e.(ir.Int)
			if !ok {
				return nil, newError(CodeTypeMismatch, map[string]any{"selector": sel.String(), "got": ir.TypeName(e)},
					"player binding %s holds a %s element", sel.Binding, ir.TypeName(e))
			}
			out = append(out, int(i))
		}
		return out, nil
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"selector": sel.String(), "got": ir.TypeName(v)},
			"player binding %s holds a %s, expected a player index", sel.Binding, ir.TypeName(v))
	}
}

func checkPlayers(ctx *Context, sel ir.PlayerSel, ids []int) ([]int, error) {
	n := ctx.State.Players()
	for _, id := range ids {
		if id < 0 || id >= n {
			return nil, newError(CodeSelectorCardinality, map[string]any{
				"selector":           sel.String(),
				"player":             id,
				"playerCount":        n,
				"resolvedCount":      0,
				"outsidePlayerCount": true,
				"bindingDerived":     sel.Kind == ir.PlayerBinding,
			}, "player %d is outside player count %d", id, n)
		}
	}
	return ids, nil
}

func mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	return ((a % n) + n) % n
}

// ResolveZones resolves a zone selector to existing zone ids in canonical
// order.
//
// Forms: "<base>" (same as "<base>:none"), "<base>:<qualifier>" where the
// qualifier is "none" or any player selector, and a bare "$binding" holding
// a zone id or an array of zone ids.
func ResolveZones(ctx *Context, sel ir.ZoneSel) ([]string, error) {
	ids, _, err := resolveZones(ctx, sel)
	return ids, err
}

// resolveZones also reports whether the zone list came from a binding:
// a bare "$binding" or a "$binding" player qualifier.
func resolveZones(ctx *Context, sel ir.ZoneSel) ([]string, bool, error) {
	s := string(sel)
	if s == "" {
		return nil, false, newError(CodeTypeMismatch, nil, "empty zone selector")
	}

	var ids []string
	bindingDerived := false
	base, qual, hasQual := strings.Cut(s, ":")
	switch {
	case strings.HasPrefix(s, "$") && !hasQual:
		bindingDerived = true
		v, err := ctx.Lookup(s)
		if err != nil {
			return nil, bindingDerived, err
		}
		ids, err = zonesFromValue(s, v)
		if err != nil {
			return nil, bindingDerived, err
		}
	case !hasQual || qual == ir.OwnerNone:
		ids = []string{base + ":" + ir.OwnerNone}
	default:
		psel, err := ir.ParsePlayerSel(qual)
		if err != nil {
			return nil, false, newError(CodeTypeMismatch, map[string]any{"selector": s}, "zone selector %s: %v", s, err)
		}
		bindingDerived = psel.Kind == ir.PlayerBinding
		players, err := ResolvePlayers(ctx, psel)
		if err != nil {
			return nil, bindingDerived, err
		}
		for _, p := range players {
			ids = append(ids, ir.PlayerZoneID(base, p))
		}
	}

	for _, id := range ids {
		if _, ok := ctx.State.ZoneTokens(id); !ok {
			return nil, bindingDerived, newError(CodeSelectorCardinality, map[string]any{
				"selector":       s,
				"zone":           id,
				"resolvedCount":  0,
				"bindingDerived": bindingDerived,
			}, "zone selector %s names unknown zone %s", s, id)
		}
	}
	ir.SortCanonical(ids)
	return slices.Compact(ids), bindingDerived, nil
}

// ResolveZone resolves a selector that must name exactly one zone.
func ResolveZone(ctx *Context, sel ir.ZoneSel) (string, error) {
	ids, derived, err := resolveZones(ctx, sel)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", newError(CodeSelectorCardinality, map[string]any{
			"selector":       string(sel),
			"resolvedCount":  len(ids),
			"resolvedIds":    ids,
			"bindingDerived": derived,
		}, "zone selector %s resolved to %d zones, expected 1", sel, len(ids))
	}
	return ids[0], nil
}

func zonesFromValue(name string, v ir.Value) ([]string, error) {
	switch val := v.(type) {
	case ir.String:
		return []string{string(val)}, nil
	case ir.Array:
		out := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(ir.String)
			if !ok {
				return nil, newError(CodeTypeMismatch, map[string]any{"binding": name, "got": ir.TypeName(e)},
					"zone binding %s holds a %s element", name, ir.TypeName(e))
			}
			out = append(out, string(s))
		}
		return out, nil
	default:
		return nil, newError(CodeTypeMismatch, map[string]any{"binding": name, "got": ir.TypeName(v)},
			"zone binding %s holds a %s, expected a zone id", name, ir.TypeName(v))
	}
}

// ResolveToken resolves a token selector ("$binding" or a literal id) to an
// existing token id.
func ResolveToken(ctx *Context, sel string) (string, error) {
	id := sel
	bindingDerived := strings.HasPrefix(sel, "$")
	if bindingDerived {
		v, err := ctx.Lookup(sel)
		if err != nil {
			return "", err
		}
		switch val := v.(type) {
		case ir.TokenRef:
			id = string(val)
		case ir.String:
			id = string(val)
		default:
			return "", newError(CodeTypeMismatch, map[string]any{"binding": sel, "got": ir.TypeName(v)},
				"token binding %s holds a %s", sel, ir.TypeName(v))
		}
	}
	if _, ok := ctx.State.TokenByID(id); !ok {
		return "", newError(CodeSelectorCardinality, map[string]any{
			"selector":       sel,
			"token":          id,
			"resolvedCount":  0,
			"bindingDerived": bindingDerived,
		}, "token selector %s names unknown token %s", sel, id)
	}
	return id, nil
}

// PlayerIndex parses the qualifier of a player-owned zone id.
func PlayerIndex(zoneID string) (int, bool) {
	_, qual := ir.SplitZoneID(zoneID)
	p, err := strconv.Atoi(qual)
	if err != nil {
		return 0, false
	}
	return p, true
}
