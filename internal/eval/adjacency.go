package eval

import (
	"slices"
	"strings"

	"github.com/roach88/tabula/internal/ir"
)

// Adjacency is the undirected zone graph instantiated for a player count.
// Neighbor lists are in canonical order.
type Adjacency struct {
	edges map[string][]string
}

// BuildAdjacency instantiates the adjacency declared on zone families.
// Adjacent entries name zone ids; a bare base id means "<base>:none".
// Player-owned families connect instance-wise: "a:1" to "b:1".
func BuildAdjacency(def *ir.GameDef, playerCount int) *Adjacency {
	adj := &Adjacency{edges: make(map[string][]string)}
	link := func(a, b string) {
		if a == b {
			return
		}
		if !slices.Contains(adj.edges[a], b) {
			adj.edges[a] = append(adj.edges[a], b)
		}
		if !slices.Contains(adj.edges[b], a) {
			adj.edges[b] = append(adj.edges[b], a)
		}
	}
	for _, z := range def.Zones {
		for _, target := range z.Adjacent {
			if z.Owner == ir.OwnerPlayer {
				for p := 0; p < playerCount; p++ {
					link(ir.PlayerZoneID(z.ID, p), instantiate(def, target, p))
				}
				continue
			}
			link(z.ID+":"+ir.OwnerNone, instantiate(def, target, -1))
		}
	}
	for k := range adj.edges {
		ir.SortCanonical(adj.edges[k])
	}
	return adj
}

func instantiate(def *ir.GameDef, target string, player int) string {
	if strings.Contains(target, ":") {
		return target
	}
	if fam, ok := def.ZoneFamily(target); ok && fam.Owner == ir.OwnerPlayer && player >= 0 {
		return ir.PlayerZoneID(target, player)
	}
	return target + ":" + ir.OwnerNone
}

// Neighbors returns the zones adjacent to zone.
func (a *Adjacency) Neighbors(zone string) []string {
	if a == nil {
		return nil
	}
	return a.edges[zone]
}

// Walk visits zones reachable from start breadth-first, in canonical order
// per layer. pass decides whether a zone may be entered; maxDepth < 0 means
// unbounded. The start zone is not reported.
func (a *Adjacency) Walk(start string, maxDepth int, pass func(zone string) (bool, error)) ([]string, map[string]int, error) {
	depth := map[string]int{start: 0}
	frontier := []string{start}
	var order []string
	for d := 1; len(frontier) > 0 && (maxDepth < 0 || d <= maxDepth); d++ {
		var next []string
		for _, z := range frontier {
			for _, n := range a.Neighbors(z) {
				if _, seen := depth[n]; seen {
					continue
				}
				ok, err := pass(n)
				if err != nil {
					return nil, nil, err
				}
				if !ok {
					continue
				}
				depth[n] = d
				next = append(next, n)
			}
		}
		ir.SortCanonical(next)
		order = append(order, next...)
		frontier = next
	}
	return order, depth, nil
}
