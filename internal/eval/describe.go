package eval

import "github.com/roach88/tabula/internal/ir"

// DomainKind is the declared element domain of a query.
type DomainKind string

const (
	DomainToken DomainKind = "token"
	DomainZone  DomainKind = "zone"
	DomainOther DomainKind = "other"
)

// Shape is the runtime shape of a query's elements.
type Shape string

const (
	ShapeNumber  Shape = "number"
	ShapeString  Shape = "string"
	ShapeBoolean Shape = "boolean"
	ShapeToken   Shape = "token"
	ShapeObject  Shape = "object"
	ShapeUnknown Shape = "unknown"
)

// Describe returns the static domain kind and runtime shape of a query.
// Callers use it to reject option domains that cannot round-trip through a
// move parameter.
func Describe(q ir.Query) (DomainKind, Shape) {
	switch n := q.Node.(type) {
	case ir.TokensInZone:
		return DomainToken, ShapeToken
	case ir.IntsInRange, ir.PlayersQuery:
		return DomainOther, ShapeNumber
	case ir.EnumsQuery:
		return DomainOther, ShapeString
	case ir.ZonesQuery, ir.AdjacentZones, ir.ConnectedZones:
		return DomainZone, ShapeString
	case ir.AssetRows:
		return DomainOther, ShapeObject
	case ir.BindingQuery:
		return DomainOther, ShapeUnknown
	case ir.ConcatQuery:
		if len(n.Sources) == 0 {
			return DomainOther, ShapeUnknown
		}
		domain, shape := Describe(n.Sources[0])
		for _, src := range n.Sources[1:] {
			d, s := Describe(src)
			if d != domain {
				domain = DomainOther
			}
			if s != shape {
				shape = ShapeUnknown
			}
		}
		return domain, shape
	case ir.NextInOrderByCondition:
		return Describe(n.Source)
	default:
		return DomainOther, ShapeUnknown
	}
}

// ShapeOf reports the runtime shape of a single value.
func ShapeOf(v ir.Value) Shape {
	switch v.(type) {
	case ir.Int:
		return ShapeNumber
	case ir.String:
		return ShapeString
	case ir.Bool:
		return ShapeBoolean
	case ir.TokenRef:
		return ShapeToken
	case ir.Object:
		return ShapeObject
	default:
		return ShapeUnknown
	}
}

// MoveParamSafe reports whether values of a shape survive a move-parameter
// round trip.
func MoveParamSafe(s Shape) bool {
	switch s {
	case ShapeNumber, ShapeString, ShapeBoolean, ShapeToken:
		return true
	}
	return false
}
