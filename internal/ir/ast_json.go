package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// PlayerSel

// UnmarshalJSON accepts a selector keyword, a "$binding" or an integer id.
func (p *PlayerSel) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		id, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("player selector: expected string or integer, got %s", data)
		}
		*p = PlayerSel{Kind: PlayerID, ID: id}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	sel, err := ParsePlayerSel(s)
	if err != nil {
		return err
	}
	*p = sel
	return nil
}

// MarshalJSON encodes the selector in its compact form.
func (p PlayerSel) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PlayerID:
		return []byte(strconv.Itoa(p.ID)), nil
	case PlayerBinding:
		return json.Marshal(p.Binding)
	default:
		return json.Marshal(string(p.Kind))
	}
}

// ParsePlayerSel parses the string form of a player selector.
func ParsePlayerSel(s string) (PlayerSel, error) {
	switch PlayerSelKind(s) {
	case PlayerActor, PlayerActive, PlayerLeft, PlayerRight, PlayerAll, PlayerAllOther:
		return PlayerSel{Kind: PlayerSelKind(s)}, nil
	}
	if strings.HasPrefix(s, "$") {
		return PlayerSel{Kind: PlayerBinding, Binding: s}, nil
	}
	if id, err := strconv.Atoi(s); err == nil {
		return PlayerSel{Kind: PlayerID, ID: id}, nil
	}
	return PlayerSel{}, fmt.Errorf("unknown player selector %q", s)
}

// String renders the selector for diagnostics.
func (p PlayerSel) String() string {
	switch p.Kind {
	case PlayerID:
		return strconv.Itoa(p.ID)
	case PlayerBinding:
		return p.Binding
	default:
		return string(p.Kind)
	}
}

// ---------------------------------------------------------------------------
// Expr

// UnmarshalJSON decodes a value expression. Scalars and arrays are literals.
func (e *Expr) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		v, err := DecodeValue(data)
		if err != nil {
			return fmt.Errorf("expression literal: %w", err)
		}
		e.Node = Lit{Value: v}
		return nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	switch {
	case keys["lit"] != nil:
		v, err := DecodeValue(keys["lit"])
		if err != nil {
			return fmt.Errorf("expression literal: %w", err)
		}
		e.Node = Lit{Value: v}
	case keys["ref"] != nil:
		var n Ref
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("ref expression: %w", err)
		}
		e.Node = n
	case keys["op"] != nil:
		var n Arith
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("arithmetic expression: %w", err)
		}
		e.Node = n
	case keys["concat"] != nil:
		var parts []Expr
		if err := json.Unmarshal(keys["concat"], &parts); err != nil {
			return fmt.Errorf("concat expression: %w", err)
		}
		e.Node = ConcatExpr{Parts: parts}
	case keys["if"] != nil:
		var n IfExpr
		if err := json.Unmarshal(keys["if"], &n); err != nil {
			return fmt.Errorf("if expression: %w", err)
		}
		e.Node = n
	case keys["aggregate"] != nil:
		var n Aggregate
		if err := json.Unmarshal(keys["aggregate"], &n); err != nil {
			return fmt.Errorf("aggregate expression: %w", err)
		}
		e.Node = n
	case keys["distance"] != nil:
		var n Distance
		if err := json.Unmarshal(keys["distance"], &n); err != nil {
			return fmt.Errorf("distance expression: %w", err)
		}
		e.Node = n
	default:
		return fmt.Errorf("unknown expression form with keys %v", sortedRawKeys(keys))
	}
	return nil
}

// MarshalJSON encodes a value expression.
func (e Expr) MarshalJSON() ([]byte, error) {
	switch n := e.Node.(type) {
	case nil:
		return []byte("null"), nil
	case Lit:
		if _, ok := n.Value.(Object); ok {
			return json.Marshal(map[string]any{"lit": n.Value})
		}
		return MarshalCanonical(n.Value)
	case Ref:
		return json.Marshal(n)
	case Arith:
		return json.Marshal(n)
	case ConcatExpr:
		return json.Marshal(map[string]any{"concat": n.Parts})
	case IfExpr:
		return json.Marshal(map[string]any{"if": n})
	case Aggregate:
		return json.Marshal(map[string]any{"aggregate": n})
	case Distance:
		return json.Marshal(map[string]any{"distance": n})
	default:
		return nil, fmt.Errorf("unknown expression node %T", e.Node)
	}
}

// ---------------------------------------------------------------------------
// Query

var queryDecoders = map[string]func(json.RawMessage) (QueryNode, error){
	"tokensInZone":           decodeNode[QueryNode, TokensInZone],
	"intsInRange":            decodeNode[QueryNode, IntsInRange],
	"enums":                  decodeNode[QueryNode, EnumsQuery],
	"players":                decodeNode[QueryNode, PlayersQuery],
	"zones":                  decodeNode[QueryNode, ZonesQuery],
	"adjacentZones":          decodeNode[QueryNode, AdjacentZones],
	"connectedZones":         decodeNode[QueryNode, ConnectedZones],
	"assetRows":              decodeNode[QueryNode, AssetRows],
	"binding":                decodeNode[QueryNode, BindingQuery],
	"concat":                 decodeNode[QueryNode, ConcatQuery],
	"nextInOrderByCondition": decodeNode[QueryNode, NextInOrderByCondition],
}

// QueryKind names the variant of a query node.
func QueryKind(n QueryNode) string {
	switch n.(type) {
	case TokensInZone:
		return "tokensInZone"
	case IntsInRange:
		return "intsInRange"
	case EnumsQuery:
		return "enums"
	case PlayersQuery:
		return "players"
	case ZonesQuery:
		return "zones"
	case AdjacentZones:
		return "adjacentZones"
	case ConnectedZones:
		return "connectedZones"
	case AssetRows:
		return "assetRows"
	case BindingQuery:
		return "binding"
	case ConcatQuery:
		return "concat"
	case NextInOrderByCondition:
		return "nextInOrderByCondition"
	default:
		return ""
	}
}

// UnmarshalJSON decodes {"query": kind, ...fields}.
func (q *Query) UnmarshalJSON(data []byte) error {
	var head struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	dec, ok := queryDecoders[head.Query]
	if !ok {
		return fmt.Errorf("unknown query kind %q", head.Query)
	}
	n, err := dec(data)
	if err != nil {
		return fmt.Errorf("query %s: %w", head.Query, err)
	}
	q.Node = n
	return nil
}

// MarshalJSON encodes the query with its "query" tag first.
func (q Query) MarshalJSON() ([]byte, error) {
	if q.Node == nil {
		return []byte("null"), nil
	}
	kind := QueryKind(q.Node)
	if kind == "" {
		return nil, fmt.Errorf("unknown query node %T", q.Node)
	}
	return marshalTagged("query", kind, q.Node)
}

// ---------------------------------------------------------------------------
// Cond

// UnmarshalJSON decodes a condition. Bare booleans are constants.
func (c *Cond) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		c.Node = ConstCond{Value: true}
		return nil
	case "false":
		c.Node = ConstCond{Value: false}
		return nil
	}

	var head struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("condition: %w", err)
	}

	var err error
	switch head.Op {
	case "and", "or":
		c.Node, err = decodeNode[CondNode, Logical](data)
	case "not":
		c.Node, err = decodeNode[CondNode, NotCond](data)
	case "in":
		c.Node, err = decodeNode[CondNode, InCond](data)
	case "spatial":
		c.Node, err = decodeNode[CondNode, SpatialCond](data)
	case string(CmpEq), string(CmpNe), string(CmpLt), string(CmpLe), string(CmpGt), string(CmpGe):
		c.Node, err = decodeNode[CondNode, Compare](data)
	default:
		return fmt.Errorf("unknown condition op %q", head.Op)
	}
	if err != nil {
		return fmt.Errorf("condition %s: %w", head.Op, err)
	}
	return nil
}

// MarshalJSON encodes a condition.
func (c Cond) MarshalJSON() ([]byte, error) {
	switch n := c.Node.(type) {
	case nil:
		return []byte("null"), nil
	case ConstCond:
		return []byte(strconv.FormatBool(n.Value)), nil
	case Logical:
		return json.Marshal(n)
	case NotCond:
		return marshalTagged("op", "not", n)
	case InCond:
		return marshalTagged("op", "in", n)
	case SpatialCond:
		return marshalTagged("op", "spatial", n)
	case Compare:
		return json.Marshal(n)
	default:
		return nil, fmt.Errorf("unknown condition node %T", c.Node)
	}
}

// ---------------------------------------------------------------------------
// Effect

var effectDecoders = map[string]func(json.RawMessage) (EffectNode, error){
	"setVar":             decodeNode[EffectNode, SetVar],
	"addVar":             decodeNode[EffectNode, AddVar],
	"transferVar":        decodeNode[EffectNode, TransferVar],
	"moveToken":          decodeNode[EffectNode, MoveToken],
	"moveAll":            decodeNode[EffectNode, MoveAll],
	"draw":               decodeNode[EffectNode, Draw],
	"createToken":        decodeNode[EffectNode, CreateToken],
	"destroyToken":       decodeNode[EffectNode, DestroyToken],
	"setTokenProp":       decodeNode[EffectNode, SetTokenProp],
	"shuffle":            decodeNode[EffectNode, Shuffle],
	"reveal":             decodeNode[EffectNode, Reveal],
	"conceal":            decodeNode[EffectNode, Conceal],
	"if":                 decodeNode[EffectNode, IfEffect],
	"forEach":            decodeNode[EffectNode, ForEach],
	"reduce":             decodeNode[EffectNode, Reduce],
	"bindValue":          decodeNode[EffectNode, BindValue],
	"chooseOne":          decodeNode[EffectNode, ChooseOne],
	"chooseN":            decodeNode[EffectNode, ChooseN],
	"rollRandom":         decodeNode[EffectNode, RollRandom],
	"gotoPhase":          decodeNode[EffectNode, GotoPhase],
	"grantFreeOperation": decodeNode[EffectNode, GrantFreeOperation],
	"deferEventEffect":   decodeNode[EffectNode, DeferEventEffect],
	"pushInterruptPhase": decodeNode[EffectNode, PushInterruptPhase],
	"emit":               decodeNode[EffectNode, Emit],
}

// Kind names the effect variant, matching its JSON envelope key.
func (e Effect) Kind() string {
	switch e.Node.(type) {
	case SetVar:
		return "setVar"
	case AddVar:
		return "addVar"
	case TransferVar:
		return "transferVar"
	case MoveToken:
		return "moveToken"
	case MoveAll:
		return "moveAll"
	case Draw:
		return "draw"
	case CreateToken:
		return "createToken"
	case DestroyToken:
		return "destroyToken"
	case SetTokenProp:
		return "setTokenProp"
	case Shuffle:
		return "shuffle"
	case Reveal:
		return "reveal"
	case Conceal:
		return "conceal"
	case IfEffect:
		return "if"
	case ForEach:
		return "forEach"
	case Reduce:
		return "reduce"
	case BindValue:
		return "bindValue"
	case ChooseOne:
		return "chooseOne"
	case ChooseN:
		return "chooseN"
	case RollRandom:
		return "rollRandom"
	case GotoPhase:
		return "gotoPhase"
	case GrantFreeOperation:
		return "grantFreeOperation"
	case DeferEventEffect:
		return "deferEventEffect"
	case PushInterruptPhase:
		return "pushInterruptPhase"
	case Emit:
		return "emit"
	default:
		return ""
	}
}

// UnmarshalJSON decodes a single-key effect envelope {"kind": {...}}.
func (e *Effect) UnmarshalJSON(data []byte) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("effect: %w", err)
	}
	if len(env) != 1 {
		return fmt.Errorf("effect must have exactly one kind key, got %v", sortedRawKeys(env))
	}
	for kind, body := range env {
		dec, ok := effectDecoders[kind]
		if !ok {
			return fmt.Errorf("unknown effect kind %q", kind)
		}
		n, err := dec(body)
		if err != nil {
			return fmt.Errorf("effect %s: %w", kind, err)
		}
		e.Node = n
	}
	return nil
}

// MarshalJSON encodes the effect envelope.
func (e Effect) MarshalJSON() ([]byte, error) {
	kind := e.Kind()
	if kind == "" {
		return nil, fmt.Errorf("unknown effect node %T", e.Node)
	}
	return json.Marshal(map[string]any{kind: e.Node})
}

// ---------------------------------------------------------------------------
// helpers

// decodeNode decodes raw JSON into the variant V and returns it as the union
// interface U.
func decodeNode[U any, V any](raw json.RawMessage) (U, error) {
	var v V
	var zero U
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, err
	}
	u, ok := any(v).(U)
	if !ok {
		return zero, fmt.Errorf("%T is not a member of the union", v)
	}
	return u, nil
}

// marshalTagged encodes v as a JSON object with key=tag prepended.
func marshalTagged(key, tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, _ := json.Marshal(key)
	val, _ := json.Marshal(tag)

	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(head)
	buf.WriteByte(':')
	buf.Write(val)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func sortedRawKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
