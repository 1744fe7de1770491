package ir

import "fmt"

// Move is a player move: an action id plus parameters keyed by parameter
// name or decision id. Compound carries a linked sub-move resolved in the
// same pipeline invocation.
type Move struct {
	ActionID      string `json:"actionId"`
	Params        Object `json:"params"`
	FreeOperation bool   `json:"freeOperation,omitempty"`
	Compound      *Move  `json:"compound,omitempty"`
}

// Object returns the move as a value. Params default to an empty object so
// that nil and empty params share one identity.
func (m Move) Object() Object {
	params := m.Params
	if params == nil {
		params = Object{}
	}
	obj := Object{
		"actionId": String(m.ActionID),
		"params":   params,
	}
	if m.FreeOperation {
		obj["freeOperation"] = Bool(true)
	}
	if m.Compound != nil {
		obj["compound"] = m.Compound.Object()
	}
	return obj
}

// Key returns the canonical identity of the move. Object params are
// order-independent, arrays order-sensitive.
func (m Move) Key() string {
	b, err := MarshalCanonical(m.Object())
	if err != nil {
		// Values are float-free by construction; this only happens for
		// hand-built moves carrying foreign types.
		return fmt.Sprintf("invalid-move:%s:%v", m.ActionID, err)
	}
	return string(b)
}

// WithParam returns a copy of m with one more parameter.
func (m Move) WithParam(name string, v Value) Move {
	out := m
	out.Params = m.Params.Clone()
	if out.Params == nil {
		out.Params = Object{}
	}
	out.Params[name] = v
	return out
}

// Equivalent reports whether two moves have the same identity.
func Equivalent(a, b Move) bool {
	return a.Key() == b.Key()
}
