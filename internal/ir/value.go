package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing constrained runtime values.
// Only Null, String, Int, Bool, TokenRef, Array and Object implement it.
// There is no float variant: floats break determinism.
type Value interface {
	irValue()
}

// Null represents the absence of a value (JSON null).
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string value.
type String string

func (String) irValue() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// TokenRef references a token by id. It encodes as the bare id string so a
// token option round-trips through a move parameter.
type TokenRef string

func (TokenRef) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// Clone returns a shallow copy of the object. Values are immutable so a
// shallow copy is a full copy as long as nested arrays/objects are never
// mutated in place.
func (obj Object) Clone() Object {
	if obj == nil {
		return nil
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's default string ordering compares UTF-8 bytes, which differs.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareCanonical)
	return keys
}

// CompareCanonical compares strings by UTF-16 code units as required by
// RFC 8785. It is also the canonical id ordering for zones and tokens.
func CompareCanonical(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := DecodeValue(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
func (arr *Array) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*arr = make(Array, len(raw))
	for i, v := range raw {
		val, err := DecodeValue(v)
		if err != nil {
			return fmt.Errorf("array index %d: %w", i, err)
		}
		(*arr)[i] = val
	}
	return nil
}

// DecodeValue decodes a JSON value into the matching Value type.
// Floats are rejected; null becomes Null.
func DecodeValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[':
		var arr Array
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		return arr, nil

	case '{':
		var obj Object
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		s := string(data)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not allowed: %s", s)
		}
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(i), nil
	}
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalJSON implements json.Marshaler for Array.
func (arr Array) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(arr)
}

// ValueKey returns the canonical encoding of v, used for set membership and
// equality. TokenRef and String with the same text share a key.
func ValueKey(v Value) string {
	if v == nil {
		return "null"
	}
	b, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	return string(b)
}

// EqualValues reports whether two values are canonically equal.
func EqualValues(a, b Value) bool {
	return ValueKey(a) == ValueKey(b)
}

// TypeName names the runtime type of v for diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "number"
	case Bool:
		return "boolean"
	case TokenRef:
		return "token"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FromGo converts a decoded YAML/JSON Go value into a Value.
// Integers of any Go width are accepted; floats are accepted only when they
// carry an integral value (YAML decoders produce float64 for some inputs).
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		return Int(int64(val)), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not allowed: %v", val)
		}
		return Int(int64(val)), nil
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not allowed: %s", val)
		}
		return Int(i), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
