package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = TokenRef("card-1")
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{
		"zebra":  String("z"),
		"apple":  String("a"),
		"banana": String("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
	assert.Empty(t, Object{}.SortedKeys())
}

// TestSortedKeysUTF16Order is the case where UTF-8 byte order and UTF-16
// code unit order disagree: U+10000 encodes as a surrogate pair starting
// 0xD800, which sorts before U+E000.
func TestSortedKeysUTF16Order(t *testing.T) {
	obj := Object{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
		"a":          Int(3),
	}
	assert.Equal(t, []string{"a", "\U00010000", "\uE000"}, obj.SortedKeys())
}

func TestCompareCanonical(t *testing.T) {
	tests := []struct {
		a, b string
		sign int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"aa", "a", 1},
		{"a", "aa", -1},
		{"A", "a", -1},
		{"", "", 0},
		{"", "a", -1},
		{"hand:10", "hand:2", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := CompareCanonical(tt.a, tt.b)
			switch {
			case tt.sign < 0:
				assert.Negative(t, got)
			case tt.sign > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestObjectClone(t *testing.T) {
	orig := Object{"a": Int(1)}
	clone := orig.Clone()
	clone["b"] = Int(2)

	assert.Len(t, orig, 1)
	assert.Len(t, clone, 2)
	assert.Nil(t, Object(nil).Clone())
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"string", `"hand:0"`, String("hand:0")},
		{"int", `42`, Int(42)},
		{"negative", `-7`, Int(-7)},
		{"true", `true`, Bool(true)},
		{"null", `null`, Null{}},
		{"array", `[1, "a", null]`, Array{Int(1), String("a"), Null{}}},
		{"object", `{"b": {"c": false}, "a": []}`, Object{"a": Array{}, "b": Object{"c": Bool(false)}}},
		{"padded", "  12 \n", Int(12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeValueRejectsFloats(t *testing.T) {
	for _, input := range []string{
		`3.14`,
		`1e10`,
		`1E10`,
		`-2.5`,
		`{"value": 1.5}`,
		`[1, 2.0, 3]`,
		`{"a": {"b": [1.5]}}`,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := DecodeValue([]byte(input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "float")
		})
	}
}

func TestDecodeValueErrors(t *testing.T) {
	for name, input := range map[string]string{
		"empty":        ``,
		"out of range": `99999999999999999999`,
		"broken":       `{"a":`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeValue([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestObjectJSONRoundTrip(t *testing.T) {
	obj := Object{
		"present": String("value"),
		"missing": Null{},
		"list":    Array{Int(1), Bool(true)},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"list":[1,true],"missing":null,"present":"value"}`, string(data))

	var decoded Object
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, obj, decoded)
}

func TestArrayUnmarshalReportsIndex(t *testing.T) {
	var arr Array
	err := json.Unmarshal([]byte(`[1, 2, 3.5]`), &arr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array index 2")
}

func TestValueKeyAndEquality(t *testing.T) {
	assert.Equal(t, `"t1"`, ValueKey(TokenRef("t1")))
	assert.Equal(t, "null", ValueKey(nil))
	assert.True(t, EqualValues(TokenRef("t1"), String("t1")))
	assert.True(t, EqualValues(Object{"a": Int(1), "b": Int(2)}, Object{"b": Int(2), "a": Int(1)}))
	assert.False(t, EqualValues(Array{Int(1), Int(2)}, Array{Int(2), Int(1)}))
	assert.False(t, EqualValues(Int(1), String("1")))
}

func TestTypeName(t *testing.T) {
	for want, v := range map[string]Value{
		"null":    Null{},
		"string":  String("x"),
		"number":  Int(1),
		"boolean": Bool(false),
		"token":   TokenRef("t"),
		"array":   Array{},
		"object":  Object{},
	} {
		assert.Equal(t, want, TypeName(v))
	}
	assert.Equal(t, "null", TypeName(nil))
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Null{}},
		{"value passthrough", Int(3), Int(3)},
		{"string", "a", String("a")},
		{"bool", true, Bool(true)},
		{"int", 7, Int(7)},
		{"int32", int32(-2), Int(-2)},
		{"uint64", uint64(9), Int(9)},
		{"integral float", float64(4), Int(4)},
		{"json number", json.Number("12"), Int(12)},
		{"nested", map[string]any{"xs": []any{1, "b"}}, Object{"xs": Array{Int(1), String("b")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		msg   string
	}{
		{"fraction", 1.5, "floats are not allowed"},
		{"fractional json number", json.Number("1.5"), "floats are not allowed"},
		{"nested fraction", map[string]any{"a": []any{0.25}}, `["a"]: [0]: floats`},
		{"struct", struct{}{}, "unsupported type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGo(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
