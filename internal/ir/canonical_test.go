package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", String("hand:0"), `"hand:0"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool", Bool(false), "false"},
		{"null", nil, "null"},
		{"null value", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array keeps order", Array{Int(3), Null{}, Int(1)}, "[3,null,1]"},
		{"sorted keys", Object{"zone": Int(1), "actor": Int(2), "bank": Int(3)}, `{"actor":2,"bank":3,"zone":1}`},
		{"nested sorted keys", Object{"z": Object{"b": Int(1), "a": Int(2)}, "a": Int(3)}, `{"a":3,"z":{"a":2,"b":1}}`},
		{"no whitespace", Object{"xs": Array{Int(1), Int(2)}, "ok": Bool(true)}, `{"ok":true,"xs":[1,2]}`},

		{"go string", "pass", `"pass"`},
		{"go int", 42, "42"},
		{"go int64", int64(-7), "-7"},
		{"go bool", true, "true"},
		{"go string slice", []string{"b", "a"}, `["b","a"]`},
		{"go slice", []any{int64(1), "two", true}, `[1,"two",true]`},
		{"go map", map[string]any{"b": int64(1), "a": "x"}, `{"a":"x","b":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

// U+10000 encodes as the surrogate pair D800 DC00 and so sorts before
// U+E000 in UTF-16 order, although its UTF-8 bytes sort after.
func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	got, err := MarshalCanonical(Object{"\uE000": Int(1), "\U00010000": Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonicalStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no html escaping", "<b>a & b</b>", `"<b>a & b</b>"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"line separators stay literal", "a\u2028b\u2029c", "\"a\u2028b\u2029c\""},
		{"escaped text is not unescaped", `see \u2028`, `"see \\u2028"`},
		{"mixed", "lit \\u2028 and \u2028", "\"lit \\\\u2028 and \u2028\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalSeparatorsInKeys(t *testing.T) {
	got, err := MarshalCanonical(Object{"zone\u2028name": String("a\u2029b")})
	require.NoError(t, err)
	assert.NotContains(t, string(got), `\u2028`)
	assert.NotContains(t, string(got), `\u2029`)
	assert.Contains(t, string(got), "\u2028")
}

// Precomposed and decomposed forms of a name must hash the same.
func TestMarshalCanonicalNFC(t *testing.T) {
	composed, decomposed := "caf\u00E9", "cafe\u0301"

	a, err := MarshalCanonical(String(composed))
	require.NoError(t, err)
	b, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	a, err = MarshalCanonical(Object{composed: Int(1)})
	require.NoError(t, err)
	b, err = MarshalCanonical(Object{decomposed: Int(1)})
	require.NoError(t, err)
	assert.Equal(t, a, b, "object keys are normalized too")
}

func TestMarshalCanonicalTokenRefIsItsID(t *testing.T) {
	ref, err := MarshalCanonical(TokenRef("card-3"))
	require.NoError(t, err)
	str, err := MarshalCanonical(String("card-3"))
	require.NoError(t, err)
	assert.Equal(t, str, ref)
	assert.Equal(t, ValueKey(TokenRef("card-3")), ValueKey(String("card-3")))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		msg   string
	}{
		{"float64", 3.14, "float"},
		{"float32", float32(3.14), "float"},
		{"nested float", map[string]any{"nested": []any{1, 2.5}}, "float"},
		{"struct", struct{}{}, "unsupported type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMarshalCanonicalIdempotent(t *testing.T) {
	for _, v := range []Value{
		String("hand:1"),
		Array{Int(1), String("two"), Bool(false), Null{}},
		Object{"actionId": String("advance"), "params": Object{"$steps": Int(2)}},
		Object{"zones": Object{"deck:none": Array{String("c2"), String("c1")}}},
	} {
		first, err := MarshalCanonical(v)
		require.NoError(t, err)
		decoded, err := DecodeValue(first)
		require.NoError(t, err)
		second, err := MarshalCanonical(decoded)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	}
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"actionId":"roll","params":{}}`)
	f.Add(`[1,2,3]`)
	f.Add(`"deck:none"`)
	f.Add(`{"a":{"b":{"c":null}}}`)

	f.Fuzz(func(t *testing.T, input string) {
		v, err := DecodeValue([]byte(input))
		if err != nil {
			t.Skip()
		}
		first, err := MarshalCanonical(v)
		if err != nil {
			t.Skip()
		}
		decoded, err := DecodeValue(first)
		require.NoError(t, err)
		second, err := MarshalCanonical(decoded)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	})
}
