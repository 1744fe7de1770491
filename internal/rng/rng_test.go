package rng

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ir"
)

func TestCreateDeterministic(t *testing.T) {
	a := Create(42)
	b := Create(42)
	c := Create(43)

	assert.True(t, a.Equal(b), "same seed must give the same state")
	assert.False(t, a.Equal(c), "different seeds must diverge")
	assert.Equal(t, Algorithm, a.Algorithm)
	assert.Equal(t, Version, a.Version)
	require.NoError(t, Validate(a))
}

func TestStepIsPure(t *testing.T) {
	s := Create(7)
	before := s.Words[0]

	v1, next1, err := Step(s)
	require.NoError(t, err)
	v2, next2, err := Step(s)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.True(t, next1.Equal(next2))
	assert.Equal(t, before, s.Words[0], "input state must not be modified")
	assert.False(t, next1.Equal(s))
}

func TestNextIntWithinRange(t *testing.T) {
	cases := []struct {
		seed     int64
		min, max int64
	}{
		{1, 0, 9},
		{2, -5, 5},
		{3, 100, 101},
		{4, -1 << 40, 1 << 40},
		{5, 0, MaxSpan},
	}
	for _, tc := range cases {
		s := Create(tc.seed)
		for i := 0; i < 500; i++ {
			var v int64
			var err error
			v, s, err = NextInt(s, tc.min, tc.max)
			require.NoError(t, err)
			require.GreaterOrEqual(t, v, tc.min)
			require.LessOrEqual(t, v, tc.max)
		}
	}
}

func TestNextIntSameBounds(t *testing.T) {
	s := Create(42)
	for _, k := range []int64{-3, 0, 7, MaxSpan} {
		v, next, err := NextInt(s, k, k)
		require.NoError(t, err)
		assert.Equal(t, k, v)
		assert.True(t, next.Equal(s), "a degenerate range consumes no randomness")
	}
}

func TestNextIntDistributionNotDegenerate(t *testing.T) {
	s := Create(42)
	var buckets [10]int
	for i := 0; i < 1000; i++ {
		var v int64
		var err error
		v, s, err = NextInt(s, 0, 9)
		require.NoError(t, err)
		buckets[v]++
	}
	for i, n := range buckets {
		assert.Greater(t, n, 50, "bucket %d starved: %v", i, buckets)
	}
}

func TestNextIntRejectsBadRanges(t *testing.T) {
	s := Create(1)

	_, _, err := NextInt(s, 5, 4)
	var rangeErr *RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Contains(t, rangeErr.Reason, "min exceeds max")

	_, _, err = NextInt(s, 0, MaxSpan+1)
	require.True(t, errors.As(err, &rangeErr))
	assert.Contains(t, rangeErr.Reason, "span")

	_, _, err = NextInt(s, -1<<62, 1<<62)
	require.True(t, errors.As(err, &rangeErr))
}

func TestRoundTripReplaysSameSequence(t *testing.T) {
	original := Create(99)
	_, original, _ = Step(original)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded ir.RngState
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, original.Equal(decoded))

	a, b := original, decoded
	for i := 0; i < 64; i++ {
		var va, vb uint64
		va, a, err = Step(a)
		require.NoError(t, err)
		vb, b, err = Step(b)
		require.NoError(t, err)
		require.Equal(t, va, vb, "step %d", i)
	}
}

func TestWireFormatIsStrictHex(t *testing.T) {
	data, err := json.Marshal(Create(3))
	require.NoError(t, err)
	assert.Regexp(t, `"state":\["0x[0-9a-f]+","0x[0-9a-f]+","0x[0-9a-f]+","0x[0-9a-f]+"\]`, string(data))

	bad := []string{
		`{"algorithm":"pcg128-dxsm","version":1,"state":["0X1","0x1","0x1","0x1"]}`,
		`{"algorithm":"pcg128-dxsm","version":1,"state":["0xAB","0x1","0x1","0x1"]}`,
		`{"algorithm":"pcg128-dxsm","version":1,"state":["0x01","0x1","0x1","0x1"]}`,
		`{"algorithm":"pcg128-dxsm","version":1,"state":[1,"0x1","0x1","0x1"]}`,
	}
	for _, in := range bad {
		var s ir.RngState
		assert.Error(t, json.Unmarshal([]byte(in), &s), in)
	}
}

func TestValidateRejectsForeignStates(t *testing.T) {
	s := Create(1)

	other := s
	other.Algorithm = "mt19937"
	var stateErr *StateError
	_, _, err := Step(other)
	require.True(t, errors.As(err, &stateErr))

	other = s
	other.Version = 2
	assert.Error(t, Validate(other))

	other = s
	other.Words = s.Words[:3]
	assert.Error(t, Validate(other))

	other = s
	other.Words = append([]ir.Hex64(nil), s.Words...)
	other.Words[3] &^= 1
	assert.Error(t, Validate(other))
}

func TestShuffleIsPermutation(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}
	out, next, err := Shuffle(Create(5), items)
	require.NoError(t, err)

	assert.ElementsMatch(t, items, out)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, items, "input untouched")
	assert.False(t, next.Equal(Create(5)))

	again, _, err := Shuffle(Create(5), items)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}
