package kernel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/rng"
)

// ErrNondeterministic is wrapped by the determinism assertions.
var ErrNondeterministic = errors.New("nondeterministic result")

// AssertDeterministic runs fn twice and checks that both runs produced the
// same bytes.
func AssertDeterministic(fn func() ([]byte, error)) error {
	a, err := fn()
	if err != nil {
		return err
	}
	b, err := fn()
	if err != nil {
		return err
	}
	if !bytes.Equal(a, b) {
		return fmt.Errorf("%w: outputs differ at byte %d", ErrNondeterministic, firstDiff(a, b))
	}
	return nil
}

// AssertMoveDeterministic applies move twice to s and compares the
// serialized states and traces.
func AssertMoveDeterministic(def *ir.GameDef, s *ir.GameState, move ir.Move, opts ...Option) error {
	return AssertDeterministic(func() ([]byte, error) {
		res, err := ApplyMove(def, s, move, opts...)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	})
}

// AssertRngReplay steps the RNG of two independently deserialized copies of
// s for n steps and checks that the outputs agree.
func AssertRngReplay(s *ir.GameState, n int) error {
	data, err := SerializeState(s)
	if err != nil {
		return err
	}
	a, err := DeserializeState(data)
	if err != nil {
		return err
	}
	b, err := DeserializeState(data)
	if err != nil {
		return err
	}
	ra, rb := a.RNG, b.RNG
	for i := 0; i < n; i++ {
		var va, vb uint64
		if va, ra, err = rng.Step(ra); err != nil {
			return err
		}
		if vb, rb, err = rng.Step(rb); err != nil {
			return err
		}
		if va != vb {
			return fmt.Errorf("%w: rng step %d: %#x != %#x", ErrNondeterministic, i, va, vb)
		}
	}
	return nil
}

func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
