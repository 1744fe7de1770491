// Package rng is the deterministic, counter-based random number generator
// threaded through every kernel call as an explicit value.
//
// The generator is PCG with a 128-bit LCG state and the DXSM output
// function. State is never held in a global: every operation takes an
// ir.RngState and returns the next one.
package rng

import (
	"fmt"
	"math/bits"

	"github.com/roach88/tabula/internal/ir"
)

// Algorithm identification carried in every serialized state.
const (
	Algorithm = "pcg128-dxsm"
	Version   = 1
)

// MaxSpan is the largest supported max-min distance (2^53-1), the range of
// integers every client can represent exactly.
const MaxSpan = 1<<53 - 1

const (
	mulHi    = 2549297995355413924
	mulLo    = 4865540595714422341
	incHi    = 6364136223846793005
	incLo    = 1442695040888963407
	cheapMul = 0xda942042e4dd58b5
)

// RangeError reports invalid nextInt bounds.
type RangeError struct {
	Min, Max int64
	Reason   string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("rng: invalid range [%d, %d]: %s", e.Min, e.Max, e.Reason)
}

// StateError reports a serialized generator state that cannot be used.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return "rng: invalid state: " + e.Reason
}

type pcg struct {
	hi, lo     uint64
	incH, incL uint64
}

func (p *pcg) advance() {
	h, l := bits.Mul64(p.lo, mulLo)
	h += p.hi*mulLo + p.lo*mulHi
	var carry uint64
	p.lo, carry = bits.Add64(l, p.incL, 0)
	p.hi, _ = bits.Add64(h, p.incH, carry)
}

// output is the DXSM permutation of the current state.
func (p *pcg) output() uint64 {
	hi := p.hi
	lo := p.lo | 1
	hi ^= hi >> 32
	hi *= cheapMul
	hi ^= hi >> 48
	hi *= lo
	return hi
}

func (p *pcg) next() uint64 {
	out := p.output()
	p.advance()
	return out
}

func (p *pcg) state() ir.RngState {
	return ir.RngState{
		Algorithm: Algorithm,
		Version:   Version,
		Words:     []ir.Hex64{ir.Hex64(p.hi), ir.Hex64(p.lo), ir.Hex64(p.incH), ir.Hex64(p.incL)},
	}
}

func load(s ir.RngState) (*pcg, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	return &pcg{
		hi:   uint64(s.Words[0]),
		lo:   uint64(s.Words[1]),
		incH: uint64(s.Words[2]),
		incL: uint64(s.Words[3]),
	}, nil
}

// splitmix64 expands a seed into well-mixed words.
func splitmix64(x *uint64) uint64 {
	*x += 0x9e3779b97f4a7c15
	z := *x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Create seeds a generator.
func Create(seed int64) ir.RngState {
	sm := uint64(seed)
	initHi := splitmix64(&sm)
	initLo := splitmix64(&sm)

	p := &pcg{incH: incHi, incL: incLo}
	p.advance()
	var carry uint64
	p.lo, carry = bits.Add64(p.lo, initLo, 0)
	p.hi, _ = bits.Add64(p.hi, initHi, carry)
	p.advance()
	return p.state()
}

// Validate checks algorithm, version and word layout.
func Validate(s ir.RngState) error {
	if s.Algorithm != Algorithm {
		return &StateError{Reason: fmt.Sprintf("unsupported algorithm %q", s.Algorithm)}
	}
	if s.Version != Version {
		return &StateError{Reason: fmt.Sprintf("unsupported version %d for %s", s.Version, s.Algorithm)}
	}
	if len(s.Words) != 4 {
		return &StateError{Reason: fmt.Sprintf("expected 4 state words, got %d", len(s.Words))}
	}
	if s.Words[3]&1 == 0 {
		return &StateError{Reason: "increment must be odd"}
	}
	return nil
}

// Step returns the next raw 64-bit output and the following state.
func Step(s ir.RngState) (uint64, ir.RngState, error) {
	p, err := load(s)
	if err != nil {
		return 0, s, err
	}
	out := p.next()
	return out, p.state(), nil
}

// NextInt returns a uniformly distributed integer in [min, max].
//
// Scaling uses Lemire's wide multiply with rejection, so there is no modulo
// bias. NextInt(s, k, k) returns k and consumes no randomness.
func NextInt(s ir.RngState, min, max int64) (int64, ir.RngState, error) {
	if min > max {
		return 0, s, &RangeError{Min: min, Max: max, Reason: "min exceeds max"}
	}
	span := uint64(max) - uint64(min)
	if span > MaxSpan {
		return 0, s, &RangeError{Min: min, Max: max, Reason: "span exceeds 2^53-1"}
	}
	if span == 0 {
		if err := Validate(s); err != nil {
			return 0, s, err
		}
		return min, s, nil
	}
	p, err := load(s)
	if err != nil {
		return 0, s, err
	}
	n := span + 1
	hi, lo := bits.Mul64(p.next(), n)
	if lo < n {
		threshold := -n % n
		for lo < threshold {
			hi, lo = bits.Mul64(p.next(), n)
		}
	}
	return min + int64(hi), p.state(), nil
}

// Shuffle returns a Fisher-Yates permutation of items. The input slice is
// not modified.
func Shuffle[T any](s ir.RngState, items []T) ([]T, ir.RngState, error) {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j, next, err := NextInt(s, 0, int64(i))
		if err != nil {
			return nil, s, err
		}
		s = next
		out[i], out[j] = out[j], out[i]
	}
	return out, s, nil
}
