package kernel

import (
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/rng"
)

// SerializeState encodes a state in the wire format: RNG words and the state
// hash as "0x"-prefixed lowercase hex.
func SerializeState(s *ir.GameState) ([]byte, error) {
	if s == nil {
		return nil, fault.Internal("nil game state")
	}
	data, err := ir.EncodeState(s)
	if err != nil {
		return nil, fault.StateInvalid(err)
	}
	return data, nil
}

// DeserializeState decodes and validates a state, including the RNG
// algorithm/version tags and the turn-order runtime.
func DeserializeState(data []byte) (*ir.GameState, error) {
	s, err := ir.DecodeState(data)
	if err != nil {
		return nil, fault.StateInvalid(err)
	}
	if err := rng.Validate(s.RNG); err != nil {
		return nil, fault.StateInvalid(err)
	}
	return s, nil
}
