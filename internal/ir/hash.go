package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainState   = "tabula/state/v1"
	DomainTrace   = "tabula/trace/v1"
	DomainGameDef = "tabula/gamedef/v1"
	DomainMoveLog = "tabula/movelog/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// HashHex returns the full hex digest of data under a domain.
func HashHex(domain string, data []byte) string {
	sum := hashWithDomain(domain, data)
	return hex.EncodeToString(sum[:])
}

// StateHash computes the running hash of a state. The stored StateHash field
// is excluded from its own input.
func StateHash(s *GameState) (Hex64, error) {
	tmp := *s
	tmp.StateHash = 0
	data, err := json.Marshal(&tmp)
	if err != nil {
		return 0, fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	sum := hashWithDomain(DomainState, data)
	return Hex64(binary.BigEndian.Uint64(sum[:8])), nil
}

// GameDefHash fingerprints a game definition so stored games can detect a
// changed rulebook on replay.
func GameDefHash(def *GameDef) (string, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("GameDefHash: failed to marshal: %w", err)
	}
	return HashHex(DomainGameDef, data), nil
}

// MustStateHash is like StateHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStateHash(s *GameState) Hex64 {
	h, err := StateHash(s)
	if err != nil {
		panic(err)
	}
	return h
}
