package store

import (
	"encoding/json"
	"time"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/triggers"
)

// Game is the immutable header of a stored game: everything needed to
// rebuild its initial state.
type Game struct {
	ID            string          `json:"id"`
	DefID         string          `json:"defId"`
	DefHash       string          `json:"defHash"`
	Def           json.RawMessage `json:"def"`
	Seed          int64           `json:"seed"`
	PlayerCount   int             `json:"playerCount"`
	InitialHash   ir.Hex64        `json:"initialHash"`
	EngineVersion string          `json:"engineVersion"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// MoveRecord is one entry of the move log.
type MoveRecord struct {
	GameID    string    `json:"gameId"`
	Seq       int64     `json:"seq"`
	Player    int       `json:"player"`
	Move      ir.Move   `json:"move"`
	StateHash ir.Hex64  `json:"stateHash"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is a serialized state taken after move Seq (0 = initial).
type Snapshot struct {
	GameID    string   `json:"gameId"`
	Seq       int64    `json:"seq"`
	StateHash ir.Hex64 `json:"stateHash"`
	State     []byte   `json:"state"`
}

// TriggerRecord is one trigger firing caused by move Seq.
type TriggerRecord struct {
	GameID string            `json:"gameId"`
	Seq    int64             `json:"seq"`
	Index  int               `json:"index"`
	Entry  triggers.LogEntry `json:"entry"`
}
