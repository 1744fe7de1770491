package session

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator names new games.
type IDGenerator interface {
	NewID() (string, error)
}

// UUIDv7Generator generates time-sortable UUIDv7 game ids, so a listing
// ordered by id is also ordered by creation time.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a hyphenated UUIDv7.
func (UUIDv7Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate game id: %w", err)
	}
	return id.String(), nil
}
