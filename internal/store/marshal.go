package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/triggers"
)

// marshalMove converts a move to canonical JSON TEXT for storage.
func marshalMove(m ir.Move) (string, error) {
	data, err := ir.MarshalCanonical(m.Object())
	if err != nil {
		return "", fmt.Errorf("marshal move: %w", err)
	}
	return string(data), nil
}

// unmarshalMove parses a stored move. ir.Object decoding keeps large
// integers exact.
func unmarshalMove(data string) (ir.Move, error) {
	var m ir.Move
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return ir.Move{}, fmt.Errorf("unmarshal move: %w", err)
	}
	if m.Params == nil {
		m.Params = ir.Object{}
	}
	return m, nil
}

// marshalLogEntry converts a trigger log entry to canonical JSON TEXT. The
// entry is a struct, so it is normalized through a generic decode first.
func marshalLogEntry(e triggers.LogEntry) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal trigger entry: %w", err)
	}
	var obj ir.Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("marshal trigger entry: %w", err)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal trigger entry: %w", err)
	}
	return string(data), nil
}

func unmarshalLogEntry(data string) (triggers.LogEntry, error) {
	var e triggers.LogEntry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return triggers.LogEntry{}, fmt.Errorf("unmarshal trigger entry: %w", err)
	}
	return e, nil
}
