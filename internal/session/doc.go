// Package session runs persisted games on top of the kernel.
//
// A session owns one game: its definition, the current state and the
// position in the move log. Every applied move is appended to the store
// together with the post-move state hash and the trigger log, so a game can
// be resumed or replayed from its seed alone.
//
// # Replay
//
// Replay re-applies the stored moves to the initial state built from the
// stored seed and player count, comparing each resulting state hash with
// the stored one. The first mismatch (or the first move the kernel now
// rejects) is reported as a Divergence; replay stops there.
//
// Resume takes a shortcut: it starts from the latest snapshot and only
// re-applies the moves after it, with the same hash checks.
package session
