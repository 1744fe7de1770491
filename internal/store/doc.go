// Package store provides SQLite-backed durable storage for tabula games.
//
// The store keeps, per game:
//   - Games: the game definition, seed and player count a game started from
//   - Moves: the append-only move log with the state hash after each move
//   - Snapshots: serialized states taken every few moves
//   - Trigger log: the trigger firings each move caused
//
// # Critical Patterns
//
// Logical order only
//   - All ordering uses seq INTEGER, NEVER timestamps
//   - created_at is informational; tests inject a deterministic clock
//
// Canonical content
//   - Moves and trigger entries are stored as RFC 8785 canonical JSON so a
//     stored log hashes identically across runs
//
// Gap-free log
//   - AppendMove only accepts seq = last seq + 1, inside one transaction
//     that also writes the move's trigger entries and optional snapshot
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
