// Package harness provides conformance testing for game definitions.
//
// The harness runs a scenario (a game, a seed and a scripted list of moves)
// against a real session, checks every move's expected outcome, replays the
// stored log to confirm determinism, and evaluates assertions on the final
// state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: race_opening
//	description: "What this scenario validates"
//	game: ../games/race.json
//	seed: 42
//	players: 2
//	moves:
//	  - action: advance
//	    params: { $steps: 2 }
//	  - action: advance
//	    params: { $steps: 9 }
//	    expectIllegal: invalidParam
//	autoplay: { seed: 1, maxMoves: 50 }
//	assertions:
//	  - type: var
//	    scope: player
//	    player: 0
//	    var: pos
//	    equals: 2
//	  - type: trace_count
//	    action: advance
//	    count: 1
//
// # Assertion Types
//
//   - var: a global, player or zone var has a value
//   - zone_count: a zone holds a number of tokens
//   - phase, active_player: turn position
//   - terminal: the game result, or "none"
//   - trace_contains, trace_order, trace_count: applied moves
//   - trigger_count: trigger firings
//   - legal_moves: the legal moves at the final state
//
// # Deterministic Testing
//
// All scenarios execute with a deterministic clock and sequential game ids
// over an in-memory SQLite database, so golden summaries
// (testdata/golden) are stable across runs.
package harness
